package lexgo

import (
	"fmt"
	"unicode/utf8"

	"github.com/hupe1980/lexgo/arena"
	"github.com/hupe1980/lexgo/attrs"
	"github.com/hupe1980/lexgo/intern"
	"github.com/hupe1980/lexgo/resource"
)

type getterEntry struct {
	attr attrs.ID
	fn   attrs.Getter
}

type flagEntry struct {
	bit attrs.FlagID
	fn  func(string) bool
}

// Vocab is the lexeme store: a process-wide, deduplicated table of records
// keyed by surface string, dual-indexed by string and by orth id.
//
// A Vocab is built once per vocabulary session and assumes a single logical
// owner; mutating operations are not safe for concurrent use without
// external synchronization.
type Vocab struct {
	logger     *Logger
	metrics    MetricsCollector
	strings    intern.StringStore
	controller *resource.Controller

	// mem owns every permanent lexeme and vector buffer. Scratch arenas for
	// out-of-vocabulary lookups are caller-owned and never retained.
	mem *arena.Arena

	byString map[string]*Lexeme
	byOrth   map[uint64]*Lexeme

	getters  []getterEntry
	flags    []flagEntry
	usedBits uint64

	// rank is the next permanent insertion id. Starts at 1; id 0 marks
	// out-of-vocabulary records.
	rank uint64

	vectorsLength int
	zeroVector    []float32
	empty         Lexeme

	oovMinLength int
	oovWarmup    int
}

// New creates a Vocab. The string store (supplied or default) is
// pre-populated with the reserved symbol strings so their ids form a stable
// low-numbered prefix, and the built-in attribute getters and flag
// predicates are installed.
func New(optFns ...Option) (*Vocab, error) {
	o := applyOptions(optFns)

	arenaOpts := []arena.Option{}
	if o.controller != nil {
		arenaOpts = append(arenaOpts, arena.WithMemoryAcquirer(o.controller))
	}

	v := &Vocab{
		logger:       o.logger,
		metrics:      o.metrics,
		strings:      o.strings,
		controller:   o.controller,
		mem:          arena.New(o.arenaChunkSize, arenaOpts...),
		byString:     make(map[string]*Lexeme),
		byOrth:       make(map[uint64]*Lexeme),
		usedBits:     1, // bit 0 reserved
		rank:         1,
		zeroVector:   []float32{},
		oovMinLength: o.oovMinLength,
		oovWarmup:    o.oovWarmup,
	}
	v.empty.vector = v.zeroVector

	for _, s := range attrs.Symbols {
		v.strings.Orth(s)
	}
	for _, g := range attrs.BuiltinGetters() {
		v.getters = append(v.getters, getterEntry{attr: g.Attr, fn: g.Fn})
	}
	for _, f := range attrs.BuiltinFlags() {
		v.flags = append(v.flags, flagEntry{bit: f.Bit, fn: f.Fn})
		v.usedBits |= 1 << f.Bit
	}

	return v, nil
}

// Strings returns the vocabulary's string store.
func (v *Vocab) Strings() intern.StringStore { return v.strings }

// Len reports the number of permanent lexemes. Out-of-vocabulary records
// never count.
func (v *Vocab) Len() int { return len(v.byString) }

// VectorsLength returns the current vector dimensionality, 0 until vectors
// are loaded or resized.
func (v *Vocab) VectorsLength() int { return v.vectorsLength }

// Contains reports whether a permanent lexeme exists for s.
func (v *Vocab) Contains(s string) bool {
	_, ok := v.byString[s]
	return ok
}

// GetOrCreate returns the lexeme for s, creating it in the permanent table
// on first sight. The empty string maps to the shared empty lexeme.
func (v *Vocab) GetOrCreate(s string) (*Lexeme, error) {
	return v.GetOrCreateScratch(nil, s)
}

// GetOrCreateScratch is GetOrCreate with a caller-owned scratch arena. If
// the lookup misses and the string is long enough and the table is past its
// warm-up size, the new record is allocated from scratch, marked
// out-of-vocabulary (ID 0) and inserted into neither index: it belongs to
// the caller and dies with the scratch arena. A nil scratch always places
// records permanently.
func (v *Vocab) GetOrCreateScratch(scratch *arena.Arena, s string) (*Lexeme, error) {
	if s == "" {
		return &v.empty, nil
	}

	if lex, ok := v.byString[s]; ok {
		v.metrics.RecordLookup(true)
		stored, err := v.strings.String(lex.Orth)
		if err != nil || stored != s {
			return nil, &ErrStringMismatch{Orth: lex.Orth, Stored: stored, Got: s, cause: err}
		}
		return lex, nil
	}
	v.metrics.RecordLookup(false)

	mem := v.mem
	permanent := true
	if scratch != nil && utf8.RuneCountInString(s) >= v.oovMinLength && len(v.byString) >= v.oovWarmup {
		mem = scratch
		permanent = false
	}
	return v.newLexeme(mem, s, permanent)
}

// ByOrth returns the lexeme for an orth id. Id 0 (the reserved empty-string
// id) returns the shared empty lexeme without touching the arena. Unknown
// ids that resolve through the string store are created on the fly; ids the
// string store has never seen fail with ErrNotFound.
func (v *Vocab) ByOrth(orth uint64) (*Lexeme, error) {
	if orth == 0 {
		return &v.empty, nil
	}
	if lex, ok := v.byOrth[orth]; ok {
		v.metrics.RecordLookup(true)
		return lex, nil
	}
	s, err := v.strings.String(orth)
	if err != nil {
		return nil, fmt.Errorf("%w: orth %d", ErrNotFound, orth)
	}
	return v.GetOrCreate(s)
}

// Iterate calls fn for every permanent lexeme until fn returns false.
// Iteration order follows the by-string index and is not stable.
func (v *Vocab) Iterate(fn func(*Lexeme) bool) {
	for _, lex := range v.byString {
		if !fn(lex) {
			return
		}
	}
}

func (v *Vocab) newLexeme(mem *arena.Arena, s string, permanent bool) (*Lexeme, error) {
	lex, err := allocLexeme(mem)
	if err != nil {
		return nil, err
	}

	lex.Orth = v.strings.Orth(s)
	lex.Length = uint32(utf8.RuneCountInString(s))
	lex.Prob = DefaultProb
	lex.vector = v.zeroVector

	if err := v.applyGetters(lex, s); err != nil {
		return nil, err
	}
	for _, f := range v.flags {
		lex.setFlag(f.bit, f.fn(s))
	}

	if permanent {
		lex.ID = v.rank
		v.rank++
		v.byString[s] = lex
		v.byOrth[lex.Orth] = lex
	}

	v.metrics.RecordCreate(!permanent)
	v.logger.WithOrth(lex.Orth).Debug("lexeme created", "oov", !permanent)
	return lex, nil
}

// SetGetter registers an attribute getter. A getter for an attribute that is
// already registered replaces the old one in place, keeping its pipeline
// position; new attributes append. Getters run exactly once per new lexeme,
// in registration order.
func (v *Vocab) SetGetter(attr attrs.ID, fn attrs.Getter) {
	for i := range v.getters {
		if v.getters[i].attr == attr {
			v.getters[i].fn = fn
			return
		}
	}
	v.getters = append(v.getters, getterEntry{attr: attr, fn: fn})
}

func (v *Vocab) applyGetters(lex *Lexeme, s string) error {
	for _, g := range v.getters {
		val, ok := g.fn(s)
		if !ok || val == nil {
			continue
		}
		if err := v.storeAttr(lex, g.attr, val); err != nil {
			return err
		}
	}
	return nil
}

func (v *Vocab) storeAttr(lex *Lexeme, attr attrs.ID, val any) error {
	id, err := v.attrValueID(attr, val)
	if err != nil {
		return err
	}
	switch attr {
	case attrs.Lower:
		lex.Lower = id
	case attrs.Norm:
		lex.Norm = id
	case attrs.Shape:
		lex.Shape = id
	case attrs.Prefix:
		lex.Prefix = id
	case attrs.Suffix:
		lex.Suffix = id
	case attrs.Cluster:
		lex.Cluster = id
	case attrs.Prob:
		f, ok := toFloat32(val)
		if !ok {
			return fmt.Errorf("getter for %s returned %T, want a number", attr, val)
		}
		lex.Prob = f
	case attrs.Sentiment:
		f, ok := toFloat32(val)
		if !ok {
			return fmt.Errorf("getter for %s returned %T, want a number", attr, val)
		}
		lex.Sentiment = f
	case attrs.Orth:
		// The orth is the record's identity and is never recomputed.
	default:
		return fmt.Errorf("no slot for attribute %s", attr)
	}
	return nil
}

// attrValueID interns string values; numeric values pass through for the
// numeric slots. Prob and Sentiment are handled by the caller.
func (v *Vocab) attrValueID(attr attrs.ID, val any) (uint64, error) {
	if attr == attrs.Prob || attr == attrs.Sentiment {
		return 0, nil
	}
	switch t := val.(type) {
	case string:
		return v.strings.Orth(t), nil
	case uint64:
		return t, nil
	case int:
		if t < 0 {
			return 0, fmt.Errorf("getter for %s returned negative id %d", attr, t)
		}
		return uint64(t), nil
	default:
		return 0, fmt.Errorf("getter for %s returned unsupported type %T", attr, val)
	}
}

func toFloat32(val any) (float32, bool) {
	switch t := val.(type) {
	case float32:
		return t, true
	case float64:
		return float32(t), true
	case int:
		return float32(t), true
	default:
		return 0, false
	}
}

// RegisterFlag registers a boolean predicate under a flag bit and applies it
// retroactively to every permanent lexeme. Pass attrs.AutoFlag to have the
// lowest unused bit in [1, 63] assigned; explicit bits outside that range
// are rejected. When no free bit remains, auto-assignment fails with
// ErrFlagsExhausted instead of overwriting.
func (v *Vocab) RegisterFlag(fn func(string) bool, bit attrs.FlagID) (attrs.FlagID, error) {
	if bit == attrs.AutoFlag {
		assigned := false
		for b := attrs.FlagID(1); b <= attrs.MaxFlag; b++ {
			if v.usedBits&(1<<b) == 0 {
				bit = b
				assigned = true
				break
			}
		}
		if !assigned {
			return 0, ErrFlagsExhausted
		}
	} else if bit > attrs.MaxFlag {
		return 0, &ErrInvalidFlag{Bit: bit}
	}

	for _, lex := range v.byOrth {
		s, err := v.strings.String(lex.Orth)
		if err != nil {
			return 0, &ErrStringMismatch{Orth: lex.Orth, Got: "", cause: err}
		}
		lex.setFlag(bit, fn(s))
	}

	v.flags = append(v.flags, flagEntry{bit: bit, fn: fn})
	v.usedBits |= 1 << bit
	return bit, nil
}

// MarshalBinary is intentionally unsupported: the table has no opaque
// whole-state serialization. Use ExportLexemes/SaveToDirectory.
func (v *Vocab) MarshalBinary() ([]byte, error) {
	return nil, fmt.Errorf("vocab serialization: %w", ErrUnsupported)
}

// UnmarshalBinary is intentionally unsupported. Use
// ImportLexemes/LoadFromDirectory.
func (v *Vocab) UnmarshalBinary([]byte) error {
	return fmt.Errorf("vocab deserialization: %w", ErrUnsupported)
}
