package lexgo

import (
	"unsafe"

	"github.com/hupe1980/lexgo/arena"
	"github.com/hupe1980/lexgo/attrs"
	"github.com/hupe1980/lexgo/internal/math32"
)

// DefaultProb is the log-probability assigned to a lexeme whose probability
// has not been computed. It approximates the mass of an unseen token.
const DefaultProb float32 = -20.0

// Lexeme is the cached per-string record: linguistic attribute slots, a
// 64-bit flag set and a dense vector. Records are allocated from an arena
// and live for the arena's lifetime; the string itself is not stored, only
// its orth id.
type Lexeme struct {
	// Orth is the interned id of the surface string. Never 0 for a real
	// lexeme; 0 is reserved for the empty string.
	Orth uint64
	// ID is the insertion rank in the permanent table, 0 for
	// out-of-vocabulary records.
	ID uint64
	// Length is the rune count of the originating string.
	Length uint32
	// Flags is the boolean flag bitset. Bit 0 is reserved.
	Flags uint64
	// Interned-string attribute slots.
	Lower  uint64
	Norm   uint64
	Shape  uint64
	Prefix uint64
	Suffix uint64
	// Cluster is a numeric cluster code.
	Cluster uint64
	// Prob is the log-probability of the string.
	Prob float32
	// Sentiment is a scalar sentiment score.
	Sentiment float32

	// vector is never nil: it aliases the table's shared zero sentinel until
	// a real buffer is attached. All referents are owned by an arena or by
	// the table, which keeps them reachable even though this struct lives in
	// arena memory the garbage collector does not scan.
	vector    []float32
	l2Norm    float32
	hasVector bool
}

// lexemeSize is the arena allocation size of one record.
var lexemeSize = int(unsafe.Sizeof(Lexeme{}))

// allocLexeme carves a zeroed Lexeme out of the given arena.
func allocLexeme(mem *arena.Arena) (*Lexeme, error) {
	b, err := mem.AllocBytes(lexemeSize)
	if err != nil {
		return nil, err
	}
	return (*Lexeme)(unsafe.Pointer(&b[0])), nil
}

// CheckFlag reports whether the given flag bit is set.
func (l *Lexeme) CheckFlag(bit attrs.FlagID) bool {
	if bit < 1 || bit > attrs.MaxFlag {
		return false
	}
	return l.Flags&(1<<bit) != 0
}

func (l *Lexeme) setFlag(bit attrs.FlagID, on bool) {
	if on {
		l.Flags |= 1 << bit
	} else {
		l.Flags &^= 1 << bit
	}
}

// IsOOV reports whether the record is out-of-vocabulary (never inserted into
// the shared table).
func (l *Lexeme) IsOOV() bool { return l.ID == 0 && l.Orth != 0 }

// Vector returns the record's dense vector. The slice is the table's shared
// zero sentinel until a real vector is attached; callers must not mutate it.
func (l *Lexeme) Vector() []float32 { return l.vector }

// HasVector reports whether a real vector (not the zero sentinel) is attached.
func (l *Lexeme) HasVector() bool { return l.hasVector }

// L2Norm returns the cached Euclidean norm of the vector. It is recomputed
// whenever the vector is (re)assigned.
func (l *Lexeme) L2Norm() float32 { return l.l2Norm }

// Similarity returns the cosine similarity of the two records' vectors,
// using the cached norms. A record without a real vector has similarity 0
// to everything, itself included.
func (l *Lexeme) Similarity(other *Lexeme) float32 {
	if !l.hasVector || !other.hasVector || l.l2Norm == 0 || other.l2Norm == 0 {
		return 0
	}
	return math32.Dot(l.vector, other.vector) / (l.l2Norm * other.l2Norm)
}
