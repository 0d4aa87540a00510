// Package attrs defines the attribute and flag identifiers carried by every
// lexeme, plus the getter callback type used by the attribute pipeline.
//
// Attribute values computed as strings (e.g. the shape "Xxxx") are interned
// before storage, so lexeme slots hold string ids, never strings.
package attrs

// ID identifies a lexeme attribute slot.
type ID int

const (
	// Orth is the interned id of the surface string itself.
	Orth ID = iota
	// Lower is the interned id of the lowercased form.
	Lower
	// Norm is the interned id of the normalized form.
	Norm
	// Shape is the interned id of the orthographic shape (e.g. "Xxxx", "dd").
	Shape
	// Prefix is the interned id of the leading character(s).
	Prefix
	// Suffix is the interned id of the trailing characters.
	Suffix
	// Cluster is a numeric cluster code (e.g. Brown cluster).
	Cluster
	// Prob is the log-probability of the string. It bypasses slot storage
	// and writes the lexeme's Prob field directly.
	Prob
	// Sentiment is a scalar sentiment score.
	Sentiment
)

var idNames = [...]string{
	Orth:      "ORTH",
	Lower:     "LOWER",
	Norm:      "NORM",
	Shape:     "SHAPE",
	Prefix:    "PREFIX",
	Suffix:    "SUFFIX",
	Cluster:   "CLUSTER",
	Prob:      "PROB",
	Sentiment: "SENTIMENT",
}

func (i ID) String() string {
	if i < 0 || int(i) >= len(idNames) {
		return "UNKNOWN"
	}
	return idNames[i]
}

// Getter computes an attribute value for a string. The second return value
// reports whether a value is present; absent values leave the slot at its
// default. Supported value types are string (interned before storage),
// float64 (Prob/Sentiment), uint64 and int.
type Getter func(s string) (any, bool)

// FlagID addresses a single bit in a lexeme's 64-bit flag set.
// Bit 0 is reserved; assignable bits are 1 through 63.
type FlagID uint8

// AutoFlag requests automatic assignment of the lowest unused flag bit.
const AutoFlag FlagID = 0

// MaxFlag is the highest assignable flag bit.
const MaxFlag FlagID = 63

// Built-in boolean flags. These occupy the low bits of the flag set when the
// default pipeline is installed; callers registering their own predicates
// should use AutoFlag and keep the returned id.
const (
	IsAlpha FlagID = iota + 1
	IsASCII
	IsDigit
	IsLower
	IsPunct
	IsSpace
	IsTitle
	IsUpper
	IsBracket
	IsQuote
	LikeNum
	LikeURL
	LikeEmail
)

var flagNames = [...]string{
	IsAlpha:   "IS_ALPHA",
	IsASCII:   "IS_ASCII",
	IsDigit:   "IS_DIGIT",
	IsLower:   "IS_LOWER",
	IsPunct:   "IS_PUNCT",
	IsSpace:   "IS_SPACE",
	IsTitle:   "IS_TITLE",
	IsUpper:   "IS_UPPER",
	IsBracket: "IS_BRACKET",
	IsQuote:   "IS_QUOTE",
	LikeNum:   "LIKE_NUM",
	LikeURL:   "LIKE_URL",
	LikeEmail: "LIKE_EMAIL",
}

func (f FlagID) String() string {
	if int(f) < len(flagNames) && flagNames[f] != "" {
		return flagNames[f]
	}
	return "FLAG"
}

// Symbols is the fixed ordered set of reserved strings a vocabulary interns
// at construction time, before any lexeme exists. Their ids therefore form a
// stable low-numbered prefix of the string table across sessions.
var Symbols = []string{
	"ORTH", "LOWER", "NORM", "SHAPE", "PREFIX", "SUFFIX",
	"CLUSTER", "PROB", "SENTIMENT",
	"IS_ALPHA", "IS_ASCII", "IS_DIGIT", "IS_LOWER", "IS_PUNCT",
	"IS_SPACE", "IS_TITLE", "IS_UPPER", "IS_BRACKET", "IS_QUOTE",
	"LIKE_NUM", "LIKE_URL", "LIKE_EMAIL",
}
