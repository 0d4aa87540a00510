package persistence

import "errors"

const (
	// MagicNumber identifies lexgo binary files (ASCII: "LEX0").
	MagicNumber uint32 = 0x4C455830
	// Version is the current file format version (v1.0.0).
	Version uint32 = 0x00010000

	// RecordSize is the fixed width of one encoded lexeme record. It is
	// independent of the string length: the string itself is not embedded,
	// only its orth id.
	RecordSize = 96

	// HeaderSize is the width of the file header.
	HeaderSize = 32
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrChecksum       = errors.New("checksum mismatch")
)

// FileHeader is the 32-byte header at the start of a lexemes file.
type FileHeader struct {
	Magic         uint32 // 0x4C455830 ("LEX0")
	Version       uint32 // File format version
	Count         uint64 // Number of lexeme records
	VectorsLength uint32 // Vector dimensionality at export time
	Padding       [4]byte
	Reserved      [8]byte // Future use
}

// LexemeRecord is the fixed-width wire form of a lexeme. Vectors are not
// part of this codec; decoded records always start on the zero sentinel.
type LexemeRecord struct {
	Orth      uint64
	ID        uint64
	Length    uint32
	Flags     uint64
	Lower     uint64
	Norm      uint64
	Shape     uint64
	Prefix    uint64
	Suffix    uint64
	Cluster   uint64
	Prob      float32
	Sentiment float32
}

// Layout offsets of LexemeRecord within its RecordSize buffer.
const (
	offOrth      = 0
	offID        = 8
	offLength    = 16
	offFlags     = 24
	offLower     = 32
	offNorm      = 40
	offShape     = 48
	offPrefix    = 56
	offSuffix    = 64
	offCluster   = 72
	offProb      = 80
	offSentiment = 84
	// bytes 88..96 reserved
)
