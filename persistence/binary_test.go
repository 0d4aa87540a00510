package persistence

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() LexemeRecord {
	return LexemeRecord{
		Orth:      42,
		ID:        7,
		Length:    5,
		Flags:     0b1010,
		Lower:     43,
		Norm:      44,
		Shape:     45,
		Prefix:    46,
		Suffix:    47,
		Cluster:   123,
		Prob:      -19.5,
		Sentiment: 0.25,
	}
}

func TestEncodeDecodeLexeme(t *testing.T) {
	rec := testRecord()
	buf := EncodeLexeme(&rec)
	assert.Equal(t, rec, DecodeLexeme(&buf))
}

func TestBinaryWriterReader(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBinaryWriter(&buf)
	require.NoError(t, bw.WriteHeader(&FileHeader{Count: 2, VectorsLength: 300}))

	first := testRecord()
	second := testRecord()
	second.Orth = 99
	require.NoError(t, bw.WriteLexeme(&first))
	require.NoError(t, bw.WriteLexeme(&second))
	require.NoError(t, bw.Finish())

	br := NewBinaryReader(&buf)
	header, err := br.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, MagicNumber, header.Magic)
	assert.Equal(t, Version, header.Version)
	assert.Equal(t, uint64(2), header.Count)
	assert.Equal(t, uint32(300), header.VectorsLength)

	got, err := br.ReadLexeme()
	require.NoError(t, err)
	assert.Equal(t, first, got)
	got, err = br.ReadLexeme()
	require.NoError(t, err)
	assert.Equal(t, second, got)

	require.NoError(t, br.VerifyChecksum())
}

func TestBinaryReader_BadMagic(t *testing.T) {
	br := NewBinaryReader(bytes.NewReader(make([]byte, HeaderSize)))
	_, err := br.ReadHeader()
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestBinaryReader_BadVersion(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBinaryWriter(&buf)
	require.NoError(t, bw.WriteHeader(&FileHeader{}))

	data := buf.Bytes()
	data[4] = 0xEE // version field

	br := NewBinaryReader(bytes.NewReader(data))
	_, err := br.ReadHeader()
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestBinaryReader_ChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBinaryWriter(&buf)
	require.NoError(t, bw.WriteHeader(&FileHeader{Count: 1}))
	rec := testRecord()
	require.NoError(t, bw.WriteLexeme(&rec))
	require.NoError(t, bw.Finish())

	data := buf.Bytes()
	data[HeaderSize] ^= 0xFF

	br := NewBinaryReader(bytes.NewReader(data))
	_, err := br.ReadHeader()
	require.NoError(t, err)
	_, err = br.ReadLexeme()
	require.NoError(t, err)
	assert.ErrorIs(t, br.VerifyChecksum(), ErrChecksum)
}

func TestSaveToFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	err := SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("payload"))
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveToFile_ErrorLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	err := SaveToFile(path, func(io.Writer) error {
		return os.ErrInvalid
	})
	require.Error(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
