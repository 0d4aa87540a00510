// Package persistence provides the fixed-width binary codec for lexeme
// records, atomic file helpers and the model directory layout
// (strings.json, lexemes.bin, manifest.json).
package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"unsafe"
)

// EncodeLexeme encodes a record into its fixed-width form.
func EncodeLexeme(rec *LexemeRecord) [RecordSize]byte {
	var buf [RecordSize]byte
	le := binary.LittleEndian
	le.PutUint64(buf[offOrth:], rec.Orth)
	le.PutUint64(buf[offID:], rec.ID)
	le.PutUint32(buf[offLength:], rec.Length)
	le.PutUint64(buf[offFlags:], rec.Flags)
	le.PutUint64(buf[offLower:], rec.Lower)
	le.PutUint64(buf[offNorm:], rec.Norm)
	le.PutUint64(buf[offShape:], rec.Shape)
	le.PutUint64(buf[offPrefix:], rec.Prefix)
	le.PutUint64(buf[offSuffix:], rec.Suffix)
	le.PutUint64(buf[offCluster:], rec.Cluster)
	le.PutUint32(buf[offProb:], math.Float32bits(rec.Prob))
	le.PutUint32(buf[offSentiment:], math.Float32bits(rec.Sentiment))
	return buf
}

// DecodeLexeme decodes a fixed-width record.
func DecodeLexeme(buf *[RecordSize]byte) LexemeRecord {
	le := binary.LittleEndian
	return LexemeRecord{
		Orth:      le.Uint64(buf[offOrth:]),
		ID:        le.Uint64(buf[offID:]),
		Length:    le.Uint32(buf[offLength:]),
		Flags:     le.Uint64(buf[offFlags:]),
		Lower:     le.Uint64(buf[offLower:]),
		Norm:      le.Uint64(buf[offNorm:]),
		Shape:     le.Uint64(buf[offShape:]),
		Prefix:    le.Uint64(buf[offPrefix:]),
		Suffix:    le.Uint64(buf[offSuffix:]),
		Cluster:   le.Uint64(buf[offCluster:]),
		Prob:      math.Float32frombits(le.Uint32(buf[offProb:])),
		Sentiment: math.Float32frombits(le.Uint32(buf[offSentiment:])),
	}
}

// BinaryWriter writes lexeme files in the fixed-width binary format.
// Record bytes are checksummed; Finish appends the CRC32-C trailer.
type BinaryWriter struct {
	w         io.Writer
	byteOrder binary.ByteOrder
	checksum  *ChecksumWriter
}

// NewBinaryWriter creates a new binary writer.
func NewBinaryWriter(w io.Writer) *BinaryWriter {
	return &BinaryWriter{
		w:         w,
		byteOrder: binary.LittleEndian,
		checksum:  NewChecksumWriter(w),
	}
}

// WriteHeader writes the file header. Magic and version are filled in.
func (bw *BinaryWriter) WriteHeader(header *FileHeader) error {
	header.Magic = MagicNumber
	header.Version = Version
	return binary.Write(bw.w, bw.byteOrder, header)
}

// WriteLexeme writes one fixed-width record.
func (bw *BinaryWriter) WriteLexeme(rec *LexemeRecord) error {
	buf := EncodeLexeme(rec)
	_, err := bw.checksum.Write(buf[:])
	return err
}

// Finish writes the checksum trailer covering all records.
func (bw *BinaryWriter) Finish() error {
	return binary.Write(bw.w, bw.byteOrder, bw.checksum.Sum())
}

// WriteFloat32Slice writes a float32 slice as raw little-endian bytes.
func (bw *BinaryWriter) WriteFloat32Slice(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := bw.w.Write(byteSlice)
	return err
}

// WriteInt32 writes a single little-endian int32.
func (bw *BinaryWriter) WriteInt32(v int32) error {
	return binary.Write(bw.w, bw.byteOrder, v)
}

// WriteBytes writes raw bytes without checksumming.
func (bw *BinaryWriter) WriteBytes(p []byte) error {
	_, err := bw.w.Write(p)
	return err
}

// BinaryReader reads lexeme files in the fixed-width binary format.
type BinaryReader struct {
	r         io.Reader
	byteOrder binary.ByteOrder
	checksum  *ChecksumReader
}

// NewBinaryReader creates a new binary reader.
func NewBinaryReader(r io.Reader) *BinaryReader {
	return &BinaryReader{
		r:         r,
		byteOrder: binary.LittleEndian,
		checksum:  NewChecksumReader(r),
	}
}

// ReadHeader reads and validates the file header.
func (br *BinaryReader) ReadHeader() (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(br.r, br.byteOrder, &header); err != nil {
		return nil, err
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}
	return &header, nil
}

// ReadLexeme reads one fixed-width record.
func (br *BinaryReader) ReadLexeme() (LexemeRecord, error) {
	var buf [RecordSize]byte
	if _, err := io.ReadFull(br.checksum, buf[:]); err != nil {
		return LexemeRecord{}, err
	}
	return DecodeLexeme(&buf), nil
}

// VerifyChecksum reads the trailer and compares it against the records seen.
func (br *BinaryReader) VerifyChecksum() error {
	var want uint32
	if err := binary.Read(br.r, br.byteOrder, &want); err != nil {
		return err
	}
	if got := br.checksum.Sum(); got != want {
		return fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrChecksum, got, want)
	}
	return nil
}

// ReadFloat32SliceInto reads little-endian floats into the provided buffer.
func (br *BinaryReader) ReadFloat32SliceInto(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return err
	}
	return nil
}

// ReadInt32 reads a single little-endian int32.
func (br *BinaryReader) ReadInt32() (int32, error) {
	var v int32
	err := binary.Read(br.r, br.byteOrder, &v)
	return v, err
}

// ReadBytes reads exactly n raw bytes.
func (br *BinaryReader) ReadBytes(n int) ([]byte, error) {
	p := make([]byte, n)
	if _, err := io.ReadFull(br.r, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveToFile writes a file atomically: the content goes to a temp file in
// the same directory which is renamed over the target on success.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile opens a file and hands a buffered reader to readFunc.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewReaderSize(f, 256*1024)
	return readFunc(buf)
}
