package lexgo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/lexgo/internal/conv"
	"github.com/hupe1980/lexgo/internal/math32"
	"github.com/hupe1980/lexgo/persistence"
	"github.com/hupe1980/lexgo/resource"
)

// MaxVectorLength bounds the per-record vector length a binary vector file
// may declare. Records outside [1, MaxVectorLength) fail with ErrVectorBounds.
const MaxVectorLength = 100000

// setVectorsLength changes the table-wide dimensionality. The zero sentinel
// is reallocated and every record without a real vector is re-pointed at it.
func (v *Vocab) setVectorsLength(n int) {
	if n == v.vectorsLength && len(v.zeroVector) == n {
		return
	}
	v.vectorsLength = n
	v.zeroVector = make([]float32, n)
	v.empty.vector = v.zeroVector
	for _, lex := range v.byString {
		if !lex.hasVector {
			lex.vector = v.zeroVector
		}
	}
}

// attachVector points a record at an arena-owned buffer and caches its norm.
func (v *Vocab) attachVector(lex *Lexeme, buf []float32) {
	lex.vector = buf
	lex.l2Norm = math32.Norm(buf)
	lex.hasVector = true
}

// SetVector attaches a vector to the lexeme for s, copying it into the
// permanent arena. The first vector set on an empty table establishes the
// dimensionality; later vectors must match it.
func (v *Vocab) SetVector(s string, vec []float32) error {
	if len(vec) == 0 {
		return &ErrInvalidDimension{Dimension: 0}
	}
	if v.vectorsLength != 0 && len(vec) != v.vectorsLength {
		return &ErrVectorSize{Record: 0, Expected: v.vectorsLength, Actual: len(vec)}
	}

	lex, err := v.GetOrCreate(s)
	if err != nil {
		return err
	}
	buf, err := v.mem.AllocFloat32Slice(len(vec))
	if err != nil {
		return err
	}
	copy(buf, vec)
	v.attachVector(lex, buf)

	if v.vectorsLength == 0 {
		v.setVectorsLength(len(vec))
	}
	return nil
}

// splitVectorLine splits a text vector line into its word and components.
// A line that starts with whitespace carries the single-space word " ",
// the convention text dumps use for the space token.
func splitVectorLine(line string) (string, []string) {
	if line[0] == ' ' || line[0] == '\t' {
		return " ", strings.Fields(line)
	}
	fields := strings.Fields(line)
	return fields[0], fields[1:]
}

// LoadVectors reads word vectors in the text format: one line per word,
// the word followed by whitespace-separated components. The first line fixes
// the dimensionality; a later line with a different component count fails
// with ErrVectorSize carrying its zero-based line index. Each word becomes a
// permanent lexeme with its own arena-owned buffer.
func (v *Vocab) LoadVectors(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	width := -1
	count := 0
	for lineNo := 0; sc.Scan(); lineNo++ {
		line := sc.Text()
		if line == "" {
			continue
		}
		word, fields := splitVectorLine(line)

		if width < 0 {
			if len(fields) == 0 {
				return 0, fmt.Errorf("vectors: line %d has no components", lineNo)
			}
			width = len(fields)
		} else if len(fields) != width {
			err := &ErrVectorSize{Record: lineNo, Expected: width, Actual: len(fields)}
			v.logger.LogVectorsLoad(count, width, err)
			return count, err
		}

		buf, err := v.mem.AllocFloat32Slice(width)
		if err != nil {
			return count, err
		}
		for i, f := range fields {
			val, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return count, fmt.Errorf("vectors: line %d: parse %q: %w", lineNo, f, err)
			}
			buf[i] = float32(val)
		}

		lex, err := v.GetOrCreate(word)
		if err != nil {
			return count, err
		}
		v.attachVector(lex, buf)
		count++
	}
	if err := sc.Err(); err != nil {
		return count, fmt.Errorf("vectors: %w", err)
	}

	if width > 0 {
		v.setVectorsLength(width)
	}
	v.metrics.RecordVectorsLoaded(count, v.vectorsLength)
	v.logger.LogVectorsLoad(count, v.vectorsLength, nil)
	return count, nil
}

// LoadVectorsFile loads text vectors from a file, transparently decompressing
// .gz and .lz4 inputs. Reads count against the vocabulary's IO budget.
func (v *Vocab) LoadVectorsFile(ctx context.Context, path string) (int, error) {
	rc, err := openVectorSource(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	return v.LoadVectors(resource.NewRateLimitedReader(ctx, rc, v.controller))
}

// LoadVectorsBinary reads the binary vector format: repeated records of
// {int32 wordLen, int32 vecLen, word bytes, float32 components}, little
// endian, terminated by a clean EOF at a record boundary. Rows are keyed by
// the lowercase form, so after the read pass every permanent lexeme whose
// Lower matches a loaded row shares that row's buffer.
func (v *Vocab) LoadVectorsBinary(r io.Reader) (int, error) {
	br := persistence.NewBinaryReader(r)

	rows := make(map[uint64][]float32)
	loaded := roaring64.New()

	width := -1
	count := 0
	for {
		wordLen, err := br.ReadInt32()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("vectors: record %d: %w", count, err)
		}
		vecLen, err := br.ReadInt32()
		if err != nil {
			return count, fmt.Errorf("vectors: record %d: %w", count, err)
		}
		if wordLen < 0 {
			return count, fmt.Errorf("vectors: record %d: negative word length %d", count, wordLen)
		}
		if vecLen < 1 || vecLen >= MaxVectorLength {
			return count, fmt.Errorf("vectors: record %d: %w: %d", count, ErrVectorBounds, vecLen)
		}

		n := conv.Int32ToInt(vecLen)
		if width < 0 {
			width = n
		} else if n != width {
			err := &ErrVectorSize{Record: count, Expected: width, Actual: n}
			v.logger.LogVectorsLoad(count, width, err)
			return count, err
		}

		wordBytes, err := br.ReadBytes(conv.Int32ToInt(wordLen))
		if err != nil {
			return count, fmt.Errorf("vectors: record %d: %w", count, err)
		}

		buf, err := v.mem.AllocFloat32Slice(width)
		if err != nil {
			return count, err
		}
		if err := br.ReadFloat32SliceInto(buf); err != nil {
			return count, fmt.Errorf("vectors: record %d: %w", count, err)
		}

		lex, err := v.GetOrCreate(string(wordBytes))
		if err != nil {
			return count, err
		}
		v.attachVector(lex, buf)
		rows[lex.Lower] = buf
		loaded.Add(lex.Lower)
		count++
	}

	if width > 0 {
		v.setVectorsLength(width)
		// Distribute rows across casing variants sharing a lowercase form.
		// Everything outside the loaded rows drops back to the zero sentinel,
		// including vectors from an earlier load at a different width.
		for _, lex := range v.byString {
			if loaded.Contains(lex.Lower) {
				v.attachVector(lex, rows[lex.Lower])
				continue
			}
			lex.vector = v.zeroVector
			lex.l2Norm = 0
			lex.hasVector = false
		}
	}
	v.metrics.RecordVectorsLoaded(count, v.vectorsLength)
	v.logger.LogVectorsLoad(count, v.vectorsLength, nil)
	return count, nil
}

// LoadVectorsBinaryFile loads binary vectors from a file with the
// vocabulary's IO budget applied.
func (v *Vocab) LoadVectorsBinaryFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	buf := bufio.NewReaderSize(f, 256*1024)
	return v.LoadVectorsBinary(resource.NewRateLimitedReader(ctx, buf, v.controller))
}

// DumpVectorsBinary writes the table's vectors in the binary format, one row
// per distinct lowercase form, keyed by the lowercase string. Returns the
// number of rows written.
func (v *Vocab) DumpVectorsBinary(w io.Writer) (int, error) {
	bw := persistence.NewBinaryWriter(w)
	seen := roaring64.New()

	count := 0
	for _, lex := range v.byString {
		if !lex.hasVector || seen.Contains(lex.Lower) {
			continue
		}
		word, err := v.strings.String(lex.Lower)
		if err != nil {
			return count, &ErrStringMismatch{Orth: lex.Lower, cause: err}
		}

		wordLen, err := conv.IntToUint32(len(word))
		if err != nil {
			return count, err
		}
		vecLen, err := conv.IntToUint32(len(lex.vector))
		if err != nil {
			return count, err
		}
		if err := bw.WriteInt32(int32(wordLen)); err != nil {
			return count, err
		}
		if err := bw.WriteInt32(int32(vecLen)); err != nil {
			return count, err
		}
		if err := bw.WriteBytes([]byte(word)); err != nil {
			return count, err
		}
		if err := bw.WriteFloat32Slice(lex.vector); err != nil {
			return count, err
		}

		seen.Add(lex.Lower)
		count++
	}
	return count, nil
}

// DumpVectorsBinaryFile writes the binary vector dump atomically to path,
// with writes counted against the vocabulary's IO budget.
func (v *Vocab) DumpVectorsBinaryFile(ctx context.Context, path string) (int, error) {
	count := 0
	err := persistence.SaveToFile(path, func(w io.Writer) error {
		var dumpErr error
		count, dumpErr = v.DumpVectorsBinary(resource.NewRateLimitedWriter(ctx, w, v.controller))
		return dumpErr
	})
	return count, err
}

// ResizeVectors changes the dimensionality of every stored vector. Growing
// zero-pads the tail, shrinking truncates it; in both directions each record
// gets a fresh arena buffer and a recomputed norm. The old buffers stay in
// the arena until the vocabulary is freed.
func (v *Vocab) ResizeVectors(n int) error {
	if n <= 0 {
		return &ErrInvalidDimension{Dimension: n}
	}
	if n == v.vectorsLength {
		return nil
	}

	for _, lex := range v.byString {
		if !lex.hasVector {
			continue
		}
		buf, err := v.mem.AllocFloat32Slice(n)
		if err != nil {
			return err
		}
		copy(buf, lex.vector)
		v.attachVector(lex, buf)
	}

	v.setVectorsLength(n)
	v.logger.WithDimension(n).Info("vectors resized")
	return nil
}

// WriteBinaryVectors converts a text vector source to the binary format.
// Returns the number of records written.
func WriteBinaryVectors(src io.Reader, dst io.Writer) (int, error) {
	bw := persistence.NewBinaryWriter(dst)

	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	width := -1
	count := 0
	for lineNo := 0; sc.Scan(); lineNo++ {
		line := sc.Text()
		if line == "" {
			continue
		}
		word, fields := splitVectorLine(line)

		if width < 0 {
			if len(fields) == 0 {
				return 0, fmt.Errorf("vectors: line %d has no components", lineNo)
			}
			width = len(fields)
		} else if len(fields) != width {
			return count, &ErrVectorSize{Record: lineNo, Expected: width, Actual: len(fields)}
		}

		vec := make([]float32, width)
		for i, f := range fields {
			val, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return count, fmt.Errorf("vectors: line %d: parse %q: %w", lineNo, f, err)
			}
			vec[i] = float32(val)
		}

		wordLen, err := conv.IntToUint32(len(word))
		if err != nil {
			return count, err
		}
		if err := bw.WriteInt32(int32(wordLen)); err != nil {
			return count, err
		}
		if err := bw.WriteInt32(int32(width)); err != nil {
			return count, err
		}
		if err := bw.WriteBytes([]byte(word)); err != nil {
			return count, err
		}
		if err := bw.WriteFloat32Slice(vec); err != nil {
			return count, err
		}
		count++
	}
	if err := sc.Err(); err != nil {
		return count, fmt.Errorf("vectors: %w", err)
	}
	return count, nil
}

// ConvertVectors converts a text vector file, optionally gzip- or
// lz4-compressed, into a binary vector file at dst. The output is written
// atomically. Returns the number of records written.
func ConvertVectors(src, dst string) (int, error) {
	rc, err := openVectorSource(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	count := 0
	err = persistence.SaveToFile(dst, func(w io.Writer) error {
		var convErr error
		count, convErr = WriteBinaryVectors(rc, w)
		return convErr
	})
	return count, err
}

// openVectorSource opens a text vector file, decompressing by extension.
func openVectorSource(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch filepath.Ext(path) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("vectors: gzip: %w", err)
		}
		return &compressedSource{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case ".lz4":
		return &compressedSource{Reader: lz4.NewReader(f), closers: []io.Closer{f}}, nil
	default:
		return f, nil
	}
}

type compressedSource struct {
	io.Reader
	closers []io.Closer
}

func (c *compressedSource) Close() error {
	var first error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
