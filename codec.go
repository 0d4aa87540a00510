package lexgo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/lexgo/intern"
	"github.com/hupe1980/lexgo/internal/conv"
	"github.com/hupe1980/lexgo/persistence"
)

func lexemeRecord(lex *Lexeme) persistence.LexemeRecord {
	return persistence.LexemeRecord{
		Orth:      lex.Orth,
		ID:        lex.ID,
		Length:    lex.Length,
		Flags:     lex.Flags,
		Lower:     lex.Lower,
		Norm:      lex.Norm,
		Shape:     lex.Shape,
		Prefix:    lex.Prefix,
		Suffix:    lex.Suffix,
		Cluster:   lex.Cluster,
		Prob:      lex.Prob,
		Sentiment: lex.Sentiment,
	}
}

func applyRecord(lex *Lexeme, rec *persistence.LexemeRecord) {
	lex.Orth = rec.Orth
	lex.ID = rec.ID
	lex.Length = rec.Length
	lex.Flags = rec.Flags
	lex.Lower = rec.Lower
	lex.Norm = rec.Norm
	lex.Shape = rec.Shape
	lex.Prefix = rec.Prefix
	lex.Suffix = rec.Suffix
	lex.Cluster = rec.Cluster
	lex.Prob = rec.Prob
	lex.Sentiment = rec.Sentiment
}

// ExportLexemes writes every permanent lexeme as a fixed-width binary
// record, in by-string index order. Vector data is not part of this format.
func (v *Vocab) ExportLexemes(w io.Writer) error {
	bw := persistence.NewBinaryWriter(w)

	count, err := conv.IntToUint64(len(v.byString))
	if err != nil {
		return err
	}
	vecLen, err := conv.IntToUint32(v.vectorsLength)
	if err != nil {
		return err
	}
	if err := bw.WriteHeader(&persistence.FileHeader{Count: count, VectorsLength: vecLen}); err != nil {
		return fmt.Errorf("export lexemes: %w", err)
	}

	n := 0
	for _, lex := range v.byString {
		if lex == nil {
			continue
		}
		rec := lexemeRecord(lex)
		if err := bw.WriteLexeme(&rec); err != nil {
			return fmt.Errorf("export lexemes: %w", err)
		}
		n++
	}
	if err := bw.Finish(); err != nil {
		return fmt.Errorf("export lexemes: %w", err)
	}

	v.metrics.RecordExport(n)
	return nil
}

// ImportLexemes decodes records written by ExportLexemes into the table.
// Each record's string is re-derived from its orth via the string store and
// must round-trip exactly; a mismatch is a consistency fault. Decoded
// records start on the zero vector sentinel; vectors must be repopulated
// through the vector subsystem. A failure partway leaves already-imported
// records in place.
func (v *Vocab) ImportLexemes(r io.Reader) error {
	br := persistence.NewBinaryReader(r)
	header, err := br.ReadHeader()
	if err != nil {
		return fmt.Errorf("import lexemes: %w", err)
	}

	for i := uint64(0); i < header.Count; i++ {
		rec, err := br.ReadLexeme()
		if err != nil {
			return fmt.Errorf("import lexemes: record %d: %w", i, err)
		}

		s, err := v.strings.String(rec.Orth)
		if err != nil {
			return &ErrStringMismatch{Orth: rec.Orth, cause: err}
		}
		if orth, ok := v.strings.Lookup(s); !ok || orth != rec.Orth {
			return &ErrStringMismatch{Orth: rec.Orth, Got: s}
		}

		lex, ok := v.byString[s]
		if !ok {
			lex, err = allocLexeme(v.mem)
			if err != nil {
				return fmt.Errorf("import lexemes: %w", err)
			}
			v.byString[s] = lex
			v.byOrth[rec.Orth] = lex
		}
		applyRecord(lex, &rec)
		lex.vector = v.zeroVector
		lex.l2Norm = 0
		lex.hasVector = false

		if rec.ID >= v.rank {
			v.rank = rec.ID + 1
		}
	}

	if err := br.VerifyChecksum(); err != nil {
		return fmt.Errorf("import lexemes: %w", err)
	}

	if header.VectorsLength > 0 {
		n, err := conv.Uint64ToInt(uint64(header.VectorsLength))
		if err != nil {
			return err
		}
		v.setVectorsLength(n)
	}

	count, err := conv.Uint64ToInt(header.Count)
	if err != nil {
		return err
	}
	v.metrics.RecordImport(count)
	return nil
}

// SaveToDirectory writes the model directory layout: strings.json (the
// interned strings in insertion order), lexemes.bin (the bulk export) and
// manifest.json (snapshot id plus per-file checksums). Files are written
// atomically; the manifest goes last.
func (v *Vocab) SaveToDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	err := persistence.SaveToFile(filepath.Join(dir, persistence.StringsFile), func(w io.Writer) error {
		return intern.WriteJSON(w, v.strings)
	})
	if err != nil {
		v.logger.LogSnapshot(dir, 0, err)
		return fmt.Errorf("save strings: %w", err)
	}

	err = persistence.SaveToFile(filepath.Join(dir, persistence.LexemesFile), func(w io.Writer) error {
		return v.ExportLexemes(w)
	})
	if err != nil {
		v.logger.LogSnapshot(dir, 0, err)
		return fmt.Errorf("save lexemes: %w", err)
	}

	count, err := conv.IntToUint64(v.Len())
	if err != nil {
		return err
	}
	m := persistence.NewManifest(count, v.vectorsLength)
	for _, name := range []string{persistence.StringsFile, persistence.LexemesFile} {
		if err := m.AddFile(dir, name); err != nil {
			return fmt.Errorf("save manifest: %w", err)
		}
	}
	if err := persistence.WriteManifest(dir, m); err != nil {
		v.logger.LogSnapshot(dir, 0, err)
		return fmt.Errorf("save manifest: %w", err)
	}

	v.logger.LogSnapshot(dir, v.Len(), nil)
	return nil
}

// LoadFromDirectory builds a fresh Vocab from a model directory written by
// SaveToDirectory. The string store in the directory replaces any
// WithStringStore option.
func LoadFromDirectory(dir string, optFns ...Option) (*Vocab, error) {
	m, err := persistence.ReadManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	for name := range m.Files {
		if err := m.VerifyFile(dir, name); err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
	}

	var table *intern.Table
	err = persistence.LoadFromFile(filepath.Join(dir, persistence.StringsFile), func(r io.Reader) error {
		var loadErr error
		table, loadErr = intern.ReadJSON(r)
		return loadErr
	})
	if err != nil {
		return nil, fmt.Errorf("load strings: %w", err)
	}

	v, err := New(append(optFns, WithStringStore(table))...)
	if err != nil {
		return nil, err
	}

	err = persistence.LoadFromFile(filepath.Join(dir, persistence.LexemesFile), func(r io.Reader) error {
		return v.ImportLexemes(r)
	})
	if err != nil {
		v.logger.LogSnapshot(dir, 0, err)
		return nil, fmt.Errorf("load lexemes: %w", err)
	}

	v.logger.LogSnapshot(dir, v.Len(), nil)
	return v, nil
}
