// Package lexgo is an embedded lexeme store for natural-language pipelines.
//
// A Vocab is a deduplicated table of per-string records (lexemes), indexed
// both by surface string and by interned string id (orth). Records carry
// precomputed linguistic attributes, a 64-bit boolean flag set and an
// optional dense word vector, and are allocated from a chunked arena so the
// whole table frees as a unit.
//
// # Usage
//
//	v, err := lexgo.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	lex, err := v.GetOrCreate("Hello")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(lex.CheckFlag(attrs.IsTitle))
//
// Lookups of strings that should not pollute the shared table can supply a
// caller-owned scratch arena via GetOrCreateScratch; such records are marked
// out-of-vocabulary and die with the scratch arena.
//
// Word vectors load from the line-oriented text format or a compact binary
// format (LoadVectors, LoadVectorsBinary) and resize in both directions
// (ResizeVectors). Tables persist to a model directory of strings.json,
// lexemes.bin and manifest.json (SaveToDirectory, LoadFromDirectory), which
// the persistence package can push to and pull from blob storage.
package lexgo
