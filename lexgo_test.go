package lexgo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexgo/arena"
	"github.com/hupe1980/lexgo/attrs"
	"github.com/hupe1980/lexgo/intern"
)

func TestVocab_GetOrCreate(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	apple, err := v.GetOrCreate("apple")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), apple.ID)
	assert.Equal(t, uint32(5), apple.Length)
	assert.Equal(t, DefaultProb, apple.Prob)
	assert.False(t, apple.IsOOV())

	again, err := v.GetOrCreate("apple")
	require.NoError(t, err)
	assert.Same(t, apple, again)
	assert.Equal(t, 1, v.Len())

	banana, err := v.GetOrCreate("banana")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), banana.ID)
	assert.Equal(t, 2, v.Len())
	assert.True(t, v.Contains("banana"))
}

func TestVocab_EmptyString(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	lex, err := v.GetOrCreate("")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), lex.Orth)
	assert.Equal(t, 0, v.Len())

	byOrth, err := v.ByOrth(0)
	require.NoError(t, err)
	assert.Same(t, lex, byOrth)
}

func TestVocab_Attributes(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	lex, err := v.GetOrCreate("Apple")
	require.NoError(t, err)

	lower, err := v.Strings().String(lex.Lower)
	require.NoError(t, err)
	assert.Equal(t, "apple", lower)

	shape, err := v.Strings().String(lex.Shape)
	require.NoError(t, err)
	assert.Equal(t, "Xxxx", shape)

	prefix, err := v.Strings().String(lex.Prefix)
	require.NoError(t, err)
	assert.Equal(t, "A", prefix)

	suffix, err := v.Strings().String(lex.Suffix)
	require.NoError(t, err)
	assert.Equal(t, "ple", suffix)

	assert.True(t, lex.CheckFlag(attrs.IsAlpha))
	assert.True(t, lex.CheckFlag(attrs.IsTitle))
	assert.False(t, lex.CheckFlag(attrs.IsLower))
	assert.False(t, lex.CheckFlag(attrs.IsDigit))
}

func TestVocab_ByOrth(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	apple, err := v.GetOrCreate("apple")
	require.NoError(t, err)

	got, err := v.ByOrth(apple.Orth)
	require.NoError(t, err)
	assert.Same(t, apple, got)

	// Interned through the string store but never materialized: the lookup
	// creates the lexeme on the fly.
	orth := v.Strings().Orth("pear")
	pear, err := v.ByOrth(orth)
	require.NoError(t, err)
	assert.Equal(t, orth, pear.Orth)
	assert.True(t, v.Contains("pear"))

	_, err = v.ByOrth(99999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVocab_ScratchArena(t *testing.T) {
	v, err := New(WithOOVWarmupSize(0))
	require.NoError(t, err)

	scratch := arena.New(0)
	defer scratch.Free()

	lex, err := v.GetOrCreateScratch(scratch, "ephemeral")
	require.NoError(t, err)
	assert.True(t, lex.IsOOV())
	assert.Equal(t, uint64(0), lex.ID)
	assert.False(t, v.Contains("ephemeral"))
	assert.Equal(t, 0, v.Len())

	// A later permanent insert is a fresh record, not the scratch one.
	perm, err := v.GetOrCreate("ephemeral")
	require.NoError(t, err)
	assert.NotSame(t, lex, perm)
	assert.False(t, perm.IsOOV())

	// Short strings always go permanent, scratch arena or not.
	short, err := v.GetOrCreateScratch(scratch, "ab")
	require.NoError(t, err)
	assert.False(t, short.IsOOV())
	assert.True(t, v.Contains("ab"))
}

func TestVocab_ScratchWarmup(t *testing.T) {
	v, err := New(WithOOVWarmupSize(2))
	require.NoError(t, err)

	scratch := arena.New(0)
	defer scratch.Free()

	// Below the warm-up size everything is stored permanently.
	first, err := v.GetOrCreateScratch(scratch, "first")
	require.NoError(t, err)
	assert.False(t, first.IsOOV())

	second, err := v.GetOrCreateScratch(scratch, "second")
	require.NoError(t, err)
	assert.False(t, second.IsOOV())

	third, err := v.GetOrCreateScratch(scratch, "third")
	require.NoError(t, err)
	assert.True(t, third.IsOOV())
}

// corruptStore wraps a Table and lies about one orth, simulating an
// out-of-sync external string store.
type corruptStore struct {
	*intern.Table
	badOrth uint64
}

func (c *corruptStore) String(orth uint64) (string, error) {
	if orth == c.badOrth {
		return "bogus", nil
	}
	return c.Table.String(orth)
}

func TestVocab_ConsistencyFault(t *testing.T) {
	store := &corruptStore{Table: intern.NewTable()}
	v, err := New(WithStringStore(store))
	require.NoError(t, err)

	lex, err := v.GetOrCreate("apple")
	require.NoError(t, err)

	store.badOrth = lex.Orth

	_, err = v.GetOrCreate("apple")
	var mismatch *ErrStringMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, lex.Orth, mismatch.Orth)
	assert.Equal(t, "bogus", mismatch.Stored)
	assert.Equal(t, "apple", mismatch.Got)
}

func TestVocab_RegisterFlag(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	the, err := v.GetOrCreate("the")
	require.NoError(t, err)

	isStop := func(s string) bool { return s == "the" || s == "of" }

	bit, err := v.RegisterFlag(isStop, attrs.AutoFlag)
	require.NoError(t, err)
	assert.Equal(t, attrs.LikeEmail+1, bit)

	// Applied retroactively to the existing record.
	assert.True(t, the.CheckFlag(bit))

	// And to new records going forward.
	of, err := v.GetOrCreate("of")
	require.NoError(t, err)
	assert.True(t, of.CheckFlag(bit))

	dog, err := v.GetOrCreate("dog")
	require.NoError(t, err)
	assert.False(t, dog.CheckFlag(bit))
}

func TestVocab_RegisterFlagInvalidBit(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	_, err = v.RegisterFlag(func(string) bool { return false }, 64)
	var invalid *ErrInvalidFlag
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, attrs.FlagID(64), invalid.Bit)
}

func TestVocab_RegisterFlagExhaustion(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	pred := func(string) bool { return false }
	for {
		_, err = v.RegisterFlag(pred, attrs.AutoFlag)
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrFlagsExhausted)
}

func TestVocab_SetGetter(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	v.SetGetter(attrs.Norm, func(s string) (any, bool) {
		if s == "n't" {
			return "not", true
		}
		return nil, false
	})

	lex, err := v.GetOrCreate("n't")
	require.NoError(t, err)

	norm, err := v.Strings().String(lex.Norm)
	require.NoError(t, err)
	assert.Equal(t, "not", norm)
}

func TestVocab_Iterate(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	for _, s := range []string{"a", "b", "c"} {
		_, err := v.GetOrCreate(s)
		require.NoError(t, err)
	}

	seen := 0
	v.Iterate(func(*Lexeme) bool {
		seen++
		return true
	})
	assert.Equal(t, 3, seen)

	seen = 0
	v.Iterate(func(*Lexeme) bool {
		seen++
		return false
	})
	assert.Equal(t, 1, seen)
}

func TestVocab_MarshalBinaryUnsupported(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	_, err = v.MarshalBinary()
	assert.True(t, errors.Is(err, ErrUnsupported))

	err = v.UnmarshalBinary(nil)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestVocab_Metrics(t *testing.T) {
	mc := &BasicMetricsCollector{}
	v, err := New(WithMetricsCollector(mc))
	require.NoError(t, err)

	_, err = v.GetOrCreate("apple")
	require.NoError(t, err)
	_, err = v.GetOrCreate("apple")
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, uint64(2), stats.Lookups)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Creates)
}
