package attrs

import (
	"strings"
	"unicode"
)

// Default predicates for the built-in flags. They are pure functions of the
// surface string and are installed by the vocabulary at construction time.

func isAlpha(s string) bool { return allRunes(s, unicode.IsLetter) }

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return s != ""
}

func isDigit(s string) bool { return allRunes(s, unicode.IsDigit) }

func isLowerStr(s string) bool {
	return strings.ToLower(s) == s && strings.ToUpper(s) != s
}

func isPunct(s string) bool {
	return allRunes(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func isSpace(s string) bool { return allRunes(s, unicode.IsSpace) }

func isTitleStr(s string) bool {
	first := true
	for _, r := range s {
		if first {
			if !unicode.IsUpper(r) && !unicode.IsTitle(r) {
				return false
			}
			first = false
			continue
		}
		if unicode.IsUpper(r) {
			return false
		}
	}
	return !first
}

func isUpperStr(s string) bool {
	return strings.ToUpper(s) == s && strings.ToLower(s) != s
}

func isBracket(s string) bool {
	switch s {
	case "(", ")", "[", "]", "{", "}", "<", ">":
		return true
	}
	return false
}

func isQuote(s string) bool {
	switch s {
	case `"`, "'", "`", "``", "''", "‘", "’", "“", "”", "«", "»":
		return true
	}
	return false
}

func likeNum(s string) bool {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, ".", "")
	return s != "" && allRunes(s, unicode.IsDigit)
}

func likeURL(s string) bool {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return true
	}
	return strings.HasPrefix(s, "www.") && strings.Count(s, ".") >= 2
}

func likeEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return strings.IndexByte(s[at+1:], '.') > 0
}

func allRunes(s string, pred func(rune) bool) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !pred(r) {
			return false
		}
	}
	return true
}

// FlagEntry pairs a flag bit with its predicate.
type FlagEntry struct {
	Bit FlagID
	Fn  func(string) bool
}

// GetterEntry pairs an attribute id with its getter.
type GetterEntry struct {
	Attr ID
	Fn   Getter
}

// BuiltinFlags returns the default flag predicates in bit order.
func BuiltinFlags() []FlagEntry {
	return []FlagEntry{
		{IsAlpha, isAlpha},
		{IsASCII, isASCII},
		{IsDigit, isDigit},
		{IsLower, isLowerStr},
		{IsPunct, isPunct},
		{IsSpace, isSpace},
		{IsTitle, isTitleStr},
		{IsUpper, isUpperStr},
		{IsBracket, isBracket},
		{IsQuote, isQuote},
		{LikeNum, likeNum},
		{LikeURL, likeURL},
		{LikeEmail, likeEmail},
	}
}

// Word shape in the usual NLP sense: letters map to x/X, digits to d, runs
// longer than 4 are truncated ("Pneumonia" -> "Xxxxx" -> "Xxxx").
func wordShape(s string) string {
	var b strings.Builder
	var last rune
	run := 0
	for _, r := range s {
		var c rune
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			c = 'X'
		case unicode.IsLetter(r):
			c = 'x'
		case unicode.IsDigit(r):
			c = 'd'
		default:
			c = r
		}
		if c == last {
			run++
			if run >= 4 {
				continue
			}
		} else {
			run = 1
			last = c
		}
		b.WriteRune(c)
	}
	return b.String()
}

func prefix(s string) string {
	for i := range s {
		if i > 0 {
			return s[:i]
		}
	}
	return s
}

func suffix(s string) string {
	runes := []rune(s)
	if len(runes) <= 3 {
		return s
	}
	return string(runes[len(runes)-3:])
}

// BuiltinGetters returns the default attribute getters in pipeline order.
func BuiltinGetters() []GetterEntry {
	str := func(fn func(string) string) Getter {
		return func(s string) (any, bool) { return fn(s), true }
	}
	return []GetterEntry{
		{Lower, str(strings.ToLower)},
		{Norm, str(strings.ToLower)},
		{Shape, str(wordShape)},
		{Prefix, str(prefix)},
		{Suffix, str(suffix)},
	}
}
