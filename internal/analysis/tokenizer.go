// Package analysis provides tokenization and per-document feature extraction
// (keywords, entities, tags, headings, outbound links).
package analysis

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text, strips punctuation except hyphens, and returns
// tokens longer than two characters.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		tok := strings.Trim(b.String(), "-")
		if len(tok) > 2 {
			tokens = append(tokens, tok)
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// TermFrequencies counts occurrences per token and returns the map together
// with the total token count.
func TermFrequencies(tokens []string) (map[string]int, int) {
	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}
	return freq, len(tokens)
}

// NormalizeKeyword lowercases and trims a keyword for deduplication.
func NormalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SignificantTitleWords returns the normalized words of a title longer than
// three characters.
func SignificantTitleWords(title string) []string {
	var out []string
	for _, tok := range Tokenize(title) {
		if len(tok) > 3 {
			out = append(out, tok)
		}
	}
	return out
}

// ContainsPhrase reports whether phrase occurs in text as a whole phrase at
// word boundaries, case-insensitively.
func ContainsPhrase(text, phrase string) bool {
	return PhraseIndex(text, phrase) >= 0
}

// PhraseIndex returns the byte offset of the first whole-word occurrence of
// phrase in text (case-insensitive), or -1.
func PhraseIndex(text, phrase string) int {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return -1
	}
	lower := strings.ToLower(text)
	needle := strings.ToLower(phrase)
	from := 0
	for {
		i := strings.Index(lower[from:], needle)
		if i < 0 {
			return -1
		}
		pos := from + i
		if isWordBoundary(lower, pos, pos+len(needle)) {
			return pos
		}
		from = pos + 1
	}
}

func isWordBoundary(s string, start, end int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
