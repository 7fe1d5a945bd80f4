package analyzer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"minirag/internal/port"
)

// Tokenizer lowercases text, drops short words and stopwords, and optionally
// reduces each word to its English snowball stem.
type Tokenizer struct {
	stopwords map[string]struct{}
	useStem   bool
}

var _ port.Tokenizer = (*Tokenizer)(nil)

func NewTokenizer(useStemming bool) *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
		useStem:   useStemming,
	}
}

// Tokenize returns the terms of text in order of appearance.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len([]rune(word)) < 2 {
			continue
		}
		if _, stop := t.stopwords[word]; stop {
			continue
		}
		if t.useStem {
			word = english.Stem(word, false)
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// CountTokens approximates the LLM token count of text at 1.3 tokens per word.
func (t *Tokenizer) CountTokens(text string) int {
	n := len(splitWords(text))
	if n == 0 {
		return 0
	}
	return int(float64(n)*1.3 + 0.5)
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
		"i", "me", "my", "mine", "us", "am", "there", "then",
		"about", "into", "any", "these", "those", "them",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
