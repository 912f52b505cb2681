// Package tokenizer provides text normalisation for the index and for
// queries. It lower-cases input, splits on every character outside a-z, and
// optionally maps each term to its Snowball (Porter2) English stem.
package tokenizer

import (
	"strings"

	"github.com/kljensen/snowball/english"
)

// Normalizer names one normalisation configuration. Two values exist: Plain
// and Stemmed. An index and every query compared against it must use the
// same Normalizer.
type Normalizer struct {
	Stem bool
}

var (
	Plain   = Normalizer{Stem: false}
	Stemmed = Normalizer{Stem: true}
)

// Parse maps a configuration name ("plain", "stemmed") to a Normalizer.
func Parse(name string) (Normalizer, bool) {
	switch name {
	case "plain":
		return Plain, true
	case "stemmed":
		return Stemmed, true
	}
	return Normalizer{}, false
}

func (n Normalizer) String() string {
	if n.Stem {
		return "stemmed"
	}
	return "plain"
}

// Token represents a single normalised term and its offset in the
// normalised token stream.
type Token struct {
	Term     string
	Position int
}

// Normalize returns the normalised terms of text in order.
func (n Normalizer) Normalize(text string) []string {
	words := split(text)
	if n.Stem {
		for i, w := range words {
			words[i] = stem(w)
		}
	}
	return words
}

// Tokenize is Normalize with positions attached. Stemming is one-to-one, so
// positions are identical for both normalizers.
func (n Normalizer) Tokenize(text string) []Token {
	terms := n.Normalize(text)
	tokens := make([]Token, len(terms))
	for i, term := range terms {
		tokens[i] = Token{Term: term, Position: i}
	}
	return tokens
}

// split lower-cases text and returns the maximal runs of a-z. Digits,
// symbols and non-ASCII letters are separators.
func split(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return r < 'a' || r > 'z'
	})
}

func stem(word string) string {
	s := english.Stem(word, true)
	if s == "" {
		return word
	}
	return s
}
