// Package command turns raw voice-transcribed text into a classified,
// slot-extracted command.
//
// The package has three pieces:
//
//   - [New] builds an immutable [Command] from raw text: the desugared form
//     (spoken-digit synonyms substituted, casing kept) that extraction reads,
//     and its lower-cased normalized form that classification reads.
//   - [Classify] assigns an [Intent] using an explicit ordered rule table.
//   - [ExtractCategory] and [ExtractSubject] pull the slot values out of the
//     text with positional pattern rules.
//
// Everything here is pure string processing with no I/O or store access, and
// is safe for concurrent use.
package command

import (
	"errors"
	"strings"
)

// ErrNoSubject is returned by [ExtractSubject] when no usable subject name
// can be found in the command text. Callers reply with a rephrase prompt and
// do not mutate anything.
var ErrNoSubject = errors.New("no subject in command")

// synonyms maps whole-word transcription artifacts to the word the speaker
// meant. Speech-to-text renders "add aspirin to shelf two" as
// "add aspirin 2 shelf" often enough that this matters.
var synonyms = map[string]string{
	"2": "to",
	"4": "for",
}

// Command is one received voice command. Immutable once built.
type Command struct {
	// Raw is the text exactly as received from the transcriber.
	Raw string

	// Desugared is Raw with whole-word synonyms substituted but the original
	// casing kept. The extractor reads this form so names and categories come
	// out the way the user said them.
	Desugared string

	// Normalized is the lower-cased form of Desugared, used by the
	// classifier.
	Normalized string
}

// New builds a [Command] from raw transcribed text.
func New(raw string) Command {
	d := Desugar(raw)
	return Command{
		Raw:        raw,
		Desugared:  d,
		Normalized: strings.ToLower(d),
	}
}

// identifierMarkers are the words that introduce a numeric identifier. A
// digit right after one of these is a real number, not a misheard word.
var identifierMarkers = map[string]bool{
	"id":     true,
	"number": true,
	"item":   true,
}

// Desugar substitutes whole-word synonyms and collapses whitespace, keeping
// the original casing. Digits following an identifier marker ("delete id 2")
// are left alone.
func Desugar(text string) string {
	words := strings.Fields(strings.TrimSpace(text))
	for i, w := range words {
		if i > 0 && identifierMarkers[strings.ToLower(words[i-1])] {
			continue
		}
		if sub, ok := synonyms[strings.ToLower(w)]; ok {
			words[i] = sub
		}
	}
	return strings.Join(words, " ")
}

// Normalize lower-cases text and substitutes whole-word synonyms.
func Normalize(text string) string {
	return strings.ToLower(Desugar(text))
}
