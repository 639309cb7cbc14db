package command

import (
	"regexp"
	"strings"
)

// categoryRE captures the phrase introduced by the first connective. A record
// name containing one of these words will be cut short at it; callers live
// with that.
var categoryRE = regexp.MustCompile(`(?i)\b(?:to|in|into|at)\s+(.+)$`)

// connectives terminate a subject phrase and introduce a target phrase.
var connectives = map[string]bool{
	"to":   true,
	"in":   true,
	"into": true,
	"at":   true,
}

// afterKeyword returns the text following the first occurrence of the action
// keyword, matched case-insensitively, or the whole text when the keyword is
// absent or empty. Original casing is preserved so extracted names and
// categories read the way the user said them.
func afterKeyword(text, keyword string) string {
	if keyword == "" {
		return text
	}
	if i := strings.Index(strings.ToLower(text), keyword); i >= 0 {
		return strings.TrimSpace(text[i+len(keyword):])
	}
	return text
}

// ExtractTarget pulls the phrase after the first connective ("to", "in",
// "into", "at") that follows the action keyword. The boolean reports whether
// such a phrase was present at all.
func ExtractTarget(text, keyword string) (string, bool) {
	rest := afterKeyword(text, keyword)
	m := categoryRE.FindStringSubmatch(rest)
	if m == nil {
		return "", false
	}
	target := strings.TrimSpace(m[1])
	if target == "" {
		return "", false
	}
	return target, true
}

// ExtractCategory is [ExtractTarget] with the store's default category
// substituted when no target phrase is present. The extractor stays
// store-agnostic, so the literal is duplicated here.
func ExtractCategory(text, keyword string) string {
	if target, ok := ExtractTarget(text, keyword); ok {
		return target
	}
	return "General"
}

// ExtractSubject pulls the record name out of command text: the run of words
// after the action keyword, up to the first connective or end of text.
// An empty run, or a bare filler word, yields [ErrNoSubject].
func ExtractSubject(text, keyword string) (string, error) {
	rest := afterKeyword(text, keyword)
	var subject []string
	for _, w := range strings.Fields(rest) {
		if connectives[strings.ToLower(w)] {
			break
		}
		subject = append(subject, w)
	}
	s := strings.Join(subject, " ")
	switch strings.ToLower(s) {
	case "", "medication", "medicine":
		return "", ErrNoSubject
	}
	return s, nil
}
