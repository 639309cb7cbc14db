package command

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent is the classified purpose of a command. Derived, never stored.
type Intent int

const (
	// IntentAIFallback delegates the whole command to the AI service.
	IntentAIFallback Intent = iota

	// IntentAdd inserts a new record.
	IntentAdd

	// IntentDelete removes one fuzzy-matched record.
	IntentDelete

	// IntentDeleteAll clears the whole record set.
	IntentDeleteAll

	// IntentUpdateOrMove changes a fuzzy-matched record's name and/or category.
	IntentUpdateOrMove

	// IntentIdentifierTargeted addresses a record by explicit list position
	// ("delete ID 3") instead of by name.
	IntentIdentifierTargeted
)

// String returns the intent's human-readable name.
func (i Intent) String() string {
	switch i {
	case IntentAdd:
		return "add"
	case IntentDelete:
		return "delete"
	case IntentDeleteAll:
		return "delete-all"
	case IntentUpdateOrMove:
		return "update-or-move"
	case IntentIdentifierTargeted:
		return "identifier-targeted"
	case IntentAIFallback:
		return "ai-fallback"
	default:
		return "unknown"
	}
}

// SubAction refines an intent where one keyword family covers two handler
// branches.
type SubAction int

const (
	// SubActionNone applies to intents with a single handler branch.
	SubActionNone SubAction = iota

	// SubActionDelete marks an identifier-targeted delete.
	SubActionDelete

	// SubActionUpdate marks the name-and/or-category rewrite form.
	SubActionUpdate

	// SubActionMove marks the category-only relocate form of update-or-move.
	SubActionMove
)

// Classification is the full classifier output for one command.
type Classification struct {
	Intent    Intent
	SubAction SubAction

	// Keyword is the action keyword that matched; the extractor anchors its
	// positional rules on the first occurrence of this word. Empty for
	// intents that do not extract slots.
	Keyword string

	// Ordinal is the 1-based list position parsed from an identifier phrase.
	// Only meaningful when Intent is [IntentIdentifierTargeted].
	Ordinal int
}

// identifierRE matches explicit identifier phrases: an "id", "number", or
// "item" marker followed by digits.
var identifierRE = regexp.MustCompile(`\b(?:id|number|item)\s*(\d+)`)

// rule is a single row of the classifier's ordered rule table.
type rule struct {
	name  string
	match func(text string) (Classification, bool)
}

// rules is the classifier's ordered precedence table. The order is a design
// decision, not incidental: identifier-qualified commands are unambiguous and
// must short-circuit the broader keyword matches below them, and "delete all"
// must win over plain "delete". First matching rule applies.
var rules = []rule{
	{
		// 1. Explicit identifier phrase ("ID"/"number"/"item" + digits).
		// The sub-action (delete vs update) is resolved by a secondary
		// keyword check on the same text.
		name: "identifier-targeted",
		match: func(text string) (Classification, bool) {
			m := identifierRE.FindStringSubmatch(text)
			if m == nil {
				return Classification{}, false
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return Classification{}, false
			}
			sub := SubActionUpdate
			if strings.Contains(text, "delete") || strings.Contains(text, "remove") {
				sub = SubActionDelete
			}
			return Classification{Intent: IntentIdentifierTargeted, SubAction: sub, Ordinal: n}, true
		},
	},
	{
		// 2. "delete all" clears the whole list.
		name: "delete-all",
		match: func(text string) (Classification, bool) {
			if !strings.Contains(text, "delete all") {
				return Classification{}, false
			}
			return Classification{Intent: IntentDeleteAll}, true
		},
	},
	{
		// 3. "add" inserts a new record.
		name: "add",
		match: func(text string) (Classification, bool) {
			if !strings.Contains(text, "add") {
				return Classification{}, false
			}
			return Classification{Intent: IntentAdd, Keyword: "add"}, true
		},
	},
	{
		// 4. "delete" removes a single record by name.
		name: "delete",
		match: func(text string) (Classification, bool) {
			if !strings.Contains(text, "delete") {
				return Classification{}, false
			}
			return Classification{Intent: IntentDelete, Keyword: "delete"}, true
		},
	},
	{
		// 5. "update"/"change" rewrites name and/or category.
		name: "update",
		match: func(text string) (Classification, bool) {
			for _, kw := range []string{"update", "change"} {
				if strings.Contains(text, kw) {
					return Classification{Intent: IntentUpdateOrMove, SubAction: SubActionUpdate, Keyword: kw}, true
				}
			}
			return Classification{}, false
		},
	},
	{
		// 6. "move" relocates a record to a new category, keeping its name.
		name: "move",
		match: func(text string) (Classification, bool) {
			if !strings.Contains(text, "move") {
				return Classification{}, false
			}
			return Classification{Intent: IntentUpdateOrMove, SubAction: SubActionMove, Keyword: "move"}, true
		},
	},
}

// Classify assigns an intent to normalized command text by walking the
// ordered rule table. Text matching no rule falls through to
// [IntentAIFallback].
func Classify(normalized string) Classification {
	for _, r := range rules {
		if c, ok := r.match(normalized); ok {
			return c
		}
	}
	return Classification{Intent: IntentAIFallback}
}
