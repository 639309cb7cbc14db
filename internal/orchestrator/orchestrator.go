// Package orchestrator is the single entry point for voice commands. It
// sequences normalization, intent classification, slot extraction, fuzzy
// matching, store mutation, and confirmation messaging for one command at a
// time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ProSamhacker/hospitalmanagement/internal/command"
	"github.com/ProSamhacker/hospitalmanagement/internal/fuzzy"
	"github.com/ProSamhacker/hospitalmanagement/internal/observe"
	"github.com/ProSamhacker/hospitalmanagement/internal/store"
)

// AI is the slice of the extraction pipeline the orchestrator delegates to:
// free-text explanation for unclassifiable commands and best-effort spelling
// correction for new record names.
type AI interface {
	PlainExplanation(ctx context.Context, query string) (string, error)
	CorrectSpelling(ctx context.Context, name string) (string, error)
}

// Result is the outcome of one handled command: exactly one confirmation
// message and a fresh listing of the store taken after any mutation, so
// observers always render consistent state.
type Result struct {
	Message string
	Records []store.Medication
}

// Matcher resolves a spoken name to a stored record. [fuzzy.Matcher]
// satisfies it.
type Matcher interface {
	Match(query string, candidates []store.Medication) (store.Medication, error)
}

var _ Matcher = (*fuzzy.Matcher)(nil)

// Orchestrator handles commands one at a time. A mutex serializes Handle
// calls; the pipeline is stateless across commands.
type Orchestrator struct {
	mu      sync.Mutex
	store   store.Store
	matcher Matcher
	ai      AI
	metrics *observe.Metrics
	log     *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an Orchestrator. A nil logger falls back to [slog.Default].
func New(s store.Store, matcher Matcher, ai AI, log *slog.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	o := &Orchestrator{store: s, matcher: matcher, ai: ai, log: log}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// Handle processes one command end to end. Recoverable failures (no subject,
// no fuzzy match, identifier out of range, AI unavailable) come back as the
// confirmation message with no mutation; the error return is reserved for
// store failures.
func (o *Orchestrator) Handle(ctx context.Context, text string) (*Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.metrics.ActiveCommands.Add(ctx, 1)
	defer o.metrics.ActiveCommands.Add(ctx, -1)
	start := time.Now()

	cmd := command.New(text)
	c := command.Classify(cmd.Normalized)
	o.log.Debug("command classified",
		"intent", c.Intent.String(), "normalized", cmd.Normalized)

	var (
		msg string
		err error
	)
	switch c.Intent {
	case command.IntentIdentifierTargeted:
		msg, err = o.handleIdentifier(ctx, cmd, c)
	case command.IntentAdd:
		msg, err = o.handleAdd(ctx, cmd, c)
	case command.IntentDelete:
		msg, err = o.handleDelete(ctx, cmd, c)
	case command.IntentDeleteAll:
		msg, err = o.handleDeleteAll(ctx)
	case command.IntentUpdateOrMove:
		msg, err = o.handleUpdateOrMove(ctx, cmd, c)
	default:
		msg = o.handleFallback(ctx, cmd)
	}
	if err != nil {
		o.metrics.RecordCommand(ctx, c.Intent.String(), "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	records, err := o.store.List(ctx)
	if err != nil {
		o.metrics.RecordCommand(ctx, c.Intent.String(), "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("orchestrator: list records: %w", err)
	}
	o.metrics.RecordCommand(ctx, c.Intent.String(), "ok", time.Since(start).Seconds())
	return &Result{Message: msg, Records: records}, nil
}

// handleIdentifier resolves the target directly by its 1-based list position,
// never through the matcher.
func (o *Orchestrator) handleIdentifier(ctx context.Context, cmd command.Command, c command.Classification) (string, error) {
	records, err := o.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list records: %w", err)
	}
	if c.Ordinal < 1 || c.Ordinal > len(records) {
		return fmt.Sprintf("Item %d is not in the list.", c.Ordinal), nil
	}
	target := records[c.Ordinal-1]

	if c.SubAction == command.SubActionDelete {
		if err := o.store.Delete(ctx, target.ID); err != nil {
			return "", fmt.Errorf("delete record %d: %w", target.ID, err)
		}
		return fmt.Sprintf("Deleted %s.", target.Name), nil
	}

	category, ok := command.ExtractTarget(cmd.Desugared, "")
	if !ok {
		return "I could not tell what to change it to. Please rephrase.", nil
	}
	target.Category = category
	if err := o.store.Update(ctx, target); err != nil {
		return "", fmt.Errorf("update record %d: %w", target.ID, err)
	}
	return fmt.Sprintf("Moved %s to %s.", target.Name, category), nil
}

func (o *Orchestrator) handleAdd(ctx context.Context, cmd command.Command, c command.Classification) (string, error) {
	subject, err := command.ExtractSubject(cmd.Desugared, c.Keyword)
	if err != nil {
		return "I could not tell which medication to add. Please rephrase.", nil
	}
	category := command.ExtractCategory(cmd.Desugared, c.Keyword)

	name := o.correctSpelling(ctx, subject)

	if _, err := o.store.Insert(ctx, store.Medication{Name: name, Category: category}); err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return fmt.Sprintf("Added %s to %s.", name, category), nil
}

func (o *Orchestrator) handleDelete(ctx context.Context, cmd command.Command, c command.Classification) (string, error) {
	subject, err := command.ExtractSubject(cmd.Desugared, c.Keyword)
	if err != nil {
		return "I could not tell which medication to delete. Please rephrase.", nil
	}

	// Re-fetch immediately before matching so the decision is never based on
	// a stale candidate set.
	records, err := o.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list records: %w", err)
	}
	match, err := o.matcher.Match(subject, records)
	if errors.Is(err, fuzzy.ErrNoMatch) {
		return fmt.Sprintf("No medication matching %q was found.", subject), nil
	}
	if err != nil {
		return "", fmt.Errorf("match %q: %w", subject, err)
	}

	if err := o.store.Delete(ctx, match.ID); err != nil {
		return "", fmt.Errorf("delete record %d: %w", match.ID, err)
	}
	return fmt.Sprintf("Deleted %s.", match.Name), nil
}

func (o *Orchestrator) handleDeleteAll(ctx context.Context) (string, error) {
	n, err := o.store.DeleteAll(ctx)
	if err != nil {
		return "", fmt.Errorf("delete all records: %w", err)
	}
	return fmt.Sprintf("Deleted all %d medications.", n), nil
}

// handleUpdateOrMove covers both textual sub-forms: "update X to Y" may
// change name and/or category inferred from Y, "move X to Y" changes the
// category only. Unspecified fields are preserved.
func (o *Orchestrator) handleUpdateOrMove(ctx context.Context, cmd command.Command, c command.Classification) (string, error) {
	subject, err := command.ExtractSubject(cmd.Desugared, c.Keyword)
	if err != nil {
		return "I could not tell which medication you meant. Please rephrase.", nil
	}
	target, ok := command.ExtractTarget(cmd.Desugared, c.Keyword)
	if !ok {
		return "I could not tell what to change it to. Please rephrase.", nil
	}

	records, err := o.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list records: %w", err)
	}
	match, err := o.matcher.Match(subject, records)
	if errors.Is(err, fuzzy.ErrNoMatch) {
		return fmt.Sprintf("No medication matching %q was found.", subject), nil
	}
	if err != nil {
		return "", fmt.Errorf("match %q: %w", subject, err)
	}

	if c.SubAction == command.SubActionMove || isKnownCategory(records, target) {
		match.Category = target
		if err := o.store.Update(ctx, match); err != nil {
			return "", fmt.Errorf("update record %d: %w", match.ID, err)
		}
		return fmt.Sprintf("Moved %s to %s.", match.Name, match.Category), nil
	}

	oldName := match.Name
	match.Name = target
	if err := o.store.Update(ctx, match); err != nil {
		return "", fmt.Errorf("update record %d: %w", match.ID, err)
	}
	return fmt.Sprintf("Updated %s to %s.", oldName, match.Name), nil
}

// handleFallback delegates the whole command to the AI service and returns
// its reply verbatim. AI failure degrades to an apology, never an error.
func (o *Orchestrator) handleFallback(ctx context.Context, cmd command.Command) string {
	text, err := o.ai.PlainExplanation(ctx, cmd.Raw)
	if err != nil {
		o.log.Warn("AI fallback failed", "error", err)
		return "Sorry, I couldn't explain that right now."
	}
	return text
}

// correctSpelling asks the AI service for the canonical spelling. Best
// effort: any failure or empty reply keeps the name as heard.
func (o *Orchestrator) correctSpelling(ctx context.Context, name string) string {
	corrected, err := o.ai.CorrectSpelling(ctx, name)
	if err != nil {
		o.log.Debug("spelling correction unavailable", "name", name, "error", err)
		return name
	}
	if corrected = strings.TrimSpace(corrected); corrected == "" {
		return name
	}
	return corrected
}

// isKnownCategory reports whether the phrase names a category already present
// in the listing. Used to decide whether "update X to Y" means a rename or a
// move.
func isKnownCategory(records []store.Medication, phrase string) bool {
	for _, r := range records {
		if strings.EqualFold(r.Category, phrase) {
			return true
		}
	}
	return false
}
