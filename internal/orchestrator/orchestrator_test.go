package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ProSamhacker/hospitalmanagement/internal/fuzzy"
	"github.com/ProSamhacker/hospitalmanagement/internal/observe"
	"github.com/ProSamhacker/hospitalmanagement/internal/store"
)

// fakeAI answers spelling corrections from a fixed table and explanations
// with a canned reply.
type fakeAI struct {
	corrections map[string]string
	explanation string
	err         error
}

func (f *fakeAI) PlainExplanation(ctx context.Context, query string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.explanation, nil
}

func (f *fakeAI) CorrectSpelling(ctx context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if c, ok := f.corrections[name]; ok {
		return c, nil
	}
	return name, nil
}

func newTestOrchestrator(t *testing.T, meds ...store.Medication) (*Orchestrator, *store.MemStore, *fakeAI) {
	t.Helper()
	ms := store.NewMemStore()
	for _, m := range meds {
		if _, err := ms.Insert(context.Background(), m); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	ai := &fakeAI{explanation: "canned explanation"}
	return New(ms, fuzzy.New(), ai, slog.Default()), ms, ai
}

func TestHandle_AddWithSpellingCorrection(t *testing.T) {
	orch, _, ai := newTestOrchestrator(t)
	ai.corrections = map[string]string{"parasetamol": "Paracetamol"}

	res, err := orch.Handle(context.Background(), "Add parasetamol 2 Ward B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Added Paracetamol to Ward B." {
		t.Errorf("message = %q", res.Message)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(res.Records))
	}
	if r := res.Records[0]; r.Name != "Paracetamol" || r.Category != "Ward B" {
		t.Errorf("record = %+v", r)
	}
}

func TestHandle_AddWithoutCategoryDefaults(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)

	res, err := orch.Handle(context.Background(), "add aspirin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Added aspirin to General." {
		t.Errorf("message = %q", res.Message)
	}
	if res.Records[0].Category != store.DefaultCategory {
		t.Errorf("category = %q", res.Records[0].Category)
	}
}

func TestHandle_AddKeepsNameWhenCorrectionFails(t *testing.T) {
	orch, _, ai := newTestOrchestrator(t)
	ai.err = errors.New("backend down")

	res, err := orch.Handle(context.Background(), "add aspirin to Shelf A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Added aspirin to Shelf A." {
		t.Errorf("message = %q", res.Message)
	}
}

func TestHandle_AddWithoutSubjectAsksToRephrase(t *testing.T) {
	orch, ms, _ := newTestOrchestrator(t)

	res, err := orch.Handle(context.Background(), "add medication")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "I could not tell which medication to add. Please rephrase." {
		t.Errorf("message = %q", res.Message)
	}
	if records, _ := ms.List(context.Background()); len(records) != 0 {
		t.Errorf("store mutated on rejected command: %v", records)
	}
}

func TestHandle_IdentifierOutOfRange(t *testing.T) {
	orch, ms, _ := newTestOrchestrator(t, store.Medication{Name: "Aspirin", Category: "General"})

	res, err := orch.Handle(context.Background(), "delete id 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Item 2 is not in the list." {
		t.Errorf("message = %q", res.Message)
	}
	if records, _ := ms.List(context.Background()); len(records) != 1 {
		t.Errorf("store mutated on out-of-range command: %v", records)
	}
}

func TestHandle_IdentifierDelete(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t,
		store.Medication{Name: "Aspirin", Category: "General"},
		store.Medication{Name: "Paracetamol", Category: "Ward B"},
	)

	res, err := orch.Handle(context.Background(), "delete id 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Deleted Paracetamol." {
		t.Errorf("message = %q", res.Message)
	}
	if len(res.Records) != 1 || res.Records[0].Name != "Aspirin" {
		t.Errorf("records = %+v", res.Records)
	}
}

func TestHandle_IdentifierMove(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t,
		store.Medication{Name: "Aspirin", Category: "General"},
		store.Medication{Name: "Paracetamol", Category: "General"},
	)

	res, err := orch.Handle(context.Background(), "move item 2 to Shelf A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Moved Paracetamol to Shelf A." {
		t.Errorf("message = %q", res.Message)
	}
	if res.Records[1].Category != "Shelf A" {
		t.Errorf("records = %+v", res.Records)
	}
}

func TestHandle_IdentifierUpdateWithoutTarget(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, store.Medication{Name: "Aspirin", Category: "General"})

	res, err := orch.Handle(context.Background(), "update item 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "I could not tell what to change it to. Please rephrase." {
		t.Errorf("message = %q", res.Message)
	}
}

func TestHandle_DeleteByFuzzyName(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t,
		store.Medication{Name: "Aspirin", Category: "General"},
		store.Medication{Name: "Paracetamol", Category: "Ward B"},
	)

	res, err := orch.Handle(context.Background(), "delete parasetamol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Deleted Paracetamol." {
		t.Errorf("message = %q", res.Message)
	}
	if len(res.Records) != 1 || res.Records[0].Name != "Aspirin" {
		t.Errorf("records = %+v", res.Records)
	}
}

func TestHandle_DeleteNoMatch(t *testing.T) {
	orch, ms, _ := newTestOrchestrator(t, store.Medication{Name: "Aspirin", Category: "General"})

	res, err := orch.Handle(context.Background(), "delete xylophone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != `No medication matching "xylophone" was found.` {
		t.Errorf("message = %q", res.Message)
	}
	if records, _ := ms.List(context.Background()); len(records) != 1 {
		t.Errorf("store mutated on no-match command: %v", records)
	}
}

func TestHandle_DeleteAll(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t,
		store.Medication{Name: "Aspirin", Category: "General"},
		store.Medication{Name: "Paracetamol", Category: "Ward B"},
	)

	res, err := orch.Handle(context.Background(), "delete all medications")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Deleted all 2 medications." {
		t.Errorf("message = %q", res.Message)
	}
	if len(res.Records) != 0 {
		t.Errorf("records = %+v, want empty", res.Records)
	}
}

func TestHandle_UpdateRenames(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, store.Medication{Name: "Aspirin", Category: "General"})

	res, err := orch.Handle(context.Background(), "update aspirin to Tylenol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Updated Aspirin to Tylenol." {
		t.Errorf("message = %q", res.Message)
	}
	if r := res.Records[0]; r.Name != "Tylenol" || r.Category != "General" {
		t.Errorf("record = %+v", r)
	}
}

func TestHandle_UpdateToKnownCategoryMoves(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t,
		store.Medication{Name: "Aspirin", Category: "General"},
		store.Medication{Name: "Paracetamol", Category: "Ward B"},
	)

	res, err := orch.Handle(context.Background(), "update aspirin to ward b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Moved Aspirin to ward b." {
		t.Errorf("message = %q", res.Message)
	}
	if res.Records[0].Category != "ward b" {
		t.Errorf("record = %+v", res.Records[0])
	}
}

func TestHandle_MoveChangesCategoryOnly(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, store.Medication{Name: "Aspirin", Category: "General"})

	res, err := orch.Handle(context.Background(), "move aspirin to Shelf A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Moved Aspirin to Shelf A." {
		t.Errorf("message = %q", res.Message)
	}
	if r := res.Records[0]; r.Name != "Aspirin" || r.Category != "Shelf A" {
		t.Errorf("record = %+v", r)
	}
}

func TestHandle_UpdateNoSubjectMatch(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, store.Medication{Name: "Aspirin", Category: "General"})

	res, err := orch.Handle(context.Background(), "move xylophone to Shelf A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != `No medication matching "xylophone" was found.` {
		t.Errorf("message = %q", res.Message)
	}
}

func TestHandle_FallbackReturnsExplanationVerbatim(t *testing.T) {
	orch, _, ai := newTestOrchestrator(t)
	ai.explanation = "Paracetamol relieves pain and reduces fever."

	res, err := orch.Handle(context.Background(), "what is paracetamol used for")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Paracetamol relieves pain and reduces fever." {
		t.Errorf("message = %q", res.Message)
	}
}

func TestHandle_FallbackDegradesOnAIFailure(t *testing.T) {
	orch, _, ai := newTestOrchestrator(t)
	ai.err = errors.New("backend down")

	res, err := orch.Handle(context.Background(), "what is paracetamol used for")
	if err != nil {
		t.Fatalf("AI failure must not fail the command: %v", err)
	}
	if res.Message != "Sorry, I couldn't explain that right now." {
		t.Errorf("message = %q", res.Message)
	}
}

func TestHandle_AlwaysReturnsFreshListing(t *testing.T) {
	orch, ms, _ := newTestOrchestrator(t, store.Medication{Name: "Aspirin", Category: "General"})

	// A fallback command mutates nothing but still reports current state.
	res, err := orch.Handle(context.Background(), "how are you today")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Name != "Aspirin" {
		t.Errorf("records = %+v", res.Records)
	}

	if _, err := ms.Insert(context.Background(), store.Medication{Name: "Ibuprofen", Category: "General"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	res, err = orch.Handle(context.Background(), "how are you today")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 2 {
		t.Errorf("records = %d, want 2", len(res.Records))
	}
}

// brokenMatcher fails with an error that is not a no-match.
type brokenMatcher struct{ err error }

func (m brokenMatcher) Match(string, []store.Medication) (store.Medication, error) {
	return store.Medication{}, m.err
}

func TestHandle_MatcherFailurePropagates(t *testing.T) {
	ms := store.NewMemStore()
	if _, err := ms.Insert(context.Background(), store.Medication{Name: "Aspirin", Category: "General"}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	boom := errors.New("matcher broken")
	orch := New(ms, brokenMatcher{err: boom}, &fakeAI{}, slog.Default())

	for _, text := range []string{"delete aspirin", "update aspirin to Tylenol"} {
		t.Run(text, func(t *testing.T) {
			if _, err := orch.Handle(context.Background(), text); !errors.Is(err, boom) {
				t.Errorf("err = %v, want wrapped matcher error", err)
			}
		})
	}

	// Nothing was deleted or renamed along the error path.
	records, err := ms.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].Name != "Aspirin" {
		t.Errorf("records = %+v, want untouched Aspirin", records)
	}
}

func TestHandle_RecordsCommandMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	ms := store.NewMemStore()
	orch := New(ms, fuzzy.New(), &fakeAI{}, slog.Default(), WithMetrics(metrics))

	if _, err := orch.Handle(context.Background(), "add aspirin to General"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var handled, active int64
	handledSeen := false
	for _, sm := range rm.ScopeMetrics {
		for _, metr := range sm.Metrics {
			sum, ok := metr.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch metr.Name {
				case "hospitalvoice.commands.handled":
					handledSeen = true
					handled += dp.Value
					if v, ok := dp.Attributes.Value("intent"); !ok || v.AsString() != "add" {
						t.Errorf("intent attribute = %v", v.AsString())
					}
					if v, ok := dp.Attributes.Value("status"); !ok || v.AsString() != "ok" {
						t.Errorf("status attribute = %v", v.AsString())
					}
				case "hospitalvoice.active_commands":
					active += dp.Value
				}
			}
		}
	}
	if !handledSeen || handled != 1 {
		t.Errorf("commands.handled = %d (seen %v), want 1", handled, handledSeen)
	}
	if active != 0 {
		t.Errorf("active_commands = %d after completion, want 0", active)
	}
}
