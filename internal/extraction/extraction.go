// Package extraction turns free-text consultation transcripts into structured
// clinical records by prompting an AI service for bare JSON and decoding the
// reply strictly. Every failure mode collapses to one fixed fallback value so
// downstream code always has a complete record to work with.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ProSamhacker/hospitalmanagement/internal/observe"
	"github.com/ProSamhacker/hospitalmanagement/pkg/provider/ai"
)

// ErrMalformedResponse is returned when the AI reply is not the JSON object
// the prompt demanded, or is missing required fields.
var ErrMalformedResponse = errors.New("extraction: malformed AI response")

// Severity levels accepted in a clinical extraction.
const (
	SeverityLow      = "LOW"
	SeverityNormal   = "NORMAL"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// MedicationDescriptor is one prescribed medication within an extraction.
type MedicationDescriptor struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Timing       string `json:"timing"`
	Instructions string `json:"instructions"`
}

// ClinicalExtraction is the structured result of analyzing one consultation
// transcript.
type ClinicalExtraction struct {
	Symptoms     string                 `json:"symptoms"`
	Diagnosis    string                 `json:"diagnosis"`
	Severity     string                 `json:"severity"`
	Medications  []MedicationDescriptor `json:"medications"`
	LabTests     []string               `json:"labTests"`
	Instructions string                 `json:"instructions"`
	FollowUpDays *int                   `json:"followUpDays"`
}

// Fallback is the fixed value returned alongside a non-nil error whenever
// extraction fails. Callers must check the error, never these marker strings.
func Fallback() ClinicalExtraction {
	return ClinicalExtraction{
		Symptoms:     "Could not extract",
		Diagnosis:    "Analysis failed",
		Severity:     SeverityNormal,
		Medications:  []MedicationDescriptor{},
		LabTests:     []string{},
		Instructions: "Please review consultation manually",
	}
}

// Pipeline runs clinical prompts against an AI service.
type Pipeline struct {
	svc     ai.Service
	metrics *observe.Metrics
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a Pipeline backed by the given AI service.
func New(svc ai.Service, opts ...Option) *Pipeline {
	p := &Pipeline{svc: svc}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

const extractPromptFormat = `Analyze this doctor-patient conversation and extract medical information.

Conversation: %q

Return ONLY a valid JSON object (no markdown formatting):
{
    "symptoms": "comma-separated list of symptoms",
    "diagnosis": "potential diagnosis",
    "severity": "LOW|NORMAL|HIGH|CRITICAL",
    "medications": [
        {
            "name": "medication name",
            "dosage": "dosage amount",
            "frequency": "how often",
            "duration": "how long",
            "timing": "when to take",
            "instructions": "additional notes"
        }
    ],
    "labTests": ["list of recommended tests"],
    "instructions": "general care instructions",
    "followUpDays": 7
}`

// ExtractClinicalInfo analyzes a consultation transcript. On any failure it
// returns [Fallback] together with a non-nil error: [ErrMalformedResponse]
// for undecodable or incomplete replies, or the wrapped service error.
func (p *Pipeline) ExtractClinicalInfo(ctx context.Context, transcript string) (ClinicalExtraction, error) {
	start := time.Now()
	defer func() {
		p.metrics.ExtractionDuration.Record(ctx, time.Since(start).Seconds())
	}()

	raw, err := p.svc.Complete(ctx, fmt.Sprintf(extractPromptFormat, transcript))
	if err != nil {
		return Fallback(), fmt.Errorf("extraction: query AI service: %w", err)
	}
	ex, err := decode(raw)
	if err != nil {
		return Fallback(), err
	}
	return ex, nil
}

func decode(raw string) (ClinicalExtraction, error) {
	// Backends are asked for bare JSON but some wrap it in markdown fences
	// anyway.
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")

	var ex ClinicalExtraction
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &ex); err != nil {
		return ClinicalExtraction{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if ex.Symptoms == "" || ex.Diagnosis == "" {
		return ClinicalExtraction{}, fmt.Errorf("%w: missing required fields", ErrMalformedResponse)
	}
	switch ex.Severity {
	case "":
		ex.Severity = SeverityNormal
	case SeverityLow, SeverityNormal, SeverityHigh, SeverityCritical:
	default:
		return ClinicalExtraction{}, fmt.Errorf("%w: severity %q out of range", ErrMalformedResponse, ex.Severity)
	}
	if ex.Medications == nil {
		ex.Medications = []MedicationDescriptor{}
	}
	if ex.LabTests == nil {
		ex.LabTests = []string{}
	}
	return ex, nil
}

const explainPromptFormat = `You are a helpful medical assistant explaining to a patient.
Explain this in very simple language (max 3 sentences):

%q

Use everyday words, avoid jargon, and be empathetic.`

// PlainExplanation answers an arbitrary query in patient-friendly language.
// The reply is returned verbatim.
func (p *Pipeline) PlainExplanation(ctx context.Context, query string) (string, error) {
	text, err := p.svc.Complete(ctx, fmt.Sprintf(explainPromptFormat, query))
	if err != nil {
		return "", fmt.Errorf("extraction: query AI service: %w", err)
	}
	return text, nil
}

const spellingPromptFormat = `Correct this medication name (reply with ONLY the corrected name):
%q`

// CorrectSpelling asks the AI service for the canonical spelling of a
// medication name and returns the trimmed reply.
func (p *Pipeline) CorrectSpelling(ctx context.Context, name string) (string, error) {
	text, err := p.svc.Complete(ctx, fmt.Sprintf(spellingPromptFormat, name))
	if err != nil {
		return "", fmt.Errorf("extraction: query AI service: %w", err)
	}
	return strings.TrimSpace(text), nil
}
