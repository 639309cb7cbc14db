// Package consult processes finished doctor-patient consultations: it runs
// the clinical extraction pipeline over the transcript, persists one
// prescription per extracted medication, and derives the notifications the
// outcome calls for.
package consult

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ProSamhacker/hospitalmanagement/internal/extraction"
	"github.com/ProSamhacker/hospitalmanagement/internal/notify"
	"github.com/ProSamhacker/hospitalmanagement/internal/observe"
	"github.com/ProSamhacker/hospitalmanagement/internal/store"
)

// emergencyKeywords trigger the admin alert before any AI work happens.
var emergencyKeywords = []string{"emergency", "urgent", "critical"}

// Extractor is the slice of the extraction pipeline this service needs.
type Extractor interface {
	ExtractClinicalInfo(ctx context.Context, transcript string) (extraction.ClinicalExtraction, error)
}

// Service ties extraction, prescription persistence and notification
// derivation together.
type Service struct {
	extractor Extractor
	store     store.PrescriptionStore
	sink      notify.Sink
	metrics   *observe.Metrics
	log       *slog.Logger

	// now is swapped in tests for deterministic follow-up dates.
	now func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a consultation Service. A nil logger falls back to
// [slog.Default].
func New(extractor Extractor, ps store.PrescriptionStore, sink notify.Sink, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		extractor: extractor,
		store:     ps,
		sink:      sink,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Result summarizes a processed consultation.
type Result struct {
	Extraction    extraction.ClinicalExtraction
	Prescriptions []store.Prescription
	Summary       string
}

// ProcessConsultation analyzes the transcript of the given appointment,
// persists one prescription row per extracted medication and derives the
// prescription-ready notification for the patient. Transcripts containing an
// emergency keyword additionally derive the admin alert, before the AI call.
//
// Extraction failure is not an error of this method: the returned summary
// flags the consultation for manual review and nothing is persisted.
func (s *Service) ProcessConsultation(ctx context.Context, appointmentID int64, patientID, transcript string) (*Result, error) {
	if s.isEmergency(transcript) {
		s.emit(ctx, notify.DeriveEmergencyDetected(notify.EmergencyDetected{
			Details: fmt.Sprintf("appointment %d", appointmentID),
		}))
	}

	ex, err := s.extractor.ExtractClinicalInfo(ctx, transcript)
	if err != nil {
		s.log.Warn("clinical extraction failed, flagging for manual review",
			"appointment_id", appointmentID, "error", err)
		return &Result{
			Extraction: ex,
			Summary:    "Consultation could not be analyzed. Please review manually.",
		}, nil
	}

	var followUp time.Time
	if ex.FollowUpDays != nil {
		followUp = s.now().AddDate(0, 0, *ex.FollowUpDays)
	}

	prescriptions := make([]store.Prescription, 0, len(ex.Medications))
	for _, med := range ex.Medications {
		p := store.Prescription{
			AppointmentID:  appointmentID,
			MedicationName: med.Name,
			Dosage:         med.Dosage,
			Frequency:      med.Frequency,
			Duration:       med.Duration,
			Timing:         med.Timing,
			Instructions:   med.Instructions,
			Diagnosis:      ex.Diagnosis,
			FollowUpAt:     followUp,
		}
		id, err := s.store.InsertPrescription(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("consult: persist prescription: %w", err)
		}
		p.ID = id
		prescriptions = append(prescriptions, p)
	}

	for _, p := range prescriptions {
		s.emit(ctx, notify.DerivePrescriptionCreated(notify.PrescriptionCreated{
			PrescriptionID: p.ID,
			PatientID:      patientID,
		}))
	}

	return &Result{
		Extraction:    ex,
		Prescriptions: prescriptions,
		Summary: fmt.Sprintf("Diagnosis: %s. %d medication(s) prescribed.",
			ex.Diagnosis, len(prescriptions)),
	}, nil
}

// SendMessage derives the counterparty notification for a delivered message.
// Message storage itself lives upstream.
func (s *Service) SendMessage(ctx context.Context, t notify.MessageSent) {
	s.emit(ctx, notify.DeriveMessageSent(t))
}

func (s *Service) isEmergency(transcript string) bool {
	lower := strings.ToLower(transcript)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// emit delivers events fire-and-forget; sink failures are logged, never
// propagated.
func (s *Service) emit(ctx context.Context, events []notify.Event) {
	for _, ev := range events {
		if err := s.sink.Emit(ctx, ev); err != nil {
			s.log.Warn("notification emit failed", "title", ev.Title, "error", err)
			continue
		}
		s.metrics.RecordNotification(ctx, string(ev.Category))
	}
}
