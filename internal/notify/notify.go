// Package notify derives notification events from completed state
// transitions and delivers them to a Sink.
//
// Derivation is a pure function of the transition: a given transition always
// produces exactly the same number of events with the same titles, bodies,
// and recipients, so tests can assert on them byte for byte. The pipeline
// emits events strictly after the underlying mutation has succeeded; a
// rejected command derives nothing, and there is never a notify-without-
// mutate.
//
// Events are immutable once created; the read flag and anything else that
// changes later is a store concern, not a pipeline concern.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role identifies the kind of user an event is addressed to.
type Role string

const (
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
	RoleAdmin   Role = "ADMIN"
)

// Category tags an event with the transition kind that produced it.
type Category string

const (
	CategoryAppointment  Category = "APPOINTMENT_CONFIRMED"
	CategoryPrescription Category = "PRESCRIPTION_READY"
	CategoryMessage      Category = "MESSAGE_RECEIVED"
	CategoryEmergency    Category = "EMERGENCY"
)

// maxMessagePreview is the body length cap, in runes, for message
// notifications. Longer contents are cut here and suffixed with an ellipsis.
const maxMessagePreview = 50

// Event is a single derived notification.
type Event struct {
	// ID is a generated unique identifier.
	ID string

	// RecipientID identifies the user this event is addressed to.
	RecipientID string

	// RecipientRole is the recipient's role.
	RecipientRole Role

	// Title is the short headline shown to the recipient.
	Title string

	// Body is the human-readable notification text.
	Body string

	// Category tags the transition kind that produced this event.
	Category Category

	// RelatedID optionally points at the record the event is about
	// (appointment, prescription). Nil when there is none.
	RelatedID *int64

	// Read reports whether the recipient has seen the event. Always false at
	// creation.
	Read bool

	// CreatedAt is the event creation timestamp.
	CreatedAt time.Time
}

// Sink receives derived events. Delivery is fire-and-forget from the
// pipeline's perspective: emit errors are logged by callers, never treated as
// command failures.
//
// Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// AppointmentCreated is the transition recorded when a new appointment has
// been persisted.
type AppointmentCreated struct {
	AppointmentID int64
	DoctorID      string
	DoctorName    string
	PatientID     string
	PatientName   string
}

// PrescriptionCreated is the transition recorded when a prescription has been
// persisted for a patient.
type PrescriptionCreated struct {
	PrescriptionID int64
	PatientID      string
}

// MessageSent is the transition recorded when a message in an appointment
// thread has been delivered. SenderRole determines the counterparty that gets
// notified.
type MessageSent struct {
	AppointmentID int64
	SenderRole    Role
	DoctorID      string
	PatientID     string
	Content       string
}

// EmergencyDetected is the transition recorded when a consultation transcript
// contained an emergency keyword.
type EmergencyDetected struct {
	Details string
}

// now is swapped in tests for deterministic timestamps.
var now = time.Now

// newEvent fills in the generated fields shared by all derivations.
func newEvent(recipientID string, role Role, title, body string, cat Category, relatedID *int64) Event {
	return Event{
		ID:            uuid.NewString(),
		RecipientID:   recipientID,
		RecipientRole: role,
		Title:         title,
		Body:          body,
		Category:      cat,
		RelatedID:     relatedID,
		CreatedAt:     now(),
	}
}

// DeriveAppointmentCreated produces exactly two events: one telling the
// doctor about the new appointment and one confirming it to the patient.
func DeriveAppointmentCreated(t AppointmentCreated) []Event {
	related := t.AppointmentID
	return []Event{
		newEvent(t.DoctorID, RoleDoctor,
			"New Appointment",
			"New appointment with "+t.PatientName,
			CategoryAppointment, &related),
		newEvent(t.PatientID, RolePatient,
			"Appointment Confirmed",
			"Your appointment with "+t.DoctorName+" is confirmed",
			CategoryAppointment, &related),
	}
}

// DerivePrescriptionCreated produces exactly one event addressed to the
// patient.
func DerivePrescriptionCreated(t PrescriptionCreated) []Event {
	related := t.PrescriptionID
	return []Event{
		newEvent(t.PatientID, RolePatient,
			"Prescription Ready",
			"Your prescription is ready. Check your appointments.",
			CategoryPrescription, &related),
	}
}

// DeriveMessageSent produces exactly one event addressed to the counterparty
// in the appointment thread. The body is the message content truncated to 50
// characters with a trailing ellipsis when longer.
func DeriveMessageSent(t MessageSent) []Event {
	recipientID, role := t.PatientID, RolePatient
	if t.SenderRole == RolePatient {
		recipientID, role = t.DoctorID, RoleDoctor
	}

	body := t.Content
	if runes := []rune(body); len(runes) > maxMessagePreview {
		body = string(runes[:maxMessagePreview]) + "..."
	}

	related := t.AppointmentID
	return []Event{
		newEvent(recipientID, role, "New Message", body, CategoryMessage, &related),
	}
}

// DeriveEmergencyDetected produces exactly one event addressed to the
// administrative role.
func DeriveEmergencyDetected(t EmergencyDetected) []Event {
	return []Event{
		newEvent("ADMIN", RoleAdmin,
			"Emergency Alert",
			"Emergency in consultation: "+t.Details,
			CategoryEmergency, nil),
	}
}
