// Package store provides the record store for the voice-command pipeline.
//
// It owns the persistent domain entities the pipeline reads and mutates:
// medications (the cabinet records voice commands operate on), prescriptions
// produced from AI-extracted consultations, and notification rows derived
// from completed state transitions.
//
// Two implementations are provided: [MemStore], a thread-safe in-memory store
// for single-user sessions and tests, and [PostgresStore] backed by
// jackc/pgx. Each store call is atomic; the pipeline never spans multiple
// calls with its own transaction; it instead re-fetches candidate sets
// immediately before fuzzy matching so mutations are never based on stale
// reads.
//
// All implementations must be safe for concurrent use.
package store

import (
	"context"
	"errors"
	"time"
)

// DefaultCategory is the sentinel category assigned to records whose command
// did not name one.
const DefaultCategory = "General"

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Medication is a single cabinet record: the unit the voice commands add,
// move, rename, and delete.
type Medication struct {
	// ID is the store-assigned unique identifier.
	ID int64

	// Name is the medication's display name.
	Name string

	// Category is the storage location or grouping (e.g., "Ward B").
	// Never empty; [DefaultCategory] when the command named none.
	Category string
}

// Prescription is one medication line produced from an AI-extracted
// consultation, linked to the appointment it came from.
type Prescription struct {
	ID            int64
	AppointmentID int64

	// MedicationName is the (spelling-corrected) medication name.
	MedicationName string

	Dosage       string
	Frequency    string
	Duration     string
	Timing       string
	Instructions string

	// Diagnosis is the consultation-level diagnosis repeated on each line.
	Diagnosis string

	// FollowUpAt is the recommended follow-up time; zero when none was given.
	FollowUpAt time.Time
}

// Store is the medication record store the orchestrator mutates.
//
// Each call is atomic. No transactional batch API is assumed.
type Store interface {
	// List returns all medications in insertion order.
	List(ctx context.Context) ([]Medication, error)

	// Insert adds a medication and returns its assigned ID.
	Insert(ctx context.Context, m Medication) (int64, error)

	// Update replaces the stored record with the same ID.
	// Returns [ErrNotFound] when no such record exists.
	Update(ctx context.Context, m Medication) error

	// Delete removes the record with the given ID.
	// Returns [ErrNotFound] when no such record exists.
	Delete(ctx context.Context, id int64) error

	// DeleteAll removes every medication and returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)

	// FindByCategory returns the first medication in the given category.
	// Returns [ErrNotFound] when the category is empty.
	FindByCategory(ctx context.Context, category string) (Medication, error)
}

// PrescriptionStore persists prescriptions created from consultations.
type PrescriptionStore interface {
	// InsertPrescription adds a prescription line and returns its assigned ID.
	InsertPrescription(ctx context.Context, p Prescription) (int64, error)

	// ListPrescriptions returns all prescriptions in insertion order.
	ListPrescriptions(ctx context.Context) ([]Prescription, error)

	// ListPrescriptionsByAppointment returns the prescriptions for one appointment.
	ListPrescriptionsByAppointment(ctx context.Context, appointmentID int64) ([]Prescription, error)
}
