package store

import (
	"context"
	"slices"
	"sync"

	"github.com/ProSamhacker/hospitalmanagement/internal/notify"
)

// Compile-time assertions that MemStore satisfies the store interfaces.
var (
	_ Store             = (*MemStore)(nil)
	_ PrescriptionStore = (*MemStore)(nil)
	_ NotificationStore = (*MemStore)(nil)
)

// MemStore is a thread-safe, in-memory implementation of [Store],
// [PrescriptionStore], and [NotificationStore]. It is suitable for
// single-session use and testing. The zero value is ready to use.
type MemStore struct {
	mu            sync.RWMutex
	nextID        int64
	medications   []Medication
	prescriptions []Prescription
	notifications []notify.Event
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{}
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context) ([]Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.medications), nil
}

// Insert implements [Store.Insert].
func (s *MemStore) Insert(ctx context.Context, m Medication) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	m.ID = s.nextID
	if m.Category == "" {
		m.Category = DefaultCategory
	}
	s.medications = append(s.medications, m)
	return m.ID, nil
}

// Update implements [Store.Update].
func (s *MemStore) Update(ctx context.Context, m Medication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.medications {
		if s.medications[i].ID == m.ID {
			s.medications[i] = m
			return nil
		}
	}
	return ErrNotFound
}

// Delete implements [Store.Delete].
func (s *MemStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.medications {
		if s.medications[i].ID == id {
			s.medications = slices.Delete(s.medications, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}

// DeleteAll implements [Store.DeleteAll].
func (s *MemStore) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.medications)
	s.medications = nil
	return n, nil
}

// FindByCategory implements [Store.FindByCategory].
func (s *MemStore) FindByCategory(ctx context.Context, category string) (Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.medications {
		if m.Category == category {
			return m, nil
		}
	}
	return Medication{}, ErrNotFound
}

// InsertPrescription implements [PrescriptionStore.InsertPrescription].
func (s *MemStore) InsertPrescription(ctx context.Context, p Prescription) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p.ID = s.nextID
	s.prescriptions = append(s.prescriptions, p)
	return p.ID, nil
}

// ListPrescriptions implements [PrescriptionStore.ListPrescriptions].
func (s *MemStore) ListPrescriptions(ctx context.Context) ([]Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.prescriptions), nil
}

// ListPrescriptionsByAppointment implements [PrescriptionStore.ListPrescriptionsByAppointment].
func (s *MemStore) ListPrescriptionsByAppointment(ctx context.Context, appointmentID int64) ([]Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Prescription
	for _, p := range s.prescriptions {
		if p.AppointmentID == appointmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

// SaveNotification implements [NotificationStore.SaveNotification].
func (s *MemStore) SaveNotification(ctx context.Context, ev notify.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, ev)
	return nil
}

// ListNotifications implements [NotificationStore.ListNotifications].
func (s *MemStore) ListNotifications(ctx context.Context, recipientID string) ([]notify.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []notify.Event
	for _, ev := range s.notifications {
		if ev.RecipientID == recipientID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// UnreadCount implements [NotificationStore.UnreadCount].
func (s *MemStore) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, ev := range s.notifications {
		if ev.RecipientID == recipientID && !ev.Read {
			n++
		}
	}
	return n, nil
}

// MarkRead implements [NotificationStore.MarkRead].
func (s *MemStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

// MarkAllRead implements [NotificationStore.MarkAllRead].
func (s *MemStore) MarkAllRead(ctx context.Context, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].RecipientID == recipientID {
			s.notifications[i].Read = true
		}
	}
	return nil
}
