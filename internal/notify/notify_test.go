package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	old := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = old })
	return ts
}

func TestDeriveAppointmentCreated(t *testing.T) {
	ts := fixedNow(t)

	events := DeriveAppointmentCreated(AppointmentCreated{
		AppointmentID: 42,
		DoctorID:      "doc1",
		DoctorName:    "Dr. Chen",
		PatientID:     "pat1",
		PatientName:   "Alex Doe",
	})

	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	doctor, patient := events[0], events[1]
	if doctor.RecipientID != "doc1" || doctor.RecipientRole != RoleDoctor {
		t.Errorf("doctor event addressed to %s/%s", doctor.RecipientID, doctor.RecipientRole)
	}
	if doctor.Title != "New Appointment" {
		t.Errorf("doctor title = %q", doctor.Title)
	}
	if !strings.Contains(doctor.Body, "Alex Doe") {
		t.Errorf("doctor body = %q, want patient name", doctor.Body)
	}

	if patient.RecipientID != "pat1" || patient.RecipientRole != RolePatient {
		t.Errorf("patient event addressed to %s/%s", patient.RecipientID, patient.RecipientRole)
	}
	if patient.Title != "Appointment Confirmed" {
		t.Errorf("patient title = %q", patient.Title)
	}
	if !strings.Contains(patient.Body, "Dr. Chen") {
		t.Errorf("patient body = %q, want doctor name", patient.Body)
	}

	for _, ev := range events {
		if ev.ID == "" {
			t.Error("event ID not generated")
		}
		if ev.Read {
			t.Error("event created as read")
		}
		if !ev.CreatedAt.Equal(ts) {
			t.Errorf("CreatedAt = %v, want %v", ev.CreatedAt, ts)
		}
		if ev.Category != CategoryAppointment {
			t.Errorf("category = %q", ev.Category)
		}
		if ev.RelatedID == nil || *ev.RelatedID != 42 {
			t.Errorf("RelatedID = %v, want 42", ev.RelatedID)
		}
	}
}

func TestDerivePrescriptionCreated(t *testing.T) {
	events := DerivePrescriptionCreated(PrescriptionCreated{
		PrescriptionID: 9,
		PatientID:      "pat1",
	})

	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.RecipientID != "pat1" || ev.RecipientRole != RolePatient {
		t.Errorf("addressed to %s/%s", ev.RecipientID, ev.RecipientRole)
	}
	if ev.Title != "Prescription Ready" {
		t.Errorf("title = %q", ev.Title)
	}
	if ev.Category != CategoryPrescription {
		t.Errorf("category = %q", ev.Category)
	}
	if ev.RelatedID == nil || *ev.RelatedID != 9 {
		t.Errorf("RelatedID = %v, want 9", ev.RelatedID)
	}
}

func TestDeriveMessageSent_NotifiesCounterparty(t *testing.T) {
	fromDoctor := DeriveMessageSent(MessageSent{
		AppointmentID: 1,
		SenderRole:    RoleDoctor,
		DoctorID:      "doc1",
		PatientID:     "pat1",
		Content:       "Take the full course.",
	})
	if len(fromDoctor) != 1 {
		t.Fatalf("len = %d, want 1", len(fromDoctor))
	}
	if fromDoctor[0].RecipientID != "pat1" || fromDoctor[0].RecipientRole != RolePatient {
		t.Errorf("doctor message went to %s/%s", fromDoctor[0].RecipientID, fromDoctor[0].RecipientRole)
	}
	if fromDoctor[0].Body != "Take the full course." {
		t.Errorf("short body altered: %q", fromDoctor[0].Body)
	}

	fromPatient := DeriveMessageSent(MessageSent{
		AppointmentID: 1,
		SenderRole:    RolePatient,
		DoctorID:      "doc1",
		PatientID:     "pat1",
		Content:       "Thanks!",
	})
	if fromPatient[0].RecipientID != "doc1" || fromPatient[0].RecipientRole != RoleDoctor {
		t.Errorf("patient message went to %s/%s", fromPatient[0].RecipientID, fromPatient[0].RecipientRole)
	}
}

func TestDeriveMessageSent_TruncatesLongBody(t *testing.T) {
	long := strings.Repeat("a", 80)
	events := DeriveMessageSent(MessageSent{
		SenderRole: RoleDoctor,
		PatientID:  "pat1",
		Content:    long,
	})

	want := strings.Repeat("a", 50) + "..."
	if events[0].Body != want {
		t.Errorf("body = %q (len %d), want 50 chars + ellipsis", events[0].Body, len(events[0].Body))
	}

	// Exactly at the cap: untouched.
	exact := strings.Repeat("b", 50)
	events = DeriveMessageSent(MessageSent{
		SenderRole: RoleDoctor,
		PatientID:  "pat1",
		Content:    exact,
	})
	if events[0].Body != exact {
		t.Errorf("50-char body altered: %q", events[0].Body)
	}
}

func TestDeriveMessageSent_TruncatesOnRunes(t *testing.T) {
	// A multibyte rune straddling the cap must be kept or dropped whole,
	// never split.
	content := strings.Repeat("a", 49) + "é" + strings.Repeat("b", 30)
	events := DeriveMessageSent(MessageSent{
		SenderRole: RoleDoctor,
		PatientID:  "pat1",
		Content:    content,
	})

	body := events[0].Body
	if !utf8.ValidString(body) {
		t.Fatalf("body is not valid UTF-8: %q", body)
	}
	want := strings.Repeat("a", 49) + "é" + "..."
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}

	// All-multibyte content still counts 50 runes, not bytes.
	kana := strings.Repeat("あ", 60)
	events = DeriveMessageSent(MessageSent{
		SenderRole: RoleDoctor,
		PatientID:  "pat1",
		Content:    kana,
	})
	want = strings.Repeat("あ", 50) + "..."
	if events[0].Body != want {
		t.Errorf("kana body = %q, want 50 runes + ellipsis", events[0].Body)
	}
}

func TestDeriveEmergencyDetected(t *testing.T) {
	events := DeriveEmergencyDetected(EmergencyDetected{Details: "appointment 3"})

	if len(events) != 1 {
		t.Fatalf("len = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.RecipientRole != RoleAdmin {
		t.Errorf("role = %q, want admin", ev.RecipientRole)
	}
	if ev.Title != "Emergency Alert" {
		t.Errorf("title = %q", ev.Title)
	}
	if ev.Category != CategoryEmergency {
		t.Errorf("category = %q", ev.Category)
	}
	if !strings.Contains(ev.Body, "appointment 3") {
		t.Errorf("body = %q", ev.Body)
	}
}

func TestMemSink_CollectsEvents(t *testing.T) {
	sink := &MemSink{}
	ctx := context.Background()

	sink.Emit(ctx, Event{ID: "a"})
	sink.Emit(ctx, Event{ID: "b"})

	events := sink.Events()
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}

	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Error("Reset did not clear events")
	}
}

func TestMulti_FansOutToAllSinks(t *testing.T) {
	a, b := &MemSink{}, &MemSink{}
	m := Multi{a, b}

	if err := m.Emit(context.Background(), Event{ID: "x"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("fan-out incomplete: a=%d b=%d", len(a.Events()), len(b.Events()))
	}
}

type failSink struct{ err error }

func (s failSink) Emit(context.Context, Event) error { return s.err }

func TestMulti_ContinuesPastFailingSink(t *testing.T) {
	boom := errors.New("boom")
	good := &MemSink{}
	m := Multi{failSink{err: boom}, good}

	err := m.Emit(context.Background(), Event{ID: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	if len(good.Events()) != 1 {
		t.Error("later sink skipped after failure")
	}
}
