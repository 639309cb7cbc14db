package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ProSamhacker/hospitalmanagement/internal/notify"
)

// Schema is the SQL DDL for the pipeline's tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS medications (
    id        BIGSERIAL PRIMARY KEY,
    name      TEXT NOT NULL,
    category  TEXT NOT NULL DEFAULT 'General'
);
CREATE INDEX IF NOT EXISTS idx_medications_category ON medications(category);

CREATE TABLE IF NOT EXISTS prescriptions (
    id              BIGSERIAL PRIMARY KEY,
    appointment_id  BIGINT NOT NULL,
    medication_name TEXT NOT NULL,
    dosage          TEXT NOT NULL DEFAULT '',
    frequency       TEXT NOT NULL DEFAULT '',
    duration        TEXT NOT NULL DEFAULT '',
    timing          TEXT NOT NULL DEFAULT '',
    instructions    TEXT NOT NULL DEFAULT '',
    diagnosis       TEXT NOT NULL DEFAULT '',
    follow_up_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_prescriptions_appointment ON prescriptions(appointment_id);

CREATE TABLE IF NOT EXISTS notifications (
    id             TEXT PRIMARY KEY,
    recipient_id   TEXT NOT NULL,
    recipient_role TEXT NOT NULL,
    title          TEXT NOT NULL,
    body           TEXT NOT NULL,
    category       TEXT NOT NULL,
    related_id     BIGINT,
    read           BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore implements [Store], [PrescriptionStore], and
// [NotificationStore] on a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface checks.
var (
	_ Store             = (*PostgresStore)(nil)
	_ PrescriptionStore = (*PostgresStore)(nil)
	_ NotificationStore = (*PostgresStore)(nil)
)

// NewPostgresStore creates a [PostgresStore] on the given connection or pool.
// The caller is responsible for calling [PostgresStore.Migrate] to ensure the
// schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the tables and indexes if they
// do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context) ([]Medication, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, category FROM medications ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list medications: %w", err)
	}
	defer rows.Close()

	var out []Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.Name, &m.Category); err != nil {
			return nil, fmt.Errorf("store: scan medication: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Insert implements [Store.Insert].
func (s *PostgresStore) Insert(ctx context.Context, m Medication) (int64, error) {
	if m.Category == "" {
		m.Category = DefaultCategory
	}
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO medications (name, category) VALUES ($1, $2) RETURNING id`,
		m.Name, m.Category,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert medication: %w", err)
	}
	return id, nil
}

// Update implements [Store.Update].
func (s *PostgresStore) Update(ctx context.Context, m Medication) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE medications SET name = $2, category = $3 WHERE id = $1`,
		m.ID, m.Name, m.Category,
	)
	if err != nil {
		return fmt.Errorf("store: update medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements [Store.Delete].
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll implements [Store.DeleteAll].
func (s *PostgresStore) DeleteAll(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM medications`)
	if err != nil {
		return 0, fmt.Errorf("store: delete all medications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// FindByCategory implements [Store.FindByCategory].
func (s *PostgresStore) FindByCategory(ctx context.Context, category string) (Medication, error) {
	var m Medication
	err := s.db.QueryRow(ctx,
		`SELECT id, name, category FROM medications WHERE category = $1 ORDER BY id LIMIT 1`,
		category,
	).Scan(&m.ID, &m.Name, &m.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return Medication{}, ErrNotFound
	}
	if err != nil {
		return Medication{}, fmt.Errorf("store: find by category: %w", err)
	}
	return m, nil
}

// InsertPrescription implements [PrescriptionStore.InsertPrescription].
func (s *PostgresStore) InsertPrescription(ctx context.Context, p Prescription) (int64, error) {
	var followUp *time.Time
	if !p.FollowUpAt.IsZero() {
		followUp = &p.FollowUpAt
	}

	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO prescriptions (
			appointment_id, medication_name, dosage, frequency, duration,
			timing, instructions, diagnosis, follow_up_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		p.AppointmentID, p.MedicationName, p.Dosage, p.Frequency, p.Duration,
		p.Timing, p.Instructions, p.Diagnosis, followUp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert prescription: %w", err)
	}
	return id, nil
}

// ListPrescriptions implements [PrescriptionStore.ListPrescriptions].
func (s *PostgresStore) ListPrescriptions(ctx context.Context) ([]Prescription, error) {
	return s.queryPrescriptions(ctx, `
		SELECT id, appointment_id, medication_name, dosage, frequency, duration,
		       timing, instructions, diagnosis, follow_up_at
		FROM prescriptions ORDER BY id`)
}

// ListPrescriptionsByAppointment implements
// [PrescriptionStore.ListPrescriptionsByAppointment].
func (s *PostgresStore) ListPrescriptionsByAppointment(ctx context.Context, appointmentID int64) ([]Prescription, error) {
	return s.queryPrescriptions(ctx, `
		SELECT id, appointment_id, medication_name, dosage, frequency, duration,
		       timing, instructions, diagnosis, follow_up_at
		FROM prescriptions WHERE appointment_id = $1 ORDER BY id`, appointmentID)
}

func (s *PostgresStore) queryPrescriptions(ctx context.Context, sql string, args ...any) ([]Prescription, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list prescriptions: %w", err)
	}
	defer rows.Close()

	var out []Prescription
	for rows.Next() {
		var p Prescription
		var followUp *time.Time
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.MedicationName, &p.Dosage,
			&p.Frequency, &p.Duration, &p.Timing, &p.Instructions, &p.Diagnosis,
			&followUp); err != nil {
			return nil, fmt.Errorf("store: scan prescription: %w", err)
		}
		if followUp != nil {
			p.FollowUpAt = *followUp
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveNotification implements [NotificationStore.SaveNotification].
func (s *PostgresStore) SaveNotification(ctx context.Context, ev notify.Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (
			id, recipient_id, recipient_role, title, body, category,
			related_id, read, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		ev.ID, ev.RecipientID, string(ev.RecipientRole), ev.Title, ev.Body,
		string(ev.Category), ev.RelatedID, ev.Read, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: save notification: %w", err)
	}
	return nil
}

// ListNotifications implements [NotificationStore.ListNotifications].
func (s *PostgresStore) ListNotifications(ctx context.Context, recipientID string) ([]notify.Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, recipient_id, recipient_role, title, body, category,
		       related_id, read, created_at
		FROM notifications WHERE recipient_id = $1 ORDER BY created_at`,
		recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list notifications: %w", err)
	}
	defer rows.Close()

	var out []notify.Event
	for rows.Next() {
		var ev notify.Event
		var role, category string
		if err := rows.Scan(&ev.ID, &ev.RecipientID, &role, &ev.Title, &ev.Body,
			&category, &ev.RelatedID, &ev.Read, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan notification: %w", err)
		}
		ev.RecipientRole = notify.Role(role)
		ev.Category = notify.Category(category)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// UnreadCount implements [NotificationStore.UnreadCount].
func (s *PostgresStore) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_id = $1 AND NOT read`,
		recipientID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: unread count: %w", err)
	}
	return n, nil
}

// MarkRead implements [NotificationStore.MarkRead].
func (s *PostgresStore) MarkRead(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead implements [NotificationStore.MarkAllRead].
func (s *PostgresStore) MarkAllRead(ctx context.Context, recipientID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE recipient_id = $1`, recipientID)
	if err != nil {
		return fmt.Errorf("store: mark all read: %w", err)
	}
	return nil
}
