package store

import (
	"context"

	"github.com/ProSamhacker/hospitalmanagement/internal/notify"
)

// NotificationStore persists derived notification events so recipients can
// query and acknowledge them later.
type NotificationStore interface {
	// SaveNotification persists one event.
	SaveNotification(ctx context.Context, ev notify.Event) error

	// ListNotifications returns the recipient's events in emission order.
	ListNotifications(ctx context.Context, recipientID string) ([]notify.Event, error)

	// UnreadCount returns how many of the recipient's events are unread.
	UnreadCount(ctx context.Context, recipientID string) (int, error)

	// MarkRead flags one event as read. Returns [ErrNotFound] for unknown IDs.
	MarkRead(ctx context.Context, id string) error

	// MarkAllRead flags all of the recipient's events as read.
	MarkAllRead(ctx context.Context, recipientID string) error
}

// NotificationSink adapts a [NotificationStore] to the [notify.Sink]
// interface so derived events land in persistent storage.
type NotificationSink struct {
	store NotificationStore
}

// Compile-time assertion.
var _ notify.Sink = (*NotificationSink)(nil)

// NewNotificationSink wraps ns as a [notify.Sink].
func NewNotificationSink(ns NotificationStore) *NotificationSink {
	return &NotificationSink{store: ns}
}

// Emit implements [notify.Sink].
func (s *NotificationSink) Emit(ctx context.Context, ev notify.Event) error {
	return s.store.SaveNotification(ctx, ev)
}
