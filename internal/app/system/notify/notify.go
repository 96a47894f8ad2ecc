// Package notify is the best-effort notification sink. Workflows call
// it after their writes have landed; a failed insert is logged and
// swallowed so a notification hiccup can never fail or roll back the
// operation that triggered it.
package notify

import (
	"context"

	notificationstore "github.com/dalemusser/hackhub/internal/app/store/notifications"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Sink struct {
	store *notificationstore.Store
}

func NewSink(store *notificationstore.Store) *Sink {
	return &Sink{store: store}
}

// Event is one notification to record. Recipients is used with
// models.RecipientUsers; InstituteCode with models.RecipientSpocs.
type Event struct {
	Title   string
	Message string
	Type    string // info | success | warning

	RecipientType string
	Recipients    []primitive.ObjectID
	InstituteCode string

	TriggeredBy primitive.ObjectID

	TeamID        *primitive.ObjectID
	InviteID      *primitive.ObjectID
	JoinRequestID *primitive.ObjectID
}

// Publish records the event. Never returns an error.
func (s *Sink) Publish(ctx context.Context, ev Event) {
	if ev.Type == "" {
		ev.Type = "info"
	}
	n := &models.Notification{
		Title:         ev.Title,
		Message:       ev.Message,
		Type:          ev.Type,
		RecipientType: ev.RecipientType,
		Recipients:    ev.Recipients,
		InstituteCode: ev.InstituteCode,
		TriggeredBy:   ev.TriggeredBy,
		TeamID:        ev.TeamID,
		InviteID:      ev.InviteID,
		JoinRequestID: ev.JoinRequestID,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		zap.L().Warn("notification insert failed",
			zap.String("title", ev.Title),
			zap.String("recipient_type", ev.RecipientType),
			zap.Error(err))
	}
}
