package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/photofeed-be/internal/models"
	"github.com/jmoiron/sqlx"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, userID *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventService records audit events.
type EventService struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sqlx.DB) *EventService {
	return &EventService{db: db, now: time.Now}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, userID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		UserID:    userID,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO events (id, type, level, message, user_id, created_at) VALUES (:id, :type, :level, :message, :user_id, :created_at)",
		event)
	return err
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	events := []models.Event{}
	err := s.db.SelectContext(ctx, &events,
		s.db.Rebind("SELECT id, type, level, message, user_id, created_at FROM events ORDER BY created_at DESC LIMIT ?"), limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}
