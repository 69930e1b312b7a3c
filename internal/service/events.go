package service

import (
	"context"
	"fmt"
	"time"

	"github.com/plazahq/plaza/api/internal/model"
)

// EventRepositoryInterface defines the repository interface
type EventRepositoryInterface interface {
	GetUpcoming(ctx context.Context, from time.Time, horizon time.Duration) ([]*model.Event, error)
	UpdateStatus(ctx context.Context, eventID, status string) error
}

// EventService handles the event business logic the scheduling subsystem
// consumes: listing upcoming events and applying status transitions.
type EventService struct {
	repo    EventRepositoryInterface
	horizon time.Duration
}

// NewEventService creates a new event service. horizon bounds how far
// ahead GetUpcomingEvents looks (default 7 days).
func NewEventService(repo EventRepositoryInterface, horizon time.Duration) *EventService {
	if horizon <= 0 {
		horizon = 7 * 24 * time.Hour
	}
	return &EventService{repo: repo, horizon: horizon}
}

// GetUpcomingEvents returns published events starting within the horizon.
func (s *EventService) GetUpcomingEvents(ctx context.Context) ([]*model.Event, error) {
	return s.repo.GetUpcoming(ctx, time.Now(), s.horizon)
}

// UpdateEventStatus transitions an event to a new status.
func (s *EventService) UpdateEventStatus(ctx context.Context, eventID, status string) error {
	if !model.ValidEventStatus(status) {
		return fmt.Errorf("%w: %s", ErrInvalidEventStatus, status)
	}
	return s.repo.UpdateStatus(ctx, eventID, status)
}
