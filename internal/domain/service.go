// Package domain defines the business logic for activity signups.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"example.com/mergington/internal/events"
	"example.com/mergington/internal/observability"
	"example.com/mergington/internal/outbox"
)

var (
	// ErrInvalidEmail is returned when an email fails validation.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrActivityNotFound is returned when an activity name is not in the store.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadySignedUp is returned when the email is already on the roster.
	ErrAlreadySignedUp = errors.New("email already signed up for this activity")
	// ErrActivityFull is returned when the roster has reached max_participants.
	ErrActivityFull = errors.New("activity is full")
	// ErrParticipantNotFound is returned when unregistering an email that is not on the roster.
	ErrParticipantNotFound = errors.New("participant not found in this activity")
)

// Store holds the activity catalogue. Update runs fn with exclusive access to
// the named activity; once fn returns nil the change is stored and a copy of
// the record is returned.
type Store interface {
	Snapshot(ctx context.Context) map[string]Activity
	Update(ctx context.Context, name string, fn func(*Activity) error) (Activity, error)
}

// Result describes a successful roster change.
type Result struct {
	Activity     string
	Email        string
	Participants int
	Message      string
}

// Service orchestrates signup workflows.
type Service struct {
	store  Store
	events outbox.Publisher
	now    func() time.Time
}

// NewService constructs a Service. A nil publisher disables roster events.
func NewService(store Store, publisher outbox.Publisher) *Service {
	if publisher == nil {
		publisher = outbox.NoopPublisher{}
	}
	return &Service{
		store:  store,
		events: publisher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListActivities returns a snapshot of every activity keyed by name.
func (s *Service) ListActivities(ctx context.Context) map[string]Activity {
	return s.store.Snapshot(ctx)
}

// Signup adds the normalized email to the activity roster.
func (s *Service) Signup(ctx context.Context, activityName, rawEmail string) (Result, error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		observability.RecordRosterChange(observability.OpSignup, outcome(err))
		return Result{}, err
	}

	updated, err := s.store.Update(ctx, activityName, func(a *Activity) error {
		if a.IndexOf(email) >= 0 {
			return ErrAlreadySignedUp
		}
		if !a.MaxParticipants.Admits(len(a.Participants)) {
			return ErrActivityFull
		}
		a.Participants = append(a.Participants, email)
		s.committed(ctx, events.ParticipantSignedUp, activityName, email, *a)
		return nil
	})
	observability.RecordRosterChange(observability.OpSignup, outcome(err))
	if err != nil {
		return Result{}, err
	}

	return Result{
		Activity:     activityName,
		Email:        email,
		Participants: len(updated.Participants),
		Message:      fmt.Sprintf("Signed up %s for %s", email, activityName),
	}, nil
}

// Unregister removes the normalized email from the activity roster, keeping
// the order of the remaining participants.
func (s *Service) Unregister(ctx context.Context, activityName, rawEmail string) (Result, error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		observability.RecordRosterChange(observability.OpUnregister, outcome(err))
		return Result{}, err
	}

	updated, err := s.store.Update(ctx, activityName, func(a *Activity) error {
		idx := a.IndexOf(email)
		if idx < 0 {
			return ErrParticipantNotFound
		}
		a.Participants = append(a.Participants[:idx], a.Participants[idx+1:]...)
		s.committed(ctx, events.ParticipantUnregistered, activityName, email, *a)
		return nil
	})
	observability.RecordRosterChange(observability.OpUnregister, outcome(err))
	if err != nil {
		return Result{}, err
	}

	return Result{
		Activity:     activityName,
		Email:        email,
		Participants: len(updated.Participants),
		Message:      fmt.Sprintf("Unregistered %s from %s", email, activityName),
	}, nil
}

// committed runs inside the store's critical section once a change is final,
// so gauge updates and enqueued events follow the order of roster changes.
// The store never rejects a change after fn returns nil.
func (s *Service) committed(ctx context.Context, eventType, activityName, email string, a Activity) {
	observability.RecordParticipants(activityName, len(a.Participants))

	evt := events.RosterChanged{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		Activity:         activityName,
		Email:            email,
		ParticipantCount: len(a.Participants),
		OccurredAt:       s.now(),
	}
	if limit, ok := a.MaxParticipants.Limit(); ok {
		evt.MaxParticipants = &limit
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		log.Printf("roster event %s for %q not published: %v", eventType, activityName, err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, ErrActivityNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadySignedUp):
		return "already_signed_up"
	case errors.Is(err, ErrActivityFull):
		return "activity_full"
	case errors.Is(err, ErrParticipantNotFound):
		return "participant_not_found"
	default:
		return "error"
	}
}
