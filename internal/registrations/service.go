package registrations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/metrics"
	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
	"github.com/tixora/backend/pkg/queue"
)

const enqueueTimeout = 3 * time.Second

// Store persists new registrations.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	ExistsByEmail(ctx context.Context, eventID uuid.UUID, email string) (bool, error)
	CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
}

// EventLookup loads the event being registered for.
type EventLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Enqueuer schedules the ticket email.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// TokenMinter mints ticket codes.
type TokenMinter interface {
	Mint() (string, error)
}

// Issuer creates registrations and issues their ticket codes.
type Issuer struct {
	store   Store
	events  EventLookup
	minter  TokenMinter
	mail    Enqueuer
	metrics *metrics.Metrics
	logger  *zap.Logger

	pending sync.WaitGroup
}

// NewIssuer creates an Issuer. mail and m may be nil.
func NewIssuer(store Store, events EventLookup, minter TokenMinter, mail Enqueuer, m *metrics.Metrics, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{store: store, events: events, minter: minter, mail: mail, metrics: m, logger: logger}
}

// Register validates in, creates the registration with a fresh ticket code and
// queues the ticket email in the background. Failing to queue the email does
// not fail the registration.
func (s *Issuer) Register(ctx context.Context, eventID uuid.UUID, in RegisterInput) (*models.Registration, error) {
	reg, err := s.register(ctx, eventID, in)
	s.metrics.Registration(outcome(reg, err))
	if err != nil {
		return nil, err
	}
	s.queueTicketEmail(ctx, reg)
	return reg, nil
}

func (s *Issuer) register(ctx context.Context, eventID uuid.UUID, in RegisterInput) (*models.Registration, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("load event: %w", err)
	}
	if !ev.IsPublished {
		return nil, ErrEventNotFound
	}

	// A returning attendee is told they are registered, even when the event
	// has filled up since. The unique index still catches concurrent repeats.
	exists, err := s.store.ExistsByEmail(ctx, eventID, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateRegistration
	}

	waitlist, err := s.needsWaitlist(ctx, ev)
	if err != nil {
		return nil, err
	}

	reg := &models.Registration{
		EventID:    eventID,
		Name:       in.Name,
		Email:      in.Email,
		IsWaitlist: waitlist,
	}
	if in.Phone != "" {
		reg.Phone = &in.Phone
	}

	// One regeneration on a code collision, then give up.
	for attempt := 0; attempt < 2; attempt++ {
		code, err := s.minter.Mint()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenGenerationFailed, err)
		}
		reg.TicketCode = code
		err = s.store.Create(ctx, reg)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, ErrTicketCodeTaken) {
			return nil, err
		}
		s.logger.Warn("ticket code collision", zap.String("event_id", eventID.String()), zap.Int("attempt", attempt+1))
	}
	return nil, ErrTokenGenerationFailed
}

// The capacity check and the insert are separate statements, so concurrent
// registrations can overshoot max_attendees by a few seats.
func (s *Issuer) needsWaitlist(ctx context.Context, ev *models.Event) (bool, error) {
	if ev.MaxAttendees == nil {
		return false, nil
	}
	n, err := s.store.CountActiveByEvent(ctx, ev.ID)
	if err != nil {
		return false, err
	}
	if n < *ev.MaxAttendees {
		return false, nil
	}
	if !ev.EnableWaitlist {
		return false, ErrEventFull
	}
	return true, nil
}

// Wait blocks until ticket emails queued by earlier Register calls have been
// handed to the queue or have failed.
func (s *Issuer) Wait() {
	s.pending.Wait()
}

func (s *Issuer) queueTicketEmail(ctx context.Context, reg *models.Registration) {
	if s.mail == nil {
		return
	}
	payload := queue.EmailPayload{
		EmailType:      models.EmailTypeTicket,
		EventID:        reg.EventID,
		RegistrationID: reg.ID,
		RecipientEmail: reg.Email,
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.mail.EnqueueEmail(ctx, payload); err != nil {
			s.logger.Error("enqueue ticket email failed", zap.Error(err), zap.String("registration_id", payload.RegistrationID.String()))
		}
	}()
}

func outcome(reg *models.Registration, err error) string {
	var ve *ValidationError
	switch {
	case err == nil && reg.IsWaitlist:
		return "waitlisted"
	case err == nil:
		return "created"
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, ErrDuplicateRegistration):
		return "duplicate"
	case errors.Is(err, ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, ErrEventFull):
		return "full"
	default:
		return "error"
	}
}
