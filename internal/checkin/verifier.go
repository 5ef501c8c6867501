// Package checkin redeems tickets at the door.
//
// A registration moves from not checked in to checked in exactly once. The
// transition is a single conditional UPDATE guarded by checked_in_at IS NULL,
// so concurrent scans of one ticket from several devices agree on one winner
// and a caller that goes away mid-request leaves the row either untouched or
// fully checked in.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/metrics"
	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/internal/tickets"
	"github.com/tixora/backend/pkg/database"
)

// Store is the registration persistence the verifier needs. MarkCheckedIn
// and BulkMarkCheckedIn must only write rows whose checked_in_at is NULL.
type Store interface {
	GetByTicketCode(ctx context.Context, code string) (*models.Registration, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	BulkMarkCheckedIn(ctx context.Context, eventID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error)
}

// Publisher fans successful check-ins out to live dashboards.
type Publisher interface {
	PublishCheckIn(ctx context.Context, eventID uuid.UUID, res Result)
	PublishBulkCheckIn(ctx context.Context, eventID uuid.UUID, count int)
}

// Verifier redeems ticket codes against an event.
type Verifier struct {
	store   Store
	pub     Publisher
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewVerifier creates a Verifier. pub and m may be nil.
func NewVerifier(store Store, pub Publisher, m *metrics.Metrics, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{store: store, pub: pub, metrics: m, logger: logger, now: time.Now}
}

// Verify checks token in at eventID. Unknown, foreign and already used
// tickets are reported through Result.Status with a nil error. A non-nil
// error means the store failed; the result is then TRANSIENT_ERROR.
func (v *Verifier) Verify(ctx context.Context, eventID uuid.UUID, token string) (Result, error) {
	res, err := v.verify(ctx, eventID, token)
	if err != nil {
		v.logger.Error("check-in failed", zap.Error(err), zap.String("event_id", eventID.String()))
		res = Result{Status: StatusTransientError}
	}
	v.metrics.CheckIn(string(res.Status))
	if res.Status == StatusSuccess && v.pub != nil {
		v.pub.PublishCheckIn(context.WithoutCancel(ctx), eventID, res)
	}
	return res, err
}

func (v *Verifier) verify(ctx context.Context, eventID uuid.UUID, token string) (Result, error) {
	code := tickets.Normalize(token)
	if !tickets.IsWellFormed(code) {
		return Result{Status: StatusInvalidToken}, nil
	}

	reg, err := v.store.GetByTicketCode(ctx, code)
	if errors.Is(err, database.ErrNotFound) {
		return Result{Status: StatusInvalidToken}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup ticket: %w", err)
	}
	if reg.EventID != eventID {
		return Result{Status: StatusWrongEvent}, nil
	}
	if reg.CheckedIn() {
		return alreadyCheckedIn(reg), nil
	}

	at := v.stamp()
	won, err := v.store.MarkCheckedIn(ctx, reg.ID, at)
	if err != nil {
		return Result{}, fmt.Errorf("mark checked in: %w", err)
	}
	if !won {
		// Another scanner committed first; report its timestamp.
		winner, err := v.store.GetByID(ctx, reg.ID)
		if err != nil {
			return Result{}, fmt.Errorf("reload registration: %w", err)
		}
		return alreadyCheckedIn(winner), nil
	}
	return Result{Status: StatusSuccess, Attendee: attendee(reg), CheckedInAt: &at}, nil
}

// stamp returns the check-in time at the precision timestamptz stores, so a
// SUCCESS result reports the same instant later scans read back.
func (v *Verifier) stamp() time.Time {
	return v.now().UTC().Truncate(time.Microsecond)
}

// BulkCheckIn checks in every listed registration of eventID that is not
// checked in yet and returns how many it transitioned. Registrations already
// checked in, or belonging to another event, are skipped.
func (v *Verifier) BulkCheckIn(ctx context.Context, eventID uuid.UUID, ids []uuid.UUID) (int, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := v.store.BulkMarkCheckedIn(ctx, eventID, ids, v.stamp())
	if err != nil {
		v.logger.Error("bulk check-in failed", zap.Error(err), zap.String("event_id", eventID.String()), zap.Int("requested", len(ids)))
		v.metrics.CheckIn(string(StatusTransientError))
		return 0, fmt.Errorf("bulk check-in: %w", err)
	}
	count := int(n)
	v.metrics.CheckInN(string(StatusSuccess), count)
	v.logger.Info("bulk check-in", zap.String("event_id", eventID.String()), zap.Int("requested", len(ids)), zap.Int("checked_in", count))
	if count > 0 && v.pub != nil {
		v.pub.PublishBulkCheckIn(context.WithoutCancel(ctx), eventID, count)
	}
	return count, nil
}

func alreadyCheckedIn(reg *models.Registration) Result {
	return Result{Status: StatusAlreadyCheckedIn, Attendee: attendee(reg), CheckedInAt: reg.CheckedInAt}
}

func attendee(reg *models.Registration) *Attendee {
	return &Attendee{RegistrationID: reg.ID, Name: reg.Name, Email: reg.Email, Waitlisted: reg.IsWaitlist}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
