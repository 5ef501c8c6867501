package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/mailer"
	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
	"github.com/tixora/backend/pkg/queue"
)

// Jobs is the queue the processor drains.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Sender delivers rendered email.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// RegistrationLoader loads the registration an email is about.
type RegistrationLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
}

// EventLoader loads the event an email is about.
type EventLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// LogWriter records delivery attempts.
type LogWriter interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// TicketURLFunc builds the public ticket link for a code.
type TicketURLFunc func(code string) string

// EmailProcessor processes email jobs: load the registration, render the ticket
// email, send it and record the outcome in email_logs.
type EmailProcessor struct {
	jobs      Jobs
	regs      RegistrationLoader
	events    EventLoader
	sender    Sender
	logs      LogWriter
	ticketURL TicketURLFunc
	backoff   time.Duration
	logger    *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(jobs Jobs, regs RegistrationLoader, events EventLoader, sender Sender, logs LogWriter, ticketURL TicketURLFunc, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{
		jobs:      jobs,
		regs:      regs,
		events:    events,
		sender:    sender,
		logs:      logs,
		ticketURL: ticketURL,
		backoff:   queue.RetryBackoff,
		logger:    logger,
	}
}

// Process executes one email job. A returned error means the job should be retried.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}
	if payload.EmailType != models.EmailTypeTicket {
		p.logger.Warn("dropping unsupported email type", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
		return nil
	}

	reg, err := p.regs.GetByID(ctx, payload.RegistrationID)
	if errors.Is(err, database.ErrNotFound) {
		p.logger.Info("registration gone, dropping email", zap.String("registration_id", payload.RegistrationID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load registration: %w", err)
	}
	ev, err := p.events.GetByID(ctx, reg.EventID)
	if errors.Is(err, database.ErrNotFound) {
		p.logger.Info("event gone, dropping email", zap.String("event_id", reg.EventID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}

	msg, err := mailer.TicketMessage(reg.Email, mailer.TicketData{
		AttendeeName: reg.Name,
		EventTitle:   ev.Title,
		EventDate:    ev.EventDate,
		EventTime:    ev.EventTime,
		Location:     ev.Location,
		TicketCode:   reg.TicketCode,
		TicketURL:    p.ticketURL(reg.TicketCode),
		Waitlisted:   reg.IsWaitlist,
	})
	if err != nil {
		return err
	}

	entry := &models.EmailLog{
		EventID:        &ev.ID,
		RegistrationID: &reg.ID,
		EmailType:      payload.EmailType,
		RecipientEmail: reg.Email,
		Subject:        msg.Subject,
	}
	if !p.sender.Enabled() {
		p.logger.Info("email API key not configured, skipping email", zap.String("registration_id", reg.ID.String()))
		entry.Status = models.EmailLogStatusSkipped
		p.record(ctx, entry)
		return nil
	}

	_, sendErr := p.sender.Send(ctx, msg)
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	} else {
		now := time.Now()
		entry.Status = models.EmailLogStatusSent
		entry.SentAt = &now
	}
	p.record(ctx, entry)
	if sendErr != nil {
		return fmt.Errorf("send: %w", sendErr)
	}
	p.logger.Info("ticket email sent", zap.String("registration_id", reg.ID.String()))
	return nil
}

func (p *EmailProcessor) record(ctx context.Context, entry *models.EmailLog) {
	if err := p.logs.Create(ctx, entry); err != nil {
		p.logger.Error("write email log failed", zap.Error(err), zap.String("status", entry.Status))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.backoff):
	}
}
