// Package dispatcher runs the polling loop that turns pending
// notification records into delivery attempts.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/vitacall/notifier/internal/enrich"
	"github.com/vitacall/notifier/internal/ics"
	"github.com/vitacall/notifier/internal/model"
	"github.com/vitacall/notifier/internal/provider"
	"github.com/vitacall/notifier/internal/template"
)

type recordStore interface {
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]model.NotificationRecord, error)
	MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string, at time.Time) error
	Reschedule(ctx context.Context, id uuid.UUID, lastError string, nextAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ReleaseStale(ctx context.Context, claimedBefore time.Time) (int64, error)
}

type userDirectory interface {
	GetUser(ctx context.Context, id int64) (enrich.User, error)
}

type enricher interface {
	Enrich(ctx context.Context, rec model.NotificationRecord, user enrich.User) (map[string]string, error)
}

type templateRegistry interface {
	Resolve(trigger model.TriggerCode, locale string) (*template.Template, error)
}

type sender interface {
	Send(ctx context.Context, req provider.Request) (string, error)
}

// Config tunes the polling loop.
type Config struct {
	Interval     time.Duration // pause between poll cycles
	BatchSize    int           // max records claimed per cycle
	Workers      int           // bound on in-flight sends per cycle
	SendTimeout  time.Duration // per-record processing budget
	ClaimTimeout time.Duration // processing claims older than this are released
}

// Dispatcher claims due records and drives each through
// enrich → render → send → status transition. Per-record failures are
// contained to the record; only configuration errors (missing
// default-locale template) abort the run.
type Dispatcher struct {
	store    recordStore
	users    userDirectory
	enricher enricher
	registry templateRegistry
	sender   sender

	cfg      Config
	strategy retry.Strategy
	now      func() time.Time
}

func New(store recordStore, users userDirectory, e enricher, registry templateRegistry, s sender, cfg Config, strategy retry.Strategy) *Dispatcher {
	return &Dispatcher{
		store:    store,
		users:    users,
		enricher: e,
		registry: registry,
		sender:   s,
		cfg:      cfg,
		strategy: strategy,
		now:      time.Now,
	}
}

// Run polls until the context is cancelled. It returns a non-nil error
// only for configuration-class failures that need operator attention.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("dispatcher stopped")
			return nil
		case <-ticker.C:
			if err := d.RunCycle(ctx); err != nil {
				if errors.Is(err, model.ErrTemplateMissing) {
					zlog.Logger.Error().Err(err).Msg("dispatcher halting: template configuration error")
					return err
				}

				zlog.Logger.Error().Err(err).Msg("dispatch cycle failed")
			}
		}
	}
}

// RunCycle executes one poll cycle: release stale claims, claim a batch
// of due records and process them with bounded concurrency.
func (d *Dispatcher) RunCycle(ctx context.Context) error {
	now := d.now()

	released, err := d.store.ReleaseStale(ctx, now.Add(-d.cfg.ClaimTimeout))
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to release stale claims")
	} else if released > 0 {
		zlog.Logger.Warn().Int64("count", released).Msg("released stale notification claims")
	}

	recs, err := d.store.ClaimDue(ctx, d.cfg.BatchSize, now)
	if err != nil {
		return fmt.Errorf("claim due notifications: %w", err)
	}

	if len(recs) == 0 {
		return nil
	}

	var (
		wg    sync.WaitGroup
		sem   = make(chan struct{}, d.cfg.Workers)
		fatal = make(chan error, len(recs))
	)

	for _, rec := range recs {
		wg.Add(1)
		sem <- struct{}{}

		go func(rec model.NotificationRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := d.process(ctx, rec); err != nil {
				fatal <- err
			}
		}(rec)
	}

	wg.Wait()
	close(fatal)

	// Per-record errors were already handled; only configuration
	// errors surface here.
	for err := range fatal {
		if errors.Is(err, model.ErrTemplateMissing) {
			return err
		}
	}

	return nil
}

// process drives one claimed record through the pipeline. The returned
// error is non-nil only for configuration failures; everything else ends
// in a status transition on the record.
func (d *Dispatcher) process(ctx context.Context, rec model.NotificationRecord) error {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	user, err := d.users.GetUser(callCtx, rec.RecipientUserID)
	if err != nil {
		if errors.Is(err, enrich.ErrNotFound) {
			d.failPermanent(ctx, rec, fmt.Sprintf("recipient %d not found", rec.RecipientUserID))
			return nil
		}

		d.retryOrFail(ctx, rec, fmt.Sprintf("recipient lookup: %v", err))
		return nil
	}

	merged, err := d.enricher.Enrich(callCtx, rec, user)
	if err != nil {
		if errors.Is(err, model.ErrEnrichmentNotFound) {
			// The referenced entity is gone and will not come back.
			d.failPermanent(ctx, rec, err.Error())
			return nil
		}

		d.retryOrFail(ctx, rec, fmt.Sprintf("enrichment: %v", err))
		return nil
	}

	tmpl, err := d.registry.Resolve(rec.TriggerCode, rec.Locale)
	if err != nil {
		if errors.Is(err, model.ErrTemplateMissing) {
			// Configuration error. The record stays claimed and will be
			// released by the stale-claim sweep once the template is fixed.
			return err
		}

		d.failPermanent(ctx, rec, fmt.Sprintf("template resolve: %v", err))
		return nil
	}

	rendered, err := tmpl.Render(merged)
	if err != nil {
		d.failPermanent(ctx, rec, fmt.Sprintf("render: %v", err))
		return nil
	}

	req := provider.Request{
		Channel:  rec.Channel,
		Category: rec.TriggerCode.Category(),
		To:       recipientAddress(rec.Channel, user),
		Subject:  rendered.Subject,
		HTML:     rendered.HTML,
		Text:     rendered.Text,
	}

	if rec.TriggerCode.HasCalendarInvite() && rec.Channel == model.ChannelEmail {
		if att, ok := d.calendarInvite(rec, merged); ok {
			req.Attachments = append(req.Attachments, att)
		}
	}

	msgID, err := d.sender.Send(callCtx, req)
	if err != nil {
		var sendErr *provider.SendError
		if errors.As(err, &sendErr) && !sendErr.Retryable {
			d.failPermanent(ctx, rec, sendErr.Error())
			return nil
		}

		d.retryOrFail(ctx, rec, err.Error())
		return nil
	}

	if err := d.store.MarkSent(ctx, rec.ID, msgID, d.now()); err != nil {
		zlog.Logger.Error().Err(err).Str("id", rec.ID.String()).Msg("failed to mark notification sent")
		return nil
	}

	zlog.Logger.Info().
		Str("id", rec.ID.String()).
		Str("trigger", string(rec.TriggerCode)).
		Str("channel", rec.Channel).
		Msg("notification sent")

	return nil
}

// retryOrFail reschedules the record with exponential backoff, or fails
// it permanently once the attempt cap is reached.
func (d *Dispatcher) retryOrFail(ctx context.Context, rec model.NotificationRecord, reason string) {
	attempt := rec.AttemptCount + 1 // counting this one

	if attempt >= d.strategy.Attempts {
		if err := d.store.MarkFailed(ctx, rec.ID, reason); err != nil {
			zlog.Logger.Error().Err(err).Str("id", rec.ID.String()).Msg("failed to mark notification failed")
		}

		zlog.Logger.Warn().
			Str("id", rec.ID.String()).
			Int("attempts", attempt).
			Str("reason", reason).
			Msg("notification failed after retries")

		return
	}

	nextAt := d.now().Add(d.backoffDelay(attempt))

	if err := d.store.Reschedule(ctx, rec.ID, reason, nextAt); err != nil {
		zlog.Logger.Error().Err(err).Str("id", rec.ID.String()).Msg("failed to reschedule notification")
		return
	}

	zlog.Logger.Warn().
		Str("id", rec.ID.String()).
		Int("attempt", attempt).
		Time("next_at", nextAt).
		Str("reason", reason).
		Msg("notification rescheduled")
}

func (d *Dispatcher) failPermanent(ctx context.Context, rec model.NotificationRecord, reason string) {
	if err := d.store.MarkFailed(ctx, rec.ID, reason); err != nil {
		zlog.Logger.Error().Err(err).Str("id", rec.ID.String()).Msg("failed to mark notification failed")
		return
	}

	zlog.Logger.Warn().
		Str("id", rec.ID.String()).
		Str("trigger", string(rec.TriggerCode)).
		Str("reason", reason).
		Msg("notification failed permanently")
}

// backoffDelay grows the base delay by the strategy's backoff factor per
// attempt already made.
func (d *Dispatcher) backoffDelay(attempt int) time.Duration {
	delay := d.strategy.Delay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * d.strategy.Backoff)
	}

	return delay
}

// calendarInvite builds the .ics attachment for booking-related emails.
// Attachment failures degrade gracefully: the email still goes out,
// just without the invite.
func (d *Dispatcher) calendarInvite(rec model.NotificationRecord, merged map[string]string) (provider.Attachment, bool) {
	start, err := time.Parse(time.RFC3339, merged["appointment_datetime_utc"])
	if err != nil {
		zlog.Logger.Warn().
			Str("id", rec.ID.String()).
			Str("value", merged["appointment_datetime_utc"]).
			Msg("skipping calendar invite: unparseable appointment time")

		return provider.Attachment{}, false
	}

	content, err := ics.Build(ics.Invite{
		UID:         fmt.Sprintf("appointment-%s@vitacall", merged["appointment_id"]),
		Title:       "Telemedicine Consultation - " + merged["doctor_name"],
		Description: "Video consultation with " + merged["doctor_name"] + ". Join through your VitaCall dashboard.",
		Start:       start,
		Location:    "Video Consultation - VitaCall Platform",
	})
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("id", rec.ID.String()).Msg("skipping calendar invite")
		return provider.Attachment{}, false
	}

	return provider.Attachment{
		Filename:    fmt.Sprintf("appointment-%s.ics", merged["appointment_id"]),
		Content:     []byte(content),
		ContentType: "text/calendar",
	}, true
}

func recipientAddress(channel string, user enrich.User) string {
	if channel == model.ChannelSMS {
		return user.Phone
	}

	return user.Email
}
