package dispatcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"github.com/vitacall/notifier/internal/enrich"
	"github.com/vitacall/notifier/internal/model"
	"github.com/vitacall/notifier/internal/provider"
	"github.com/vitacall/notifier/internal/repository/memstore"
	"github.com/vitacall/notifier/internal/template"
)

const baseURL = "https://vitacall.example"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeUsers struct {
	users map[int64]enrich.User
	err   error
}

func (f *fakeUsers) GetUser(_ context.Context, id int64) (enrich.User, error) {
	if f.err != nil {
		return enrich.User{}, f.err
	}

	u, ok := f.users[id]
	if !ok {
		return enrich.User{}, enrich.ErrNotFound
	}

	return u, nil
}

type fakeAppointments struct {
	summary enrich.AppointmentSummary
	err     error
}

func (f *fakeAppointments) GetAppointmentSummary(context.Context, string) (enrich.AppointmentSummary, error) {
	if f.err != nil {
		return enrich.AppointmentSummary{}, f.err
	}

	return f.summary, nil
}

type fakeSender struct {
	mu   sync.Mutex
	reqs []provider.Request
	errs []error
	id   string
}

func (f *fakeSender) Send(_ context.Context, req provider.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reqs = append(f.reqs, req)

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]

		if err != nil {
			return "", err
		}
	}

	return f.id, nil
}

func (f *fakeSender) requests() []provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]provider.Request, len(f.reqs))
	copy(out, f.reqs)
	return out
}

type fixture struct {
	store  *memstore.Store
	clock  *fakeClock
	sender *fakeSender
	disp   *Dispatcher
}

func newFixture(t *testing.T, strategy retry.Strategy) *fixture {
	t.Helper()

	registry, err := template.NewRegistry("en")
	require.NoError(t, err)

	clock := newFakeClock()
	store := memstore.New()
	sender := &fakeSender{id: "msg-123"}

	users := &fakeUsers{users: map[int64]enrich.User{
		1: {ID: 1, Email: "anna@example.com", Phone: "+33612345678", FirstName: "Anna", Locale: "en", Timezone: "Europe/Paris"},
		2: {ID: 2, Email: "doctor@example.com", FirstName: "Marc", LastName: "Dubois", Locale: "fr"},
	}}

	appointments := &fakeAppointments{summary: enrich.AppointmentSummary{
		ID:                   "42",
		DoctorName:           "Dr. Dubois",
		DoctorSpecialization: "Dermatology",
		PatientFirstName:     "Anna",
		StartUTC:             clock.Now().Add(48 * time.Hour),
		JoinLink:             baseURL + "/consultation/42",
		Price:                "35 EUR",
	}}

	disp := New(store, users, enrich.New(appointments, baseURL), registry, sender, Config{
		Interval:     time.Minute,
		BatchSize:    10,
		Workers:      2,
		SendTimeout:  5 * time.Second,
		ClaimTimeout: 5 * time.Minute,
	}, strategy)
	disp.now = clock.Now

	return &fixture{store: store, clock: clock, sender: sender, disp: disp}
}

func defaultStrategy() retry.Strategy {
	return retry.Strategy{Attempts: 3, Delay: 2 * time.Minute, Backoff: 2}
}

func enqueue(t *testing.T, f *fixture, rec model.NotificationRecord) model.NotificationRecord {
	t.Helper()

	if rec.ScheduledFor.IsZero() {
		rec.ScheduledFor = f.clock.Now().Add(-time.Second)
	}

	id, err := f.store.Enqueue(context.Background(), rec)
	require.NoError(t, err)

	rec.ID = id
	return rec
}

func bookingRecord() model.NotificationRecord {
	return model.NotificationRecord{
		RecipientUserID: 1,
		TriggerCode:     model.TriggerBookConf,
		Channel:         model.ChannelEmail,
		TemplateKey:     "booking_confirmation",
		CorrelationID:   "42",
		MergeData:       map[string]string{"price": "35 EUR"},
		Locale:          "en",
	}
}

func TestRunCycle_SendsDueNotification(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	rec := enqueue(t, f, bookingRecord())

	require.NoError(t, f.disp.RunCycle(ctx))

	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, model.StatusSent, got.Status)
	assert.Equal(t, "msg-123", got.ProviderMessageID)
	assert.Equal(t, 1, got.AttemptCount)
	require.NotNil(t, got.SentAt)

	reqs := f.sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "anna@example.com", reqs[0].To)
	assert.Contains(t, reqs[0].Subject, "Confirmed")
	assert.Contains(t, reqs[0].HTML, "Dr. Dubois")

	// Booking confirmations carry the calendar invite.
	require.Len(t, reqs[0].Attachments, 1)
	assert.Equal(t, "appointment-42.ics", reqs[0].Attachments[0].Filename)
	assert.Contains(t, string(reqs[0].Attachments[0].Content), "BEGIN:VCALENDAR")

	// The same event enqueued again is rejected while the first is not failed.
	_, err = f.store.Enqueue(ctx, bookingRecord())
	assert.ErrorIs(t, err, model.ErrDuplicateNotification)
}

func TestRunCycle_SMSNotification(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	rec := enqueue(t, f, model.NotificationRecord{
		RecipientUserID: 1,
		TriggerCode:     model.TriggerRem5mPat,
		Channel:         model.ChannelSMS,
		TemplateKey:     "sms_patient_5m",
		CorrelationID:   "42",
		Locale:          "en",
	})

	require.NoError(t, f.disp.RunCycle(ctx))

	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, got.Status)

	reqs := f.sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, model.ChannelSMS, reqs[0].Channel)
	assert.Equal(t, "+33612345678", reqs[0].To)
	assert.Contains(t, reqs[0].Text, "Dr. Dubois")
	assert.Empty(t, reqs[0].Attachments)
}

func TestRunCycle_NotYetDue(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	rec := bookingRecord()
	rec.ScheduledFor = f.clock.Now().Add(time.Hour)
	rec = enqueue(t, f, rec)

	require.NoError(t, f.disp.RunCycle(ctx))

	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Empty(t, f.sender.requests())
}

func TestRunCycle_RetryBackoffThenSuccess(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	f.sender.errs = []error{
		&provider.SendError{Retryable: true, Reason: "rate limited", Err: errors.New("429")},
		&provider.SendError{Retryable: true, Reason: "rate limited", Err: errors.New("429")},
		nil,
	}

	rec := enqueue(t, f, bookingRecord())

	// First attempt fails; rescheduled with the base delay.
	require.NoError(t, f.disp.RunCycle(ctx))

	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
	assert.Contains(t, got.LastError, "rate limited")

	firstNext := got.ScheduledFor
	assert.Equal(t, f.clock.Now().Add(2*time.Minute), firstNext)

	// Second attempt fails; the delay doubles.
	f.clock.Advance(2 * time.Minute)
	require.NoError(t, f.disp.RunCycle(ctx))

	got, err = f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, 2, got.AttemptCount)
	assert.Equal(t, f.clock.Now().Add(4*time.Minute), got.ScheduledFor)
	assert.True(t, got.ScheduledFor.After(firstNext))

	// Third attempt succeeds.
	f.clock.Advance(4 * time.Minute)
	require.NoError(t, f.disp.RunCycle(ctx))

	got, err = f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, got.Status)
	assert.Equal(t, 3, got.AttemptCount)
}

func TestRunCycle_AttemptCapExhausted(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	f.sender.errs = []error{
		&provider.SendError{Retryable: true, Reason: "unavailable", Err: errors.New("503")},
		&provider.SendError{Retryable: true, Reason: "unavailable", Err: errors.New("503")},
		&provider.SendError{Retryable: true, Reason: "unavailable", Err: errors.New("503")},
	}

	rec := enqueue(t, f, bookingRecord())

	for i := 0; i < 3; i++ {
		require.NoError(t, f.disp.RunCycle(ctx))
		f.clock.Advance(10 * time.Minute)
	}

	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, 3, got.AttemptCount)
	assert.Contains(t, got.LastError, "unavailable")
	assert.Len(t, f.sender.requests(), 3)

	// A failed terminal record frees the dedup slot.
	_, err = f.store.Enqueue(ctx, bookingRecord())
	assert.NoError(t, err)
}

func TestRunCycle_NonRetryableFailsImmediately(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	f.sender.errs = []error{
		&provider.SendError{Retryable: false, Reason: "invalid recipient", Err: errors.New("400")},
	}

	rec := enqueue(t, f, bookingRecord())

	require.NoError(t, f.disp.RunCycle(ctx))

	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
	assert.Len(t, f.sender.requests(), 1)
}

func TestRunCycle_RecipientGoneFailsPermanently(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	rec := bookingRecord()
	rec.RecipientUserID = 999
	rec = enqueue(t, f, rec)

	require.NoError(t, f.disp.RunCycle(ctx))

	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Contains(t, got.LastError, "not found")
	assert.Empty(t, f.sender.requests())
}

func TestRunCycle_AppointmentGoneFailsPermanently(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	registry, err := template.NewRegistry("en")
	require.NoError(t, err)

	users := &fakeUsers{users: map[int64]enrich.User{1: {ID: 1, Email: "anna@example.com", FirstName: "Anna"}}}
	gone := enrich.New(&fakeAppointments{err: enrich.ErrNotFound}, baseURL)

	disp := New(f.store, users, gone, registry, f.sender, f.disp.cfg, defaultStrategy())
	disp.now = f.clock.Now

	rec := enqueue(t, f, bookingRecord())

	require.NoError(t, disp.RunCycle(ctx))

	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Contains(t, got.LastError, "enrichment source not found")
	assert.Empty(t, f.sender.requests())
}

func TestRunCycle_MissingRequiredFieldFailsPermanently(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	// password_reset requires a reset_link the producer must supply.
	rec := enqueue(t, f, model.NotificationRecord{
		RecipientUserID: 1,
		TriggerCode:     model.TriggerPasswordReset,
		Channel:         model.ChannelEmail,
		TemplateKey:     "password_reset",
		Locale:          "en",
	})

	require.NoError(t, f.disp.RunCycle(ctx))

	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Contains(t, got.LastError, "reset_link")
	assert.Empty(t, f.sender.requests())
}

func TestRunCycle_SecurityEmailDisablesTracking(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	enqueue(t, f, model.NotificationRecord{
		RecipientUserID: 1,
		TriggerCode:     model.TriggerPasswordReset,
		Channel:         model.ChannelEmail,
		TemplateKey:     "password_reset",
		MergeData:       map[string]string{"reset_link": baseURL + "/reset/abc"},
		Locale:          "en",
	})

	require.NoError(t, f.disp.RunCycle(ctx))

	reqs := f.sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, model.CategorySecurity, reqs[0].Category)
}

type missingTemplates struct{}

func (missingTemplates) Resolve(trigger model.TriggerCode, locale string) (*template.Template, error) {
	return nil, model.ErrTemplateMissing
}

func TestRunCycle_TemplateMissingHalts(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	users := &fakeUsers{users: map[int64]enrich.User{1: {ID: 1, Email: "anna@example.com", FirstName: "Anna"}}}
	appointments := &fakeAppointments{summary: enrich.AppointmentSummary{ID: "42", DoctorName: "Dr. Dubois", StartUTC: f.clock.Now().Add(time.Hour), JoinLink: baseURL + "/consultation/42"}}

	disp := New(f.store, users, enrich.New(appointments, baseURL), missingTemplates{}, f.sender, f.disp.cfg, defaultStrategy())
	disp.now = f.clock.Now

	rec := enqueue(t, f, bookingRecord())

	err := disp.RunCycle(ctx)
	assert.ErrorIs(t, err, model.ErrTemplateMissing)

	// The record stays claimed; the stale sweep will recover it once the
	// template set is fixed.
	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, got.Status)
	assert.Equal(t, 0, got.AttemptCount)
}

func TestRunCycle_ReleasesStaleClaims(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	rec := enqueue(t, f, bookingRecord())

	// Claim, then crash: the record is stuck in processing.
	_, err := f.store.ClaimDue(ctx, 10, f.clock.Now())
	require.NoError(t, err)

	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusProcessing, got.Status)

	// Within the claim timeout nothing is released.
	f.clock.Advance(time.Minute)
	require.NoError(t, f.disp.RunCycle(ctx))
	assert.Empty(t, f.sender.requests())

	// Past the timeout the sweep releases it and the same cycle delivers.
	f.clock.Advance(10 * time.Minute)
	require.NoError(t, f.disp.RunCycle(ctx))

	got, err = f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
}

func TestRunCycle_UnparseableAppointmentTimeSkipsInvite(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	rec := bookingRecord()
	rec.MergeData = map[string]string{
		"appointment_datetime_utc":   "next tuesday",
		"appointment_datetime_local": "Tuesday at 14:00",
		"doctor_name":                "Dr. Dubois",
		"join_link":                  baseURL + "/consultation/42",
	}
	rec = enqueue(t, f, rec)

	require.NoError(t, f.disp.RunCycle(ctx))

	// Attachment failure degrades gracefully: sent, no invite.
	got, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, got.Status)

	reqs := f.sender.requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Attachments)
}

func TestBackoffDelay(t *testing.T) {
	f := newFixture(t, retry.Strategy{Attempts: 5, Delay: time.Minute, Backoff: 2})

	assert.Equal(t, time.Minute, f.disp.backoffDelay(1))
	assert.Equal(t, 2*time.Minute, f.disp.backoffDelay(2))
	assert.Equal(t, 4*time.Minute, f.disp.backoffDelay(3))
	assert.Equal(t, 8*time.Minute, f.disp.backoffDelay(4))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t, defaultStrategy())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.disp.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestRecipientAddress(t *testing.T) {
	user := enrich.User{Email: "anna@example.com", Phone: "+33612345678"}

	assert.Equal(t, "anna@example.com", recipientAddress(model.ChannelEmail, user))
	assert.Equal(t, "+33612345678", recipientAddress(model.ChannelSMS, user))
}

func TestRunCycle_RenderedOutputHasNoPlaceholders(t *testing.T) {
	f := newFixture(t, defaultStrategy())
	ctx := context.Background()

	rec := bookingRecord()
	rec.MergeData = nil // everything comes from enrichment
	enqueue(t, f, rec)

	require.NoError(t, f.disp.RunCycle(ctx))

	reqs := f.sender.requests()
	require.Len(t, reqs, 1)

	for _, leak := range []string{"<no value>", "null", "undefined"} {
		assert.False(t, strings.Contains(reqs[0].HTML, leak), "html leaks %q", leak)
		assert.False(t, strings.Contains(reqs[0].Text, leak), "text leaks %q", leak)
	}
}
