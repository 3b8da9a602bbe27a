package enrollment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/enrollment-api/model"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeStore struct {
	log        *callLog
	nextID     uint
	createErr  error
	confirmErr error
	onConfirm  func()

	mu        sync.Mutex
	created   []model.StudentEnrollment
	confirmed []uint
}

func (f *fakeStore) CreateEnrollment(ctx context.Context, e *model.StudentEnrollment) error {
	f.log.add("create")
	f.mu.Lock()
	f.created = append(f.created, *e)
	f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	e.ID = f.nextID
	return nil
}

func (f *fakeStore) ConfirmAppointment(ctx context.Context, id uint, confirmedAt time.Time) error {
	if f.onConfirm != nil {
		f.onConfirm()
	}
	f.log.add(fmt.Sprintf("update:%d", id))
	f.mu.Lock()
	f.confirmed = append(f.confirmed, id)
	f.mu.Unlock()
	return f.confirmErr
}

type fakeNotifier struct {
	log    *callLog
	mu     sync.Mutex
	events []model.EnrollmentEvent
}

func (f *fakeNotifier) Send(ctx context.Context, event model.EnrollmentEvent) {
	f.log.add("notify")
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	log         *callLog
	store       *fakeStore
	notifier    *fakeNotifier
	clock       *fakeClock
	transitions []string
	wf          *Workflow
}

func newHarness() *harness {
	h := &harness{log: &callLog{}, clock: newFakeClock()}
	h.store = &fakeStore{log: h.log}
	h.notifier = &fakeNotifier{log: h.log}
	h.wf = New(nil, Options{
		Store:      h.store,
		Notifier:   h.notifier,
		ResetDelay: 3 * time.Second,
		Clock:      h.clock.Now,
		OnTransition: func(ctx context.Context, from, to State, snap *Snapshot) {
			h.transitions = append(h.transitions, fmt.Sprintf("%s->%s", from, to))
		},
	})
	return h
}

func janeDoe() model.EnrollmentForm {
	return model.EnrollmentForm{
		StudentName:      "Jane Doe",
		Email:            "jane@x.com",
		Phone:            "1234567890",
		Education:        "BSc CS",
		InterestedCourse: "Data Science",
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSubmitValidRecordMovesToScheduling(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.wf.Submit(ctx, janeDoe(), model.SubmissionContext{RequestID: "req-1"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if want := []string{"editing->submitting", "submitting->scheduling"}; !equalStrings(h.transitions, want) {
		t.Fatalf("transitions = %v, want %v", h.transitions, want)
	}
	if got := h.log.get(); !equalStrings(got, []string{"create"}) {
		t.Fatalf("calls = %v, want exactly one create", got)
	}

	rec := h.store.created[0]
	form := janeDoe()
	if rec.StudentName != form.StudentName || rec.Email != form.Email || rec.Phone != form.Phone ||
		rec.Education != form.Education || rec.InterestedCourse != form.InterestedCourse {
		t.Errorf("stored fields mismatch: %+v", rec)
	}
	if !rec.FormSubmittedAt.Equal(h.clock.Now()) {
		t.Errorf("FormSubmittedAt = %v, want %v", rec.FormSubmittedAt, h.clock.Now())
	}
	if rec.AppointmentScheduled {
		t.Error("record must never be created with AppointmentScheduled = true")
	}
	if rec.AppointmentConfirmedAt != nil {
		t.Error("record must not carry a confirmation time on create")
	}

	snap := h.wf.Snapshot()
	if snap.EnrollmentID == nil || *snap.EnrollmentID != 1 {
		t.Errorf("EnrollmentID = %v, want 1", snap.EnrollmentID)
	}
	if snap.Notice == nil || snap.Notice.Tone != NoticeSuccess {
		t.Errorf("notice = %+v", snap.Notice)
	}
}

func TestSubmitInvalidRecordStaysEditing(t *testing.T) {
	h := newHarness()

	form := janeDoe()
	form.Phone = "123"
	err := h.wf.Submit(context.Background(), form, model.SubmissionContext{})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields["phone"] == "" {
		t.Errorf("fields = %v", verr.Fields)
	}
	if h.wf.State() != StateEditing {
		t.Errorf("state = %s, want editing", h.wf.State())
	}
	if len(h.log.get()) != 0 || len(h.transitions) != 0 {
		t.Errorf("rejected submission made calls %v / transitions %v", h.log.get(), h.transitions)
	}
	if h.wf.Snapshot().Draft != form {
		t.Error("draft should keep the rejected values for correction")
	}

	// corrected submission clears the errors
	if err := h.wf.Submit(context.Background(), janeDoe(), model.SubmissionContext{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if h.wf.Snapshot().FieldErrors != nil {
		t.Error("field errors should be cleared after an accepted submission")
	}
}

func TestSubmitCreateFailureStillAdvances(t *testing.T) {
	h := newHarness()
	h.store.createErr = errors.New("connection refused")

	if err := h.wf.Submit(context.Background(), janeDoe(), model.SubmissionContext{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := h.wf.Snapshot()
	if snap.State != StateScheduling {
		t.Fatalf("state = %s, want scheduling", snap.State)
	}
	if snap.EnrollmentID != nil {
		t.Errorf("EnrollmentID = %v, want nil", *snap.EnrollmentID)
	}
	if snap.Notice == nil || snap.Notice.Title != "Submission Sent" {
		t.Errorf("notice = %+v", snap.Notice)
	}
}

func TestConfirmUpdatesThenNotifies(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.wf.Submit(ctx, janeDoe(), model.SubmissionContext{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	submittedAt := h.clock.Now()
	h.clock.Advance(time.Minute)
	h.transitions = nil

	if err := h.wf.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if want := []string{"scheduling->confirming", "confirming->success"}; !equalStrings(h.transitions, want) {
		t.Fatalf("transitions = %v, want %v", h.transitions, want)
	}
	if got, want := h.log.get(), []string{"create", "update:1", "notify"}; !equalStrings(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}

	ev := h.notifier.events[0]
	if ev.Event != model.EnrollmentEventAppointmentConfirmed || !ev.AppointmentScheduled {
		t.Errorf("event = %+v", ev)
	}
	if ev.EnrollmentID == nil || *ev.EnrollmentID != 1 {
		t.Errorf("event enrollment id = %v", ev.EnrollmentID)
	}
	if ev.StudentName != "Jane Doe" || ev.InterestedCourse != "Data Science" {
		t.Errorf("event form fields = %+v", ev)
	}
	if ev.FormSubmittedAt == nil || !ev.FormSubmittedAt.Equal(submittedAt) {
		t.Errorf("event FormSubmittedAt = %v", ev.FormSubmittedAt)
	}
	if !ev.AppointmentConfirmedAt.Equal(h.clock.Now()) {
		t.Errorf("event AppointmentConfirmedAt = %v", ev.AppointmentConfirmedAt)
	}

	snap := h.wf.Snapshot()
	if snap.Notice == nil || snap.Notice.Tone != NoticeSuccess {
		t.Errorf("notice = %+v", snap.Notice)
	}
}

func TestConfirmWithoutRecordSkipsUpdate(t *testing.T) {
	h := newHarness()
	h.store.createErr = errors.New("timeout")
	ctx := context.Background()

	if err := h.wf.Submit(ctx, janeDoe(), model.SubmissionContext{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := h.wf.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if got, want := h.log.get(), []string{"create", "notify"}; !equalStrings(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if h.wf.State() != StateSuccess {
		t.Errorf("state = %s, want success", h.wf.State())
	}
	if h.notifier.events[0].EnrollmentID != nil {
		t.Error("event should not carry an enrollment id")
	}
}

func TestConfirmUpdateFailureStillSucceeds(t *testing.T) {
	h := newHarness()
	h.store.confirmErr = errors.New("deadlock detected")
	ctx := context.Background()

	if err := h.wf.Submit(ctx, janeDoe(), model.SubmissionContext{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := h.wf.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if h.wf.State() != StateSuccess {
		t.Fatalf("state = %s, want success", h.wf.State())
	}
	if got, want := h.log.get(), []string{"create", "update:1", "notify"}; !equalStrings(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if n := h.wf.Snapshot().Notice; n == nil || n.Tone != NoticeWarning {
		t.Errorf("notice = %+v, want a warning", n)
	}
}

func TestConfirmControlDisabledWhileConfirming(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.wf.Submit(ctx, janeDoe(), model.SubmissionContext{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !h.wf.Controls().ConfirmEnabled {
		t.Fatal("confirm should be enabled while scheduling")
	}

	var (
		stateDuring    State
		controlsDuring Controls
		secondConfirm  error
	)
	h.store.onConfirm = func() {
		stateDuring = h.wf.State()
		controlsDuring = h.wf.Controls()
		secondConfirm = h.wf.Confirm(ctx)
	}

	if err := h.wf.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if stateDuring != StateConfirming {
		t.Errorf("state during update = %s, want confirming", stateDuring)
	}
	if controlsDuring.ConfirmEnabled || controlsDuring.BackEnabled || !controlsDuring.Loading {
		t.Errorf("controls during confirming = %+v", controlsDuring)
	}
	if !errors.Is(secondConfirm, ErrInvalidTransition) {
		t.Errorf("second confirm = %v, want ErrInvalidTransition", secondConfirm)
	}
	if len(h.store.confirmed) != 1 || len(h.notifier.events) != 1 {
		t.Errorf("confirmed %d times, notified %d times", len(h.store.confirmed), len(h.notifier.events))
	}
}

func TestGoBackClearsDraftWithoutCalls(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.wf.Submit(ctx, janeDoe(), model.SubmissionContext{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	before := len(h.log.get())

	if err := h.wf.GoBack(ctx); err != nil {
		t.Fatalf("GoBack: %v", err)
	}

	if len(h.log.get()) != before {
		t.Errorf("go back made network calls: %v", h.log.get())
	}
	snap := h.wf.Snapshot()
	if snap.State != StateEditing {
		t.Errorf("state = %s, want editing", snap.State)
	}
	if snap.Draft != (model.EnrollmentForm{}) || snap.EnrollmentID != nil || snap.SubmittedAt != nil || snap.Notice != nil {
		t.Errorf("snapshot not cleared: %+v", snap)
	}
}

func TestSuccessAutoResetsAfterDelay(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.wf.Submit(ctx, janeDoe(), model.SubmissionContext{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := h.wf.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	calls := len(h.log.get())

	if got := h.wf.ResetIn(); got != 3*time.Second {
		t.Errorf("ResetIn = %v, want 3s", got)
	}

	h.clock.Advance(2 * time.Second)
	if h.wf.Refresh(ctx) {
		t.Fatal("reset before the delay elapsed")
	}
	if h.wf.State() != StateSuccess {
		t.Fatalf("state = %s, want success", h.wf.State())
	}

	h.clock.Advance(time.Second)
	if !h.wf.Refresh(ctx) {
		t.Fatal("expected reset once the delay elapsed")
	}

	snap := h.wf.Snapshot()
	if snap.State != StateEditing || snap.Draft != (model.EnrollmentForm{}) || snap.EnrollmentID != nil {
		t.Errorf("snapshot after reset = %+v", snap)
	}
	if len(h.log.get()) != calls {
		t.Errorf("reset made network calls: %v", h.log.get())
	}
	if h.wf.Refresh(ctx) {
		t.Error("refresh in editing must be a no-op")
	}
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()

	h := newHarness()
	if err := h.wf.Confirm(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("confirm from editing = %v", err)
	}
	if err := h.wf.GoBack(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("go back from editing = %v", err)
	}

	if err := h.wf.Submit(ctx, janeDoe(), model.SubmissionContext{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := h.wf.Submit(ctx, janeDoe(), model.SubmissionContext{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("submit from scheduling = %v", err)
	}
	if err := h.wf.SaveDraft(janeDoe()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("save draft from scheduling = %v", err)
	}

	if err := h.wf.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := h.wf.GoBack(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("go back from success = %v", err)
	}
	if got := len(h.store.created); got != 1 {
		t.Errorf("created %d records, want 1", got)
	}
}

func TestControlsPerState(t *testing.T) {
	tests := []struct {
		state State
		want  Controls
	}{
		{StateEditing, Controls{SubmitEnabled: true}},
		{StateSubmitting, Controls{Loading: true}},
		{StateScheduling, Controls{ConfirmEnabled: true, BackEnabled: true}},
		{StateConfirming, Controls{Loading: true}},
		{StateSuccess, Controls{}},
	}

	for _, tt := range tests {
		w := New(&Snapshot{State: tt.state}, Options{Store: &fakeStore{log: &callLog{}}})
		if got := w.Controls(); got != tt.want {
			t.Errorf("%s: controls = %+v, want %+v", tt.state, got, tt.want)
		}
	}
}
