// Package enrollment implements the lead-capture wizard: a five-state machine
// that validates the form, stores the lead, shows the scheduling widget,
// records the user's booking confirmation and resets itself.
//
//	editing -> submitting -> scheduling -> confirming -> success -> (timer) editing
//	                             |
//	                             +-- go back --> editing
//
// Persistence and notification calls are side channels, not gates: their
// failures are logged and turned into notices, and the wizard always advances.
package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/enrollment-api/model"
	"github.com/sahilchouksey/enrollment-api/services/notify"
	"github.com/sahilchouksey/enrollment-api/utils/validation"
	"gorm.io/datatypes"
)

// State is a step of the enrollment wizard
type State string

const (
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateScheduling State = "scheduling"
	StateConfirming State = "confirming"
	StateSuccess    State = "success"
)

// DefaultResetDelay is how long the success screen stays before the form is cleared
const DefaultResetDelay = 3 * time.Second

var (
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrSessionBusy       = errors.New("session has an operation in flight")
	ErrSessionNotFound   = errors.New("session not found")
)

// ValidationError rejects a submission; Fields maps JSON field name to message
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("enrollment rejected: %d invalid field(s)", len(e.Fields))
}

// Persistence stores enrollment records
type Persistence interface {
	CreateEnrollment(ctx context.Context, enrollment *model.StudentEnrollment) error
	ConfirmAppointment(ctx context.Context, id uint, confirmedAt time.Time) error
}

// NoticeTone tells the client how to style a notice
type NoticeTone string

const (
	NoticeSuccess NoticeTone = "success"
	NoticeInfo    NoticeTone = "info"
	NoticeWarning NoticeTone = "warning"
)

// Notice is a toast message attached to the last transition
type Notice struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tone        NoticeTone `json:"tone"`
}

var (
	noticeSubmitted = Notice{
		Title:       "Application Submitted Successfully! 🎉",
		Description: "Your information has been received. Now schedule your appointment below.",
		Tone:        NoticeSuccess,
	}
	noticeSubmissionSent = Notice{
		Title:       "Submission Sent",
		Description: "Your application has been sent. Please schedule your appointment below.",
		Tone:        NoticeInfo,
	}
	noticeConfirmed = Notice{
		Title:       "Appointment Confirmed! 🎉",
		Description: "Thank you for scheduling. Our admissions team will see you at your chosen time.",
		Tone:        NoticeSuccess,
	}
	noticeConfirmationNoted = Notice{
		Title:       "Booking Noted",
		Description: "Thanks for scheduling. We could not save your confirmation right now, our team will follow up.",
		Tone:        NoticeWarning,
	}
)

// Snapshot is the workflow state plus its data payload. It is owned by one session.
type Snapshot struct {
	State        State                `json:"state"`
	Draft        model.EnrollmentForm `json:"draft"`
	FieldErrors  map[string]string    `json:"fieldErrors,omitempty"`
	EnrollmentID *uint                `json:"enrollmentId,omitempty"`
	SubmittedAt  *time.Time           `json:"submittedAt,omitempty"`
	ConfirmedAt  *time.Time           `json:"confirmedAt,omitempty"`
	SucceededAt  *time.Time           `json:"succeededAt,omitempty"`
	Notice       *Notice              `json:"notice,omitempty"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// NewSnapshot returns an empty snapshot in the editing state
func NewSnapshot() *Snapshot {
	return &Snapshot{State: StateEditing}
}

// Controls reports which actions the client may offer in the current state
type Controls struct {
	SubmitEnabled  bool `json:"submitEnabled"`
	ConfirmEnabled bool `json:"confirmEnabled"`
	BackEnabled    bool `json:"backEnabled"`
	Loading        bool `json:"loading"`
}

// TransitionFunc observes every state change, after the snapshot has been updated
type TransitionFunc func(ctx context.Context, from, to State, snap *Snapshot)

// Options wires a workflow to its collaborators
type Options struct {
	Store        Persistence
	Notifier     notify.Notifier
	Validator    *validation.Validator
	ResetDelay   time.Duration
	Clock        func() time.Time
	OnTransition TransitionFunc
}

// Workflow drives one session's snapshot through the wizard.
// It is not safe for concurrent use; callers serialize access per session.
type Workflow struct {
	snap *Snapshot
	opts Options
}

// New creates a workflow over snap; a nil snap starts a fresh session
func New(snap *Snapshot, opts Options) *Workflow {
	if snap == nil {
		snap = NewSnapshot()
	}
	if snap.State == "" {
		snap.State = StateEditing
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Validator == nil {
		opts.Validator = validation.NewValidator()
	}
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = DefaultResetDelay
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Workflow{snap: snap, opts: opts}
}

// Snapshot returns the workflow's current snapshot
func (w *Workflow) Snapshot() *Snapshot {
	return w.snap
}

// State returns the current state
func (w *Workflow) State() State {
	return w.snap.State
}

// Controls derives the enabled actions from the current state
func (w *Workflow) Controls() Controls {
	s := w.snap.State
	return Controls{
		SubmitEnabled:  s == StateEditing,
		ConfirmEnabled: s == StateScheduling,
		BackEnabled:    s == StateScheduling,
		Loading:        s == StateSubmitting || s == StateConfirming,
	}
}

// ResetIn returns the time left before a success screen resets, zero otherwise
func (w *Workflow) ResetIn() time.Duration {
	if w.snap.State != StateSuccess || w.snap.SucceededAt == nil {
		return 0
	}
	left := w.snap.SucceededAt.Add(w.opts.ResetDelay).Sub(w.opts.Clock())
	if left < 0 {
		return 0
	}
	return left
}

func (w *Workflow) transition(ctx context.Context, to State) {
	from := w.snap.State
	w.snap.State = to
	w.snap.UpdatedAt = w.opts.Clock()
	if w.opts.OnTransition != nil {
		w.opts.OnTransition(ctx, from, to, w.snap)
	}
}

func (w *Workflow) require(op string, allowed State) error {
	if w.snap.State != allowed {
		return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, w.snap.State)
	}
	return nil
}

// clear drops the record draft and everything derived from it, keeping the state
func (w *Workflow) clear() {
	*w.snap = Snapshot{State: w.snap.State, UpdatedAt: w.snap.UpdatedAt}
}

// SaveDraft keeps in-progress form values without validating them
func (w *Workflow) SaveDraft(form model.EnrollmentForm) error {
	if err := w.require("save draft", StateEditing); err != nil {
		return err
	}
	w.snap.Draft = form
	w.snap.UpdatedAt = w.opts.Clock()
	return nil
}

// Submit validates form and, when accepted, creates the stored record and moves
// on to scheduling. A rejected form leaves the workflow in editing with field
// errors and makes no network call. A failed create still advances.
func (w *Workflow) Submit(ctx context.Context, form model.EnrollmentForm, meta model.SubmissionContext) error {
	if err := w.require("submit", StateEditing); err != nil {
		return err
	}
	w.snap.Notice = nil

	accepted, fieldErrors := w.opts.Validator.ValidateEnrollment(form)
	if fieldErrors != nil {
		w.snap.Draft = form
		w.snap.FieldErrors = fieldErrors
		w.snap.UpdatedAt = w.opts.Clock()
		return &ValidationError{Fields: fieldErrors}
	}

	submittedAt := w.opts.Clock()
	w.snap.Draft = *accepted
	w.snap.FieldErrors = nil
	w.snap.SubmittedAt = &submittedAt
	w.transition(ctx, StateSubmitting)

	record := model.NewStudentEnrollment(*accepted, submittedAt)
	if raw, err := json.Marshal(meta); err == nil {
		record.SubmissionContext = datatypes.JSON(raw)
	}

	// in-flight calls are never cancelled
	if err := w.opts.Store.CreateEnrollment(context.WithoutCancel(ctx), record); err != nil {
		log.Warnf("enrollment create failed for %s, continuing to scheduling: %v", accepted.Email, err)
		w.snap.EnrollmentID = nil
		notice := noticeSubmissionSent
		w.snap.Notice = &notice
	} else {
		id := record.ID
		w.snap.EnrollmentID = &id
		notice := noticeSubmitted
		w.snap.Notice = &notice
		log.Infof("enrollment %d created for %s (%s)", id, accepted.Email, accepted.InterestedCourse)
	}

	w.transition(ctx, StateScheduling)
	return nil
}

// Confirm records the user's assertion that they booked in the scheduling
// widget. The stored record is updated first (skipped when no record was
// created), then the notifier is signalled. The workflow always ends in success.
func (w *Workflow) Confirm(ctx context.Context) error {
	if err := w.require("confirm", StateScheduling); err != nil {
		return err
	}
	w.snap.Notice = nil
	w.transition(ctx, StateConfirming)

	sideCtx := context.WithoutCancel(ctx)
	confirmedAt := w.opts.Clock()
	notice := noticeConfirmed

	if w.snap.EnrollmentID == nil {
		log.Warnf("no stored enrollment for %s, skipping confirmation update", w.snap.Draft.Email)
	} else if err := w.opts.Store.ConfirmAppointment(sideCtx, *w.snap.EnrollmentID, confirmedAt); err != nil {
		log.Errorf("enrollment %d confirmation update failed: %v", *w.snap.EnrollmentID, err)
		notice = noticeConfirmationNoted
	}

	// notify starts only after the update has settled
	w.opts.Notifier.Send(sideCtx, w.event(confirmedAt))

	succeededAt := w.opts.Clock()
	w.snap.ConfirmedAt = &confirmedAt
	w.snap.SucceededAt = &succeededAt
	w.snap.Notice = &notice
	w.transition(ctx, StateSuccess)
	return nil
}

// GoBack abandons scheduling and returns to an empty form without any network call
func (w *Workflow) GoBack(ctx context.Context) error {
	if err := w.require("go back", StateScheduling); err != nil {
		return err
	}
	w.clear()
	w.transition(ctx, StateEditing)
	return nil
}

// Refresh applies the automatic reset once the success delay has elapsed.
// It reports whether a reset happened.
func (w *Workflow) Refresh(ctx context.Context) bool {
	if w.snap.State != StateSuccess || w.snap.SucceededAt == nil {
		return false
	}
	if w.opts.Clock().Before(w.snap.SucceededAt.Add(w.opts.ResetDelay)) {
		return false
	}
	w.clear()
	w.transition(ctx, StateEditing)
	return true
}

func (w *Workflow) event(confirmedAt time.Time) model.EnrollmentEvent {
	d := w.snap.Draft
	return model.EnrollmentEvent{
		Event:                  model.EnrollmentEventAppointmentConfirmed,
		EnrollmentID:           w.snap.EnrollmentID,
		StudentName:            d.StudentName,
		Email:                  d.Email,
		Phone:                  d.Phone,
		Education:              d.Education,
		InterestedCourse:       d.InterestedCourse,
		AppointmentScheduled:   true,
		FormSubmittedAt:        w.snap.SubmittedAt,
		AppointmentConfirmedAt: confirmedAt,
		Timestamp:              w.opts.Clock(),
	}
}
