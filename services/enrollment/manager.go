package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/enrollment-api/model"
	"github.com/sahilchouksey/enrollment-api/services/notify"
	"github.com/sahilchouksey/enrollment-api/utils/validation"
)

// Config holds the manager settings
type Config struct {
	// SchedulingURL is the external calendar shown while scheduling
	SchedulingURL string
	ResetDelay    time.Duration
	Clock         func() time.Time
}

// View is what the client renders for a session
type View struct {
	State         State                `json:"state"`
	Draft         model.EnrollmentForm `json:"draft"`
	Errors        map[string]string    `json:"errors,omitempty"`
	Notice        *Notice              `json:"notice,omitempty"`
	SchedulingURL string               `json:"schedulingUrl,omitempty"`
	Controls      Controls             `json:"controls"`
	ResetInMS     int64                `json:"resetInMs,omitempty"`
}

// Manager runs workflow operations against stored session snapshots.
// Mutating operations hold the session lock for their whole duration.
type Manager struct {
	store     Persistence
	sessions  SessionStore
	notifier  notify.Notifier
	validator *validation.Validator
	cfg       Config
}

// NewManager creates a new enrollment manager
func NewManager(store Persistence, sessions SessionStore, notifier notify.Notifier, cfg Config) *Manager {
	if cfg.ResetDelay <= 0 {
		cfg.ResetDelay = DefaultResetDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Manager{
		store:     store,
		sessions:  sessions,
		notifier:  notifier,
		validator: validation.NewValidator(),
		cfg:       cfg,
	}
}

// View returns the current view of a session, applying the automatic reset.
// It does not take the session lock, so it can observe in-flight states, and
// it never writes: a due reset is only projected here and is stored by the
// next mutating operation.
func (m *Manager) View(ctx context.Context, sessionID string) (*View, error) {
	snap, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	w := m.workflow(sessionID, snap, false)
	w.Refresh(ctx)
	return m.view(w), nil
}

// SaveDraft stores in-progress form values
func (m *Manager) SaveDraft(ctx context.Context, sessionID string, form model.EnrollmentForm) (*View, error) {
	return m.mutate(ctx, sessionID, func(w *Workflow) error {
		return w.SaveDraft(form)
	})
}

// Submit validates and stores the form. A *ValidationError is returned together with the view.
func (m *Manager) Submit(ctx context.Context, sessionID string, form model.EnrollmentForm, meta model.SubmissionContext) (*View, error) {
	return m.mutate(ctx, sessionID, func(w *Workflow) error {
		return w.Submit(ctx, form, meta)
	})
}

// Confirm records the user's booking confirmation
func (m *Manager) Confirm(ctx context.Context, sessionID string) (*View, error) {
	return m.mutate(ctx, sessionID, func(w *Workflow) error {
		return w.Confirm(ctx)
	})
}

// GoBack returns from scheduling to an empty form
func (m *Manager) GoBack(ctx context.Context, sessionID string) (*View, error) {
	return m.mutate(ctx, sessionID, func(w *Workflow) error {
		return w.GoBack(ctx)
	})
}

func (m *Manager) mutate(ctx context.Context, sessionID string, op func(w *Workflow) error) (*View, error) {
	unlock, err := m.sessions.TryLock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	snap, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	w := m.workflow(sessionID, snap, true)
	w.Refresh(ctx)

	opErr := op(w)

	if err := m.sessions.Save(context.WithoutCancel(ctx), sessionID, w.Snapshot()); err != nil {
		log.Errorf("failed to save enrollment session %s: %v", sessionID, err)
		if opErr == nil {
			return nil, err
		}
	}
	return m.view(w), opErr
}

func (m *Manager) load(ctx context.Context, sessionID string) (*Snapshot, error) {
	snap, err := m.sessions.Load(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment session: %w", err)
	}
	return snap, nil
}

// workflow wraps snap for one request. Only callers holding the session lock
// may pass persist, since the hook then saves every transition.
func (m *Manager) workflow(sessionID string, snap *Snapshot, persist bool) *Workflow {
	return New(snap, Options{
		Store:      m.store,
		Notifier:   m.notifier,
		Validator:  m.validator,
		ResetDelay: m.cfg.ResetDelay,
		Clock:      m.cfg.Clock,
		OnTransition: func(ctx context.Context, from, to State, snap *Snapshot) {
			log.Debugf("enrollment session %s: %s -> %s", sessionID, from, to)
			if !persist {
				return
			}
			// persisted on every step so concurrent views see submitting and confirming
			if err := m.sessions.Save(context.WithoutCancel(ctx), sessionID, snap); err != nil {
				log.Warnf("failed to save enrollment session %s on %s: %v", sessionID, to, err)
			}
		},
	})
}

func (m *Manager) view(w *Workflow) *View {
	snap := w.Snapshot()
	v := &View{
		State:     snap.State,
		Draft:     snap.Draft,
		Errors:    snap.FieldErrors,
		Notice:    snap.Notice,
		Controls:  w.Controls(),
		ResetInMS: w.ResetIn().Milliseconds(),
	}
	if snap.State == StateScheduling || snap.State == StateConfirming {
		v.SchedulingURL = m.cfg.SchedulingURL
	}
	return v
}
