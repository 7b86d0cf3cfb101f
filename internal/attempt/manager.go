package attempt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/model"
	"github.com/rs/zerolog"
)

// Trigger identifies what caused a submission.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimeout Trigger = "timeout"
)

// ExamDirectory supplies exam definitions. Implemented by the service layer
// over the CRUD collaborator's data.
type ExamDirectory interface {
	Definition(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, error)
}

// ResultStore is the persistence collaborator for durable results.
type ResultStore interface {
	HasResult(ctx context.Context, examID uuid.UUID, studentID string) (bool, error)
	Persist(ctx context.Context, res *model.Result) error
}

type key struct {
	examID    uuid.UUID
	studentID string
}

// attempt is the live state of one (exam, student) pair. All mutation goes
// through the per-attempt mutex; the submitted flag flips exactly once.
type attempt struct {
	mu        sync.Mutex
	examID    uuid.UUID
	studentID string
	deadline  time.Time
	answers   map[int]int
	submitted bool
	timer     *time.Timer
}

type completedEntry struct {
	result *model.Result
	at     time.Time
}

const (
	defaultRetention = time.Hour
	janitorInterval  = time.Minute
)

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Tests use this to cross the deadline
// without sleeping; timers still run on the real clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRetention overrides how long completed results are kept in memory for
// idempotent re-submission.
func WithRetention(d time.Duration) Option {
	return func(m *Manager) { m.retention = d }
}

// WithJanitorInterval overrides how often the janitor sweeps retained results.
func WithJanitorInterval(d time.Duration) Option {
	return func(m *Manager) { m.janitorEvery = d }
}

// Manager owns every live attempt in the process. It enforces the
// per-pair invariants: at most one attempt, at most one submission, and a
// deadline that is authoritative independent of its timer. Attempts for
// different exams never share state beyond the bookkeeping maps.
type Manager struct {
	mu        sync.RWMutex
	attempts  map[key]*attempt
	completed map[key]*completedEntry

	dir          ExamDirectory
	store        ResultStore
	log          zerolog.Logger
	now          func() time.Time
	retention    time.Duration
	janitorEvery time.Duration
}

// NewManager creates an attempt manager.
func NewManager(dir ExamDirectory, store ResultStore, log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		attempts:     make(map[key]*attempt),
		completed:    make(map[key]*completedEntry),
		dir:          dir,
		store:        store,
		log:          log.With().Str("component", "attempt_manager").Logger(),
		now:          time.Now,
		retention:    defaultRetention,
		janitorEvery: janitorInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates the attempt for the pair and schedules its deadline timer.
// The exam must be published, inside its scheduled window, and the pair
// must have neither a live attempt nor a durable result.
func (m *Manager) Start(ctx context.Context, examID uuid.UUID, studentID string, durationMinutes int) (time.Time, error) {
	k := key{examID, studentID}

	m.mu.RLock()
	_, live := m.attempts[k]
	_, done := m.completed[k]
	m.mu.RUnlock()
	if live {
		return time.Time{}, ErrAlreadyStarted
	}
	if done {
		return time.Time{}, ErrAlreadyCompleted
	}

	exists, err := m.store.HasResult(ctx, examID, studentID)
	if err != nil {
		return time.Time{}, fmt.Errorf("check existing result: %w", err)
	}
	if exists {
		return time.Time{}, ErrAlreadyCompleted
	}

	def, err := m.dir.Definition(ctx, examID)
	if err != nil {
		return time.Time{}, fmt.Errorf("exam definition: %w", err)
	}

	now := m.now()
	if def.Status != model.ExamStatusPublished || !def.AvailableAt(now) {
		return time.Time{}, ErrExamNotAvailable
	}

	if durationMinutes < 0 {
		durationMinutes = 0
	}

	a := &attempt{
		examID:    examID,
		studentID: studentID,
		deadline:  now.Add(time.Duration(durationMinutes) * time.Minute),
		answers:   make(map[int]int),
	}

	m.mu.Lock()
	if _, exists := m.attempts[k]; exists {
		m.mu.Unlock()
		return time.Time{}, ErrAlreadyStarted
	}
	if _, exists := m.completed[k]; exists {
		m.mu.Unlock()
		return time.Time{}, ErrAlreadyCompleted
	}
	m.attempts[k] = a
	m.mu.Unlock()

	// The timer field is set under the attempt lock so the callback, which
	// takes the same lock before touching state, always observes it.
	a.mu.Lock()
	a.timer = time.AfterFunc(a.deadline.Sub(now), func() {
		if _, err := m.Submit(context.Background(), examID, studentID, TriggerTimeout); err != nil {
			m.log.Error().
				Err(err).
				Str("exam_id", examID.String()).
				Str("student_id", studentID).
				Msg("Timeout submission failed; nothing will retry this attempt")
		}
	})
	a.mu.Unlock()

	m.log.Info().
		Str("exam_id", examID.String()).
		Str("student_id", studentID).
		Time("deadline", a.deadline).
		Msg("Attempt started")

	return a.deadline, nil
}

// RecordAnswer overwrites the selected option for one question, last write
// wins. The deadline is authoritative: updates after it fail even if the
// timer callback has not run yet.
func (m *Manager) RecordAnswer(examID uuid.UUID, studentID string, questionIndex, option int) error {
	m.mu.RLock()
	a, ok := m.attempts[key{examID, studentID}]
	m.mu.RUnlock()
	if !ok {
		return ErrNotInProgress
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.submitted {
		return ErrNotInProgress
	}
	if m.now().After(a.deadline) {
		return ErrPastDeadline
	}

	a.answers[questionIndex] = option
	return nil
}

// Submit performs the exactly-once transition to submitted: first caller to
// acquire the attempt in its in-progress state wins, whether it is the
// student or the deadline timer. On success the result is persisted and
// retained for idempotent re-submission; on a configuration or persistence
// error the attempt stays in progress so a corrected manual retry works.
func (m *Manager) Submit(ctx context.Context, examID uuid.UUID, studentID string, trigger Trigger) (*model.Result, error) {
	k := key{examID, studentID}

	m.mu.RLock()
	a, live := m.attempts[k]
	c, done := m.completed[k]
	m.mu.RUnlock()

	if !live {
		if done {
			// Duplicate submit (double click, network retry): hand back the
			// known final result instead of an error.
			return c.result, nil
		}
		// The retained result may have been evicted by the janitor. A durable
		// result means this pair did submit; report that, not a missing attempt.
		if exists, err := m.store.HasResult(ctx, examID, studentID); err == nil && exists {
			return nil, ErrAlreadySubmitted
		}
		return nil, ErrNotInProgress
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.submitted {
		// Lost the race against a concurrent submit that already evicted
		// the attempt.
		m.mu.RLock()
		c, done := m.completed[k]
		m.mu.RUnlock()
		if done {
			return c.result, nil
		}
		return nil, ErrAlreadySubmitted
	}

	def, err := m.dir.Definition(ctx, examID)
	if err != nil {
		return nil, m.failSubmit(a, trigger, fmt.Errorf("exam definition: %w", err))
	}

	res, err := score(def, a.answers, studentID, m.now())
	if err != nil {
		return nil, m.failSubmit(a, trigger, err)
	}

	if err := m.store.Persist(ctx, res); err != nil {
		return nil, m.failSubmit(a, trigger, fmt.Errorf("persist result: %w", err))
	}

	a.submitted = true
	if a.timer != nil {
		a.timer.Stop()
	}

	m.mu.Lock()
	delete(m.attempts, k)
	m.completed[k] = &completedEntry{result: res, at: m.now()}
	m.mu.Unlock()

	m.log.Info().
		Str("exam_id", examID.String()).
		Str("student_id", studentID).
		Str("trigger", string(trigger)).
		Int("marks_obtained", res.MarksObtained).
		Float64("percentage", res.Percentage).
		Str("status", string(res.Status)).
		Msg("Attempt submitted")

	return res, nil
}

// failSubmit handles a submit that cannot complete. A timeout-triggered
// failure frees the timer (nothing else will) and logs loudly; a manual
// failure leaves the timer armed so expiry still forces a retry.
func (m *Manager) failSubmit(a *attempt, trigger Trigger, err error) error {
	if trigger == TriggerTimeout {
		if a.timer != nil {
			a.timer.Stop()
		}
		m.log.Error().
			Err(err).
			Str("exam_id", a.examID.String()).
			Str("student_id", a.studentID).
			Msg("Timeout submission hit a configuration error; attempt left in progress")
	}
	return err
}

// State is a read-only snapshot of a pair's attempt, served to clients that
// render the countdown. The core's deadline is authoritative; clients must
// not trust their own timers.
type State struct {
	Deadline         time.Time     `json:"deadline"`
	RemainingSeconds int64         `json:"remaining_seconds"`
	AnsweredCount    int           `json:"answered_count"`
	Submitted        bool          `json:"submitted"`
	Result           *model.Result `json:"result,omitempty"`
}

// GetState returns the current state for the pair, or ErrNotInProgress if
// it has neither a live attempt nor a retained result.
func (m *Manager) GetState(examID uuid.UUID, studentID string) (*State, error) {
	k := key{examID, studentID}

	m.mu.RLock()
	a, live := m.attempts[k]
	c, done := m.completed[k]
	m.mu.RUnlock()

	if live {
		a.mu.Lock()
		defer a.mu.Unlock()

		remaining := a.deadline.Sub(m.now())
		if remaining < 0 {
			remaining = 0
		}
		return &State{
			Deadline:         a.deadline,
			RemainingSeconds: int64(remaining.Seconds()),
			AnsweredCount:    len(a.answers),
		}, nil
	}

	if done {
		return &State{
			Deadline:      c.result.SubmittedAt,
			AnsweredCount: len(c.result.Answers),
			Submitted:     true,
			Result:        c.result,
		}, nil
	}

	return nil, ErrNotInProgress
}

// RunJanitor evicts retained results older than the retention window until
// ctx is cancelled. Run as a background goroutine from the composition root.
func (m *Manager) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(m.janitorEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := m.now().Add(-m.retention)
			m.mu.Lock()
			for k, c := range m.completed {
				if c.at.Before(cutoff) {
					delete(m.completed, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
