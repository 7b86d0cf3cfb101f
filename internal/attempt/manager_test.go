package attempt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory serves definitions from a map.
type fakeDirectory struct {
	mu   sync.Mutex
	defs map[uuid.UUID]*model.ExamDefinition
	err  error
}

func (f *fakeDirectory) Definition(_ context.Context, examID uuid.UUID) (*model.ExamDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	def, ok := f.defs[examID]
	if !ok {
		return nil, errors.New("exam not found")
	}
	return def, nil
}

func (f *fakeDirectory) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// fakeStore records persisted results in memory.
type fakeStore struct {
	mu         sync.Mutex
	results    []*model.Result
	existing   bool
	persistErr error
}

func (f *fakeStore) HasResult(_ context.Context, _ uuid.UUID, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing || len(f.results) > 0, nil
}

func (f *fakeStore) Persist(_ context.Context, res *model.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.persistErr != nil {
		return f.persistErr
	}
	f.results = append(f.results, res)
	return nil
}

func (f *fakeStore) setPersistErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persistErr = err
}

func (f *fakeStore) persisted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

// fakeClock is a mutable time source for crossing deadlines without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
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

func newTestManager(t *testing.T) (*Manager, *fakeDirectory, *fakeStore, *fakeClock, uuid.UUID) {
	t.Helper()

	def := twoQuestionExam()
	def.DurationMinutes = 30

	dir := &fakeDirectory{defs: map[uuid.UUID]*model.ExamDefinition{def.ID: def}}
	store := &fakeStore{}
	clock := newFakeClock()
	m := NewManager(dir, store, zerolog.Nop(), WithClock(clock.Now))

	return m, dir, store, clock, def.ID
}

func TestStartSetsDeadline(t *testing.T) {
	m, _, _, clock, examID := newTestManager(t)

	deadline, err := m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(30*time.Minute), deadline)

	state, err := m.GetState(examID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, deadline, state.Deadline)
	assert.Equal(t, int64(1800), state.RemainingSeconds)
	assert.False(t, state.Submitted)
}

func TestStartTwiceRejected(t *testing.T) {
	m, _, _, _, examID := newTestManager(t)

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)

	_, err = m.Start(context.Background(), examID, "student-1", 30)
	require.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestStartWithDurableResultRejected(t *testing.T) {
	m, _, store, _, examID := newTestManager(t)
	store.existing = true

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestStartUnpublishedRejected(t *testing.T) {
	m, dir, _, _, examID := newTestManager(t)
	dir.defs[examID].Status = model.ExamStatusDraft

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.ErrorIs(t, err, ErrExamNotAvailable)
}

func TestStartOutsideWindowRejected(t *testing.T) {
	m, dir, _, clock, examID := newTestManager(t)
	start := clock.Now().Add(time.Hour)
	dir.defs[examID].ScheduledStart = &start

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.ErrorIs(t, err, ErrExamNotAvailable)

	clock.Advance(2 * time.Hour)
	_, err = m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)
}

func TestRecordAnswerLastWriteWins(t *testing.T) {
	m, _, _, _, examID := newTestManager(t)

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)

	require.NoError(t, m.RecordAnswer(examID, "student-1", 0, 1))
	require.NoError(t, m.RecordAnswer(examID, "student-1", 0, 2))

	res, err := m.Submit(context.Background(), examID, "student-1", TriggerManual)
	require.NoError(t, err)
	require.Len(t, res.Answers, 1)
	assert.Equal(t, 2, res.Answers[0].SelectedOption)
	assert.True(t, res.Answers[0].IsCorrect)
}

func TestRecordAnswerWithoutAttempt(t *testing.T) {
	m, _, _, _, examID := newTestManager(t)

	err := m.RecordAnswer(examID, "student-1", 0, 1)
	require.ErrorIs(t, err, ErrNotInProgress)
}

func TestRecordAnswerPastDeadline(t *testing.T) {
	m, _, _, clock, examID := newTestManager(t)

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)

	// The wall-clock deadline governs even though the real-time timer has
	// not fired.
	clock.Advance(31 * time.Minute)
	err = m.RecordAnswer(examID, "student-1", 0, 1)
	require.ErrorIs(t, err, ErrPastDeadline)
}

func TestSubmitPersistsExactlyOnce(t *testing.T) {
	m, _, store, _, examID := newTestManager(t)

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)
	require.NoError(t, m.RecordAnswer(examID, "student-1", 0, 2))

	var wg sync.WaitGroup
	results := make([]*model.Result, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := m.Submit(context.Background(), examID, "student-1", TriggerManual)
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.persisted())
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, 1, res.MarksObtained)
	}
}

func TestResubmitReturnsRetainedResult(t *testing.T) {
	m, _, store, _, examID := newTestManager(t)

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)

	first, err := m.Submit(context.Background(), examID, "student-1", TriggerManual)
	require.NoError(t, err)

	second, err := m.Submit(context.Background(), examID, "student-1", TriggerManual)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, store.persisted())
}

func TestZeroDurationAutoSubmits(t *testing.T) {
	def := twoQuestionExam()
	dir := &fakeDirectory{defs: map[uuid.UUID]*model.ExamDefinition{def.ID: def}}
	store := &fakeStore{}
	// Real clock: the deadline timer fires immediately for a zero duration.
	m := NewManager(dir, store, zerolog.Nop())

	_, err := m.Start(context.Background(), def.ID, "student-1", 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return store.persisted() == 1
	}, 2*time.Second, 10*time.Millisecond)

	state, err := m.GetState(def.ID, "student-1")
	require.NoError(t, err)
	assert.True(t, state.Submitted)
	require.NotNil(t, state.Result)
	assert.Equal(t, model.ResultStatusFail, state.Result.Status)
}

func TestSubmitMisconfiguredLeavesAttemptInProgress(t *testing.T) {
	m, dir, store, _, examID := newTestManager(t)
	dir.defs[examID].TotalMarks = 0

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), examID, "student-1", TriggerManual)
	require.ErrorIs(t, err, ErrMisconfigured)
	assert.Equal(t, 0, store.persisted())

	// Still in progress: answers can be recorded and a corrected retry works.
	require.NoError(t, m.RecordAnswer(examID, "student-1", 1, 0))
	dir.defs[examID].TotalMarks = 4

	res, err := m.Submit(context.Background(), examID, "student-1", TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 3, res.MarksObtained)
}

func TestSubmitPersistFailureAllowsRetry(t *testing.T) {
	m, _, store, _, examID := newTestManager(t)
	store.setPersistErr(errors.New("database down"))

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), examID, "student-1", TriggerManual)
	require.Error(t, err)

	store.setPersistErr(nil)
	_, err = m.Submit(context.Background(), examID, "student-1", TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, store.persisted())
}

func TestSubmitDefinitionLookupFailureAllowsRetry(t *testing.T) {
	m, dir, store, _, examID := newTestManager(t)

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)

	dir.setErr(errors.New("redis and postgres both down"))
	_, err = m.Submit(context.Background(), examID, "student-1", TriggerManual)
	require.Error(t, err)

	dir.setErr(nil)
	_, err = m.Submit(context.Background(), examID, "student-1", TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, store.persisted())
}

func TestSubmitWithoutAttempt(t *testing.T) {
	m, _, _, _, examID := newTestManager(t)

	_, err := m.Submit(context.Background(), examID, "student-1", TriggerManual)
	require.ErrorIs(t, err, ErrNotInProgress)
}

func TestAttemptsAreIsolatedPerPair(t *testing.T) {
	m, dir, _, _, examID := newTestManager(t)

	other := twoQuestionExam()
	other.DurationMinutes = 30
	dir.defs[other.ID] = other

	_, err := m.Start(context.Background(), examID, "student-1", 30)
	require.NoError(t, err)
	_, err = m.Start(context.Background(), other.ID, "student-1", 30)
	require.NoError(t, err)
	_, err = m.Start(context.Background(), examID, "student-2", 30)
	require.NoError(t, err)

	require.NoError(t, m.RecordAnswer(examID, "student-1", 0, 2))

	res, err := m.Submit(context.Background(), examID, "student-2", TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 0, res.MarksObtained)

	// student-1's attempts on both exams are untouched.
	state, err := m.GetState(examID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.AnsweredCount)
	_, err = m.GetState(other.ID, "student-1")
	require.NoError(t, err)
}

func TestSubmitManualRacesDeadlineTimer(t *testing.T) {
	def := twoQuestionExam()
	dir := &fakeDirectory{defs: map[uuid.UUID]*model.ExamDefinition{def.ID: def}}
	store := &fakeStore{}
	// Real clock: a zero duration arms the deadline timer to fire at once,
	// racing the manual submitters below.
	m := NewManager(dir, store, zerolog.Nop())

	_, err := m.Start(context.Background(), def.ID, "student-1", 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*model.Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := m.Submit(context.Background(), def.ID, "student-1", TriggerManual)
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	// Whichever side won, exactly one result is persisted.
	require.Eventually(t, func() bool {
		return store.persisted() == 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, store.persisted())

	for _, res := range results {
		if res != nil {
			assert.Equal(t, 0, res.MarksObtained)
			assert.Equal(t, model.ResultStatusFail, res.Status)
		}
	}
}

func TestResubmitAfterEvictionReportsAlreadySubmitted(t *testing.T) {
	def := twoQuestionExam()
	def.DurationMinutes = 30
	dir := &fakeDirectory{defs: map[uuid.UUID]*model.ExamDefinition{def.ID: def}}
	store := &fakeStore{}
	clock := newFakeClock()
	m := NewManager(dir, store, zerolog.Nop(),
		WithClock(clock.Now),
		WithRetention(time.Minute),
		WithJanitorInterval(10*time.Millisecond))

	_, err := m.Start(context.Background(), def.ID, "student-1", 30)
	require.NoError(t, err)
	_, err = m.Submit(context.Background(), def.ID, "student-1", TriggerManual)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.RunJanitor(ctx)

	require.Eventually(t, func() bool {
		_, err := m.GetState(def.ID, "student-1")
		return errors.Is(err, ErrNotInProgress)
	}, 2*time.Second, 10*time.Millisecond)

	// The in-memory result is gone but the durable one still exists, so a
	// late duplicate reports the submission rather than a missing attempt.
	_, err = m.Submit(context.Background(), def.ID, "student-1", TriggerManual)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestJanitorEvictsRetainedResults(t *testing.T) {
	def := twoQuestionExam()
	def.DurationMinutes = 30
	dir := &fakeDirectory{defs: map[uuid.UUID]*model.ExamDefinition{def.ID: def}}
	store := &fakeStore{}
	clock := newFakeClock()
	m := NewManager(dir, store, zerolog.Nop(),
		WithClock(clock.Now),
		WithRetention(time.Minute),
		WithJanitorInterval(10*time.Millisecond))

	_, err := m.Start(context.Background(), def.ID, "student-1", 30)
	require.NoError(t, err)
	_, err = m.Submit(context.Background(), def.ID, "student-1", TriggerManual)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go m.RunJanitor(ctx)

	require.Eventually(t, func() bool {
		_, err := m.GetState(def.ID, "student-1")
		return errors.Is(err, ErrNotInProgress)
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	// The durable result still blocks a restart.
	_, err = m.Start(context.Background(), def.ID, "student-1", 30)
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}
