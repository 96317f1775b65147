package workers

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/models"
)

func TestMain(m *testing.M) {
	logger.Init("test")
	os.Exit(m.Run())
}

type fakeTargets struct {
	projects []string
	users    []string
	err      error
}

func (f fakeTargets) ProjectIDs(*gorm.DB) ([]string, error) { return f.projects, f.err }
func (f fakeTargets) UserIDs(*gorm.DB) ([]string, error)    { return f.users, nil }

type fakeCalculator struct {
	mu       sync.Mutex
	projects []string
	users    []string
	dates    []time.Time
	failOn   string
}

func (f *fakeCalculator) CalculateProjectMetrics(_ context.Context, _ *gorm.DB, id string, date time.Time, period models.PeriodType) (*models.ProjectMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.failOn {
		return nil, errors.New("boom")
	}
	f.projects = append(f.projects, id)
	f.dates = append(f.dates, date)
	return &models.ProjectMetrics{ProjectID: id, PeriodType: period}, nil
}

func (f *fakeCalculator) CalculateUserMetrics(_ context.Context, _ *gorm.DB, id string, date time.Time, period models.PeriodType) (*models.UserMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, id)
	return &models.UserMetrics{UserID: id, PeriodType: period}, nil
}

func TestSnapshotWorker_RunOnce(t *testing.T) {
	calc := &fakeCalculator{failOn: "p2"}
	w := NewSnapshotWorker(nil, calc)
	w.targets = fakeTargets{projects: []string{"p1", "p2", "p3"}, users: []string{"u1"}}

	date := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	created := w.RunOnce(context.Background(), date)

	assert.Equal(t, 3, created)
	assert.Equal(t, []string{"p1", "p3"}, calc.projects)
	assert.Equal(t, []string{"u1"}, calc.users)
	for _, d := range calc.dates {
		assert.Equal(t, date, d)
	}
}

func TestSnapshotWorker_ListErrorStillRunsUsers(t *testing.T) {
	calc := &fakeCalculator{}
	w := NewSnapshotWorker(nil, calc)
	w.targets = fakeTargets{users: []string{"u1", "u2"}, err: errors.New("db down")}

	assert.Equal(t, 2, w.RunOnce(context.Background(), time.Now()))
	assert.Empty(t, calc.projects)
}

func TestSnapshotWorker_StopsOnCancel(t *testing.T) {
	w := NewSnapshotWorker(nil, &fakeCalculator{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

type fakeSweeper struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSweeper) SweepExpired(context.Context, *gorm.DB) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 1, nil
}

func (f *fakeSweeper) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestAddOnWorker_SweepsUntilCancelled(t *testing.T) {
	sweeper := &fakeSweeper{}
	w := NewAddOnWorker(nil, sweeper, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return sweeper.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
