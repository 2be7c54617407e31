package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/profile"
	"controlling_fermenter/internal/repository"
)

// memRunRepo is an in-memory repository.RunRepo.
type memRunRepo struct {
	mu      sync.Mutex
	runs    map[int64]models.Run
	nextID  int64
	updates []models.Run

	createErr error
	updateErr error
	getErr    error
	listErr   error
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{runs: map[int64]models.Run{}, nextID: 1}
}

func (m *memRunRepo) Create(ctx context.Context, run models.Run) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	run.ID = m.nextID
	m.nextID++
	m.runs[run.ID] = run
	return run.ID, nil
}

func (m *memRunRepo) Update(ctx context.Context, run models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.runs[run.ID]; !ok {
		return repository.ErrNotFound
	}
	m.runs[run.ID] = run
	m.updates = append(m.updates, run)
	return nil
}

func (m *memRunRepo) Get(ctx context.Context, id int64) (models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return models.Run{}, m.getErr
	}
	r, ok := m.runs[id]
	if !ok {
		return models.Run{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *memRunRepo) GetByName(ctx context.Context, name string) (models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return models.Run{}, m.getErr
	}
	for _, r := range m.runs {
		if r.Name == name {
			return r, nil
		}
	}
	return models.Run{}, repository.ErrNotFound
}

func (m *memRunRepo) List(ctx context.Context, status models.RunStatus, limit int) ([]models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Run
	for _, r := range m.runs {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRunRepo) AbortUnfinished(ctx context.Context, reason string, at time.Time) (int64, error) {
	return 0, nil
}

func (m *memRunRepo) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

func (m *memRunRepo) get(id int64) models.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[id]
}

// memReadingRepo is an in-memory repository.ReadingRepo.
type memReadingRepo struct {
	mu        sync.Mutex
	readings  []models.Reading
	lastQuery repository.ReadingFilter
	deleted   []int64
}

func (m *memReadingRepo) Append(ctx context.Context, r models.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, r)
	return nil
}

func (m *memReadingRepo) List(ctx context.Context, f repository.ReadingFilter) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = f
	var out []models.Reading
	for _, r := range m.readings {
		if f.RunID != 0 && r.RunID != f.RunID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memReadingRepo) DeleteByRun(ctx context.Context, runID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, runID)
	kept := m.readings[:0]
	var n int64
	for _, r := range m.readings {
		if r.RunID == runID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.readings = kept
	return n, nil
}

func (m *memReadingRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *memReadingRepo) deletedRuns() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.deleted...)
}

// memEventRepo records appended events.
type memEventRepo struct {
	mu     sync.Mutex
	events []models.Event
}

func (m *memEventRepo) Append(ctx context.Context, e models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memEventRepo) List(ctx context.Context, f repository.EventFilter) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, e := range m.events {
		if f.RunID != 0 && e.RunID != f.RunID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memEventRepo) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

// fakeLoop is a RunLoop that records calls.
type fakeLoop struct {
	mu       sync.Mutex
	started  []models.Run
	profiles []*profile.Profile
	stops    []string
	aborts   []string
	snapshot *models.Run

	startErr error
	endErr   error
}

func (f *fakeLoop) Start(run models.Run, p *profile.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, run)
	f.profiles = append(f.profiles, p)
	return nil
}

func (f *fakeLoop) Stop(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, reason)
	return f.endErr
}

func (f *fakeLoop) Abort(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborts = append(f.aborts, reason)
	return f.endErr
}

func (f *fakeLoop) Status() (models.Run, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return models.Run{}, false
	}
	return *f.snapshot, true
}
