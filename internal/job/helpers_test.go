package job

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	saveErr error
	history map[uuid.UUID][]Status
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[uuid.UUID]*Record),
		history: make(map[uuid.UUID][]Status),
	}
}

func (s *memStore) SaveJob(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	now := time.Now()
	s.records[job.ID()] = &Record{
		ID:        job.ID(),
		Type:      job.Type(),
		Payload:   job.Payload(),
		Status:    job.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.history[job.ID()] = append(s.history[job.ID()], job.Status())
	return nil
}

func (s *memStore) UpdateJobStatus(_ context.Context, id uuid.UUID, status Status, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return store.ErrJobNotFound
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = time.Now()
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *memStore) put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := rec
	s.records[rec.ID] = &r
}

func (s *memStore) byStatus(status Status, olderThan time.Duration) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && time.Since(rec.UpdatedAt) < olderThan {
			continue
		}
		out = append(out, *rec)
	}
	return out
}

func (s *memStore) GetPendingJobs(context.Context) ([]Record, error) {
	return s.byStatus(StatusPending, 0), nil
}

func (s *memStore) GetProcessingJobs(_ context.Context, olderThan time.Duration) ([]Record, error) {
	return s.byStatus(StatusProcessing, olderThan), nil
}

func (s *memStore) WithTx(*sql.Tx) Store { return s }

func (s *memStore) status(id uuid.UUID) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return rec.Status
	}
	return ""
}

func (s *memStore) errorMessage(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id].ErrorMessage
}

// fakeJob is a Job whose Execute is configurable.
type fakeJob struct {
	id        uuid.UUID
	jobType   string
	payload   []byte
	executeFn func(ctx context.Context) error
}

func newFakeJob(fn func(ctx context.Context) error) *fakeJob {
	if fn == nil {
		fn = func(context.Context) error { return nil }
	}
	return &fakeJob{id: uuid.New(), jobType: "fake", payload: []byte(`{}`), executeFn: fn}
}

func (j *fakeJob) ID() uuid.UUID                     { return j.id }
func (j *fakeJob) Type() string                      { return j.jobType }
func (j *fakeJob) Payload() []byte                   { return j.payload }
func (j *fakeJob) Status() Status                    { return StatusPending }
func (j *fakeJob) Execute(ctx context.Context) error { return j.executeFn(ctx) }

// fakeFactory rehydrates records into fakeJobs that signal on done.
type fakeFactory struct {
	done chan uuid.UUID
}

func (f *fakeFactory) Rehydrate(rec Record) (Job, error) {
	return &fakeJob{
		id:      rec.ID,
		jobType: rec.Type,
		payload: rec.Payload,
		executeFn: func(context.Context) error {
			f.done <- rec.ID
			return nil
		},
	}, nil
}
