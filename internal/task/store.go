package task

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Parameters carries the run configuration fixed at submission time.
type Parameters struct {
	Hosts         int      `json:"num_hosts"`
	Guests        int      `json:"num_guests"`
	LengthMinutes int      `json:"podcast_length"`
	Speakers      []string `json:"selected_hosts,omitempty"`
}

// Record is the mutable state of one pipeline run, observed by polling.
type Record struct {
	ID          string     `json:"task_id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Error       bool       `json:"error"`
	Params      Parameters `json:"parameters"`
	Filename    string     `json:"filename,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Store is a concurrency-safe table of task records keyed by task ID.
// Each record is written only by the worker owning that task; the store
// guarantees progress never decreases except the single reset on failure,
// and that a failed record is terminal.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	clock   func() time.Time
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
		clock:   time.Now,
	}
}

// Create registers a new record in its initial state and returns a snapshot.
func (s *Store) Create(params Parameters) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{
		ID:        uuid.NewString(),
		Status:    "Starting...",
		Progress:  0,
		Params:    params,
		CreatedAt: s.clock().UTC(),
	}
	s.records[rec.ID] = rec
	return snapshot(rec)
}

// Get returns a copy of the record, if present.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return snapshot(rec), true
}

// Advance replaces the status text and raises progress. Progress values
// below the current one are clamped; updates after failure are dropped.
func (s *Store) Advance(id, status string, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.Error {
		return
	}
	rec.Status = status
	if progress > rec.Progress {
		rec.Progress = progress
	}
}

// Complete marks a successful run with its output artifact.
func (s *Store) Complete(id, filename, downloadURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.Error {
		return
	}
	rec.Status = "Complete!"
	rec.Progress = 100
	rec.Filename = filename
	rec.DownloadURL = downloadURL
}

// Fail moves the record to its terminal error state.
func (s *Store) Fail(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return
	}
	rec.Status = "Error: " + message
	rec.Progress = 0
	rec.Error = true
}

func snapshot(rec *Record) Record {
	out := *rec
	if rec.Params.Speakers != nil {
		out.Params.Speakers = append([]string(nil), rec.Params.Speakers...)
	}
	return out
}
