package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job states.
const (
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Progress is one job update pushed to websocket subscribers and
// returned from the job endpoint.
type Progress struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	ReportID string `json:"report_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Job tracks one asynchronous analysis run.
type Job struct {
	ID        string
	Codes     []string
	CreatedAt time.Time

	mu       sync.Mutex
	status   string
	done     int
	total    int
	reportID string
	err      string
	finished time.Time
	subs     map[chan Progress]struct{}
}

// Snapshot returns the job's current progress.
func (j *Job) Snapshot() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progressLocked()
}

func (j *Job) progressLocked() Progress {
	return Progress{
		ID:       j.ID,
		Status:   j.status,
		Done:     j.done,
		Total:    j.total,
		ReportID: j.reportID,
		Error:    j.err,
	}
}

// Subscribe registers a progress channel. The channel receives the
// current state immediately and every later update; it is closed when
// the job finishes.
func (j *Job) Subscribe() chan Progress {
	ch := make(chan Progress, 16)
	j.mu.Lock()
	defer j.mu.Unlock()

	ch <- j.progressLocked()
	if j.status != JobRunning {
		close(ch)
		return ch
	}
	j.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe drops a channel registered with Subscribe.
func (j *Job) Unsubscribe(ch chan Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.subs, ch)
}

func (j *Job) setProgress(done, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.done, j.total = done, total
	j.broadcastLocked()
}

func (j *Job) finish(reportID, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if errMsg != "" {
		j.status, j.err = JobFailed, errMsg
	} else {
		j.status, j.reportID = JobDone, reportID
	}
	j.finished = time.Now()
	j.broadcastLocked()
	for ch := range j.subs {
		close(ch)
		delete(j.subs, ch)
	}
}

// broadcastLocked pushes the state to subscribers without blocking; a
// slow reader just misses intermediate updates.
func (j *Job) broadcastLocked() {
	p := j.progressLocked()
	for ch := range j.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// jobStore holds the in-flight and recently finished jobs.
type jobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func newJobStore(ttl time.Duration) *jobStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &jobStore{jobs: make(map[string]*Job), ttl: ttl}
}

// Create registers a new running job.
func (s *jobStore) Create(codes []string) *Job {
	j := &Job{
		ID:        uuid.NewString(),
		Codes:     codes,
		CreatedAt: time.Now(),
		status:    JobRunning,
		total:     len(codes),
		subs:      make(map[chan Progress]struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.jobs[j.ID] = j
	return j
}

// Get looks a job up by ID.
func (s *jobStore) Get(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

// sweepLocked drops finished jobs past their TTL. Caller holds the lock.
func (s *jobStore) sweepLocked() {
	cutoff := time.Now().Add(-s.ttl)
	for id, j := range s.jobs {
		j.mu.Lock()
		expired := j.status != JobRunning && j.finished.Before(cutoff)
		j.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}
