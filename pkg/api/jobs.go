package api

import (
	"sync"
	"time"

	"github.com/Burrhanburak/scrape-site/internal/crawler"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// JobStatus is the lifecycle state of a crawl job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobView is the JSON representation of a crawl job.
type JobView struct {
	ID         string     `json:"id"`
	SiteURL    string     `json:"siteUrl"`
	Status     JobStatus  `json:"status"`
	Completed  int        `json:"completed"`
	Total      int        `json:"total"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type job struct {
	id      string
	siteURL string

	mu         sync.RWMutex
	status     JobStatus
	completed  int
	total      int
	err        string
	startedAt  time.Time
	finishedAt *time.Time
	records    []*types.PageRecord
	subs       map[chan crawler.Progress]struct{}
}

func (j *job) snapshot() JobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobView{
		ID:         j.id,
		SiteURL:    j.siteURL,
		Status:     j.status,
		Completed:  j.completed,
		Total:      j.total,
		Error:      j.err,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
	}
}

// publish updates progress counters and fans the event out to subscribers.
// Slow subscribers drop events rather than stall the crawl. Sends happen
// under the mutex so a concurrent close in cancel or finish cannot land
// between the subscriber lookup and the send.
func (j *job) publish(p crawler.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.completed = p.Completed
	j.total = p.Total
	for ch := range j.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// finish records the terminal state and closes all subscriber channels.
func (j *job) finish(records []*types.PageRecord, err error) {
	now := time.Now()

	j.mu.Lock()
	j.records = records
	j.finishedAt = &now
	if err != nil {
		j.status = JobFailed
		j.err = err.Error()
	} else {
		j.status = JobCompleted
	}
	subs := j.subs
	j.subs = make(map[chan crawler.Progress]struct{})
	j.mu.Unlock()

	for ch := range subs {
		close(ch)
	}
}

// subscribe returns a progress channel and a cancel function. The channel
// is closed when the job finishes.
func (j *job) subscribe() (<-chan crawler.Progress, func()) {
	ch := make(chan crawler.Progress, 16)

	j.mu.Lock()
	if j.status != JobRunning {
		j.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	j.subs[ch] = struct{}{}
	j.mu.Unlock()

	cancel := func() {
		j.mu.Lock()
		if _, ok := j.subs[ch]; ok {
			delete(j.subs, ch)
			close(ch)
		}
		j.mu.Unlock()
	}
	return ch, cancel
}

func (j *job) results() ([]*types.PageRecord, JobStatus) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.records, j.status
}

type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*job)}
}

func (r *jobRegistry) create(id, siteURL string) *job {
	j := &job{
		id:        id,
		siteURL:   siteURL,
		status:    JobRunning,
		startedAt: time.Now(),
		subs:      make(map[chan crawler.Progress]struct{}),
	}
	r.mu.Lock()
	r.jobs[id] = j
	r.mu.Unlock()
	return j
}

func (r *jobRegistry) get(id string) (*job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return j, ok
}
