package cron

import (
	"context"
	"sync"
	"time"
)

// Job is a maintenance task run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Periodic jobs run at most once per Every(). Jobs without it run on every tick.
type Periodic interface {
	Every() time.Duration
}

// Registry holds the worker's jobs and when each last started on this instance.
type Registry struct {
	mu      sync.Mutex
	jobs    []Job
	started map[string]time.Time
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{started: make(map[string]time.Time)}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register adds job. Nil jobs and duplicate names are dropped.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.jobs {
		if existing.Name() == job.Name() {
			return
		}
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Job(nil), r.jobs...)
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}

// Due returns the jobs that should run at now and records now as their start.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, job := range r.jobs {
		if last, ok := r.started[job.Name()]; ok {
			if p, periodic := job.(Periodic); periodic && now.Sub(last) < p.Every() {
				continue
			}
		}
		r.started[job.Name()] = now
		due = append(due, job)
	}
	return due
}
