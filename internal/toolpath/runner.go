package toolpath

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

var (
	// ErrBusy is returned when a run is started while another is in flight.
	ErrBusy = errors.New("toolpath: a generation run is already in progress")
	// ErrInternal wraps unexpected failures inside a run.
	ErrInternal = errors.New("toolpath: internal failure")
)

// Outcome is delivered once per started run.
type Outcome struct {
	Result *Result
	Err    error
}

// Runner executes generation runs off the caller's goroutine, one at a
// time. Runs cannot be cancelled once started.
type Runner struct {
	busy atomic.Bool
	log  *slog.Logger
}

func NewRunner(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{log: log}
}

// Busy reports whether a run is in flight.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

// Start launches job and returns a channel that receives exactly one
// Outcome. It fails with ErrBusy if a run is already in flight.
func (r *Runner) Start(job Job) (<-chan Outcome, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	ch := make(chan Outcome, 1)
	go func() {
		res, err := r.run(job)
		r.busy.Store(false)
		ch <- Outcome{Result: res, Err: err}
		close(ch)
	}()
	return ch, nil
}

// Run starts job and waits for it.
func (r *Runner) Run(job Job) (*Result, error) {
	ch, err := r.Start(job)
	if err != nil {
		return nil, err
	}
	o := <-ch
	return o.Result, o.Err
}

func (r *Runner) run(job Job) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("generation run panicked", "panic", p)
			res, err = nil, fmt.Errorf("%w: %v", ErrInternal, p)
		}
	}()
	return Generate(job, r.log)
}
