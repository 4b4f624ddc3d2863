// Package jobs runs operator-triggered maintenance commands (backtests,
// model retraining) as subprocesses, one at a time, streaming their output.
package jobs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrBusy is returned when a job is already running. There is exactly
	// one permit per process: maintenance jobs are heavy and must never
	// overlap with each other.
	ErrBusy = errors.New("a job is already running")

	// ErrNoCommand is returned when the job has no configured command.
	ErrNoCommand = errors.New("no command configured for job")
)

// Broadcaster receives each output line of a running job.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// Runner executes one maintenance job at a time. Acquisition never blocks:
// a start attempt while a job is running fails immediately with ErrBusy so
// the caller can report the conflict instead of queueing.
type Runner struct {
	logger *zap.Logger
	hub    Broadcaster
	permit chan struct{}

	mu     sync.Mutex
	active string
	wg     sync.WaitGroup
}

// NewRunner creates a runner broadcasting job output to hub.
func NewRunner(logger *zap.Logger, hub Broadcaster) *Runner {
	permit := make(chan struct{}, 1)
	permit <- struct{}{}
	return &Runner{
		logger: logger,
		hub:    hub,
		permit: permit,
	}
}

// ActiveJob returns the name of the running job, or "" when idle.
func (r *Runner) ActiveJob() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start launches the named command in the background. It returns ErrBusy
// without side effects if another job holds the permit.
func (r *Runner) Start(ctx context.Context, name string, command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("%w: %s", ErrNoCommand, name)
	}

	select {
	case <-r.permit:
	default:
		return ErrBusy
	}

	r.mu.Lock()
	r.active = name
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			r.active = ""
			r.mu.Unlock()
			r.permit <- struct{}{}
		}()
		r.run(ctx, name, command)
	}()
	return nil
}

// Wait blocks until the running job, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, name string, command []string) {
	r.logger.Info("Job started", zap.String("job", name), zap.Strings("command", command))
	r.hub.Broadcast([]byte(fmt.Sprintf("[%s] started", name)))

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)

	// stdout and stderr are interleaved into one stream; operators read the
	// combined output the same way they would in a terminal.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		r.logger.Error("Job failed to start", zap.String("job", name), zap.Error(err))
		r.hub.Broadcast([]byte(fmt.Sprintf("[%s] failed to start: %v", name, err)))
		return
	}

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		done <- err
	}()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		r.logger.Info("Job output", zap.String("job", name), zap.String("line", line))
		r.hub.Broadcast([]byte(line))
	}

	if err := <-done; err != nil {
		r.logger.Error("Job failed", zap.String("job", name), zap.Error(err))
		r.hub.Broadcast([]byte(fmt.Sprintf("[%s] failed: %v", name, err)))
		return
	}
	r.logger.Info("Job finished", zap.String("job", name))
	r.hub.Broadcast([]byte(fmt.Sprintf("[%s] finished", name)))
}
