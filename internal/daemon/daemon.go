package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"faceswap/internal/config"
	"faceswap/internal/jobs"
	"faceswap/internal/logging"
	"faceswap/internal/notifications"
	"faceswap/internal/preflight"
	"faceswap/internal/state"
	"faceswap/internal/workflow"
)

const lockFileName = "faceswapd.lock"

// Daemon drains the job queue in the background and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	workflow *workflow.Manager
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	pollInterval  time.Duration
	retryInterval time.Duration

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	passes  atomic.Int64
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Passes       int64
	Workflow     workflow.StatusSummary
	JobsPath     string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies. A nil notifier
// disables notifications.
func New(cfg *config.Config, logger *slog.Logger, wf *workflow.Manager, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, logger, and workflow manager")
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}

	lockPath := filepath.Join(cfg.Paths.JobsPath, lockFileName)
	return &Daemon{
		cfg:           cfg,
		logger:        logging.NewComponentLogger(logger, "daemon"),
		workflow:      wf,
		notifier:      notifier,
		lockPath:      lockPath,
		lock:          flock.New(lockPath),
		pollInterval:  intervalSeconds(cfg.Daemon.PollInterval, 5),
		retryInterval: intervalSeconds(cfg.Daemon.ErrorRetryInterval, 10),
	}, nil
}

func intervalSeconds(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

// Start acquires the daemon lock and launches the queue poller.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if check := preflight.CheckDirectoryAccess("Jobs directory", d.cfg.Paths.JobsPath); !check.Passed {
		return fmt.Errorf("jobs root unusable: %s", check.Detail)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another faceswap daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(state.WithScope(ctx, state.ScopeCLI))
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)
	go d.loop(runCtx, d.done)

	d.logger.Info("faceswap daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("poll_interval", d.pollInterval),
		logging.String(logging.FieldEventType, "daemon_start"),
	)
	return nil
}

// Stop cancels the poller, waits for the job in flight to reach a step
// boundary and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("faceswap daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

func (d *Daemon) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for {
		wait := d.pollInterval
		tally := passTally{started: time.Now()}
		ran, err := d.workflow.RunQueued(ctx, func(ctx context.Context, job *jobs.Job) {
			tally.add(job)
			d.publishJob(ctx, job)
		})
		d.passes.Add(1)
		if tally.processed > 0 {
			d.publish(ctx, notifications.EventQueueCompleted, notifications.Payload{
				"processed": tally.processed,
				"failed":    tally.failed,
				"duration":  time.Since(tally.started),
			})
		}
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			logging.WarnWithContext(d.logger, "queue pass failed", "daemon_pass_failed",
				logging.Error(err),
				logging.Duration("retry_in", d.retryInterval),
				logging.String(logging.FieldErrorHint, "check jobs_path permissions"),
			)
			wait = d.retryInterval
		case ran:
			d.logger.Debug("queue pass completed", logging.Bool("all_completed", ran))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

type passTally struct {
	started   time.Time
	processed int
	failed    int
}

func (t *passTally) add(job *jobs.Job) {
	t.processed++
	if job.Status != jobs.StatusCompleted {
		t.failed++
	}
}

func (d *Daemon) publishJob(ctx context.Context, job *jobs.Job) {
	switch job.Status {
	case jobs.StatusCompleted:
		d.publish(ctx, notifications.EventJobCompleted, notifications.Payload{
			"jobID": job.ID,
			"steps": len(job.Steps),
		})
	case jobs.StatusFailed:
		d.publish(ctx, notifications.EventJobFailed, notifications.Payload{
			"jobID": job.ID,
			"error": workflow.FailureSummary(job),
		})
	}
}

func (d *Daemon) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := d.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Passes:       d.passes.Load(),
		Workflow:     d.workflow.Status(ctx),
		JobsPath:     d.cfg.Paths.JobsPath,
		LockFilePath: d.lockPath,
	}
}
