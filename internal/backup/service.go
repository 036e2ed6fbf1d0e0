package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBackupRunning is returned when a backup is requested while another is in flight.
var ErrBackupRunning = errors.New("a backup is already running")

// Options configures a Service.
type Options struct {
	Runner   Runner
	Interval time.Duration
	Timeout  time.Duration
	// Target is the backup destination directory, measured for statistics. Optional.
	Target string
	// Send delivers completion notices to the operator. Optional.
	Send   func(context.Context, string) error
	Logger *slog.Logger
}

type activeRun struct {
	id        string
	trigger   Trigger
	startedAt time.Time
	cancel    context.CancelFunc
}

// Service is the backup application controlled from chat: it runs backups on
// an interval while automatic mode is enabled, runs manual backups on demand,
// and keeps the run history.
type Service struct {
	store    *Store
	runner   Runner
	interval time.Duration
	timeout  time.Duration
	target   string
	send     func(context.Context, string) error
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	reset  chan struct{}

	mu       sync.Mutex
	current  *activeRun
	nextTick time.Time
}

func NewService(store *Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:    store,
		runner:   opts.Runner,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		target:   opts.Target,
		send:     opts.Send,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		reset:    make(chan struct{}, 1),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Interval returns the automatic backup interval.
func (s *Service) Interval() time.Duration {
	return s.interval
}

// Start enables automatic backups. It reports false if they were already enabled.
func (s *Service) Start() (bool, error) {
	changed, err := s.setAuto(true)
	if err != nil {
		return false, err
	}
	if changed {
		s.signalReset()
		s.logger.Info("automatic backups enabled", "interval", s.interval)
	}
	return changed, nil
}

// Stop disables automatic backups. It reports false if they were already disabled.
// A backup in flight is left to finish.
func (s *Service) Stop() (bool, error) {
	changed, err := s.setAuto(false)
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.Info("automatic backups disabled")
	}
	return changed, nil
}

func (s *Service) setAuto(enabled bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Load()
	if err != nil {
		return false, err
	}
	if st.AutoEnabled == enabled {
		return false, nil
	}
	st.AutoEnabled = enabled
	if err := s.store.Save(st); err != nil {
		return false, err
	}
	return true, nil
}

// TriggerManual starts a backup in the background and returns its run id.
func (s *Service) TriggerManual() (string, error) {
	return s.begin(TriggerManual)
}

// Restart cancels any backup in flight and restarts the automatic schedule
// from now.
func (s *Service) Restart() error {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur != nil {
		s.logger.Warn("cancelling backup for restart", "run", cur.id)
		cur.cancel()
	}
	s.signalReset()
	s.logger.Info("backup service restarted")
	return nil
}

// ClearHistory removes all recorded runs and returns how many were removed.
func (s *Service) ClearHistory() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Load()
	if err != nil {
		return 0, err
	}
	n := len(st.Runs)
	cleared := s.now()
	st.Runs = []Run{}
	st.ClearedAt = &cleared
	if err := s.store.Save(st); err != nil {
		return 0, err
	}
	s.logger.Info("backup history cleared", "runs", n)
	return n, nil
}

// Run drives scheduled backups until ctx is cancelled. Call it in a goroutine.
func (s *Service) Run(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	s.setNextTick(s.now().Add(s.interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.reset:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.interval)
			s.setNextTick(s.now().Add(s.interval))
		case <-timer.C:
			s.scheduledTick()
			timer.Reset(s.interval)
			s.setNextTick(s.now().Add(s.interval))
		}
	}
}

func (s *Service) scheduledTick() {
	st, err := s.loadLocked()
	if err != nil {
		s.logger.Error("scheduled backup: load state", "error", err)
		return
	}
	if !st.AutoEnabled {
		return
	}
	if _, err := s.begin(TriggerScheduled); err != nil {
		s.logger.Warn("scheduled backup skipped", "error", err)
	}
}

// Close cancels background runs and waits for them to record their result.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until no background run is in flight.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) begin(trigger Trigger) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return "", ErrBackupRunning
	}
	if err := s.ctx.Err(); err != nil {
		return "", fmt.Errorf("backup service closed: %w", err)
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}
	ar := &activeRun{
		id:        uuid.New().String(),
		trigger:   trigger,
		startedAt: s.now(),
		cancel:    cancel,
	}
	s.current = ar

	s.wg.Add(1)
	go s.execute(ctx, ar)

	s.logger.Info("backup started", "run", ar.id, "trigger", trigger)
	return ar.id, nil
}

func (s *Service) execute(ctx context.Context, ar *activeRun) {
	defer s.wg.Done()
	defer ar.cancel()

	output, err := s.runner.Run(ctx)
	run := Run{
		ID:         ar.id,
		Trigger:    ar.trigger,
		StartedAt:  ar.startedAt,
		FinishedAt: s.now(),
		OK:         err == nil,
		Output:     output,
	}
	if err != nil {
		run.Error = err.Error()
	}

	s.mu.Lock()
	s.current = nil
	saveErr := s.appendRun(run)
	s.mu.Unlock()

	if saveErr != nil {
		s.logger.Error("record backup run", "run", run.ID, "error", saveErr)
	}
	if err != nil {
		s.logger.Error("backup failed", "run", run.ID, "trigger", run.Trigger, "error", err)
	} else {
		s.logger.Info("backup finished", "run", run.ID, "trigger", run.Trigger, "duration", run.Duration())
	}

	if run.Trigger == TriggerManual || !run.OK {
		s.notify(FormatRunResult(run))
	}
}

// appendRun must be called with mu held.
func (s *Service) appendRun(run Run) error {
	st, err := s.store.Load()
	if err != nil {
		return err
	}
	st.Runs = append(st.Runs, run)
	return s.store.Save(st)
}

func (s *Service) notify(text string) {
	if s.send == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.send(ctx, text); err != nil {
		s.logger.Error("send backup notice", "error", err)
	}
}

func (s *Service) signalReset() {
	select {
	case s.reset <- struct{}{}:
	default:
	}
}

func (s *Service) setNextTick(t time.Time) {
	s.mu.Lock()
	s.nextTick = t
	s.mu.Unlock()
}

func (s *Service) loadLocked() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

// Status is a point-in-time view of the service.
type Status struct {
	AutoEnabled  bool
	Interval     time.Duration
	Running      bool
	RunningID    string
	RunningSince time.Time
	Trigger      Trigger
	NextRun      time.Time
	LastRun      *Run
}

func (s *Service) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Load()
	if err != nil {
		return Status{}, err
	}
	out := Status{
		AutoEnabled: st.AutoEnabled,
		Interval:    s.interval,
		NextRun:     s.nextTick,
	}
	if s.current != nil {
		out.Running = true
		out.RunningID = s.current.id
		out.RunningSince = s.current.startedAt
		out.Trigger = s.current.trigger
	}
	if n := len(st.Runs); n > 0 {
		last := st.Runs[n-1]
		out.LastRun = &last
	}
	return out, nil
}

// Stats summarizes the recorded run history.
type Stats struct {
	Total       int
	Succeeded   int
	Failed      int
	Manual      int
	Scheduled   int
	Last        *Run
	Previous    *Run
	LastSuccess *Run
	ClearedAt   *time.Time
	TargetSize  int64
	TargetErr   error
}

// Stats summarizes the run history and measures the backup target. A
// cancelled ctx stops the target walk and is reported in TargetErr.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st, err := s.loadLocked()
	if err != nil {
		return Stats{}, err
	}

	out := Stats{Total: len(st.Runs), ClearedAt: st.ClearedAt}
	for i := range st.Runs {
		r := st.Runs[i]
		if r.OK {
			out.Succeeded++
			out.LastSuccess = &st.Runs[i]
		} else {
			out.Failed++
		}
		if r.Trigger == TriggerManual {
			out.Manual++
		} else {
			out.Scheduled++
		}
	}
	if n := len(st.Runs); n > 0 {
		out.Last = &st.Runs[n-1]
		if n > 1 {
			out.Previous = &st.Runs[n-2]
		}
	}

	if s.target != "" {
		out.TargetSize, out.TargetErr = dirSize(ctx, s.target)
	}
	return out, nil
}

func dirSize(ctx context.Context, root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measure %s: %w", root, err)
	}
	return total, nil
}
