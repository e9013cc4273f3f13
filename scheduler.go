package fulfill

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scheduler owns the dispatch queue and the active job count. Jobs are admitted
// in enqueue order and never more than MaxActive run at once.
type Scheduler struct {
	handler JobHandler
	cfg     SchedulerConfig

	mu      sync.Mutex
	queue   []Job
	active  int
	running bool
	closed  bool
}

type jobOutcome struct {
	job      Job
	result   Result
	err      error
	panicked bool
	duration time.Duration
}

// NewScheduler constructs a Scheduler with defaults and optional settings.
func NewScheduler(handler JobHandler, opts ...SchedulerOption) *Scheduler {
	if handler == nil {
		panic("fulfill: nil JobHandler")
	}

	var cfg SchedulerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Scheduler{
		handler: handler,
		cfg:     cfg.withDefaults(),
	}
}

// Enqueue appends order to the queue and returns immediately.
func (s *Scheduler) Enqueue(order Order) (Job, error) {
	if err := order.Validate(); err != nil {
		return Job{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Job{}, fmt.Errorf("generate job id: %w", err)
	}
	job := Job{ID: id, Order: order, EnqueuedAt: s.cfg.Clock.Now()}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return Job{}, ErrSchedulerClosed
	}
	s.queue = append(s.queue, job)
	queued := len(s.queue)
	s.mu.Unlock()

	s.cfg.Metrics.SetQueued(queued)
	s.cfg.Logger.Info("fulfill job enqueued", "job_id", job.ID.String(), "order_id", order.ID, "queued", queued)

	return job, nil
}

// Active returns the number of admitted jobs that have not finished.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// Queued returns the number of jobs waiting for admission.
func (s *Scheduler) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queue)
}

// Run starts the executor pool and the admission loop. It returns after ctx is
// canceled and in-flight jobs finish, or with ErrDrainTimeout when they do not
// finish within the drain timeout. Jobs still queued at cancellation are dropped.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return ErrSchedulerClosed
	}
	if s.running {
		s.mu.Unlock()

		return ErrSchedulerRunning
	}
	s.running = true
	s.mu.Unlock()

	// Outstanding jobs never exceed MaxActive, so neither channel blocks its sender.
	jobs := make(chan Job, s.cfg.MaxActive)
	outcomes := make(chan jobOutcome, s.cfg.MaxActive)
	workCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.PoolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcomes <- s.execute(workCtx, job)
			}
		}()
	}

	s.cfg.Logger.Info("fulfill scheduler started",
		"max_active", s.cfg.MaxActive,
		"pool_size", s.cfg.PoolSize,
		"poll_interval", s.cfg.PollInterval.String(),
	)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.admit(jobs)
	for {
		select {
		case <-ctx.Done():
			return s.shutdown(workCtx, jobs, outcomes, &wg)
		case out := <-outcomes:
			s.complete(workCtx, out)
		case <-ticker.C:
			s.admit(jobs)
		}
	}
}

// admit moves jobs from the head of the queue into the pool while capacity remains.
// Dequeue and increment happen under one lock.
func (s *Scheduler) admit(jobs chan<- Job) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.active >= s.cfg.MaxActive {
			s.mu.Unlock()

			return
		}
		job := s.queue[0]
		s.queue[0] = Job{}
		s.queue = s.queue[1:]
		s.active++
		active, queued := s.active, len(s.queue)
		s.mu.Unlock()

		s.cfg.Metrics.SetActive(active)
		s.cfg.Metrics.SetQueued(queued)
		s.cfg.Logger.Info("fulfill job admitted",
			"job_id", job.ID.String(),
			"order_id", job.Order.ID,
			"active", active,
			"queued", queued,
		)
		jobs <- job
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) (out jobOutcome) {
	start := s.cfg.Clock.Now()
	out.job = job
	defer func() {
		if rec := recover(); rec != nil {
			out.result = ResultFailed
			out.err = fmt.Errorf("%w: %v", ErrWorkerPanic, rec)
			out.panicked = true
		}
		out.duration = s.cfg.Clock.Now().Sub(start)
	}()

	out.result, out.err = s.handler.Handle(ctx, job)

	return out
}

// complete releases the capacity held by out. It runs for every admitted job.
func (s *Scheduler) complete(ctx context.Context, out jobOutcome) {
	s.mu.Lock()
	s.active--
	active := s.active
	s.mu.Unlock()

	s.cfg.Metrics.SetActive(active)
	s.cfg.Metrics.ObserveJobDuration(out.duration)
	s.cfg.Metrics.AddCompleted(out.result)

	log := WithFields(s.cfg.Logger, "job_id", out.job.ID.String(), "order_id", out.job.Order.ID)
	if out.panicked {
		s.cfg.Metrics.AddPanics(1)
		log.Error("fulfill job panic", "err", out.err)
	}
	if out.err != nil {
		if !out.panicked {
			log.Error("fulfill job failed", "err", out.err)
		}
		if s.cfg.ErrorHandler != nil {
			s.cfg.ErrorHandler(ctx, out.job, out.err)
		}
	}
	log.Info("fulfill job finished", "result", out.result.String(), "active", active)
}

func (s *Scheduler) shutdown(ctx context.Context, jobs chan Job, outcomes chan jobOutcome, wg *sync.WaitGroup) error {
	s.mu.Lock()
	s.closed = true
	dropped := s.queue
	s.queue = nil
	active := s.active
	s.mu.Unlock()

	s.cfg.Metrics.SetQueued(0)
	for _, job := range dropped {
		s.cfg.Logger.Warn("fulfill queued job dropped", "job_id", job.ID.String(), "order_id", job.Order.ID)
		if s.cfg.ErrorHandler != nil {
			s.cfg.ErrorHandler(context.WithoutCancel(ctx), job, ErrJobDropped)
		}
	}
	s.cfg.Logger.Info("fulfill scheduler draining", "active", active, "dropped", len(dropped))

	close(jobs)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.cfg.DrainTimeout)
	defer timer.Stop()

	for {
		select {
		case out := <-outcomes:
			s.complete(ctx, out)
		case <-done:
			for {
				select {
				case out := <-outcomes:
					s.complete(ctx, out)
				default:
					s.cfg.Logger.Info("fulfill scheduler stopped")

					return nil
				}
			}
		case <-timer.C:
			remaining := s.Active()
			s.cfg.Logger.Error("fulfill scheduler drain timed out", "active", remaining)

			return fmt.Errorf("%w: %d jobs still running", ErrDrainTimeout, remaining)
		}
	}
}
