// Package scheduler runs the housekeeping jobs: low stock alerts and the
// expiry of bookings that were never paid for.
package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
	ErrDuplicateJob   = errors.New("job already registered")
)

var (
	service     *Service
	serviceOnce sync.Once
	serviceErr  error
)

// Service owns a gocron scheduler and the jobs registered on it by name.
type Service struct {
	scheduler gocron.Scheduler

	mu   sync.Mutex
	jobs map[string]gocron.Job

	stopOnce sync.Once
	stopErr  error
}

// New returns a stopped scheduler. A panicking job is logged and the
// scheduler keeps running.
func New() (*Service, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job", jobName).
						Interface("panic", recoverData).
						Msg("Job panicked")
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Service{scheduler: sched, jobs: map[string]gocron.Job{}}, nil
}

// Init creates the process-wide scheduler used by the package functions.
func Init() error {
	serviceOnce.Do(func() {
		service, serviceErr = New()
		if serviceErr == nil {
			log.Info().Msg("Scheduler initialized")
		}
	})
	return serviceErr
}

func instance() (*Service, error) {
	if serviceErr != nil {
		return nil, serviceErr
	}
	if service == nil {
		return nil, ErrNotInitialized
	}
	return service, nil
}

func Start() error {
	svc, err := instance()
	if err != nil {
		return err
	}
	svc.Start()
	return nil
}

func Stop() error {
	svc, err := instance()
	if err != nil {
		return err
	}
	return svc.Stop()
}

// AddJob registers task on the process-wide scheduler.
func AddJob(name, cronExpr string, task func(), opts ...gocron.JobOption) (gocron.Job, error) {
	svc, err := instance()
	if err != nil {
		return nil, err
	}
	return svc.AddJob(name, cronExpr, task, opts...)
}

func (s *Service) Start() {
	log.Info().Int("jobs", len(s.JobNames())).Msg("Scheduler starting")
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down. Later calls
// return the first result.
func (s *Service) Stop() error {
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddJob registers task under a five-field cron expression. Names are unique.
func (s *Service) AddJob(name, cronExpr string, task func(), opts ...gocron.JobOption) (gocron.Job, error) {
	name = strings.TrimSpace(name)
	cronExpr = strings.TrimSpace(cronExpr)
	if name == "" {
		return nil, ErrEmptyJobName
	}
	if cronExpr == "" {
		return nil, ErrEmptyCronExpr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	logger := log.With().Str("job", name).Str("cron", cronExpr).Logger()
	run := func() {
		logger.Debug().Msg("Job started")
		task()
		logger.Debug().Msg("Job finished")
	}

	opts = append([]gocron.JobOption{gocron.WithName(name)}, opts...)
	job, err := s.scheduler.NewJob(gocron.CronJob(cronExpr, false), gocron.NewTask(run), opts...)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register job")
		return nil, fmt.Errorf("register job %s: %w", name, err)
	}
	s.jobs[name] = job
	logger.Info().Msg("Job registered")
	return job, nil
}

// JobNames lists registered jobs in no particular order.
func (s *Service) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}
