// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultKey is the sorted set holding pending timeout jobs.
const DefaultKey = "timeouts"

// ErrBadJobID is returned for members of the timeout set that cannot be parsed.
var ErrBadJobID = errors.New("malformed timeout job id")

// Job is a delayed phase timeout for one round of a game.
type Job struct {
	GameID uuid.UUID
	Round  int
	Kind   models.Phase
}

// ID is the job identity: scheduling the same job again replaces it.
func (j Job) ID() string {
	return fmt.Sprintf("%s-%d-%s", j.GameID, j.Round, j.Kind)
}

// ParseJobID reverses Job.ID. The game id contains dashes itself, so the round and kind are
// taken from the end.
func ParseJobID(id string) (Job, error) {
	kindAt := strings.LastIndexByte(id, '-')
	if kindAt < 0 {
		return Job{}, ErrBadJobID
	}
	roundAt := strings.LastIndexByte(id[:kindAt], '-')
	if roundAt < 0 {
		return Job{}, ErrBadJobID
	}
	gameID, err := uuid.Parse(id[:roundAt])
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrBadJobID, err)
	}
	round, err := strconv.Atoi(id[roundAt+1 : kindAt])
	if err != nil || round < 0 {
		return Job{}, ErrBadJobID
	}
	return Job{GameID: gameID, Round: round, Kind: models.Phase(id[kindAt+1:])}, nil
}

// Handlers run the transition each phase timeout stands for.
type Handlers interface {
	AutoClosePlay(ctx context.Context, gameID uuid.UUID, round int) error
	AutoReveal(ctx context.Context, gameID uuid.UUID, round int) error
	AutoEndRound(ctx context.Context, gameID uuid.UUID, round int) error
	AutoStartNextRound(ctx context.Context, gameID uuid.UUID, round int) error
}

// Scheduler stores delayed jobs in a Redis sorted set scored by due time. Any number of server
// instances may poll the same set; removing a due member is the claim, so exactly one instance
// fires each job.
type Scheduler struct {
	rdb    redis.Cmdable
	key    string
	poll   time.Duration
	batch  int64
	logger logrus.FieldLogger

	// Now is the clock used for scores and due checks.
	Now func() time.Time

	wg sync.WaitGroup
}

// New returns a Scheduler polling every poll interval.
func New(rdb redis.Cmdable, poll time.Duration, logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		rdb:    rdb,
		key:    DefaultKey,
		poll:   poll,
		batch:  100,
		logger: logger,
		Now:    time.Now,
	}
}

// Schedule queues job to fire after delay, replacing an earlier job with the same identity.
func (s *Scheduler) Schedule(ctx context.Context, job Job, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	due := s.Now().Add(delay).UnixMilli()
	if err := s.rdb.ZAdd(ctx, s.key, redis.Z{Score: float64(due), Member: job.ID()}).Err(); err != nil {
		return fmt.Errorf("schedule %s: %w", job.ID(), err)
	}
	s.logger.WithFields(logrus.Fields{"job": job.ID(), "delay": delay}).Debug("timeout scheduled")
	return nil
}

// Clear removes a pending job. Clearing a job that does not exist is not an error.
func (s *Scheduler) Clear(ctx context.Context, job Job) error {
	if err := s.rdb.ZRem(ctx, s.key, job.ID()).Err(); err != nil {
		return fmt.Errorf("clear %s: %w", job.ID(), err)
	}
	return nil
}

// Run polls for due jobs until ctx is done, then waits for running handlers.
func (s *Scheduler) Run(ctx context.Context, h Handlers) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	s.logger.Info("timeout scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("timeout scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Poll(ctx, h); err != nil && ctx.Err() == nil {
				s.logger.WithError(err).Error("polling timeouts")
			}
		}
	}
}

// Poll claims every job that is due and starts its handler on its own goroutine. It returns the
// number of jobs claimed by this call.
func (s *Scheduler) Poll(ctx context.Context, h Handlers) (int, error) {
	max := strconv.FormatInt(s.Now().UnixMilli(), 10)
	due, err := s.rdb.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{Min: "-inf", Max: max, Count: s.batch}).Result()
	if err != nil {
		return 0, fmt.Errorf("list due timeouts: %w", err)
	}

	claimed := 0
	for _, member := range due {
		n, err := s.rdb.ZRem(ctx, s.key, member).Result()
		if err != nil {
			return claimed, fmt.Errorf("claim %s: %w", member, err)
		}
		if n == 0 {
			// another instance won
			continue
		}
		job, err := ParseJobID(member)
		if err != nil {
			s.logger.WithError(err).WithField("job", member).Error("dropping timeout")
			continue
		}
		claimed++
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.dispatch(ctx, h, job)
		}()
	}
	return claimed, nil
}

// Wait blocks until every handler started so far has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) dispatch(ctx context.Context, h Handlers, job Job) {
	log := s.logger.WithFields(logrus.Fields{"game": job.GameID, "round": job.Round, "timeout": job.Kind})
	log.Info("timeout fired")

	var err error
	switch job.Kind {
	case models.PhasePlaying:
		err = h.AutoClosePlay(ctx, job.GameID, job.Round)
	case models.PhaseRevealing:
		err = h.AutoReveal(ctx, job.GameID, job.Round)
	case models.PhaseJudging:
		err = h.AutoEndRound(ctx, job.GameID, job.Round)
	case models.PhaseBetweenRounds:
		err = h.AutoStartNextRound(ctx, job.GameID, job.Round)
	default:
		log.Error("unknown timeout kind")
		return
	}
	if err != nil {
		// Players often beat the timer to the transition.
		log.WithError(err).Warn("timeout handler failed")
		return
	}
	log.Info("timeout processed")
}
