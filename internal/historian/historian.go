// internal/historian/historian.go is an asynchronous historian service that pops game actions
// from a Redis queue and persists them to PostgreSQL.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sink persists batches of actions.
type Sink interface {
	SaveActions(ctx context.Context, actions []models.GameAction) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Options tunes batching and the inactivity sweep.
type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
	Inactivity time.Duration // duration until a game is marked "abandoned"
	SweepEvery time.Duration
	// MaxPending caps the actions held in memory. Past it the queue keeps the backlog.
	MaxPending int
}

// DefaultOptions mirrors the server defaults.
var DefaultOptions = Options{
	Queue:      "promptparty_actions",
	BatchSize:  20,
	FlushDelay: 500 * time.Millisecond,
	PopTimeout: 3 * time.Second,
	Inactivity: 10 * time.Minute,
	SweepEvery: time.Minute,
	MaxPending: 1000,
}

// ErrBacklogFull is returned by Pop while the unsaved batch is at MaxPending.
var ErrBacklogFull = errors.New("historian backlog full")

// Service captures game actions and marks games abandoned when they go quiet.
type Service struct {
	rdb    redis.Cmdable
	sink   Sink
	opts   Options
	logger logrus.FieldLogger
	now    func() time.Time

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu sync.Mutex
	batch   []models.GameAction
}

// New returns a historian reading opts.Queue from rdb into sink.
func New(rdb redis.Cmdable, sink Sink, opts Options, logger logrus.FieldLogger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions.BatchSize
	}
	if opts.MaxPending < opts.BatchSize {
		opts.MaxPending = opts.BatchSize
	}
	return &Service{
		rdb:    rdb,
		sink:   sink,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		batch:  make([]models.GameAction, 0, opts.BatchSize),
	}
}

// Run reads the queue, flushes batches and sweeps inactive games until ctx is done. Whatever is
// still batched is flushed before returning.
func (hs *Service) Run(ctx context.Context) error {
	hs.logger.Info("historian service started")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hs.readLoop(gctx) })
	g.Go(func() error {
		every(gctx, hs.opts.FlushDelay, func() { hs.Flush(context.WithoutCancel(gctx)) })
		return nil
	})
	g.Go(func() error {
		every(gctx, hs.opts.SweepEvery, func() { hs.Sweep(gctx) })
		return nil
	})
	err := g.Wait()

	hs.Flush(context.WithoutCancel(ctx))
	hs.logger.Info("historian shutting down")
	return err
}

func every(ctx context.Context, d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// readLoop uses BLPop with a timeout so that context cancellation is handled.
func (hs *Service) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, err := hs.Pop(ctx)
		if errors.Is(err, ErrBacklogFull) {
			// the flush ticker keeps retrying the sink; stay off the queue until it drains.
			hs.logger.WithField("actions", hs.opts.MaxPending).Warn("sink unavailable, pausing queue reads")
		} else if err != nil && ctx.Err() == nil {
			hs.logger.WithError(err).Error("popping action")
		}
		if err != nil && ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// Pop waits for one queued action and adds it to the batch. It reports false when the wait
// timed out or the record was malformed. Nothing is read while the batch holds MaxPending
// unsaved actions.
func (hs *Service) Pop(ctx context.Context) (bool, error) {
	hs.batchMu.Lock()
	pending := len(hs.batch)
	hs.batchMu.Unlock()
	if pending >= hs.opts.MaxPending {
		return false, ErrBacklogFull
	}
	res, err := hs.rdb.BLPop(ctx, hs.opts.PopTimeout, hs.opts.Queue).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// res[0] is the queue name and res[1] the payload.
	var action models.GameAction
	if err := json.Unmarshal([]byte(res[1]), &action); err != nil {
		hs.logger.WithError(err).Warn("invalid action record")
		return false, nil
	}

	if action.ActionType == models.ActionGameEnded {
		hs.lastActivity.Delete(action.GameID)
	} else {
		hs.lastActivity.Store(action.GameID, hs.now())
	}
	hs.append(ctx, action)
	return true, nil
}

// append adds an action to the in-memory batch and flushes once the threshold is reached.
func (hs *Service) append(ctx context.Context, action models.GameAction) {
	hs.batchMu.Lock()
	hs.batch = append(hs.batch, action)
	full := len(hs.batch) >= hs.opts.BatchSize
	hs.batchMu.Unlock()
	if full {
		hs.Flush(context.WithoutCancel(ctx))
	}
}

// Flush writes the current batch to the sink. A failed batch goes back to the front of the
// queue for the next flush.
func (hs *Service) Flush(ctx context.Context) int {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	if len(hs.batch) == 0 {
		return 0
	}
	batch := make([]models.GameAction, len(hs.batch))
	copy(batch, hs.batch)

	if err := hs.sink.SaveActions(ctx, batch); err != nil {
		hs.logger.WithError(err).WithField("actions", len(batch)).Error("flushing actions")
		return 0
	}
	hs.batch = hs.batch[:0]
	hs.logger.WithField("actions", len(batch)).Debug("flushed actions")
	return len(batch)
}

// Sweep marks every game without actions for longer than the inactivity threshold as abandoned.
func (hs *Service) Sweep(ctx context.Context) int {
	now := hs.now()
	marked := 0
	hs.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= hs.opts.Inactivity {
			return true
		}
		if err := hs.sink.MarkAbandoned(ctx, gameID); err != nil {
			hs.logger.WithError(err).WithField("game", gameID).Warn("marking game abandoned")
			return true
		}
		hs.lastActivity.Delete(gameID)
		hs.logger.WithField("game", gameID).Info("marked game abandoned due to inactivity")
		marked++
		return true
	})
	return marked
}
