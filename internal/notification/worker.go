package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voltfox-backend/internal/model"
)

// Event is one unit of work for the pool: either a device update or a
// warranty reminder.
type Event struct {
	UserID   string
	Before   DeviceState
	After    DeviceState
	Warranty *WarrantyState
}

// ChangeEvent builds the event for a device write.
func ChangeEvent(before, after model.Device) Event {
	return Event{UserID: after.UserID, Before: StateOf(before), After: StateOf(after)}
}

// WarrantyEvent builds the reminder event for a device with a warranty date.
func WarrantyEvent(d model.Device) Event {
	w := &WarrantyState{ID: d.ID, Name: d.Name}
	if d.Insurance.WarrantyUntil != nil {
		w.WarrantyUntil = *d.Insurance.WarrantyUntil
	}
	return Event{UserID: d.UserID, Warranty: w}
}

// Options sizes the worker pool.
type Options struct {
	Size              int
	QueueSize         int
	FanoutConcurrency int
	WarrantyWindow    time.Duration
	// DrainTimeout bounds the deliveries still made for queued events once
	// the pool is stopped.
	DrainTimeout time.Duration
}

// WorkerPool manages a pool of workers that turn events into notifications.
type WorkerPool struct {
	size           int
	fanout         int
	warrantyWindow time.Duration
	drainTimeout   time.Duration
	jobs           chan Event
	repo           Repository
	push           PushSender
	email          EmailSender
	log            *zap.Logger
	now            func() time.Time
	wg             sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. push and email may be nil when
// the channel is not configured; commands for it are then skipped.
func NewWorkerPool(opts Options, repo Repository, push PushSender, email EmailSender, log *zap.Logger) *WorkerPool {
	if opts.Size <= 0 {
		opts.Size = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = opts.Size
	}
	if opts.FanoutConcurrency <= 0 {
		opts.FanoutConcurrency = 1
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 10 * time.Second
	}
	return &WorkerPool{
		size:           opts.Size,
		fanout:         opts.FanoutConcurrency,
		warrantyWindow: opts.WarrantyWindow,
		drainTimeout:   opts.DrainTimeout,
		jobs:           make(chan Event, opts.QueueSize), // Buffered channel
		repo:           repo,
		push:           push,
		email:          email,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has drained the queue and returned after
// ctx was cancelled.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debug("worker started", zap.Int("worker", id))
	for {
		// A stopped pool goes straight to draining even when jobs are ready.
		if ctx.Err() != nil {
			wp.log.Debug("worker shutting down", zap.Int("worker", id))
			wp.drain(ctx, id)
			return
		}
		select {
		case ev := <-wp.jobs:
			wp.Handle(ctx, ev)
		case <-ctx.Done():
		}
	}
}

// drain handles whatever is still queued when the pool stops. Deliveries run
// on a detached context bounded by the drain timeout.
func (wp *WorkerPool) drain(ctx context.Context, id int) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), wp.drainTimeout)
	defer cancel()

	drained := 0
	for {
		select {
		case ev := <-wp.jobs:
			wp.Handle(drainCtx, ev)
			drained++
		default:
			if drained > 0 {
				wp.log.Info("drained queued events", zap.Int("worker", id), zap.Int("events", drained))
			}
			return
		}
	}
}

// Dispatch queues an event without blocking. It reports false and drops the
// event when the queue is full.
func (wp *WorkerPool) Dispatch(ev Event) bool {
	select {
	case wp.jobs <- ev:
		return true
	default:
		wp.log.Warn("notification queue full, dropping event",
			zap.String("user_id", ev.UserID), zap.String("device_id", ev.After.ID))
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

// Handle evaluates one event and performs the resulting deliveries. Failures
// are logged and never retried.
func (wp *WorkerPool) Handle(ctx context.Context, ev Event) {
	if ev.Warranty == nil && !Significant(ev.Before, ev.After) {
		return
	}

	log := wp.log.With(zap.String("user_id", ev.UserID))

	prefs, err := wp.repo.GetPreferences(ctx, ev.UserID)
	if err != nil {
		log.Error("failed to load notification preferences", zap.Error(err))
		return
	}

	to := Recipient{UserID: ev.UserID}
	if user, err := wp.repo.GetUser(ctx, ev.UserID); err != nil {
		log.Warn("failed to load user, email falls back to override address", zap.Error(err))
	} else {
		to.Email = user.Email
	}

	var decision Decision
	if ev.Warranty != nil {
		decision = WarrantyReminder(*ev.Warranty, prefs, to, wp.now(), wp.warrantyWindow)
	} else {
		decision = Decide(ev.Before, ev.After, prefs, to)
	}
	if !decision.Notify() {
		return
	}

	for _, cmd := range decision.Commands {
		wp.execute(ctx, log, cmd)
	}
}

func (wp *WorkerPool) execute(ctx context.Context, log *zap.Logger, cmd Command) {
	entry := &model.NotificationLog{
		UserID:   cmd.UserID,
		DeviceID: cmd.Payload.DeviceID,
		Severity: string(cmd.Payload.Severity),
		Channel:  string(cmd.Channel),
		Title:    cmd.Payload.Title,
		Body:     cmd.Payload.Body,
	}

	switch cmd.Channel {
	case ChannelPush:
		if wp.push == nil {
			return
		}
		entry.Delivered, entry.Failed = wp.sendPush(ctx, log, cmd)
		if entry.Delivered+entry.Failed == 0 {
			return
		}
	case ChannelEmail:
		if wp.email == nil {
			return
		}
		if err := wp.email.Send(ctx, cmd.To, cmd.Payload.Title, cmd.Payload.Body); err != nil {
			log.Warn("failed to send email notification", zap.Error(err))
			entry.Failed = 1
		} else {
			entry.Delivered = 1
		}
	}

	if err := wp.repo.RecordNotification(ctx, entry); err != nil {
		log.Error("failed to record notification", zap.Error(err))
	}
}

// sendPush fans the payload out to every subscription of the user. Endpoints
// the push service reports as gone are deleted afterwards.
func (wp *WorkerPool) sendPush(ctx context.Context, log *zap.Logger, cmd Command) (delivered, failed int) {
	subs, err := wp.repo.ListPushSubscriptions(ctx, cmd.UserID)
	if err != nil {
		log.Error("failed to list push subscriptions", zap.Error(err))
		return 0, 0
	}
	if len(subs) == 0 {
		return 0, 0
	}

	payload, err := json.Marshal(cmd.Payload)
	if err != nil {
		log.Error("failed to encode push payload", zap.Error(err))
		return 0, 0
	}

	outcomes := make([]error, len(subs))
	var g errgroup.Group
	g.SetLimit(wp.fanout)
	for i, sub := range subs {
		g.Go(func() error {
			outcomes[i] = wp.push.Send(ctx, sub, payload)
			return nil
		})
	}
	_ = g.Wait()

	var gone []string
	for i, err := range outcomes {
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrSubscriptionGone):
			failed++
			gone = append(gone, subs[i].Endpoint)
		default:
			failed++
			log.Warn("failed to send push notification",
				zap.String("endpoint", subs[i].Endpoint), zap.Error(err))
		}
	}

	if len(gone) > 0 {
		log.Info("removing expired push subscriptions", zap.Int("count", len(gone)))
		if _, err := wp.repo.DeletePushSubscriptions(ctx, cmd.UserID, gone...); err != nil {
			log.Error("failed to delete expired push subscriptions", zap.Error(err))
		}
	}
	return delivered, failed
}
