package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sink is one delivery channel (mail, inbox, push).
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

type Options struct {
	QueueSize   int
	SinkTimeout time.Duration
	OnResult    func(sink string, err error) // called once per sink per event
	OnDrop      func()                       // called when the queue is full or closed
}

type Dispatcher struct {
	sinks []Sink
	queue chan Event
	log   *logrus.Entry
	opts  Options

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

func NewDispatcher(log *logrus.Entry, opts Options, sinks ...Sink) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = 10 * time.Second
	}
	return &Dispatcher{
		sinks: sinks,
		queue: make(chan Event, opts.QueueSize),
		log:   log,
		opts:  opts,
		done:  make(chan struct{}),
	}
}

// Emit enqueues e without blocking. A full or closed queue drops the event.
func (d *Dispatcher) Emit(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(e, "dispatcher closed")
		return
	}
	select {
	case d.queue <- e:
	default:
		d.drop(e, "queue full")
	}
}

// Start launches the delivery worker. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	go d.run()
}

// Close stops accepting events and waits for queued ones to be delivered,
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	started := d.started
	close(d.queue)
	d.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.SinkTimeout)
		err := safeDeliver(ctx, s, e)
		cancel()

		if d.opts.OnResult != nil {
			d.opts.OnResult(s.Name(), err)
		}
		if err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"sink":    s.Name(),
				"kind":    e.Kind,
				"user_id": e.UserID,
			}).Warn("notification delivery failed")
			continue
		}
		d.log.WithFields(logrus.Fields{
			"sink":    s.Name(),
			"kind":    e.Kind,
			"user_id": e.UserID,
		}).Debug("notification delivered")
	}
}

func (d *Dispatcher) drop(e Event, reason string) {
	if d.opts.OnDrop != nil {
		d.opts.OnDrop()
	}
	d.log.WithFields(logrus.Fields{
		"kind":    e.Kind,
		"user_id": e.UserID,
		"reason":  reason,
	}).Warn("notification dropped")
}

func safeDeliver(ctx context.Context, s Sink, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.Deliver(ctx, e)
}
