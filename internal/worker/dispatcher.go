package worker

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"socialmedia/internal/models"
)

var (
	ErrQueueFull = errors.New("event queue is full")
	ErrClosed    = errors.New("dispatcher is closed")
)

const defaultDeliveryTimeout = 3 * time.Second

// Sink is the downstream that finally receives events, e.g. the redis publisher.
type Sink interface {
	Notify(ctx context.Context, evt models.MessageEvent) error
}

type Config struct {
	Workers         int
	QueueSize       int
	DeliveryTimeout time.Duration
}

type job struct {
	key int64
	evt models.MessageEvent
}

type messageQueue struct {
	events []models.MessageEvent
	busy   bool // one event of this message is being delivered
	queued bool // present in the ready list
}

// Dispatcher delivers message events to a Sink off the request path.
// Events of one message are delivered in order; different messages are
// served round-robin so a burst on one message cannot starve the rest.
type Dispatcher struct {
	sink    Sink
	log     logrus.FieldLogger
	timeout time.Duration

	closeMu  sync.RWMutex
	closed   bool
	incoming chan models.MessageEvent

	work chan job
	done chan int64
	wg   sync.WaitGroup
	stop chan struct{}

	// owned by run
	queues    map[int64]*messageQueue
	ready     *list.List
	positions map[int64]*list.Element
	inFlight  int
}

func NewDispatcher(sink Sink, cfg Config, log logrus.FieldLogger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &Dispatcher{
		sink:      sink,
		log:       log,
		timeout:   cfg.DeliveryTimeout,
		incoming:  make(chan models.MessageEvent, cfg.QueueSize),
		work:      make(chan job),
		done:      make(chan int64, cfg.Workers),
		stop:      make(chan struct{}),
		queues:    make(map[int64]*messageQueue),
		ready:     list.New(),
		positions: make(map[int64]*list.Element),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	go d.run()
	return d
}

// Notify enqueues the event and returns without waiting for delivery.
func (d *Dispatcher) Notify(_ context.Context, evt models.MessageEvent) error {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.incoming <- evt:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeMu.Lock()
	if !d.closed {
		d.closed = true
		close(d.incoming)
	}
	d.closeMu.Unlock()

	select {
	case <-d.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	in := d.incoming
	for {
		var out chan job
		var next job
		if front := d.ready.Front(); front != nil {
			key := front.Value.(int64)
			out = d.work
			next = job{key: key, evt: d.queues[key].events[0]}
		}
		if in == nil && out == nil && d.inFlight == 0 {
			close(d.work)
			d.wg.Wait()
			close(d.stop)
			return
		}

		select {
		case evt, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			d.enqueue(evt)
		case out <- next:
			d.take(next.key)
		case key := <-d.done:
			d.release(key)
		}
	}
}

func (d *Dispatcher) enqueue(evt models.MessageEvent) {
	key := evt.MessageID
	q := d.queues[key]
	if q == nil {
		q = &messageQueue{}
		d.queues[key] = q
	}
	q.events = append(q.events, evt)
	if !q.busy && !q.queued {
		q.queued = true
		d.positions[key] = d.ready.PushBack(key)
	}
}

// take marks the head event of key as in flight and parks the queue until release.
func (d *Dispatcher) take(key int64) {
	q := d.queues[key]
	q.events = q.events[1:]
	q.busy = true
	q.queued = false
	d.ready.Remove(d.positions[key])
	delete(d.positions, key)
	d.inFlight++
}

func (d *Dispatcher) release(key int64) {
	d.inFlight--
	q := d.queues[key]
	q.busy = false
	if len(q.events) == 0 {
		delete(d.queues, key)
		return
	}
	q.queued = true
	d.positions[key] = d.ready.PushBack(key)
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for j := range d.work {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Notify(ctx, j.evt); err != nil {
			d.log.WithFields(logrus.Fields{
				"worker":     id,
				"event":      j.evt.Type,
				"message_id": j.evt.MessageID,
			}).WithError(err).Warn("deliver message event failed")
		}
		cancel()
		d.done <- j.key
	}
}
