// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package hook fans content events out to registered webhook listeners.
// Delivery is at-most-once: no retries, no backoff, no ordering across
// listeners. A full queue drops the delivery. Failures are logged and never
// surfaced to the request that caused the event.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forerun-app/forerun/forum"
)

// Event names.
const (
	EventNewThread = "new-thread"
	EventNewPost   = "new-post"
)

// Event is the payload delivered to listeners. The dispatcher adds the
// receiving consumer's api_secret so the listener can authenticate the
// callback.
type Event struct {
	Type   string                `json:"type"`
	Thread *forum.RenderedThread `json:"thread,omitempty"`
	Post   *forum.RenderedPost   `json:"post,omitempty"`
}

// Sink consumes events. The API server emits through this so tests can
// substitute their own.
type Sink interface {
	Emit(event Event)
}

type delivery struct {
	endpoint string
	secret   string
	event    Event
}

type callbackBody struct {
	Event
	APISecret string `json:"api_secret"`
}

// Registry is the slice of the store the dispatcher reads: who listens, and
// which consumer owns each listener.
type Registry interface {
	ListListeners(ctx context.Context) ([]forum.Listener, error)
	GetConsumer(ctx context.Context, id string) (forum.Consumer, error)
}

// Dispatcher delivers events over HTTP with a bounded worker pool.
type Dispatcher struct {
	registry Registry
	log      *logrus.Logger
	client   *http.Client

	events     chan Event
	deliveries chan delivery
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

var _ Sink = (*Dispatcher)(nil)

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
	requestTimeout   = 10 * time.Second
)

// NewDispatcher creates and starts a dispatcher. workers <= 0 picks the
// default pool size.
func NewDispatcher(registry Registry, log *logrus.Logger, workers int) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	d := &Dispatcher{
		registry:   registry,
		log:        log,
		client:     &http.Client{Timeout: requestTimeout},
		events:     make(chan Event, defaultQueueSize),
		deliveries: make(chan delivery, defaultQueueSize),
	}
	d.wg.Add(1)
	go d.expandLoop()
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.deliverLoop()
	}
	return d
}

// Emit queues an event for delivery and returns immediately. A full queue
// drops the event.
func (d *Dispatcher) Emit(event Event) {
	select {
	case d.events <- event:
	default:
		d.log.WithField("type", event.Type).Error("webhook queue full, dropping event")
	}
}

// Close stops accepting events and waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.events) })
	d.wg.Wait()
}

// expandLoop turns each event into one delivery per registered listener.
func (d *Dispatcher) expandLoop() {
	defer d.wg.Done()
	defer close(d.deliveries)
	for event := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		listeners, err := d.registry.ListListeners(ctx)
		if err != nil {
			d.log.WithError(err).Error("failed to list webhook listeners")
			cancel()
			continue
		}
		for _, l := range listeners {
			consumer, err := d.registry.GetConsumer(ctx, l.ConsumerID)
			if err != nil {
				d.log.WithError(err).WithField("consumer_id", l.ConsumerID).
					Error("failed to resolve listener consumer")
				continue
			}
			d.deliveries <- delivery{
				endpoint: l.Endpoint,
				secret:   consumer.APISecret,
				event:    event,
			}
		}
		cancel()
	}
}

func (d *Dispatcher) deliverLoop() {
	defer d.wg.Done()
	for del := range d.deliveries {
		d.deliver(del)
	}
}

func (d *Dispatcher) deliver(del delivery) {
	body, err := json.Marshal(callbackBody{Event: del.event, APISecret: del.secret})
	if err != nil {
		d.log.WithError(err).Error("failed to encode webhook payload")
		return
	}
	resp, err := d.client.Post(del.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		// no retry, no backoff; the listener missed this one
		d.log.WithError(err).WithField("endpoint", del.endpoint).
			Error("webhook delivery failed")
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		d.log.WithFields(logrus.Fields{
			"endpoint": del.endpoint,
			"status":   resp.StatusCode,
		}).Error("webhook endpoint returned an error")
	}
}
