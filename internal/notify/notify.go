// Package notify delivers form-submission notifications in the
// background so a slow or failing mail hook never delays the response.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// Notification describes one persisted public form submission.
type Notification struct {
	FormID      string         `json:"formId"`
	Table       string         `json:"table"`
	RowID       int64          `json:"rowId"`
	Contact     string         `json:"contact,omitempty"`
	Data        map[string]any `json:"data"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// Notifier sends one notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Marker records that a row's notification was sent.
type Marker interface {
	MarkNotified(ctx context.Context, table string, id int64) error
}

// Webhook posts each notification as JSON to a URL; the receiving service
// owns templates and delivery.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (w *Webhook) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: %s returned %d", w.URL, resp.StatusCode)
	}
	return nil
}

// Log writes notifications to the standard logger. It is used when no
// webhook is configured.
type Log struct{}

func (Log) Notify(ctx context.Context, n Notification) error {
	log.Printf("Notify: %s submission %s#%d from %q", n.FormID, n.Table, n.RowID, n.Contact)
	return nil
}

// Dispatcher runs one worker fed by a bounded queue.
type Dispatcher struct {
	notifier Notifier
	marker   Marker
	timeout  time.Duration
	queue    chan Notification

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts the worker. marker may be nil.
func NewDispatcher(n Notifier, marker Marker, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Dispatcher{
		notifier: n,
		marker:   marker,
		timeout:  timeout,
		queue:    make(chan Notification, queueSize),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue schedules n without blocking. It reports false when the queue is
// full or the dispatcher is closed; the notification is then dropped.
func (d *Dispatcher) Enqueue(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Printf("Warning: notification for %s#%d dropped: dispatcher closed", n.Table, n.RowID)
		return false
	}
	select {
	case d.queue <- n:
		return true
	default:
		log.Printf("Warning: notification for %s#%d dropped: queue full", n.Table, n.RowID)
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.notifier.Notify(ctx, n); err != nil {
		log.Printf("Warning: notification for %s#%d failed: %v", n.Table, n.RowID, err)
		return
	}
	if d.marker == nil || n.RowID == 0 {
		return
	}
	if err := d.marker.MarkNotified(ctx, n.Table, n.RowID); err != nil {
		log.Printf("Warning: marking %s#%d notified failed: %v", n.Table, n.RowID, err)
	}
}

// Close stops accepting notifications and waits for queued ones to be
// delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}
