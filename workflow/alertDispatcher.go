package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notifier sends one text message (workflow.Notifications in production).
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// AlertDispatcher delivers low-stock alerts off the request path.
// Publish enqueues into a bounded buffer and never blocks; Run drains it.
type AlertDispatcher struct {
	Notifier     Notifier
	Logger       *logrus.Logger
	DispatcherID string

	SendTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration

	events chan models.AlertEvent
	wg     sync.WaitGroup
}

func NewAlertDispatcher(notifier Notifier, logger *logrus.Logger, buffer int) *AlertDispatcher {
	if logger == nil {
		logger = config.GetLogger()
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &AlertDispatcher{
		Notifier:       notifier,
		Logger:         logger,
		DispatcherID:   uuid.NewString(),
		SendTimeout:    config.AlertSendTimeout(),
		MaxAttempts:    config.AlertMaxAttempts(),
		InitialBackoff: config.AlertInitialBackoff(),
		events:         make(chan models.AlertEvent, buffer),
	}
}

// Publish implements AlertSink.
func (d *AlertDispatcher) Publish(ctx context.Context, ev models.AlertEvent) {
	select {
	case d.events <- ev:
		alertsTotal.WithLabelValues("queued").Inc()
	default:
		alertsTotal.WithLabelValues("dropped").Inc()
		d.Logger.WithFields(logrus.Fields{
			"field":         "AlertDispatcher",
			"dispatcher_id": d.DispatcherID,
			"product":       ev.ProductName,
		}).Error("alert buffer full; dropping low-stock alert")
	}
}

// Start runs the dispatcher in its own goroutine. Wait covers it as soon as
// Start returns.
func (d *AlertDispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Run(ctx)
	}()
}

// Run delivers queued events until ctx is cancelled, then drains what is left.
// It blocks; use Start to run it in the background.
func (d *AlertDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case ev := <-d.events:
			if ctx.Err() != nil {
				d.deliverLogged(context.Background(), ev)
				d.drain()
				return
			}
			d.deliverLogged(ctx, ev)
		}
	}
}

// drain flushes the buffer on shutdown with a fresh context per send.
func (d *AlertDispatcher) drain() {
	for {
		select {
		case ev := <-d.events:
			d.deliverLogged(context.Background(), ev)
		default:
			return
		}
	}
}

// Wait blocks until the goroutine spawned by Start has returned.
func (d *AlertDispatcher) Wait() {
	d.wg.Wait()
}

func (d *AlertDispatcher) deliverLogged(ctx context.Context, ev models.AlertEvent) {
	err := d.Deliver(ctx, ev)
	fields := logrus.Fields{
		"field":          "AlertDispatcher",
		"dispatcher_id":  d.DispatcherID,
		"product":        ev.ProductName,
		"new_stock":      ev.NewStock.String(),
		"critical_level": ev.CriticalLevel.String(),
		"correlation_id": ev.CorrelationId,
	}
	switch {
	case err == nil:
		d.Logger.WithFields(fields).Info("low-stock alert sent")
	case errors.Is(err, models.ErrNotificationSkipped):
		d.Logger.WithFields(fields).Warn("low-stock alert skipped: telegram is not configured")
	default:
		d.Logger.WithFields(fields).Error("low-stock alert failed: " + err.Error())
	}
}

// Deliver sends one event with the retry policy. Each attempt is bounded by SendTimeout.
func (d *AlertDispatcher) Deliver(ctx context.Context, ev models.AlertEvent) error {
	attempts := d.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := d.InitialBackoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = d.sendOnce(ctx, ev)
		if err == nil {
			alertsTotal.WithLabelValues("sent").Inc()
			return nil
		}
		if errors.Is(err, models.ErrNotificationSkipped) {
			alertsTotal.WithLabelValues("skipped").Inc()
			return err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			alertsTotal.WithLabelValues("failed").Inc()
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > time.Minute {
			backoff = time.Minute
		}
	}
	alertsTotal.WithLabelValues("failed").Inc()
	return err
}

func (d *AlertDispatcher) sendOnce(ctx context.Context, ev models.AlertEvent) error {
	if d.Notifier == nil {
		return models.ErrNotificationSkipped
	}
	timeout := d.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Notifier.Notify(sendCtx, ev.Message())
}
