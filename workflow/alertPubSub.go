package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/sirupsen/logrus"
)

// PubSubAlertSink publishes alert events to a Pub/Sub topic; the push
// subscription calls back into POST /pubsub/alerts, which runs AlertDispatcher.Deliver.
type PubSubAlertSink struct {
	Topic   string
	Logger  *logrus.Logger
	Timeout time.Duration

	// publish is swapped in tests.
	publish func(ctx context.Context, topic string, obj interface{}) (string, error)
}

func NewPubSubAlertSink(topic string, logger *logrus.Logger) *PubSubAlertSink {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &PubSubAlertSink{
		Topic:   topic,
		Logger:  logger,
		Timeout: config.AlertSendTimeout(),
		publish: config.PublishJSON,
	}
}

// Publish implements AlertSink. Publishing runs in its own goroutine so the
// ledger update never waits on Pub/Sub.
func (s *PubSubAlertSink) Publish(ctx context.Context, ev models.AlertEvent) {
	alertsTotal.WithLabelValues("queued").Inc()
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		defer cancel()
		id, err := s.publish(pubCtx, s.Topic, ev)
		fields := logrus.Fields{
			"field":          "PubSubAlertSink",
			"topic":          s.Topic,
			"product":        ev.ProductName,
			"correlation_id": ev.CorrelationId,
		}
		if err != nil {
			alertsTotal.WithLabelValues("dropped").Inc()
			s.Logger.WithFields(fields).Error("publish low-stock alert failed: " + err.Error())
			return
		}
		fields["message_id"] = id
		s.Logger.WithFields(fields).Info("low-stock alert published")
	}()
}
