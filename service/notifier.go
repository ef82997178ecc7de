// file: service/notifier.go

package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/amitsahu629/bankingapp/logger"
	"github.com/amitsahu629/bankingapp/model"

	"github.com/sirupsen/logrus"
)

// TransactionEvent is published after a transaction's unit of work has
// committed. Consumers must treat it as best-effort: delivery failures never
// affect the ledger.
type TransactionEvent struct {
	Event          string                `json:"event"`
	Transaction    *model.Transaction    `json:"transaction"`
	BalanceChanges []model.BalanceChange `json:"balance_changes,omitempty"`
}

// ITransactionNotifier receives post-commit transaction events.
type ITransactionNotifier interface {
	Publish(event TransactionEvent)
}

// CompositeNotifier fans one event out to several notifiers.
type CompositeNotifier []ITransactionNotifier

func (c CompositeNotifier) Publish(event TransactionEvent) {
	for _, n := range c {
		n.Publish(event)
	}
}

// WebhookNotifier delivers events to a configured URL through a bounded
// queue drained by a single worker goroutine. Publish never blocks the
// engine: when the queue is full the event is dropped with a warning.
type WebhookNotifier struct {
	url        string
	maxRetries int
	client     *http.Client
	queue      chan TransactionEvent
	done       chan struct{}
	once       sync.Once
}

func NewWebhookNotifier(url string, queueSize, maxRetries int) *WebhookNotifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &WebhookNotifier{
		url:        url,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: 5 * time.Second},
		queue:      make(chan TransactionEvent, queueSize),
		done:       make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (n *WebhookNotifier) Start() {
	go func() {
		defer close(n.done)
		for event := range n.queue {
			n.deliver(event)
		}
	}()
	logger.Log.WithField("url", n.url).Info("Webhook notifier started")
}

// Stop closes the queue and waits for queued events to drain.
func (n *WebhookNotifier) Stop() {
	n.once.Do(func() { close(n.queue) })
	<-n.done
}

func (n *WebhookNotifier) Publish(event TransactionEvent) {
	select {
	case n.queue <- event:
	default:
		logger.Log.WithFields(logrus.Fields{
			"event":          event.Event,
			"transaction_id": event.Transaction.TransactionID,
		}).Warn("Notification queue full, dropping event")
	}
}

func (n *WebhookNotifier) deliver(event TransactionEvent) {
	log := logger.Log.WithFields(logrus.Fields{
		"event":          event.Event,
		"transaction_id": event.Transaction.TransactionID,
	})

	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("Failed to marshal notification payload")
		return
	}

	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		if err := n.post(payload); err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("Webhook delivery failed")
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}
		log.Debug("Webhook delivered")
		return
	}
	log.Error("Webhook delivery abandoned after max retries")
}

func (n *WebhookNotifier) post(payload []byte) error {
	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "bankingapp-notifier/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &webhookStatusError{status: resp.StatusCode}
	}
	return nil
}

type webhookStatusError struct {
	status int
}

func (e *webhookStatusError) Error() string {
	return http.StatusText(e.status)
}
