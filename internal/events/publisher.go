package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Event types
const (
	DocumentCreated   = "document.created"
	DocumentUpdated   = "document.updated"
	DocumentDeleted   = "document.deleted"
	TenantProvisioned = "tenant.provisioned"
)

// DocumentEvent is published on document mutations.
type DocumentEvent struct {
	EventType  string    `json:"event_type"`
	TenantID   string    `json:"tenant_id"`
	DocumentID uint      `json:"document_id"`
	Path       string    `json:"path,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TenantProvisionedEvent is published when a new tenant is created.
type TenantProvisionedEvent struct {
	EventType string    `json:"event_type"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes events to NATS. A nil Publisher (or one constructed
// without a URL) is a safe no-op so event publishing never blocks the
// request path.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Logger
}

// NewPublisher connects to NATS. An empty URL disables publishing.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if natsURL == "" {
		logger.Info("NATS URL not configured, event publishing disabled")
		return &Publisher{logger: logger}, nil
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("docsearch-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.WithField("url", natsURL).Info("Connected to NATS")
	return &Publisher{conn: conn, logger: logger}, nil
}

// PublishDocumentEvent publishes a document lifecycle event on the
// subject matching its event type.
func (p *Publisher) PublishDocumentEvent(ctx context.Context, eventType, tenantID string, documentID uint, path string) error {
	return p.publish(eventType, DocumentEvent{
		EventType:  eventType,
		TenantID:   tenantID,
		DocumentID: documentID,
		Path:       path,
		Timestamp:  time.Now(),
	})
}

// PublishTenantProvisioned publishes a tenant.provisioned event.
func (p *Publisher) PublishTenantProvisioned(ctx context.Context, tenantID, name string) error {
	return p.publish(TenantProvisioned, TenantProvisionedEvent{
		EventType: TenantProvisioned,
		TenantID:  tenantID,
		Name:      name,
		Timestamp: time.Now(),
	})
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Close drains the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}

func (p *Publisher) publish(subject string, event interface{}) error {
	if p == nil || p.conn == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	p.logger.WithField("subject", subject).Debug("Event published")
	return nil
}
