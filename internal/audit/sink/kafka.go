// Package sink mirrors audit records to external systems. The Kafka sink is
// optional: when no brokers are configured the recorder runs store-only.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"communityhub/internal/audit"
)

// Kafka publishes audit records to a topic, keyed by entity ID so per-entity
// ordering is preserved within a partition.
type Kafka struct {
	client *kgo.Client
	topic  string
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Kafka{client: client, topic: topic}, nil
}

// payload matches the audit_logs row shape so downstream consumers can
// materialize records without joining back to the service.
type payload struct {
	ID         string  `json:"id"`
	ActorID    *string `json:"actor_id,omitempty"`
	Action     string  `json:"action"`
	EntityKind string  `json:"entity_kind,omitempty"`
	EntityID   string  `json:"entity_id,omitempty"`
	OldValues  *string `json:"old_values,omitempty"`
	NewValues  *string `json:"new_values,omitempty"`
	IPAddress  string  `json:"ip_address,omitempty"`
	UserAgent  string  `json:"user_agent,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

func (k *Kafka) Publish(ctx context.Context, record audit.Record) error {
	p := payload{
		ID:         record.ID.String(),
		Action:     record.Action,
		EntityKind: string(record.EntityKind),
		EntityID:   record.EntityID.String(),
		OldValues:  record.OldValues,
		NewValues:  record.NewValues,
		IPAddress:  record.IPAddress,
		UserAgent:  record.UserAgent,
		CreatedAt:  record.CreatedAt.Format(time.RFC3339Nano),
	}
	if record.ActorID != nil {
		s := record.ActorID.String()
		p.ActorID = &s
	}

	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	result := k.client.ProduceSync(ctx, &kgo.Record{
		Topic: k.topic,
		Key:   []byte(p.EntityID),
		Value: value,
	})
	if err := result.FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (k *Kafka) Close() {
	k.client.Close()
}
