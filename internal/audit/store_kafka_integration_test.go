//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"gtind/internal/audit"
	"gtind/pkg/testutil/containers"
)

func TestKafkaStorePublishesEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	kc := containers.NewKafkaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "gtind.audit.test"
	store, err := audit.NewKafkaStore(ctx, []string{kc.Broker}, topic)
	if err != nil {
		t.Fatalf("failed to create kafka store: %v", err)
	}
	defer store.Close()

	// Creating the store twice must not trip over the existing topic.
	second, err := audit.NewKafkaStore(ctx, []string{kc.Broker}, topic)
	if err != nil {
		t.Fatalf("expected topic creation to be idempotent: %v", err)
	}
	second.Close()

	publisher := audit.NewPublisher(store)
	events := []audit.Event{
		{Action: "gtin_assigned", Detail: map[string]any{"gtin": "000000000100"}},
		{Action: "registration_submitted", Detail: map[string]any{"invocation_id": "inv-1"}},
		{Action: "gtin_assigned", Detail: map[string]any{"gtin": "000000000101"}},
	}
	for _, e := range events {
		if err := publisher.Emit(ctx, e); err != nil {
			t.Fatalf("failed to emit event: %v", err)
		}
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(kc.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		t.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) < len(events) {
		fetches := consumer.PollFetches(ctx)
		if err := fetches.Err(); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		records = append(records, fetches.Records()...)
	}
	if len(records) != len(events) {
		t.Fatalf("expected %d records, got %d", len(events), len(records))
	}

	byAction := make(map[string]int)
	for i, record := range records {
		var got audit.Event
		if err := json.Unmarshal(record.Value, &got); err != nil {
			t.Fatalf("failed to decode record %d: %v", i, err)
		}
		if got.ID == "" || got.Timestamp.IsZero() {
			t.Fatalf("expected publisher to stamp id and timestamp, got %+v", got)
		}
		if string(record.Key) != got.Action {
			t.Fatalf("expected record keyed by action, got key %q for %q", record.Key, got.Action)
		}
		byAction[got.Action]++
	}
	if byAction["gtin_assigned"] != 2 || byAction["registration_submitted"] != 1 {
		t.Fatalf("unexpected action distribution: %v", byAction)
	}
}
