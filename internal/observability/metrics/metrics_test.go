package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("source", "income-calculator.v1"),
		attribute.String("account_id", "acc_1"),
		attribute.String("action", "created"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "source" && attrs[1].Key != "source" {
		t.Fatalf("expected source to be retained")
	}
	if attrs[0].Key != "action" && attrs[1].Key != "action" {
		t.Fatalf("expected action to be retained")
	}
}

func TestRecordersAreNilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordEventAccepted(ctx, "src", "http")
	m.RecordEventRejected(ctx, "http", "validation")
	m.RecordOutcome(ctx, "created")
	m.RecordRateLimitAllowed(ctx, "src")
	m.RecordRateLimitDenied(ctx, "src", "exhausted")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordOutcome(context.Background(), "created")
}
