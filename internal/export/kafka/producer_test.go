package kafka

import (
	"context"
	"testing"

	"spyglass/collector/internal/entrylog/domain"
)

func TestNewProducer_RequiresBrokersAndTopic(t *testing.T) {
	if p := NewProducer(nil, "topic"); p != nil {
		t.Error("no brokers should disable the producer")
	}
	if p := NewProducer([]string{"localhost:9092"}, ""); p != nil {
		t.Error("no topic should disable the producer")
	}
	if p := NewProducer([]string{"localhost:9092"}, "entries"); p == nil {
		t.Error("brokers and topic set; producer should be created")
	}
}

func TestProducer_NilSafety(t *testing.T) {
	var p *Producer
	if err := p.Export(context.Background(), &domain.Entry{Kind: domain.KindJob}); err != nil {
		t.Errorf("nil producer Export should be a no-op, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil producer Close should be a no-op, got %v", err)
	}
}
