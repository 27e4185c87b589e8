package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	batches []LogBatch
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.(LogBatch))
	return nil
}

func (p *capturePublisher) all() []LogBatch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]LogBatch(nil), p.batches...)
}

func TestCollectorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{Service: "kangbo", TimeInterval: time.Hour, Topic: "kangbo.logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		c.AddLog("error", "provider declined", map[string]interface{}{"ticker": "TSLA", "run_id": i}, "chain.go:10")
	}
	c.AddLog("warn", "stale series", nil, "builder.go:5")
	assert.Equal(t, 2, c.Pending())

	c.Close()

	batches := pub.all()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"kangbo.logs"}, pub.topics)
	assert.Equal(t, "kangbo", batches[0].Service)
	require.Len(t, batches[0].Entries, 2)
	assert.Equal(t, "provider declined", batches[0].Entries[0].Message)
	assert.Equal(t, 3, batches[0].Entries[0].Count)
	assert.Equal(t, 1, batches[0].Entries[1].Count)
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")

	assert.Eventually(t, func() bool { return len(pub.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, c.Pending())
}

func TestLoggerFeedsCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	child := l.With(String("component", "pipeline"))
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: pub})

	child.Error("write failed", Error(errors.New("disk full")))
	l.Warn("slow provider", String("provider", "stooq"))
	l.Info("ignored")
	require.Equal(t, 2, l.sink.get().Pending())

	l.RemoveCollector()
	batches := pub.all()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Entries, 2)
}
