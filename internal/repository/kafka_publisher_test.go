package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	pkgkafka "github.com/seethefuture888888-creator/kangbo/pkg/kafka"
)

type sentMessage struct {
	topic   string
	key     string
	value   interface{}
	headers map[string]string
}

type fakeProducer struct {
	sent []sentMessage
	err  error
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{topic: topic, key: string(key), value: value})
	return nil
}

func (f *fakeProducer) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	for _, m := range messages {
		f.sent = append(f.sent, sentMessage{topic: topic, key: string(m.Key), value: m.Value, headers: m.Headers})
	}
	return nil
}

func sampleSnapshot(t *testing.T) *models.Snapshot {
	t.Helper()
	raw := samplePayload(t)
	var p models.DashboardPayload
	require.NoError(t, json.Unmarshal(raw, &p))
	return &models.Snapshot{RunID: "run-1", Payload: &p, Raw: raw}
}

func TestKafkaSnapshotPublisher(t *testing.T) {
	fp := &fakeProducer{}
	pub := NewKafkaSnapshotPublisher(fp, "", "")
	snap := sampleSnapshot(t)

	require.NoError(t, pub.Publish(context.Background(), snap))
	require.Len(t, fp.sent, 1+len(snap.Payload.AssetSignals))

	daily := fp.sent[0]
	assert.Equal(t, TopicDailySignal, daily.topic)
	assert.Equal(t, "2024-06-03", daily.key)
	ev, ok := daily.value.(DailySignalEvent)
	require.True(t, ok)
	assert.Equal(t, "run-1", ev.RunID)

	first := fp.sent[1]
	assert.Equal(t, TopicAssetSignals, first.topic)
	assert.Equal(t, "BTC", first.key)
	assert.Equal(t, "run-1", first.headers["run_id"])
	assert.Equal(t, string(snap.Payload.DailySignal.Regime), first.headers["regime"])
}

func TestKafkaSnapshotPublisherError(t *testing.T) {
	pub := NewKafkaSnapshotPublisher(&fakeProducer{err: errors.New("no brokers")}, "d", "s")
	err := pub.Publish(context.Background(), sampleSnapshot(t))
	assert.ErrorContains(t, err, "no brokers")
	assert.Equal(t, "kafka", pub.Name())
}

func TestKafkaSnapshotPublisherAsLogPublisher(t *testing.T) {
	fp := &fakeProducer{}
	pub := NewKafkaSnapshotPublisher(fp, "", "")
	require.NoError(t, pub.PublishMessage(context.Background(), TopicLogs, map[string]int{"count": 3}))
	assert.Equal(t, TopicLogs, fp.sent[0].topic)
}
