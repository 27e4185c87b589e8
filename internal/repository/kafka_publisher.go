package repository

import (
	"context"
	"fmt"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	pkgkafka "github.com/seethefuture888888-creator/kangbo/pkg/kafka"
)

// Default topics.
const (
	TopicDailySignal  = "kangbo.dashboard.daily"
	TopicAssetSignals = "kangbo.dashboard.signals"
	TopicLogs         = "kangbo.logs"
)

type messageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// DailySignalEvent is the summary event emitted once per run.
type DailySignalEvent struct {
	RunID       string             `json:"runId"`
	GeneratedAt string             `json:"generatedAt"`
	Signal      models.DailySignal `json:"dailySignal"`
}

// AssetSignalEvent is emitted per asset per run, keyed by asset id.
type AssetSignalEvent struct {
	RunID       string             `json:"runId"`
	GeneratedAt string             `json:"generatedAt"`
	Signal      models.AssetSignal `json:"signal"`
}

// KafkaSnapshotPublisher emits snapshot events. It also serves as the log collector's publisher.
type KafkaSnapshotPublisher struct {
	producer     messageProducer
	dailyTopic   string
	signalsTopic string
}

func NewKafkaSnapshotPublisher(p messageProducer, dailyTopic, signalsTopic string) *KafkaSnapshotPublisher {
	if dailyTopic == "" {
		dailyTopic = TopicDailySignal
	}
	if signalsTopic == "" {
		signalsTopic = TopicAssetSignals
	}
	return &KafkaSnapshotPublisher{producer: p, dailyTopic: dailyTopic, signalsTopic: signalsTopic}
}

func (k *KafkaSnapshotPublisher) Name() string { return "kafka" }

func (k *KafkaSnapshotPublisher) Publish(ctx context.Context, snap *models.Snapshot) error {
	p := snap.Payload
	if p == nil || p.DailySignal == nil {
		return fmt.Errorf("kafka publish: empty payload")
	}
	daily := DailySignalEvent{RunID: snap.RunID, GeneratedAt: p.GeneratedAt, Signal: *p.DailySignal}
	if err := k.producer.Publish(ctx, k.dailyTopic, []byte(p.DailySignal.Date), daily); err != nil {
		return fmt.Errorf("kafka publish daily: %w", err)
	}

	msgs := make([]pkgkafka.Message, 0, len(p.AssetSignals))
	for _, s := range p.AssetSignals {
		msgs = append(msgs, pkgkafka.Message{
			Key:     []byte(s.AssetID),
			Value:   AssetSignalEvent{RunID: snap.RunID, GeneratedAt: p.GeneratedAt, Signal: s},
			Headers: map[string]string{"run_id": snap.RunID, "regime": string(p.DailySignal.Regime)},
		})
	}
	if err := k.producer.PublishBatch(ctx, k.signalsTopic, msgs); err != nil {
		return fmt.Errorf("kafka publish signals: %w", err)
	}
	return nil
}

// PublishMessage implements logger.Publisher.
func (k *KafkaSnapshotPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}
