package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/wordgrid/server/internal/gridmap"
	"github.com/wordgrid/server/internal/world"
)

// DefaultTopic is the Kafka topic word-found events go to.
const DefaultTopic = "word_found"

// KafkaMessage is the payload written to Kafka.
type KafkaMessage struct {
	Type    string             `json:"type"`
	ID      string             `json:"id"`
	Word    string             `json:"word"`
	Coords  []gridmap.Position `json:"coords"`
	FoundAt time.Time          `json:"foundAt"`
}

// KafkaPublisher writes word-found events to a Kafka topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

// NewProducerConfig returns the producer settings the publisher relies on.
func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	return config
}

// NewKafkaPublisher connects a synchronous producer to brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		now:      time.Now,
	}
}

// PublishWordFound sends event keyed by placement id.
func (k *KafkaPublisher) PublishWordFound(event world.FoundWord) error {
	payload, err := json.Marshal(KafkaMessage{
		Type:    "word_found",
		ID:      event.ID,
		Word:    event.Word,
		Coords:  event.Coords,
		FoundAt: k.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal word_found event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(event.ID),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send word_found event to %s: %w", k.topic, err)
	}
	return nil
}

// Close shuts down the producer.
func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
