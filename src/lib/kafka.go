package lib

import (
	"context"
	"encoding/json"
	"tourbook/src/types"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

func GetKafkaProducerConfig(broker, clientId string) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers": broker,
		"client.id":         clientId,
		"acks":              "all",
	}
}

// KafkaPublisher produces lifecycle events keyed by booking id so all
// events of one booking land on the same partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(broker, clientId, topic string) (*KafkaPublisher, error) {
	p, err := kafka.NewProducer(GetKafkaProducerConfig(broker, clientId))
	if err != nil {
		GetLogger().Errorf("Error on producer: %s", err.Error())
		return nil, err
	}
	go func() {
		for e := range p.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				GetLogger().WithFields(logrus.Fields{
					"topic": *m.TopicPartition.Topic,
					"key":   string(m.Key),
				}).Errorf("Delivery failed: %s", m.TopicPartition.Error.Error())
			}
		}
	}()
	return &KafkaPublisher{producer: p, topic: topic}, nil
}

func (k *KafkaPublisher) Publish(ctx context.Context, event types.LifecycleEvent, payload types.JSONB) error {
	value, err := json.Marshal(EventEnvelope(event, payload))
	if err != nil {
		return err
	}
	key, _ := payload["booking_id"].(string)
	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
		Headers:        []kafka.Header{{Key: "type", Value: []byte(event)}},
	}, nil)
}

func (k *KafkaPublisher) Close() {
	k.producer.Flush(5000)
	k.producer.Close()
}

func KafkaCreateTopics(broker string, topics ...string) ([]kafka.TopicResult, error) {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": broker,
	})
	if err != nil {
		GetLogger().Errorf("Error on AdminClient: %s", err.Error())
		return nil, err
	}
	defer a.Close()
	topicsDef := []kafka.TopicSpecification{}
	for _, topic := range topics {
		topicsDef = append(topicsDef, kafka.TopicSpecification{
			Topic:         topic,
			NumPartitions: 10,
		})
	}
	result, err := a.CreateTopics(context.Background(), topicsDef)
	if err != nil {
		GetLogger().Errorf("Error creating topics: %s", err.Error())
		return nil, err
	}
	return result, nil
}
