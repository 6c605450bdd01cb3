package events

import (
	"context"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const flushTimeoutMs = 5000

type KafkaConfig struct {
	Broker string
	Topic  string
}

// KafkaPublisher produces events to a Kafka topic keyed by trade ID.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Broker,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}

	p := &KafkaPublisher{producer: producer, topic: cfg.Topic}
	p.wg.Add(1)
	go p.deliveryReports()
	logs.Infof("events: kafka producer ready, broker=%s topic=%s", cfg.Broker, cfg.Topic)
	return p, nil
}

func (p *KafkaPublisher) Publish(_ context.Context, e Event) error {
	value, err := e.Encode()
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(e.Trade.ID),
		Value:          value,
	}, nil)
	if err != nil {
		return errors.Wrap(err, "produce event")
	}
	return nil
}

// Close flushes outstanding messages and releases the producer.
func (p *KafkaPublisher) Close() {
	p.closeOnce.Do(func() {
		if left := p.producer.Flush(flushTimeoutMs); left > 0 {
			logs.Warnf("events: %d kafka messages not delivered before close", left)
		}
		p.producer.Close()
		p.wg.Wait()
	})
}

func (p *KafkaPublisher) deliveryReports() {
	defer p.wg.Done()
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logs.Errorf("events: delivery failed, key=%s, err: %+v", string(ev.Key), ev.TopicPartition.Error)
			}
		case kafka.Error:
			logs.Errorf("events: kafka error, err: %+v", ev)
		}
	}
}
