package bulk

import (
	"github.com/IBM/sarama"

	"github.com/arkime-go/sesscore/session"
)

// KafkaSink publishes each bulk payload as one message on a topic,
// using a sarama SyncProducer so delivery failures surface to the
// Batcher's retry loop.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaSink dials brokers and returns a sink producing to topic.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{producer: producer, topic: topic}, nil
}

// Send implements session.BulkSink.
func (k *KafkaSink) Send(data []byte, length int) error {
	_, _, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Value: sarama.ByteEncoder(data[:length]),
	})
	return err
}

// Close releases the producer.
func (k *KafkaSink) Close() error {
	return k.producer.Close()
}

var _ session.BulkSink = (*KafkaSink)(nil)
