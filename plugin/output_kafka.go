package plugin

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	slog "github.com/vearne/simplelog"

	"github.com/vearne/netsched/protocol"
)

// ErrKafkaBusy means the producer queue is full and the record was dropped.
var ErrKafkaBusy = errors.New("kafka producer queue full")

// OutputKafkaConfig is the representation of kfka output configuration
type OutputKafkaConfig struct {
	producer sarama.AsyncProducer
	Host     string `json:"output-kafka-host"`
	Topic    string `json:"output-kafka-topic"`
}

// KafkaOutput is used for sending frame records to kafka
type KafkaOutput struct {
	config   *OutputKafkaConfig
	producer sarama.AsyncProducer
	codec    protocol.Codec
	done     chan struct{}
}

// NewKafkaOutput creates a new kafka output plugin
func NewKafkaOutput(codec string, cf *OutputKafkaConfig) (*KafkaOutput, error) {
	c, err := getCodec(codec)
	if err != nil {
		return nil, err
	}
	producer := cf.producer
	if producer == nil {
		kc := sarama.NewConfig()
		kc.ClientID = "nsched"
		kc.Producer.RequiredAcks = sarama.WaitForLocal
		kc.Producer.Compression = sarama.CompressionSnappy
		kc.Producer.Flush.Frequency = 500 * time.Millisecond

		brokers := strings.Split(cf.Host, ",")
		producer, err = sarama.NewAsyncProducer(brokers, kc)
		if err != nil {
			return nil, errors.Wrap(err, "kafka producer")
		}
	}

	o := &KafkaOutput{
		config:   cf,
		producer: producer,
		codec:    c,
		done:     make(chan struct{}),
	}
	// errors are drained off the reactor goroutine
	go o.ErrorHandler()
	return o, nil
}

// ErrorHandler should receive errors
func (o *KafkaOutput) ErrorHandler() {
	defer close(o.done)
	for err := range o.producer.Errors() {
		slog.Error("[KAFKA] failed to write access log entry:%v", err)
	}
}

// Write enqueues one record without waiting for the broker.
func (o *KafkaOutput) Write(msg *protocol.Message) error {
	data, err := o.codec.Marshal(msg)
	if err != nil {
		return err
	}
	pm := &sarama.ProducerMessage{
		Topic: o.config.Topic,
		Key:   sarama.StringEncoder(msg.Interface),
		Value: sarama.ByteEncoder(data),
	}
	select {
	case o.producer.Input() <- pm:
		return nil
	default:
		return ErrKafkaBusy
	}
}

func (o *KafkaOutput) Close() error {
	o.producer.AsyncClose()
	<-o.done
	return nil
}

func (o *KafkaOutput) String() string {
	return "Kafka Output: " + o.config.Host + "/" + o.config.Topic
}
