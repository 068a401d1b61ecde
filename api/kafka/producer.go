package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/aryaraj132/yt-downloader/api/models"
)

// Topics are partitioned by job kind so each kind's worker pool can scale and
// back-pressure independently.
const (
	TopicDownload = "media.jobs.download"
	TopicEncode   = "media.jobs.encode"
)

// JobMessage is the serialized descriptor handed to workers, one per enqueue.
type JobMessage struct {
	JobID      string            `json:"job_id"`
	Kind       models.JobKind    `json:"kind"`
	Owner      string            `json:"owner"`
	Descriptor models.Descriptor `json:"descriptor"`
}

type Producer interface {
	EnqueueJob(ctx context.Context, msg *JobMessage) error
	Close() error
}

type producer struct {
	producer sarama.SyncProducer
}

func NewProducer(brokers []string) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &producer{producer: p}, nil
}

func TopicFor(kind models.JobKind) (string, error) {
	switch kind {
	case models.KindDownload:
		return TopicDownload, nil
	case models.KindEncode:
		return TopicEncode, nil
	default:
		return "", fmt.Errorf("no topic for job kind %q", kind)
	}
}

func (p *producer) EnqueueJob(ctx context.Context, msg *JobMessage) error {
	topic, err := TopicFor(msg.Kind)
	if err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(msg.JobID),
		Value: sarama.ByteEncoder(data),
	})
	return err
}

func (p *producer) Close() error {
	return p.producer.Close()
}
