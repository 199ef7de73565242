package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/techfranca/francaverso/server/common/infra/mq"
	"github.com/techfranca/francaverso/server/common/log"
)

// AMQPJobQueue publishes download jobs to the durable RabbitMQ queue so a
// restart between submit and processing does not drop them.
type AMQPJobQueue struct {
	ch *amqp.Channel
}

func NewAMQPJobQueue(conn *amqp.Connection) (*AMQPJobQueue, error) {
	ch, err := mq.OpenJobsChannel(conn)
	if err != nil {
		return nil, fmt.Errorf("open jobs channel: %w", err)
	}
	return &AMQPJobQueue{ch: ch}, nil
}

func (q *AMQPJobQueue) PublishJob(ctx context.Context, job QueuedJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.ch.PublishWithContext(ctx, "", mq.DownloadJobsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (q *AMQPJobQueue) Close() error {
	return q.ch.Close()
}

// StartJobConsumer attaches a worker to the jobs queue. Jobs are acked after
// processing; malformed payloads are dropped without requeue.
func StartJobConsumer(ctx context.Context, conn *amqp.Connection, downloads *DownloadService) error {
	ch, err := mq.OpenJobsChannel(conn)
	if err != nil {
		return fmt.Errorf("open jobs channel: %w", err)
	}
	deliveries, err := ch.Consume(mq.DownloadJobsQueue, "portal-downloads", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("start consumer: %w", err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					log.Warnf("download jobs consumer channel closed")
					return
				}
				var job QueuedJob
				if err := json.Unmarshal(delivery.Body, &job); err != nil {
					log.Errorf("discard malformed download job: %v", err)
					_ = delivery.Nack(false, false)
					continue
				}
				downloads.Process(ctx, job)
				_ = delivery.Ack(false)
			}
		}
	}()
	return nil
}
