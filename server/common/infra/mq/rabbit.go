package mq

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// DownloadJobsQueue carries submitted download jobs to the in-process worker.
const DownloadJobsQueue = "downloads.jobs"

func NewConnection(url string) (*amqp.Connection, error) {
	return amqp.Dial(url)
}

// OpenJobsChannel opens a channel with the durable download-jobs queue
// declared and prefetch pinned to one unacked job per consumer.
func OpenJobsChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(DownloadJobsQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return ch, nil
}
