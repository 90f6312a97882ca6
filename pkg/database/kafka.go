package database

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaReader create a Kafka reader for the given topic, verifying the
// brokers answer before handing it out.
func NewKafkaReader(k KafkaConnection) (*kafka.Reader, error) {
	var err error

	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		conn, dialErr := kafka.DialContext(context.Background(), "tcp", k.Brokers[0])
		if dialErr == nil {
			conn.Close()
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers: k.Brokers,
				Topic:   k.Topic,
				GroupID: k.GroupID,
			}), nil
		}
		err = dialErr

		time.Sleep(k.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("failed to reach kafka brokers after %d attempts: %v", k.RetryCount, err)
}
