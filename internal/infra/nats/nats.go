package natsclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerStats/config"
)

const (
	defaultConnectTimeout = 5 * time.Second
	clientName            = "powerstats"
)

// Connect creates a NATS connection (with JetStream available) using application config.
func Connect(cfg config.NATSConfig) (*nats.Conn, nats.JetStreamContext, error) {
	opts := []nats.Option{
		nats.Timeout(defaultConnectTimeout),
		nats.Name(clientName),
		nats.MaxReconnects(-1),
	}

	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(URL(cfg), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}

	return conn, js, nil
}

// StreamSpec names a work-queue stream and its durable pull consumer.
type StreamSpec struct {
	Stream   string
	Subject  string
	Consumer string
	MaxBytes int64
}

// EnsureStream creates the stream and durable consumer when they are missing.
func EnsureStream(js nats.JetStreamContext, spec StreamSpec) error {
	if _, err := js.StreamInfo(spec.Stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("nats: stream info: %w", err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      spec.Stream,
			Subjects:  []string{spec.Subject},
			MaxBytes:  spec.MaxBytes,
			Retention: nats.WorkQueuePolicy,
		})
		if err != nil {
			return fmt.Errorf("nats: add stream: %w", err)
		}
	}

	if _, err := js.ConsumerInfo(spec.Stream, spec.Consumer); err != nil {
		if !errors.Is(err, nats.ErrConsumerNotFound) {
			return fmt.Errorf("nats: consumer info: %w", err)
		}
		_, err = js.AddConsumer(spec.Stream, &nats.ConsumerConfig{
			Durable:       spec.Consumer,
			AckPolicy:     nats.AckExplicitPolicy,
			FilterSubject: spec.Subject,
		})
		if err != nil {
			return fmt.Errorf("nats: add consumer: %w", err)
		}
	}
	return nil
}

// URL renders the server address, defaulting host and port.
func URL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = nats.DefaultPort
	}
	return fmt.Sprintf("nats://%s:%d", host, port)
}
