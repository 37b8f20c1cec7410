package events

import (
	"log/slog"

	"github.com/JonMunkholm/leadpipe/internal/config"
	"github.com/JonMunkholm/leadpipe/internal/core"
)

// FromConfig returns the RabbitMQ publisher when AMQP_URL is set and the log
// publisher otherwise. closeFn releases the broker connection.
func FromConfig(cfg config.EventsConfig, logger *slog.Logger) (pub core.EventPublisher, closeFn func() error, err error) {
	if cfg.AMQPURL == "" {
		return NewLogPublisher(logger), func() error { return nil }, nil
	}
	p, err := Dial(cfg.AMQPURL, cfg.Exchange)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}
