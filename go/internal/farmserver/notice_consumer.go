package farmserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/Du7chy/Seedlings/go/internal/realtime"
)

// NoticeConsumerConfig holds configuration for the NATS notice subscription
type NoticeConsumerConfig struct {
	URL           string
	SubjectPrefix string // notices arrive on <prefix>.<room_id> and <prefix>.all
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNoticeConsumerConfig returns default NATS notice configuration
func DefaultNoticeConsumerConfig() NoticeConsumerConfig {
	return NoticeConsumerConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "seedlings.notices",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NoticeConsumer relays system notices published on NATS to rooms as status events
type NoticeConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	config            NoticeConsumerConfig
}

// NewNoticeConsumer connects to NATS. Nothing is subscribed until Start.
func NewNoticeConsumer(cm *ConnectionManager, config NoticeConsumerConfig) (*NoticeConsumer, error) {
	opts := []nats.Option{
		nats.Name("farmserver"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NoticeConsumer{
		connectionManager: cm,
		nc:                nc,
		config:            config,
	}, nil
}

// Start relays notices until ctx is cancelled
func (nc *NoticeConsumer) Start(ctx context.Context) error {
	subject := nc.config.SubjectPrefix + ".>"
	log.Info().Str("subject", subject).Msg("starting NATS notice consumer")

	messageCh := make(chan *nats.Msg, 100)
	sub, err := nc.nc.ChanSubscribe(subject, messageCh)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("notice consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := nc.processMessage(msg.Subject, msg.Data); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject).
					Msg("failed to process notice")
			}
		}
	}
}

// Close drains the subscription and closes the NATS connection
func (nc *NoticeConsumer) Close() error {
	return nc.nc.Drain()
}

// processMessage broadcasts one notice. The body is either {"message": "..."} or plain text.
func (nc *NoticeConsumer) processMessage(subject string, data []byte) error {
	target := strings.TrimPrefix(subject, nc.config.SubjectPrefix+".")
	if target == subject || target == "" {
		return fmt.Errorf("subject outside %s", nc.config.SubjectPrefix)
	}

	text := strings.TrimSpace(string(data))
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		text = strings.TrimSpace(body.Message)
	}
	if text == "" {
		return errors.New("empty notice")
	}

	notice := statusFrame{Message: text}
	if target == "all" {
		nc.connectionManager.BroadcastToAll(realtime.EventStatus, notice)
		return nil
	}

	roomID, err := strconv.Atoi(target)
	if err != nil || roomID <= 0 {
		return fmt.Errorf("notice target %q is not a room", target)
	}
	nc.connectionManager.BroadcastToRoom(roomID, realtime.EventStatus, notice)

	log.Debug().Int("room_id", roomID).Msg("notice relayed")
	return nil
}
