package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/vidfeed/video-feed-import-go/internal/config"
	"github.com/vidfeed/video-feed-import-go/internal/db/models"
	"github.com/vidfeed/video-feed-import-go/pkg/logger"
)

// confirmTimeout bounds the wait for a broker ack per message.
const confirmTimeout = 5 * time.Second

// publishedVideoMessage is the wire payload emitted for each video a
// run publishes.
type publishedVideoMessage struct {
	FeedImportUUID string     `json:"feed_import_uuid"`
	FeedID         *int64     `json:"feed_id"`
	VideoID        int64      `json:"video_id"`
	Name           string     `json:"name"`
	URL            string     `json:"url"`
	GUID           string     `json:"guid"`
	PublishedAt    *time.Time `json:"published_at"`
}

// MessagePublisher announces published videos on a RabbitMQ topic
// exchange. It implements importer's AfterPublish listener interface,
// so a broker outage degrades to a logged warning rather than a failed
// import.
type MessagePublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	mu      sync.RWMutex
}

// NewMessagePublisher connects to RabbitMQ and declares the exchange.
func NewMessagePublisher(cfg *config.RabbitMQConfig) (*MessagePublisher, error) {
	mp := &MessagePublisher{
		config: cfg,
	}

	if err := mp.connect(); err != nil {
		return nil, err
	}

	return mp, nil
}

func (mp *MessagePublisher) connect() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	conn, err := amqp.Dial(mp.amqpURL())
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	// Confirms let publish() know the broker took the message.
	err = ch.Confirm(false)
	if err == nil {
		err = ch.ExchangeDeclare(mp.config.Exchange, "topic",
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil)
	}
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set up exchange %q: %w", mp.config.Exchange, err)
	}

	mp.conn = conn
	mp.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.config.Exchange),
		zap.String("routingKey", mp.config.RoutingKey),
	)
	return nil
}

func (mp *MessagePublisher) amqpURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		mp.config.User, mp.config.Password, mp.config.Host, mp.config.Port)
}

// AfterPublish sends one message per published video. The first
// failure aborts the batch; the hook layer logs it and the import
// continues.
func (mp *MessagePublisher) AfterPublish(ctx context.Context, feedImport *models.FeedImport, published []*models.Video) error {
	for _, video := range published {
		msg := &publishedVideoMessage{
			FeedImportUUID: feedImport.UUID.String(),
			FeedID:         video.FeedID,
			VideoID:        video.ID,
			Name:           video.Name,
			URL:            video.OriginalURL,
			GUID:           video.GUID,
			PublishedAt:    video.PublishedAt,
		}
		if err := mp.publish(ctx, msg); err != nil {
			return fmt.Errorf("publish video %d: %w", video.ID, err)
		}
	}
	return nil
}

func (mp *MessagePublisher) publish(ctx context.Context, msg *publishedVideoMessage) error {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if mp.channel == nil {
		return fmt.Errorf("publisher is not connected")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	confirms := mp.channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = mp.channel.PublishWithContext(
		ctx,
		mp.config.Exchange,   // exchange
		mp.config.RoutingKey, // routing key
		false,                // mandatory
		false,                // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    fmt.Sprintf("%s-%d", msg.FeedImportUUID, msg.VideoID),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return fmt.Errorf("broker rejected message")
		}
	case <-time.After(confirmTimeout):
		return fmt.Errorf("no publish confirmation within %s", confirmTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Log.Debug("Published video announcement",
		zap.Int64("videoId", msg.VideoID),
		zap.String("routingKey", mp.config.RoutingKey),
	)

	return nil
}

// Close shuts down the channel and connection.
func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var firstErr error
	if mp.channel != nil {
		firstErr = mp.channel.Close()
	}
	if mp.conn != nil {
		if err := mp.conn.Close(); firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("close publisher: %w", firstErr)
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection is still usable.
func (mp *MessagePublisher) IsHealthy() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil
}
