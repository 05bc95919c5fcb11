package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/selimacar/crm-notifier/environments"
	"github.com/selimacar/crm-notifier/internal/domain"
	"github.com/selimacar/crm-notifier/pkg/logger"
)

// Client keeps a short-lived snapshot of outbound message delivery
// states keyed by gateway message id, so operators can read recent
// statuses without hitting MySQL.
type Client struct {
	client valkey.Client
}

const (
	messageStatusKeyPrefix = "msg_status:"
	messageStatusTTL       = 24 * time.Hour
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

func (c *Client) SetStatus(ctx context.Context, messageID string, status domain.MessageStatus, at time.Time) error {
	entry := domain.MessageStatusCache{
		MessageID: messageID,
		Status:    status,
		UpdatedAt: at,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	key := messageStatusKeyPrefix + messageID

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(messageStatusTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache message status: %w", err)
	}

	logger.Debugf("Cached status %s for message %s", status, messageID)

	return nil
}

func (c *Client) GetStatus(ctx context.Context, messageID string) (*domain.MessageStatusCache, error) {
	key := messageStatusKeyPrefix + messageID

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached status: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached status: %w", err)
	}

	var entry domain.MessageStatusCache
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &entry, nil
}

// GetAllStatuses scans the status keyspace and returns every cached
// snapshot, keyed by gateway message id.
func (c *Client) GetAllStatuses(ctx context.Context) (map[string]*domain.MessageStatusCache, error) {
	pattern := messageStatusKeyPrefix + "*"

	var keys []string
	var cursor uint64
	for {
		result := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		if result.Error() != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", result.Error())
		}

		scanResult, err := result.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to parse scan result: %w", err)
		}

		keys = append(keys, scanResult.Elements...)
		cursor = scanResult.Cursor

		if cursor == 0 {
			break
		}
	}

	statuses := make(map[string]*domain.MessageStatusCache)

	for _, key := range keys {
		getResult := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
		if getResult.Error() != nil {
			continue
		}

		data, err := getResult.ToString()
		if err != nil {
			continue
		}

		var entry domain.MessageStatusCache
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}

		statuses[entry.MessageID] = &entry
	}

	return statuses, nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
