package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisQueue Redis事件队列，每个租户一个列表，同时广播到频道
type RedisQueue struct {
	client *redis.Client
	prefix string
	maxLen int64
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
	MaxLen   int64 // 每个租户列表保留的事件数
}

// NewRedisQueue 创建Redis队列实例
func NewRedisQueue(config *Config) *RedisQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "notely:events"
	}
	maxLen := config.MaxLen
	if maxLen <= 0 {
		maxLen = 1000
	}

	return &RedisQueue{
		client: client,
		prefix: prefix,
		maxLen: maxLen,
	}
}

// Close 关闭Redis连接
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Ping 测试Redis连接
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Publish 事件入队（左侧入队并裁剪长度），然后发布到频道
func (q *RedisQueue) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	listKey := q.getTenantKey(event.TenantID)
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, listKey, data)
	pipe.LTrim(ctx, listKey, 0, q.maxLen-1)
	pipe.Publish(ctx, q.getChannelKey(event.Type), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("事件入队失败: %w", err)
	}
	return nil
}

func (q *RedisQueue) Recent(ctx context.Context, tenantID uint, limit int64) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := q.client.LRange(ctx, q.getTenantKey(tenantID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取事件失败: %w", err)
	}

	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Subscribe 通过模式订阅接收所有事件频道，只转发指定租户的事件
func (q *RedisQueue) Subscribe(ctx context.Context, tenantID uint) (<-chan Event, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := q.client.PSubscribe(ctx, q.getChannelKey("*"))

	// 等待订阅成功
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, nil, fmt.Errorf("订阅事件频道失败: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil || e.TenantID != tenantID {
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

func (q *RedisQueue) getTenantKey(tenantID uint) string {
	return fmt.Sprintf("%s:tenant:%d", q.prefix, tenantID)
}

func (q *RedisQueue) getChannelKey(eventType string) string {
	return fmt.Sprintf("%s:channel:%s", q.prefix, eventType)
}
