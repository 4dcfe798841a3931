package queue

import (
	"context"
	"sync"
	"time"
)

// 事件类型
const (
	EventNoteCreated    = "note.created"
	EventNoteUpdated    = "note.updated"
	EventNoteDeleted    = "note.deleted"
	EventTenantPlan     = "tenant.plan_changed"
	EventUserInvited    = "user.invited"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
	EventTenantUsage    = "tenant.usage"
	EventQuotaRejection = "tenant.quota_rejected"
)

// Event 领域事件
type Event struct {
	Type       string                 `json:"type"`
	TenantID   uint                   `json:"tenant_id"`
	TenantSlug string                 `json:"tenant_slug,omitempty"`
	ActorID    uint                   `json:"actor_id,omitempty"`
	ResourceID uint                   `json:"resource_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Created    int64                  `json:"created"`
}

// NewEvent 创建事件并写入时间戳
func NewEvent(eventType string, tenantID uint, actorID uint, resourceID uint, payload map[string]interface{}) Event {
	return Event{
		Type:       eventType,
		TenantID:   tenantID,
		ActorID:    actorID,
		ResourceID: resourceID,
		Payload:    payload,
		Created:    time.Now().Unix(),
	}
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	// Recent 返回租户最近的事件，最新在前
	Recent(ctx context.Context, tenantID uint, limit int64) ([]Event, error)
	// Subscribe 订阅租户的实时事件，ctx 结束或调用返回的取消函数后通道关闭
	Subscribe(ctx context.Context, tenantID uint) (<-chan Event, func(), error)
	Close() error
}

// subscriberBuffer 每个订阅者的缓冲，写满时丢弃新事件
const subscriberBuffer = 64

// MemoryPublisher 进程内事件缓冲，未启用Redis时使用
type MemoryPublisher struct {
	mu     sync.Mutex
	limit  int
	events []Event

	nextID      int
	subscribers map[int]*memorySubscriber
}

type memorySubscriber struct {
	tenantID uint
	ch       chan Event
}

// NewMemoryPublisher 创建内存发布器，只保留最近 limit 条
func NewMemoryPublisher(limit int) *MemoryPublisher {
	if limit <= 0 {
		limit = 1000
	}
	return &MemoryPublisher{limit: limit, subscribers: make(map[int]*memorySubscriber)}
}

func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
	if len(p.events) > p.limit {
		p.events = p.events[len(p.events)-p.limit:]
	}

	for _, sub := range p.subscribers {
		if sub.tenantID != event.TenantID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

func (p *MemoryPublisher) Subscribe(ctx context.Context, tenantID uint) (<-chan Event, func(), error) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	sub := &memorySubscriber{tenantID: tenantID, ch: make(chan Event, subscriberBuffer)}
	p.subscribers[id] = sub
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subscribers, id)
		close(sub.ch)
		p.mu.Unlock()
	}()
	return sub.ch, cancel, nil
}

// Events 返回已发布事件的副本
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// EventsOfType 按类型过滤
func (p *MemoryPublisher) EventsOfType(eventType string) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *MemoryPublisher) Recent(_ context.Context, tenantID uint, limit int64) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	events := p.Events()
	out := make([]Event, 0, limit)
	for i := len(events) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if events[i].TenantID == tenantID {
			out = append(out, events[i])
		}
	}
	return out, nil
}

func (p *MemoryPublisher) Close() error {
	return nil
}
