package event

import (
	"fmt"
	"sync"
	"time"

	"trevpay/pkg/logger"

	"go.uber.org/zap"
)

// Callback 订阅回调
type Callback func(Update)

type subscriber struct {
	types    map[string]bool // 为空表示订阅全部
	callback Callback
}

// Notifier 进程内的更新广播, 同步引擎每轮结束后通知 UI / SSE
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string]subscriber
	lastUpdate  int64
	now         func() time.Time
}

func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[string]subscriber), now: time.Now}
}

// Subscribe 注册订阅者; 同一 id 重复注册会覆盖
func (n *Notifier) Subscribe(id string, types []string, cb Callback) {
	filter := make(map[string]bool, len(types))
	for _, t := range types {
		filter[t] = true
	}

	n.mu.Lock()
	n.subscribers[id] = subscriber{types: filter, callback: cb}
	n.mu.Unlock()
	logger.Debug("Subscriber added", zap.String("id", id))
}

func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	delete(n.subscribers, id)
	n.mu.Unlock()
	logger.Debug("Subscriber removed", zap.String("id", id))
}

// Publish 同步调用所有感兴趣的订阅者; 单个订阅者 panic 不影响其它订阅者
func (n *Notifier) Publish(typ string, data interface{}) {
	u := Update{Type: typ, Data: data, Timestamp: n.now().UnixMilli()}

	n.mu.Lock()
	n.lastUpdate = u.Timestamp
	targets := make(map[string]Callback, len(n.subscribers))
	for id, s := range n.subscribers {
		if len(s.types) == 0 || s.types[typ] {
			targets[id] = s.callback
		}
	}
	n.mu.Unlock()

	for id, cb := range targets {
		n.deliver(id, cb, u)
	}
}

func (n *Notifier) deliver(id string, cb Callback, u Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Error notifying subscriber", zap.String("id", id), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	cb(u)
}

// Status 订阅者数量与最近一次推送时间
func (n *Notifier) Status() (subscribers int, lastUpdate int64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers), n.lastUpdate
}
