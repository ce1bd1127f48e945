package observer

import (
	"context"
	"sync"
	"time"

	"trevpay/pkg/logger"

	"go.uber.org/zap"
)

// Connectivity 在线状态快照 + 变化订阅
type Connectivity interface {
	Online() bool
	Subscribe(fn func(online bool)) (cancel func())
}

// Probe 一次连通性检查, 返回 nil 表示在线
type Probe interface {
	Check(ctx context.Context) error
}

// ConnectivityMonitor 定时探测并在状态变化时通知订阅者
type ConnectivityMonitor struct {
	probe    Probe
	interval time.Duration

	mu        sync.RWMutex
	online    bool
	listeners map[int]func(bool)
	nextID    int

	startOnce sync.Once
}

// NewConnectivityMonitor probe 为 nil 时只能通过 SetOnline 改变状态
func NewConnectivityMonitor(probe Probe, interval time.Duration, initial bool) *ConnectivityMonitor {
	return &ConnectivityMonitor{
		probe:     probe,
		interval:  interval,
		online:    initial,
		listeners: make(map[int]func(bool)),
	}
}

func (m *ConnectivityMonitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe 注册监听器, 返回取消函数. 回调在状态变化的 goroutine 中同步执行, 不应阻塞
func (m *ConnectivityMonitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// SetOnline 手动设置状态 (探测结果或人工覆盖)
func (m *ConnectivityMonitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	fns := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	logger.Info("Connectivity changed", zap.Bool("online", online))
	for _, fn := range fns {
		fn(online)
	}
}

// Refresh 立即探测一次并返回最新状态
func (m *ConnectivityMonitor) Refresh(ctx context.Context) bool {
	if m.probe == nil {
		return m.Online()
	}

	err := m.probe.Check(ctx)
	if err != nil {
		logger.Debug("Connectivity probe failed", zap.Error(err))
	}
	m.SetOnline(err == nil)
	return err == nil
}

// Start 启动探测循环, ctx 取消后退出; 重复调用无效
func (m *ConnectivityMonitor) Start(ctx context.Context) {
	if m.probe == nil || m.interval <= 0 {
		return
	}
	m.startOnce.Do(func() {
		go m.loop(ctx)
	})
}

func (m *ConnectivityMonitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}
