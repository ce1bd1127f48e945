package handler

import (
	"io"
	"strings"
	"time"

	"trevpay/internal/event"
	"trevpay/pkg/safe_random"

	"github.com/gin-gonic/gin"
)

const (
	sseBuffer    = 32
	sseHeartbeat = 15 * time.Second
)

type EventHandler struct {
	notifier *event.Notifier
}

func NewEventHandler(n *event.Notifier) *EventHandler {
	return &EventHandler{notifier: n}
}

// Stream 以 Server-Sent Events 推送实时更新
// ?types=receipt_update,queue_update 只订阅指定类型
func (h *EventHandler) Stream(c *gin.Context) {
	var types []string
	if raw := c.Query("types"); raw != "" {
		types = strings.Split(raw, ",")
	}

	updates := make(chan event.Update, sseBuffer)
	id := safe_random.NewID("sse", time.Now())
	h.notifier.Subscribe(id, types, func(u event.Update) {
		select {
		case updates <- u:
		default:
			// 客户端太慢, 丢弃
		}
	})
	defer h.notifier.Unsubscribe(id)

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case u := <-updates:
			c.SSEvent(u.Type, u)
			return true
		case t := <-heartbeat.C:
			c.SSEvent("ping", t.UnixMilli())
			return true
		}
	})
}
