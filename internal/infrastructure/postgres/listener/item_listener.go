package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"finsync/internal/shared/logger"
)

const (
	channelName       = "item_linked"
	reconnectInterval = 5 * time.Second
	pingInterval      = 90 * time.Second
)

// ItemLinked is the payload the items insert trigger sends with NOTIFY.
type ItemLinked struct {
	ItemID string `json:"item_id"`
	UserID int64  `json:"user_id"`
}

// Handler receives each linked item. It runs on the listener goroutine and should not block.
type Handler func(ctx context.Context, ev ItemLinked)

// ItemListener listens for PostgreSQL notifications when an item is linked, in any process.
type ItemListener struct {
	connStr    string
	handler    Handler
	shutdownCh chan struct{}
	done       chan struct{}
}

// NewItemListener creates a new listener for item link notifications
func NewItemListener(connStr string, handler Handler) *ItemListener {
	return &ItemListener{
		connStr:    connStr,
		handler:    handler,
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins listening for notifications in a background goroutine
func (l *ItemListener) Start(ctx context.Context) {
	go l.listen(ctx)
	logger.L.Info("item link listener started", "channel", channelName)
}

// Stop gracefully shuts down the listener
func (l *ItemListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	logger.L.Info("item link listener stopped")
}

func (l *ItemListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		// Wait before reconnecting
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			logger.L.Info("reconnecting to PostgreSQL for notifications")
		}
	}
}

func (l *ItemListener) connectAndListen(ctx context.Context) {
	listener := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.L.Info("connected to notification channel", "channel", channelName)
		case pq.ListenerEventDisconnected:
			logger.L.Warn("disconnected from notification channel", "channel", channelName, "error", err)
		case pq.ListenerEventReconnected:
			logger.L.Info("reconnected to notification channel", "channel", channelName)
		case pq.ListenerEventConnectionAttemptFailed:
			logger.L.Warn("notification connection attempt failed", "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(channelName); err != nil {
		logger.L.Error("failed to listen on channel", "channel", channelName, "error", err)
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			if n == nil {
				// Connection lost, break to reconnect
				return
			}
			l.handleNotification(ctx, n)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					logger.L.Warn("listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (l *ItemListener) handleNotification(ctx context.Context, n *pq.Notification) {
	ev, err := parseItemLinked(n.Extra)
	if err != nil {
		logger.L.Warn("failed to parse notification payload", "channel", n.Channel, "error", err)
		return
	}
	l.handler(ctx, ev)
}

func parseItemLinked(payload string) (ItemLinked, error) {
	var ev ItemLinked
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ItemLinked{}, err
	}
	if ev.ItemID == "" || ev.UserID <= 0 {
		return ItemLinked{}, errInvalidPayload
	}
	return ev, nil
}
