package database

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
)

// FeedInsertChannel is the NOTIFY channel fired by the content table triggers
const FeedInsertChannel = "feed_inserts"

// InsertEvent is one row inserted into a content table
type InsertEvent struct {
	Table string          `json:"table"`
	Row   json.RawMessage `json:"row"`
}

// InsertListener relays content-table inserts from Postgres LISTEN/NOTIFY
type InsertListener struct {
	listener *pq.Listener
	events   chan InsertEvent
	logger   *logging.Logger
	done     chan struct{}
	once     sync.Once
}

// NewInsertListener opens a dedicated connection and subscribes to FeedInsertChannel
func NewInsertListener(config Config, logger *logging.Logger) (*InsertListener, error) {
	return newListenerFromDSN(config.DSN(), logger)
}

func newListenerFromDSN(dsn string, logger *logging.Logger) (*InsertListener, error) {
	l := &InsertListener{
		events: make(chan InsertEvent, 64),
		logger: logger,
		done:   make(chan struct{}),
	}

	l.listener = pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("Feed listener connection event", logging.WithFields(map[string]interface{}{
				"event": int(ev),
				"error": err.Error(),
			}))
		}
	})
	if err := l.listener.Listen(FeedInsertChannel); err != nil {
		l.listener.Close()
		return nil, fmt.Errorf("listen %s: %w", FeedInsertChannel, err)
	}

	go l.loop()
	return l, nil
}

// Events delivers decoded insert notifications. It is closed by Close.
func (l *InsertListener) Events() <-chan InsertEvent {
	return l.events
}

func (l *InsertListener) loop() {
	defer close(l.events)

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-l.done:
			return
		case n, ok := <-l.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect
			if n == nil {
				continue
			}
			var ev InsertEvent
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				l.logger.Warn("Dropping malformed feed notification", logging.WithField("error", err.Error()))
				continue
			}
			select {
			case l.events <- ev:
			case <-l.done:
				return
			}
		case <-ping.C:
			go l.listener.Ping()
		}
	}
}

// Close unsubscribes and stops delivery
func (l *InsertListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.listener.Close()
	})
	return err
}
