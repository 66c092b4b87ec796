package communication

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/core"
)

const (
	subjectRoot  = "ainspace"
	lobbyThread  = "lobby"
	chatSubject  = subjectRoot + ".chat"
	replySubject = subjectRoot + ".thread."
)

// ChatEvent is a player message as published on the chat subject.
type ChatEvent struct {
	MessageID string        `json:"messageId"`
	ThreadID  string        `json:"threadId,omitempty"`
	Content   string        `json:"content"`
	Player    core.Position `json:"player"`
	Timestamp time.Time     `json:"timestamp"`
}

// ThreadSubject is the subject agent responses for threadID are published on.
// Unthreaded responses go to the lobby subject.
func ThreadSubject(threadID string) string {
	if threadID == "" {
		threadID = lobbyThread
	}
	return replySubject + threadID
}

// Messenger encapsulates a NATS connection.
type Messenger struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// NewMessenger connects to the NATS server at url.
func NewMessenger(url string, logger *zap.Logger, opts ...nats.Option) (*Messenger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]nats.Option{
		nats.Name("ainspace"),
		nats.Timeout(10 * time.Second),
	}, opts...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	logger.Info("Connected to NATS", zap.String("url", url))
	return &Messenger{nc: nc, logger: logger}, nil
}

// PublishChat announces a player message.
func (m *Messenger) PublishChat(ev ChatEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return m.nc.Publish(chatSubject, data)
}

// PublishResponses publishes each response on its thread subject and flushes.
func (m *Messenger) PublishResponses(responses []core.AgentResponse) error {
	for _, r := range responses {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := m.nc.Publish(ThreadSubject(r.ThreadID), data); err != nil {
			return fmt.Errorf("publish response from %s: %w", r.AgentID, err)
		}
	}
	return m.nc.Flush()
}

// SubscribeChat delivers every published player message to fn.
func (m *Messenger) SubscribeChat(fn func(ChatEvent)) (*nats.Subscription, error) {
	return m.nc.Subscribe(chatSubject, func(msg *nats.Msg) {
		var ev ChatEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			m.logger.Warn("Dropping malformed chat event", zap.Error(err))
			return
		}
		fn(ev)
	})
}

// SubscribeThread delivers responses published for threadID. An empty
// threadID subscribes to every thread.
func (m *Messenger) SubscribeThread(threadID string, fn func(core.AgentResponse)) (*nats.Subscription, error) {
	subject := replySubject + ">"
	if threadID != "" {
		subject = ThreadSubject(threadID)
	}
	return m.nc.Subscribe(subject, func(msg *nats.Msg) {
		var r core.AgentResponse
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			m.logger.Warn("Dropping malformed response", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		fn(r)
	})
}

// Flush round-trips to the server so earlier subscriptions are registered.
func (m *Messenger) Flush() error {
	return m.nc.Flush()
}

// Close closes the connection.
func (m *Messenger) Close() {
	m.nc.Close()
}
