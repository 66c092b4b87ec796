// Package a2a talks to remote agents over the agent-to-agent JSON-RPC
// protocol: card discovery, message/send and reply unwrapping.
package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 4 << 20

// SendRequest is one outbound chat turn.
type SendRequest struct {
	Text      string
	ContextID string
	Metadata  map[string]any
}

// Message is the protocol message object.
type Message struct {
	Kind      string         `json:"kind"`
	MessageID string         `json:"messageId"`
	Role      string         `json:"role"`
	Parts     []Part         `json:"parts"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ContextID string         `json:"contextId,omitempty"`
}

type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Message Message `json:"message"`
}

// Client resolves agent cards and sends messages to the endpoints they
// advertise. Cards are cached per card URL.
type Client struct {
	http   *http.Client
	logger *zap.Logger

	mu    sync.RWMutex
	cards map[string]AgentCard
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: zap.NewNop(),
		cards:  make(map[string]AgentCard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCard downloads and validates the card at cardURL. Successful results
// are cached.
func (c *Client) FetchCard(ctx context.Context, cardURL string) (AgentCard, error) {
	c.mu.RLock()
	card, ok := c.cards[cardURL]
	c.mu.RUnlock()
	if ok {
		return card, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return AgentCard{}, fmt.Errorf("build card request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return AgentCard{}, fmt.Errorf("fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AgentCard{}, fmt.Errorf("fetch agent card: %s", resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return AgentCard{}, fmt.Errorf("read agent card: %w", err)
	}

	card, err = ParseCard(raw)
	if err != nil {
		return AgentCard{}, err
	}

	c.mu.Lock()
	c.cards[cardURL] = card
	c.mu.Unlock()
	return card, nil
}

// Forget drops a cached card so the next call refetches it.
func (c *Client) Forget(cardURL string) {
	c.mu.Lock()
	delete(c.cards, cardURL)
	c.mu.Unlock()
}

// Send delivers req to the agent described by the card at cardURL and
// returns the raw response envelope. JSON-RPC errors are returned as errors.
func (c *Client) Send(ctx context.Context, cardURL string, req SendRequest) (map[string]any, error) {
	card, err := c.FetchCard(ctx, cardURL)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"type": "CHAT"}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  "message/send",
		Params: rpcParams{Message: Message{
			Kind:      "message",
			MessageID: uuid.New().String(),
			Role:      "user",
			Parts:     []Part{{Kind: "text", Text: req.Text}},
			Metadata:  metadata,
			ContextID: req.ContextID,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, card.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build message request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending a2a message",
		zap.String("agent", card.Name),
		zap.String("endpoint", card.URL),
		zap.String("contextId", req.ContextID))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send message to %s: %w", card.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("send message to %s: %s", card.Name, resp.Status)
	}

	var env map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", card.Name, err)
	}
	if rpcErr, ok := env["error"]; ok && rpcErr != nil {
		return nil, fmt.Errorf("agent %s returned error: %v", card.Name, rpcErr)
	}
	return env, nil
}
