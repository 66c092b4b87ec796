package core

import (
	"encoding/json"
	"math"
	"time"
)

const (
	// BroadcastRadius is the default reach of an unaddressed message, in tiles.
	BroadcastRadius = 10.0
	// MaxSpeed is how fast a message travels, in tiles per second.
	MaxSpeed = 10.0
	// BaseDelay is added to every response before stagger and travel time.
	BaseDelay = 500 * time.Millisecond
	// StaggerDelay separates responses by their position in the target set.
	StaggerDelay = 100 * time.Millisecond
)

// MetaAgentSkills is the metadata key carrying []PeerSkills to remote agents.
const MetaAgentSkills = "agentSkills"

// Message is a player chat message as seen by one agent. Distance and
// IsMentioned are computed per agent at dispatch time.
type Message struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Sender         string         `json:"sender"`
	Timestamp      time.Time      `json:"timestamp"`
	PlayerPosition Position       `json:"playerPosition"`
	Distance       float64        `json:"distance"`
	IsMentioned    bool           `json:"isMentioned"`
	ThreadID       string         `json:"threadId,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// AgentResponse is one agent's reply. Delay tells the presentation layer when
// to reveal it; nothing in the core waits on it.
type AgentResponse struct {
	AgentID   string        `json:"agentId"`
	AgentName string        `json:"agentName"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Delay     time.Duration `json:"-"`
	Position  Position      `json:"position"`
	Distance  float64       `json:"distance"`
	ThreadID  string        `json:"threadId,omitempty"`
}

// MarshalJSON encodes Delay as whole milliseconds under "delayMs".
func (r AgentResponse) MarshalJSON() ([]byte, error) {
	type alias AgentResponse
	return json.Marshal(struct {
		alias
		Delay int64 `json:"delayMs"`
	}{alias: alias(r), Delay: r.Delay.Milliseconds()})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *AgentResponse) UnmarshalJSON(b []byte) error {
	type alias AgentResponse
	aux := struct {
		*alias
		Delay int64 `json:"delayMs"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.Delay = time.Duration(aux.Delay) * time.Millisecond
	return nil
}

// TravelDelay is the total presentation delay for a response from an agent at
// the given distance and index within the target set.
func TravelDelay(distance float64, index int) time.Duration {
	travel := time.Duration(math.Round(distance / MaxSpeed * float64(time.Second)))
	return BaseDelay + time.Duration(index)*StaggerDelay + travel
}

// GenerationRequest is everything the text-generation capability is given to
// produce a local agent's reply.
type GenerationRequest struct {
	AgentName      string       `json:"name"`
	Behavior       BehaviorKind `json:"behavior"`
	AgentPosition  Position     `json:"position"`
	PlayerPosition Position     `json:"playerPosition"`
	Distance       float64      `json:"distance"`
	UserMessage    string       `json:"userMessage"`
	IsMentioned    bool         `json:"isMentioned"`
}
