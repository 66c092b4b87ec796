package core

import (
	"fmt"
	"strings"
	"time"
)

// BehaviorKind tags the variant an agent belongs to.
type BehaviorKind string

const (
	BehaviorRandom   BehaviorKind = "random"
	BehaviorPatrol   BehaviorKind = "patrol"
	BehaviorExplorer BehaviorKind = "explorer"
	BehaviorRemote   BehaviorKind = "a2a"
)

// ParseBehaviorKind accepts the kind names used by clients, including the
// "A2A Agent" label used when an imported agent is spawned.
func ParseBehaviorKind(s string) (BehaviorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random":
		return BehaviorRandom, nil
	case "patrol":
		return BehaviorPatrol, nil
	case "explorer":
		return BehaviorExplorer, nil
	case "a2a", "a2a agent", "remote":
		return BehaviorRemote, nil
	}
	return "", fmt.Errorf("unknown agent type: %q", s)
}

// IsLocal reports whether the kind moves and talks locally.
func (k BehaviorKind) IsLocal() bool {
	switch k {
	case BehaviorRandom, BehaviorPatrol, BehaviorExplorer:
		return true
	}
	return false
}

// Skill describes one capability advertised by a remote agent card.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentState is the identity and simulation state of one agent.
type AgentState struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Color        string        `json:"color"`
	Position     Position      `json:"position"`
	Behavior     BehaviorKind  `json:"behavior"`
	Direction    Direction     `json:"direction"`
	LastMoved    time.Time     `json:"lastMoved"`
	MoveInterval time.Duration `json:"moveInterval"`
	// Only set for remote agents.
	Endpoint string  `json:"agentUrl,omitempty"`
	Skills   []Skill `json:"skills,omitempty"`
}

// Clone returns a deep copy.
func (s AgentState) Clone() AgentState {
	if s.Skills != nil {
		s.Skills = append([]Skill(nil), s.Skills...)
	}
	return s
}

// StateUpdate carries the fields to merge into an AgentState. Nil fields are
// left untouched. Identity and behavior kind are not updatable.
type StateUpdate struct {
	Name         *string
	Color        *string
	Position     *Position
	Direction    *Direction
	LastMoved    *time.Time
	MoveInterval *time.Duration
	Endpoint     *string
	Skills       []Skill
}

// Apply merges u into s and returns the result.
func (u StateUpdate) Apply(s AgentState) AgentState {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Color != nil {
		s.Color = *u.Color
	}
	if u.Position != nil {
		s.Position = *u.Position
	}
	if u.Direction != nil {
		s.Direction = *u.Direction
	}
	if u.LastMoved != nil {
		s.LastMoved = *u.LastMoved
	}
	if u.MoveInterval != nil {
		s.MoveInterval = *u.MoveInterval
	}
	if u.Endpoint != nil {
		s.Endpoint = *u.Endpoint
	}
	if u.Skills != nil {
		s.Skills = append([]Skill(nil), u.Skills...)
	}
	return s
}

// PeerSkills is what a remote agent is told about the other remote agents it
// shares the world with.
type PeerSkills struct {
	Name   string  `json:"name"`
	Skills []Skill `json:"skills"`
}
