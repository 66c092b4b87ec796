package a2a

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kmh4500/ainspace/core"
)

// ErrInvalidCard is returned when an agent card fails schema validation.
var ErrInvalidCard = errors.New("invalid agent card")

// AgentCard is the self-description a remote agent publishes at its card URL.
type AgentCard struct {
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	URL                string       `json:"url"`
	Version            string       `json:"version,omitempty"`
	ProtocolVersion    string       `json:"protocolVersion,omitempty"`
	DefaultInputModes  []string     `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string     `json:"defaultOutputModes,omitempty"`
	Skills             []core.Skill `json:"skills,omitempty"`
}

const cardSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "url"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "url": {"type": "string", "minLength": 1},
    "version": {"type": "string"},
    "skills": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string"},
          "description": {"type": "string"},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var compiledCardSchema = jsonschema.MustCompileString("agent-card.schema.json", cardSchema)

// ValidateCard checks raw card JSON against the agent card schema.
func ValidateCard(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}
	if err := compiledCardSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}
	return nil
}

// ParseCard validates raw card JSON and decodes it.
func ParseCard(raw []byte) (AgentCard, error) {
	if err := ValidateCard(raw); err != nil {
		return AgentCard{}, err
	}
	var card AgentCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return AgentCard{}, fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}
	return card, nil
}
