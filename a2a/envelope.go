package a2a

import "strings"

// NoReply is the text reported when an envelope carries no usable message.
const NoReply = "Agent received your message but did not respond."

// Reply is the text and conversation handles pulled out of a response
// envelope.
type Reply struct {
	Text      string `json:"response"`
	ContextID string `json:"contextId,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
}

// Spoke reports whether the remote agent produced something to show.
func (r Reply) Spoke() bool {
	return r.Text != "" && r.Text != NoReply
}

// envelopeRule locates the message object inside a response envelope. The
// first rule that matches decides, even if what it finds turns out unusable.
type envelopeRule struct {
	name  string
	match func(env map[string]any) (any, bool)
}

// envelopeRules are tried in order.
var envelopeRules = []envelopeRule{
	{
		// JSON-RPC result that is itself a message or task. Tasks carry the
		// agent's reply under status.message.
		name: "result",
		match: func(env map[string]any) (any, bool) {
			result, ok := object(env["result"])
			if !ok {
				return nil, false
			}
			if _, ok := result["kind"]; !ok {
				return nil, false
			}
			if status, ok := object(result["status"]); ok {
				if msg, ok := status["message"]; ok {
					return msg, true
				}
			}
			return result, true
		},
	},
	{
		name: "result.message",
		match: func(env map[string]any) (any, bool) {
			result, ok := object(env["result"])
			if !ok {
				return nil, false
			}
			msg, ok := result["message"]
			return msg, ok
		},
	},
	{
		name: "message",
		match: func(env map[string]any) (any, bool) {
			msg, ok := env["message"]
			return msg, ok
		},
	},
	{
		name: "data.message",
		match: func(env map[string]any) (any, bool) {
			data, ok := object(env["data"])
			if !ok {
				return nil, false
			}
			msg, ok := data["message"]
			return msg, ok
		},
	},
}

// ExtractReply unwraps a loosely typed response envelope. When no rule finds
// a message with text, the returned Reply carries NoReply.
func ExtractReply(env map[string]any) Reply {
	reply := Reply{Text: NoReply}
	if env == nil {
		return reply
	}

	var found any
	for _, rule := range envelopeRules {
		if v, ok := rule.match(env); ok {
			found = v
			break
		}
	}

	msg, ok := object(found)
	if !ok {
		return reply
	}
	if s, ok := msg["contextId"].(string); ok && s != "" {
		reply.ContextID = s
	}
	if s, ok := msg["taskId"].(string); ok && s != "" {
		reply.TaskID = s
	}

	if parts, ok := msg["parts"].([]any); ok {
		var texts []string
		for _, p := range parts {
			part, ok := object(p)
			if !ok || part["kind"] != "text" {
				continue
			}
			if text, ok := part["text"].(string); ok {
				texts = append(texts, text)
			}
		}
		if len(texts) > 0 {
			reply.Text = strings.TrimSpace(strings.Join(texts, " "))
		}
		return reply
	}
	if text, ok := msg["text"].(string); ok {
		reply.Text = text
	}
	return reply
}

func object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}
