package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/a2a"
	"github.com/kmh4500/ainspace/core"
)

// RemoteAgent answers through an a2a endpoint. It never moves on its own.
type RemoteAgent struct {
	base
	caller RemoteCaller

	// contextIDs maps a thread to the remote conversation continuing it.
	contextIDs map[string]string
}

func NewRemote(state core.AgentState, opts ...Option) *RemoteAgent {
	o := buildOptions(opts)
	state.Behavior = core.BehaviorRemote
	a := &RemoteAgent{caller: o.caller, contextIDs: make(map[string]string)}
	a.init(state, o)
	return a
}

// ShouldRespondUnprompted limits unaddressed replies to agents within
// broadcast range of the player.
func (a *RemoteAgent) ShouldRespondUnprompted(msg core.Message) bool {
	return msg.Distance <= core.BroadcastRadius
}

func (a *RemoteAgent) ProcessMessage(ctx context.Context, msg core.Message, delay time.Duration) *core.AgentResponse {
	release := a.queue.enter()
	defer release()

	if !a.admit(msg, a.ShouldRespondUnprompted) {
		return nil
	}

	state := a.State()
	if state.Endpoint == "" {
		a.logger.Warn("remote agent has no endpoint")
		return nil
	}
	if a.caller == nil {
		a.logger.Warn("remote agent has no caller")
		return nil
	}

	env, err := a.caller.Send(ctx, state.Endpoint, a2a.SendRequest{
		Text: fmt.Sprintf("[From player at (%d, %d)]: %s",
			msg.PlayerPosition.X, msg.PlayerPosition.Y, msg.Content),
		ContextID: a.contextFor(msg.ThreadID),
		Metadata:  a.metadataFor(state.Name, msg.Metadata),
	})
	if err != nil {
		a.logger.Warn("remote agent call failed", zap.Error(err))
		return nil
	}

	reply := a2a.ExtractReply(env)
	if reply.ContextID != "" && msg.ThreadID != "" {
		a.mu.Lock()
		a.contextIDs[msg.ThreadID] = reply.ContextID
		a.mu.Unlock()
	}
	if !reply.Spoke() {
		return nil
	}
	return a.respond(state, msg, reply.Text, delay)
}

func (a *RemoteAgent) contextFor(threadID string) string {
	if threadID == "" {
		return ""
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.contextIDs[threadID]
}

// metadataFor copies the dispatch metadata, removing this agent from the
// advertised peer skills.
func (a *RemoteAgent) metadataFor(self string, in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	if peers, ok := in[core.MetaAgentSkills].([]core.PeerSkills); ok {
		filtered := make([]core.PeerSkills, 0, len(peers))
		for _, p := range peers {
			if p.Name != self {
				filtered = append(filtered, p)
			}
		}
		out[core.MetaAgentSkills] = filtered
	}
	return out
}
