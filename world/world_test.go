package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kmh4500/ainspace/a2a"
	"github.com/kmh4500/ainspace/agent"
	"github.com/kmh4500/ainspace/core"
)

type generatorFunc func(ctx context.Context, req core.GenerationRequest) (string, error)

func (f generatorFunc) Generate(ctx context.Context, req core.GenerationRequest) (string, error) {
	return f(ctx, req)
}

var echo = generatorFunc(func(_ context.Context, req core.GenerationRequest) (string, error) {
	return fmt.Sprintf("%s: %s", req.AgentName, req.UserMessage), nil
})

func localAt(id, name string, x, y int, opts ...agent.Option) agent.Agent {
	opts = append([]agent.Option{agent.WithGenerator(echo)}, opts...)
	return agent.NewLocal(core.AgentState{
		ID:       id,
		Name:     name,
		Position: core.Position{X: x, Y: y},
		Behavior: core.BehaviorRandom,
	}, opts...)
}

func targetIDs(p Plan) []string {
	ids := make([]string, len(p.Targets))
	for i, t := range p.Targets {
		ids[i] = t.Agent.ID()
	}
	return ids
}

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		content string
		want    []string
	}{
		{"hello everyone", []string{}},
		{"@Explorer hi", []string{"Explorer hi"}},
		{"hey @Wanderer", []string{"Wanderer"}},
		{"@Patrol Bot, and @Wanderer!", []string{"Patrol Bot", "Wanderer"}},
		{"email me@ home", []string{}},
		{"@ nobody", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMentions(tt.content))
		})
	}
}

func TestMatchMentions(t *testing.T) {
	agents := DefaultAgents()

	names := func(as []agent.Agent) []string {
		var out []string
		for _, a := range as {
			out = append(out, a.Name())
		}
		return out
	}

	assert.Equal(t, []string{"Explorer Bot"}, names(MatchMentions(agents, []string{"Explorer hi"})))
	assert.Equal(t, []string{"Patrol Bot"}, names(MatchMentions(agents, []string{"patrol bot please report"})))
	assert.Equal(t, []string{"Explorer Bot", "Patrol Bot"}, names(MatchMentions(agents, []string{"Bot"})),
		"overlapping names both match")
	assert.Empty(t, MatchMentions(agents, []string{"Ghost"}))
	assert.Equal(t, []string{"Explorer Bot", "Wanderer"}, names(MatchMentions(agents, []string{"wanderer", "explorer"})),
		"registry order is kept")
}

func TestPlanMentionOverridesRadius(t *testing.T) {
	w := New(WithAgents(
		localAt("a1", "Explorer Bot", 1, 0),
		localAt("a2", "Patrol Bot", 0, 2),
	))

	plan := w.Plan("@Explorer hi", WithinRadius(10))
	assert.Equal(t, AddressMention, plan.Addressing)
	assert.Equal(t, []string{"a1"}, targetIDs(plan))
	assert.True(t, plan.Targets[0].Message.IsMentioned)

	far := New(WithAgents(localAt("a1", "Explorer Bot", 400, 0)))
	plan = far.Plan("@Explorer come here", WithinRadius(10))
	assert.Equal(t, []string{"a1"}, targetIDs(plan), "mentions ignore distance")
}

func TestPlanBroadcastRadius(t *testing.T) {
	w := New(WithAgents(
		localAt("d2", "Two", 2, 0),
		localAt("d5", "Five", 0, -5),
		localAt("d11", "Eleven", 11, 0),
		localAt("d20", "Twenty", 0, 20),
	))

	plan := w.Plan("hello", WithinRadius(10))
	assert.Equal(t, AddressBroadcast, plan.Addressing)
	assert.Equal(t, []string{"d2", "d5"}, targetIDs(plan))
	for _, tgt := range plan.Targets {
		assert.False(t, tgt.Message.IsMentioned)
	}

	open := w.Plan("hello")
	assert.Equal(t, AddressOpen, open.Addressing)
	assert.Equal(t, []string{"d2", "d5", "d11", "d20"}, targetIDs(open))

	unmatched := w.Plan("@Nobody hello", WithinRadius(10))
	assert.Equal(t, AddressMention, unmatched.Addressing)
	assert.Empty(t, unmatched.Targets)
}

func TestPlanDelays(t *testing.T) {
	w := New(
		WithPlayer(core.Position{X: 10, Y: 10}),
		WithAgents(
			localAt("a", "A", 11, 10),
			localAt("b", "B", 10, 11),
			localAt("c", "C", 10, 15),
		),
	)

	plan := w.Plan("hi", WithinRadius(10))
	require.Len(t, plan.Targets, 3)
	a, b, c := plan.Targets[0], plan.Targets[1], plan.Targets[2]

	assert.Equal(t, 600*time.Millisecond, a.Delay)
	assert.Equal(t, 700*time.Millisecond, b.Delay)
	assert.Equal(t, 1200*time.Millisecond, c.Delay)
	assert.Less(t, a.Delay, b.Delay, "equal distance, lower index first")
	assert.InDelta(t, 5.0, c.Message.Distance, 1e-9)
	assert.Equal(t, core.Position{X: 10, Y: 10}, c.Message.PlayerPosition)

	assert.Greater(t, core.TravelDelay(7, 1), core.TravelDelay(1, 1), "farther is later at the same index")
}

func TestSendEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := New(WithAgents(
		localAt("near", "Near", 3, 0),
		localAt("mid", "Mid", 0, 8),
		localAt("far", "Far", 15, 0),
	))

	res := w.Send(context.Background(), "hello everyone", WithinRadius(core.BroadcastRadius))
	require.Len(t, res.Responses, 2)
	assert.Equal(t, "near", res.Responses[0].AgentID)
	assert.Equal(t, "Near: hello everyone", res.Responses[0].Message)
	assert.Equal(t, 800*time.Millisecond, res.Responses[0].Delay)
	assert.Equal(t, "mid", res.Responses[1].AgentID)
	assert.Equal(t, 1400*time.Millisecond, res.Responses[1].Delay)
	assert.NotEmpty(t, res.MessageID)
}

func TestSendFallbackResponses(t *testing.T) {
	failing := agent.WithGenerator(generatorFunc(func(context.Context, core.GenerationRequest) (string, error) {
		return "", errors.New("unavailable")
	}))
	w := New(WithAgents(localAt("a1", "Scout", 2, 1, failing)))

	res := w.Send(context.Background(), "anyone?")
	require.Len(t, res.Responses, 1)
	assert.Equal(t, "Scout at (2, 1) received your message but couldn't respond properly.", res.Responses[0].Message)
}

func TestSendRunsAgentsConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 4
	var started sync.WaitGroup
	started.Add(n)
	allIn := make(chan struct{})
	go func() {
		started.Wait()
		close(allIn)
	}()

	barrier := agent.WithGenerator(generatorFunc(func(ctx context.Context, req core.GenerationRequest) (string, error) {
		started.Done()
		select {
		case <-allIn:
			return "together", nil
		case <-time.After(2 * time.Second):
			return "", errors.New("agents ran one at a time")
		}
	}))

	var agents []agent.Agent
	for i := 0; i < n; i++ {
		agents = append(agents, localAt(fmt.Sprintf("a%d", i), fmt.Sprintf("Agent %d", i), i, 0, barrier))
	}
	res := New(WithAgents(agents...)).Send(context.Background(), "go")
	require.Len(t, res.Responses, n)
	for i, r := range res.Responses {
		assert.Equal(t, "together", r.Message)
		assert.Equal(t, fmt.Sprintf("a%d", i), r.AgentID, "target order is kept")
	}
}

func TestSendThreads(t *testing.T) {
	w := New(WithAgents(
		localAt("near", "Explorer Bot", 1, 1),
		localAt("far", "Patrol Bot", 30, 0),
	))
	ctx := context.Background()

	res := w.Send(ctx, "let's talk", WithinRadius(10), InThread("t1"))
	require.Len(t, res.Responses, 1)
	assert.Equal(t, "t1", res.Responses[0].ThreadID)

	near, _ := w.Get("near")
	far, _ := w.Get("far")
	assert.True(t, near.InThread("t1"))
	assert.False(t, far.InThread("t1"))

	res = w.Send(ctx, "still here?", InThread("t1"))
	require.Len(t, res.Responses, 1, "only members answer an open thread message")
	assert.Equal(t, "near", res.Responses[0].AgentID)

	res = w.Send(ctx, "@Patrol join us", InThread("t1"))
	require.Len(t, res.Responses, 1)
	assert.Equal(t, "far", res.Responses[0].AgentID)
	assert.True(t, far.InThread("t1"))

	res = w.Send(ctx, "everyone?", InThread("t1"))
	assert.Len(t, res.Responses, 2)
}

type recordingCaller struct {
	mu   sync.Mutex
	seen map[string][]core.PeerSkills
}

func (c *recordingCaller) Send(_ context.Context, endpoint string, req a2a.SendRequest) (map[string]any, error) {
	c.mu.Lock()
	peers, _ := req.Metadata[core.MetaAgentSkills].([]core.PeerSkills)
	c.seen[endpoint] = peers
	c.mu.Unlock()
	if endpoint == "http://silent" {
		return nil, errors.New("timeout")
	}
	return map[string]any{"message": map[string]any{"text": "beep"}}, nil
}

func TestSendRemoteAgents(t *testing.T) {
	caller := &recordingCaller{seen: map[string][]core.PeerSkills{}}
	remote := func(id, name, endpoint string, x int) agent.Agent {
		return agent.NewRemote(core.AgentState{
			ID:       id,
			Name:     name,
			Position: core.Position{X: x},
			Endpoint: endpoint,
			Skills:   []core.Skill{{ID: id, Name: name + " skill"}},
		}, agent.WithCaller(caller))
	}
	w := New(WithAgents(
		localAt("local", "Local", 1, 0),
		remote("r1", "Oracle", "http://oracle", 2),
		remote("r2", "Mute", "http://silent", 3),
		remote("r3", "Distant", "http://distant", 50),
	))

	res := w.Send(context.Background(), "hello")
	require.Len(t, res.Responses, 2, "distant remote declines and failing remote is silent")
	assert.Equal(t, "local", res.Responses[0].AgentID)
	assert.Equal(t, "Oracle", res.Responses[1].AgentName)
	assert.Equal(t, "beep", res.Responses[1].Message)

	require.Contains(t, caller.seen, "http://oracle")
	var peerNames []string
	for _, p := range caller.seen["http://oracle"] {
		peerNames = append(peerNames, p.Name)
	}
	assert.Equal(t, []string{"Mute", "Distant"}, peerNames)
	assert.NotContains(t, caller.seen, "http://distant")
}

func TestRegistry(t *testing.T) {
	w := New(WithAgents(DefaultAgents()...))
	require.Len(t, w.Agents(), 3)

	err := w.Add(localAt("agent-1", "Copy", 0, 0))
	assert.True(t, errors.Is(err, ErrDuplicateAgent))

	require.NoError(t, w.Add(localAt("agent-4", "Scout", 0, 1)))
	assert.Equal(t, "Scout", w.States()[3].Name)

	w.SetPlayer(core.Position{X: 5, Y: 3})
	assert.Equal(t, core.Position{X: 5, Y: 3}, w.Player())
	inRange := w.AgentsInRange(1)
	require.Len(t, inRange, 1)
	assert.Equal(t, "agent-1", inRange[0].ID())
	assert.Len(t, w.AgentsInRange(-1), 4)

	sugg := w.Suggestions("BOT")
	require.Len(t, sugg, 2)
	assert.Equal(t, "Explorer Bot", sugg[0].Name())

	assert.True(t, w.Remove("agent-2"))
	assert.False(t, w.Remove("agent-2"))
	_, ok := w.Get("agent-2")
	assert.False(t, ok)

	w.Clear()
	assert.Empty(t, w.Agents())
	assert.Equal(t, core.Position{}, w.Player())
}

func TestDefaultStates(t *testing.T) {
	states := DefaultStates()
	require.Len(t, states, 3)
	assert.Equal(t, core.BehaviorRandom, states[0].Behavior)
	assert.Equal(t, core.BehaviorPatrol, states[1].Behavior)
	assert.Equal(t, core.BehaviorExplorer, states[2].Behavior)
	assert.Equal(t, core.Position{X: 8, Y: -5}, states[2].Position)
}
