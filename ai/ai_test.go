package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmh4500/ainspace/core"
)

type completerFunc func(ctx context.Context, system, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

func sampleRequest() core.GenerationRequest {
	return core.GenerationRequest{
		AgentName:      "Patrol Bot",
		Behavior:       core.BehaviorPatrol,
		AgentPosition:  core.Position{X: -3, Y: -2},
		PlayerPosition: core.Position{X: 0, Y: 0},
		Distance:       3.605,
		UserMessage:    "anyone there?",
	}
}

func TestOpenAIComplete(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  On patrol.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(LLMConfig{APIKey: "test-key", BaseURL: srv.URL, MaxTokens: 64})
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, "On patrol.", text)

	got := <-bodies
	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "hello", msgs[1].(map[string]any)["content"])
}

func TestOpenAICompleteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "sys", "hello")
	assert.Error(t, err)

	_, err = NewOpenAI(LLMConfig{})
	assert.Error(t, err)
}

func TestResponder(t *testing.T) {
	t.Run("prompt carries the request", func(t *testing.T) {
		var prompt string
		var hadDeadline bool
		r := NewResponder(completerFunc(func(ctx context.Context, _, p string) (string, error) {
			prompt = p
			_, hadDeadline = ctx.Deadline()
			return " Halt! Who goes there? ", nil
		}), WithTimeout(time.Second))

		req := sampleRequest()
		req.IsMentioned = true
		text, err := r.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Halt! Who goes there?", text)
		assert.True(t, hadDeadline)
		assert.Contains(t, prompt, "Patrol Bot")
		assert.Contains(t, prompt, "(-3, -2)")
		assert.Contains(t, prompt, "3.6 units")
		assert.Contains(t, prompt, `"anyone there?"`)
		assert.Contains(t, prompt, "addressed directly")
	})

	t.Run("overheard", func(t *testing.T) {
		assert.Contains(t, AgentPrompt(sampleRequest()), "overheard")
	})

	t.Run("errors reach the caller", func(t *testing.T) {
		r := NewResponder(completerFunc(func(context.Context, string, string) (string, error) {
			return "", errors.New("boom")
		}))
		_, err := r.Generate(context.Background(), sampleRequest())
		assert.Error(t, err)
	})
}

func TestOffline(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Explorer Bot", "Message received at (4, -1)! I'm exploring new territories."},
		{"Patrol Bot", "Patrol Bot reporting from (4, -1). Message acknowledged."},
		{"Wanderer", "Hello from (4, -1)! Nice to hear from you while I wander."},
		{"Scout", "Agent Scout received your message from position (4, -1)."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Offline{}.Generate(context.Background(), core.GenerationRequest{
				AgentName:     tt.name,
				AgentPosition: core.Position{X: 4, Y: -1},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()

	g, err := NewGenerator(ctx, LLMConfig{Provider: ProviderOffline}, nil)
	require.NoError(t, err)
	assert.IsType(t, Offline{}, g)

	g, err = NewGenerator(ctx, LLMConfig{Provider: ProviderOpenAI}, nil)
	require.NoError(t, err)
	assert.IsType(t, Offline{}, g, "missing key falls back to offline")

	g, err = NewGenerator(ctx, LLMConfig{Provider: ProviderOpenAI, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Responder{}, g)

	_, err = NewGenerator(ctx, LLMConfig{Provider: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}

func TestNewCompleter(t *testing.T) {
	ctx := context.Background()

	c, err := NewCompleter(ctx, LLMConfig{Provider: ProviderGemini}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewCompleter(ctx, LLMConfig{Provider: ProviderOpenAI, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	_, err = NewCompleter(ctx, LLMConfig{Provider: "carrier-pigeon"}, nil)
	assert.Error(t, err)

	assert.IsType(t, Offline{}, GeneratorFor(nil, DefaultLLMConfig(), nil))
}

func TestCommentator(t *testing.T) {
	scene := SceneAt(core.Position{X: 2, Y: 7}, []string{"Wanderer"}, []core.Direction{core.Up, core.Left})

	t.Run("model text", func(t *testing.T) {
		var prompt string
		c := NewCommentator(completerFunc(func(_ context.Context, _, p string) (string, error) {
			prompt = p
			return "What a view.", nil
		}), nil, 1)
		assert.Equal(t, "What a view.", c.Comment(context.Background(), scene))
		assert.Contains(t, prompt, "Wanderer")
		assert.Contains(t, prompt, "up -> left")
		assert.Contains(t, prompt, scene.Biome)
	})

	t.Run("fallback", func(t *testing.T) {
		failing := NewCommentator(completerFunc(func(context.Context, string, string) (string, error) {
			return "", errors.New("down")
		}), nil, 1)
		assert.Contains(t, commentaryFallbacks, failing.Comment(context.Background(), scene))
		assert.Contains(t, commentaryFallbacks, NewCommentator(nil, nil, 2).Comment(context.Background(), scene))
	})
}
