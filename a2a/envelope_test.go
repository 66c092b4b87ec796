package a2a

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &env))
	return env
}

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want Reply
	}{
		{
			name: "result is a message",
			env: `{"jsonrpc":"2.0","id":"1","result":{"kind":"message","contextId":"ctx-1",
				"parts":[{"kind":"text","text":"hello "},{"kind":"data","data":{}},{"kind":"text","text":"there "}]}}`,
			want: Reply{Text: "hello  there", ContextID: "ctx-1"},
		},
		{
			name: "task with status message",
			env: `{"result":{"kind":"task","id":"t1","status":{"state":"completed",
				"message":{"kind":"message","taskId":"t1","contextId":"c9","parts":[{"kind":"text","text":"done"}]}}}}`,
			want: Reply{Text: "done", ContextID: "c9", TaskID: "t1"},
		},
		{
			name: "result.message",
			env:  `{"result":{"message":{"parts":[{"kind":"text","text":"nested"}]}}}`,
			want: Reply{Text: "nested"},
		},
		{
			name: "top level message with text field",
			env:  `{"message":{"text":"plain"}}`,
			want: Reply{Text: "plain"},
		},
		{
			name: "data.message",
			env:  `{"data":{"message":{"parts":[{"kind":"text","text":"from data"}]}}}`,
			want: Reply{Text: "from data"},
		},
		{
			name: "result with kind wins over result.message",
			env:  `{"result":{"kind":"message","parts":[{"kind":"text","text":"first"}],"message":{"text":"second"}}}`,
			want: Reply{Text: "first"},
		},
		{
			name: "parts without text fall back to placeholder",
			env:  `{"message":{"parts":[{"kind":"file"}],"text":"ignored"}}`,
			want: Reply{Text: NoReply},
		},
		{
			name: "non-string text part is skipped",
			env:  `{"message":{"parts":[{"kind":"text","text":42},{"kind":"text","text":"ok"}]}}`,
			want: Reply{Text: "ok"},
		},
		{
			name: "message that is not an object",
			env:  `{"message":"just a string"}`,
			want: Reply{Text: NoReply},
		},
		{
			name: "unknown shape",
			env:  `{"foo":"bar"}`,
			want: Reply{Text: NoReply},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractReply(decode(t, tt.env)))
		})
	}

	t.Run("nil envelope", func(t *testing.T) {
		assert.False(t, ExtractReply(nil).Spoke())
	})
}

func TestReplySpoke(t *testing.T) {
	assert.True(t, Reply{Text: "hi"}.Spoke())
	assert.False(t, Reply{Text: ""}.Spoke())
	assert.False(t, Reply{Text: NoReply}.Spoke())
}
