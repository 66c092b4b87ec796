package commands

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmh4500/ainspace/worldgen"
)

func resetFlags(cmds ...*cobra.Command) {
	for _, c := range cmds {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AINSPACE_LLM_PROVIDER", "offline")
	t.Setenv("AINSPACE_LOG_LEVEL", "error")

	resetFlags(ChatCmd, MapCmd, ServeCmd, agentsImportCmd, agentsListCmd, agentsDeleteCmd)
	root := &cobra.Command{Use: "ainspace", SilenceUsage: true, SilenceErrors: true}
	AddGlobalFlags(root)
	root.AddCommand(ChatCmd, MapCmd, AgentsCmd)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMapCommand(t *testing.T) {
	out, err := execute(t, "map", "--x", "3", "--y", "-4", "--width", "5", "--height", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "center (3, -4)")
	assert.Equal(t, byte('@'), lines[2][2])

	grid := worldgen.Window(3, -4, 5, 3)
	for i, tile := range grid[0] {
		assert.Equal(t, tileGlyphs[tile], lines[1][i])
	}

	out, err = execute(t, "map", "--width", "5", "--height", "5", "--radius", "1")
	require.NoError(t, err)
	lines = strings.Split(out, "\n")
	assert.Equal(t, byte(' '), lines[1][0])
	assert.Equal(t, byte('@'), lines[3][2])

	_, err = execute(t, "map", "--width", "0")
	assert.Error(t, err)
}

func TestChatCommand(t *testing.T) {
	t.Run("broadcast in range", func(t *testing.T) {
		out, err := execute(t, "chat", "hello")
		require.NoError(t, err)
		assert.Contains(t, out, "(broadcast, 3 recipients)")

		patrol := strings.Index(out, "Patrol Bot reporting from (-3, -2). Message acknowledged.")
		explorer := strings.Index(out, "Message received at (5, 3)! I'm exploring new territories.")
		wanderer := strings.Index(out, "Hello from (8, -5)! Nice to hear from you while I wander.")
		require.True(t, patrol > 0 && explorer > 0 && wanderer > 0, out)
		assert.Less(t, patrol, explorer, "nearer agent is revealed first")
		assert.Less(t, explorer, wanderer)
	})

	t.Run("mention reaches a distant agent", func(t *testing.T) {
		out, err := execute(t, "chat", "--x", "100", "--y", "100", "@Wanderer hey")
		require.NoError(t, err)
		assert.Contains(t, out, "(mention, 1 recipients)")
		assert.Contains(t, out, "Wanderer (8, -5)")
	})

	t.Run("nobody in range", func(t *testing.T) {
		out, err := execute(t, "chat", "--x", "100", "--y", "100", "hello?")
		require.NoError(t, err)
		assert.Contains(t, out, "no replies")
	})

	t.Run("negative radius reaches everyone", func(t *testing.T) {
		out, err := execute(t, "chat", "--x", "100", "--y", "100", "--radius", "-1", "hello?")
		require.NoError(t, err)
		assert.Contains(t, out, "(open, 3 recipients)")
	})

	t.Run("requires a message", func(t *testing.T) {
		_, err := execute(t, "chat")
		assert.Error(t, err)
	})
}

const weatherCard = `{"name":"Weather","url":"http://weather.invalid/rpc","skills":[{"id":"f","name":"forecast"}]}`

func TestAgentsCommands(t *testing.T) {
	t.Setenv("AINSPACE_DATA_DIR", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(weatherCard))
	}))
	defer srv.Close()
	cardURL := srv.URL + "/.well-known/agent.json"

	out, err := execute(t, "agents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No imported agents")

	out, err = execute(t, "agents", "import", cardURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported Weather (1 skills)")

	_, err = execute(t, "agents", "import", cardURL)
	assert.ErrorContains(t, err, "already imported")

	out, err = execute(t, "agents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Weather")
	assert.Contains(t, out, cardURL)

	out, err = execute(t, "agents", "delete", cardURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted")

	_, err = execute(t, "agents", "delete", cardURL)
	assert.ErrorContains(t, err, "not imported")
}
