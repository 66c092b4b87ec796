package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kmh4500/ainspace/core"
	"github.com/kmh4500/ainspace/world"
)

var (
	chatX        int
	chatY        int
	chatRadius   float64
	chatThread   string
	chatImported bool
)

// ChatCmd sends one message into a freshly seeded world and prints the
// replies in the order a client would reveal them.
var ChatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one chat message and print the replies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		kit, err := a.buildAgentKit(cmd.Context())
		if err != nil {
			return err
		}
		w := a.newWorld(kit)
		w.SetPlayer(core.Position{X: chatX, Y: chatY})

		if chatImported {
			store := a.openStore()
			defer store.Close()
			if _, err := spawnImported(w, store, kit); err != nil {
				return err
			}
		}

		radius := a.cfg.World.BroadcastRadius
		if cmd.Flags().Changed("radius") {
			radius = chatRadius
		}
		opts := []world.SendOption{}
		if chatThread != "" {
			opts = append(opts, world.InThread(chatThread))
		}
		if radius >= 0 {
			opts = append(opts, world.WithinRadius(radius))
		}

		result := w.Send(cmd.Context(), args[0], opts...)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "message %s (%s, %d recipients)\n", result.MessageID, result.Addressing, len(result.Targets))
		for _, r := range result.ByDelay() {
			fmt.Fprintf(out, "[+%dms] %s %s: %s\n", r.Delay.Milliseconds(), r.AgentName, r.Position, r.Message)
		}
		if len(result.Responses) == 0 {
			fmt.Fprintln(out, "no replies")
		}
		return nil
	},
}

func init() {
	ChatCmd.Flags().IntVar(&chatX, "x", 0, "Player x position")
	ChatCmd.Flags().IntVar(&chatY, "y", 0, "Player y position")
	ChatCmd.Flags().Float64Var(&chatRadius, "radius", 0, "Broadcast radius (default world.broadcast_radius, negative for everyone)")
	ChatCmd.Flags().StringVar(&chatThread, "thread", "", "Thread id to post into")
	ChatCmd.Flags().BoolVar(&chatImported, "imported", false, "Include imported remote agents")
}
