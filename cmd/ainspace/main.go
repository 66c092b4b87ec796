package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmh4500/ainspace/cmd/ainspace/commands"
)

var rootCmd = &cobra.Command{
	Use:   "ainspace",
	Short: "ainspace world server",
	Long: `ainspace runs a procedural tile world where a player chats with
wandering local agents and imported remote agents.`,
	SilenceUsage: true,
}

func init() {
	commands.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ChatCmd)
	rootCmd.AddCommand(commands.MapCmd)
	rootCmd.AddCommand(commands.AgentsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
