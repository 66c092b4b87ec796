package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kmh4500/ainspace/a2a"
	"github.com/kmh4500/ainspace/storage"
)

// AgentsCmd manages imported remote agent records.
var AgentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage imported remote agents",
}

var agentsImportCmd = &cobra.Command{
	Use:   "import <card-url>",
	Short: "Fetch an agent card and store it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(a *app, store storage.AgentStore) error {
			client := a2a.NewClient(a2a.WithLogger(a.logger.Named("a2a")))
			card, err := client.FetchCard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rec := storage.AgentRecord{URL: args[0], Card: card, Timestamp: time.Now()}
			if err := store.SaveAgent(rec); err != nil {
				if errors.Is(err, storage.ErrAgentExists) {
					return fmt.Errorf("%s is already imported", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d skills)\n", card.Name, len(card.Skills))
			return nil
		})
	},
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported agents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(_ *app, store storage.AgentStore) error {
			recs, err := store.ListAgents()
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No imported agents")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tURL\tSKILLS\tIMPORTED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Card.Name, r.URL, len(r.Card.Skills), r.Timestamp.Format(time.RFC3339))
			}
			return tw.Flush()
		})
	},
}

var agentsDeleteCmd = &cobra.Command{
	Use:   "delete <card-url>",
	Short: "Remove an imported agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(_ *app, store storage.AgentStore) error {
			if err := store.DeleteAgent(args[0]); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("%s is not imported", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	AgentsCmd.AddCommand(agentsImportCmd)
	AgentsCmd.AddCommand(agentsListCmd)
	AgentsCmd.AddCommand(agentsDeleteCmd)
}

func withStore(fn func(*app, storage.AgentStore) error) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	store := a.openStore()
	defer store.Close()
	return fn(a, store)
}
