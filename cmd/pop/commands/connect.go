package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"popclient/internal/poperr"
)

func connectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a LAO, catch up and print its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := connectPayload()
			if err != nil {
				return err
			}
			client, err := wire.Connect(cmd.Context(), payload)
			if err != nil {
				return err
			}
			defer client.Close()

			info, ok := wire.State.Lao(client.Lao)
			if !ok {
				return poperr.Protocolf("lao %s: no lao#create received", client.Lao.Short())
			}
			fmt.Printf("LAO %s (%s)\n", info.Name, info.ID)
			fmt.Printf("  organizer:  %s\n", info.Organizer)
			fmt.Printf("  witnesses:  %d\n", len(info.Witnesses))
			if !info.Server.IsZero() {
				fmt.Printf("  server:     %s\n", info.ServerAddr)
			}
			fmt.Printf("  roll calls: %d\n  elections:  %d\n  chirps:     %d\n", info.RollCalls, info.Elections, info.Chirps)
			return nil
		},
	}
	addConnectFlags(cmd)
	return cmd
}
