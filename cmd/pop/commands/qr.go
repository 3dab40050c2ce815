package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"popclient/internal/domain/types"
)

func qrCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Decode and check a connect QR payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := connectPayload()
			if err != nil {
				return err
			}
			p, err := types.ParseConnectPayload(raw)
			if err != nil {
				return err
			}
			fmt.Printf("LAO:     %s\n", p.LaoID())
			for i, addr := range p.Addresses() {
				fmt.Printf("Server %d: %s\n", i+1, addr)
			}
			fmt.Printf("Payload: %s\n", raw)
			return nil
		},
	}
	addConnectFlags(cmd)
	return cmd
}
