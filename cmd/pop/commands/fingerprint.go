package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func fingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print root key fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			kp, err := wire.Identity.LoadUnlocked(pass)
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\n", wire.Identity.Fingerprint(kp.Public))
			return nil
		},
	}
	return cmd
}
