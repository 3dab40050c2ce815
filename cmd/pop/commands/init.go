package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate the root key pair and store it securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			kp, fp, err := wire.Identity.Generate(pass)
			if err != nil {
				return err
			}
			fmt.Printf("Identity created.\nPublic key:  %s\nFingerprint: %s\n", kp.Public, fp)
			return nil
		},
	}
}
