package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
)

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the seed PoP tokens are derived from",
	}
	cmd.AddCommand(walletNewCmd(), walletImportCmd(), walletExportCmd(), walletTokenCmd(), walletRecoverCmd())
	return cmd
}

func walletNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a wallet and print its mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			mnemonic, err := wire.Identity.NewWallet(pass)
			if err != nil {
				return err
			}
			fmt.Printf("Write these words down; they are the only way to recover your tokens:\n\n  %s\n", mnemonic)
			return nil
		},
	}
}

func walletImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <word>...",
		Short: "Import a wallet from its 12-word mnemonic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			if err := wire.Identity.ImportWallet(pass, strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Println("Wallet imported.")
			return nil
		},
	}
}

func walletExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the stored mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			mnemonic, err := wire.Identity.ExportMnemonic(pass)
			if err != nil {
				return err
			}
			fmt.Println(mnemonic)
			return nil
		},
	}
}

func walletTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <lao> <roll-call>",
		Short: "Print the PoP token of a roll call and its QR payload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			lao, err := crypto.ParseHash(args[0])
			if err != nil {
				return err
			}
			rc, err := crypto.ParseHash(args[1])
			if err != nil {
				return err
			}
			token, err := wire.Identity.Token(pass, lao, rc)
			if err != nil {
				return err
			}
			payload, err := json.Marshal(types.PopTokenPayload{PopToken: token.Public.String()})
			if err != nil {
				return err
			}
			fmt.Printf("Token: %s\nQR:    %s\n", token.Public, payload)
			return nil
		},
	}
}

func walletRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover <lao>",
		Short: "List the tokens of every known roll call of a LAO you attended",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			lao, err := crypto.ParseHash(args[0])
			if err != nil {
				return err
			}
			tokens, err := wire.Identity.RecoverTokens(cmd.Context(), pass, lao)
			if err != nil {
				return err
			}
			lines := make([]string, 0, len(tokens))
			for k, kp := range tokens {
				lines = append(lines, fmt.Sprintf("%s  %s", k.RollCall, kp.Public))
			}
			sort.Strings(lines)
			fmt.Printf("%d token(s) recovered\n", len(lines))
			for _, l := range lines {
				fmt.Println(l)
			}
			return nil
		},
	}
}
