package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

func chirpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chirp <roll-call> <text>",
		Short: "Post a chirp signed with your PoP token of a roll call",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			rc, err := crypto.ParseHash(args[0])
			if err != nil {
				return err
			}
			payload, err := connectPayload()
			if err != nil {
				return err
			}
			client, err := wire.Connect(cmd.Context(), payload)
			if err != nil {
				return err
			}
			defer client.Close()

			token, err := wire.Identity.Token(pass, client.Lao, rc)
			if err != nil {
				return err
			}
			signer, err := wire.Identity.Signer(pass, client.Lao, rc)
			if err != nil {
				return err
			}
			if !signer.PublicKey().Equal(token.Public) {
				return poperr.Authenticationf("your token did not attend roll call %s", rc.Short())
			}
			ch := types.UserSocialChannel(client.Lao, token.Public)
			msg, err := client.Publish(cmd.Context(), ch, message.NewAddChirp(args[1], nil, time.Now().Unix()), signer)
			if err != nil {
				return err
			}
			fmt.Printf("Chirp %s posted on %s\n", msg.MessageID.Short(), ch)
			return nil
		},
	}
	addConnectFlags(cmd)
	return cmd
}
