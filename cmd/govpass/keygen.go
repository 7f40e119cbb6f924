package main

import (
	"fmt"

	"github.com/spf13/cobra"

	jwtx "github.com/govpass/govpass/internal/jwt"
	"github.com/govpass/govpass/internal/util/atomicwrite"
)

func keygenCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RSA signing key for ID and session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := jwtx.GenerateKey()
			if err != nil {
				return err
			}
			pem, err := jwtx.EncodePrivateKeyPEM(key)
			if err != nil {
				return err
			}
			if err := atomicwrite.AtomicWriteFile(out, pem, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("wrote %s (kid %s)\n", out, jwtx.KeyID(key))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "jwt_signing.pem", "output file for the PEM-encoded private key")
	return cmd
}
