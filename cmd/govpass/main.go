package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "govpass",
		Short: "GovPass - OAuth 2.0 / OIDC authorization server for the citizen platform",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config YAML (optional, env vars override)")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(keygenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
