// @title                       Fermenter controller API
// @version                     1.0
// @description                 Run control, status and history of the fermentation temperature controller.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "fermenterd",
		Short:        "Fermentation temperature controller",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default configs/config.yml)")

	rootCmd.AddCommand(newServeCmd(), newValidateCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("fermenterd " + version)
		},
	}
}
