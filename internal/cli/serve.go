package cli

import (
	"github.com/OFFIS-RIT/argmap/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API. The server is configured from the environment
(and a .env file), not from the argmap config file.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		server.Init()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
