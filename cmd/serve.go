package cmd

import (
	"github.com/spf13/cobra"

	"github.com/NickMagic25/kubeegg/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the egg inspection API over HTTP",
	Long:  ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Run(serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}
