package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NickMagic25/kubeegg/egg"
	"github.com/NickMagic25/kubeegg/fetch"
	"github.com/NickMagic25/kubeegg/server"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <source>",
	Short: "Show what an egg descriptor requires, without generating anything",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := fetch.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		parsed, err := egg.Parse(result.Data)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(server.BuildRequirements(parsed, result.ResolvedSource), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
