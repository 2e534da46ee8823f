package cmd

import (
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/NickMagic25/kubeegg/providers/backend"
	"github.com/NickMagic25/kubeegg/utils"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <app-name>",
	Short: "Delete previously generated manifests for an app",
	Long: `Delete removes the manifests generate wrote for <app-name> from the
selected backend. The file backend removes the generated files from the
output directory; the remote backends remove everything under
apps/<app-name>/.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDelete(cmd, args)
	},
}

type deleteOptions struct {
	out         string
	backendName string
}

var deleteOpts = &deleteOptions{}

func init() {
	deleteCmd.Flags().StringVarP(&deleteOpts.out, "out", "o", ".",
		"Directory the manifests were written into when using the file backend")
	deleteCmd.Flags().StringVar(&deleteOpts.backendName, "backend", "file",
		"Where the manifests were written: file, github or s3")

	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	appName := utils.NormalizeK8sName(args[0])

	provider := backend.NewProvider(deleteOpts.backendName, deleteOpts.out)
	if err := provider.PreCmd(ctx, appName); err != nil {
		return err
	}
	if err := provider.Delete(ctx, appName); err != nil {
		return err
	}
	klog.Infof("deleted manifests for %s", appName)
	return nil
}
