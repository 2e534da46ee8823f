package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

const (
	AppName = "kubeegg"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "Generate Kubernetes manifests from game server egg descriptors",
	Long: `kubeegg normalizes loose egg JSON descriptors into a canonical model
and renders a complete, deterministic set of Kubernetes manifests for
running the game server: namespace, storage, config, secrets, workloads
and services, plus a kustomization tying them together.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(version, commit, date string) {
	appVersion = fmt.Sprintf("%s - %s %s %s", AppName, version, commit, date)
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	klog.InitFlags(nil)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}
