package cmd

import (
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/NickMagic25/kubeegg/egg"
	"github.com/NickMagic25/kubeegg/fetch"
	"github.com/NickMagic25/kubeegg/manifest"
	"github.com/NickMagic25/kubeegg/prompt"
	"github.com/NickMagic25/kubeegg/providers/backend"
	"github.com/NickMagic25/kubeegg/providers/backend/file"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <source>",
	Short: "Generate Kubernetes manifests for an egg descriptor",
	Long: `Generate fetches the egg descriptor at <source> (a file path, URL, or
github.com blob link), normalizes it, assembles the deployment
configuration and writes the rendered manifests to the selected backend.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, args)
	},
}

type generateOptions struct {
	out         string
	backendName string
	force       bool
	defaults    bool
	sops        bool
	fileManager bool
	injectCreds bool
}

var generateOpts = &generateOptions{}

func init() {
	generateCmd.Flags().StringVarP(&generateOpts.out, "out", "o", ".",
		"Directory to write manifests into when using the file backend")
	generateCmd.Flags().StringVar(&generateOpts.backendName, "backend", "file",
		"Where to write the manifests: file, github or s3")
	generateCmd.Flags().BoolVar(&generateOpts.force, "force", false,
		"Overwrite existing manifest files")
	generateCmd.Flags().BoolVar(&generateOpts.defaults, "defaults", false,
		"Accept every detected default instead of prompting")
	generateCmd.Flags().BoolVar(&generateOpts.sops, "sops", false,
		"Name the secret document secrets.sops.yaml for a sops encryption workflow")
	generateCmd.Flags().BoolVar(&generateOpts.fileManager, "file-manager", false,
		"Deploy the web file manager sidecar alongside the server")
	generateCmd.Flags().BoolVar(&generateOpts.injectCreds, "inject-credentials", false,
		"Generate file manager login credentials into the secret")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	source := args[0]

	result, err := fetch.Load(ctx, source)
	if err != nil {
		return err
	}
	klog.V(2).Infof("loaded descriptor from %s", result.ResolvedSource)

	parsed, err := egg.Parse(result.Data)
	if err != nil {
		return err
	}
	klog.Infof("egg: %s (%d images, %d variables)", parsed.Name, len(parsed.Images), len(parsed.Variables))

	cfg, err := prompt.AssembleConfig(parsed, prompt.Options{
		NonInteractive:    generateOpts.defaults,
		EnableFileManager: generateOpts.fileManager,
		InjectCredentials: generateOpts.injectCreds,
		Sops:              generateOpts.sops,
	})
	if err != nil {
		return err
	}

	files, err := manifest.Render(*cfg)
	if err != nil {
		return err
	}

	provider := backend.NewProvider(generateOpts.backendName, generateOpts.out)
	if fileBackend, ok := provider.(*file.Backend); ok {
		fileBackend.Force = generateOpts.force
	}
	if err := provider.PreCmd(ctx, cfg.AppName); err != nil {
		return err
	}
	written, err := provider.WriteManifests(ctx, cfg.AppName, files)
	if err != nil {
		return err
	}

	for _, name := range written {
		klog.V(2).Infof("wrote %s", name)
	}
	klog.Infof("wrote %d manifests for %s", len(written), cfg.AppName)
	return nil
}
