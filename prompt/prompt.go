// Package prompt assembles a complete UserConfig from a normalized egg,
// either interactively or by accepting every detected default. The core
// treats the result as trusted input; all validation that matters to
// generation happens here or in the manifest package.
package prompt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	corev1 "k8s.io/api/core/v1"

	"github.com/NickMagic25/kubeegg/types"
	"github.com/NickMagic25/kubeegg/utils"
)

const (
	defaultFileManagerImage = "hurlenko/filebrowser:latest"
	defaultFileManagerPort  = 8080
	defaultMountPath        = "/home/container"
	defaultMarkerPath       = "/mnt/server/.kubeegg_installed"
)

// forceSecretVars always route to the Secret regardless of what the user
// answers; they are account credentials by definition.
var forceSecretVars = map[string]bool{
	"FTP_USERNAME": true,
	"FTP_PASSWORD": true,
}

var sensitiveTokens = []string{"PASS", "SECRET", "TOKEN", "KEY"}

// Options tune assembly without a terminal round-trip.
type Options struct {
	// NonInteractive accepts every detected default instead of prompting.
	NonInteractive bool

	EnableFileManager bool
	InjectCredentials bool
	Sops              bool
}

// SensitiveDefault guesses whether an env var holds a secret from its name.
func SensitiveDefault(name string) bool {
	upper := strings.ToUpper(name)
	for _, token := range sensitiveTokens {
		if strings.Contains(upper, token) {
			return true
		}
	}
	return false
}

// ForceSecret reports whether a variable is unconditionally sensitive.
func ForceSecret(name string) bool {
	return forceSecretVars[strings.ToUpper(name)]
}

// PortsFromEnv extracts usable port numbers from PORT-like env values,
// returning the sorted ports and a port→variable-name mapping for naming
// service ports after their variable.
func PortsFromEnv(env []types.EnvSelection) ([]int32, map[int32]string) {
	seen := map[int32]bool{}
	names := map[int32]string{}
	for _, item := range env {
		upper := strings.ToUpper(item.Key)
		if upper != "PORT" && !strings.Contains(upper, "_PORT") {
			continue
		}
		value := strings.TrimSpace(item.Value)
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 65535 {
			continue
		}
		port := int32(n)
		if !seen[port] {
			seen[port] = true
			names[port] = item.Key
		}
	}
	ports := make([]int32, 0, len(seen))
	for port := range seen {
		ports = append(ports, port)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports, names
}

// MissingStartupVars lists the startup template tokens that no selected env
// var satisfies. SERVER_MEMORY is excluded: the generator substitutes it.
func MissingStartupVars(startup string, env []types.EnvSelection) []string {
	present := map[string]bool{"SERVER_MEMORY": true}
	for _, item := range env {
		present[item.Key] = true
	}
	var missing []string
	for _, name := range utils.StartupVars(startup) {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// AssembleConfig builds the full UserConfig for an egg.
func AssembleConfig(egg types.Egg, opts Options) (*types.UserConfig, error) {
	if opts.NonInteractive {
		return assembleDefaults(egg, opts)
	}
	return assembleInteractive(egg, opts)
}

// assembleDefaults accepts every detected default. Used by --defaults runs
// and anywhere a terminal is unavailable.
func assembleDefaults(egg types.Egg, opts Options) (*types.UserConfig, error) {
	appName := utils.NormalizeK8sName(firstNonEmpty(egg.Name, "game-server"))

	env, err := defaultEnvSelections(egg.Variables)
	if err != nil {
		return nil, err
	}

	cfg := &types.UserConfig{
		AppName:        appName,
		Namespace:      appName,
		Image:          egg.Images[0].Ref,
		StartupCommand: egg.Startup,
		Env:            env,
		Ports:          namedPorts(egg.Ports, env),
		PVC: types.PVCSpec{
			Name:        appName + "-data",
			Size:        "10Gi",
			MountPath:   defaultMountPath,
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteMany},
		},
		SopsSecret: opts.Sops,
	}
	applyFileManager(cfg, opts)
	if egg.Install != nil {
		cfg.Install = &types.InstallConfig{
			Script:     egg.Install.Script,
			Image:      egg.Install.Image,
			Entrypoint: egg.Install.Entrypoint,
			MarkerPath: defaultMarkerPath,
		}
	}
	return cfg, nil
}

func assembleInteractive(egg types.Egg, opts Options) (*types.UserConfig, error) {
	cfg := &types.UserConfig{SopsSecret: opts.Sops}

	appName := utils.NormalizeK8sName(firstNonEmpty(egg.Name, "game-server"))
	namespace := appName
	image := egg.Images[0].Ref
	identity := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("App name").Value(&appName),
		huh.NewInput().Title("Namespace").Value(&namespace),
		imageField(egg.Images, &image),
	))
	if err := identity.Run(); err != nil {
		return nil, err
	}
	cfg.AppName = utils.NormalizeK8sName(appName)
	cfg.Namespace = utils.NormalizeK8sName(namespace)
	cfg.Image = image

	env, err := promptEnvSelections(egg.Variables)
	if err != nil {
		return nil, err
	}

	cfg.StartupCommand = egg.Startup
	if egg.Startup != "" {
		extra, err := promptMissingStartupVars(egg.Startup, env)
		if err != nil {
			return nil, err
		}
		env = append(env, extra...)
	}
	if err := checkUniqueEnv(env); err != nil {
		return nil, err
	}
	cfg.Env = env
	cfg.Ports = namedPorts(egg.Ports, env)

	if err := promptPVC(cfg); err != nil {
		return nil, err
	}
	if err := promptResources(cfg); err != nil {
		return nil, err
	}
	if err := promptFileManager(cfg, opts); err != nil {
		return nil, err
	}
	if egg.Install != nil {
		if err := promptInstall(cfg, egg.Install); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func imageField(images []types.ImageOption, value *string) huh.Field {
	options := make([]huh.Option[string], 0, len(images))
	for _, image := range images {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", image.Label, image.Ref), image.Ref))
	}
	return huh.NewSelect[string]().Title("Container image").Options(options...).Value(value)
}

func promptEnvSelections(variables []types.Variable) ([]types.EnvSelection, error) {
	var selections []types.EnvSelection
	for _, variable := range variables {
		name := variable.EnvVariable
		if name == "" {
			name = utils.NormalizeEnvVar(variable.Name)
		}
		value := variable.DefaultValue
		title := fmt.Sprintf("%s (leave blank to skip)", name)
		if variable.Required {
			title = name
		}
		sensitive := ForceSecret(name) || SensitiveDefault(name)

		group := []huh.Field{
			huh.NewInput().Title(title).Description(variable.Description).Value(&value),
		}
		if !ForceSecret(name) {
			group = append(group, huh.NewConfirm().Title("Is this value sensitive?").Value(&sensitive))
		}
		if err := huh.NewForm(huh.NewGroup(group...)).Run(); err != nil {
			return nil, err
		}
		if value == "" && !variable.Required {
			continue
		}
		selections = append(selections, types.EnvSelection{Key: name, Value: value, Sensitive: sensitive})
	}
	return selections, nil
}

func promptMissingStartupVars(startup string, env []types.EnvSelection) ([]types.EnvSelection, error) {
	var extra []types.EnvSelection
	for _, name := range MissingStartupVars(startup, env) {
		var value string
		sensitive := SensitiveDefault(name)
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title(fmt.Sprintf("%s (referenced by the startup command)", name)).Value(&value),
			huh.NewConfirm().Title("Is this value sensitive?").Value(&sensitive),
		))
		if err := form.Run(); err != nil {
			return nil, err
		}
		if value == "" {
			continue
		}
		extra = append(extra, types.EnvSelection{Key: name, Value: value, Sensitive: sensitive})
	}
	return extra, nil
}

func promptPVC(cfg *types.UserConfig) error {
	size := "10Gi"
	mountPath := defaultMountPath
	storageClass := ""
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Data volume size").Value(&size),
		huh.NewInput().Title("Data mount path").Value(&mountPath),
		huh.NewInput().Title("storageClassName (optional)").Value(&storageClass),
	))
	if err := form.Run(); err != nil {
		return err
	}
	cfg.PVC = types.PVCSpec{
		Name:        cfg.AppName + "-data",
		Size:        normalizeSize(size),
		MountPath:   mountPath,
		AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteMany},
	}
	if storageClass != "" {
		cfg.PVC.StorageClassName = &storageClass
	}
	return nil
}

func promptResources(cfg *types.UserConfig) error {
	configure := false
	if err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title("Configure CPU/memory requests & limits?").Value(&configure),
	)).Run(); err != nil {
		return err
	}
	if !configure {
		return nil
	}
	values := types.ResourceValues{}
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("CPU request (e.g. 500m)").Value(&values.RequestsCPU),
		huh.NewInput().Title("Memory request (e.g. 1Gi)").Value(&values.RequestsMemory),
		huh.NewInput().Title("CPU limit").Value(&values.LimitsCPU),
		huh.NewInput().Title("Memory limit").Value(&values.LimitsMemory),
	))
	if err := form.Run(); err != nil {
		return err
	}
	if values != (types.ResourceValues{}) {
		cfg.Resources = &values
	}
	return nil
}

func promptFileManager(cfg *types.UserConfig, opts Options) error {
	enabled := opts.EnableFileManager
	if err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title("Deploy the file manager sidecar?").Value(&enabled),
	)).Run(); err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	image := defaultFileManagerImage
	port := strconv.Itoa(defaultFileManagerPort)
	inject := opts.InjectCredentials
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("File manager image").Value(&image),
		huh.NewInput().Title("File manager web UI port").Value(&port).Validate(validatePort),
		huh.NewConfirm().Title("Generate login credentials into the Secret?").Value(&inject),
	))
	if err := form.Run(); err != nil {
		return err
	}

	portNumber, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil {
		return fmt.Errorf("invalid file manager port %q", port)
	}
	localOpts := opts
	localOpts.EnableFileManager = true
	localOpts.InjectCredentials = inject
	applyFileManagerValues(cfg, localOpts, image, int32(portNumber))
	return nil
}

func promptInstall(cfg *types.UserConfig, install *types.InstallScript) error {
	enable := true
	if err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title("Run the egg install script on first start?").Value(&enable),
	)).Run(); err != nil {
		return err
	}
	if !enable {
		return nil
	}
	cfg.Install = &types.InstallConfig{
		Script:     install.Script,
		Image:      install.Image,
		Entrypoint: install.Entrypoint,
		MarkerPath: defaultMarkerPath,
	}
	return nil
}

func applyFileManager(cfg *types.UserConfig, opts Options) {
	if !opts.EnableFileManager {
		return
	}
	applyFileManagerValues(cfg, opts, defaultFileManagerImage, defaultFileManagerPort)
}

func applyFileManagerValues(cfg *types.UserConfig, opts Options, image string, port int32) {
	cfg.FileManager = types.FileManagerConfig{
		Enabled:           true,
		Image:             image,
		Port:              port,
		InjectCredentials: opts.InjectCredentials,
		DataMountPath:     "/data",
		ConfigMountPath:   "/config",
	}
	if opts.InjectCredentials {
		cfg.FileManager.Username = "admin"
		cfg.FileManager.Password = utils.GenerateCredential()
	}
	cfg.FileManagerPVC = types.PVCSpec{
		Name:        cfg.AppName + "-fm-config",
		Size:        "1Gi",
		AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
	}
}

// defaultEnvSelections keeps every variable that has a default, classifying
// sensitivity by name. Required variables without a default are an error in
// non-interactive mode since nobody can supply them.
func defaultEnvSelections(variables []types.Variable) ([]types.EnvSelection, error) {
	var selections []types.EnvSelection
	for _, variable := range variables {
		name := variable.EnvVariable
		if name == "" {
			name = utils.NormalizeEnvVar(variable.Name)
		}
		if variable.DefaultValue == "" {
			if variable.Required {
				return nil, fmt.Errorf("required variable %s has no default value; run interactively", name)
			}
			continue
		}
		selections = append(selections, types.EnvSelection{
			Key:       name,
			Value:     variable.DefaultValue,
			Sensitive: ForceSecret(name) || SensitiveDefault(name),
		})
	}
	if err := checkUniqueEnv(selections); err != nil {
		return nil, err
	}
	return selections, nil
}

func checkUniqueEnv(env []types.EnvSelection) error {
	seen := map[string]bool{}
	for _, item := range env {
		if seen[item.Key] {
			return fmt.Errorf("duplicate environment variable %s", item.Key)
		}
		seen[item.Key] = true
	}
	return nil
}

// namedPorts gives detected ports a stable symbolic name, preferring the
// env var that declared the port.
func namedPorts(ports []types.PortSpec, env []types.EnvSelection) []types.PortSpec {
	_, envNames := PortsFromEnv(env)
	named := make([]types.PortSpec, 0, len(ports))
	for _, port := range ports {
		if port.Name == "" {
			if envName, ok := envNames[port.ContainerPort]; ok {
				port.Name = utils.NormalizePortName(envName)
			} else {
				port.Name = utils.NormalizePortName(fmt.Sprintf("game-%d", port.ContainerPort))
			}
		}
		named = append(named, port)
	}
	return named
}

func normalizeSize(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "10Gi"
	}
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasSuffix(lower, "gi") || strings.HasSuffix(lower, "mi"):
		return trimmed
	case strings.HasSuffix(lower, "gb"):
		return strings.TrimSpace(trimmed[:len(trimmed)-2]) + "Gi"
	case strings.HasSuffix(lower, "g"):
		return strings.TrimSpace(trimmed[:len(trimmed)-1]) + "Gi"
	default:
		if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return trimmed + "Gi"
		}
		return trimmed
	}
}

func validatePort(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
