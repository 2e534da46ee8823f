package types

import (
	corev1 "k8s.io/api/core/v1"
)

// ImageOption is one candidate container image declared by a descriptor.
// Label carries the producer's display name when the descriptor had one.
type ImageOption struct {
	Label string
	Ref   string
}

// Variable is a declared environment variable before the user has chosen a
// value or a sensitivity classification.
type Variable struct {
	Name         string
	EnvVariable  string
	Description  string
	DefaultValue string
	Required     bool
	UserEditable bool
}

// InstallScript is the raw installation script carried by a descriptor.
type InstallScript struct {
	Script     string
	Image      string
	Entrypoint string
}

// Egg is the canonical, normalized form of a game-server descriptor.
type Egg struct {
	Name        string
	Description string
	Startup     string
	Images      []ImageOption
	Variables   []Variable
	Ports       []PortSpec
	Install     *InstallScript
}

// EnvSelection is a fully resolved environment variable: the user has picked
// a value and decided whether it is secret-worthy.
type EnvSelection struct {
	Key       string
	Value     string
	Sensitive bool
}

type PortSpec struct {
	ContainerPort int32
	Protocol      corev1.Protocol
	Name          string
}

type PVCSpec struct {
	Name             string
	Size             string
	MountPath        string
	AccessModes      []corev1.PersistentVolumeAccessMode
	StorageClassName *string
}

// InstallConfig is present only when the egg carries an install script and
// the user opted in to running it as an init container.
type InstallConfig struct {
	Script     string
	Image      string
	Entrypoint string
	MarkerPath string
}

type FileManagerConfig struct {
	Enabled bool
	Image   string
	Port    int32

	// InjectCredentials controls whether the generator writes FB_USERNAME and
	// FB_PASSWORD into the Secret and wires them into the sidecar. When false,
	// first-run account setup is left to the file manager's own UI.
	InjectCredentials bool
	Username          string
	Password          string

	DataMountPath   string
	ConfigMountPath string
}

type ResourceValues struct {
	RequestsCPU    string
	RequestsMemory string
	LimitsCPU      string
	LimitsMemory   string
}

// UserConfig is the fully assembled input to manifest generation. It is
// treated as immutable; Render never modifies it.
type UserConfig struct {
	AppName         string
	Namespace       string
	Image           string
	ImagePullPolicy corev1.PullPolicy
	StartupCommand  string

	Env   []EnvSelection
	Ports []PortSpec

	PVC            PVCSpec
	FileManagerPVC PVCSpec

	Resources *ResourceValues

	// RunAsUser pins the workload pod to a numeric user when set. Many game
	// server images still expect root, so this stays a configuration choice.
	RunAsUser *int64

	Install     *InstallConfig
	FileManager FileManagerConfig

	// SopsSecret renames the Secret document so sops-based tooling picks it
	// up for encryption. Content is unchanged.
	SopsSecret bool
}
