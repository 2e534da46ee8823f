// Package manifest turns an assembled UserConfig into a fixed, ordered set
// of Kubernetes manifest documents. Rendering is a pure function: no I/O,
// no randomness, no clock. Identical inputs produce byte-identical output.
package manifest

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/NickMagic25/kubeegg/types"
	"github.com/NickMagic25/kubeegg/utils"
)

var (
	// ErrDuplicatePortName marks two service ports resolving to the same
	// symbolic name, which the Service schema rejects.
	ErrDuplicatePortName = errors.New("duplicate service port name")
	// ErrMissingCredentials marks credential injection enabled on the file
	// manager without a username and password to inject.
	ErrMissingCredentials = errors.New("file manager credential injection enabled without credentials")
	// ErrInvalidQuantity marks a size or resource value that is not a valid
	// Kubernetes quantity.
	ErrInvalidQuantity = errors.New("invalid resource quantity")
)

const (
	managedBy = "kubeegg"

	installerMountPath = "/kubeegg-installer"
	installerDataPath  = "/mnt/server"
	defaultMarkerPath  = installerDataPath + "/.kubeegg_installed"

	defaultFMDataPath   = "/data"
	defaultFMConfigPath = "/config"
)

// File is one named manifest document.
type File struct {
	Name    string
	Content []byte
}

// DocumentNames lists every file name Render can emit, conditional documents
// included.
func DocumentNames() []string {
	return []string{
		"kustomization.yaml",
		"namespace.yaml",
		"pvc.yaml",
		"fm-config-pvc.yaml",
		"configmap.yaml",
		"secret.yaml",
		"secrets.sops.yaml",
		"installer-configmap.yaml",
		"deployment.yaml",
		"ftp-deployment.yaml",
		"service.yaml",
		"ftp-service.yaml",
	}
}

type document struct {
	name string
	obj  any
}

// Render produces the full manifest set for a configuration. On any policy
// violation it returns an error and no files.
func Render(cfg types.UserConfig) ([]File, error) {
	ports, err := servicePorts(cfg.Ports)
	if err != nil {
		return nil, err
	}

	configData, secretKeys, secretData := partitionEnv(cfg.Env)
	if startup := startupValue(cfg); startup != "" {
		configData["STARTUP"] = startup
	}

	fm := cfg.FileManager
	if fm.Enabled && fm.InjectCredentials {
		if fm.Username == "" || fm.Password == "" {
			return nil, fmt.Errorf("rendering %s: %w", cfg.AppName, ErrMissingCredentials)
		}
		secretData["FB_USERNAME"] = fm.Username
		secretData["FB_PASSWORD"] = fm.Password
	}

	hasConfigMap := len(configData) > 0
	hasSecret := len(secretData) > 0

	secretFile := "secret.yaml"
	if cfg.SopsSecret {
		secretFile = "secrets.sops.yaml"
	}

	pvc, err := pvcObject(cfg)
	if err != nil {
		return nil, err
	}
	deployment, err := deploymentObject(cfg, ports, hasConfigMap, hasSecret, secretKeys)
	if err != nil {
		return nil, err
	}

	docs := []document{
		{"namespace.yaml", namespaceObject(cfg)},
		{"pvc.yaml", pvc},
	}
	if fm.Enabled {
		fmPVC, err := fmConfigPVCObject(cfg)
		if err != nil {
			return nil, err
		}
		docs = append(docs, document{"fm-config-pvc.yaml", fmPVC})
	}
	if hasConfigMap {
		docs = append(docs, document{"configmap.yaml", configMapObject(cfg, configData)})
	}
	if hasSecret {
		docs = append(docs, document{secretFile, secretObject(cfg, secretData)})
	}
	if cfg.Install != nil {
		docs = append(docs, document{"installer-configmap.yaml", installerConfigMapObject(cfg)})
	}
	docs = append(docs, document{"deployment.yaml", deployment})
	if fm.Enabled {
		docs = append(docs, document{"ftp-deployment.yaml", fmDeploymentObject(cfg)})
	}
	if len(ports) > 0 {
		docs = append(docs, document{"service.yaml", serviceObject(cfg, ports)})
	}
	if fm.Enabled {
		docs = append(docs, document{"ftp-service.yaml", fmServiceObject(cfg)})
	}

	resources := make([]string, 0, len(docs))
	for _, doc := range docs {
		resources = append(resources, doc.name)
	}
	kustomization, err := encodeKustomization(cfg.AppName, resources)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(docs)+1)
	files = append(files, File{Name: "kustomization.yaml", Content: kustomization})
	for _, doc := range docs {
		content, err := encodeObject(doc.obj)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", doc.name, err)
		}
		files = append(files, File{Name: doc.name, Content: content})
	}
	return files, nil
}

// partitionEnv routes every selection to exactly one destination by its
// sensitivity flag. Returns the plain data, the sorted sensitive key list,
// and the sensitive data.
func partitionEnv(env []types.EnvSelection) (map[string]string, []string, map[string]string) {
	configData := map[string]string{}
	secretData := map[string]string{}
	for _, item := range env {
		if item.Sensitive {
			secretData[item.Key] = item.Value
		} else {
			configData[item.Key] = item.Value
		}
	}
	secretKeys := make([]string, 0, len(secretData))
	for key := range secretData {
		secretKeys = append(secretKeys, key)
	}
	sort.Strings(secretKeys)
	return configData, secretKeys, secretData
}

// startupValue applies the single recognized placeholder. When no memory
// limit is configured the token stays verbatim so the in-container launcher
// can still see it.
func startupValue(cfg types.UserConfig) string {
	startup := cfg.StartupCommand
	if startup == "" || !strings.Contains(startup, utils.MemoryPlaceholder) {
		return startup
	}
	if cfg.Resources == nil || cfg.Resources.LimitsMemory == "" {
		return startup
	}
	mb, ok := utils.MemoryToMB(cfg.Resources.LimitsMemory)
	if !ok {
		return startup
	}
	return strings.ReplaceAll(startup, utils.MemoryPlaceholder, strconv.FormatInt(mb, 10))
}

// servicePorts fills in default symbolic names and enforces name uniqueness.
func servicePorts(ports []types.PortSpec) ([]types.PortSpec, error) {
	out := make([]types.PortSpec, 0, len(ports))
	seen := map[string]bool{}
	for _, port := range ports {
		name := port.Name
		if name == "" {
			name = fmt.Sprintf("game-%d", port.ContainerPort)
		}
		name = utils.NormalizePortName(name)
		if seen[name] {
			return nil, fmt.Errorf("port %d: %w: %q", port.ContainerPort, ErrDuplicatePortName, name)
		}
		seen[name] = true
		port.Name = name
		out = append(out, port)
	}
	return out, nil
}

// wrapInstallScript guards the raw script with a marker file so restarts
// skip a completed install. The wrapper intentionally does not set -e: egg
// install scripts use grep-style checks whose non-zero exits are control
// flow, not failures.
func wrapInstallScript(script, marker string) string {
	if marker == "" {
		marker = defaultMarkerPath
	}
	return strings.Join([]string{
		"#!/bin/sh",
		"MARKER=" + marker,
		`if [ -f "$MARKER" ]; then`,
		`  echo "Installer already completed."`,
		"  exit 0",
		"fi",
		strings.TrimSpace(script),
		`touch "$MARKER"`,
	}, "\n")
}

func labels(appName, component string) map[string]string {
	l := map[string]string{
		"app.kubernetes.io/name":       appName,
		"app.kubernetes.io/managed-by": managedBy,
	}
	if component != "" {
		l["app.kubernetes.io/component"] = component
	}
	return l
}

func selectorLabels(appName, component string) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":      appName,
		"app.kubernetes.io/component": component,
	}
}
