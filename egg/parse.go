// Package egg normalizes loosely shaped game-server descriptor documents
// into the canonical model. Producers disagree on casing and nesting, so
// every field is resolved through an ordered fallback chain; the first
// present, well-typed value wins and wrong-typed values fall through.
package egg

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"

	"github.com/NickMagic25/kubeegg/types"
)

// ErrNoImages marks a descriptor that declares no container image anywhere.
// An egg without an image cannot be deployed, so this is fatal; every other
// missing field degrades to an absent value.
var ErrNoImages = errors.New("no container image found in descriptor")

// Parse normalizes a decoded descriptor document into an Egg.
func Parse(data map[string]any) (types.Egg, error) {
	variables := parseVariables(data)
	images := parseImages(data)
	if len(images) == 0 {
		return types.Egg{}, fmt.Errorf("parsing descriptor %q: %w", parseName(data), ErrNoImages)
	}
	return types.Egg{
		Name:        parseName(data),
		Description: stringField(data, "description"),
		Startup:     parseStartup(data),
		Images:      images,
		Variables:   variables,
		Ports:       parsePorts(data, variables),
		Install:     parseInstall(data),
	}, nil
}

func parseName(data map[string]any) string {
	if name := stringField(data, "name", "title"); name != "" {
		return name
	}
	for _, key := range []string{"meta", "metadata"} {
		if meta, ok := data[key].(map[string]any); ok {
			if name := stringField(meta, "name"); name != "" {
				return name
			}
		}
	}
	return ""
}

func parseStartup(data map[string]any) string {
	if startup := stringField(data, "startup"); startup != "" {
		return startup
	}
	if config, ok := data["config"].(map[string]any); ok {
		return stringField(config, "startup")
	}
	return ""
}

// parseImages merges every known image declaration site into one ordered,
// de-duplicated candidate list. Map shapes are walked in sorted key order so
// the result does not depend on Go map iteration.
func parseImages(data map[string]any) []types.ImageOption {
	var images []types.ImageOption
	seen := map[string]bool{}
	add := func(label, ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		images = append(images, types.ImageOption{Label: label, Ref: ref})
	}

	for _, key := range []string{"docker_images", "dockerImages"} {
		switch value := data[key].(type) {
		case map[string]any:
			labels := make([]string, 0, len(value))
			for label := range value {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			for _, label := range labels {
				if ref, ok := value[label].(string); ok {
					add(label, ref)
				}
			}
		case []any:
			for i, item := range value {
				if ref, ok := item.(string); ok {
					add(fmt.Sprintf("image-%d", i+1), ref)
				}
			}
		}
	}

	if ref := stringField(data, "docker_image", "dockerImage", "image"); ref != "" {
		add("default", ref)
	}
	return images
}

func parseVariables(data map[string]any) []types.Variable {
	if raw, ok := data["variables"].([]any); ok {
		var variables []types.Variable
		for _, item := range raw {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			envVariable := stringField(entry, "env_variable", "envVariable")
			name := stringField(entry, "name")
			if name == "" {
				name = envVariable
			}
			if name == "" {
				continue
			}
			variables = append(variables, types.Variable{
				Name:         name,
				EnvVariable:  envVariable,
				Description:  stringField(entry, "description"),
				DefaultValue: scalarField(entry, "default_value", "default"),
				Required:     boolField(entry, "required", "is_required"),
				UserEditable: boolField(entry, "user_editable", "userEditable"),
			})
		}
		return variables
	}

	if env, ok := data["environment"].(map[string]any); ok {
		names := make([]string, 0, len(env))
		for name := range env {
			names = append(names, name)
		}
		sort.Strings(names)
		var variables []types.Variable
		for _, name := range names {
			variables = append(variables, types.Variable{
				Name:         name,
				EnvVariable:  name,
				DefaultValue: asScalar(env[name]),
			})
		}
		return variables
	}
	return nil
}

// parsePorts merges three independent sources: the structured or flat
// config.ports field, a flat top-level ports field, and defaults of
// PORT-like variables. Explicit declarations win over inferred ones.
func parsePorts(data map[string]any, variables []types.Variable) []types.PortSpec {
	var ports []types.PortSpec
	index := map[int32]int{}
	add := func(spec types.PortSpec, explicit bool) {
		if spec.ContainerPort < 1 || spec.ContainerPort > 65535 {
			return
		}
		if i, ok := index[spec.ContainerPort]; ok {
			if explicit {
				ports[i] = spec
			}
			return
		}
		index[spec.ContainerPort] = len(ports)
		ports = append(ports, spec)
	}

	if config, ok := data["config"].(map[string]any); ok {
		raw := config["ports"]
		if raw == nil {
			raw = config["port"]
		}
		addRawPorts(raw, add)
	}
	addRawPorts(data["ports"], add)

	for _, variable := range variables {
		envName := strings.ToUpper(variable.EnvVariable)
		if envName == "" || !strings.Contains(envName, "PORT") {
			continue
		}
		if port, ok := numericPort(variable.DefaultValue); ok {
			add(types.PortSpec{ContainerPort: port, Protocol: corev1.ProtocolTCP}, false)
		}
	}
	return ports
}

func addRawPorts(raw any, add func(types.PortSpec, bool)) {
	switch value := raw.(type) {
	case []any:
		for _, item := range value {
			if spec, ok := portEntry(item); ok {
				add(spec, true)
			}
		}
	default:
		if spec, ok := portEntry(raw); ok {
			add(spec, true)
		}
	}
}

// portEntry accepts a bare number, a numeric string, a "25565/udp" style
// string, or a structured {port, protocol, name} map.
func portEntry(item any) (types.PortSpec, bool) {
	switch value := item.(type) {
	case map[string]any:
		port, ok := numericPort(value["port"])
		if !ok {
			port, ok = numericPort(value["container_port"])
		}
		if !ok {
			return types.PortSpec{}, false
		}
		return types.PortSpec{
			ContainerPort: port,
			Protocol:      parseProtocol(stringField(value, "protocol")),
			Name:          stringField(value, "name"),
		}, true
	case string:
		text, protocol, found := strings.Cut(strings.TrimSpace(value), "/")
		spec := types.PortSpec{Protocol: corev1.ProtocolTCP}
		if found {
			spec.Protocol = parseProtocol(protocol)
		}
		port, ok := numericPort(text)
		if !ok {
			return types.PortSpec{}, false
		}
		spec.ContainerPort = port
		return spec, true
	default:
		port, ok := numericPort(item)
		if !ok {
			return types.PortSpec{}, false
		}
		return types.PortSpec{ContainerPort: port, Protocol: corev1.ProtocolTCP}, true
	}
}

func parseProtocol(value string) corev1.Protocol {
	if strings.EqualFold(strings.TrimSpace(value), "udp") {
		return corev1.ProtocolUDP
	}
	return corev1.ProtocolTCP
}

func parseInstall(data map[string]any) *types.InstallScript {
	scripts, ok := data["scripts"].(map[string]any)
	if !ok {
		return nil
	}
	installation, ok := scripts["installation"].(map[string]any)
	if !ok {
		return nil
	}
	script, ok := installation["script"].(string)
	if !ok || strings.TrimSpace(script) == "" {
		return nil
	}
	return &types.InstallScript{
		Script:     strings.ReplaceAll(script, "\r\n", "\n"),
		Image:      stringField(installation, "container", "image"),
		Entrypoint: stringField(installation, "entrypoint"),
	}
}

func numericPort(value any) (int32, bool) {
	switch v := value.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int32(v), v >= 1 && v <= 65535
	case int:
		return int32(v), v >= 1 && v <= 65535
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return int32(n), n >= 1 && n <= 65535
	}
	return 0, false
}

// stringField returns the first present, non-empty string among keys.
func stringField(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := data[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// scalarField is stringField but tolerates numeric and boolean values,
// rendering them the way the producer wrote them.
func scalarField(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := data[key]; ok {
			if text := asScalar(value); text != "" {
				return text
			}
		}
	}
	return ""
}

func asScalar(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func boolField(data map[string]any, keys ...string) bool {
	for _, key := range keys {
		value, ok := data[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "1":
				return true
			default:
				return false
			}
		case float64:
			return v != 0
		}
	}
	return false
}
