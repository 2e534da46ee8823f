package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"

	"github.com/NickMagic25/kubeegg/types"
)

func TestSensitiveDefault(t *testing.T) {
	type test struct {
		name  string
		input string
		want  bool
	}
	tests := []test{
		{name: "password", input: "RCON_PASSWORD", want: true},
		{name: "lowercase password", input: "rcon_password", want: true},
		{name: "secret", input: "CLIENT_SECRET", want: true},
		{name: "token", input: "API_TOKEN", want: true},
		{name: "key", input: "LICENSE_KEY", want: true},
		{name: "plain", input: "SERVER_NAME", want: false},
		{name: "port", input: "SERVER_PORT", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SensitiveDefault(tc.input))
		})
	}
}

func TestForceSecret(t *testing.T) {
	assert.True(t, ForceSecret("FTP_USERNAME"))
	assert.True(t, ForceSecret("ftp_password"))
	assert.False(t, ForceSecret("FTP_PORT"))
}

func TestPortsFromEnv(t *testing.T) {
	env := []types.EnvSelection{
		{Key: "SERVER_PORT", Value: "25565"},
		{Key: "QUERY_PORT", Value: "25565"},
		{Key: "RCON_PORT", Value: "25575"},
		{Key: "PORT", Value: "8080"},
		{Key: "MAX_PLAYERS", Value: "20"},
		{Key: "BROKEN_PORT", Value: "not-a-number"},
		{Key: "ZERO_PORT", Value: "0"},
	}
	ports, names := PortsFromEnv(env)
	assert.Equal(t, []int32{8080, 25565, 25575}, ports)
	assert.Equal(t, "SERVER_PORT", names[25565])
	assert.Equal(t, "RCON_PORT", names[25575])
	assert.Equal(t, "PORT", names[8080])
}

func TestMissingStartupVars(t *testing.T) {
	startup := "java -Xmx{{SERVER_MEMORY}}M -jar {{SERVER_JARFILE}} --port {{SERVER_PORT}}"
	env := []types.EnvSelection{{Key: "SERVER_PORT", Value: "25565"}}
	assert.Equal(t, []string{"SERVER_JARFILE"}, MissingStartupVars(startup, env))

	env = append(env, types.EnvSelection{Key: "SERVER_JARFILE", Value: "server.jar"})
	assert.Empty(t, MissingStartupVars(startup, env))
}

func TestAssembleConfig_Defaults(t *testing.T) {
	egg := types.Egg{
		Name:    "Minecraft Java",
		Startup: "java -jar {{SERVER_JARFILE}}",
		Images: []types.ImageOption{
			{Label: "java17", Ref: "ghcr.io/example/java:17"},
			{Label: "java21", Ref: "ghcr.io/example/java:21"},
		},
		Variables: []types.Variable{
			{Name: "Server Jar", EnvVariable: "SERVER_JARFILE", DefaultValue: "server.jar", Required: true},
			{Name: "RCON Password", EnvVariable: "RCON_PASSWORD", DefaultValue: "changeme"},
			{Name: "Optional Extra", EnvVariable: "EXTRA_FLAGS"},
		},
		Ports: []types.PortSpec{{ContainerPort: 25565, Protocol: corev1.ProtocolTCP}},
		Install: &types.InstallScript{
			Script: "curl -o server.jar https://example.com/server.jar",
			Image:  "alpine:3.20",
		},
	}

	cfg, err := AssembleConfig(egg, Options{NonInteractive: true})
	require.NoError(t, err)

	assert.Equal(t, "minecraft-java", cfg.AppName)
	assert.Equal(t, "minecraft-java", cfg.Namespace)
	assert.Equal(t, "ghcr.io/example/java:17", cfg.Image)
	assert.Equal(t, egg.Startup, cfg.StartupCommand)

	require.Len(t, cfg.Env, 2)
	assert.Equal(t, types.EnvSelection{Key: "SERVER_JARFILE", Value: "server.jar"}, cfg.Env[0])
	assert.Equal(t, types.EnvSelection{Key: "RCON_PASSWORD", Value: "changeme", Sensitive: true}, cfg.Env[1])

	require.Len(t, cfg.Ports, 1)
	assert.Equal(t, "game-25565", cfg.Ports[0].Name)

	assert.Equal(t, "minecraft-java-data", cfg.PVC.Name)
	assert.Equal(t, "10Gi", cfg.PVC.Size)
	assert.Equal(t, "/home/container", cfg.PVC.MountPath)
	assert.Equal(t, []corev1.PersistentVolumeAccessMode{corev1.ReadWriteMany}, cfg.PVC.AccessModes)

	require.NotNil(t, cfg.Install)
	assert.Equal(t, egg.Install.Script, cfg.Install.Script)
	assert.Equal(t, "alpine:3.20", cfg.Install.Image)
	assert.Equal(t, "/mnt/server/.kubeegg_installed", cfg.Install.MarkerPath)

	assert.False(t, cfg.FileManager.Enabled)
	assert.False(t, cfg.SopsSecret)
}

func TestAssembleConfig_DefaultsFileManager(t *testing.T) {
	egg := types.Egg{
		Name:   "Valheim",
		Images: []types.ImageOption{{Label: "latest", Ref: "ghcr.io/example/valheim:latest"}},
	}

	cfg, err := AssembleConfig(egg, Options{
		NonInteractive:    true,
		EnableFileManager: true,
		InjectCredentials: true,
		Sops:              true,
	})
	require.NoError(t, err)

	require.True(t, cfg.FileManager.Enabled)
	assert.Equal(t, defaultFileManagerImage, cfg.FileManager.Image)
	assert.Equal(t, int32(defaultFileManagerPort), cfg.FileManager.Port)
	assert.True(t, cfg.FileManager.InjectCredentials)
	assert.Equal(t, "admin", cfg.FileManager.Username)
	assert.NotEmpty(t, cfg.FileManager.Password)
	assert.Equal(t, "valheim-fm-config", cfg.FileManagerPVC.Name)
	assert.Equal(t, "1Gi", cfg.FileManagerPVC.Size)
	assert.True(t, cfg.SopsSecret)
}

func TestAssembleConfig_DefaultsRequiredWithoutValue(t *testing.T) {
	egg := types.Egg{
		Name:   "Rust",
		Images: []types.ImageOption{{Label: "latest", Ref: "ghcr.io/example/rust:latest"}},
		Variables: []types.Variable{
			{Name: "Server Token", EnvVariable: "SERVER_TOKEN", Required: true},
		},
	}
	_, err := AssembleConfig(egg, Options{NonInteractive: true})
	assert.ErrorContains(t, err, "required variable SERVER_TOKEN has no default value")
}

func TestAssembleConfig_PortNamesFromEnv(t *testing.T) {
	egg := types.Egg{
		Name:   "Terraria",
		Images: []types.ImageOption{{Label: "latest", Ref: "ghcr.io/example/terraria:latest"}},
		Variables: []types.Variable{
			{Name: "Server Port", EnvVariable: "SERVER_PORT", DefaultValue: "7777"},
		},
		Ports: []types.PortSpec{{ContainerPort: 7777, Protocol: corev1.ProtocolTCP}},
	}
	cfg, err := AssembleConfig(egg, Options{NonInteractive: true})
	require.NoError(t, err)
	require.Len(t, cfg.Ports, 1)
	assert.Equal(t, "server-port", cfg.Ports[0].Name)
}

func TestNormalizeSize(t *testing.T) {
	type test struct {
		name  string
		input string
		want  string
	}
	tests := []test{
		{name: "already binary", input: "20Gi", want: "20Gi"},
		{name: "mebibytes", input: "512Mi", want: "512Mi"},
		{name: "gb suffix", input: "20GB", want: "20Gi"},
		{name: "g suffix", input: "5g", want: "5Gi"},
		{name: "bare number", input: "15", want: "15Gi"},
		{name: "empty", input: "", want: "10Gi"},
		{name: "unknown passthrough", input: "lots", want: "lots"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeSize(tc.input))
		})
	}
}

func TestCheckUniqueEnv(t *testing.T) {
	err := checkUniqueEnv([]types.EnvSelection{
		{Key: "EULA", Value: "true"},
		{Key: "EULA", Value: "false"},
	})
	assert.ErrorContains(t, err, "duplicate environment variable EULA")
}
