package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"short", "abc", "****"},
		{"exactly_10", "1234567890", "****"},
		{"long_token", "glpat-AbCdEfGh123456", "glpa****3456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskSecret(tt.input))
		})
	}
}

func TestMaskConfig(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {
				Host:  "https://gitlab.example.com",
				Token: "glpat-AbCdEfGh123456",
			},
		},
	}

	masked := maskConfig(cfg)

	// Non-sensitive fields preserved.
	assert.Equal(t, "https://gitlab.example.com", masked.Profiles["default"].Host)
	assert.Equal(t, "default", masked.CurrentProfile)

	// Sensitive fields masked.
	assert.NotEqual(t, cfg.Profiles["default"].Token, masked.Profiles["default"].Token)
	assert.Contains(t, masked.Profiles["default"].Token, "****")

	// Original config not mutated.
	assert.Equal(t, "glpat-AbCdEfGh123456", cfg.Profiles["default"].Token)
}

func TestMaskConfig_EmptyProfiles(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles:       map[string]Profile{},
	}

	masked := maskConfig(cfg)
	assert.Empty(t, masked.Profiles)
}

func TestConfigShow_MasksToken(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {
				Host:   "https://gitlab.example.com",
				Token:  "glpat-AbCdEfGh123456",
				Output: "table",
			},
		},
	}))

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"config", "show"})
	restore := captureStdout(t)

	require.NoError(t, rootCmd.Execute())
	out := restore()

	assert.Contains(t, out, "current-profile: default")
	assert.Contains(t, out, "https://gitlab.example.com")
	assert.Contains(t, out, "glpa****3456")
	assert.NotContains(t, out, "glpat-AbCdEfGh123456")
}

func TestConfigShow_Reveal(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Token: "glpat-AbCdEfGh123456"},
		},
	}))

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"config", "show", "--reveal"})
	restore := captureStdout(t)

	require.NoError(t, rootCmd.Execute())
	out := restore()

	assert.Contains(t, out, "glpat-AbCdEfGh123456")
}

func TestConfigShow_NoConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"config", "show"})

	err := rootCmd.Execute()
	require.Error(t, err)
}

func TestConfigSetProfile_CreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"config", "set-profile", "--name", "work", "--host", "https://gitlab.example.com", "--token", "glpat-work"})
	restore := captureStdout(t)
	require.NoError(t, rootCmd.Execute())
	restore()

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	require.Contains(t, cfg.Profiles, "work")
	assert.Equal(t, "https://gitlab.example.com", cfg.Profiles["work"].Host)
	assert.Equal(t, "glpat-work", cfg.Profiles["work"].Token)

	// Updating one field leaves the others alone.
	rootCmd = newRootCmd()
	rootCmd.SetArgs([]string{"config", "set-profile", "--name", "work", "--output", "json"})
	restore = captureStdout(t)
	require.NoError(t, rootCmd.Execute())
	restore()

	cfg, err = LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.com", cfg.Profiles["work"].Host)
	assert.Equal(t, "glpat-work", cfg.Profiles["work"].Token)
	assert.Equal(t, "json", cfg.Profiles["work"].Output)
}

func TestConfigSetProfile_RejectsBadOutput(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"config", "set-profile", "--name", "work", "--output", "yaml"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestConfigUseProfile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {},
			"work":    {Host: "https://gitlab.example.com"},
		},
	}))

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"config", "use-profile", "work"})
	restore := captureStdout(t)
	require.NoError(t, rootCmd.Execute())
	out := restore()

	assert.Contains(t, out, `Active profile set to "work"`)

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "work", cfg.CurrentProfile)
}

func TestConfigUseProfile_Unknown(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles:       map[string]Profile{"default": {}},
	}))

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"config", "use-profile", "nope"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "nope" not found`)
}
