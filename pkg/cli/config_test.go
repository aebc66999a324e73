package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfig_ActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {
				Host:   "https://gitlab.com",
				Token:  "glpat-default",
				Output: "table",
			},
			"work": {
				Host:   "https://gitlab.example.com",
				Token:  "glpat-work",
				Output: "json",
			},
		},
	}

	tests := []struct {
		name     string
		override string
		wantHost string
		wantErr  string
	}{
		{
			name:     "uses current profile",
			override: "",
			wantHost: "https://gitlab.com",
		},
		{
			name:     "override to work",
			override: "work",
			wantHost: "https://gitlab.example.com",
		},
		{
			name:     "nonexistent override is an error",
			override: "nonexistent",
			wantErr:  `profile "nonexistent" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := cfg.ActiveProfile(tt.override)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, p.Host)
		})
	}
}

func TestUserConfig_ActiveProfile_MissingCurrentIsEmpty(t *testing.T) {
	// A dangling current-profile is tolerated; only an explicit override
	// must exist.
	cfg := &UserConfig{CurrentProfile: "gone", Profiles: map[string]Profile{}}

	p, err := cfg.ActiveProfile("")
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)
}

func TestLoadSaveUserConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg := &UserConfig{
		CurrentProfile: "test",
		Profiles: map[string]Profile{
			"test": {
				Host:  "http://gitlab.test:8080",
				Token: "glpat-test",
			},
		},
	}
	err := SaveUserConfig(cfg)
	require.NoError(t, err)

	configPath := filepath.Join(dir, ".glwalk", "config.yaml")
	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "config holds a token and must not be world-readable")

	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", loaded.CurrentProfile)
	require.Contains(t, loaded.Profiles, "test")
	assert.Equal(t, "http://gitlab.test:8080", loaded.Profiles["test"].Host)
	assert.Equal(t, "glpat-test", loaded.Profiles["test"].Token)
}

func TestLoadUserConfig_NotFound(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	_, err := LoadUserConfig()
	require.Error(t, err)
}
