package configloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Storage struct {
		Driver string `koanf:"driver"`
		File   struct {
			Dir string `koanf:"dir"`
		} `koanf:"file"`
	} `koanf:"storage"`
	Shutdown struct {
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"shutdown"`
}

func (c *testConfig) Validate() error {
	if c.Storage.Driver == "" {
		return errors.New("storage.driver is not configured")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_Load_Layering(t *testing.T) {
	yamlContent := "storage:\n  driver: file\n  file:\n    dir: ./data\nshutdown:\n  timeout: 5s\n"
	testCases := []struct {
		name           string
		yaml           string
		dotenv         string
		env            map[string]string
		expectedDriver string
		expectedDir    string
		expectedWait   time.Duration
		expectErr      bool
	}{
		{
			name:           "yaml only",
			yaml:           yamlContent,
			expectedDriver: "file",
			expectedDir:    "./data",
			expectedWait:   5 * time.Second,
		},
		{
			name:           "dotenv overrides yaml and ignores foreign keys",
			yaml:           yamlContent,
			dotenv:         "CATALOG_STORAGE_FILE_DIR=/var/lib/catalog\nOTHER_STORAGE_DRIVER=postgres\n",
			expectedDriver: "file",
			expectedDir:    "/var/lib/catalog",
			expectedWait:   5 * time.Second,
		},
		{
			name:           "process env has the highest priority",
			yaml:           yamlContent,
			dotenv:         "CATALOG_STORAGE_DRIVER=postgres\n",
			env:            map[string]string{"CATALOG_STORAGE_DRIVER": "mongo", "CATALOG_SHUTDOWN_TIMEOUT": "1m"},
			expectedDriver: "mongo",
			expectedDir:    "./data",
			expectedWait:   time.Minute,
		},
		{
			name:      "validation failure",
			yaml:      "shutdown:\n  timeout: 5s\n",
			expectErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			dir := t.TempDir()
			configFile := writeFile(t, dir, "config.yaml", tc.yaml)
			envFile := filepath.Join(dir, ".env")
			if tc.dotenv != "" {
				envFile = writeFile(t, dir, ".env", tc.dotenv)
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			// when
			cfg, err := Load[*testConfig]("catalog", WithConfigFile(configFile), WithEnvFile(envFile))

			// then
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedDriver, cfg.Storage.Driver)
			assert.Equal(t, tc.expectedDir, cfg.Storage.File.Dir)
			assert.Equal(t, tc.expectedWait, cfg.Shutdown.Timeout)
		})
	}
}
