package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
registration:
  reference: 2
  corroboration: 3
  minOverlap: 10
  workers: 4
mqtt:
  broker: tcp://localhost:1883
  publishPrefix: lab
  reportTopic: lab/reports
scanners:
  - id: 0
    color: "#FF0000"
    label: dock
  - id: 2
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, config.Registration.Reference)
	assert.Equal(t, 3, config.Registration.Match.Corroboration)
	assert.Equal(t, 10, config.Registration.Match.MinOverlap)
	assert.Equal(t, 4, config.Registration.Workers)
	assert.Equal(t, "tcp://localhost:1883", config.MQTT.Broker)
	assert.Equal(t, "lab", config.MQTT.PublishPrefix)
	assert.Equal(t, "lab/reports", config.MQTT.ReportTopic)
	// unset fields keep their defaults
	assert.Equal(t, "beaconmesh", config.MQTT.ClientID)
	assert.Equal(t, DefaultRenderConfig(), config.Render)

	require.Len(t, config.Scanners, 2)
	assert.Equal(t, "dock", config.GetScannerByID(0).Label)
	assert.NotNil(t, config.GetScannerByID(2))
	assert.Nil(t, config.GetScannerByID(1))
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"corroboration", "registration:\n  corroboration: 1\n", "corroboration"},
		{"min overlap", "registration:\n  minOverlap: -1\n", "minOverlap"},
		{"max passes", "registration:\n  maxPasses: -2\n", "maxPasses"},
		{"workers", "registration:\n  workers: -1\n", "workers"},
		{"duplicate scanner", "scanners:\n  - id: 1\n  - id: 1\n", "duplicate"},
		{"bad color", "scanners:\n  - id: 1\n    color: red\n", "color"},
		{"negative render", "render:\n  scale: -1\n", "render"},
		{"bad yaml", "registration: [\n", "YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadConfigOrDefault(t *testing.T) {
	config, err := LoadConfigOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)

	config, err = LoadConfigOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMatchOptions(), config.Registration.Match)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "not found")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	config := DefaultConfig()
	config.Registration.Reference = 3
	config.Scanners = []ScannerConfig{{ID: 3, Color: "#00FF00"}}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveConfig(path, config))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}
