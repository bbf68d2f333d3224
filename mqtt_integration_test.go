package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/kwv/beaconmesh/mesh"
)

// TestMQTTServiceRoundTrip sends a report to a live broker and waits for the
// service to publish the solved summary
func TestMQTTServiceRoundTrip(t *testing.T) {
	// Skip if not running integration tests
	if os.Getenv("RUN_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test (set RUN_INTEGRATION_TESTS=1 to run)")
	}
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}

	dir := t.TempDir()
	configYAML := `mqtt:
  broker: "` + broker + `"
  publishPrefix: "beaconmesh-test"
  clientId: "beaconmesh-test"
  reportTopic: "beaconmesh-test/reports"
`
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0644))

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:       configPath,
		InputFile:        filepath.Join(dir, "none.txt"),
		CalibrationCache: filepath.Join(dir, "calibration.json"),
		Reference:        -1,
		HttpPort:         0,
		MqttMode:         true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- app.RunService(ctx, &bytes.Buffer{}) }()

	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("beaconmesh-test-probe")
	probe := mqtt.NewClient(opts)
	token := probe.Connect()
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())
	defer probe.Disconnect(250)

	summaries := make(chan mesh.SummaryMessage, 4)
	token = probe.Subscribe("beaconmesh-test/summary", 1, func(_ mqtt.Client, msg mqtt.Message) {
		var s mesh.SummaryMessage
		if json.Unmarshal(msg.Payload(), &s) == nil {
			summaries <- s
		}
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	report, err := os.ReadFile(fixtureReports)
	require.NoError(t, err)

	// the service subscribes asynchronously; resend until a fresh run shows up
	deadline := time.After(30 * time.Second)
	resend := time.NewTicker(2 * time.Second)
	defer resend.Stop()
	probe.Publish("beaconmesh-test/reports", 1, false, report)
	for {
		select {
		case s := <-summaries:
			if s.UniqueBeacons == 79 && s.MaxScannerDistance == 3621 && s.RunID == app.StateTracker.Status().RunID {
				cancel()
				require.NoError(t, <-errCh)
				return
			}
		case <-resend.C:
			probe.Publish("beaconmesh-test/reports", 1, false, report)
		case <-deadline:
			t.Fatal("no summary published within 30s")
		}
	}
}
