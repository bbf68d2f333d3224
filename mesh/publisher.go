package mesh

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kwv/beaconmesh/logger"
)

// ErrNotConnected is returned when publishing without a broker connection
var ErrNotConnected = errors.New("MQTT client not connected")

// SummaryMessage is published to <prefix>/summary
type SummaryMessage struct {
	RunID              string `json:"runId"`
	Reference          int    `json:"reference"`
	UniqueBeacons      int    `json:"uniqueBeacons"`
	MaxScannerDistance int    `json:"maxScannerDistance"`
	Scanners           int    `json:"scanners"`
	Timestamp          int64  `json:"timestamp"`
}

// ScannerMessage is published to <prefix>/scanners/<id>
type ScannerMessage struct {
	RunID       string   `json:"runId"`
	ID          int      `json:"id"`
	Position    Vector3  `json:"position"`
	BeaconCount int      `json:"beaconCount"`
	Isometry    Isometry `json:"isometry"` // flattened chain into the reference frame
	Hops        int      `json:"hops"`
	Timestamp   int64    `json:"timestamp"`
}

// Publisher publishes registration results to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	last          *SummaryMessage
	mu            sync.RWMutex
}

// NewPublisher creates a result publisher. An empty prefix uses MQTT_PUBLISH_PREFIX
// or "beaconmesh".
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = envOr("MQTT_PUBLISH_PREFIX", "beaconmesh")
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,    // results are infrequent; deliver at least once
		retain:        true, // late subscribers get the latest result
	}
}

// PublishResult publishes the summary followed by one message per scanner
func (p *Publisher) PublishResult(result *Result) error {
	if p.client == nil || !p.client.IsConnected() {
		return ErrNotConnected
	}
	if result == nil {
		return fmt.Errorf("no result to publish")
	}

	now := time.Now().Unix()
	summary := &SummaryMessage{
		RunID:              result.RunID,
		Reference:          result.Reference,
		UniqueBeacons:      result.UniqueBeacons,
		MaxScannerDistance: result.MaxScannerDistance,
		Scanners:           len(result.Scanners),
		Timestamp:          now,
	}

	if err := p.publish(p.SummaryTopic(), summary); err != nil {
		return err
	}

	for _, s := range result.Scanners {
		msg := ScannerMessage{
			RunID:       result.RunID,
			ID:          s.ID,
			Position:    s.Position,
			BeaconCount: s.BeaconCount,
			Isometry:    s.Chain.Flatten(),
			Hops:        s.Chain.Len(),
			Timestamp:   now,
		}
		if err := p.publish(p.ScannerTopic(s.ID), msg); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.last = summary
	p.mu.Unlock()

	logger.Infof("[MQTT] published run %s: %d beacons, %d scanners",
		result.RunID, result.UniqueBeacons, len(result.Scanners))
	return nil
}

func (p *Publisher) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// SummaryTopic returns the topic carrying the run summary
func (p *Publisher) SummaryTopic() string {
	return p.publishPrefix + "/summary"
}

// ScannerTopic returns the topic carrying one scanner's registration
func (p *Publisher) ScannerTopic(id int) string {
	return fmt.Sprintf("%s/scanners/%d", p.publishPrefix, id)
}

// LastPublished returns the last summary published successfully
func (p *Publisher) LastPublished() (SummaryMessage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return SummaryMessage{}, false
	}
	return *p.last, true
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
