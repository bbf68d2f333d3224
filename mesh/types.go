package mesh

// ScannerConfig holds per-scanner presentation settings
type ScannerConfig struct {
	ID    int    `yaml:"id" json:"id"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"` // "#RRGGBB"
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// RenderConfig controls the top-down renderers
type RenderConfig struct {
	Scale       float64 `yaml:"scale,omitempty" json:"scale,omitempty"`             // output units per beacon unit
	PointRadius float64 `yaml:"pointRadius,omitempty" json:"pointRadius,omitempty"` // beacon marker radius in output units
	Resolution  float64 `yaml:"resolution,omitempty" json:"resolution,omitempty"`   // DPI for vector PNG output
	Padding     float64 `yaml:"padding,omitempty" json:"padding,omitempty"`         // in beacon units
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ReportTopic   string `yaml:"reportTopic,omitempty" json:"reportTopic,omitempty"` // reports received here are re-solved
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	Registration RegistrationOptions `yaml:"registration" json:"registration"`
	MQTT         MQTTConfig          `yaml:"mqtt" json:"mqtt"`
	Render       RenderConfig        `yaml:"render,omitempty" json:"render,omitempty"`
	Scanners     []ScannerConfig     `yaml:"scanners,omitempty" json:"scanners,omitempty"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Registration: DefaultRegistrationOptions(),
		MQTT: MQTTConfig{
			PublishPrefix: "beaconmesh",
			ClientID:      "beaconmesh",
		},
		Render: DefaultRenderConfig(),
	}
}

// DefaultRenderConfig returns the renderer defaults
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Scale:       0.2,
		PointRadius: 2,
		Resolution:  150,
		Padding:     200,
	}
}

// GetScannerByID returns the scanner config for the given ID
func (c *Config) GetScannerByID(id int) *ScannerConfig {
	for i := range c.Scanners {
		if c.Scanners[i].ID == id {
			return &c.Scanners[i]
		}
	}
	return nil
}

// ScannerCalibration stores one scanner's resolved chain alongside the data it was computed from
type ScannerCalibration struct {
	Chain       Chain  `json:"chain"`
	BeaconCount int    `json:"beaconCount"`
	Checksum    string `json:"checksum"`
	LastUpdated int64  `json:"lastUpdated"`
}

// CalibrationData stores the resolved transform chains of a registration run
type CalibrationData struct {
	RunID            string                     `json:"runId"`
	ReferenceScanner int                        `json:"referenceScanner"`
	Scanners         map[int]ScannerCalibration `json:"scanners"`
	LastUpdated      int64                      `json:"lastUpdated"`
}
