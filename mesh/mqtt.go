package mesh

import (
	"bytes"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kwv/beaconmesh/logger"
)

// ReportHandler is called when a scanner report arrives on the report topic.
// err is set when the payload could not be parsed.
type ReportHandler func(reports map[int][]Vector3, err error)

// MQTTClient manages the broker connection used to publish results and,
// when a report topic is configured, to receive new scanner reports
type MQTTClient struct {
	client        mqtt.Client
	config        *Config
	reportHandler ReportHandler
	isConnected   bool
	stop          chan struct{}
	stopOnce      sync.Once
	mu            sync.RWMutex
}

// envOr returns the environment variable key, or fallback when it is unset
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ResolveMQTTConfig applies MQTT_* environment overrides to the configured settings
func ResolveMQTTConfig(config *Config) MQTTConfig {
	var cfg MQTTConfig
	if config != nil {
		cfg = config.MQTT
	}
	cfg.Broker = envOr("MQTT_BROKER", cfg.Broker)
	cfg.ClientID = envOr("MQTT_CLIENT_ID", cfg.ClientID)
	cfg.Username = envOr("MQTT_USERNAME", cfg.Username)
	cfg.Password = envOr("MQTT_PASSWORD", cfg.Password)
	cfg.PublishPrefix = envOr("MQTT_PUBLISH_PREFIX", cfg.PublishPrefix)
	cfg.ReportTopic = envOr("MQTT_REPORT_TOPIC", cfg.ReportTopic)

	if cfg.ClientID == "" {
		cfg.ClientID = "beaconmesh"
	}
	if cfg.PublishPrefix == "" {
		cfg.PublishPrefix = "beaconmesh"
	}
	return cfg
}

// InitMQTT creates the MQTT client and starts connecting in the background.
// If no broker is configured, MQTT is disabled and this returns nil.
func InitMQTT(config *Config, handler ReportHandler) (*MQTTClient, error) {
	cfg := ResolveMQTTConfig(config)
	if cfg.Broker == "" {
		logger.Infof("[MQTT] disabled: MQTT_BROKER not set")
		return nil, nil
	}
	if config == nil {
		config = DefaultConfig()
	}
	config.MQTT = cfg

	client := &MQTTClient{
		config:        config,
		reportHandler: handler,
		stop:          make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // keep the report subscription across reconnects
	opts.SetOrderMatters(true)  // reports must be solved in arrival order

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()
	return client, nil
}

// connectWithRetry connects to the broker with exponential backoff until it
// succeeds or the client is disconnected
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		logger.Infof("[MQTT] connecting to broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				logger.Infof("[MQTT] connected to broker")
				c.setConnected(true)
				return
			}
			logger.Warnf("[MQTT] connection failed: %v", token.Error())
		} else {
			logger.Warnf("[MQTT] connection timeout")
		}

		logger.Infof("[MQTT] retrying connection in %v", retryDelay)
		select {
		case <-c.stop:
			return
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to the report topic, if any
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	topic := c.config.MQTT.ReportTopic
	if topic == "" {
		logger.Infof("[MQTT] connected, publishing only")
		return
	}

	logger.Infof("[MQTT] subscribing to %s", topic)
	token := client.Subscribe(topic, 1, c.createReportHandler())
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		logger.Errorf("[MQTT] error subscribing to %s: %v", topic, token.Error())
		return
	}
	logger.Infof("[MQTT] subscribed to %s", topic)
}

// onConnectionLost is called when the connection drops; auto-reconnect retries
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	logger.Warnf("[MQTT] connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	logger.Infof("[MQTT] reconnecting...")
}

// createReportHandler parses report payloads and hands them to the report handler
func (c *MQTTClient) createReportHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		logger.Infof("[MQTT] received report (topic: %s, size: %d bytes)", msg.Topic(), len(payload))

		reports, err := ParseReport(bytes.NewReader(payload))
		if err != nil {
			logger.Errorf("[MQTT] invalid report on %s: %v", msg.Topic(), err)
		}
		if c.reportHandler != nil {
			c.reportHandler(reports, err)
		}
	}
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect stops reconnect attempts and closes the connection
func (c *MQTTClient) Disconnect() {
	c.stopOnce.Do(func() {
		if c.stop != nil {
			close(c.stop)
		}
	})
	if c.client != nil && c.client.IsConnected() {
		logger.Infof("[MQTT] disconnecting from broker...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// PublishPrefix returns the resolved topic prefix
func (c *MQTTClient) PublishPrefix() string {
	return c.config.MQTT.PublishPrefix
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock creates an MQTTClient around a provided mqtt.Client
func newMQTTClientWithMock(client mqtt.Client, config *Config, handler ReportHandler) *MQTTClient {
	if config == nil {
		config = DefaultConfig()
	}
	return &MQTTClient{
		client:        client,
		config:        config,
		reportHandler: handler,
		stop:          make(chan struct{}),
	}
}
