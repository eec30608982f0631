package params

import (
	"os"
	"time"
)

// InfluxConfig addresses an InfluxDB v2 bucket for trip snapshots.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string

	// Precision is the timestamp precision of written points.
	Precision time.Duration
}

func DefaultInfluxConfig() *InfluxConfig {
	return &InfluxConfig{
		URL:         envOr("TRIPD_INFLUXDB_URL", "http://localhost:8086"),
		Token:       os.Getenv("TRIPD_INFLUXDB_TOKEN"),
		Org:         envOr("TRIPD_INFLUXDB_ORG", "tripd"),
		Bucket:      envOr("TRIPD_INFLUXDB_BUCKET", "tripd"),
		Measurement: "trip",
		Precision:   time.Second,
	}
}

// MQTTConfig addresses the broker snapshots are published to.
// Snapshots go to <TopicPrefix>/snapshot.
type MQTTConfig struct {
	Broker      string
	Port        int
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retain      bool

	ConnectTimeout time.Duration
	// PublishTimeout bounds the wait for a broker acknowledgement.
	PublishTimeout time.Duration
}

func DefaultMQTTConfig() *MQTTConfig {
	return &MQTTConfig{
		Broker:         envOr("TRIPD_MQTT_BROKER", "localhost"),
		Port:           1883,
		ClientID:       "tripd",
		Username:       os.Getenv("TRIPD_MQTT_USERNAME"),
		Password:       os.Getenv("TRIPD_MQTT_PASSWORD"),
		TopicPrefix:    "tripd",
		QoS:            1,
		Retain:         true,
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
