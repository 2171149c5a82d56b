package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fitcoach-backend/internal/pipeline"
)

type Config struct {
	// HTTP
	HTTPAddr string

	// MQTT Configuration
	MQTTEnabled  bool
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// MQTT topics
	MQTTTopicAccel   string
	MQTTTopicGyro    string
	MQTTTopicControl string
	MQTTTopicRep     string
	MQTTTopicSamples string

	// ClickHouse Configuration
	ClickHouseEnabled bool
	ClickHouseAddr    string
	ClickHouseDB      string
	ClickHouseUser    string
	ClickHousePass    string

	// Model and training data
	ModelPath string
	DataDir   string

	// Segmentation shared by training and every inference path
	PipelineConfig string
	Pipeline       pipeline.Params

	// Live sessions
	SessionTimeout time.Duration
}

// Load reads .env (if present), the optional pipeline YAML file and the
// environment. Environment variables win over the YAML file.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),

		MQTTEnabled:  getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "fitcoach-backend"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		MQTTTopicAccel:   getEnv("MQTT_TOPIC_ACCEL", "fitcoach/+/accelerometer"),
		MQTTTopicGyro:    getEnv("MQTT_TOPIC_GYRO", "fitcoach/+/gyroscope"),
		MQTTTopicControl: getEnv("MQTT_TOPIC_CONTROL", "fitcoach/+/control"),
		MQTTTopicRep:     getEnv("MQTT_TOPIC_REP", "fitcoach/{device_id}/rep"),
		MQTTTopicSamples: getEnv("MQTT_TOPIC_SAMPLES", "fitcoach/{device_id}/{sensor}"),

		ClickHouseEnabled: getEnvBool("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:    getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:      getEnv("CLICKHOUSE_DB", "fitcoach"),
		ClickHouseUser:    getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass:    getEnv("CLICKHOUSE_PASS", ""),

		ModelPath: getEnv("MODEL_PATH", "models/bicep_model.json"),
		DataDir:   getEnv("DATA_DIR", "data"),

		PipelineConfig: getEnv("PIPELINE_CONFIG", ""),
		SessionTimeout: time.Duration(getEnvFloat("SESSION_TIMEOUT_SECONDS", 120) * float64(time.Second)),
	}

	params := pipeline.DefaultParams()
	if cfg.PipelineConfig != "" {
		var err error
		params, err = LoadPipelineParams(cfg.PipelineConfig)
		if err != nil {
			return nil, err
		}
	}
	params.ResampleDT = getEnvFloat("RESAMPLE_DT", params.ResampleDT)
	params.WindowSeconds = getEnvFloat("WINDOW_SECONDS", params.WindowSeconds)
	params.StepSeconds = getEnvFloat("STEP_SECONDS", params.StepSeconds)

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	cfg.Pipeline = params

	return cfg, nil
}

// LoadPipelineParams reads segmentation parameters from a YAML file. Keys
// missing from the file keep their defaults.
func LoadPipelineParams(path string) (pipeline.Params, error) {
	params := pipeline.DefaultParams()

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("failed to read pipeline config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("failed to parse pipeline config %s: %w", path, err)
	}

	log.Printf("Config: pipeline parameters from %s (resample_dt=%v, window=%vs, step=%vs)",
		path, params.ResampleDT, params.WindowSeconds, params.StepSeconds)
	return params, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}
