package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the OCRFlow annotator.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Worker    WorkerConfig
	Storage   StorageConfig
	Annotator AnnotatorConfig
	Notifier  NotifierConfig
	Kafka     KafkaConfig
	PubSub    PubSubConfig
	NATS      NATSConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"ocrflow-annotator"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogEncoding string `env:"APP_LOG_ENCODING" envDefault:"json"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	PushPath     string        `env:"HTTP_PUSH_PATH" envDefault:"/api/v1/events"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"540s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	MaxBodyBytes int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"10485760"`
}

// WorkerConfig holds the pipeline driver settings.
type WorkerConfig struct {
	WorkDir           string `env:"WORKER_WORK_DIR" envDefault:""`
	SuccessStatusCode int    `env:"WORKER_SUCCESS_STATUS_CODE" envDefault:"200"`
	DefaultTopic      string `env:"WORKER_DEFAULT_TOPIC" envDefault:""`
}

type StorageConfig struct {
	Provider        string `env:"STORAGE_PROVIDER" envDefault:"gcs"`
	Endpoint        string `env:"STORAGE_ENDPOINT"`
	Region          string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	AccessKey       string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey       string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL          bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
	CredentialsFile string `env:"STORAGE_CREDENTIALS_FILE"`
}

type AnnotatorConfig struct {
	Engine                string        `env:"ANNOTATOR_ENGINE" envDefault:"vision"`
	VisionCredentialsFile string        `env:"VISION_CREDENTIALS_FILE"`
	VisionEndpoint        string        `env:"VISION_ENDPOINT"`
	APIURL                string        `env:"OCR_API_URL"`
	DocumentType          string        `env:"OCR_API_DOCUMENT_TYPE" envDefault:"inv_stm"`
	DocumentCode          string        `env:"OCR_API_DOCUMENT_CODE"`
	APITimeout            time.Duration `env:"OCR_API_TIMEOUT" envDefault:"120s"`
	TesseractLanguages    []string      `env:"TESSERACT_LANGUAGES" envSeparator:"," envDefault:"eng"`
}

type NotifierConfig struct {
	Provider string `env:"NOTIFIER_PROVIDER" envDefault:"pubsub"`
}

type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"1"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"10ms"`
	InboundTopic     string        `env:"KAFKA_INBOUND_TOPIC"`
	ConsumerGroup    string        `env:"KAFKA_CONSUMER_GROUP" envDefault:"ocrflow-annotator"`
}

type PubSubConfig struct {
	ProjectID       string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile string `env:"PUBSUB_CREDENTIALS_FILE"`
}

type NATSConfig struct {
	URL            string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	ConnectTimeout time.Duration `env:"NATS_CONNECT_TIMEOUT" envDefault:"10s"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=ocrflow"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
