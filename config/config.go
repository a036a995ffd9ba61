package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application, divided into
// partial configurations per concern.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type AppConfig struct {
	Name       string `mapstructure:"name" default:"aster"`
	LogLevel   string `mapstructure:"log_level" default:"info"`
	PrettyLogs bool   `mapstructure:"pretty_logs" default:"false"`
	// Source is recorded on every change log entry.
	Source string `mapstructure:"source" default:"catalog_sync"`
}

type DatabaseConfig struct {
	Driver                string        `mapstructure:"driver" default:"postgres"`
	Host                  string        `mapstructure:"host" default:"localhost"`
	Port                  string        `mapstructure:"port" default:"5432"`
	UserName              string        `mapstructure:"user_name" default:""`
	Password              string        `mapstructure:"password" default:""`
	Name                  string        `mapstructure:"name" default:"aster"`
	SSLMode               string        `mapstructure:"ssl_mode" default:"disable"`
	MaxOpenConns          int           `mapstructure:"max_open_conns" default:"25"`
	MaxIdleConns          int           `mapstructure:"max_idle_conns" default:"10"`
	ConnMaxLifetime       time.Duration `mapstructure:"conn_max_lifetime" default:"10s"`
	MigrationFolderPath   string        `mapstructure:"migration_folder_path" default:"db/pg"`
	MigrationVersion      uint          `mapstructure:"migration_version" default:"0"`
	MigrationForce        int           `mapstructure:"migration_force" default:"0"`
	MigrationAutoRollback bool          `mapstructure:"migration_auto_rollback" default:"true"`
}

type KafkaConfig struct {
	Enabled        bool     `mapstructure:"enabled" default:"false"`
	Brokers        []string `mapstructure:"brokers" default:"localhost:9092"`
	OutputTopic    string   `mapstructure:"output_topic" default:"title-events"`
	BatchSize      int      `mapstructure:"batch_size" default:"100"`
	BatchTimeoutMS int      `mapstructure:"batch_timeout_ms" default:"100"`
	RequiredAcks   int      `mapstructure:"required_acks" default:"1"`
	Compression    string   `mapstructure:"compression" default:"snappy"`
}

type TracingConfig struct {
	Exporter     string `mapstructure:"exporter" default:"console"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" default:"localhost:4317"`
	OTLPProtocol string `mapstructure:"otlp_protocol" default:"grpc"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure" default:"true"`
}

// Load loads configuration from environment variables and an optional
// .env file (e.g. DATABASE_HOST -> database.host).
func Load(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." || path == "" {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	bindValues(v, Config{}, "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues iterates over the struct and registers default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set the default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
