// Package config loads server configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	Generation GenerationConfig `mapstructure:"generation"`
	Health     HealthConfig     `mapstructure:"health"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPClientConfig holds outbound HTTP client configuration.
type HTTPClientConfig struct {
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	KeepAlive           time.Duration `mapstructure:"keep_alive"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`
}

// ModalityConfig holds the per-modality selection variables consumed by the
// request resolver, plus the output directory for materialized artifacts.
type ModalityConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	OutputDir string `mapstructure:"output_dir"`
}

// GenerationConfig holds generation orchestration configuration.
type GenerationConfig struct {
	Image   ModalityConfig `mapstructure:"image"`
	Video   ModalityConfig `mapstructure:"video"`
	Model3D ModalityConfig `mapstructure:"model3d"`

	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxWait      time.Duration `mapstructure:"max_wait"`
}

// HealthConfig holds provider health monitor configuration.
type HealthConfig struct {
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	CircuitTimeout   time.Duration `mapstructure:"circuit_timeout"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/mediaforge")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	v.SetEnvPrefix("MEDIAFORGE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides layers the modality-specific environment variables and
// their legacy vendor-named fallbacks onto the loaded configuration. The
// precedence inside each field is: MEDIAFORGE_* variable, then legacy
// variable, then whatever the config file supplied.
func applyEnvOverrides(cfg *Config) {
	cfg.Generation.Image.Provider = firstNonEmpty(
		os.Getenv("MEDIAFORGE_IMAGE_PROVIDER"),
		os.Getenv("IMAGE_PROVIDER"),
		cfg.Generation.Image.Provider,
	)
	cfg.Generation.Image.Model = firstNonEmpty(
		os.Getenv("MEDIAFORGE_IMAGE_MODEL"),
		os.Getenv("IMAGE_MODEL"),
		cfg.Generation.Image.Model,
	)
	cfg.Generation.Image.APIKey = firstNonEmpty(
		os.Getenv("MEDIAFORGE_IMAGE_API_KEY"),
		os.Getenv("IMAGE_API_KEY"),
		cfg.Generation.Image.APIKey,
	)
	cfg.Generation.Image.OutputDir = firstNonEmpty(
		os.Getenv("MEDIAFORGE_IMAGE_OUTPUT_DIR"),
		os.Getenv("IMAGE_OUTPUT_DIR"),
		cfg.Generation.Image.OutputDir,
	)

	cfg.Generation.Video.Provider = firstNonEmpty(
		os.Getenv("MEDIAFORGE_VIDEO_PROVIDER"),
		os.Getenv("VIDEO_PROVIDER"),
		cfg.Generation.Video.Provider,
	)
	cfg.Generation.Video.Model = firstNonEmpty(
		os.Getenv("MEDIAFORGE_VIDEO_MODEL"),
		os.Getenv("VIDEO_MODEL"),
		cfg.Generation.Video.Model,
	)
	cfg.Generation.Video.APIKey = firstNonEmpty(
		os.Getenv("MEDIAFORGE_VIDEO_API_KEY"),
		os.Getenv("VIDEO_API_KEY"),
		cfg.Generation.Video.APIKey,
	)
	cfg.Generation.Video.OutputDir = firstNonEmpty(
		os.Getenv("MEDIAFORGE_VIDEO_OUTPUT_DIR"),
		os.Getenv("VIDEO_OUTPUT_DIR"),
		cfg.Generation.Video.OutputDir,
	)

	cfg.Generation.Model3D.Provider = firstNonEmpty(
		os.Getenv("MEDIAFORGE_MODEL3D_PROVIDER"),
		os.Getenv("MODEL_3D_PROVIDER"),
		cfg.Generation.Model3D.Provider,
	)
	cfg.Generation.Model3D.Model = firstNonEmpty(
		os.Getenv("MEDIAFORGE_MODEL3D_MODEL"),
		os.Getenv("MODEL_3D_MODEL"),
		cfg.Generation.Model3D.Model,
	)
	cfg.Generation.Model3D.APIKey = firstNonEmpty(
		os.Getenv("MEDIAFORGE_MODEL3D_API_KEY"),
		os.Getenv("MODEL_3D_API_KEY"),
		cfg.Generation.Model3D.APIKey,
	)
	cfg.Generation.Model3D.OutputDir = firstNonEmpty(
		os.Getenv("MEDIAFORGE_MODEL3D_OUTPUT_DIR"),
		os.Getenv("MODEL_3D_OUTPUT_DIR"),
		cfg.Generation.Model3D.OutputDir,
	)
}

// LegacyProviderKey returns the vendor-named API key variable for a provider
// id, kept for backward compatibility with pre-unified deployments.
func LegacyProviderKey(providerID string) string {
	switch providerID {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	case "kling":
		// Kling signs requests with an access/secret key pair.
		access := os.Getenv("KLING_ACCESS_KEY")
		secret := os.Getenv("KLING_SECRET_KEY")
		if access != "" && secret != "" {
			return access + "," + secret
		}
		return os.Getenv("KLING_API_KEY")
	case "meshy":
		return os.Getenv("MESHY_API_KEY")
	default:
		return ""
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("http_client.dial_timeout", 10*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 10)
	v.SetDefault("http_client.max_conns_per_host", 50)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.response_timeout", 120*time.Second)

	v.SetDefault("generation.image.output_dir", "data/images")
	v.SetDefault("generation.video.output_dir", "data/videos")
	v.SetDefault("generation.model3d.output_dir", "data/models")
	v.SetDefault("generation.poll_interval", 5*time.Second)
	v.SetDefault("generation.max_wait", 8*time.Minute)

	v.SetDefault("health.check_interval", 30*time.Second)
	v.SetDefault("health.failure_threshold", 5)
	v.SetDefault("health.circuit_timeout", 60*time.Second)
}
