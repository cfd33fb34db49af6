package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "CAPTABLE"

type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type TraceConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type AppConfig struct {
	ServiceName string      `mapstructure:"service_name"`
	Version     string      `mapstructure:"version"`
	Env         string      `mapstructure:"env"`
	LogLevel    string      `mapstructure:"log_level"`
	MetricsPath string      `mapstructure:"metrics_path"`
	HTTP        HTTPConfig  `mapstructure:"http"`
	Trace       TraceConfig `mapstructure:"trace"`
}

// IsDev reports whether the process runs in a local or test environment.
func (c AppConfig) IsDev() bool {
	return c.Env == "dev" || c.Env == "test"
}

// New returns a viper instance with the shared defaults applied, the optional
// config file read and CAPTABLE_* environment overrides enabled. Services add
// their own defaults on top before unmarshalling.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = "config.yaml"
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return v, nil
}

func Load(path string) (*AppConfig, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "captable")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("trace.endpoint", "")
}

// SetConfigFile with an explicit path reports a missing file as a plain
// fs error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}
