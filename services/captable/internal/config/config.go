package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	base "github.com/AfshinJalili/captable/libs/config"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type DBConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
	Migrate  bool
}

// DSN renders the pgx connection URL.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

type BootstrapConfig struct {
	Enabled       bool
	AdminEmail    string
	AdminPassword string
}

type CompanyConfig struct {
	Name     string
	Address  string
	Email    string
	Website  string
	Currency string
}

type CertificateConfig struct {
	Format      string
	MaxAttempts int
}

type KafkaConfig struct {
	Brokers  []string
	ClientID string
	Topic    string
	DLQTopic string
}

type AuditConfig struct {
	Timeout time.Duration
	Kafka   KafkaConfig
}

type RateLimitRedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type RateLimitConfig struct {
	LoginLimit int
	Window     time.Duration
	Redis      RateLimitRedisConfig
}

type Config struct {
	App            base.AppConfig
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration
	Argon2         Argon2Params
	DB             DBConfig
	Bootstrap      BootstrapConfig
	Company        CompanyConfig
	Certificate    CertificateConfig
	Audit          AuditConfig
	RateLimit      RateLimitConfig
}

// Load reads the shared app settings plus the captable keys. Every key can be
// overridden with CAPTABLE_<KEY> (dots become underscores); database settings
// also honour the POSTGRES_* variables used by the compose files.
func Load(path string) (*Config, error) {
	v, err := base.New(path)
	if err != nil {
		return nil, err
	}
	setDefaults(v)
	bindLegacyEnv(v)

	var app base.AppConfig
	if err := v.Unmarshal(&app); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg := &Config{
		App:            app,
		JWTSecret:      v.GetString("jwt.secret"),
		JWTIssuer:      v.GetString("jwt.issuer"),
		AccessTokenTTL: v.GetDuration("jwt.access_token_ttl"),
		Argon2: Argon2Params{
			Memory:      v.GetUint32("argon2.memory"),
			Iterations:  v.GetUint32("argon2.iterations"),
			Parallelism: uint8(v.GetUint("argon2.parallelism")),
			SaltLength:  v.GetUint32("argon2.salt_length"),
			KeyLength:   v.GetUint32("argon2.key_length"),
		},
		DB: DBConfig{
			Driver:   strings.ToLower(v.GetString("db.driver")),
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			Name:     v.GetString("db.name"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			SSLMode:  v.GetString("db.sslmode"),
			MaxConns: v.GetInt32("db.max_conns"),
			Migrate:  v.GetBool("db.migrate"),
		},
		Bootstrap: BootstrapConfig{
			Enabled:       v.GetBool("bootstrap.enabled"),
			AdminEmail:    v.GetString("bootstrap.admin_email"),
			AdminPassword: v.GetString("bootstrap.admin_password"),
		},
		Company: CompanyConfig{
			Name:     v.GetString("company.name"),
			Address:  v.GetString("company.address"),
			Email:    v.GetString("company.email"),
			Website:  v.GetString("company.website"),
			Currency: strings.ToUpper(v.GetString("company.currency")),
		},
		Certificate: CertificateConfig{
			Format:      strings.ToLower(v.GetString("certificate.format")),
			MaxAttempts: v.GetInt("certificate.max_attempts"),
		},
		Audit: AuditConfig{
			Timeout: v.GetDuration("audit.timeout"),
			Kafka: KafkaConfig{
				Brokers:  splitList(v.GetStringSlice("audit.kafka.brokers")),
				ClientID: v.GetString("audit.kafka.client_id"),
				Topic:    v.GetString("audit.kafka.topic"),
				DLQTopic: v.GetString("audit.kafka.dlq_topic"),
			},
		},
		RateLimit: RateLimitConfig{
			LoginLimit: v.GetInt("rate_limit.login_limit"),
			Window:     v.GetDuration("rate_limit.window"),
			Redis: RateLimitRedisConfig{
				Addr:     v.GetString("rate_limit.redis.addr"),
				Password: v.GetString("rate_limit.redis.password"),
				DB:       v.GetInt("rate_limit.redis.db"),
				Prefix:   v.GetString("rate_limit.redis.prefix"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("CAPTABLE_JWT_SECRET must be set")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("jwt.access_token_ttl must be positive")
	}
	switch c.DB.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	switch c.Certificate.Format {
	case "pdf", "html":
	default:
		return fmt.Errorf("unsupported certificate.format %q", c.Certificate.Format)
	}
	if c.Certificate.MaxAttempts < 1 {
		return fmt.Errorf("certificate.max_attempts must be at least 1")
	}
	if c.RateLimit.LoginLimit < 1 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.login_limit and rate_limit.window must be positive")
	}
	if c.Bootstrap.Enabled && (c.Bootstrap.AdminEmail == "" || c.Bootstrap.AdminPassword == "") {
		return fmt.Errorf("bootstrap admin email and password are required when bootstrap is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "captable")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "captable")
	v.SetDefault("jwt.access_token_ttl", "30m")

	v.SetDefault("argon2.memory", 64*1024)
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 2)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "captable")
	v.SetDefault("db.user", "captable")
	v.SetDefault("db.password", "captable")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.migrate", true)

	v.SetDefault("bootstrap.enabled", true)
	v.SetDefault("bootstrap.admin_email", "admin@company.com")
	v.SetDefault("bootstrap.admin_password", "admin123")

	v.SetDefault("company.name", "Your Company Inc.")
	v.SetDefault("company.address", "123 Business St, City, State 12345")
	v.SetDefault("company.email", "info@company.com")
	v.SetDefault("company.website", "www.company.com")
	v.SetDefault("company.currency", "USD")

	v.SetDefault("certificate.format", "pdf")
	v.SetDefault("certificate.max_attempts", 3)

	v.SetDefault("audit.timeout", "3s")
	v.SetDefault("audit.kafka.brokers", []string{})
	v.SetDefault("audit.kafka.client_id", "captable")
	v.SetDefault("audit.kafka.topic", "captable.audit.v1")
	v.SetDefault("audit.kafka.dlq_topic", "captable.audit.dlq")

	v.SetDefault("rate_limit.login_limit", 10)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.redis.addr", "")
	v.SetDefault("rate_limit.redis.password", "")
	v.SetDefault("rate_limit.redis.db", 0)
	v.SetDefault("rate_limit.redis.prefix", "captable:login:rl:")
}

func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("db.host", "CAPTABLE_DB_HOST", "POSTGRES_HOST")
	_ = v.BindEnv("db.port", "CAPTABLE_DB_PORT", "POSTGRES_PORT")
	_ = v.BindEnv("db.name", "CAPTABLE_DB_NAME", "POSTGRES_DB")
	_ = v.BindEnv("db.user", "CAPTABLE_DB_USER", "POSTGRES_USER")
	_ = v.BindEnv("db.password", "CAPTABLE_DB_PASSWORD", "POSTGRES_PASSWORD")
	_ = v.BindEnv("db.sslmode", "CAPTABLE_DB_SSLMODE", "POSTGRES_SSLMODE")
}

// Env lists arrive as a single comma separated string.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
