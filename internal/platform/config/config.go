package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	App      AppConfig      `yaml:"app"`
}

// ServerConfig は gRPC サーバー (ヘルスチェック) に関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"GRPC_LISTEN_ADDR"`
}

// HTTPConfig は REST API サーバーに関する設定です。
type HTTPConfig struct {
	ListenAddr         string        `yaml:"listen_addr" env:"HTTP_LISTEN_ADDR"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
	AllowedOrigins     []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host" env:"DB_HOST"`
	Port               int           `yaml:"port" env:"DB_PORT"`
	User               string        `yaml:"user" env:"DB_USER"`
	Password           string        `yaml:"password" env:"DB_PASSWORD"`
	Name               string        `yaml:"name" env:"DB_NAME"`
	SSLMode            string        `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
	// ConnectRetries は起動時の接続リトライ回数です。
	ConnectRetries int `yaml:"connect_retries" env:"DB_CONNECT_RETRIES"`
}

// AuthConfig はトークン発行とパスワードハッシュに関する設定です。
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer          string        `yaml:"issuer" env:"JWT_ISSUER"`
	AccessTTL       time.Duration `yaml:"-"`
	RefreshTTL      time.Duration `yaml:"-"`
	AccessTTLRaw    string        `yaml:"access_ttl" env:"JWT_ACCESS_TTL"`
	RefreshTTLRaw   string        `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	AllowRoleSignup bool          `yaml:"allow_role_signup" env:"AUTH_ALLOW_ROLE_SIGNUP"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL"`
	Environment string `yaml:"environment" env:"LOG_ENVIRONMENT"`
}

// KafkaConfig はドメインイベント送出先の設定です。Brokers が空の場合は送出しません。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
}

// AppConfig はドメイン全体に関わる設定です。
type AppConfig struct {
	// TimeZone は「今日」を決める基準カレンダーのタイムゾーンです。
	TimeZone string         `yaml:"time_zone" env:"APP_TIME_ZONE"`
	Location *time.Location `yaml:"-"`
}

// LoadEnvFiles は存在する .env ファイルを環境変数に読み込みます。
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return 0, fmt.Errorf("config: load env files: %w", err)
	}
	return len(existing), nil
}

// Load は指定されたパスから設定ファイルを読み込み、環境変数で上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	steps := []func() error{
		c.HTTP.validateAndNormalize,
		c.Database.validateAndNormalize,
		c.Auth.validateAndNormalize,
		c.Log.validateAndNormalize,
		c.Kafka.validateAndNormalize,
		c.App.validateAndNormalize,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (h *HTTPConfig) validateAndNormalize() error {
	if h.ListenAddr == "" {
		h.ListenAddr = ":8080"
	}
	timeout, err := parseDurationAllowEmpty(h.ShutdownTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: http.shutdown_timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	h.ShutdownTimeout = timeout
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.ConnectRetries < 0 {
		return fmt.Errorf("config: database.connect_retries must not be negative")
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (a *AuthConfig) validateAndNormalize() error {
	if a.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret must be set")
	}
	if a.Issuer == "" {
		a.Issuer = "employee-management"
	}

	accessTTL, err := parseDurationAllowEmpty(a.AccessTTLRaw)
	if err != nil {
		return fmt.Errorf("config: auth.access_ttl: %w", err)
	}
	if accessTTL == 0 {
		accessTTL = time.Hour
	}
	a.AccessTTL = accessTTL

	refreshTTL, err := parseDurationAllowEmpty(a.RefreshTTLRaw)
	if err != nil {
		return fmt.Errorf("config: auth.refresh_ttl: %w", err)
	}
	if refreshTTL == 0 {
		refreshTTL = 24 * time.Hour
	}
	a.RefreshTTL = refreshTTL

	if a.RefreshTTL < a.AccessTTL {
		return fmt.Errorf("config: auth.refresh_ttl must not be shorter than auth.access_ttl")
	}
	if a.BcryptCost == 0 {
		a.BcryptCost = 10
	}
	if a.BcryptCost < 4 || a.BcryptCost > 31 {
		return fmt.Errorf("config: auth.bcrypt_cost must be between 4 and 31")
	}
	return nil
}

func (l *LogConfig) validateAndNormalize() error {
	if l.Level == "" {
		l.Level = "info"
	}
	switch l.Environment {
	case "":
		l.Environment = "development"
	case "development", "production":
	default:
		return fmt.Errorf("config: log.environment must be development or production, got %q", l.Environment)
	}
	return nil
}

func (k *KafkaConfig) validateAndNormalize() error {
	brokers := make([]string, 0, len(k.Brokers))
	for _, b := range k.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	k.Brokers = brokers
	if len(k.Brokers) > 0 && k.Topic == "" {
		return errors.New("config: kafka.topic must be set when brokers are configured")
	}
	return nil
}

// Enabled はイベント送出が有効かを返します。
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

func (a *AppConfig) validateAndNormalize() error {
	if a.TimeZone == "" {
		a.TimeZone = "UTC"
	}
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return fmt.Errorf("config: app.time_zone: %w", err)
	}
	a.Location = loc
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
