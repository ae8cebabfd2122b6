// Package config provides configuration loading for the indicator deployer.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Bidon15/indicator-deployer/internal/indicator"
)

// EnvPrefix prefixes every environment override, e.g. INDICATOR_NETWORK_RPC_URL.
const EnvPrefix = "INDICATOR"

// Signer modes.
const (
	SignerLocal  = "local"
	SignerAnvil  = "anvil"
	SignerRemote = "remote"
)

// Config holds all configuration for the deployer and the status server.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Network    NetworkConfig    `mapstructure:"network"`
	Signer     SignerConfig     `mapstructure:"signer"`
	Gas        GasConfig        `mapstructure:"gas"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts"`
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Server     ServerConfig     `mapstructure:"server"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// NetworkConfig identifies the target chain.
type NetworkConfig struct {
	Name           string        `mapstructure:"name"`
	RPCURL         string        `mapstructure:"rpc_url" validate:"required,url"`
	ChainID        int64         `mapstructure:"chain_id" validate:"gt=0"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

// SignerConfig selects how the deployer account signs.
type SignerConfig struct {
	Mode       string       `mapstructure:"mode" validate:"oneof=local anvil remote"`
	PrivateKey string       `mapstructure:"private_key"`
	AnvilIndex int          `mapstructure:"anvil_index" validate:"gte=0"`
	Remote     RemoteSigner `mapstructure:"remote"`
}

// RemoteSigner holds POPSigner-compatible JSON-RPC signer settings.
type RemoteSigner struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	Address    string `mapstructure:"address"`
	ClientCert string `mapstructure:"client_cert"`
	ClientKey  string `mapstructure:"client_key"`
	CACert     string `mapstructure:"ca_cert"`
}

// GasConfig tunes gas pricing of the creation transaction.
type GasConfig struct {
	PriceBoostPercent int64  `mapstructure:"price_boost_percent" validate:"gte=100"`
	MinPriceWei       int64  `mapstructure:"min_price_wei" validate:"gte=0"`
	FallbackLimit     uint64 `mapstructure:"fallback_limit"`
	MaxLimit          uint64 `mapstructure:"max_limit"`
}

// ArtifactsConfig locates compiled contract artifacts.
type ArtifactsConfig struct {
	Name            string `mapstructure:"name" validate:"required"`
	Dir             string `mapstructure:"dir"`
	ArchiveURL      string `mapstructure:"archive_url" validate:"omitempty,url"`
	ArchiveChecksum string `mapstructure:"archive_checksum" validate:"required_with=ArchiveURL"`
	RecordNetwork   bool   `mapstructure:"record_network"`
}

// DeploymentConfig is the constructor parameter bundle as configured.
type DeploymentConfig struct {
	Pool                 string   `mapstructure:"pool" validate:"required,eth_addr"`
	LongTermTimePeriods  []uint64 `mapstructure:"long_term_time_periods" validate:"required,min=1,dive,gt=0"`
	ShortTermTimePeriods []uint64 `mapstructure:"short_term_time_periods" validate:"required,min=1,dive,gt=0"`
	UncertainIsBullish   bool     `mapstructure:"uncertain_is_bullish"`
	Operator             string   `mapstructure:"operator" validate:"required,eth_addr"`
}

// DatabaseConfig holds PostgreSQL configuration for the deployment ledger.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the postgres:// form used by migrations.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration for the deployer-account lock.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`
	Job            string `mapstructure:"job"`
}

// ServerConfig holds status server configuration.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigFile is an explicit config path. When empty, deploy.yaml is
	// searched in ., ./config and /etc/indicator-deployer.
	ConfigFile string
	// EnvFile is a dotenv file loaded into the process environment before
	// viper reads it. A missing file is ignored.
	EnvFile string
	// SkipSigner skips signer validation for processes that never sign.
	SkipSigner bool
}

// Load reads configuration from an optional file, an optional .env file and
// INDICATOR_* environment variables, then validates it.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("deploy")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/indicator-deployer")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Keys without a default are invisible to AutomaticEnv on Unmarshal.
	for _, key := range []string{
		"signer.private_key",
		"signer.remote.endpoint",
		"signer.remote.api_key",
		"signer.remote.address",
		"signer.remote.client_cert",
		"signer.remote.client_key",
		"signer.remote.ca_cert",
		"artifacts.archive_url",
		"artifacts.archive_checksum",
		"metrics.pushgateway_url",
	} {
		v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(!opts.SkipSigner); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	defaults := indicator.DefaultParams()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("network.name", "mainnet")
	v.SetDefault("network.rpc_url", "http://localhost:8545")
	v.SetDefault("network.chain_id", 1)
	v.SetDefault("network.confirm_timeout", "10m")

	v.SetDefault("signer.mode", SignerLocal)
	v.SetDefault("signer.anvil_index", 0)

	v.SetDefault("gas.price_boost_percent", 150)
	v.SetDefault("gas.min_price_wei", 2_000_000_000)
	v.SetDefault("gas.fallback_limit", 6_000_000)
	v.SetDefault("gas.max_limit", 15_000_000)

	v.SetDefault("artifacts.name", indicator.ContractName)
	v.SetDefault("artifacts.dir", "build/contracts")
	v.SetDefault("artifacts.record_network", true)

	v.SetDefault("deployment.pool", defaults.Pool.Hex())
	v.SetDefault("deployment.long_term_time_periods", defaults.LongTermTimePeriods)
	v.SetDefault("deployment.short_term_time_periods", defaults.ShortTermTimePeriods)
	v.SetDefault("deployment.uncertain_is_bullish", defaults.UncertainIsBullish)
	v.SetDefault("deployment.operator", defaults.Operator.Hex())

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "indicator")
	v.SetDefault("database.password", "indicator")
	v.SetDefault("database.database", "indicator")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "15m")

	v.SetDefault("metrics.job", "indicator_deployer")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})
}
