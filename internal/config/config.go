package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Resolve   ResolveConfig
	Provision ProvisionConfig
	Sweeper   SweeperConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdleConns   int
	MigrationsPath string
}

type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

type AuthConfig struct {
	// Auth-provider (hosted account service) endpoints and server key.
	URL       string
	ProjectID string
	APIKey    string
	JWTSecret string
}

type ResolveConfig struct {
	// Base URL of the resolution/provisioning backend, used by the portal
	// and the manage console client.
	APIBaseURL string
	RatePerMin int
	RateBurst  int
}

type ProvisionConfig struct {
	// Suffix appended to the domain slug when deriving school emails,
	// e.g. slug "greenwood" -> greenwood.edu.
	DomainSuffix    string
	VerifyDomainDNS bool
	DNSResolver     string
	RollbackRetries int
}

type SweeperConfig struct {
	Interval time.Duration
}

func Load() (*Config, error) {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("EDUSTACK")
	viper.AutomaticEnv()

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.maxidleconns", 5)
	viper.SetDefault("database.migrationspath", "file://migrations")
	viper.SetDefault("redis.cachettl", "60s")
	viper.SetDefault("resolve.ratepermin", 30)
	viper.SetDefault("resolve.rateburst", 10)
	viper.SetDefault("provision.domainsuffix", "edu")
	viper.SetDefault("provision.verifydomaindns", false)
	viper.SetDefault("provision.dnsresolver", "1.1.1.1:53")
	viper.SetDefault("provision.rollbackretries", 3)
	viper.SetDefault("sweeper.interval", "10m")

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if url := os.Getenv("AUTH_PROVIDER_URL"); url != "" {
		cfg.Auth.URL = url
	}
	if key := os.Getenv("AUTH_PROVIDER_API_KEY"); key != "" {
		cfg.Auth.APIKey = key
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if url := os.Getenv("API_BASE_URL"); url != "" {
		cfg.Resolve.APIBaseURL = url
	}

	// Missing ids are logged but do not halt startup; calls depending on
	// them fail later with a configuration error.
	if cfg.Auth.URL == "" {
		log.Println("WARNING: auth provider URL is not configured")
	}
	if cfg.Auth.ProjectID == "" {
		log.Println("WARNING: auth provider project id is not configured")
	}

	return &cfg, nil
}
