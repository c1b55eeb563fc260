package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Store struct {
		Backend    string `yaml:"backend"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		File          string   `yaml:"file"`
		DefaultLocale string   `yaml:"default_locale"`
		Locales       []string `yaml:"locales"`
	} `yaml:"catalog"`
	Game struct {
		CoinsPerCorrect  int   `yaml:"coins_per_correct"`
		HintCosts        []int `yaml:"hint_costs"`
		RevealLetterCost int   `yaml:"reveal_letter_cost"`
		MaxLetterReveals int   `yaml:"max_letter_reveals"`
		ChallengeSize    int   `yaml:"challenge_size"`
	} `yaml:"game"`
	Leaderboard struct {
		TTL string `yaml:"ttl"`
	} `yaml:"leaderboard"`
	Auth struct {
		Mode     string `yaml:"mode"`
		Secret   string `yaml:"secret"`
		Issuer   string `yaml:"issuer"`
		Audience string `yaml:"audience"`
	} `yaml:"auth"`
	Log struct {
		Debug bool `yaml:"debug"`
	} `yaml:"log"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	AuthModeMock = "mock"
	AuthModeJWT  = "jwt"
)

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Store.Backend = BackendMemory
	cfg.Store.MaxRetries = 5
	cfg.Catalog.DefaultLocale = "it"
	cfg.Catalog.Locales = []string{"it", "en"}
	cfg.Game.CoinsPerCorrect = 10
	cfg.Game.HintCosts = []int{5, 10, 20}
	cfg.Game.RevealLetterCost = 30
	cfg.Game.MaxLetterReveals = 3
	cfg.Game.ChallengeSize = 10
	cfg.Leaderboard.TTL = "5s"
	cfg.Auth.Mode = AuthModeMock
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file yields the
// defaults; environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv lets deployments inject secrets and endpoints without editing the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("AUTH_MODE"); v != "" {
		cfg.Auth.Mode = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
