package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aussiebroadwan/biblenation/pkg/cryptox"
	"github.com/aussiebroadwan/biblenation/pkg/jwtx"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config is read from the environment, optionally layered over a YAML file
// named by CONFIG_PATH. Environment variables win over the file.
type Config struct {
	Env                  string        `yaml:"env" env:"ENV" env-default:"dev" env-description:"environment (dev, staging, prod)"`
	LogLevel             string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat            string        `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	Port                 int           `yaml:"port" env:"PORT" env-default:"8080"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period" env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s"`
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval" env:"HOUSEKEEPING_INTERVAL" env-default:"1h"`
	TimeZone             string        `yaml:"tz" env:"TZ" env-default:"UTC" env-description:"IANA zone deciding streak calendar days"`

	Store StoreConfig `yaml:"store"`

	SessionSecret  string        `yaml:"session_secret" env:"SESSION_SECRET" env-description:"HS256 key, at least 32 bytes"`
	SessionTTL     time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"720h"`
	SessionIssuer  string        `yaml:"session_issuer" env:"SESSION_ISSUER" env-default:"biblenation"`
	PasswordPepper string        `yaml:"password_pepper" env:"PASSWORD_PEPPER"`

	AdminEmail    string `yaml:"admin_email" env:"ADMIN_EMAIL" env-default:"admin@biblenation.com"`
	AdminPassword string `yaml:"admin_password" env:"ADMIN_PASSWORD" env-default:"admin123"`
	SeedDemo      bool   `yaml:"seed_demo" env:"SEED_DEMO" env-default:"false"`

	Entitlement EntitlementConfig `yaml:"entitlement"`
	AMQP        AMQPConfig        `yaml:"amqp"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver" env:"STORE_DRIVER" env-default:"sqlite" env-description:"sqlite or redis"`
	DatabaseFile  string `yaml:"database_file" env:"DATABASE_FILE" env-default:"biblenation.db"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
}

type EntitlementConfig struct {
	SingleTrial   bool `yaml:"single_trial" env:"ENTITLEMENT_SINGLE_TRIAL" env-default:"false"`
	FreeQuestions int  `yaml:"free_questions" env:"FREE_QUESTIONS" env-default:"3"`
	TrialDays     int  `yaml:"trial_days" env:"TRIAL_DAYS" env-default:"7"`
}

// AMQPConfig enables the event relay when URL is set.
type AMQPConfig struct {
	URL      string `yaml:"url" env:"AMQP_URL"`
	Exchange string `yaml:"exchange" env:"AMQP_EXCHANGE" env-default:"biblenation.events"`
}

func LoadConfig() (Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config from env: %w", err)
	}

	if cfg.SessionSecret == "" && cfg.IsDev() {
		// Sessions do not survive a restart without a configured secret.
		cfg.SessionSecret = cryptox.MustGenerateToken(cryptox.TokenSize256)
	}

	return cfg, cfg.Validate()
}

func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "" }

func (c Config) Validate() error {
	var errs []error
	if len(c.SessionSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}
	switch c.Store.Driver {
	case "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not sqlite or redis", c.Store.Driver))
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("TZ: %w", err))
	}
	if c.Entitlement.FreeQuestions < 1 {
		errs = append(errs, errors.New("FREE_QUESTIONS must be at least 1"))
	}
	if c.Entitlement.TrialDays < 1 {
		errs = append(errs, errors.New("TRIAL_DAYS must be at least 1"))
	}
	if c.AdminEmail == "" || c.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required"))
	}
	return errors.Join(errs...)
}
