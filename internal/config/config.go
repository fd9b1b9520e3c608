package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the blog list service.
type Config struct {
	RunAddr               string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel              string        `env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName            string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DatabaseDSN           string        `env:"DATABASE_DSN"`
	DBConnectionTimeout   time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir         string        `env:"MIGRATIONS_DIR"`
	TokenSigningSecret    string        `env:"SECRET" validate:"required"`
	TokenTTL              time.Duration `env:"TOKEN_TTL"`
	PasswordHashCost      int           `env:"BCRYPT_COST" validate:"omitempty,min=4,max=31"`
	LikesRequireOwnership bool          `env:"LIKES_REQUIRE_OWNERSHIP"`
	CORSAllowedOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	LoginRateLimit        int           `env:"LOGIN_RATE_LIMIT" validate:"min=0"`
	TrustedSubnet         string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
}

// fileConfig mirrors Config for the JSON file. Absent keys stay nil and do not override.
type fileConfig struct {
	RunAddr               *string  `json:"server_address"`
	LogLevel              *string  `json:"log_level"`
	DBFileName            *string  `json:"file_storage_path"`
	DatabaseDSN           *string  `json:"database_dsn"`
	DBConnectionTimeout   *string  `json:"db_connection_timeout"`
	MigrationsDir         *string  `json:"migrations_dir"`
	TokenSigningSecret    *string  `json:"secret"`
	TokenTTL              *string  `json:"token_ttl"`
	PasswordHashCost      *int     `json:"bcrypt_cost"`
	LikesRequireOwnership *bool    `json:"likes_require_ownership"`
	CORSAllowedOrigins    []string `json:"cors_allowed_origins"`
	LoginRateLimit        *int     `json:"login_rate_limit"`
	TrustedSubnet         *string  `json:"trusted_subnet"`
}

var defaultConfig = Config{
	RunAddr:             ":3003",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/bloglist/migrations",
	TokenTTL:            time.Hour,
	PasswordHashCost:    10,
	CORSAllowedOrigins:  []string{"*"},
	LoginRateLimit:      10,
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

type flagValues struct {
	configPath string
	set        map[string]bool
	values     Config
}

func parseFlags(args []string) (*flagValues, error) {
	fv := &flagValues{set: map[string]bool{}}
	fs := flag.NewFlagSet("bloglist", flag.ContinueOnError)
	fs.StringVar(&fv.configPath, "c", "", "path to the JSON config file")
	fs.StringVar(&fv.values.RunAddr, "a", "", "address and port to run server")
	fs.StringVar(&fv.values.LogLevel, "l", "", "logger level")
	fs.StringVar(&fv.values.DBFileName, "f", "", "JSON file name with database")
	fs.StringVar(&fv.values.DatabaseDSN, "d", "", "a string with the database connection details")
	fs.StringVar(&fv.values.TokenSigningSecret, "s", "", "secret used to sign session tokens")
	fs.DurationVar(&fv.values.TokenTTL, "t", 0, "session token lifetime, 0 disables expiry")
	fs.StringVar(&fv.values.TrustedSubnet, "ts", "", "CIDR allowed to read /metrics")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		fv.set[f.Name] = true
	})

	return fv, nil
}

func (fv *flagValues) applyTo(cfg *Config) {
	if fv.set["a"] {
		cfg.RunAddr = fv.values.RunAddr
	}
	if fv.set["l"] {
		cfg.LogLevel = fv.values.LogLevel
	}
	if fv.set["f"] {
		cfg.DBFileName = fv.values.DBFileName
	}
	if fv.set["d"] {
		cfg.DatabaseDSN = fv.values.DatabaseDSN
	}
	if fv.set["s"] {
		cfg.TokenSigningSecret = fv.values.TokenSigningSecret
	}
	if fv.set["t"] {
		cfg.TokenTTL = fv.values.TokenTTL
	}
	if fv.set["ts"] {
		cfg.TrustedSubnet = fv.values.TrustedSubnet
	}
}

// applyDefaults fills the zero-valued fields of cfg from defaults.
// TokenTTL and LoginRateLimit are left alone: zero disables them.
func applyDefaults(cfg *Config, defaults Config) {
	if cfg.RunAddr == "" {
		cfg.RunAddr = defaults.RunAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.DBConnectionTimeout == 0 {
		cfg.DBConnectionTimeout = defaults.DBConnectionTimeout
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = defaults.MigrationsDir
	}
	if cfg.PasswordHashCost == 0 {
		cfg.PasswordHashCost = defaults.PasswordHashCost
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = append([]string(nil), defaults.CORSAllowedOrigins...)
	}
}

func loadJSON(path string, cfg *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(content, &fc); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setDuration := func(dst *time.Duration, src *string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}

	setString(&cfg.RunAddr, fc.RunAddr)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.DBFileName, fc.DBFileName)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.MigrationsDir, fc.MigrationsDir)
	setString(&cfg.TokenSigningSecret, fc.TokenSigningSecret)
	setString(&cfg.TrustedSubnet, fc.TrustedSubnet)
	if err := setDuration(&cfg.DBConnectionTimeout, fc.DBConnectionTimeout); err != nil {
		return fmt.Errorf("invalid db_connection_timeout: %w", err)
	}
	if err := setDuration(&cfg.TokenTTL, fc.TokenTTL); err != nil {
		return fmt.Errorf("invalid token_ttl: %w", err)
	}
	if fc.PasswordHashCost != nil {
		cfg.PasswordHashCost = *fc.PasswordHashCost
	}
	if fc.LikesRequireOwnership != nil {
		cfg.LikesRequireOwnership = *fc.LikesRequireOwnership
	}
	if fc.CORSAllowedOrigins != nil {
		cfg.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}
	if fc.LoginRateLimit != nil {
		cfg.LoginRateLimit = *fc.LoginRateLimit
	}

	return nil
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// New assembles the configuration from defaults, the JSON file named by CONFIG or -c,
// the .env file, the environment and the command line, each overriding the previous one.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Unable to load .env file: %v", err)
	}

	fv := &flagValues{set: map[string]bool{}}
	if !options.disableFlagsParsing {
		fv, err = parseFlags(os.Args[1:])
		if err != nil {
			return nil, err
		}
	}

	cfg := defaultConfig
	cfg.CORSAllowedOrigins = append([]string(nil), defaultConfig.CORSAllowedOrigins...)

	configPath := os.Getenv("CONFIG")
	if fv.configPath != "" {
		configPath = fv.configPath
	}
	if configPath != "" {
		if err := loadJSON(configPath, &cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	fv.applyTo(&cfg)
	applyDefaults(&cfg, defaultConfig)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
