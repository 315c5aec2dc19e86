package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
	defaultResetTokenTTL      = 3 * time.Hour
	defaultSessionTTL         = 7 * 24 * time.Hour
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Database *DatabaseConfig `json:"database" yaml:"database"`

	SecretKey struct {
		Session string `json:"session" yaml:"session"`
	} `json:"secretKey" yaml:"secretKey"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	Mail *MailConfig `json:"mail" yaml:"mail"`
}

// DatabaseConfig selects the GORM dialector and its connection string.
type DatabaseConfig struct {
	// Driver is "postgres", "sqlite" or "memory". The memory store keeps
	// nothing across restarts and ignores the remaining settings.
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`

	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
	AutoMigrate     bool          `json:"autoMigrate" yaml:"autoMigrate"`

	// SlowQueryThreshold is the duration above which statements are logged as slow.
	SlowQueryThreshold time.Duration `json:"slowQueryThreshold" yaml:"slowQueryThreshold"`
	// LogParams includes bound parameters (hashes, tokens) in statement logs.
	LogParams bool `json:"logParams" yaml:"logParams"`
}

// AuthConfig defines authentication-related configuration and account policy flags.
type AuthConfig struct {
	// Hasher is "bcrypt" (default) or "argon2id".
	Hasher     string `json:"hasher" yaml:"hasher"`
	BcryptCost int    `json:"bcryptCost" yaml:"bcryptCost"`

	// MinPasswordLength of 0 only rejects empty passwords.
	MinPasswordLength int `json:"minPasswordLength" yaml:"minPasswordLength"`

	ResetTokenTTL time.Duration `json:"resetTokenTTL" yaml:"resetTokenTTL"`
	SessionTTL    time.Duration `json:"sessionTTL" yaml:"sessionTTL"`

	// CollapseLoginNotFound reports an unknown email on login as an invalid login.
	CollapseLoginNotFound bool `json:"collapseLoginNotFound" yaml:"collapseLoginNotFound"`
	// VerifyUserChecksExpiry makes VerifyUser ignore expired reset tokens.
	VerifyUserChecksExpiry bool `json:"verifyUserChecksExpiry" yaml:"verifyUserChecksExpiry"`
	// SendConfirmationEmail mails the confirm link on registration.
	SendConfirmationEmail bool `json:"sendConfirmationEmail" yaml:"sendConfirmationEmail"`

	// BaseURL prefixes the links placed in outbound mail, e.g. https://acm.example.edu
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
}

// MailConfig defines the outbound notifier.
type MailConfig struct {
	// Provider is "smtp" or "log". Empty means "log".
	Provider string `json:"provider" yaml:"provider"`
	From     string `json:"from" yaml:"from"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	// ContactAddress receives contact-form mail. Empty means From.
	ContactAddress string `json:"contactAddress" yaml:"contactAddress"`

	MaxRetries   uint64        `json:"maxRetries" yaml:"maxRetries"`
	RetryBackoff time.Duration `json:"retryBackoff" yaml:"retryBackoff"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// Recognized values for the enumerated settings.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"

	MailProviderLog  = "log"
	MailProviderSMTP = "smtp"
)

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: AUTH_RESETTOKENTTL -> auth.resetTokenTTL (not auth.resettokenttl)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills the zero values that have a meaningful default.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{CollapseLoginNotFound: true, SendConfirmationEmail: true}
	}
	if cfg.Auth.Hasher == "" {
		cfg.Auth.Hasher = HasherBcrypt
	}
	if cfg.Auth.ResetTokenTTL <= 0 {
		cfg.Auth.ResetTokenTTL = defaultResetTokenTTL
	}
	if cfg.Auth.SessionTTL <= 0 {
		cfg.Auth.SessionTTL = defaultSessionTTL
	}

	if cfg.Mail == nil {
		cfg.Mail = &MailConfig{}
	}
	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = MailProviderLog
	}
	if cfg.Mail.ContactAddress == "" {
		cfg.Mail.ContactAddress = cfg.Mail.From
	}
}

// Validate reports configuration that would leave the service unable to run.
func (cfg *Config) Validate() error {
	if cfg.SecretKey.Session == "" {
		return errors.New("secretKey.session must be provided")
	}

	if cfg.Database == nil {
		return errors.New("database section must be provided")
	}

	switch cfg.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if cfg.Database.DSN == "" {
			return errors.New("database.dsn must be provided")
		}
	default:
		return errors.Errorf("unknown database driver: %s", cfg.Database.Driver)
	}

	if cfg.Auth == nil || cfg.Mail == nil {
		return errors.New("auth and mail sections must be provided")
	}

	switch cfg.Auth.Hasher {
	case HasherBcrypt, HasherArgon2id:
	default:
		return errors.Errorf("unknown password hasher: %s", cfg.Auth.Hasher)
	}

	if cfg.Auth.MinPasswordLength < 0 {
		return errors.New("auth.minPasswordLength must not be negative")
	}

	switch cfg.Mail.Provider {
	case MailProviderLog:
	case MailProviderSMTP:
		if cfg.Mail.Host == "" || cfg.Mail.Port <= 0 {
			return errors.New("mail.host and mail.port are required for the smtp provider")
		}
	default:
		return errors.Errorf("unknown mail provider: %s", cfg.Mail.Provider)
	}

	return nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
