// internal/infrastructure/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"schedule-monitor/internal/domain/entity"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigFile is read when CONFIG_FILE is not set
const DefaultConfigFile = "./config.yaml"

// Mail transports
const (
	TransportSMTP  = "smtp"
	TransportGmail = "gmail"
)

// Config holds all configuration for the application
type Config struct {
	// Monitoring window, in hours from now
	TimeMin float64
	TimeMax float64

	// Subscribers
	TargetEmails []string
	EmailSubject string

	// Plane filter; Include wins over Exclude
	PlaneInclude []string
	PlaneExclude []string

	// Schedule page
	ScheduleURL      string
	Location         *time.Location
	FetchTimeout     time.Duration
	FetchConcurrency int

	// Storage
	DBDriver      string
	DBDSN         string
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Locking
	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration

	// Metrics
	PushgatewayURL string

	// Email
	MailTransport     string
	EmailContact      string
	EmailHost         string
	EmailPort         int
	EmailLogin        string
	EmailPassword     string
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string

	// Logging
	Environment string
	LogLevel    string
	LogFile     string
}

// PlaneFilter returns the tail code filter of the config
func (c *Config) PlaneFilter() entity.PlaneFilter {
	return entity.PlaneFilter{Include: c.PlaneInclude, Exclude: c.PlaneExclude}
}

// LoadConfig loads configuration from the YAML file and environment variables.
// configFile overrides CONFIG_FILE; environment values override file values and
// secrets are only ever read from the environment.
func LoadConfig(configFile string) (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("TIME_MIN", 0)
	v.SetDefault("SCHEDULE_URL", "https://lai.kal-soft.com/Schedule.asp?location=1")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("FETCH_TIMEOUT", "30s")
	v.SetDefault("FETCH_CONCURRENCY", 1)
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "schedule_monitor")
	v.SetDefault("LOCK_TTL", "2m")
	v.SetDefault("MAIL_TRANSPORT", TransportSMTP)
	v.SetDefault("EMAIL_SUBJECT", "Purdue Airport Reservation Tracker - Cancellations")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	config := &Config{
		ScheduleURL:    v.GetString("SCHEDULE_URL"),
		DBDriver:       strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:          v.GetString("DB_DSN"),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDB:        v.GetString("MONGO_DB"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		PushgatewayURL: v.GetString("PUSHGATEWAY_URL"),
		MailTransport:  strings.ToLower(v.GetString("MAIL_TRANSPORT")),
		EmailSubject:   v.GetString("EMAIL_SUBJECT"),
		Environment:    v.GetString("ENV"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFile:        v.GetString("LOG_FILE"),

		EmailContact:      getEnv("EMAIL_CONTACT", ""),
		EmailHost:         getEnv("EMAIL_HOST", ""),
		EmailLogin:        getEnv("EMAIL_LOGIN", ""),
		EmailPassword:     getEnv("EMAIL_PASSWORD", ""),
		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		MongoUser:         getEnv("MONGO_USER", ""),
		MongoPassword:     getEnv("MONGO_PASSWORD", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
	}

	var err error
	if !v.IsSet("TIME_MAX") || v.GetString("TIME_MAX") == "" {
		return nil, &entity.ConfigError{Key: "TIME_MAX", Reason: "is required"}
	}
	if config.TimeMax, err = getFloat(v, "TIME_MAX"); err != nil {
		return nil, err
	}
	if config.TimeMax <= 0 {
		return nil, &entity.ConfigError{Key: "TIME_MAX", Reason: "must be a positive number of hours"}
	}
	if config.TimeMin, err = getFloat(v, "TIME_MIN"); err != nil {
		return nil, err
	}
	if config.TimeMin >= config.TimeMax {
		return nil, &entity.ConfigError{Key: "TIME_MIN", Reason: "must be lower than TIME_MAX"}
	}

	config.TargetEmails = mergeLists(getList(v, "TARGET_EMAILS"), getList(v, "TARGET_EMAIL"))

	config.PlaneInclude = getList(v, "PLANE_INCLUDE")
	if len(config.PlaneInclude) == 0 {
		config.PlaneInclude = nil
		config.PlaneExclude = getList(v, "PLANE_EXCLUDE")
	}

	if config.Location, err = time.LoadLocation(v.GetString("TIMEZONE")); err != nil {
		return nil, &entity.ConfigError{Key: "TIMEZONE", Reason: err.Error()}
	}
	if config.FetchTimeout, err = getDuration(v, "FETCH_TIMEOUT"); err != nil {
		return nil, err
	}
	if config.LockTTL, err = getDuration(v, "LOCK_TTL"); err != nil {
		return nil, err
	}
	if config.FetchConcurrency, err = strconv.Atoi(v.GetString("FETCH_CONCURRENCY")); err != nil || config.FetchConcurrency < 1 {
		return nil, &entity.ConfigError{Key: "FETCH_CONCURRENCY", Reason: "must be a positive integer"}
	}

	if err := config.validateStorage(); err != nil {
		return nil, err
	}
	return config, nil
}

func readConfigFile(v *viper.Viper, configFile string) error {
	explicit := true
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile == "" {
		configFile = DefaultConfigFile
		explicit = false
	}

	if _, err := os.Stat(configFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return &entity.ConfigError{Key: "CONFIG_FILE", Reason: err.Error()}
	}

	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return &entity.ConfigError{Key: "CONFIG_FILE", Reason: err.Error()}
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.DBDriver {
	case "sqlite":
		if c.DBDSN == "" {
			c.DBDSN = "schedules.db"
		}
	case "postgres":
		if c.DBDSN == "" {
			return &entity.ConfigError{Key: "DB_DSN", Reason: "is required for postgres"}
		}
	case "mongo":
	default:
		return &entity.ConfigError{Key: "DB_DRIVER", Reason: fmt.Sprintf("unsupported driver %q", c.DBDriver)}
	}
	return nil
}

// ValidateMail checks the settings of the configured mail transport. Only
// commands that send email need them.
func (c *Config) ValidateMail() error {
	switch c.MailTransport {
	case TransportSMTP:
		for _, key := range []string{"EMAIL_CONTACT", "EMAIL_HOST", "EMAIL_PORT", "EMAIL_LOGIN", "EMAIL_PASSWORD"} {
			if os.Getenv(key) == "" {
				return &entity.ConfigError{Key: key, Reason: "must be supplied as an environment variable"}
			}
		}
		port, err := strconv.Atoi(os.Getenv("EMAIL_PORT"))
		if err != nil || port <= 0 {
			return &entity.ConfigError{Key: "EMAIL_PORT", Reason: "must be a port number"}
		}
		c.EmailPort = port
	case TransportGmail:
	default:
		return &entity.ConfigError{Key: "MAIL_TRANSPORT", Reason: fmt.Sprintf("unsupported transport %q", c.MailTransport)}
	}
	return nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getFloat(v *viper.Viper, key string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64)
	if err != nil {
		return 0, &entity.ConfigError{Key: key, Reason: "must be a number of hours"}
	}
	return value, nil
}

func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil || value <= 0 {
		return 0, &entity.ConfigError{Key: key, Reason: "must be a positive duration such as 30s"}
	}
	return value, nil
}

// getList accepts a YAML list or a comma separated string
func getList(v *viper.Viper, key string) []string {
	var items []string
	switch value := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(value, ",")
	default:
		items = v.GetStringSlice(key)
	}

	list := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func mergeLists(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, list := range lists {
		for _, item := range list {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			merged = append(merged, item)
		}
	}
	return merged
}
