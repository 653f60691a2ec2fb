package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	credstoreConfig "github.com/iurnickita/washportal/internal/credstore/config"
	gatewayConfig "github.com/iurnickita/washportal/internal/gateway/config"
	handlerConfig "github.com/iurnickita/washportal/internal/handler/config"
	loggerConfig "github.com/iurnickita/washportal/internal/logger/config"
	scheduleConfig "github.com/iurnickita/washportal/internal/schedule/config"
)

type Config struct {
	Gateway   gatewayConfig.Config
	CredStore credstoreConfig.Config
	Schedule  scheduleConfig.Config
	Handler   handlerConfig.Config
	Logger    loggerConfig.Config
}

const (
	envAPIURL      = "WASHPORTAL_API_URL"
	envLogLevel    = "WASHPORTAL_LOG_LEVEL"
	envCredStore   = "WASHPORTAL_CRED_STORE"
	envCredFile    = "WASHPORTAL_CRED_FILE"
	envDBDsn       = "WASHPORTAL_DB_DSN"
	envHorizonDays = "WASHPORTAL_HORIZON_DAYS"
	envServerAddr  = "WASHPORTAL_SERVER_ADDR"
	envHTTPTimeout = "WASHPORTAL_HTTP_TIMEOUT"
)

// GetConfig собирает конфигурацию из переменных окружения
func GetConfig() Config {
	return Config{
		Gateway: gatewayConfig.Config{
			BaseURL:     getEnv(envAPIURL, "http://127.0.0.1:8000/api"),
			RefreshPath: gatewayConfig.DefaultRefreshPath,
			LoginPath:   gatewayConfig.DefaultLoginPath,
			Timeout:     getEnvDuration(envHTTPTimeout, 0),
		},
		CredStore: credstoreConfig.Config{
			Kind:  getEnv(envCredStore, credstoreConfig.KindFile),
			File:  getEnv(envCredFile, defaultCredFile()),
			DBDsn: getEnv(envDBDsn, ""),
		},
		Schedule: scheduleConfig.Config{
			HorizonDays: getEnvInt(envHorizonDays, scheduleConfig.DefaultHorizonDays),
		},
		Handler: handlerConfig.Config{
			ServerAddr: getEnv(envServerAddr, "localhost:8090"),
		},
		Logger: loggerConfig.Config{
			LogLevel: getEnv(envLogLevel, "info"),
		},
	}
}

// AddFlags привязывает глобальные флаги; флаги перекрывают окружение
func AddFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Gateway.BaseURL, "api-url", cfg.Gateway.BaseURL, "base URL of the portal REST API")
	fs.DurationVar(&cfg.Gateway.Timeout, "http-timeout", cfg.Gateway.Timeout, "HTTP client timeout (0 = transport default)")
	fs.StringVar(&cfg.CredStore.Kind, "cred-store", cfg.CredStore.Kind, "credential store: file, postgres or memory")
	fs.StringVar(&cfg.CredStore.File, "cred-file", cfg.CredStore.File, "credential file for the file store")
	fs.StringVar(&cfg.CredStore.DBDsn, "db-dsn", cfg.CredStore.DBDsn, "Postgres DSN for the postgres store")
	fs.IntVar(&cfg.Schedule.HorizonDays, "horizon", cfg.Schedule.HorizonDays, "number of days offered for scheduling")
	fs.StringVar(&cfg.Logger.LogLevel, "log-level", cfg.Logger.LogLevel, "log level")
}

func defaultCredFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".washportal", "credentials.json")
	}
	return filepath.Join(home, ".washportal", "credentials.json")
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultVal
	}
	return d
}
