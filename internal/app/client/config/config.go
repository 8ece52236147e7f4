package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = EnvLocal
	defaultConfigDir     = ".blogkeeper"
	defaultDataFile      = "blog.db"
	defaultMaxRetries    = 3
)

type Config struct {
	Env            string `mapstructure:"app_env"`
	ServerAddress  string `mapstructure:"server_address"`
	EnableTLS      bool   `mapstructure:"enable_tls"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	ConfigDir      string `mapstructure:"config_dir"`
	DataPath       string `mapstructure:"data_path"`
	SyncInterval   int    `mapstructure:"sync_interval_seconds"`
	ProbeInterval  int    `mapstructure:"probe_interval_seconds"`
	RequestTimeout int    `mapstructure:"request_timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	Offline        bool   `mapstructure:"offline"`
}

// MustLoad загружает конфигурацию клиента и завершает работу при ошибке
func MustLoad() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает .env, переменные окружения и, если указан, файл конфигурации.
// Переменные окружения имеют приоритет над файлом.
func Load(configFile string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("DATA_PATH", "")
	v.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	v.SetDefault("PROBE_INTERVAL_SECONDS", 15)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 10)
	v.SetDefault("MAX_RETRIES", defaultMaxRetries)
	v.SetDefault("OFFLINE", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
			}
		}
	}

	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		configDir = filepath.Join(homeDir, configDir)
	}

	dataPath := v.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, defaultDataFile)
	}

	cfg := &Config{
		Env:            v.GetString("APP_ENV"),
		ServerAddress:  v.GetString("SERVER_ADDRESS"),
		EnableTLS:      v.GetBool("ENABLE_TLS"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFile:        v.GetString("LOG_FILE"),
		ConfigDir:      configDir,
		DataPath:       dataPath,
		SyncInterval:   v.GetInt("SYNC_INTERVAL_SECONDS"),
		ProbeInterval:  v.GetInt("PROBE_INTERVAL_SECONDS"),
		RequestTimeout: v.GetInt("REQUEST_TIMEOUT_SECONDS"),
		MaxRetries:     v.GetInt("MAX_RETRIES"),
		Offline:        v.GetBool("OFFLINE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv() {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "Ошибка загрузки .env файла: %v\n", err)
		}
	}
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.DataPath == "" {
		return fmt.Errorf("data_path не может быть пустым")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval_seconds должен быть положительным: %d", c.SyncInterval)
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("probe_interval_seconds должен быть положительным: %d", c.ProbeInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout_seconds должен быть положительным: %d", c.RequestTimeout)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries должен быть положительным: %d", c.MaxRetries)
	}
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("неизвестное окружение app_env: %q", c.Env)
	}
	return nil
}

// EnsureDirs создает каталоги конфигурации и базы данных.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.ConfigDir, filepath.Dir(c.DataPath)} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ошибка создания директории %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) SyncEvery() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

func (c *Config) ProbeEvery() time.Duration {
	return time.Duration(c.ProbeInterval) * time.Second
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
