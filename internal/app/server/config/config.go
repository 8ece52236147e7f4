package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env    string
	DB     db
	Server server
	Logger logger
}

type db struct {
	// DatabaseURI пустой адрес включает хранилище в памяти
	DatabaseURI string `env:"DATABASE_URI"`
}

type server struct {
	RunAddress      string        `env:"RUN_ADDRESS" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"10"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// MustLoad загружает конфигурацию и завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("ошибка загрузки конфигурации сервера: %v", err))
	}
	return cfg
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("чтение %s: %w", envPath, err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("run_address", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout_seconds", 10)

	cfg := &Config{
		Env: v.GetString("app_env"),
		DB: db{
			DatabaseURI: v.GetString("database_uri"),
		},
		Server: server{
			RunAddress:      v.GetString("run_address"),
			ShutdownTimeout: time.Duration(v.GetInt("shutdown_timeout_seconds")) * time.Second,
		},
		Logger: logger{LogLevel: v.GetString("log_level")},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UseMemory сообщает, что сервер работает без PostgreSQL.
func (c *Config) UseMemory() bool {
	return c.DB.DatabaseURI == ""
}

func (c *Config) validate() error {
	if c.Server.RunAddress == "" {
		return errors.New("RUN_ADDRESS не может быть пустым")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT_SECONDS должен быть положительным: %s", c.Server.ShutdownTimeout)
	}
	return nil
}
