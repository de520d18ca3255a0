// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
//
// Значения читаются из YAML-файла по пути CONFIG_PATH и могут быть
// переопределены переменными окружения. Учётных данных по умолчанию нет.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Окружения запуска.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	JWT                     `yaml:"jwt"`
	Cookies                 `yaml:"cookies"`
	SMTP                    `yaml:"smtp"`
	RabbitMQ                `yaml:"rabbitmq"`
	Scheduler               `yaml:"scheduler"`
	RateLimit               `yaml:"rate_limit"`
	OTP                     `yaml:"otp"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeout" env:"REDIS_TIMEOUT" env-default:"3s"`
}

// JWT структура для работы с токенами сессии.
type JWT struct {
	AccessSecret  string        `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshSecret string        `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTTL     time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"30m"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL" env-default:"168h"`
}

// Cookies настройки cookie сессии.
type Cookies struct {
	Secure   bool   `yaml:"secure" env:"COOKIE_SECURE" env-default:"true"`
	Domain   string `yaml:"domain" env:"COOKIE_DOMAIN"`
	SameSite string `yaml:"same_site" env:"COOKIE_SAME_SITE" env-default:"lax"`
}

// SMTP настройки почтового транспорта.
type SMTP struct {
	SMTPHost   string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort   string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser   string `yaml:"user" env:"SMTP_USER"`
	SMTPPass   string `yaml:"password" env:"SMTP_PASSWORD"`
	From       string `yaml:"from" env:"SMTP_FROM"`
	AdminInbox string `yaml:"admin_inbox" env:"SMTP_ADMIN_INBOX"`
}

// RabbitMQ настройки брокера для напоминаний.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"3s"`
}

// Scheduler настройки планировщика напоминаний.
type Scheduler struct {
	CronSpec     string `yaml:"cron_spec" env:"SCHEDULER_CRON_SPEC" env-default:"0 9 * * *"`
	ReminderDays int    `yaml:"reminder_days" env:"SCHEDULER_REMINDER_DAYS" env-default:"7"`
}

// RateLimit ограничение частоты запросов к публичным эндпоинтам.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
}

// OTP настройки одноразовых кодов.
type OTP struct {
	TTL time.Duration `yaml:"ttl" env:"OTP_TTL" env-default:"10m"`
}

// MustLoad загружает конфиг из файла CONFIG_PATH; при ошибке завершает процесс.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из указанного файла.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// IsProd сообщает, что сервис запущен в production-окружении.
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// String печатает конфиг, скрывая секреты.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer: %s (timeout %s, idle %s)\n"+
			"Redis: %s db=%d\n"+
			"JWT: access_ttl=%s refresh_ttl=%s secrets=***\n"+
			"SMTP: %s:%s user=%s\n"+
			"RabbitMQ: configured=%t\n"+
			"Scheduler: %q reminder_days=%d\n",
		c.Env,
		c.AddressHTTP, c.TimeoutHTTP, c.IdleTimeout,
		c.AddressRedis, c.DB,
		c.AccessTTL, c.RefreshTTL,
		c.SMTPHost, c.SMTPPort, c.SMTPUser,
		c.RabbitMQURL != "",
		c.CronSpec, c.ReminderDays,
	)
}
