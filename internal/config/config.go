// Package config загружает конфигурацию сервисов из окружения.
//
// Переменные читаются из окружения процесса; если в рабочей директории
// есть .env, он подгружается первым (переменные окружения приоритетнее).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/shaiso/Leadflow/internal/scheduler"
)

// ErrInvalidConfig — некорректное значение переменной окружения.
var ErrInvalidConfig = errors.New("invalid config")

// Config — конфигурация всех сервисов Leadflow.
type Config struct {
	// DBURL — DSN PostgreSQL. Пустой означает DSN по умолчанию.
	DBURL string

	// RabbitMQURL — URL брокера. Пустой означает in-process отправку.
	RabbitMQURL string

	// SchedulerSpec — cron-выражение периодического запуска.
	SchedulerSpec string

	// LockName — имя execution lock для scan + dispatch.
	LockName string

	// LockTimeout — через сколько блокировка считается протухшей.
	LockTimeout time.Duration

	// RepeatThreshold — минимальный интервал между follow-up одной пары.
	RepeatThreshold time.Duration

	// SendTimeout — таймаут одной отправки SMS.
	SendTimeout time.Duration

	// WorkerConcurrency — параллельные отправки в воркере.
	WorkerConcurrency int

	SMSGatewayURL   string
	SMSGatewayToken string

	APIPort    string
	SchedPort  string
	WorkerPort string

	// RulesFile — YAML с правилами, загружаемыми при старте API.
	RulesFile string

	// AutoMigrate — применять схему БД при старте API.
	AutoMigrate bool
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		SchedulerSpec:     scheduler.DefaultTriggerSpec,
		LockName:          "leadflow.collect_followups",
		LockTimeout:       5 * time.Minute,
		RepeatThreshold:   24 * time.Hour,
		SendTimeout:       10 * time.Second,
		WorkerConcurrency: 4,
		APIPort:           "8080",
		SchedPort:         "8081",
		WorkerPort:        "8082",
	}
}

// Load читает .env (если есть) и переменные окружения.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv собирает конфигурацию из функции поиска переменных.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	r := envReader{lookup: lookup}

	r.str("DB_URL", &cfg.DBURL)
	r.str("RABBITMQ_URL", &cfg.RabbitMQURL)
	r.str("SCHEDULER_SPEC", &cfg.SchedulerSpec)
	r.str("FOLLOWUP_LOCK_NAME", &cfg.LockName)
	r.duration("FOLLOWUP_LOCK_TIMEOUT", &cfg.LockTimeout)
	r.duration("FOLLOWUP_REPEAT_THRESHOLD", &cfg.RepeatThreshold)
	r.duration("SEND_TIMEOUT", &cfg.SendTimeout)
	r.integer("WORKER_CONCURRENCY", &cfg.WorkerConcurrency)
	r.str("SMS_GATEWAY_URL", &cfg.SMSGatewayURL)
	r.str("SMS_GATEWAY_TOKEN", &cfg.SMSGatewayToken)
	r.str("API_PORT", &cfg.APIPort)
	r.str("SCHED_PORT", &cfg.SchedPort)
	r.str("WORKER_PORT", &cfg.WorkerPort)
	r.str("RULES_FILE", &cfg.RulesFile)
	r.boolean("DB_AUTO_MIGRATE", &cfg.AutoMigrate)

	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет значения, при которых сервисы не могут работать.
func (c Config) Validate() error {
	var errs []error
	if c.LockName == "" {
		errs = append(errs, fmt.Errorf("%w: FOLLOWUP_LOCK_NAME is empty", ErrInvalidConfig))
	}
	if c.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: FOLLOWUP_LOCK_TIMEOUT must be positive", ErrInvalidConfig))
	}
	if c.RepeatThreshold <= 0 {
		errs = append(errs, fmt.Errorf("%w: FOLLOWUP_REPEAT_THRESHOLD must be positive", ErrInvalidConfig))
	}
	if c.SendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: SEND_TIMEOUT must be positive", ErrInvalidConfig))
	}
	if c.WorkerConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("%w: WORKER_CONCURRENCY must be positive", ErrInvalidConfig))
	}
	if err := scheduler.ValidateSpec(c.SchedulerSpec); err != nil {
		errs = append(errs, fmt.Errorf("%w: SCHEDULER_SPEC: %w", ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}

// envReader накапливает ошибки разбора переменных.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, key, v, err))
		return
	}
	*dst = d
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, key, v, err))
		return
	}
	*dst = n
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, key, v, err))
		return
	}
	*dst = b
}
