package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Leadflow/internal/domain"
	"github.com/shaiso/Leadflow/internal/scheduler"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(mapLookup(nil))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 5*time.Minute, cfg.LockTimeout)
	assert.Equal(t, 24*time.Hour, cfg.RepeatThreshold)
	assert.Equal(t, "leadflow.collect_followups", cfg.LockName)
	assert.False(t, cfg.AutoMigrate)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"DB_URL":                    "postgresql://u:p@db:5432/leadflow",
		"RABBITMQ_URL":              "amqp://guest:guest@mq:5672/",
		"SCHEDULER_SPEC":            "*/1 * * * *",
		"FOLLOWUP_LOCK_NAME":        "custom.lock",
		"FOLLOWUP_LOCK_TIMEOUT":     "90s",
		"FOLLOWUP_REPEAT_THRESHOLD": "12h",
		"SEND_TIMEOUT":              "3s",
		"WORKER_CONCURRENCY":        "16",
		"SMS_GATEWAY_URL":           "https://sms.example.com/send",
		"SMS_GATEWAY_TOKEN":         "token",
		"API_PORT":                  "9090",
		"RULES_FILE":                "rules.yaml",
		"DB_AUTO_MIGRATE":           "true",
	}))

	require.NoError(t, err)
	assert.Equal(t, "postgresql://u:p@db:5432/leadflow", cfg.DBURL)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitMQURL)
	assert.Equal(t, "*/1 * * * *", cfg.SchedulerSpec)
	assert.Equal(t, "custom.lock", cfg.LockName)
	assert.Equal(t, 90*time.Second, cfg.LockTimeout)
	assert.Equal(t, 12*time.Hour, cfg.RepeatThreshold)
	assert.Equal(t, 3*time.Second, cfg.SendTimeout)
	assert.Equal(t, 16, cfg.WorkerConcurrency)
	assert.Equal(t, "https://sms.example.com/send", cfg.SMSGatewayURL)
	assert.Equal(t, "token", cfg.SMSGatewayToken)
	assert.Equal(t, "9090", cfg.APIPort)
	assert.Equal(t, "8081", cfg.SchedPort)
	assert.Equal(t, "rules.yaml", cfg.RulesFile)
	assert.True(t, cfg.AutoMigrate)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"FOLLOWUP_LOCK_TIMEOUT": "five minutes"}},
		{"zero timeout", map[string]string{"FOLLOWUP_LOCK_TIMEOUT": "0s"}},
		{"negative threshold", map[string]string{"FOLLOWUP_REPEAT_THRESHOLD": "-1h"}},
		{"bad concurrency", map[string]string{"WORKER_CONCURRENCY": "many"}},
		{"zero concurrency", map[string]string{"WORKER_CONCURRENCY": "0"}},
		{"bad bool", map[string]string{"DB_AUTO_MIGRATE": "sure"}},
		{"bad scheduler spec", map[string]string{"SCHEDULER_SPEC": "every minute"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(mapLookup(tt.env))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestFromEnv_SchedulerSpec(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{"SCHEDULER_SPEC": "*/5 * * * *"}))
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", cfg.SchedulerSpec)

	_, err = FromEnv(mapLookup(map[string]string{"SCHEDULER_SPEC": "61 * * * *"}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, scheduler.ErrInvalidTriggerSpec)
}

func TestFromEnv_BlankValuesIgnored(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{"FOLLOWUP_LOCK_NAME": "  "}))

	require.NoError(t, err)
	assert.Equal(t, "leadflow.collect_followups", cfg.LockName)
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FOLLOWUP_REPEAT_THRESHOLD", "36h")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 36*time.Hour, cfg.RepeatThreshold)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WORKER_CONCURRENCY=7\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("WORKER_CONCURRENCY") })

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.WorkerConcurrency)
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(`
rules:
  - status: NEW
    delay: 60
    text: "Still interested?"
  - status: submitted
    delay: 1440
    text: "Finish your application"
    enabled: false
`))

	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, domain.LeadStatusNew, rules[0].Status)
	assert.Equal(t, 60, rules[0].DelayMinutes)
	assert.True(t, rules[0].IsEnabled)

	assert.Equal(t, domain.LeadStatusSubmitted, rules[1].Status)
	assert.False(t, rules[1].IsEnabled)
}

func TestParseRules_Empty(t *testing.T) {
	rules, err := ParseRules(nil)

	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"unknown status", "rules:\n  - {status: archived, delay: 5, text: hi}\n", domain.ErrInvalidStatus},
		{"zero delay", "rules:\n  - {status: new, delay: 0, text: hi}\n", domain.ErrInvalidRule},
		{"empty text", "rules:\n  - {status: new, delay: 5, text: \"\"}\n", domain.ErrInvalidRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := ParseRules([]byte("rules:\n  - {status: new, delay: 5, text: hi, priority: 1}\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestLoadRules_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - {status: verified, delay: 30, text: pay now}\n"), 0o600))

	rules, err := LoadRules(path)

	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, domain.LeadStatusVerified, rules[0].Status)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
