package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EntryRule decides which agent action promotes a queued contact to in_progress.
type EntryRule string

const (
	EntryRuleOnFirstMessage EntryRule = "on_first_message"
	EntryRuleOnOpen         EntryRule = "on_open"
	EntryRuleAuto           EntryRule = "auto"
)

// BalancingStrategy selects the agent for auto-distributed contacts.
type BalancingStrategy string

const (
	BalanceRoundRobin          BalancingStrategy = "round_robin"
	BalanceShortestQueue       BalancingStrategy = "shortest_queue"
	BalanceLowestAvgHandleTime BalancingStrategy = "lowest_avg_handle_time"
	BalanceSeniority           BalancingStrategy = "seniority"
)

type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string
	RedisURL    string

	CORSAllowAll bool
	CORSOrigins  []string

	EntryRule              EntryRule
	QueueWaitAlertMinutes  int
	NoResponseAlertMinutes int
	SLATickInterval        time.Duration
	BalancingStrategy      BalancingStrategy

	WebhookTargetURL     string
	WebhookTimeout       time.Duration
	WebhookMaxAttempts   int
	WebhookDispatchBatch int

	AsynqQueueName   string
	AsynqConcurrency int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		CORSAllowAll: strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200")),

		EntryRule:              parseEntryRule(getEnv("ENTRY_RULE", "on_first_message")),
		QueueWaitAlertMinutes:  getEnvInt("QUEUE_WAIT_ALERT_MINUTES", 30),
		NoResponseAlertMinutes: getEnvInt("NO_RESPONSE_ALERT_MINUTES", 15),
		SLATickInterval:        parseTickInterval(getEnv("SLA_TICK_INTERVAL", "30s")),
		BalancingStrategy:      parseBalancingStrategy(getEnv("BALANCING_STRATEGY", "round_robin")),

		WebhookTargetURL:     getEnv("WEBHOOK_TARGET_URL", ""),
		WebhookTimeout:       mustDuration(getEnv("WEBHOOK_TIMEOUT", "10s")),
		WebhookMaxAttempts:   getEnvInt("WEBHOOK_MAX_ATTEMPTS", 5),
		WebhookDispatchBatch: getEnvInt("WEBHOOK_DISPATCH_BATCH", 50),

		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.QueueWaitAlertMinutes < 1 || cfg.NoResponseAlertMinutes < 1 {
		return nil, fmt.Errorf("SLA alert thresholds must be at least one minute")
	}

	return cfg, nil
}

// parseTickInterval restricts the SLA tick to the supported values.
// Unrecognized values fall back to 30s.
func parseTickInterval(value string) time.Duration {
	switch strings.TrimSpace(value) {
	case "5s":
		return 5 * time.Second
	case "10s":
		return 10 * time.Second
	case "30s":
		return 30 * time.Second
	case "60s":
		return 60 * time.Second
	default:
		return 30 * time.Second
	}
}

func parseEntryRule(value string) EntryRule {
	switch EntryRule(strings.TrimSpace(strings.ToLower(value))) {
	case EntryRuleOnOpen:
		return EntryRuleOnOpen
	case EntryRuleAuto:
		return EntryRuleAuto
	default:
		return EntryRuleOnFirstMessage
	}
}

func parseBalancingStrategy(value string) BalancingStrategy {
	switch BalancingStrategy(strings.TrimSpace(strings.ToLower(value))) {
	case BalanceShortestQueue:
		return BalanceShortestQueue
	case BalanceLowestAvgHandleTime:
		return BalanceLowestAvgHandleTime
	case BalanceSeniority:
		return BalanceSeniority
	default:
		return BalanceRoundRobin
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

// QueueWaitAlert returns the queued-too-long threshold as a duration.
func (c *Config) QueueWaitAlert() time.Duration {
	return time.Duration(c.QueueWaitAlertMinutes) * time.Minute
}

// NoResponseAlert returns the unanswered-inbound threshold as a duration.
func (c *Config) NoResponseAlert() time.Duration {
	return time.Duration(c.NoResponseAlertMinutes) * time.Minute
}
