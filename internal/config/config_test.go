package config

import (
	"testing"
	"time"
)

func TestParseTickIntervalSupportedValues(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5s", 5 * time.Second},
		{"10s", 10 * time.Second},
		{"30s", 30 * time.Second},
		{"60s", 60 * time.Second},
		{" 30s ", 30 * time.Second},
		{"45s", 30 * time.Second},
		{"2m", 30 * time.Second},
		{"", 30 * time.Second},
	}
	for _, tt := range tests {
		if got := parseTickInterval(tt.in); got != tt.want {
			t.Errorf("parseTickInterval(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseEntryRule(t *testing.T) {
	tests := []struct {
		in   string
		want EntryRule
	}{
		{"on_open", EntryRuleOnOpen},
		{"ON_OPEN", EntryRuleOnOpen},
		{"auto", EntryRuleAuto},
		{"on_first_message", EntryRuleOnFirstMessage},
		{"whatever", EntryRuleOnFirstMessage},
		{"", EntryRuleOnFirstMessage},
	}
	for _, tt := range tests {
		if got := parseEntryRule(tt.in); got != tt.want {
			t.Errorf("parseEntryRule(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseBalancingStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want BalancingStrategy
	}{
		{"shortest_queue", BalanceShortestQueue},
		{"lowest_avg_handle_time", BalanceLowestAvgHandleTime},
		{"seniority", BalanceSeniority},
		{"round_robin", BalanceRoundRobin},
		{"unknown", BalanceRoundRobin},
	}
	for _, tt := range tests {
		if got := parseBalancingStrategy(tt.in); got != tt.want {
			t.Errorf("parseBalancingStrategy(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadRejectsSubMinuteThresholds(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("QUEUE_WAIT_ALERT_MINUTES", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero queue wait threshold")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("QUEUE_WAIT_ALERT_MINUTES", "30")
	t.Setenv("NO_RESPONSE_ALERT_MINUTES", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EntryRule != EntryRuleOnFirstMessage {
		t.Errorf("entry rule = %s", cfg.EntryRule)
	}
	if cfg.QueueWaitAlert() != 30*time.Minute {
		t.Errorf("queue wait alert = %s", cfg.QueueWaitAlert())
	}
	if cfg.NoResponseAlert() != 15*time.Minute {
		t.Errorf("no response alert = %s", cfg.NoResponseAlert())
	}
	if cfg.SLATickInterval != 30*time.Second {
		t.Errorf("tick interval = %s", cfg.SLATickInterval)
	}
	if cfg.BalancingStrategy != BalanceRoundRobin {
		t.Errorf("balancing strategy = %s", cfg.BalancingStrategy)
	}
}
