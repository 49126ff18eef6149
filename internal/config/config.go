// Package config holds the client configuration and its loaders.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MinMTU is the smallest packet budget the update scheduler can work with.
const MinMTU = 256

// Team preference sent with lobby updates.
type Team string

const (
	TeamNone Team = "none"
	TeamA    Team = "a"
	TeamB    Team = "b"
)

// Config stores every tunable of the client. Zero durations are invalid;
// use Default() as a base.
type Config struct {
	Endpoint      string `yaml:"endpoint"`      // ws://host:port/ws or rtc+ws://host:port/ws
	PlayerName    string `yaml:"player_name"`   // sent in the join request and lobby updates
	PreferredJob  string `yaml:"preferred_job"` // lobby preference
	PreferredTeam Team   `yaml:"preferred_team"`

	TickInterval    time.Duration `yaml:"tick_interval"`     // outgoing update period
	MTU             int           `yaml:"mtu"`               // hard packet ceiling in bytes
	MTUSafetyMargin int           `yaml:"mtu_safety_margin"` // reserved bytes when batching chat

	ConnectTimeout         time.Duration `yaml:"connect_timeout"`          // wait for JOIN_ACCEPTED
	FinalizeResendInterval time.Duration `yaml:"finalize_resend_interval"` // re-request STARTGAMEFINALIZE
	FinalizeTimeout        time.Duration `yaml:"finalize_timeout"`         // before prompting keep-waiting/abandon
	SaveWaitTimeout        time.Duration `yaml:"save_wait_timeout"`        // campaign save transfer during start
	QueueRetryInterval     time.Duration `yaml:"queue_retry_interval"`     // re-join while the server is full
	EndRoundDelay          time.Duration `yaml:"end_round_delay"`          // teardown sequence length

	DownloadDir string `yaml:"download_dir"` // file transfer destination
	ReportDir   string `yaml:"report_dir"`   // error report destination
	MetricsAddr string `yaml:"metrics_addr"` // empty disables /metrics
}

// Default returns a configuration with the stock tunables.
func Default() *Config {
	return &Config{
		PlayerName:    "Player",
		PreferredTeam: TeamNone,

		TickInterval:    150 * time.Millisecond,
		MTU:             1200,
		MTUSafetyMargin: 8,

		ConnectTimeout:         20 * time.Second,
		FinalizeResendInterval: time.Second,
		FinalizeTimeout:        30 * time.Second,
		SaveWaitTimeout:        20 * time.Second,
		QueueRetryInterval:     5 * time.Second,
		EndRoundDelay:          3 * time.Second,

		DownloadDir: "downloads",
		ReportDir:   "reports",
	}
}

// Load builds a configuration from the defaults, an optional YAML file and
// ROUNDLINK_* environment variables (after loading any .env file), in that
// order of precedence.
func Load(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides fields with ROUNDLINK_* environment variables.
func (c *Config) applyEnv() error {
	c.Endpoint = getEnv("ROUNDLINK_ENDPOINT", c.Endpoint)
	c.PlayerName = getEnv("ROUNDLINK_PLAYER_NAME", c.PlayerName)
	c.PreferredJob = getEnv("ROUNDLINK_PREFERRED_JOB", c.PreferredJob)
	c.PreferredTeam = Team(getEnv("ROUNDLINK_PREFERRED_TEAM", string(c.PreferredTeam)))
	c.DownloadDir = getEnv("ROUNDLINK_DOWNLOAD_DIR", c.DownloadDir)
	c.ReportDir = getEnv("ROUNDLINK_REPORT_DIR", c.ReportDir)
	c.MetricsAddr = getEnv("ROUNDLINK_METRICS_ADDR", c.MetricsAddr)

	var err error
	if c.MTU, err = getEnvAsInt("ROUNDLINK_MTU", c.MTU); err != nil {
		return err
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"ROUNDLINK_TICK_INTERVAL", &c.TickInterval},
		{"ROUNDLINK_CONNECT_TIMEOUT", &c.ConnectTimeout},
		{"ROUNDLINK_FINALIZE_RESEND_INTERVAL", &c.FinalizeResendInterval},
		{"ROUNDLINK_FINALIZE_TIMEOUT", &c.FinalizeTimeout},
		{"ROUNDLINK_SAVE_WAIT_TIMEOUT", &c.SaveWaitTimeout},
		{"ROUNDLINK_QUEUE_RETRY_INTERVAL", &c.QueueRetryInterval},
		{"ROUNDLINK_END_ROUND_DELAY", &c.EndRoundDelay},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvAsDuration(d.key, *d.dst); err != nil {
			return err
		}
	}

	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("config: endpoint is required")
	}
	if c.MTU < MinMTU {
		return fmt.Errorf("config: mtu %d is below the minimum of %d", c.MTU, MinMTU)
	}
	if c.MTUSafetyMargin < 0 || c.MTUSafetyMargin >= c.MTU/2 {
		return fmt.Errorf("config: mtu safety margin %d out of range", c.MTUSafetyMargin)
	}
	switch c.PreferredTeam {
	case TeamNone, TeamA, TeamB:
	default:
		return fmt.Errorf("config: unknown team preference %q", c.PreferredTeam)
	}

	positive := map[string]time.Duration{
		"tick_interval":            c.TickInterval,
		"connect_timeout":          c.ConnectTimeout,
		"finalize_resend_interval": c.FinalizeResendInterval,
		"finalize_timeout":         c.FinalizeTimeout,
		"save_wait_timeout":        c.SaveWaitTimeout,
		"queue_retry_interval":     c.QueueRetryInterval,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	if c.EndRoundDelay < 0 {
		return errors.New("config: end_round_delay must not be negative")
	}
	return nil
}

// ChatBudget is the packet size the scheduler may fill with chat messages.
func (c *Config) ChatBudget() int {
	return c.MTU - c.MTUSafetyMargin
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
