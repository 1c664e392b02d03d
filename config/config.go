// Package config loads the runtime configuration from a yaml file with
// flag and environment overrides.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDBPath       = "folio.db"
	defaultWALDir       = "decisions-wal"
	defaultResearchPath = "research.md"
	defaultWebAddr      = ":8080"
	defaultAPIURL       = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel        = "openai/gpt-4o"
	defaultDailyAt      = "17:30"
	defaultWeeklyAt     = "12:00"
	defaultTimezone     = "America/New_York"

	apiKeyEnv = "FOLIO_LLM_API_KEY"
)

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid minute in %q", s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// String renders the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Config is the resolved runtime configuration.
type Config struct {
	DBPath       string
	WALDir       string
	ResearchPath string
	Watchlist    []string
	WebAddr      string

	LLMAPIURL string
	LLMAPIKey string
	Model     string

	DailyAt  ClockTime
	WeeklyAt ClockTime
	Location *time.Location

	// RunNow names a job to execute immediately: "weekday" or "sunday".
	RunNow string
	Setup  bool
}

// ConfigTmp is the raw yaml shape before validation.
type ConfigTmp struct {
	DBPath       string   `yaml:"db_path,omitempty"`
	WALDir       string   `yaml:"wal_dir,omitempty"`
	ResearchPath string   `yaml:"research_path,omitempty"`
	Watchlist    []string `yaml:"watchlist,omitempty"`
	WebAddr      string   `yaml:"web_addr,omitempty"`
	LLMAPIURL    string   `yaml:"llm_api_url,omitempty"`
	LLMAPIKey    string   `yaml:"llm_api_key,omitempty"`
	Model        string   `yaml:"model,omitempty"`
	DailyAt      string   `yaml:"daily_at,omitempty"`
	WeeklyAt     string   `yaml:"weekly_at,omitempty"`
	Timezone     string   `yaml:"timezone,omitempty"`
}

// Get resolves configuration from flags, the yaml file, and environment.
func Get() (Config, error) {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	runNow := flag.String("run-now", "", "run a job immediately before scheduling: weekday or sunday")
	setup := flag.Bool("setup", false, "launch the interactive configuration wizard")
	flag.Parse()

	var tmp ConfigTmp
	raw, err := os.ReadFile(*configPath)
	if err == nil {
		if err := yaml.Unmarshal(raw, &tmp); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", *configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config %s: %w", *configPath, err)
	}

	cfg, err := FromTmp(tmp)
	if err != nil {
		return Config{}, err
	}
	switch *runNow {
	case "", "weekday", "sunday":
		cfg.RunNow = *runNow
	default:
		return Config{}, fmt.Errorf("invalid --run-now value %q, expected weekday or sunday", *runNow)
	}
	cfg.Setup = *setup
	return cfg, nil
}

// FromTmp validates the raw yaml shape and applies defaults.
func FromTmp(tmp ConfigTmp) (Config, error) {
	cfg := Config{
		DBPath:       orDefault(tmp.DBPath, defaultDBPath),
		WALDir:       orDefault(tmp.WALDir, defaultWALDir),
		ResearchPath: orDefault(tmp.ResearchPath, defaultResearchPath),
		WebAddr:      orDefault(tmp.WebAddr, defaultWebAddr),
		LLMAPIURL:    orDefault(tmp.LLMAPIURL, defaultAPIURL),
		Model:        orDefault(tmp.Model, defaultModel),
		LLMAPIKey:    tmp.LLMAPIKey,
	}

	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv(apiKeyEnv)
	}

	for _, ticker := range tmp.Watchlist {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker != "" {
			cfg.Watchlist = append(cfg.Watchlist, ticker)
		}
	}

	var err error
	cfg.DailyAt, err = ParseClockTime(orDefault(tmp.DailyAt, defaultDailyAt))
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'daily_at' param in yaml config: %w", err)
	}
	cfg.WeeklyAt, err = ParseClockTime(orDefault(tmp.WeeklyAt, defaultWeeklyAt))
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'weekly_at' param in yaml config: %w", err)
	}

	cfg.Location, err = time.LoadLocation(orDefault(tmp.Timezone, defaultTimezone))
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'timezone' param in yaml config: %w", err)
	}

	return cfg, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
