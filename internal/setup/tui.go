// Package setup provides the interactive terminal wizard that generates the
// yaml configuration file.
package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/folio/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the result
// to config.gen.yaml.
func RunTUI() error {
	var (
		watchlistStr string
		dbPath       string
		apiURL       string
		apiKey       string
		model        string
		dailyAt      string
		weeklyAt     string
		timezone     string
		webAddr      string
		confirm      bool
	)

	// defaults
	dbPath = "folio.db"
	apiURL = "https://openrouter.ai/api/v1/chat/completions"
	model = "openai/gpt-4o"
	dailyAt = "17:30"
	weeklyAt = "12:00"
	timezone = "America/New_York"
	webAddr = ":8080"

	clearScreen := func(step string) {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
		if step != "" {
			fmt.Println(stepStyle.Render(step))
		}
	}

	clearScreen("")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's set up your portfolio manager.\n"))

	// universe
	clearScreen("STEP 1: UNIVERSE")
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Watchlist").
				Description("Comma-separated tickers considered even when not held (e.g. AAPL,MSFT,NVDA)").
				Value(&watchlistStr),
			huh.NewInput().
				Title("Database Path").
				Value(&dbPath),
		),
	).Run()
	if err != nil {
		return err
	}

	// model
	clearScreen("STEP 2: MODEL")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("LLM API URL").
				Value(&apiURL),
			huh.NewInput().
				Title("LLM API Key").
				Description("Leave empty to use the FOLIO_LLM_API_KEY environment variable").
				Value(&apiKey).
				EchoMode(huh.EchoModePassword),
			huh.NewInput().
				Title("Model Name").
				Value(&model),
		),
	).Run()
	if err != nil {
		return err
	}

	// schedule
	clearScreen("STEP 3: SCHEDULE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Daily Rebalance Time").
				Description("Weekdays, HH:MM").
				Value(&dailyAt).
				Validate(validateClockTime),
			huh.NewInput().
				Title("Weekly Research Time").
				Description("Sundays, HH:MM").
				Value(&weeklyAt).
				Validate(validateClockTime),
			huh.NewInput().
				Title("Timezone").
				Description("IANA name, e.g. America/New_York").
				Value(&timezone).
				Validate(func(s string) error {
					_, err := time.LoadLocation(s)
					return err
				}),
			huh.NewInput().
				Title("Web Address").
				Value(&webAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	clearScreen("FINAL CONFIRMATION")

	summary := fmt.Sprintf(
		"Watchlist: %s\nDatabase: %s\nModel: %s\nDaily: %s  Weekly: %s (%s)\nWeb: %s\n",
		watchlistStr, dbPath, model, dailyAt, weeklyAt, timezone, webAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfgTmp := config.ConfigTmp{
		DBPath:    dbPath,
		Watchlist: splitWatchlist(watchlistStr),
		WebAddr:   webAddr,
		LLMAPIURL: apiURL,
		LLMAPIKey: apiKey,
		Model:     model,
		DailyAt:   dailyAt,
		WeeklyAt:  weeklyAt,
		Timezone:  timezone,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\nConfiguration saved to %s", filename)))
	return nil
}

func validateClockTime(s string) error {
	_, err := config.ParseClockTime(s)
	return err
}

func splitWatchlist(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
