package promptbuilder

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/contextbuilder"
	"github.com/vadiminshakov/folio/internal/storage/orders"
	"github.com/vadiminshakov/folio/internal/storage/research"
	"github.com/vadiminshakov/folio/pkg/indicators"
)

func sampleContext() contextbuilder.MarketContext {
	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	pos := domain.Position{
		Date: asOf.AddDate(0, 0, -3), Ticker: "AAPL", Qty: 10, AvgPrice: 195.20,
	}
	quote := domain.DailyQuote{
		Date:   asOf,
		Ticker: "AAPL",
		Open:   decimal.NewFromFloat(199.37),
		High:   decimal.NewFromFloat(202.13),
		Low:    decimal.NewFromFloat(198.51),
		Close:  decimal.NewFromFloat(201.70),
		Volume: 35423294,
	}
	return contextbuilder.MarketContext{
		AsOf:    asOf,
		Cash:    domain.CashSnapshot{Date: asOf.AddDate(0, 0, -1), Amount: 2500.55},
		HasCash: true,
		Instruments: []contextbuilder.Instrument{
			{Ticker: "AAPL", Position: &pos, Quote: &quote, Indicators: &indicators.Snapshot{SMA20: 198.4, RSI14: 61.2}},
			{Ticker: "MSFT"},
		},
		LastOrders: []orders.Row{
			{Date: "2025-05-30", Ticker: "AAPL", Qty: 10, Price: 195.20},
			{Date: "2025-05-30", Ticker: "TSLA", Qty: -2, Price: 340.10},
		},
		Research: &research.Entry{
			Date: asOf.AddDate(0, 0, -1),
			Text: "Stay overweight large-cap tech.",
		},
	}
}

func TestBuildDailyPrompt(t *testing.T) {
	prompt := NewPromptBuilder().BuildDailyPrompt(sampleContext())

	assert.Contains(t, prompt, "# Daily Portfolio Review 2025-06-02")
	assert.Contains(t, prompt, "**AAPL**: 10.0000 shares @ avg 195.20")
	assert.Contains(t, prompt, "2025-06-02")
	assert.Contains(t, prompt, "61.2")
	assert.Contains(t, prompt, "**Balance:** 2500.55")
	assert.Contains(t, prompt, "SELL 2.0000 TSLA @ 340.10")
	assert.Contains(t, prompt, "Stay overweight large-cap tech.")
	assert.Contains(t, prompt, "MSFT   | no data")
}

func TestBuildDailyPromptEmptyContext(t *testing.T) {
	mc := contextbuilder.MarketContext{AsOf: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)}
	prompt := NewPromptBuilder().BuildDailyPrompt(mc)

	assert.Contains(t, prompt, "The portfolio is empty.")
	assert.Contains(t, prompt, "No market data available.")
	assert.Contains(t, prompt, "treat it as 0.00")
	assert.Contains(t, prompt, "No prior orders on record.")
	assert.Contains(t, prompt, "No research note on record yet.")
}

func TestBuildResearchPrompt(t *testing.T) {
	prompt := NewPromptBuilder().BuildResearchPrompt(sampleContext())

	assert.Contains(t, prompt, "# Weekly Strategic Review 2025-06-02")
	assert.Contains(t, prompt, "strategic research note")
	// daily-only section stays out of the weekly prompt
	assert.NotContains(t, prompt, "Previous Orders")
}
