// Package promptbuilder formats the market context into compact markdown
// prompts for the decision model.
package promptbuilder

import (
	"fmt"
	"strings"

	"github.com/vadiminshakov/folio/internal/services/contextbuilder"
)

// PromptBuilder constructs user prompts from market contexts.
type PromptBuilder struct{}

// NewPromptBuilder creates a PromptBuilder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildDailyPrompt renders the daily rebalancing prompt.
func (pb *PromptBuilder) BuildDailyPrompt(mc contextbuilder.MarketContext) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Daily Portfolio Review %s\n\n", mc.AsOf.Format("2006-01-02")))

	sb.WriteString(pb.formatHoldings(mc))
	sb.WriteString(pb.formatMarketData(mc))
	sb.WriteString(pb.formatCash(mc))
	sb.WriteString(pb.formatLastOrders(mc))
	sb.WriteString(pb.formatResearch(mc))

	sb.WriteString("## Instructions\n\n")
	sb.WriteString("Review the portfolio against the market data and your research thesis, then provide your rebalancing decision in JSON format.\n")

	return sb.String()
}

// BuildResearchPrompt renders the weekly strategic research prompt.
func (pb *PromptBuilder) BuildResearchPrompt(mc contextbuilder.MarketContext) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Weekly Strategic Review %s\n\n", mc.AsOf.Format("2006-01-02")))

	sb.WriteString(pb.formatHoldings(mc))
	sb.WriteString(pb.formatMarketData(mc))
	sb.WriteString(pb.formatCash(mc))
	sb.WriteString(pb.formatResearch(mc))

	sb.WriteString("## Instructions\n\n")
	sb.WriteString("Write this week's strategic research note and, if the portfolio needs meaningful repositioning, include strategic orders. Respond in JSON format.\n")

	return sb.String()
}

func (pb *PromptBuilder) formatHoldings(mc contextbuilder.MarketContext) string {
	var sb strings.Builder

	sb.WriteString("## Current Holdings\n\n")

	held := 0
	for _, inst := range mc.Instruments {
		if inst.Position == nil {
			continue
		}
		held++
		pos := inst.Position
		sb.WriteString(fmt.Sprintf("- **%s**: %.4f shares @ avg %.2f", pos.Ticker, pos.Qty, pos.AvgPrice))
		if pos.HasDate() {
			sb.WriteString(fmt.Sprintf(" (as of %s)", pos.DateString()))
		}
		sb.WriteString("\n")
	}
	if held == 0 {
		sb.WriteString("The portfolio is empty.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func (pb *PromptBuilder) formatMarketData(mc contextbuilder.MarketContext) string {
	var sb strings.Builder

	sb.WriteString("## Market Data\n\n")

	if len(mc.Instruments) == 0 {
		sb.WriteString("No market data available.\n\n")
		return sb.String()
	}

	sb.WriteString("```\n")
	sb.WriteString("Ticker | Date       | Close    | Open     | High     | Low      | Volume     | SMA20    | RSI14\n")
	sb.WriteString("-------|------------|----------|----------|----------|----------|------------|----------|------\n")

	for _, inst := range mc.Instruments {
		if inst.Quote == nil {
			sb.WriteString(fmt.Sprintf("%-6s | no data\n", inst.Ticker))
			continue
		}
		q := inst.Quote

		sb.WriteString(fmt.Sprintf("%-6s | %s | %8.2f | %8.2f | %8.2f | %8.2f | %10d",
			inst.Ticker,
			q.DateString(),
			q.Close.InexactFloat64(),
			q.Open.InexactFloat64(),
			q.High.InexactFloat64(),
			q.Low.InexactFloat64(),
			q.Volume,
		))

		if inst.Indicators != nil {
			sb.WriteString(fmt.Sprintf(" | %8.2f | %5.1f", inst.Indicators.SMA20, inst.Indicators.RSI14))
		} else {
			sb.WriteString(" |        - |     -")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("```\n\n")

	return sb.String()
}

func (pb *PromptBuilder) formatCash(mc contextbuilder.MarketContext) string {
	var sb strings.Builder

	sb.WriteString("## Cash\n\n")
	if mc.HasCash {
		sb.WriteString(fmt.Sprintf("**Balance:** %.2f (recorded %s)\n\n", mc.Cash.Amount, mc.Cash.DateString()))
	} else {
		sb.WriteString("No cash balance recorded yet; treat it as 0.00.\n\n")
	}

	return sb.String()
}

func (pb *PromptBuilder) formatLastOrders(mc contextbuilder.MarketContext) string {
	var sb strings.Builder

	sb.WriteString("## Previous Orders\n\n")
	if len(mc.LastOrders) == 0 {
		sb.WriteString("No prior orders on record.\n\n")
		return sb.String()
	}

	date := mc.LastOrders[0].Date
	sb.WriteString(fmt.Sprintf("Last batch executed %s:\n\n", date))
	for _, row := range mc.LastOrders {
		side := "BUY"
		qty := row.Qty
		if qty < 0 {
			side = "SELL"
			qty = -qty
		}
		sb.WriteString(fmt.Sprintf("- %s %.4f %s @ %.2f\n", side, qty, row.Ticker, row.Price))
	}
	sb.WriteString("\n")

	return sb.String()
}

func (pb *PromptBuilder) formatResearch(mc contextbuilder.MarketContext) string {
	var sb strings.Builder

	sb.WriteString("## Latest Weekly Research\n\n")
	if mc.Research == nil {
		sb.WriteString("No research note on record yet.\n\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Written %s:\n\n", mc.Research.Date.Format("2006-01-02")))
	sb.WriteString(strings.TrimSpace(mc.Research.Text))
	sb.WriteString("\n\n")

	return sb.String()
}
