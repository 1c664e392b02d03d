package clients

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/pkg/retrier"
)

const (
	stooqBaseURL     = "https://stooq.com/q/d/l/"
	stooqHTTPTimeout = 30 * time.Second
)

// QuoteClient fetches end-of-day bars for an instrument.
type QuoteClient interface {
	// DailyHistory returns bars for the ticker between from and to inclusive,
	// oldest first.
	DailyHistory(ctx context.Context, ticker string, from, to time.Time) ([]domain.DailyQuote, error)
}

// StooqClient fetches daily OHLCV bars from the Stooq CSV endpoint. US
// tickers are suffixed with ".us" on the wire; domain tickers stay bare.
type StooqClient struct {
	baseURL    string
	httpClient *http.Client
	retry      *retrier.Retrier
}

// NewStooqClient creates a Stooq client with default timeouts.
func NewStooqClient() *StooqClient {
	return &StooqClient{
		baseURL: stooqBaseURL,
		httpClient: &http.Client{
			Timeout: stooqHTTPTimeout,
		},
		retry: retrier.New(retrier.WithMaxAttempts(3)),
	}
}

// NewStooqClientWithBaseURL creates a client against a custom endpoint.
func NewStooqClientWithBaseURL(baseURL string) *StooqClient {
	c := NewStooqClient()
	c.baseURL = baseURL
	return c
}

// DailyHistory fetches daily bars for the ticker in [from, to], oldest first.
func (c *StooqClient) DailyHistory(ctx context.Context, ticker string, from, to time.Time) ([]domain.DailyQuote, error) {
	ticker = domain.CleanTicker(ticker)
	if ticker == "" {
		return nil, errors.New("empty ticker")
	}

	query := url.Values{}
	query.Set("s", stooqSymbol(ticker))
	query.Set("i", "d")
	query.Set("d1", from.Format("20060102"))
	query.Set("d2", to.Format("20060102"))
	reqURL := c.baseURL + "?" + query.Encode()

	body, err := retrier.DoWithData(c.retry, ctx, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, reqURL)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch quotes for %s", ticker)
	}

	quotes, err := parseStooqCSV(ticker, body)
	if err != nil {
		return nil, errors.Wrapf(err, "parse quotes for %s", ticker)
	}
	return quotes, nil
}

func (c *StooqClient) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("quote provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	return body, nil
}

// stooqSymbol maps a plain US equity ticker to the Stooq wire symbol.
func stooqSymbol(ticker string) string {
	lower := strings.ToLower(ticker)
	if strings.Contains(lower, ".") {
		return lower
	}
	return lower + ".us"
}

func parseStooqCSV(ticker string, body []byte) ([]domain.DailyQuote, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read CSV")
	}
	if len(records) < 2 {
		// header only or "No data" body
		return nil, nil
	}

	quotes := make([]domain.DailyQuote, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 6 {
			continue
		}

		day, err := time.Parse(domain.DateLayout, record[0])
		if err != nil {
			continue
		}

		open, err1 := decimal.NewFromString(record[1])
		high, err2 := decimal.NewFromString(record[2])
		low, err3 := decimal.NewFromString(record[3])
		closePrice, err4 := decimal.NewFromString(record[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, fmt.Errorf("malformed price row for %s on %s", ticker, record[0])
		}

		volume, err := strconv.ParseFloat(record[5], 64)
		if err != nil {
			volume = 0
		}

		quotes = append(quotes, domain.DailyQuote{
			Date:   day,
			Ticker: ticker,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: int64(volume),
		})
	}

	return quotes, nil
}
