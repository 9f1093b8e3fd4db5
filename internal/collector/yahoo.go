package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/model"
)

const (
	yahooBaseURL = "https://query1.finance.yahoo.com"
	yahooReferer = "https://finance.yahoo.com/"
)

// YahooFetcher implements Provider using the Yahoo Finance public chart API.
type YahooFetcher struct {
	src       *httpSource
	SymbolMap map[string]string // maps index code to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(cfg ClientConfig) *YahooFetcher {
	return &YahooFetcher{
		src: newHTTPSource("yahoo", yahooBaseURL, yahooReferer, cfg),
		SymbolMap: map[string]string{
			"HSI":    "^HSI",
			"HSCEI":  "^HSCE",
			"HSTECH": "HSTECH.HK",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(code string) string {
	if mapped, ok := f.SymbolMap[strings.ToUpper(code)]; ok {
		return mapped
	}
	switch market, symbol := splitMarket(code); market {
	case "sh":
		return symbol + ".SS"
	case "sz":
		return symbol + ".SZ"
	default:
		return symbol
	}
}

func (f *YahooFetcher) FetchDaily(ctx context.Context, spec model.IndexSpec) ([]model.PricePoint, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", "max")

	body, err := f.src.get(ctx, "/v8/finance/chart/"+url.PathEscape(f.yahooSymbol(spec.SymbolCode)), q)
	if err != nil {
		return nil, err
	}
	return parseYahooChart(body)
}

// parseYahooChart reads chart.result[0]. Timestamps are shifted by the
// exchange gmtoffset so each bar lands on its local trading date. Null closes
// (holidays, halted sessions) are skipped.
func parseYahooChart(body []byte) ([]model.PricePoint, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("yahoo: invalid json")
	}
	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() {
		return nil, fmt.Errorf("yahoo api error: %s", desc.String())
	}

	result := gjson.GetBytes(body, "chart.result.0")
	stamps := result.Get("timestamp").Array()
	closes := result.Get("indicators.quote.0.close").Array()
	if len(stamps) == 0 {
		return nil, errs.ErrEmptyPayload
	}
	if len(closes) != len(stamps) {
		return nil, fmt.Errorf("yahoo: %d timestamps but %d closes", len(stamps), len(closes))
	}
	offset := result.Get("meta.gmtoffset").Int()

	points := make([]model.PricePoint, 0, len(stamps))
	for i, ts := range stamps {
		c := closes[i]
		if c.Type == gjson.Null {
			continue
		}
		closePrice, err := decimal.NewFromString(c.String())
		if err != nil {
			return nil, fmt.Errorf("yahoo: close: %w", err)
		}
		date := model.CalendarDate(time.Unix(ts.Int()+offset, 0).UTC())
		points = append(points, model.PricePoint{Date: date, Close: closePrice})
	}
	if len(points) == 0 {
		return nil, errs.ErrEmptyPayload
	}
	return points, nil
}
