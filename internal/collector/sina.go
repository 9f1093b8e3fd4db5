package collector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/model"
)

const (
	sinaBaseURL = "https://money.finance.sina.com.cn"
	sinaKLine   = "/quotes_service/api/json_v2.php/CN_MarketData.getKLineData"
	sinaReferer = "https://finance.sina.com.cn/"
)

// SinaFetcher reads daily klines from the sina CN_MarketData API. Mainland codes only.
type SinaFetcher struct {
	src *httpSource
}

func NewSinaFetcher(cfg ClientConfig) *SinaFetcher {
	return &SinaFetcher{src: newHTTPSource("sina", sinaBaseURL, sinaReferer, cfg)}
}

func (f *SinaFetcher) Name() string { return "sina" }

func (f *SinaFetcher) FetchDaily(ctx context.Context, spec model.IndexSpec) ([]model.PricePoint, error) {
	market, symbol := splitMarket(spec.SymbolCode)
	if market == "" {
		return nil, fmt.Errorf("sina: unsupported symbol %q", spec.SymbolCode)
	}

	q := url.Values{}
	q.Set("symbol", market+symbol)
	q.Set("scale", "240")
	q.Set("ma", "no")
	q.Set("datalen", strconv.Itoa(f.src.cfg.HistoryLimit))

	body, err := f.src.get(ctx, sinaKLine, q)
	if err != nil {
		return nil, err
	}
	return parseSinaKLines(body)
}

// parseSinaKLines reads a top-level array of {day, open, high, low, close, volume}.
func parseSinaKLines(body []byte) ([]model.PricePoint, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("sina: invalid json")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() || len(root.Array()) == 0 {
		return nil, errs.ErrEmptyPayload
	}

	rows := root.Array()
	points := make([]model.PricePoint, 0, len(rows))
	for _, row := range rows {
		date, err := model.ParseDate(row.Get("day").String())
		if err != nil {
			return nil, fmt.Errorf("sina: kline date: %w", err)
		}
		closePrice, err := decimal.NewFromString(row.Get("close").String())
		if err != nil {
			return nil, fmt.Errorf("sina: kline close: %w", err)
		}
		points = append(points, model.PricePoint{Date: date, Close: closePrice})
	}
	return points, nil
}
