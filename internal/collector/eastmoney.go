package collector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/model"
)

const (
	eastMoneyBaseURL = "https://push2his.eastmoney.com"
	eastMoneyKLine   = "/api/qt/stock/kline/get"
	eastMoneyReferer = "https://quote.eastmoney.com/"
)

// EastMoneyFetcher reads daily klines from the eastmoney push2his API.
// It covers both mainland and Hong Kong indices.
type EastMoneyFetcher struct {
	src *httpSource
}

func NewEastMoneyFetcher(cfg ClientConfig) *EastMoneyFetcher {
	return &EastMoneyFetcher{src: newHTTPSource("eastmoney", eastMoneyBaseURL, eastMoneyReferer, cfg)}
}

func (f *EastMoneyFetcher) Name() string { return "eastmoney" }

// secID maps sh000001 -> 1.000001, sz399006 -> 0.399006 and HSI -> 100.HSI.
func secID(code string) string {
	market, symbol := splitMarket(code)
	switch market {
	case "sh":
		return "1." + symbol
	case "sz":
		return "0." + symbol
	default:
		return "100." + strings.ToUpper(symbol)
	}
}

func (f *EastMoneyFetcher) FetchDaily(ctx context.Context, spec model.IndexSpec) ([]model.PricePoint, error) {
	q := url.Values{}
	q.Set("secid", secID(spec.SymbolCode))
	q.Set("fields1", "f1,f2,f3")
	q.Set("fields2", "f51,f53") // date, close
	q.Set("klt", "101")         // daily
	q.Set("fqt", "0")
	q.Set("beg", "19900101")
	q.Set("end", "20500101")
	q.Set("lmt", strconv.Itoa(f.src.cfg.HistoryLimit))

	body, err := f.src.get(ctx, eastMoneyKLine, q)
	if err != nil {
		return nil, err
	}
	return parseEastMoneyKLines(body)
}

// parseEastMoneyKLines reads data.klines, an array of "date,close" CSV rows.
func parseEastMoneyKLines(body []byte) ([]model.PricePoint, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("eastmoney: invalid json")
	}
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.IsArray() || len(klines.Array()) == 0 {
		return nil, errs.ErrEmptyPayload
	}

	rows := klines.Array()
	points := make([]model.PricePoint, 0, len(rows))
	for _, row := range rows {
		fields := strings.Split(row.String(), ",")
		if len(fields) < 2 {
			return nil, fmt.Errorf("eastmoney: malformed kline %q", row.String())
		}
		date, err := model.ParseDate(fields[0])
		if err != nil {
			return nil, fmt.Errorf("eastmoney: kline date: %w", err)
		}
		closePrice, err := decimal.NewFromString(fields[1])
		if err != nil {
			return nil, fmt.Errorf("eastmoney: kline close: %w", err)
		}
		points = append(points, model.PricePoint{Date: date, Close: closePrice})
	}
	return points, nil
}
