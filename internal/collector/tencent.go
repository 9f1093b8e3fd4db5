package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/model"
)

const (
	tencentBaseURL = "https://web.ifzq.gtimg.cn"
	tencentKLine   = "/appstock/app/fqkline/get"
	tencentReferer = "https://gu.qq.com/"
)

// TencentFetcher reads daily klines from the gtimg fqkline API.
type TencentFetcher struct {
	src *httpSource
}

func NewTencentFetcher(cfg ClientConfig) *TencentFetcher {
	return &TencentFetcher{src: newHTTPSource("tencent", tencentBaseURL, tencentReferer, cfg)}
}

func (f *TencentFetcher) Name() string { return "tencent" }

// tencentCode keeps sh/sz codes as they are and prefixes anything else with hk.
func tencentCode(code string) string {
	market, symbol := splitMarket(code)
	if market != "" {
		return market + symbol
	}
	return "hk" + strings.ToUpper(symbol)
}

func (f *TencentFetcher) FetchDaily(ctx context.Context, spec model.IndexSpec) ([]model.PricePoint, error) {
	code := tencentCode(spec.SymbolCode)
	q := url.Values{}
	q.Set("param", fmt.Sprintf("%s,day,,,%d,", code, f.src.cfg.HistoryLimit))

	body, err := f.src.get(ctx, tencentKLine, q)
	if err != nil {
		return nil, err
	}
	return parseTencentKLines(body, code)
}

// parseTencentKLines reads data.<code>.day (or qfqday) rows of
// [date, open, close, high, low, volume].
func parseTencentKLines(body []byte, code string) ([]model.PricePoint, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("tencent: invalid json")
	}
	if rc := gjson.GetBytes(body, "code"); rc.Exists() && rc.Int() != 0 {
		return nil, fmt.Errorf("tencent: api code %d: %s", rc.Int(), gjson.GetBytes(body, "msg").String())
	}

	node := gjson.GetBytes(body, "data."+code)
	rows := node.Get("day")
	if !rows.IsArray() {
		rows = node.Get("qfqday")
	}
	if !rows.IsArray() || len(rows.Array()) == 0 {
		return nil, errs.ErrEmptyPayload
	}

	arr := rows.Array()
	points := make([]model.PricePoint, 0, len(arr))
	for _, row := range arr {
		cols := row.Array()
		if len(cols) < 3 {
			return nil, fmt.Errorf("tencent: malformed kline %s", row.Raw)
		}
		date, err := model.ParseDate(cols[0].String())
		if err != nil {
			return nil, fmt.Errorf("tencent: kline date: %w", err)
		}
		closePrice, err := decimal.NewFromString(cols[2].String())
		if err != nil {
			return nil, fmt.Errorf("tencent: kline close: %w", err)
		}
		points = append(points, model.PricePoint{Date: date, Close: closePrice})
	}
	return points, nil
}
