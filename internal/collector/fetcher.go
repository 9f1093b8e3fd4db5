package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"IndexDeviation/internal/model"
)

// Provider fetches the full daily close history of one index from one upstream source.
type Provider interface {
	Name() string
	FetchDaily(ctx context.Context, spec model.IndexSpec) ([]model.PricePoint, error)
}

// ClientConfig is the per-provider HTTP session configuration.
type ClientConfig struct {
	Timeout           time.Duration
	Proxy             string
	UserAgent         string
	Referer           string
	RequestsPerSecond float64
	HistoryLimit      int
	// BaseURL replaces the adapter's public endpoint when set.
	BaseURL string
}

const (
	defaultTimeout      = 30 * time.Second
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultHistoryLimit = 10000
	maxErrBodyLen       = 300
)

// NewProvider builds a named adapter with its own HTTP client.
func NewProvider(name string, cfg ClientConfig) (Provider, error) {
	switch strings.ToLower(name) {
	case "eastmoney":
		return NewEastMoneyFetcher(cfg), nil
	case "tencent":
		return NewTencentFetcher(cfg), nil
	case "sina":
		return NewSinaFetcher(cfg), nil
	case "yahoo":
		return NewYahooFetcher(cfg), nil
	case "mock":
		return &MockProvider{HistoryLen: cfg.HistoryLimit}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// httpSource is the HTTP plumbing shared by the adapters.
type httpSource struct {
	name    string
	baseURL string
	cfg     ClientConfig
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPSource(name, defaultBase, defaultReferer string, cfg ClientConfig) *httpSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Referer == "" {
		cfg.Referer = defaultReferer
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	base := defaultBase
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}

	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &httpSource{
		name:    name,
		baseURL: base,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// get issues one paced GET and returns the body of a 200 response.
func (s *httpSource) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Referer", s.cfg.Referer)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", s.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrBodyLen {
			body = body[:maxErrBodyLen]
		}
		return nil, fmt.Errorf("%s: status %d, body: %s", s.name, resp.StatusCode, string(body))
	}
	return body, nil
}

// splitMarket splits "sh000001" into ("sh", "000001"). Codes without a
// mainland exchange prefix come back with an empty market.
func splitMarket(code string) (market, symbol string) {
	c := strings.TrimSpace(code)
	lower := strings.ToLower(c)
	if len(c) > 2 && (strings.HasPrefix(lower, "sh") || strings.HasPrefix(lower, "sz")) {
		return lower[:2], c[2:]
	}
	return "", c
}
