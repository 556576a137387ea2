package okx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"CoinScout/internal/domain/models"
	drepo "CoinScout/internal/domain/repository"
	"CoinScout/internal/service/ratelimit"
	"CoinScout/pkg/config"
	xhttp "CoinScout/pkg/http"
	applogger "CoinScout/pkg/logger"
	"CoinScout/pkg/util"

	"github.com/tidwall/gjson"
)

const (
	maxCandleLimit = 300
	candleKey      = "okx:candles"
)

// Client talks to the OKX v5 public market-data REST API.
type Client struct {
	baseURL       string
	instType      string
	http          *xhttp.Client
	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	limiter       *ratelimit.Limiter
	candleRate    float64
	candleBurst   float64
	log           *applogger.Logger
}

// Option configures Client.
type Option func(*Client)

// WithLimiter shares a rate limiter for candle requests.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the client logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a client from the okx config section.
func NewClient(cfg config.OKX, opts ...Option) *Client {
	c := &Client{
		baseURL:       cfg.BaseURL,
		instType:      cfg.InstType,
		http:          xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithUserAgent("coinscout/1.0")),
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
		maxRetryDelay: cfg.MaxRetryDelay,
		candleRate:    cfg.CandleRate,
		candleBurst:   float64(cfg.CandleBurst),
		log:           applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New()
	}
	return c
}

type tickerResponse struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data []rawTicker `json:"data"`
}

type rawTicker struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	Open24h   string `json:"open24h"`
	High24h   string `json:"high24h"`
	Low24h    string `json:"low24h"`
	Vol24h    string `json:"vol24h"`
	VolCcy24h string `json:"volCcy24h"`
	Ts        string `json:"ts"`
}

// FetchTickers returns every spot ticker reported by the exchange.
func (c *Client) FetchTickers(ctx context.Context) ([]models.Ticker, error) {
	const op = "tickers"
	body, err := c.getWithRetry(ctx, op, "/market/tickers", map[string][]string{
		"instType": {c.instType},
	})
	if err != nil {
		return nil, err
	}

	var resp tickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponseError{Op: op, Err: err}
	}
	if resp.Code != "0" {
		return nil, &MalformedResponseError{Op: op, Code: resp.Code, Msg: resp.Msg}
	}
	if len(resp.Data) == 0 {
		return nil, &MalformedResponseError{Op: op, Msg: "empty ticker list"}
	}

	now := time.Now()
	out := make([]models.Ticker, 0, len(resp.Data))
	for _, r := range resp.Data {
		if r.InstID == "" {
			continue
		}
		out = append(out, models.Ticker{
			InstID:    r.InstID,
			Last:      util.ParseFloatDefault(r.Last, 0),
			Open24h:   util.ParseFloatDefault(r.Open24h, 0),
			High24h:   util.ParseFloatDefault(r.High24h, 0),
			Low24h:    util.ParseFloatDefault(r.Low24h, 0),
			Vol24h:    util.ParseFloatDefault(r.Vol24h, 0),
			VolCcy24h: util.ParseFloatDefault(r.VolCcy24h, 0),
			Timestamp: util.ParseTimeDefault(r.Ts, now),
		})
	}
	return out, nil
}

// FetchCandles returns up to limit candles for instID in ascending time order.
// OKX returns rows newest first as [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm].
func (c *Client) FetchCandles(ctx context.Context, instID string, bar drepo.Bar, limit int) ([]models.Candle, error) {
	const op = "candles"
	if limit <= 0 || limit > maxCandleLimit {
		limit = maxCandleLimit
	}
	if err := c.limiter.Wait(ctx, candleKey, c.candleBurst, c.candleRate); err != nil {
		return nil, err
	}

	body, err := c.getWithRetry(ctx, op, "/market/candles", map[string][]string{
		"instId": {instID},
		"bar":    {string(bar)},
		"limit":  {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, &MalformedResponseError{Op: op, Msg: "invalid json"}
	}
	if code := gjson.GetBytes(body, "code").String(); code != "0" {
		return nil, &MalformedResponseError{Op: op, Code: code, Msg: gjson.GetBytes(body, "msg").String()}
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, &MalformedResponseError{Op: op, Msg: "data is not an array"}
	}

	rows := data.Array()
	out := make([]models.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		cols := rows[i].Array()
		if len(cols) < 6 {
			continue
		}
		out = append(out, models.Candle{
			Bucket: time.UnixMilli(cols[0].Int()),
			Symbol: instID,
			Open:   cols[1].Float(),
			High:   cols[2].Float(),
			Low:    cols[3].Float(),
			Close:  cols[4].Float(),
			Volume: cols[5].Float(),
		})
	}
	return out, nil
}

// GetLatestNCandles implements drepo.CandleSource.
func (c *Client) GetLatestNCandles(ctx context.Context, instID string, n int, bar drepo.Bar) ([]models.Candle, error) {
	return c.FetchCandles(ctx, instID, bar, n)
}

func (c *Client) getWithRetry(ctx context.Context, op, path string, query map[string][]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		body, err := c.get(ctx, op, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var te *TransportError
		if ctx.Err() != nil || !errors.As(err, &te) || !te.Temporary() || attempt == c.maxRetries {
			break
		}

		delay := c.backoff(attempt)
		c.log.Debug("okx request retry",
			applogger.String("op", op),
			applogger.Int("attempt", attempt+1),
			applogger.Duration("delay_ms", delay),
			applogger.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, &TransportError{Op: op, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (c *Client) get(ctx context.Context, op, path string, query map[string][]string) ([]byte, error) {
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: query,
		Headers:     map[string]string{"Accept": "application/json"},
	}, &body)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return nil, &TransportError{Op: op, StatusCode: se.StatusCode, Err: fmt.Errorf("%s", se.Body)}
		}
		return nil, &TransportError{Op: op, Err: err}
	}
	return body, nil
}

// backoff is retryDelay * 2^attempt, capped at maxRetryDelay, plus up to 10% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := float64(c.retryDelay) * math.Pow(2, float64(attempt))
	if c.maxRetryDelay > 0 && d > float64(c.maxRetryDelay) {
		d = float64(c.maxRetryDelay)
	}
	d += d * 0.1 * rand.Float64()
	return time.Duration(d)
}
