package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	ProdBaseURL = "https://api.elections.kalshi.com/trade-api/v2"
	DemoBaseURL = "https://demo-api.kalshi.co/trade-api/v2"

	// Rate limits al 60% del tier básico documentado.
	// Lecturas: 20/s → 12/s
	readRatePerSec = 12
	// Escrituras (órdenes, cancelaciones): 10/s → 6/s
	writeRatePerSec = 6

	headerKey       = "KALSHI-ACCESS-KEY"
	headerTimestamp = "KALSHI-ACCESS-TIMESTAMP"
	headerSignature = "KALSHI-ACCESS-SIGNATURE"
)

// BaseURL devuelve el endpoint del entorno dado ("demo" o "prod").
func BaseURL(env string) (string, error) {
	switch strings.ToLower(env) {
	case "", "prod", "production":
		return ProdBaseURL, nil
	case "demo":
		return DemoBaseURL, nil
	}
	return "", fmt.Errorf("kalshi.BaseURL: unknown environment %q", env)
}

// APIError es una respuesta no-2xx del exchange.
type APIError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client es el HTTP client de Kalshi con rate limiting y firma de requests.
// No reintenta: un fallo se devuelve y el siguiente ciclo vuelve a pedir.
type Client struct {
	http         *http.Client
	base         *url.URL
	signer       *Signer
	readLimiter  *rate.Limiter
	writeLimiter *rate.Limiter
	now          func() time.Time
}

// NewClient crea un Client contra baseURL. signer puede ser nil si solo se
// usan endpoints públicos (incentivos, mercados, orderbooks).
func NewClient(baseURL string, signer *Signer) (*Client, error) {
	if baseURL == "" {
		baseURL = ProdBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("kalshi.NewClient: parse base url: %w", err)
	}
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		base:         u,
		signer:       signer,
		readLimiter:  rate.NewLimiter(readRatePerSec, 5),
		writeLimiter: rate.NewLimiter(writeRatePerSec, 2),
		now:          time.Now,
	}, nil
}

// get hace un GET con rate limiting de lectura.
func (c *Client) get(ctx context.Context, path string, query url.Values, signed bool, out any) error {
	return c.do(ctx, c.readLimiter, http.MethodGet, path, query, nil, signed, out)
}

// post hace un POST JSON firmado con rate limiting de escritura.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, c.writeLimiter, http.MethodPost, path, nil, body, true, out)
}

// delete hace un DELETE firmado con rate limiting de escritura.
func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, c.writeLimiter, http.MethodDelete, path, nil, nil, true, out)
}

func (c *Client) do(ctx context.Context, limiter *rate.Limiter, method, path string, query url.Values, body any, signed bool, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if signed {
		if c.signer == nil {
			return fmt.Errorf("%s %s: authenticated endpoint without credentials", method, path)
		}
		ts := strconv.FormatInt(c.now().UnixMilli(), 10)
		sig, err := c.signer.Sign(ts, method, u.Path)
		if err != nil {
			return fmt.Errorf("sign request: %w", err)
		}
		req.Header.Set(headerKey, c.signer.KeyID())
		req.Header.Set(headerTimestamp, ts)
		req.Header.Set(headerSignature, sig)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Method: method, Path: path, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
