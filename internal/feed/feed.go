package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/estensen/roi-dashboard/internal/models"
	"github.com/estensen/roi-dashboard/internal/parser"
)

var (
	ErrHTTPStatus      = errors.New("unexpected HTTP status from wallet API")
	ErrInvalidResponse = errors.New("invalid wallet API response")
)

const (
	DefaultPageSize = 50
	DefaultMaxPages = 200
	DefaultTimeout  = 15 * time.Second

	transactionsPath = "/transactions/history"
	investmentsPath  = "/investments/my"
)

// Source supplies the two feeds the dashboard reconciles.
type Source interface {
	FetchTransactions(ctx context.Context) ([]models.Transaction, error)
	FetchInvestments(ctx context.Context) ([]models.Investment, error)
}

// Client reads the wallet backend's transaction history and investment list.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	maxPages   int
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
	fetchFunc  func(req *http.Request) (*http.Response, error)
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithRateLimit caps outbound requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   DefaultPageSize,
		maxPages:   DefaultMaxPages,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	c.fetchFunc = c.httpClient.Do
	return c
}

// FetchTransactions walks the paged history until the last page.
func (c *Client) FetchTransactions(ctx context.Context) ([]models.Transaction, error) {
	var all []models.Transaction

	for page := 1; page <= c.maxPages; page++ {
		body, err := c.get(ctx, transactionsPath, url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(c.pageSize)},
		})
		if err != nil {
			return nil, fmt.Errorf("error fetching transaction page %d: %w", page, err)
		}

		txs, pagination, err := parser.DecodeTransactions(body)
		if err != nil {
			return nil, fmt.Errorf("%w: transaction page %d: %v", ErrInvalidResponse, page, err)
		}
		all = append(all, txs...)

		if lastPage(page, len(txs), c.pageSize, pagination) {
			c.logger.Debug("fetched transaction history", "pages", page, "count", len(all))
			if all == nil {
				all = []models.Transaction{}
			}
			return all, nil
		}
	}

	c.logger.Warn("transaction history truncated", "max_pages", c.maxPages, "count", len(all))
	return all, nil
}

func lastPage(page, got, pageSize int, p *parser.Pagination) bool {
	if p != nil && p.TotalPages > 0 {
		return page >= p.TotalPages
	}
	return got < pageSize
}

// FetchInvestments fetches the current user's investments.
func (c *Client) FetchInvestments(ctx context.Context) ([]models.Investment, error) {
	body, err := c.get(ctx, investmentsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching investments: %w", err)
	}

	invs, err := parser.DecodeInvestments(body)
	if err != nil {
		return nil, fmt.Errorf("%w: investments: %v", ErrInvalidResponse, err)
	}
	c.logger.Debug("fetched investments", "count", len(invs))
	return invs, nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// get performs a rate-limited authenticated GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path, query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.fetchFunc(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrInvalidResponse, err)
	}
	return body, nil
}
