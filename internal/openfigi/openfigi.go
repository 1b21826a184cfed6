package openfigi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

// Resolver maps CUSIPs to tickers. Implementations never fail: identifiers that
// cannot be resolved for any reason map to NotFound.
type Resolver interface {
	MapCUSIPs(ctx context.Context, cusips []string) map[string]string
	Resolve(ctx context.Context, cusips []string) map[string]model.Identifier
}

var errRateLimited = errors.New("openfigi rate limit exceeded")

// Client calls the OpenFIGI mapping API.
type Client struct {
	httpClient    *http.Client
	url           string
	apiKey        string
	maxRetries    int
	retryInterval time.Duration
	limiter       ratelimit.Limiter
	log           *logrus.Logger
}

// NewClient creates a mapping client from configuration.
// A RequestsPerMinute of zero or less disables client-side pacing.
func NewClient(cfg config.OpenFIGIConfig, logger *logrus.Logger) *Client {
	limiter := ratelimit.NewUnlimited()
	if cfg.RequestsPerMinute > 0 {
		limiter = ratelimit.New(cfg.RequestsPerMinute, ratelimit.Per(time.Minute))
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		url:           cfg.URL,
		apiKey:        cfg.APIKey,
		maxRetries:    max(cfg.MaxRetries, 0),
		retryInterval: time.Second,
		limiter:       limiter,
		log:           logger,
	}
}

// WithRetryInterval sets the initial backoff interval used after a 429 response.
func (c *Client) WithRetryInterval(d time.Duration) *Client {
	c.retryInterval = d
	return c
}

// BatchSize returns the number of jobs sent per request.
func (c *Client) BatchSize() int {
	if c.apiKey != "" {
		return maxJobsWithKey
	}
	return maxJobsAnonymous
}

// MapCUSIPs resolves each CUSIP to a ticker or NotFound.
// Every input CUSIP is present in the result.
func (c *Client) MapCUSIPs(ctx context.Context, cusips []string) map[string]string {
	resolved := c.Resolve(ctx, cusips)
	return lo.MapValues(resolved, func(id model.Identifier, _ string) string {
		return id.Ticker
	})
}

// Resolve resolves each CUSIP to an identifier carrying ticker, name and security type.
// Input is de-duplicated and sent in batches; a failed batch maps every one of
// its CUSIPs to NotFound and the remaining batches still run.
func (c *Client) Resolve(ctx context.Context, cusips []string) map[string]model.Identifier {
	unique := lo.Uniq(lo.FilterMap(cusips, func(cusip string, _ int) (string, bool) {
		cusip = normalizeCUSIP(cusip)
		return cusip, cusip != ""
	}))

	result := make(map[string]model.Identifier, len(cusips))
	for _, batch := range lo.Chunk(unique, c.BatchSize()) {
		mapped, err := c.mapBatch(ctx, batch)
		if err != nil {
			c.log.WithError(err).WithField("cusips", len(batch)).Warn("openfigi batch failed, marking as not found")
			mapped = notFound(batch)
		}
		for k, v := range mapped {
			result[k] = v
		}
	}

	// Report the caller's spelling of each CUSIP as well as the normalised one.
	for _, cusip := range cusips {
		if _, ok := result[cusip]; ok {
			continue
		}
		if id, ok := result[normalizeCUSIP(cusip)]; ok {
			result[cusip] = id
			continue
		}
		result[cusip] = model.Identifier{CUSIP: cusip, Ticker: NotFound}
	}
	return result
}

// mapBatch sends one mapping request, retrying only on HTTP 429.
func (c *Client) mapBatch(ctx context.Context, batch []string) (map[string]model.Identifier, error) {
	jobs := lo.Map(batch, func(cusip string, _ int) mappingJob {
		return mappingJob{IDType: "ID_CUSIP", IDValue: cusip}
	})
	body, err := json.Marshal(jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mapping request: %w", err)
	}

	var results []mappingResult
	operation := func() error {
		c.limiter.Take()

		res, err := c.post(ctx, body)
		if errors.Is(err, errRateLimited) {
			c.log.WithField("cusips", len(batch)).Debug("openfigi rate limited, backing off")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		results = res
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx))
	if err != nil {
		return nil, err
	}

	if len(results) != len(batch) {
		return nil, fmt.Errorf("openfigi returned %d results for %d jobs", len(results), len(batch))
	}

	mapped := make(map[string]model.Identifier, len(batch))
	for i, cusip := range batch {
		mapped[cusip] = toIdentifier(cusip, results[i])
	}
	return mapped, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]mappingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openfigi returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var results []mappingResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to decode mapping response: %w", err)
	}
	return results, nil
}

func toIdentifier(cusip string, r mappingResult) model.Identifier {
	if r.Error != "" || r.Warning != "" || len(r.Data) == 0 || r.Data[0].Ticker == "" {
		return model.Identifier{CUSIP: cusip, Ticker: NotFound}
	}
	first := r.Data[0]
	return model.Identifier{
		CUSIP:        cusip,
		Ticker:       strings.ToUpper(first.Ticker),
		Name:         first.Name,
		SecurityType: first.securityType(),
	}
}

func notFound(batch []string) map[string]model.Identifier {
	return lo.SliceToMap(batch, func(cusip string) (string, model.Identifier) {
		return cusip, model.Identifier{CUSIP: cusip, Ticker: NotFound}
	})
}

func normalizeCUSIP(cusip string) string {
	return strings.ToUpper(strings.TrimSpace(cusip))
}
