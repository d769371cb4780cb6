package reportapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bugfreev587/openshift-utilization/internal/models"
)

// Options configures a Client.
type Options struct {
	BaseURL            string
	AuthToken          string
	Timeout            time.Duration
	RetryMaxElapsed    time.Duration // 0 disables retries
	RequestsPerSecond  float64       // 0 means unlimited
	InsecureSkipVerify bool
	Logger             *zap.Logger
}

// Client talks to the utilization reports endpoint.
type Client struct {
	HTTP            *http.Client
	BaseURL         string
	AuthToken       string
	RetryMaxElapsed time.Duration

	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(opts Options) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed report endpoints
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		HTTP:            &http.Client{Timeout: opts.Timeout, Transport: transport},
		BaseURL:         opts.BaseURL,
		AuthToken:       opts.AuthToken,
		RetryMaxElapsed: opts.RetryMaxElapsed,
		limiter:         limiter,
		logger:          logger,
	}
}

func (c *Client) FetchCapacityPage(ctx context.Context, q models.Query) (*models.Page[models.CapacityRecord], error) {
	var page models.Page[models.CapacityRecord]
	if err := c.post(ctx, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) FetchUsagePage(ctx context.Context, q models.Query) (*models.Page[models.UsageRecord], error) {
	var page models.Page[models.UsageRecord]
	if err := c.post(ctx, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) post(ctx context.Context, q models.Query, out interface{}) error {
	body, err := json.Marshal(q)
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
			return nil
		}
		b, _ := io.ReadAll(resp.Body)
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
		// treat 4xx as permanent (except 429)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(statusErr)
		}
		return statusErr
	}

	var bo backoff.BackOff = &backoff.StopBackOff{}
	if c.RetryMaxElapsed > 0 {
		ebo := backoff.NewExponentialBackOff()
		ebo.MaxElapsedTime = c.RetryMaxElapsed
		bo = ebo
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("report request failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	}
	return backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify)
}
