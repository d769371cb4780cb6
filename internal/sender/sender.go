package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-yaml"

	"github.com/bugfreev587/openshift-utilization/internal/models"
)

// Sender delivers a finished report somewhere.
type Sender interface {
	Send(ctx context.Context, report models.Report) error
}

// Encode renders the report as "json" (indented) or "yaml".
func Encode(report models.Report, format string) ([]byte, error) {
	switch format {
	case "", "json":
		return json.MarshalIndent(report, "", "  ")
	case "yaml":
		return yaml.Marshal(report)
	}
	return nil, fmt.Errorf("unsupported output format %q", format)
}

// FileSender writes the encoded report to Path, or to Out when Path is "" or "-".
type FileSender struct {
	Path   string
	Format string
	Out    io.Writer
}

func NewFileSender(path, format string) *FileSender {
	return &FileSender{Path: path, Format: format, Out: os.Stdout}
}

func (s *FileSender) Send(ctx context.Context, report models.Report) error {
	body, err := Encode(report, s.Format)
	if err != nil {
		return err
	}
	body = append(body, '\n')
	if s.Path == "" || s.Path == "-" {
		_, err := s.Out.Write(body)
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return os.Rename(tmp, s.Path)
}

// HTTPSender POSTs the report JSON to a webhook.
type HTTPSender struct {
	Client         *http.Client
	URL            string
	APIKey         string
	MaxElapsedTime time.Duration
}

func NewHTTPSender(url, apiKey string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		Client:         &http.Client{Timeout: timeout},
		URL:            url,
		APIKey:         apiKey,
		MaxElapsedTime: 2 * time.Minute,
	}
}

func (s *HTTPSender) Send(ctx context.Context, report models.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}

	// exponential backoff for transient errors
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.MaxElapsedTime

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if s.APIKey != "" {
			req.Header.Set("Authorization", "ApiKey "+s.APIKey)
		}
		if report.RunID != "" {
			req.Header.Set("X-Run-ID", report.RunID)
		}

		resp, err := s.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		// treat 4xx as permanent (except 429)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(b)))
		}
		// otherwise retry
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(b))
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// MultiSender sends to every sender in order and joins their errors.
type MultiSender []Sender

func (m MultiSender) Send(ctx context.Context, report models.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
