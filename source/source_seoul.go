package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultBaseURL is the Seoul open-data API root.
	DefaultBaseURL = "http://openapi.seoul.go.kr:8088"

	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of an error response ends up in StatusError.
	maxErrorBody = 256
)

type SeoulConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// APIKey is placed in the request path. It is never logged or returned in errors.
	APIKey string
	// Timeout per request, DefaultTimeout when zero.
	Timeout time.Duration
	// HTTPClient overrides the underlying transport (tests, proxies).
	HTTPClient *http.Client
}

// SourceSeoul reads the bikeList dataset of the Seoul open-data API.
type SourceSeoul struct {
	client *resty.Client
	apiKey string
}

func NewSeoul(cfg SeoulConfig) *SourceSeoul {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var client *resty.Client
	if cfg.HTTPClient != nil {
		client = resty.NewWithClient(cfg.HTTPClient)
	} else {
		client = resty.New()
	}
	client.SetBaseURL(strings.TrimRight(base, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &SourceSeoul{client: client, apiKey: cfg.APIKey}
}

// FetchPage requests /<key>/json/bikeList/<start>/<end>/.
func (s *SourceSeoul) FetchPage(ctx context.Context, start, end int) (Page, error) {
	if start < 1 || end < start {
		return Page{}, fmt.Errorf("invalid range [%d, %d]", start, end)
	}

	path := fmt.Sprintf("/%s/json/bikeList/%d/%d/", url.PathEscape(s.apiKey), start, end)
	res, err := s.client.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return Page{}, s.redact(fmt.Errorf("get bikeList [%d, %d]: %w", start, end, err))
	}

	if !res.IsSuccess() {
		body := strings.TrimSpace(string(res.Body()))
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return Page{}, s.redact(fmt.Errorf("get bikeList [%d, %d]: %w", start, end,
			&StatusError{StatusCode: res.StatusCode(), Body: body}))
	}

	return ParsePage(res.Body()), nil
}

// redactedError hides the API key from the message but keeps the chain intact
// for errors.As.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func (s *SourceSeoul) redact(err error) error {
	if s.apiKey == "" {
		return err
	}
	msg := err.Error()
	for _, k := range []string{s.apiKey, url.PathEscape(s.apiKey)} {
		msg = strings.ReplaceAll(msg, k, "REDACTED")
	}
	return &redactedError{msg: msg, err: err}
}
