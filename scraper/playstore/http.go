package playstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPTransport calls the review RPC directly over HTTPS.
type HTTPTransport struct {
	client *resty.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport against baseURL (DefaultBaseURL when empty).
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTransport{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent),
	}
}

func (t *HTTPTransport) BatchExecute(ctx context.Context, _ string, lang, country, body string) (string, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"hl": lang, "gl": country}).
		SetHeader("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8").
		SetBody(body).
		Post(batchExecutePath)
	if err != nil {
		return "", fmt.Errorf("batchexecute request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("batchexecute: unexpected status %d", resp.StatusCode())
	}
	return resp.String(), nil
}
