package checker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
	"github.com/khanhnv2901/netdiag/internal/validate"
)

const maxRedirects = 10

// HTTPResult describes the answer of an HTTP reachability probe. Any status
// code is a valid answer.
type HTTPResult struct {
	URL           string    `json:"url"`
	FinalURL      string    `json:"final_url"`
	StatusCode    int       `json:"status_code"`
	StatusText    string    `json:"status_text"`
	ResponseTime  int64     `json:"response_time_ms"`
	RedirectCount int       `json:"redirect_count"`
	Server        string    `json:"server,omitempty"`
	ContentType   string    `json:"content_type,omitempty"`
	TLSVersion    string    `json:"tls_version,omitempty"`
	Error         string    `json:"error,omitempty"` // Set when a response was surfaced despite a failure
	CheckedAt     time.Time `json:"checked_at"`
}

var errTooManyRedirects = fmt.Errorf("stopped after %d redirects", maxRedirects)

// CheckHTTP issues a GET against rawURL, which must carry an explicit scheme.
func (h *HTTPChecker) CheckHTTP(ctx context.Context, rawURL string) (*HTTPResult, error) {
	u, err := validate.HTTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	redirects := 0
	client := &http.Client{
		Timeout: durationOr(h.Timeout, constants.HTTPCheckTimeout),
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: h.InsecureSkipVerify},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}
			redirects = len(via)
			return nil
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, diagerrors.Wrap(diagerrors.CodeValidation, "invalid URL", err)
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := elapsedMillis(start)

	if resp == nil {
		h.logger().Debug("http check failed", zap.String("url", u.String()), zap.Error(err))
		return nil, httpFailure(err, u.Host)
	}
	defer resp.Body.Close()
	if err == nil {
		// Drain so the timing covers the body and the connection can close cleanly.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, constants.MaxResponseBodyBytes))
	}

	result := &HTTPResult{
		URL:           u.String(),
		FinalURL:      resp.Request.URL.String(),
		StatusCode:    resp.StatusCode,
		StatusText:    http.StatusText(resp.StatusCode),
		ResponseTime:  elapsed,
		RedirectCount: redirects,
		Server:        resp.Header.Get("Server"),
		ContentType:   resp.Header.Get("Content-Type"),
		CheckedAt:     time.Now().UTC(),
	}
	if resp.TLS != nil {
		result.TLSVersion = tlsVersionString(resp.TLS.Version)
	}
	if err != nil {
		// The client hands back the last response alongside redirect errors.
		if errors.Is(err, errTooManyRedirects) {
			result.RedirectCount = maxRedirects
			result.Error = errTooManyRedirects.Error()
		} else {
			result.Error = classifyNetError(err).String()
		}
		h.logger().Debug("http check returned a response with an error",
			zap.String("url", u.String()), zap.Int("status", resp.StatusCode), zap.Error(err))
	}
	return result, nil
}

func httpFailure(err error, host string) error {
	switch classifyNetError(err) {
	case failureTimeout:
		return diagerrors.Wrap(diagerrors.CodeTimeout, fmt.Sprintf("HTTP request to %s timed out", host), err)
	case failureNotFound, failureRefused, failureUnreachable:
		return diagerrors.Wrap(diagerrors.CodeHostUnreachable, fmt.Sprintf("host %s is unreachable", host), err)
	default:
		return diagerrors.Wrap(diagerrors.CodeHTTPCheckFailed, fmt.Sprintf("HTTP check for %s failed", host), err)
	}
}

// HTTPChecker performs HTTP reachability probes.
type HTTPChecker struct {
	Timeout            time.Duration
	UserAgent          string
	InsecureSkipVerify bool
	Logger             *zap.Logger
}

// Name returns the name of this checker
func (h *HTTPChecker) Name() string {
	return "check http"
}

func (h *HTTPChecker) logger() *zap.Logger {
	return loggerOrNop(h.Logger)
}

// CheckHTTP probes rawURL with the host checker's HTTP timeout.
func (h *HostChecker) CheckHTTP(ctx context.Context, rawURL string) (*HTTPResult, error) {
	hc := &HTTPChecker{Timeout: h.HTTPTimeout, Logger: h.Logger}
	return hc.CheckHTTP(ctx, rawURL)
}
