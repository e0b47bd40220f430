package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hamed0406/uptimewatch/internal/clock"
	"github.com/hamed0406/uptimewatch/internal/domain"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "api-observability-mini-lab"

	maxDrainBytes = 64 * 1024
)

type HTTPProber struct {
	Client  *http.Client
	Timeout time.Duration
	Clock   clock.Clock
}

func NewHTTPProber(timeout time.Duration, userAgent string) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPProber{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: userAgentTransport{rt: http.DefaultTransport, userAgent: userAgent},
		},
		Timeout: timeout,
		Clock:   clock.RealClock{},
	}
}

// Probe issues one GET against url. Timeouts, DNS failures, refused
// connections and malformed URLs all come back as OK=false with Error set.
func (h *HTTPProber) Probe(ctx context.Context, name, url string) (res domain.ProbeResult) {
	res = domain.ProbeResult{Name: name, URL: url}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.OK = false
			res.StatusCode = nil
			res.Error = strp(fmt.Sprintf("probe panic: %v", p))
			res.LatencyMS = time.Since(start).Milliseconds()
		}
		res.Timestamp = h.now()
	}()

	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.LatencyMS = time.Since(start).Milliseconds()
		res.Error = strp(err.Error())
		return res
	}

	resp, err := h.Client.Do(req)
	res.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = strp(describe(err))
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	code := resp.StatusCode
	res.StatusCode = &code
	res.OK = domain.IsSuccess(code)
	return res
}

func (h *HTTPProber) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock.Now()
}

// describe keeps the transport error text but makes timeouts obvious.
func describe(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout: " + err.Error()
	}
	return err.Error()
}

func strp(s string) *string { return &s }

// userAgentTransport tags every outgoing request with the client label.
type userAgentTransport struct {
	rt        http.RoundTripper
	userAgent string
}

func (u userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && u.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", u.userAgent)
	}
	rt := u.rt
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}
