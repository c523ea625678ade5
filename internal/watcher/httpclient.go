package watcher

import (
	"context"
	"net/http"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// HTTPClientWatcher instruments outbound HTTP calls via a RoundTripper
// decorator. Each round trip appends one http-client-call entry with the
// method, URL, status code, and duration.
type HTTPClientWatcher struct {
	sub *submitter
}

func NewHTTPClientWatcher(log *entrylog.Log) *HTTPClientWatcher {
	return &HTTPClientWatcher{sub: newSubmitter(log, nil)}
}

// Wrap returns a RoundTripper that records an entry per request. A nil
// target defaults to http.DefaultTransport. Wrapping an already wrapped
// transport returns it unchanged.
func (w *HTTPClientWatcher) Wrap(target http.RoundTripper) http.RoundTripper {
	if target == nil {
		target = http.DefaultTransport
	}
	if _, ok := target.(*roundTripDecorator); ok {
		return target
	}
	return &roundTripDecorator{watcher: w, next: target}
}

// Instrument replaces the client's transport with a wrapped one.
// Idempotent.
func (w *HTTPClientWatcher) Instrument(client *http.Client) {
	if client == nil {
		return
	}
	client.Transport = w.Wrap(client.Transport)
}

// Track records an outbound call observed out-of-band.
func (w *HTTPClientWatcher) Track(ctx context.Context, method, url string, statusCode int, elapsedMs int64, err error) {
	w.sub.submit(ctx, domain.KindHTTPClientCall, httpCallPayload(method, url, statusCode, elapsedMs, err))
}

type roundTripDecorator struct {
	watcher *HTTPClientWatcher
	next    http.RoundTripper
}

func (d *roundTripDecorator) RoundTrip(req *http.Request) (*http.Response, error) {
	w := d.watcher
	start := w.sub.now()
	resp, err := d.next.RoundTrip(req)
	elapsed := durationMs(w.sub.now().Sub(start))
	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	w.sub.submit(req.Context(), domain.KindHTTPClientCall,
		httpCallPayload(req.Method, req.URL.Redacted(), statusCode, elapsed, err))
	return resp, err
}

func httpCallPayload(method, url string, statusCode int, elapsedMs int64, err error) map[string]any {
	payload := map[string]any{
		"method":     method,
		"url":        url,
		"durationMs": elapsedMs,
		"status":     domain.StatusCompleted,
	}
	if statusCode > 0 {
		payload["statusCode"] = statusCode
	}
	if err != nil {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errStrings(err)
	} else if statusCode >= 500 {
		payload["status"] = domain.StatusFailed
	}
	return payload
}
