// Package webhook forwards yielded prospects to an external endpoint as they
// stream out of a run. Delivery is best effort: a down endpoint must never
// stall or fail the pipeline.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultConcurrency = 2
)

// Dispatcher posts prospects to a webhook URL with bounded concurrency.
type Dispatcher struct {
	url    string
	client *http.Client
	group  *errgroup.Group
	ctx    context.Context
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// NewDispatcher creates a dispatcher posting to url. ctx bounds all in-flight
// deliveries.
func NewDispatcher(ctx context.Context, url string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(d)
	}
	d.group, d.ctx = errgroup.WithContext(ctx)
	d.group.SetLimit(defaultConcurrency)
	return d
}

// Send queues one prospect for delivery. Failures are logged, not returned;
// an unreachable endpoint degrades to log noise.
func (d *Dispatcher) Send(p model.Prospect) {
	d.group.Go(func() error {
		if err := d.post(d.ctx, p); err != nil {
			zap.L().Warn("webhook: delivery failed",
				zap.String("clinic_id", p.ClinicID),
				zap.Error(err),
			)
		}
		return nil
	})
}

func (d *Dispatcher) post(ctx context.Context, p model.Prospect) error {
	body, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "webhook: marshal prospect")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "webhook: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "webhook: send")
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return eris.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Wait blocks until all queued deliveries finish.
func (d *Dispatcher) Wait() {
	_ = d.group.Wait()
}
