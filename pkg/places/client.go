// Package places is a minimal Google Places API (v1) client covering the
// operations the directory source needs: paginated text search and per-place
// details.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

const searchFieldMask = "places.id,places.displayName,places.businessStatus,nextPageToken"

const detailsFieldMask = "id,displayName,nationalPhoneNumber,internationalPhoneNumber," +
	"formattedAddress,websiteUri,businessStatus,addressComponents"

// Client performs Places API operations.
type Client interface {
	TextSearch(ctx context.Context, query, pageToken string) (*TextSearchResponse, error)
	Details(ctx context.Context, placeID string) (*Place, error)
}

// TextSearchResponse is one page of text search results.
type TextSearchResponse struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken"`
}

// Place is a business returned by the API.
type Place struct {
	ID                       string             `json:"id"`
	DisplayName              DisplayName        `json:"displayName"`
	NationalPhoneNumber      string             `json:"nationalPhoneNumber"`
	InternationalPhoneNumber string             `json:"internationalPhoneNumber"`
	FormattedAddress         string             `json:"formattedAddress"`
	WebsiteURI               string             `json:"websiteUri"`
	BusinessStatus           string             `json:"businessStatus"`
	AddressComponents        []AddressComponent `json:"addressComponents"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// AddressComponent is one structured piece of the place's address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// Component returns the short text of the first component with the given
// type, or "".
func (p *Place) Component(typ string) string {
	for _, c := range p.AddressComponents {
		for _, t := range c.Types {
			if t == typ {
				return c.ShortText
			}
		}
	}
	return ""
}

// PermanentlyClosed reports whether the business is gone for good.
func (p *Place) PermanentlyClosed() bool {
	return p.BusinessStatus == "CLOSED_PERMANENTLY"
}

// APIError is a non-2xx API response. Callers use the status to tell
// credential problems from transient server trouble.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("places: unexpected status %d: %s", e.Status, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithLimiter paces API calls; nil disables pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) { c.limiter = l }
}

// WithRetryConfig overrides the transient-failure retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery string `json:"textQuery"`
	PageToken string `json:"pageToken,omitempty"`
}

// TextSearch runs one page of a text query. Pass the previous response's
// NextPageToken to continue; the API requires a short settle before a token
// becomes usable, which the source provider handles.
func (c *httpClient) TextSearch(ctx context.Context, query, pageToken string) (*TextSearchResponse, error) {
	body, err := json.Marshal(textSearchRequest{TextQuery: query, PageToken: pageToken})
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	var result TextSearchResponse
	err = c.call(ctx, http.MethodPost, "/places:searchText", searchFieldMask, body, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Details fetches full contact fields for one place.
func (c *httpClient) Details(ctx context.Context, placeID string) (*Place, error) {
	var result Place
	err := c.call(ctx, http.MethodGet, "/places/"+placeID, detailsFieldMask, nil, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) call(ctx context.Context, method, path, fieldMask string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "places: rate limit wait")
		}
	}

	respBody, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, eris.Wrap(err, "places: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		req.Header.Set("X-Goog-FieldMask", fieldMask)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "places: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "places: read response")
		}
		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{Status: resp.StatusCode, Body: string(respBody)}
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
			}
			return nil, apiErr
		}
		return respBody, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "places: unmarshal response")
	}
	return nil
}
