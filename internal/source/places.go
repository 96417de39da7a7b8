package source

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/normalize"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/stats"
	"github.com/sells-group/prospect-cli/pkg/places"
)

// pageTokenSettle is the wait the API mandates before a next-page token
// becomes usable.
const pageTokenSettle = 2 * time.Second

// placesSource queries the paid directory API. No page rendering: contact
// fields come back structured, so candidates skip the extraction engine
// entirely.
type placesSource struct {
	newClient func(apiKey string) places.Client
	stats     *stats.Collector
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewPlaces creates the directory-API source.
func NewPlaces(collector *stats.Collector) Source {
	return &placesSource{
		newClient: func(apiKey string) places.Client { return places.NewClient(apiKey) },
		stats:     collector,
		sleep:     resilience.SleepContext,
	}
}

func (s *placesSource) Name() string { return "places" }

func (s *placesSource) Stream(ctx context.Context, opts Options) (<-chan Item, error) {
	if opts.APIKey == "" {
		return nil, &ConfigError{Reason: "places: api key required"}
	}
	if opts.Location == "" {
		return nil, &ConfigError{Reason: "places: location required"}
	}
	opts = opts.withDefaults(60)

	client := s.newClient(opts.APIKey)
	ch := make(chan Item)
	go func() {
		defer close(ch)

		ids, err := s.collectIDs(ctx, client, opts)
		if err != nil {
			send(ctx, ch, Item{Err: err})
			return
		}
		zap.L().Info("places: candidates collected", zap.Int("count", len(ids)))

		yielded := 0
		for _, id := range ids {
			if yielded > 0 && opts.Delay > 0 {
				if s.sleep(ctx, opts.Delay) != nil {
					return
				}
			}

			place, err := client.Details(ctx, id)
			if err != nil {
				if fatal := asConfigError(err); fatal != nil {
					send(ctx, ch, Item{Err: fatal})
					return
				}
				// Per-item failure: degrade to a stub and keep going.
				p := model.Prospect{
					ClinicID:  uuid.NewString(),
					Country:   "US",
					SourceURL: placeURL(id),
				}
				p.AddNote("error: " + err.Error())
				if s.stats != nil {
					s.stats.TransportError()
				}
				if !send(ctx, ch, Item{Prospect: p}) {
					return
				}
				yielded++
				if yielded >= opts.Max {
					return
				}
				continue
			}

			if place.PermanentlyClosed() {
				zap.L().Debug("places: skipping permanently closed business",
					zap.String("name", place.DisplayName.Text),
				)
				continue
			}

			p := s.toProspect(place, opts)
			if !send(ctx, ch, Item{Prospect: p}) {
				return
			}
			yielded++
			if yielded >= opts.Max {
				return
			}
		}
	}()
	return ch, nil
}

// collectIDs paginates the text search until the cap or the last page.
func (s *placesSource) collectIDs(ctx context.Context, client places.Client, opts Options) ([]string, error) {
	query := opts.Category + " in " + opts.Location

	var ids []string
	token := ""
	for {
		resp, err := client.TextSearch(ctx, query, token)
		if err != nil {
			if fatal := asConfigError(err); fatal != nil {
				return nil, fatal
			}
			return nil, eris.Wrap(err, "places: text search")
		}
		for _, place := range resp.Places {
			if place.ID == "" {
				continue
			}
			ids = append(ids, place.ID)
			if len(ids) >= opts.Max {
				return ids, nil
			}
		}
		if resp.NextPageToken == "" {
			return ids, nil
		}
		token = resp.NextPageToken
		if err := s.sleep(ctx, pageTokenSettle); err != nil {
			return ids, nil
		}
	}
}

func (s *placesSource) toProspect(place *places.Place, opts Options) model.Prospect {
	p := model.Prospect{
		ClinicID:   uuid.NewString(),
		ClinicName: normalize.CleanName(place.DisplayName.Text),
		Website:    place.WebsiteURI,
		Country:    "US",
		SourceURL:  placeURL(place.ID),
	}

	p.City = place.Component("locality")
	p.State = place.Component("administrative_area_level_1")
	p.PostalCode = place.Component("postal_code")

	p.Address = strings.TrimSuffix(place.FormattedAddress, ", USA")
	if p.Address != "" {
		street, city, state, zip := normalize.SplitAddress(p.Address)
		if street != "" {
			p.Address = street
		}
		if p.City == "" {
			p.City = city
		}
		if p.State == "" {
			p.State = state
		}
		if p.PostalCode == "" {
			p.PostalCode = zip
		}
	}

	p.Phone = place.NationalPhoneNumber
	if p.Phone == "" {
		p.Phone = place.InternationalPhoneNumber
	}
	switch res := normalize.Phone(p.Phone, opts.Region); {
	case p.Phone == "":
		p.AddNote("no phone")
		if s.stats != nil {
			s.stats.NoPhone()
		}
	case !res.Valid:
		p.AddNote("invalid phone")
		if s.stats != nil {
			s.stats.InvalidPhone()
		}
	default:
		p.PhoneE164 = res.E164
	}

	p.Timezone = normalize.TimezoneForState(p.State)
	if s.stats != nil {
		s.stats.Scraped()
	}
	return p
}

// asConfigError maps credential-level API failures (401/403) to the fatal
// error class; anything else stays per-item.
func asConfigError(err error) error {
	var apiErr *places.APIError
	if errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403) {
		return &ConfigError{Reason: "places: " + apiErr.Error()}
	}
	return nil
}

func placeURL(id string) string {
	return "https://www.google.com/maps/place/?q=place_id:" + id
}
