package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ulasari/RentalGo/pkg/httpclient"
)

const (
	cacheKeyPrefix  = "geocode:"
	defaultCacheTTL = 24 * time.Hour
)

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Coordinates, error)
}

// HTTPGeocoder calls a Nominatim-compatible geocoding endpoint through a
// circuit-broken HTTP client. Results are cached in Redis when a client is
// provided.
type HTTPGeocoder struct {
	baseURL string
	client  *httpclient.CircuitBreakerClient
	cache   *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

// NewHTTPGeocoder creates a geocoder against the given base URL. The cache
// client may be nil, in which case every lookup hits the upstream service.
func NewHTTPGeocoder(baseURL string, client *httpclient.CircuitBreakerClient, cache *redis.Client, logger *slog.Logger) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		cache:   cache,
		ttl:     defaultCacheTTL,
		logger:  logger,
	}
}

// geocodeResult matches the Nominatim search response shape.
type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves the address, consulting the cache first. A cache read or
// write failure is logged and the lookup proceeds against the upstream.
func (g *HTTPGeocoder) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("geocode: address is required")
	}

	cacheKey := cacheKeyPrefix + strings.ToLower(address)
	if coords := g.fromCache(ctx, cacheKey); coords != nil {
		return coords, nil
	}

	reqURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.baseURL, url.QueryEscape(address))
	resp, err := g.client.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, httpclient.ParseResponseError(resp, "geocoder")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read geocode response: %w", err)
	}

	var results []geocodeResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("geocode: no match for address")
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude: %w", err)
	}

	coords := &Coordinates{Latitude: lat, Longitude: lng}
	g.toCache(ctx, cacheKey, coords)
	return coords, nil
}

func (g *HTTPGeocoder) fromCache(ctx context.Context, key string) *Coordinates {
	if g.cache == nil {
		return nil
	}

	data, err := g.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			g.logger.WarnContext(ctx, "geocode cache read failed", slog.String("error", err.Error()))
		}
		return nil
	}

	var coords Coordinates
	if err := json.Unmarshal(data, &coords); err != nil {
		g.logger.WarnContext(ctx, "geocode cache entry corrupt", slog.String("key", key))
		return nil
	}
	return &coords
}

func (g *HTTPGeocoder) toCache(ctx context.Context, key string, coords *Coordinates) {
	if g.cache == nil {
		return
	}

	data, err := json.Marshal(coords)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, data, g.ttl).Err(); err != nil {
		g.logger.WarnContext(ctx, "geocode cache write failed", slog.String("error", err.Error()))
	}
}

var _ Geocoder = (*HTTPGeocoder)(nil)
