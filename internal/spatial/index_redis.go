package spatial

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"reclaim/internal/spatial/metrics"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
	"reclaim/pkg/platform/sentinel"
)

const geoKey = "reclaim:geo:items"

// RedisIndex is a Redis GEO-backed implementation of Index for deployments
// where multiple engine instances share one registry. Same contract as
// GridIndex; Redis does the spatial narrowing (GEOSEARCH) and the final sort
// is redone locally so distance ties stay deterministic.
type RedisIndex struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewRedisIndex constructs a Redis-backed spatial index. Metrics may be nil.
func NewRedisIndex(client *redis.Client, m *metrics.Metrics) *RedisIndex {
	return &RedisIndex{client: client, metrics: m}
}

func (r *RedisIndex) Upsert(ctx context.Context, id domain.ItemID, point domain.GeoPoint) error {
	if _, err := domain.ParseGeoPoint(point.Lat, point.Lng); err != nil {
		return err
	}
	err := r.client.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      id.String(),
		Longitude: point.Lng,
		Latitude:  point.Lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("geoadd: %w", translateErr(err))
	}
	if size, err := r.client.ZCard(ctx, geoKey).Result(); err == nil {
		r.metrics.SetIndexSize(int(size))
	}
	return nil
}

func (r *RedisIndex) Remove(ctx context.Context, id domain.ItemID) error {
	removed, err := r.client.ZRem(ctx, geoKey, id.String()).Result()
	if err != nil {
		return fmt.Errorf("zrem: %w", translateErr(err))
	}
	if removed == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (r *RedisIndex) Nearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64) ([]Neighbor, error) {
	if _, err := domain.ParseGeoPoint(center.Lat, center.Lng); err != nil {
		return nil, err
	}
	if radiusMeters < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "radius must be non-negative")
	}

	locations, err := r.client.GeoSearchLocation(ctx, geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.metrics.IncrementTimeouts()
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "radius query exceeded deadline")
		}
		return nil, fmt.Errorf("geosearch: %w", translateErr(err))
	}

	out := make([]Neighbor, 0, len(locations))
	for _, loc := range locations {
		id, err := domain.ParseItemID(loc.Name)
		if err != nil {
			// A foreign member in the geo set is a deployment bug, not a
			// query failure; skip it.
			continue
		}
		out = append(out, Neighbor{
			ID:             id,
			Point:          domain.GeoPoint{Lat: loc.Latitude, Lng: loc.Longitude},
			DistanceMeters: loc.Dist,
		})
	}
	sortNeighbors(out)
	return out, nil
}

func translateErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
}
