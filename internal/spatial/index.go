// Package spatial maintains item locations and answers radius queries. The
// index is single-purpose: it narrows by geography only, and attribute
// filters are applied as a post-filter by the Querier.
package spatial

import (
	"context"
	"math"
	"sort"
	"sync"

	"reclaim/internal/spatial/metrics"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
	"reclaim/pkg/platform/sentinel"
)

// Neighbor is one spatial query result.
type Neighbor struct {
	ID             domain.ItemID
	Point          domain.GeoPoint
	DistanceMeters float64
}

// Index answers proximity queries over item locations.
//
// Upsert is idempotent; Remove is strict and returns sentinel.ErrNotFound for
// unknown ids. Nearby returns neighbors within radiusMeters ordered by
// ascending distance, ties broken by item id ascending for determinism.
type Index interface {
	Upsert(ctx context.Context, id domain.ItemID, point domain.GeoPoint) error
	Remove(ctx context.Context, id domain.ItemID) error
	Nearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64) ([]Neighbor, error)
}

// cellSizeDeg is the grid cell edge in degrees (~5.5km of latitude). Chosen
// so queries up to tens of kilometers touch a bounded number of cells while
// city-scale queries stay within a handful.
const cellSizeDeg = 0.05

// metersPerDegLat is close enough at every latitude for bounding-box math;
// the haversine pass does the exact containment check.
const metersPerDegLat = 111320.0

type cellKey struct {
	x, y int
}

type entry struct {
	id    domain.ItemID
	point domain.GeoPoint
}

// GridIndex is the in-memory spatial index: a hash grid of fixed-size
// lat/lng cells. Lookups narrow to the cells overlapping the query's
// bounding box, then the haversine pass keeps exact hits only.
type GridIndex struct {
	mu      sync.RWMutex
	cells   map[cellKey]map[domain.ItemID]entry
	byID    map[domain.ItemID]cellKey
	metrics *metrics.Metrics
}

// NewGridIndex constructs an empty in-memory index. Metrics may be nil.
func NewGridIndex(m *metrics.Metrics) *GridIndex {
	return &GridIndex{
		cells:   make(map[cellKey]map[domain.ItemID]entry),
		byID:    make(map[domain.ItemID]cellKey),
		metrics: m,
	}
}

func keyFor(p domain.GeoPoint) cellKey {
	return cellKey{
		x: int(math.Floor(p.Lng / cellSizeDeg)),
		y: int(math.Floor(p.Lat / cellSizeDeg)),
	}
}

func (g *GridIndex) Upsert(_ context.Context, id domain.ItemID, point domain.GeoPoint) error {
	if _, err := domain.ParseGeoPoint(point.Lat, point.Lng); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.byID[id]; ok {
		delete(g.cells[old], id)
		if len(g.cells[old]) == 0 {
			delete(g.cells, old)
		}
	}
	key := keyFor(point)
	cell, ok := g.cells[key]
	if !ok {
		cell = make(map[domain.ItemID]entry)
		g.cells[key] = cell
	}
	cell[id] = entry{id: id, point: point}
	g.byID[id] = key
	g.metrics.SetIndexSize(len(g.byID))
	return nil
}

func (g *GridIndex) Remove(_ context.Context, id domain.ItemID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key, ok := g.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(g.cells[key], id)
	if len(g.cells[key]) == 0 {
		delete(g.cells, key)
	}
	delete(g.byID, id)
	g.metrics.SetIndexSize(len(g.byID))
	return nil
}

func (g *GridIndex) Nearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64) ([]Neighbor, error) {
	if _, err := domain.ParseGeoPoint(center.Lat, center.Lng); err != nil {
		return nil, err
	}
	if radiusMeters < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "radius must be non-negative")
	}

	dLat := radiusMeters / metersPerDegLat
	// Longitude degrees shrink toward the poles; clamp the cosine so the
	// bounding box stays finite near them.
	cosLat := math.Max(math.Cos(center.Lat*math.Pi/180), 0.01)
	dLng := radiusMeters / (metersPerDegLat * cosLat)

	minKey := keyFor(domain.GeoPoint{Lat: center.Lat - dLat, Lng: center.Lng - dLng})
	maxKey := keyFor(domain.GeoPoint{Lat: center.Lat + dLat, Lng: center.Lng + dLng})

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Neighbor
	for y := minKey.y; y <= maxKey.y; y++ {
		if err := ctx.Err(); err != nil {
			g.metrics.IncrementTimeouts()
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "radius query exceeded deadline")
		}
		for x := minKey.x; x <= maxKey.x; x++ {
			cell, ok := g.cells[cellKey{x: x, y: y}]
			if !ok {
				continue
			}
			for _, e := range cell {
				d := center.DistanceMeters(e.point)
				if d <= radiusMeters {
					out = append(out, Neighbor{ID: e.id, Point: e.point, DistanceMeters: d})
				}
			}
		}
	}

	sortNeighbors(out)
	return out, nil
}

// sortNeighbors orders by ascending distance, ties by item id ascending.
func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].DistanceMeters != ns[j].DistanceMeters {
			return ns[i].DistanceMeters < ns[j].DistanceMeters
		}
		return ns[i].ID.String() < ns[j].ID.String()
	})
}
