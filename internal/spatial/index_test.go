package spatial

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"reclaim/internal/item"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
	"reclaim/pkg/platform/sentinel"
)

type GridIndexSuite struct {
	suite.Suite
	index *GridIndex
}

func (s *GridIndexSuite) SetupTest() {
	s.index = NewGridIndex(nil)
}

func (s *GridIndexSuite) TestUpsertIsIdempotent() {
	ctx := context.Background()
	id := domain.NewItemID()
	p := domain.GeoPoint{Lat: 48.8566, Lng: 2.3522}

	require.NoError(s.T(), s.index.Upsert(ctx, id, p))
	require.NoError(s.T(), s.index.Upsert(ctx, id, p))

	neighbors, err := s.index.Nearby(ctx, p, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), neighbors, 1)
	assert.Equal(s.T(), id, neighbors[0].ID)
}

func (s *GridIndexSuite) TestUpsertMovesPoint() {
	ctx := context.Background()
	id := domain.NewItemID()
	paris := domain.GeoPoint{Lat: 48.8566, Lng: 2.3522}
	lyon := domain.GeoPoint{Lat: 45.7640, Lng: 4.8357}

	require.NoError(s.T(), s.index.Upsert(ctx, id, paris))
	require.NoError(s.T(), s.index.Upsert(ctx, id, lyon))

	nearParis, err := s.index.Nearby(ctx, paris, 5000)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), nearParis)

	nearLyon, err := s.index.Nearby(ctx, lyon, 5000)
	require.NoError(s.T(), err)
	require.Len(s.T(), nearLyon, 1)
	assert.Equal(s.T(), id, nearLyon[0].ID)
}

func (s *GridIndexSuite) TestUpsertRejectsInvalidCoordinates() {
	ctx := context.Background()
	err := s.index.Upsert(ctx, domain.NewItemID(), domain.GeoPoint{Lat: 91, Lng: 0})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidCoordinate))

	err = s.index.Upsert(ctx, domain.NewItemID(), domain.GeoPoint{Lat: 0, Lng: -181})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidCoordinate))

	// Nothing was stored.
	neighbors, err := s.index.Nearby(ctx, domain.GeoPoint{Lat: 0, Lng: 0}, 1e7)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), neighbors)
}

func (s *GridIndexSuite) TestRemoveIsStrict() {
	ctx := context.Background()
	id := domain.NewItemID()
	require.NoError(s.T(), s.index.Upsert(ctx, id, domain.GeoPoint{Lat: 1, Lng: 1}))
	require.NoError(s.T(), s.index.Remove(ctx, id))

	err := s.index.Remove(ctx, id)
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)

	err = s.index.Remove(ctx, domain.NewItemID())
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *GridIndexSuite) TestNearbyOrdersByDistanceThenID() {
	ctx := context.Background()
	center := domain.GeoPoint{Lat: 48.8566, Lng: 2.3522}

	near := domain.NewItemID()
	far := domain.NewItemID()
	require.NoError(s.T(), s.index.Upsert(ctx, far, domain.GeoPoint{Lat: 48.8600, Lng: 2.3600}))
	require.NoError(s.T(), s.index.Upsert(ctx, near, domain.GeoPoint{Lat: 48.8570, Lng: 2.3530}))

	neighbors, err := s.index.Nearby(ctx, center, 2000)
	require.NoError(s.T(), err)
	require.Len(s.T(), neighbors, 2)
	assert.Equal(s.T(), near, neighbors[0].ID)
	assert.Equal(s.T(), far, neighbors[1].ID)
	assert.LessOrEqual(s.T(), neighbors[0].DistanceMeters, neighbors[1].DistanceMeters)

	// Same point twice: tie broken by id ascending.
	a := domain.NewItemID()
	b := domain.NewItemID()
	same := domain.GeoPoint{Lat: 48.8580, Lng: 2.3540}
	require.NoError(s.T(), s.index.Upsert(ctx, a, same))
	require.NoError(s.T(), s.index.Upsert(ctx, b, same))

	neighbors, err = s.index.Nearby(ctx, center, 2000)
	require.NoError(s.T(), err)
	require.Len(s.T(), neighbors, 4)
	// The co-located pair lands between near and far; ids ascending within it.
	assert.Equal(s.T(), neighbors[1].DistanceMeters, neighbors[2].DistanceMeters)
	assert.Less(s.T(), neighbors[1].ID.String(), neighbors[2].ID.String())
}

func (s *GridIndexSuite) TestNearbyRespectsRadius() {
	ctx := context.Background()
	center := domain.GeoPoint{Lat: 48.8566, Lng: 2.3522}

	inside := domain.NewItemID()
	outside := domain.NewItemID()
	require.NoError(s.T(), s.index.Upsert(ctx, inside, domain.GeoPoint{Lat: 48.8570, Lng: 2.3530}))
	// Roughly 8km away.
	require.NoError(s.T(), s.index.Upsert(ctx, outside, domain.GeoPoint{Lat: 48.9200, Lng: 2.3900}))

	neighbors, err := s.index.Nearby(ctx, center, 1000)
	require.NoError(s.T(), err)
	require.Len(s.T(), neighbors, 1)
	assert.Equal(s.T(), inside, neighbors[0].ID)
	for _, n := range neighbors {
		assert.LessOrEqual(s.T(), n.DistanceMeters, 1000.0)
	}
}

func (s *GridIndexSuite) TestNearbyHonorsDeadline() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.index.Nearby(ctx, domain.GeoPoint{Lat: 0, Lng: 0}, 1000)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestGridIndexSuite(t *testing.T) {
	suite.Run(t, new(GridIndexSuite))
}

type QuerierSuite struct {
	suite.Suite
	index *GridIndex
	items *item.InMemoryStore
	q     *Querier
}

func (s *QuerierSuite) SetupTest() {
	s.index = NewGridIndex(nil)
	s.items = item.NewInMemoryStore()
	s.q = NewQuerier(s.index, s.items, time.Second, "memory", nil)
}

func (s *QuerierSuite) addItem(category string, status domain.Status, p domain.GeoPoint, createdAt time.Time) domain.ItemID {
	it := &item.Item{
		ID:        domain.NewItemID(),
		OwnerID:   domain.NewUserID(),
		Category:  category,
		Title:     "test item",
		Point:     p,
		Status:    status,
		Version:   1,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(s.T(), s.items.Create(context.Background(), it))
	require.NoError(s.T(), s.index.Upsert(context.Background(), it.ID, p))
	return it.ID
}

func (s *QuerierSuite) TestPostFilters() {
	ctx := context.Background()
	center := domain.GeoPoint{Lat: 48.8566, Lng: 2.3522}
	now := time.Now()

	bike := s.addItem("bicycle", domain.StatusStolen, domain.GeoPoint{Lat: 48.8570, Lng: 2.3530}, now)
	s.addItem("phone", domain.StatusStolen, domain.GeoPoint{Lat: 48.8572, Lng: 2.3532}, now)
	s.addItem("bicycle", domain.StatusRegistered, domain.GeoPoint{Lat: 48.8574, Lng: 2.3534}, now)

	got, err := s.q.QueryRadius(ctx, center, 1000, Filters{Category: "bicycle", Status: domain.StatusStolen})
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 1)
	assert.Equal(s.T(), bike, got[0].ID)
}

func (s *QuerierSuite) TestDateRangeFilter() {
	ctx := context.Background()
	center := domain.GeoPoint{Lat: 48.8566, Lng: 2.3522}
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	s.addItem("bag", domain.StatusLost, domain.GeoPoint{Lat: 48.8570, Lng: 2.3530}, old)
	wanted := s.addItem("bag", domain.StatusLost, domain.GeoPoint{Lat: 48.8571, Lng: 2.3531}, recent)

	got, err := s.q.QueryRadius(ctx, center, 1000, Filters{CreatedFrom: time.Now().Add(-time.Hour)})
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 1)
	assert.Equal(s.T(), wanted, got[0].ID)
}

func (s *QuerierSuite) TestStaleIndexEntrySkipped() {
	ctx := context.Background()
	center := domain.GeoPoint{Lat: 48.8566, Lng: 2.3522}

	id := s.addItem("bag", domain.StatusLost, domain.GeoPoint{Lat: 48.8570, Lng: 2.3530}, time.Now())
	// Delete from the store but not the index: the querier must not fail.
	require.NoError(s.T(), s.items.Delete(ctx, id))

	got, err := s.q.QueryRadius(ctx, center, 1000, Filters{})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), got)
}

func TestQuerierSuite(t *testing.T) {
	suite.Run(t, new(QuerierSuite))
}
