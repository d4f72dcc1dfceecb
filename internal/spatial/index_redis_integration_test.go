//go:build integration

package spatial

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
	"reclaim/pkg/platform/sentinel"
	"reclaim/pkg/testutil/containers"
)

type RedisIndexSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	index *RedisIndex
}

func (s *RedisIndexSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.index = NewRedisIndex(s.redis.Client, nil)
}

func (s *RedisIndexSuite) SetupTest() {
	require.NoError(s.T(), s.redis.FlushAll(context.Background()))
}

func (s *RedisIndexSuite) TestUpsertAndNearbyOrdering() {
	ctx := context.Background()
	center := domain.GeoPoint{Lat: 48.8566, Lng: 2.3522}

	near := domain.NewItemID()
	far := domain.NewItemID()
	require.NoError(s.T(), s.index.Upsert(ctx, near, domain.GeoPoint{Lat: 48.8570, Lng: 2.3522}))
	require.NoError(s.T(), s.index.Upsert(ctx, far, domain.GeoPoint{Lat: 48.8620, Lng: 2.3522}))

	neighbors, err := s.index.Nearby(ctx, center, 1000)
	require.NoError(s.T(), err)
	require.Len(s.T(), neighbors, 2)
	assert.Equal(s.T(), near, neighbors[0].ID)
	assert.Equal(s.T(), far, neighbors[1].ID)
	assert.Less(s.T(), neighbors[0].DistanceMeters, neighbors[1].DistanceMeters)

	// Re-upserting at a new position moves, never duplicates.
	require.NoError(s.T(), s.index.Upsert(ctx, near, domain.GeoPoint{Lat: 48.9000, Lng: 2.3522}))
	neighbors, err = s.index.Nearby(ctx, center, 1000)
	require.NoError(s.T(), err)
	require.Len(s.T(), neighbors, 1)
	assert.Equal(s.T(), far, neighbors[0].ID)
}

func (s *RedisIndexSuite) TestNearbyRespectsRadius() {
	ctx := context.Background()
	center := domain.GeoPoint{Lat: 48.8566, Lng: 2.3522}

	id := domain.NewItemID()
	// Versailles, ~17km out.
	require.NoError(s.T(), s.index.Upsert(ctx, id, domain.GeoPoint{Lat: 48.8049, Lng: 2.1204}))

	neighbors, err := s.index.Nearby(ctx, center, 5000)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), neighbors)

	neighbors, err = s.index.Nearby(ctx, center, 30000)
	require.NoError(s.T(), err)
	assert.Len(s.T(), neighbors, 1)
}

func (s *RedisIndexSuite) TestRemoveIsStrict() {
	ctx := context.Background()
	id := domain.NewItemID()
	require.NoError(s.T(), s.index.Upsert(ctx, id, domain.GeoPoint{Lat: 48.8566, Lng: 2.3522}))

	require.NoError(s.T(), s.index.Remove(ctx, id))
	assert.ErrorIs(s.T(), s.index.Remove(ctx, id), sentinel.ErrNotFound)
}

func (s *RedisIndexSuite) TestUpsertRejectsInvalidCoordinates() {
	err := s.index.Upsert(context.Background(), domain.NewItemID(), domain.GeoPoint{Lat: 95, Lng: 0})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidCoordinate))
}

func TestRedisIndexSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration suite in short mode")
	}
	suite.Run(t, new(RedisIndexSuite))
}
