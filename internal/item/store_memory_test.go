package item

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"reclaim/pkg/domain"
	"reclaim/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) newItem(fingerprint string) *Item {
	now := time.Now()
	return &Item{
		ID:          domain.NewItemID(),
		OwnerID:     domain.NewUserID(),
		Category:    "bicycle",
		Title:       "red city bike",
		Fingerprint: fingerprint,
		Point:       domain.GeoPoint{Lat: 48.8566, Lng: 2.3522},
		Status:      domain.StatusRegistered,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *InMemoryStoreSuite) TestCreateAndGet() {
	it := s.newItem("wtu123456789")
	require.NoError(s.T(), s.store.Create(context.Background(), it))

	got, err := s.store.Get(context.Background(), it.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), it.Title, got.Title)

	// The returned item is a copy; mutating it must not leak into the store.
	got.Title = "mutated"
	again, err := s.store.Get(context.Background(), it.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "red city bike", again.Title)
}

func (s *InMemoryStoreSuite) TestGetUnknownReturnsNotFound() {
	_, err := s.store.Get(context.Background(), domain.NewItemID())
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUpdateStatusCAS() {
	it := s.newItem("")
	require.NoError(s.T(), s.store.Create(context.Background(), it))

	updated, err := s.store.UpdateStatus(context.Background(), it.ID, domain.StatusStolen, time.Now(), 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.StatusStolen, updated.Status)
	assert.Equal(s.T(), int64(2), updated.Version)

	// Stale expected version must conflict and leave state untouched.
	_, err = s.store.UpdateStatus(context.Background(), it.ID, domain.StatusFound, time.Now(), 1)
	assert.ErrorIs(s.T(), err, sentinel.ErrConflict)

	cur, err := s.store.Get(context.Background(), it.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.StatusStolen, cur.Status)
	assert.Equal(s.T(), int64(2), cur.Version)
}

func (s *InMemoryStoreSuite) TestFindByFingerprint() {
	a := s.newItem("wtu123456789")
	b := s.newItem("wtu123456789")
	c := s.newItem("other")
	for _, it := range []*Item{a, b, c} {
		require.NoError(s.T(), s.store.Create(context.Background(), it))
	}

	found, err := s.store.FindByFingerprint(context.Background(), "wtu123456789")
	require.NoError(s.T(), err)
	assert.Len(s.T(), found, 2)

	require.NoError(s.T(), s.store.Delete(context.Background(), a.ID))
	found, err = s.store.FindByFingerprint(context.Background(), "wtu123456789")
	require.NoError(s.T(), err)
	assert.Len(s.T(), found, 1, "deletion must drop the fingerprint index entry")
}

func (s *InMemoryStoreSuite) TestListFingerprintedSkipsBlank() {
	require.NoError(s.T(), s.store.Create(context.Background(), s.newItem("wtu123456789")))
	require.NoError(s.T(), s.store.Create(context.Background(), s.newItem("")))

	listed, err := s.store.ListFingerprinted(context.Background())
	require.NoError(s.T(), err)
	assert.Len(s.T(), listed, 1)
}

func (s *InMemoryStoreSuite) TestMatchPendingRoundTrip() {
	it := s.newItem("")
	require.NoError(s.T(), s.store.Create(context.Background(), it))

	require.NoError(s.T(), s.store.SetMatchPending(context.Background(), it.ID, true))
	pending, err := s.store.ListMatchPending(context.Background())
	require.NoError(s.T(), err)
	require.Len(s.T(), pending, 1)
	assert.Equal(s.T(), it.ID, pending[0].ID)

	require.NoError(s.T(), s.store.SetMatchPending(context.Background(), it.ID, false))
	pending, err = s.store.ListMatchPending(context.Background())
	require.NoError(s.T(), err)
	assert.Empty(s.T(), pending)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}
