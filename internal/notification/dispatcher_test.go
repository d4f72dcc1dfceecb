package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type captureSink struct {
	mu        sync.Mutex
	delivered []domain.NotificationID
	fail      bool
}

func (s *captureSink) Deliver(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broker unavailable")
	}
	s.delivered = append(s.delivered, n.ID)
	return nil
}

func (s *captureSink) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

type DispatcherSuite struct {
	suite.Suite
	store      *InMemoryStore
	sink       *captureSink
	dispatcher *Dispatcher
	clock      time.Time
}

func (s *DispatcherSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.sink = &captureSink{}
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.dispatcher = NewDispatcher(s.store, s.sink, nil, testLogger(),
		WithClock(func() time.Time { return s.clock }))
}

func (s *DispatcherSuite) matchEvent(recipient domain.UserID, pairKey string) Event {
	return Event{
		Kind:      KindMatch,
		Recipient: recipient,
		EntityRef: pairKey,
		Payload: Payload{
			Kind:       KindMatch,
			ItemTitle:  "red city bike",
			OccurredAt: s.clock,
		},
	}
}

func (s *DispatcherSuite) TestPublishCreatesAndDelivers() {
	recipient := domain.NewUserID()
	n, err := s.dispatcher.Publish(context.Background(), s.matchEvent(recipient, "a|b"))
	require.NoError(s.T(), err)
	assert.False(s.T(), n.Read)
	assert.True(s.T(), n.Delivered)
	assert.Equal(s.T(), 1, s.sink.count())

	count, err := s.dispatcher.UnreadCount(context.Background(), recipient)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, count)
}

func (s *DispatcherSuite) TestRepublishBumpsExistingUnread() {
	recipient := domain.NewUserID()
	first, err := s.dispatcher.Publish(context.Background(), s.matchEvent(recipient, "a|b"))
	require.NoError(s.T(), err)

	s.clock = s.clock.Add(time.Hour)
	second, err := s.dispatcher.Publish(context.Background(), s.matchEvent(recipient, "a|b"))
	require.NoError(s.T(), err)

	assert.Equal(s.T(), first.ID, second.ID, "republish must collapse onto the unread record")
	assert.True(s.T(), second.UpdatedAt.After(first.UpdatedAt))

	unread, err := s.dispatcher.ListUnread(context.Background(), recipient)
	require.NoError(s.T(), err)
	assert.Len(s.T(), unread, 1)

	// Delivery already happened for this id; the bump must not re-offer it.
	assert.Equal(s.T(), 1, s.sink.count())
}

func (s *DispatcherSuite) TestDistinctKindsDedupIndependently() {
	recipient := domain.NewUserID()
	itemID := domain.NewItemID()

	_, err := s.dispatcher.Publish(context.Background(), Event{
		Kind:      KindStatusChange,
		Recipient: recipient,
		EntityRef: itemID.String() + "|stolen",
		Payload:   Payload{Kind: KindStatusChange, ItemID: itemID.String()},
	})
	require.NoError(s.T(), err)

	_, err = s.dispatcher.Publish(context.Background(), Event{
		Kind:      KindSubscriptionHit,
		Recipient: recipient,
		EntityRef: domain.NewSubscriptionID().String() + "|" + itemID.String(),
		Payload:   Payload{Kind: KindSubscriptionHit, ItemID: itemID.String()},
	})
	require.NoError(s.T(), err)

	count, err := s.dispatcher.UnreadCount(context.Background(), recipient)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, count)
}

func (s *DispatcherSuite) TestReadThenRetriggerCreatesFreshRecord() {
	recipient := domain.NewUserID()
	first, err := s.dispatcher.Publish(context.Background(), s.matchEvent(recipient, "a|b"))
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.dispatcher.MarkRead(context.Background(), recipient, first.ID))

	second, err := s.dispatcher.Publish(context.Background(), s.matchEvent(recipient, "a|b"))
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), first.ID, second.ID, "read notifications no longer absorb re-triggers")

	count, err := s.dispatcher.UnreadCount(context.Background(), recipient)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, count)
}

func (s *DispatcherSuite) TestMarkReadForbiddenForOtherUser() {
	recipient := domain.NewUserID()
	n, err := s.dispatcher.Publish(context.Background(), s.matchEvent(recipient, "a|b"))
	require.NoError(s.T(), err)

	err = s.dispatcher.MarkRead(context.Background(), domain.NewUserID(), n.ID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	// Still unread for the real recipient.
	count, err := s.dispatcher.UnreadCount(context.Background(), recipient)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, count)
}

func (s *DispatcherSuite) TestMarkReadUnknownNotification() {
	err := s.dispatcher.MarkRead(context.Background(), domain.NewUserID(), domain.NewNotificationID())
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DispatcherSuite) TestMarkReadIsIdempotent() {
	recipient := domain.NewUserID()
	n, err := s.dispatcher.Publish(context.Background(), s.matchEvent(recipient, "a|b"))
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.dispatcher.MarkRead(context.Background(), recipient, n.ID))
	require.NoError(s.T(), s.dispatcher.MarkRead(context.Background(), recipient, n.ID))
}

func (s *DispatcherSuite) TestSinkFailureDoesNotFailPublish() {
	s.sink.setFail(true)

	recipient := domain.NewUserID()
	n, err := s.dispatcher.Publish(context.Background(), s.matchEvent(recipient, "a|b"))
	require.NoError(s.T(), err, "publish must succeed even when the sink is down")
	assert.False(s.T(), n.Delivered)

	count, err := s.dispatcher.UnreadCount(context.Background(), recipient)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, count)
}

func (s *DispatcherSuite) TestRedeliverPending() {
	s.sink.setFail(true)
	recipient := domain.NewUserID()
	_, err := s.dispatcher.Publish(context.Background(), s.matchEvent(recipient, "a|b"))
	require.NoError(s.T(), err)

	s.sink.setFail(false)
	s.clock = s.clock.Add(10 * time.Minute)

	redelivered, err := s.dispatcher.RedeliverPending(context.Background(), 24*time.Hour)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, redelivered)
	assert.Equal(s.T(), 1, s.sink.count())

	// Now confirmed, the next sweep finds nothing.
	redelivered, err = s.dispatcher.RedeliverPending(context.Background(), 24*time.Hour)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), redelivered)
}

func (s *DispatcherSuite) TestRedeliverSkipsExpired() {
	s.sink.setFail(true)
	_, err := s.dispatcher.Publish(context.Background(), s.matchEvent(domain.NewUserID(), "a|b"))
	require.NoError(s.T(), err)

	s.sink.setFail(false)
	s.clock = s.clock.Add(48 * time.Hour)

	redelivered, err := s.dispatcher.RedeliverPending(context.Background(), 24*time.Hour)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), redelivered, "notifications past the window are not re-offered")
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func TestEventDedupKey(t *testing.T) {
	recipient := domain.NewUserID()

	a := Event{Kind: KindMatch, Recipient: recipient, EntityRef: "x|y"}
	b := Event{Kind: KindMatch, Recipient: recipient, EntityRef: "x|y"}
	assert.Equal(t, a.DedupKey(), b.DedupKey())

	c := Event{Kind: KindStatusChange, Recipient: recipient, EntityRef: "x|y"}
	assert.NotEqual(t, a.DedupKey(), c.DedupKey(), "kind participates in the key")

	d := Event{Kind: KindMatch, Recipient: domain.NewUserID(), EntityRef: "x|y"}
	assert.NotEqual(t, a.DedupKey(), d.DedupKey(), "recipient participates in the key")
}
