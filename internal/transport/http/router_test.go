package httptransport_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reclaim/internal/engine"
	"reclaim/internal/item"
	"reclaim/internal/match"
	"reclaim/internal/notification"
	"reclaim/internal/platform/token"
	"reclaim/internal/spatial"
	"reclaim/internal/subscription"
	httptransport "reclaim/internal/transport/http"
	"reclaim/pkg/domain"
	"reclaim/pkg/testutil"
)

const testSigningKey = "router-test-signing-key"

// newTestServer assembles the full stack on in-memory backends.
func newTestServer(t *testing.T) (http.Handler, *token.JWTService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	items := item.NewInMemoryStore()
	index := spatial.NewGridIndex(nil)
	subs := subscription.NewInMemoryStore()

	querier := spatial.NewQuerier(index, items, time.Second, "memory", nil)
	matcher := match.NewMatcher(items, match.NewInMemoryHistory(), time.Second, nil)
	evaluator := subscription.NewEvaluator(subs, subscription.NewInMemoryTracker())
	dispatcher := notification.NewDispatcher(
		notification.NewInMemoryStore(), notification.NewLogSink(logger), nil, logger)

	eng := engine.New(items, index, querier, matcher, subs, evaluator, dispatcher, nil, logger)

	validator := token.NewJWTService(testSigningKey, "reclaim")
	handler := httptransport.New(eng, logger)
	return httptransport.NewRouter(handler, validator, logger), validator
}

func bearer(t *testing.T, svc *token.JWTService, userID domain.UserID) string {
	t.Helper()
	tok, err := svc.GenerateToken(userID, false, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

type itemBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestRouter_RequiresAuth(t *testing.T) {
	router, _ := newTestServer(t)

	req := testutil.NewJSONRequest(t, "POST", "/items", map[string]any{"title": "bike"})
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_Healthz(t *testing.T) {
	router, _ := newTestServer(t)

	req := testutil.NewJSONRequest(t, "GET", "/healthz", nil)
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

// TestRouter_StolenBikeScenario walks the primary flow end to end: register,
// report stolen, a second user registers the found counterpart, both parties
// get notified, and the watcher's saved search fires.
func TestRouter_StolenBikeScenario(t *testing.T) {
	router, tokens := newTestServer(t)

	owner := domain.NewUserID()
	finder := domain.NewUserID()
	watcher := domain.NewUserID()
	ownerAuth := bearer(t, tokens, owner)
	finderAuth := bearer(t, tokens, finder)
	watcherAuth := bearer(t, tokens, watcher)

	var stolenBikeID string

	testutil.Given(t, "an owner registered a bike and a watcher saved a search", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, "POST", "/items", map[string]any{
			"category":    "bicycle",
			"title":       "red city bike",
			"fingerprint": "WTU 123 456 789",
			"lat":         48.8566,
			"lng":         2.3522,
		})
		req.Header.Set("Authorization", ownerAuth)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusCreated, rr.Code)
		stolenBikeID = testutil.UnmarshalResponse[itemBody](t, rr).ID

		req = testutil.NewJSONRequest(t, "POST", "/subscriptions", map[string]any{
			"query":         "bike",
			"category":      "bicycle",
			"lat":           48.8566,
			"lng":           2.3522,
			"radius_meters": 5000,
		})
		req.Header.Set("Authorization", watcherAuth)
		rr = testutil.DoRequest(router, req)
		require.Equal(t, http.StatusCreated, rr.Code)
	})

	testutil.When(t, "the owner reports the bike stolen", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, "POST", "/items/"+stolenBikeID+"/status",
			map[string]any{"status": "stolen"})
		req.Header.Set("Authorization", ownerAuth)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "stolen", testutil.UnmarshalResponse[itemBody](t, rr).Status)
	})

	testutil.When(t, "a finder registers a bike with the same serial", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, "POST", "/items", map[string]any{
			"category":    "bicycle",
			"title":       "bike found in park",
			"fingerprint": "wtu123456789",
			"lat":         48.8570,
			"lng":         2.3530,
		})
		req.Header.Set("Authorization", finderAuth)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusCreated, rr.Code)
	})

	testutil.Then(t, "both parties hold a match notification", func(t *testing.T) {
		for _, auth := range []string{ownerAuth, finderAuth} {
			req := testutil.NewJSONRequest(t, "GET", "/notifications", nil)
			req.Header.Set("Authorization", auth)
			rr := testutil.DoRequest(router, req)
			require.Equal(t, http.StatusOK, rr.Code)

			type listBody struct {
				Notifications []struct {
					Kind string `json:"kind"`
				} `json:"notifications"`
			}
			kinds := map[string]int{}
			for _, n := range testutil.UnmarshalResponse[listBody](t, rr).Notifications {
				kinds[n.Kind]++
			}
			assert.Equal(t, 1, kinds["match"])
		}
	})

	testutil.Then(t, "the watcher's saved search fired", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, "GET", "/notifications/count", nil)
		req.Header.Set("Authorization", watcherAuth)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		type countBody struct {
			Unread int `json:"unread"`
		}
		assert.GreaterOrEqual(t, testutil.UnmarshalResponse[countBody](t, rr).Unread, 1)
	})

	testutil.Then(t, "the stolen bike shows up in a nearby search", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, "GET",
			"/items/nearby?lat=48.8566&lng=2.3522&radius=2000&status=stolen", nil)
		req.Header.Set("Authorization", finderAuth)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		type nearbyBody struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		items := testutil.UnmarshalResponse[nearbyBody](t, rr).Items
		require.Len(t, items, 1)
		assert.Equal(t, stolenBikeID, items[0].ID)
	})

	testutil.Then(t, "a stranger cannot change the bike's status", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, "POST", "/items/"+stolenBikeID+"/status",
			map[string]any{"status": "found"})
		req.Header.Set("Authorization", finderAuth)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}
