package mailshield

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/mailshield/bulk"
	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/httpop"
	"github.com/prilive-com/mailshield/internal/testutil"
	"github.com/prilive-com/mailshield/invoker"
)

func newTestClient(t *testing.T, baseURL string, sleeper *testutil.FakeSleeper, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithAuthToken(testutil.TestToken),
		WithLogger(testutil.DiscardLogger()),
		WithInvokerOptions(
			invoker.WithSleeper(sleeper),
			invoker.WithJitter(testutil.MidpointJitter),
		),
	}
	c, err := New(baseURL, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNew_DefaultsEndpointToHost(t *testing.T) {
	c, err := New("https://acumbamail.com/api/1")
	require.NoError(t, err)
	assert.Equal(t, "acumbamail.com", c.Endpoint())
	assert.Equal(t, invoker.StateClosed, c.State())
	assert.Equal(t, []string{"acumbamail.com"}, c.Pool().Endpoints())

	c, err = New("https://acumbamail.com/api/1", WithEndpoint("acumbamail"))
	require.NoError(t, err)
	assert.Equal(t, "acumbamail", c.Invoker().Endpoint())
}

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New("not a url")
	assert.ErrorIs(t, err, fault.ErrInvalidConfig)

	_, err = New("https://acumbamail.com", WithRetries(0))
	assert.ErrorIs(t, err, fault.ErrInvalidConfig)
}

func TestClient_CallRetriesAndRedacts(t *testing.T) {
	server := testutil.NewMockServer(t)
	server.Script("/getLists/",
		func(w http.ResponseWriter, r *http.Request) {
			testutil.ReplyServerError(w, 503, "upstream "+r.URL.Query().Get("auth_token")+" unavailable")
		},
		func(w http.ResponseWriter, r *http.Request) {
			testutil.ReplyOK(w, map[string]any{"1042": map[string]string{"name": "Newsletter"}})
		},
	)
	sleeper := &testutil.FakeSleeper{}
	c := newTestClient(t, server.BaseURL(), sleeper)

	lists, err := Decode[map[string]map[string]string](context.Background(), c, httpop.Request{Name: "getLists", Path: "/getLists/"})
	require.NoError(t, err)
	assert.Equal(t, "Newsletter", lists["1042"]["name"])
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, sleeper.Calls())

	server.On("/getLists/", func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyBadRequest(w, "token "+r.URL.Query().Get("auth_token")+" lacks scope")
	})
	_, err = c.Call(context.Background(), httpop.Request{Name: "getLists", Path: "/getLists/"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testutil.TestToken)
	assert.Equal(t, fault.Validation, fault.As(err).Kind)
	assert.Equal(t, 1, c.ErrorSummary().ByKind[fault.Validation])
}

func TestClient_CallWithFallback(t *testing.T) {
	server := testutil.NewMockServer(t)
	server.On("/getLists/", func(w http.ResponseWriter, r *http.Request) {
		testutil.ReplyUnauthorized(w)
	})
	c := newTestClient(t, server.BaseURL(), &testutil.FakeSleeper{})

	reply, err := c.CallWithFallback(context.Background(), httpop.Request{Name: "getLists", Path: "/getLists/"},
		func(_ context.Context, f *fault.Failure) (*httpop.Reply, error) {
			assert.Equal(t, fault.Auth, f.Kind)
			return &httpop.Reply{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(reply.Body))
	assert.Equal(t, 1, server.CaptureCount(), "auth failures are not retried")
}

func TestClient_BulkWithMetrics(t *testing.T) {
	server := testutil.NewMockServer(t)
	server.On("/addSubscriber/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "user002") {
			testutil.ReplyError(w, http.StatusUnprocessableEntity, "invalid email")
			return
		}
		testutil.ReplySubscriberID(w, 1)
	})
	reg := prometheus.NewRegistry()
	c := newTestClient(t, server.BaseURL(), &testutil.FakeSleeper{}, WithMetrics(reg))

	var reqs []httpop.Request
	for _, s := range testutil.TestSubscribers(4) {
		reqs = append(reqs, httpop.Request{
			Name: "addSubscriber",
			Path: "/addSubscriber/",
			Body: map[string]any{"list_id": s.ListID, "email": s.Email},
		})
	}

	res := c.Bulk(context.Background(), reqs, bulk.WithPacing(0))

	assert.Len(t, res.Succeeded, 3)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 2, res.Failed[0].Index)
	assert.Equal(t, fault.Validation, res.Failed[0].Failure.Kind)

	n, err := promtest.GatherAndCount(reg, "mailshield_bulk_items_total", "mailshield_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "two outcomes for each family")
}

func TestClient_WrongTokenIsAuthFailure(t *testing.T) {
	server := testutil.NewMockServer(t)
	server.RequireToken("another-token")
	c := newTestClient(t, server.BaseURL(), &testutil.FakeSleeper{})

	_, err := c.Call(context.Background(), httpop.Request{Name: "getLists", Path: "/getLists/"})

	assert.ErrorIs(t, err, fault.ErrUnauthorized)
	assert.Equal(t, fault.Auth, fault.As(err).Kind)
	assert.Equal(t, 1, server.CaptureCount())
}

func TestClient_BulkPacesRequests(t *testing.T) {
	server := testutil.NewMockServer(t)
	c := newTestClient(t, server.BaseURL(), &testutil.FakeSleeper{})
	reqs := []httpop.Request{
		{Name: "getLists", Path: "/getLists/"},
		{Name: "getLists", Path: "/getLists/"},
	}

	res := c.Bulk(context.Background(), reqs, bulk.WithPacing(30*time.Millisecond))

	require.Len(t, res.Succeeded, 2)
	assert.GreaterOrEqual(t, server.TimeBetweenCaptures(0, 1), 20*time.Millisecond)
}
