package zendesk

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindesk/internal/errs"
	"github.com/lindesk/pkg/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New("example.zendesk.com", "agent@example.com", "token123")
	client.SetBaseURL(server.URL)
	return client
}

func TestFetchThreadMapsTicket(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/tickets/42.json", func(w http.ResponseWriter, r *http.Request) {
		expected := base64.StdEncoding.EncodeToString([]byte("agent@example.com/token:token123"))
		assert.Equal(t, "Basic "+expected, r.Header.Get("Authorization"))
		w.Write([]byte(`{"ticket":{"id":42,"subject":"Login broken","description":"Cannot log in","status":"pending","priority":"high","requester_id":7,"organization_id":9}}`))
	})
	mux.HandleFunc("/api/v2/tickets/42/comments.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"comments":[
			{"id":1,"author_id":7,"body":"Cannot log in","public":true},
			{"id":2,"author_id":8,"body":"Checked the auth logs","public":false},
			{"id":3,"author_id":8,"body":"Deploy went out","metadata":{"is_private":true}}
		]}`))
	})
	mux.HandleFunc("/api/v2/organizations/9.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organization":{"name":"Acme Corp"}}`))
	})
	mux.HandleFunc("/api/v2/users/7.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"name":"Pat","email":"pat@acme.example"}}`))
	})

	thread, err := newTestClient(t, mux).FetchThread(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", thread.ID)
	assert.Equal(t, "Login broken", thread.Subject)
	assert.Equal(t, models.StatusPending, thread.Status)
	assert.Equal(t, models.PriorityHigh, thread.Priority)
	assert.Equal(t, "Acme Corp", thread.Organization)
	assert.Equal(t, models.Customer{ID: "7", Name: "Pat", Email: "pat@acme.example"}, thread.Customer)

	require.Len(t, thread.Comments, 3)
	assert.True(t, thread.Comments[0].Public)
	assert.False(t, thread.Comments[1].Public, "explicit public flag")
	assert.False(t, thread.Comments[2].Public, "metadata privacy fallback")
}

func TestFetchThreadNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"RecordNotFound"}`, http.StatusNotFound)
	})

	_, err := newTestClient(t, mux).FetchThread(context.Background(), "9999")

	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Contains(t, err.Error(), "9999")
}

func TestFetchThreadUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := newTestClient(t, mux).FetchThread(context.Background(), "42")

	require.Error(t, err)
	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
	assert.False(t, errs.IsNotFound(err))
}

func TestFetchThreadMissingID(t *testing.T) {
	called := false
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	_, err := client.FetchThread(context.Background(), "")

	require.Error(t, err)
	assert.False(t, called, "no network call for a missing id")
}

func TestFetchThreadOrganizationFailureIsSwallowed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/tickets/42.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ticket":{"id":42,"subject":"","organization_id":9}}`))
	})
	mux.HandleFunc("/api/v2/tickets/42/comments.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"comments":[]}`))
	})
	mux.HandleFunc("/api/v2/organizations/9.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	thread, err := newTestClient(t, mux).FetchThread(context.Background(), "42")
	require.NoError(t, err)

	assert.Empty(t, thread.Organization)
	assert.Equal(t, "No subject", thread.Subject)
}
