package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url, key string) *Client {
	c := New(Config{APIKey: key, APIURL: url, FromAddress: "noreply@resend.dev", FromName: "Tixora"}, nil)
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = time.Millisecond
	return c
}

func TestSendPostsToResend(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"em_123"}`))
	}))
	defer srv.Close()

	id, err := testClient(srv.URL, "re_test").Send(context.Background(), Message{To: "gading@email.com", Subject: "Hi", HTML: "<p>x</p>"})

	require.NoError(t, err)
	assert.Equal(t, "em_123", id)
	assert.Equal(t, "Tixora <noreply@resend.dev>", got.From)
	assert.Equal(t, []string{"gading@email.com"}, got.To)
}

func TestSendRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"em_456"}`))
	}))
	defer srv.Close()

	id, err := testClient(srv.URL, "re_test").Send(context.Background(), Message{To: "a@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "em_456", id)
	assert.Equal(t, 2, calls)
}

func TestSendReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"message":"Invalid to field"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, "re_test").Send(context.Background(), Message{To: "bad"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid to field")
}

func TestSendDisabledWithoutKey(t *testing.T) {
	for _, key := range []string{"", "your_resend_api_key_here"} {
		c := testClient("http://127.0.0.1:0", key)
		assert.False(t, c.Enabled())
		_, err := c.Send(context.Background(), Message{To: "a@example.com"})
		assert.ErrorIs(t, err, ErrDisabled)
	}
}
