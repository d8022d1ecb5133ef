package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/carehub/pkg/logging"
)

func TestClient_StreamsDeltas(t *testing.T) {
	var gotReq streamRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Book`)
		flusher.Flush()
		fmt.Fprint(w, `ed"}}]}`+"\n\n")
		fmt.Fprint(w, dataLine(" for 9am"))
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	client := NewClient(srv.URL, logging.Discard(), WithAPIKey("secret"), WithModel("test-model"))

	var deltas []string
	reply, err := client.Stream(context.Background(), []Message{{ID: "m1", Role: RoleUser, Content: "book a test"}}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Booked for 9am", reply)
	assert.Equal(t, []string{"Booked", " for 9am"}, deltas)

	assert.True(t, gotReq.Stream)
	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "book a test", gotReq.Messages[0].Content)
	assert.Empty(t, gotReq.Messages[0].ID)
}

func TestClient_StatusErrors(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusPaymentRequired, ErrCreditsExhausted},
		{http.StatusInternalServerError, ErrUpstream},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, logging.Discard()).Stream(context.Background(), nil, nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClient_ConnectionDropMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		defer conn.Close()
		chunk := dataLine("partial")
		buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\nTransfer-Encoding: chunked\r\n\r\n")
		fmt.Fprintf(buf, "%x\r\n%s\r\n", len(chunk), chunk)
		_ = buf.Flush()
	}))
	defer srv.Close()

	var deltas []string
	reply, err := NewClient(srv.URL, logging.Discard()).Stream(context.Background(), nil, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, "partial", reply)
	assert.Equal(t, []string{"partial"}, deltas)
}

func TestClient_CallbackErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, dataLine("a")+dataLine("b")+"data: [DONE]\n")
	}))
	defer srv.Close()

	stop := errors.New("client gone")
	calls := 0
	_, err := NewClient(srv.URL, logging.Discard()).Stream(context.Background(), nil, func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestClient_NotConfigured(t *testing.T) {
	_, err := NewClient("  ", nil).Stream(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_EOFBeforeDoneIsInterrupted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, dataLine("Your slot is"))
	}))
	defer srv.Close()

	reply, err := NewClient(srv.URL, logging.Discard()).Stream(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, "Your slot is", reply)
}

func TestClient_SendsRoleAndContentOnly(t *testing.T) {
	var raw struct {
		Messages []map[string]any `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	msgs := []Message{{ID: "m1", Role: RoleUser, Content: "hi", Timestamp: time.Now()}, {Role: RoleAssistant, Content: "hello"}}
	_, err := NewClient(srv.URL, logging.Discard()).Stream(context.Background(), msgs, nil)
	require.NoError(t, err)
	require.Len(t, raw.Messages, 2)
	assert.Equal(t, map[string]any{"role": "user", "content": "hi"}, raw.Messages[0])
	assert.Equal(t, map[string]any{"role": "assistant", "content": "hello"}, raw.Messages[1])
}

func TestClient_TimeoutDoesNotModifyCallerClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	c := NewClient("http://assistant.local", nil, WithHTTPClient(shared), WithTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.NotSame(t, shared, c.httpClient)

	c = NewClient("http://assistant.local", nil, WithTimeout(5*time.Second), WithHTTPClient(shared))
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.Equal(t, time.Minute, shared.Timeout)

	c = NewClient("http://assistant.local", nil, WithHTTPClient(shared))
	assert.Same(t, shared, c.httpClient)
}
