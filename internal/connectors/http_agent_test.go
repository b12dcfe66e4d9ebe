package connectors

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/linc-gateway/internal/domain"
)

func TestHTTPAgentClient_SendsHeadersAndPayload(t *testing.T) {
	var (
		gotTask, gotCorrelation, gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTask = r.Header.Get(HeaderTask)
		gotCorrelation = r.Header.Get(HeaderCorrelationID)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":"X1"},"timestamp":42}`))
	}))
	defer srv.Close()

	client := NewHTTPAgentClient(srv.Client(), time.Second)
	res := client.Call(context.Background(), Call{
		Agent:         "claimlinc",
		Endpoint:      srv.URL,
		Task:          "submit",
		CorrelationID: "corr-1",
		Payload:       []byte(`{"amount":5}`),
	})

	require.Equal(t, KindOK, res.Kind)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, domain.StatusSuccess, res.Reply.Status)
	assert.Equal(t, int64(42), res.Reply.Timestamp)
	assert.JSONEq(t, `{"id":"X1"}`, string(res.Reply.Data))
	assert.Equal(t, "submit", gotTask)
	assert.Equal(t, "corr-1", gotCorrelation)
	assert.JSONEq(t, `{"amount":5}`, gotBody)
}

func TestHTTPAgentClient_EmptyPayloadSendsObject(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	res := NewHTTPAgentClient(nil, time.Second).Call(context.Background(), Call{Endpoint: srv.URL, Task: "process"})
	require.Equal(t, KindOK, res.Kind)
	assert.Equal(t, `{}`, gotBody)
}

func TestHTTPAgentClient_ErrorStatusIsStillOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"status":"error","message":"duplicate claim"}`))
	}))
	defer srv.Close()

	res := NewHTTPAgentClient(nil, time.Second).Call(context.Background(), Call{Endpoint: srv.URL})
	require.Equal(t, KindOK, res.Kind)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "duplicate claim", res.Reply.Message)
}

func TestHTTPAgentClient_ParseErrors(t *testing.T) {
	for _, body := range []string{`not json`, `{"data":1}`, `{"status":"maybe"}`, ``} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		res := NewHTTPAgentClient(nil, time.Second).Call(context.Background(), Call{Endpoint: srv.URL})
		srv.Close()

		assert.Equal(t, KindParseError, res.Kind, body)
		assert.True(t, errors.Is(res.Err, domain.ErrUpstreamInvalidResponse), body)
	}
}

func TestHTTPAgentClient_TransportErrors(t *testing.T) {
	// закрытый сервер: соединение отклонено
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := NewHTTPAgentClient(nil, time.Second).Call(context.Background(), Call{Endpoint: url})
	assert.Equal(t, KindTransportError, res.Kind)
	assert.True(t, errors.Is(res.Err, domain.ErrUpstreamUnreachable))
	assert.Zero(t, res.StatusCode)
}

func TestHTTPAgentClient_TimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	res := NewHTTPAgentClient(nil, 50*time.Millisecond).Call(context.Background(), Call{Endpoint: srv.URL})
	assert.Equal(t, KindTransportError, res.Kind)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ok", KindOK.String())
	assert.Equal(t, "parse_error", KindParseError.String())
	assert.Equal(t, "transport_error", KindTransportError.String())
}
