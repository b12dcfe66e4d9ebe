package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unknown agent", fmt.Errorf("registry: %w", ErrAgentNotFound), http.StatusNotFound},
		{"task not allowed", fmt.Errorf("registry: %w", ErrTaskNotAllowed), http.StatusBadRequest},
		{"bad request", ErrBadRequest, http.StatusBadRequest},
		{"unknown orchestrator task", &UnknownTaskError{Task: "nope"}, http.StatusBadRequest},
		{"extraction rejected", &ExtractionFailedError{StatusCode: 422, Message: "bad bundle"}, http.StatusBadRequest},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"unreachable", fmt.Errorf("extract: %w", ErrUpstreamUnreachable), http.StatusBadGateway},
		{"invalid response", ErrUpstreamInvalidResponse, http.StatusBadGateway},
		{"extraction unavailable", &ExtractionUnavailableError{Err: errors.New("timeout")}, http.StatusBadGateway},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestExtractedData_MessageType(t *testing.T) {
	assert.Equal(t, "claim-request", ExtractedData{"message_type": "claim-request"}.MessageType())
	assert.Equal(t, "", ExtractedData{"message_type": 42}.MessageType())
	assert.Equal(t, "", ExtractedData(nil).MessageType())
}

func TestAgentReply_Valid(t *testing.T) {
	assert.True(t, (&AgentReply{Status: StatusSuccess}).Valid())
	assert.True(t, (&AgentReply{Status: StatusError}).Valid())
	assert.False(t, (&AgentReply{Status: "ok"}).Valid())
	assert.False(t, (&AgentReply{}).Valid())
}
