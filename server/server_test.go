package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/loop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	result *loop.TurnResult
	err    error

	gotConversationID string
	gotUserInput      string
}

func (f *fakeRunner) Turn(_ context.Context, conversationID, userInput string) (*loop.TurnResult, error) {
	f.gotConversationID = conversationID
	f.gotUserInput = userInput
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func postTurn(t *testing.T, handler http.Handler, body string) (*httptest.ResponseRecorder, TurnResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/assistant", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp TurnResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestTurnSuccess(t *testing.T) {
	runner := &fakeRunner{result: &loop.TurnResult{
		FinalText:   "Here is what I found.",
		CurrentRole: core.RoleSupervisor,
	}}
	srv := New(runner)

	rec, resp := postTurn(t, srv.Handler(),
		`{"conversationId":"conv-1","userInput":"find pizza"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, resp.Status)
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, "ongoing", resp.ConversationState)
	assert.Equal(t, "Answer generated successfully", resp.ResponseMessage)
	require.Len(t, resp.ConversationMessages, 1)
	assert.Equal(t, "Json", resp.ConversationMessages[0].ResponseType)
	assert.Equal(t, "Here is what I found.", resp.ConversationMessages[0].ResponseData)

	assert.Equal(t, "conv-1", runner.gotConversationID)
	assert.Equal(t, "find pizza", runner.gotUserInput)
}

func TestTurnTerminalEndsConversation(t *testing.T) {
	runner := &fakeRunner{result: &loop.TurnResult{
		FinalText:   loop.FarewellText,
		CurrentRole: core.RoleEnd,
		Terminal:    true,
	}}
	srv := New(runner)

	_, resp := postTurn(t, srv.Handler(),
		`{"conversationId":"conv-1","userInput":"bye"}`)

	assert.Equal(t, "ended", resp.ConversationState)
	assert.Equal(t, loop.FarewellText, resp.ConversationMessages[0].ResponseData)
}

func TestTurnFailureBody(t *testing.T) {
	runner := &fakeRunner{err: errors.New("reasoning service down")}
	srv := New(runner)

	rec, resp := postTurn(t, srv.Handler(),
		`{"conversationId":"conv-1","userInput":"hello"}`)

	// Turn failures keep the endpoint available with a generic body.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, resp.Status)
	assert.Equal(t, "ongoing", resp.ConversationState)
	assert.Equal(t, "Internal server error.", resp.ResponseMessage)
	require.Len(t, resp.ConversationMessages, 1)
	assert.Equal(t, "text", resp.ConversationMessages[0].ResponseType)
}

func TestTurnAssignsConversationID(t *testing.T) {
	runner := &fakeRunner{result: &loop.TurnResult{FinalText: "hi"}}
	srv := New(runner)

	_, resp := postTurn(t, srv.Handler(), `{"userInput":"hello"}`)

	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, resp.ConversationID, runner.gotConversationID)
}

func TestTurnRejectsMalformedBody(t *testing.T) {
	srv := New(&fakeRunner{})
	rec, _ := postTurn(t, srv.Handler(), `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTurnRejectsEmptyUserInput(t *testing.T) {
	srv := New(&fakeRunner{})
	rec, _ := postTurn(t, srv.Handler(), `{"conversationId":"conv-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := New(&fakeRunner{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
