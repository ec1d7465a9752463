package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medquote/internal/http/handlers"
	"medquote/internal/service"
)

type stubChat struct {
	got      service.Request
	deadline bool
	resp     service.Response
	err      error
}

func (s *stubChat) Handle(ctx context.Context, req service.Request) (service.Response, error) {
	s.got = req
	_, s.deadline = ctx.Deadline()
	return s.resp, s.err
}

func buildTestRouter(chat handlers.ChatService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewChatHandler(chat, nil, time.Minute)
	r.POST("/api/chat", h.Chat)
	return r
}

func doRequest(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChat(t *testing.T) {
	chat := &stubChat{resp: service.Response{SessionID: "s-1", Reply: "hello"}}
	r := buildTestRouter(chat)

	w := doRequest(r, `{"sessionId":" s-1 ","message":" quote please ","days":4,"patient":{"diagnosis":"stroke","mobility":""}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hello", resp["reply"])
	assert.Equal(t, "s-1", resp["sessionId"])

	assert.Equal(t, "s-1", chat.got.SessionID)
	assert.Equal(t, "quote please", chat.got.Message)
	assert.Equal(t, 4, chat.got.Days)
	require.NotNil(t, chat.got.Patient.Diagnosis)
	assert.Equal(t, "stroke", *chat.got.Patient.Diagnosis)
	assert.Nil(t, chat.got.Patient.Mobility)
	assert.True(t, chat.deadline, "request timeout is applied")
}

func TestChat_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"empty message", `{"message":"   "}`},
		{"negative days", `{"message":"hi","days":-1}`},
		{"wrong type", `{"message":42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &stubChat{}
			w := doRequest(buildTestRouter(chat), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, chat.got.Message, "service is not called")
		})
	}
}

func TestChat_ServiceErrorStillReplies(t *testing.T) {
	chat := &stubChat{
		resp: service.Response{SessionID: "s-2", Reply: service.ApologyReply},
		err:  errors.New("redis down"),
	}
	w := doRequest(buildTestRouter(chat), `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "something went wrong")
}
