// README: Chat handler; one conversational turn of the quotation assistant.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medquote/internal/logging"
	"medquote/internal/service"
	"medquote/internal/types"
)

const maxMessageLen = 4000

// ChatService runs one chat turn.
type ChatService interface {
	Handle(ctx context.Context, req service.Request) (service.Response, error)
}

type ChatHandler struct {
	chat    ChatService
	logger  *zap.Logger
	timeout time.Duration
}

func NewChatHandler(chat ChatService, logger *zap.Logger, timeout time.Duration) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logging.OrNop(logger), timeout: timeout}
}

type patientReq struct {
	Diagnosis     string `json:"diagnosis"`
	Consciousness string `json:"consciousness"`
	Mobility      string `json:"mobility"`
}

type chatReq struct {
	SessionID string      `json:"sessionId"`
	Message   string      `json:"message"`
	Patient   *patientReq `json:"patient"`
	Days      int         `json:"days"`
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(c, http.StatusBadRequest, "missing message")
		return
	}
	if len(req.Message) > maxMessageLen {
		writeError(c, http.StatusBadRequest, "message too long")
		return
	}
	if req.Days < 0 {
		writeError(c, http.StatusBadRequest, "days must not be negative")
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	in := service.Request{SessionID: req.SessionID, Message: req.Message, Days: req.Days}
	if req.Patient != nil {
		in.Patient = types.PatientProfile{
			Diagnosis:     types.StringPtr(strings.TrimSpace(req.Patient.Diagnosis)),
			Consciousness: types.StringPtr(strings.TrimSpace(req.Patient.Consciousness)),
			Mobility:      types.StringPtr(strings.TrimSpace(req.Patient.Mobility)),
		}
	}

	resp, err := h.chat.Handle(ctx, in)
	if err != nil {
		// the planner always pairs an error with a user-facing reply
		h.logger.Error("chat turn failed", zap.Error(err), zap.String("session_id", req.SessionID))
	}
	writeJSON(c, http.StatusOK, resp)
}
