package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/http/response"
	"github.com/yungbote/dbchat-backend/internal/services"
)

type PollHandler struct {
	convs services.ConversationService
	msgs  services.MessageService
	poll  services.PollService
}

func NewPollHandler(convs services.ConversationService, msgs services.MessageService, poll services.PollService) *PollHandler {
	return &PollHandler{convs: convs, msgs: msgs, poll: poll}
}

// GET /api/dbchat/poll?after_message_id=N
// 200 with messages newer than N across the caller's conversations, or 204
// when the wait times out.
func (h *PollHandler) Poll(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	after, ok := optionalIntQuery(c, "after_message_id")
	if !ok {
		return
	}
	if after == nil || *after < 0 {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", errors.New("after_message_id must be an integer >= 0"))
		return
	}

	ids, err := h.convs.ConversationIDsForUser(dbcOf(c), uid)
	if err != nil {
		response.RespondChatError(c, "poll_failed", err)
		return
	}
	if len(ids) == 0 {
		response.RespondOK(c, gin.H{"last_message_id": *after, "messages": []*chat.Message{}})
		return
	}

	res, err := h.poll.Poll(c.Request.Context(), services.PollRequest{
		ConversationIDs: ids,
		AfterMessageID:  *after,
	})
	if err != nil {
		if c.Request.Context().Err() != nil {
			// Client went away; nobody reads the response.
			c.Abort()
			return
		}
		response.RespondChatError(c, "poll_failed", err)
		return
	}
	if res.TimedOut || len(res.Messages) == 0 {
		response.RespondNoContent(c)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/dbchat/poll/cursor
// Returns the newest message id visible to the caller, for starting a poll
// loop without replaying history.
func (h *PollHandler) Cursor(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	ids, err := h.convs.ConversationIDsForUser(dbcOf(c), uid)
	if err != nil {
		response.RespondChatError(c, "cursor_failed", err)
		return
	}
	last, err := h.msgs.GetLastMessageID(dbcOf(c), ids)
	if err != nil {
		response.RespondChatError(c, "cursor_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"last_message_id": last})
}
