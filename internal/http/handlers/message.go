package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/http/response"
	"github.com/yungbote/dbchat-backend/internal/services"
)

type MessageHandler struct {
	convs    services.ConversationService
	msgs     services.MessageService
	proj     services.ProjectionService
	maxLimit int
}

// NewMessageHandler builds the message endpoints; maxLimit bounds the page
// size a client may ask for.
func NewMessageHandler(convs services.ConversationService, msgs services.MessageService, proj services.ProjectionService, maxLimit int) *MessageHandler {
	return &MessageHandler{convs: convs, msgs: msgs, proj: proj, maxLimit: maxLimit}
}

// GET /api/dbchat/conversations/:id/messages?before_message_id=&limit=
func (h *MessageHandler) List(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "invalid_conversation_id")
	if !ok {
		return
	}
	before, ok := optionalIntQuery(c, "before_message_id")
	if !ok {
		return
	}
	if before != nil && *before < 1 {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", errors.New("before_message_id must be >= 1"))
		return
	}
	limit, ok := optionalIntQuery(c, "limit")
	if !ok {
		return
	}
	pageSize := 0
	if limit != nil {
		if *limit < 1 || (h.maxLimit > 0 && *limit > int64(h.maxLimit)) {
			response.RespondError(c, http.StatusUnprocessableEntity, "validation", errors.New("limit is out of range"))
			return
		}
		pageSize = int(*limit)
	}
	if _, ok := loadMemberConversation(c, h.convs, id, uid); !ok {
		return
	}

	msgs, err := h.msgs.GetMessages(dbcOf(c), id, before, pageSize)
	if err != nil {
		response.RespondChatError(c, "list_messages_failed", err)
		return
	}
	views, err := h.proj.LoadMessageViews(dbcOf(c), msgs)
	if err != nil {
		response.RespondChatError(c, "list_messages_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"messages": views})
}

type sendMessageRequest struct {
	Body        *string         `json:"body"`
	Attachments json.RawMessage `json:"attachments"`
}

// POST /api/dbchat/conversations/:id/messages
// body: { "body": "...", "attachments": [ {...} ] }
func (h *MessageHandler) Send(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "invalid_conversation_id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Body == nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", errors.New("body is required"))
		return
	}
	if _, ok := loadMemberConversation(c, h.convs, id, uid); !ok {
		return
	}
	msg, err := h.msgs.Send(dbcOf(c), services.SendMessageInput{
		ConversationID: id,
		SenderID:       uid,
		Body:           *req.Body,
		Attachments:    req.Attachments,
	})
	if err != nil {
		response.RespondChatError(c, "send_message_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"message": msg})
}

// POST /api/dbchat/messages/:id/read
func (h *MessageHandler) MarkAsRead(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	msg, ok := h.loadMemberMessage(c, uid)
	if !ok {
		return
	}
	if _, err := h.msgs.MarkAsRead(dbcOf(c), msg.ID, uid); err != nil {
		response.RespondChatError(c, "mark_read_failed", err)
		return
	}
	response.RespondNoContent(c)
}

// DELETE /api/dbchat/messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	msg, ok := h.loadMemberMessage(c, uid)
	if !ok {
		return
	}
	if msg.SenderID != uid {
		response.RespondError(c, http.StatusForbidden, string(chat.CodeForbidden), errors.New("only the sender can delete a message"))
		return
	}
	if err := h.msgs.Delete(dbcOf(c), msg.ID); err != nil {
		response.RespondChatError(c, "delete_message_failed", err)
		return
	}
	response.RespondNoContent(c)
}

func (h *MessageHandler) loadMemberMessage(c *gin.Context, uid int64) (*chat.Message, bool) {
	id, ok := idParam(c, "id", "invalid_message_id")
	if !ok {
		return nil, false
	}
	msg, err := h.msgs.Get(dbcOf(c), id)
	if err != nil {
		response.RespondChatError(c, "load_message_failed", err)
		return nil, false
	}
	if !requireMember(c, h.convs, msg.ConversationID, uid) {
		return nil, false
	}
	return msg, true
}
