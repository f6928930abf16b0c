package handlers

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/http/response"
	"github.com/yungbote/dbchat-backend/internal/services"
)

const maxTitleLength = 255

type ConversationHandler struct {
	convs services.ConversationService
	proj  services.ProjectionService
}

func NewConversationHandler(convs services.ConversationService, proj services.ProjectionService) *ConversationHandler {
	return &ConversationHandler{convs: convs, proj: proj}
}

// GET /api/dbchat/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	convs, err := h.convs.ListForUser(dbcOf(c), uid)
	if err != nil {
		response.RespondChatError(c, "list_conversations_failed", err)
		return
	}
	views, err := h.proj.LoadConversationViews(dbcOf(c), convs)
	if err != nil {
		response.RespondChatError(c, "list_conversations_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"conversations": views})
}

type createConversationRequest struct {
	Type         string  `json:"type"`
	Participants []int64 `json:"participants"`
	Title        *string `json:"title"`
}

// POST /api/dbchat/conversations
// body: { "type": "direct" | "group", "participants": [2, 3], "title": "..." }
func (h *ConversationHandler) Create(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", errors.New("invalid request body"))
		return
	}
	if len(req.Participants) == 0 {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", errors.New("participants are required"))
		return
	}
	title := ""
	if req.Title != nil {
		title = *req.Title
		if utf8.RuneCountInString(title) > maxTitleLength {
			response.RespondError(c, http.StatusUnprocessableEntity, "validation", errors.New("title is too long"))
			return
		}
	}

	conv, err := h.convs.Create(dbcOf(c), services.CreateConversationInput{
		Kind:           chat.Kind(strings.ToLower(strings.TrimSpace(req.Type))),
		ParticipantIDs: req.Participants,
		CreatorID:      uid,
		Title:          title,
	})
	if err != nil {
		response.RespondChatError(c, "create_conversation_failed", err)
		return
	}
	views, err := h.proj.LoadConversationViews(dbcOf(c), []*chat.Conversation{conv})
	if err != nil {
		response.RespondChatError(c, "create_conversation_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"conversation": views[0]})
}

// GET /api/dbchat/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "invalid_conversation_id")
	if !ok {
		return
	}
	conv, ok := loadMemberConversation(c, h.convs, id, uid)
	if !ok {
		return
	}
	views, err := h.proj.LoadConversationViews(dbcOf(c), []*chat.Conversation{conv})
	if err != nil {
		response.RespondChatError(c, "load_conversation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"conversation": views[0]})
}

type addParticipantRequest struct {
	UserID int64 `json:"user_id"`
}

// POST /api/dbchat/conversations/:id/participants
// body: { "user_id": 4 }
func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "invalid_conversation_id")
	if !ok {
		return
	}
	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", errors.New("user_id is required"))
		return
	}
	if _, ok := loadMemberConversation(c, h.convs, id, uid); !ok {
		return
	}
	p, err := h.convs.AddParticipant(dbcOf(c), id, req.UserID)
	if err != nil {
		response.RespondChatError(c, "add_participant_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"participant": p})
}

// DELETE /api/dbchat/conversations/:id/participants/:user_id
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "invalid_conversation_id")
	if !ok {
		return
	}
	target, ok := idParam(c, "user_id", "invalid_user_id")
	if !ok {
		return
	}
	if _, ok := loadMemberConversation(c, h.convs, id, uid); !ok {
		return
	}
	if _, err := h.convs.RemoveParticipant(dbcOf(c), id, target); err != nil {
		response.RespondChatError(c, "remove_participant_failed", err)
		return
	}
	response.RespondNoContent(c)
}
