package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/http/response"
	"github.com/yungbote/dbchat-backend/internal/platform/ctxutil"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
	"github.com/yungbote/dbchat-backend/internal/services"
)

func requireUser(c *gin.Context) (int64, bool) {
	uid := ctxutil.UserID(c.Request.Context())
	if uid <= 0 {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return 0, false
	}
	return uid, true
}

func idParam(c *gin.Context, name, code string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(c, http.StatusBadRequest, code, errors.New("invalid "+name))
		return 0, false
	}
	return id, true
}

// optionalIntQuery returns (nil, true) when the key is absent.
func optionalIntQuery(c *gin.Context, key string) (*int64, bool) {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", errors.New(key+" must be an integer"))
		return nil, false
	}
	return &v, true
}

func dbcOf(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// loadMemberConversation resolves the conversation and checks that the caller
// belongs to it: 404 when missing, 403 when not a member.
func loadMemberConversation(c *gin.Context, convs services.ConversationService, conversationID, userID int64) (*chat.Conversation, bool) {
	dbc := dbcOf(c)
	conv, err := convs.Get(dbc, conversationID)
	if err != nil {
		response.RespondChatError(c, "load_conversation_failed", err)
		return nil, false
	}
	if !requireMember(c, convs, conversationID, userID) {
		return nil, false
	}
	return conv, true
}

func requireMember(c *gin.Context, convs services.ConversationService, conversationID, userID int64) bool {
	ok, err := convs.IsParticipant(dbcOf(c), conversationID, userID)
	if err != nil {
		response.RespondChatError(c, "membership_check_failed", err)
		return false
	}
	if !ok {
		response.RespondError(c, http.StatusForbidden, string(chat.CodeForbidden), errors.New("you are not a participant of this conversation"))
		return false
	}
	return true
}
