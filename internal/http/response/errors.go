package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dbchat-backend/internal/domain/chat"
)

// StatusError is an error already classified for the wire.
type StatusError struct {
	Status int
	Code   string
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *StatusError) Unwrap() error { return e.Err }

var chatStatus = map[chat.ErrorCode]int{
	chat.CodeValidation: http.StatusUnprocessableEntity,
	chat.CodeNotFound:   http.StatusNotFound,
	chat.CodeForbidden:  http.StatusForbidden,
	chat.CodeConflict:   http.StatusConflict,
}

// FromError classifies err into an HTTP status and code. Chat error codes map
// onto fixed statuses; anything unclassified is a 500 with fallbackCode and a
// generic message.
func FromError(err error, fallbackCode string) *StatusError {
	var se *StatusError
	if errors.As(err, &se) {
		return se
	}
	var ce *chat.Error
	if errors.As(err, &ce) {
		if status, ok := chatStatus[ce.Code]; ok {
			msg := ce.Message
			if msg == "" {
				msg = string(ce.Code)
			}
			return &StatusError{Status: status, Code: string(ce.Code), Err: errors.New(msg)}
		}
	}
	return &StatusError{Status: http.StatusInternalServerError, Code: fallbackCode, Err: errors.New("internal error")}
}

// RespondChatError writes err using FromError.
func RespondChatError(c *gin.Context, fallbackCode string, err error) {
	se := FromError(err, fallbackCode)
	RespondError(c, se.Status, se.Code, se.Err)
}
