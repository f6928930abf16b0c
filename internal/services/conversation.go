package services

import (
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/data/aggregates"
	"github.com/yungbote/dbchat-backend/internal/data/repos"
	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/observability"
	"github.com/yungbote/dbchat-backend/internal/platform/ctxutil"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

type CreateConversationInput struct {
	Kind           chat.Kind
	ParticipantIDs []int64
	CreatorID      int64
	Title          string
}

type ConversationService interface {
	Create(dbc dbctx.Context, in CreateConversationInput) (*chat.Conversation, error)
	Get(dbc dbctx.Context, conversationID int64) (*chat.Conversation, error)
	AddParticipant(dbc dbctx.Context, conversationID, userID int64) (*chat.Participant, error)
	// RemoveParticipant reports whether a membership row was deleted.
	RemoveParticipant(dbc dbctx.Context, conversationID, userID int64) (bool, error)
	ListForUser(dbc dbctx.Context, userID int64) ([]*chat.Conversation, error)
	IsParticipant(dbc dbctx.Context, conversationID, userID int64) (bool, error)
	ConversationIDsForUser(dbc dbctx.Context, userID int64) ([]int64, error)
}

type conversationService struct {
	db       *gorm.DB
	log      *logger.Logger
	tx       aggregates.TxRunner
	convRepo repos.ConversationRepo
	partRepo repos.ParticipantRepo
	msgRepo  repos.MessageRepo
}

func NewConversationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	tx aggregates.TxRunner,
	convRepo repos.ConversationRepo,
	partRepo repos.ParticipantRepo,
	msgRepo repos.MessageRepo,
) ConversationService {
	if tx == nil {
		tx = aggregates.NewGormTxRunner(db)
	}
	return &conversationService{
		db:       db,
		log:      baseLog.With("service", "ConversationService"),
		tx:       tx,
		convRepo: convRepo,
		partRepo: partRepo,
		msgRepo:  msgRepo,
	}
}

func (s *conversationService) Create(dbc dbctx.Context, in CreateConversationInput) (*chat.Conversation, error) {
	const op = "conversation.create"
	ctx, span := observability.Tracer().Start(ctxutil.Default(dbc.Ctx), "chat.create_conversation")
	defer span.End()
	dbc.Ctx = ctx

	if !in.Kind.Valid() {
		return nil, chat.Validation(op, "invalid conversation type")
	}
	ids := normalizeParticipantIDs(in.ParticipantIDs, in.CreatorID)
	if err := validateMembership(op, in.Kind, ids); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("chat.kind", string(in.Kind)),
		attribute.Int("chat.participants", len(ids)),
	)

	var directKey *string
	if in.Kind == chat.KindDirect {
		key := chat.DirectKey(ids[0], ids[1])
		directKey = &key
	}

	var out *chat.Conversation
	created := false
	err := aggregates.Within(s.tx, dbc, func(inner dbctx.Context) error {
		if directKey != nil {
			existing, err := s.convRepo.FindDirect(inner, *directKey)
			if err != nil {
				return err
			}
			if existing != nil {
				out = existing
				return nil
			}
		}

		conv, err := s.convRepo.Create(inner, &chat.Conversation{
			Kind:      in.Kind,
			Title:     normalizeTitle(in.Kind, in.Title),
			DirectKey: directKey,
		})
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		rows := make([]*chat.Participant, 0, len(ids))
		for _, uid := range ids {
			rows = append(rows, &chat.Participant{
				ConversationID: conv.ID,
				UserID:         uid,
				JoinedAt:       now,
			})
		}
		if _, err := s.partRepo.Create(inner, rows); err != nil {
			return err
		}
		out = conv
		created = true
		return nil
	})
	if err != nil {
		// Lost the race for this pair: hand back the winner.
		if directKey != nil && aggregates.IsUniqueViolation(err) && !dbc.InTx() {
			existing, ferr := s.convRepo.FindDirect(dbc, *directKey)
			if ferr == nil && existing != nil {
				s.log.Debug("Direct conversation created concurrently; returning existing", "conversation_id", existing.ID)
				return existing, nil
			}
		}
		span.RecordError(err)
		return nil, aggregates.MapError(op, err)
	}
	if created {
		s.log.Info("Conversation created", "conversation_id", out.ID, "kind", out.Kind, "creator_id", in.CreatorID)
	}
	return out, nil
}

func (s *conversationService) Get(dbc dbctx.Context, conversationID int64) (*chat.Conversation, error) {
	const op = "conversation.get"
	conv, err := s.convRepo.GetByID(dbc, conversationID)
	if err != nil {
		return nil, notFoundAs(op, "conversation not found", err)
	}
	return conv, nil
}

func (s *conversationService) AddParticipant(dbc dbctx.Context, conversationID, userID int64) (*chat.Participant, error) {
	const op = "conversation.add_participant"
	if userID <= 0 {
		return nil, chat.Validation(op, "invalid user id")
	}
	var out *chat.Participant
	err := aggregates.Within(s.tx, dbc, func(inner dbctx.Context) error {
		conv, err := s.convRepo.GetByID(inner, conversationID)
		if err != nil {
			return notFoundAs(op, "conversation not found", err)
		}
		if conv.IsDirect() {
			return chat.Validation(op, "cannot add participants to direct conversations")
		}
		exists, err := s.partRepo.Exists(inner, conversationID, userID)
		if err != nil {
			return err
		}
		if exists {
			return chat.Validation(op, "user is already a participant")
		}
		rows, err := s.partRepo.Create(inner, []*chat.Participant{{
			ConversationID: conversationID,
			UserID:         userID,
			JoinedAt:       time.Now().UTC(),
		}})
		if err != nil {
			if aggregates.IsUniqueViolation(err) {
				return chat.NewError(chat.CodeValidation, op, "user is already a participant", err)
			}
			return err
		}
		out = rows[0]
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	s.log.Info("Participant added", "conversation_id", conversationID, "user_id", userID)
	return out, nil
}

func (s *conversationService) RemoveParticipant(dbc dbctx.Context, conversationID, userID int64) (bool, error) {
	const op = "conversation.remove_participant"
	removed := false
	err := aggregates.Within(s.tx, dbc, func(inner dbctx.Context) error {
		conv, err := s.convRepo.GetByID(inner, conversationID)
		if err != nil {
			return notFoundAs(op, "conversation not found", err)
		}
		if conv.IsDirect() {
			return chat.Validation(op, "cannot remove participants from direct conversations")
		}
		n, err := s.partRepo.Delete(inner, conversationID, userID)
		if err != nil {
			return err
		}
		removed = n > 0
		return nil
	})
	if err != nil {
		return false, aggregates.MapError(op, err)
	}
	if removed {
		s.log.Info("Participant removed", "conversation_id", conversationID, "user_id", userID)
	}
	return removed, nil
}

func (s *conversationService) ListForUser(dbc dbctx.Context, userID int64) ([]*chat.Conversation, error) {
	const op = "conversation.list_for_user"
	if userID <= 0 {
		return nil, chat.Validation(op, "invalid user id")
	}
	convs, err := s.convRepo.ListByUser(dbc, userID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if len(convs) == 0 {
		return []*chat.Conversation{}, nil
	}
	latest, err := s.latestMessages(dbc, convs)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	sortByActivity(convs, latest)
	return convs, nil
}

func (s *conversationService) IsParticipant(dbc dbctx.Context, conversationID, userID int64) (bool, error) {
	ok, err := s.partRepo.Exists(dbc, conversationID, userID)
	if err != nil {
		return false, aggregates.MapError("conversation.is_participant", err)
	}
	return ok, nil
}

func (s *conversationService) ConversationIDsForUser(dbc dbctx.Context, userID int64) ([]int64, error) {
	ids, err := s.partRepo.ConversationIDsByUser(dbc, userID)
	if err != nil {
		return nil, aggregates.MapError("conversation.ids_for_user", err)
	}
	return ids, nil
}

// latestMessages maps conversation id to its newest live message.
func (s *conversationService) latestMessages(dbc dbctx.Context, convs []*chat.Conversation) (map[int64]*chat.Message, error) {
	ids := make([]int64, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	latestIDs, err := s.msgRepo.LatestIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	msgIDs := make([]int64, 0, len(latestIDs))
	for _, id := range latestIDs {
		msgIDs = append(msgIDs, id)
	}
	msgs, err := s.msgRepo.GetByIDs(dbc, msgIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*chat.Message, len(msgs))
	for _, m := range msgs {
		out[m.ConversationID] = m
	}
	return out, nil
}

// sortByActivity orders by latest message time, else the conversation's own
// created_at, newest first; ties fall back to id descending.
func sortByActivity(convs []*chat.Conversation, latest map[int64]*chat.Message) {
	activity := func(c *chat.Conversation) time.Time {
		if m := latest[c.ID]; m != nil {
			return m.CreatedAt
		}
		return c.CreatedAt
	}
	sort.SliceStable(convs, func(i, j int) bool {
		ai, aj := activity(convs[i]), activity(convs[j])
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return convs[i].ID > convs[j].ID
	})
}

func notFoundAs(op, message string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.NewError(chat.CodeNotFound, op, message, err)
	}
	return err
}
