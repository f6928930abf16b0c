package services

import (
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/dbchat-backend/internal/data/aggregates"
	"github.com/yungbote/dbchat-backend/internal/data/repos"
	"github.com/yungbote/dbchat-backend/internal/domain/chat"
	"github.com/yungbote/dbchat-backend/internal/platform/ctxutil"
	"github.com/yungbote/dbchat-backend/internal/platform/dbctx"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

type MessageView struct {
	*chat.Message
	Reads []*chat.MessageRead `json:"reads"`
}

type ConversationView struct {
	*chat.Conversation
	Participants  []*chat.Participant `json:"participants"`
	LatestMessage *chat.Message       `json:"latest_message"`
}

// ProjectionService loads related rows for a page of results in a fixed number
// of queries.
type ProjectionService interface {
	LoadConversationViews(dbc dbctx.Context, convs []*chat.Conversation) ([]*ConversationView, error)
	LoadMessageViews(dbc dbctx.Context, msgs []*chat.Message) ([]*MessageView, error)
}

type projectionService struct {
	log      *logger.Logger
	partRepo repos.ParticipantRepo
	msgRepo  repos.MessageRepo
	readRepo repos.MessageReadRepo
}

func NewProjectionService(baseLog *logger.Logger, partRepo repos.ParticipantRepo, msgRepo repos.MessageRepo, readRepo repos.MessageReadRepo) ProjectionService {
	return &projectionService{
		log:      baseLog.With("service", "ProjectionService"),
		partRepo: partRepo,
		msgRepo:  msgRepo,
		readRepo: readRepo,
	}
}

func (s *projectionService) LoadConversationViews(dbc dbctx.Context, convs []*chat.Conversation) ([]*ConversationView, error) {
	const op = "projection.conversations"
	if len(convs) == 0 {
		return []*ConversationView{}, nil
	}
	ids := make([]int64, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}

	var (
		parts  []*chat.Participant
		latest []*chat.Message
	)
	loadParts := func(dbc dbctx.Context) error {
		rows, err := s.partRepo.ListByConversationIDs(dbc, ids)
		parts = rows
		return err
	}
	loadLatest := func(dbc dbctx.Context) error {
		byConv, err := s.msgRepo.LatestIDs(dbc, ids)
		if err != nil {
			return err
		}
		msgIDs := make([]int64, 0, len(byConv))
		for _, id := range byConv {
			msgIDs = append(msgIDs, id)
		}
		rows, err := s.msgRepo.GetByIDs(dbc, msgIDs)
		latest = rows
		return err
	}

	// A transaction is one connection; queries on it cannot overlap.
	if dbc.InTx() {
		if err := loadParts(dbc); err != nil {
			return nil, aggregates.MapError(op, err)
		}
		if err := loadLatest(dbc); err != nil {
			return nil, aggregates.MapError(op, err)
		}
	} else {
		g, gctx := errgroup.WithContext(ctxutil.Default(dbc.Ctx))
		gdbc := dbctx.Context{Ctx: gctx}
		g.Go(func() error { return loadParts(gdbc) })
		g.Go(func() error { return loadLatest(gdbc) })
		if err := g.Wait(); err != nil {
			return nil, aggregates.MapError(op, err)
		}
	}

	partsBy := make(map[int64][]*chat.Participant, len(convs))
	for _, p := range parts {
		partsBy[p.ConversationID] = append(partsBy[p.ConversationID], p)
	}
	latestBy := make(map[int64]*chat.Message, len(latest))
	for _, m := range latest {
		latestBy[m.ConversationID] = m
	}

	out := make([]*ConversationView, 0, len(convs))
	for _, c := range convs {
		ps := partsBy[c.ID]
		if ps == nil {
			ps = []*chat.Participant{}
		}
		out = append(out, &ConversationView{
			Conversation:  c,
			Participants:  ps,
			LatestMessage: latestBy[c.ID],
		})
	}
	return out, nil
}

func (s *projectionService) LoadMessageViews(dbc dbctx.Context, msgs []*chat.Message) ([]*MessageView, error) {
	if len(msgs) == 0 {
		return []*MessageView{}, nil
	}
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	reads, err := s.readRepo.ListByMessageIDs(dbc, ids)
	if err != nil {
		return nil, aggregates.MapError("projection.messages", err)
	}
	readsBy := make(map[int64][]*chat.MessageRead, len(msgs))
	for _, r := range reads {
		readsBy[r.MessageID] = append(readsBy[r.MessageID], r)
	}
	out := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		rs := readsBy[m.ID]
		if rs == nil {
			rs = []*chat.MessageRead{}
		}
		out = append(out, &MessageView{Message: m, Reads: rs})
	}
	return out, nil
}
