package service

import (
	"Homestead/internal/api/dto"
	"Homestead/internal/pkg/realtime"
	"context"
	"strings"
	"testing"
)

type reactionFixture struct {
	router  *realtime.Router
	convSvc ConversationService
	msgSvc  MessageService
	svc     ReactionService
}

func newReactionFixture(t *testing.T) *reactionFixture {
	t.Helper()
	convRepo := newFakeConversationRepo()
	presenceRepo := newFakePresenceRepo()
	msgRepo := newFakeMessageRepo()
	reactionRepo := newFakeReactionRepo()
	listingClient := newFakeListingClient()
	router := realtime.NewRouter(realtime.NewMemoryBroker())

	convSvc := NewConversationService(convRepo, presenceRepo, msgRepo, listingClient, router)
	msgSvc := NewMessageService(convRepo, msgRepo, convSvc, router, newFakeChatProducer())
	svc := NewReactionService(reactionRepo, msgRepo, convSvc, router)
	return &reactionFixture{router: router, convSvc: convSvc, msgSvc: msgSvc, svc: svc}
}

// seedMessage 建立会话并由买家 1 发送一条消息
func (f *reactionFixture) seedMessage(t *testing.T) (uint64, string) {
	t.Helper()
	ctx := context.Background()
	conv, err := f.convSvc.GetOrCreate(ctx, 1, &dto.CreateConversationReq{ListingID: 100, SellerID: 2})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	msg, err := f.msgSvc.Send(ctx, 1, &dto.SendMessageReq{ConversationID: conv.ID, Content: "看房时间方便吗"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	return conv.ID, msg.ID
}

func TestToggle_AddThenRemove(t *testing.T) {
	f := newReactionFixture(t)
	_, msgID := f.seedMessage(t)
	ctx := context.Background()
	req := &dto.ToggleReactionReq{MessageID: msgID, Emoji: "👍"}

	added, err := f.svc.Toggle(ctx, 2, req)
	if err != nil {
		t.Fatalf("toggle on failed: %v", err)
	}
	if added.Counts["👍"] != 1 {
		t.Fatalf("expected count 1, got %d", added.Counts["👍"])
	}
	if len(added.Users["👍"]) != 1 || added.Users["👍"][0] != 2 {
		t.Fatalf("unexpected users: %v", added.Users)
	}

	removed, err := f.svc.Toggle(ctx, 2, req)
	if err != nil {
		t.Fatalf("toggle off failed: %v", err)
	}
	if removed.Counts["👍"] != 0 {
		t.Fatalf("expected count 0 after removal, got %d", removed.Counts["👍"])
	}
}

func TestToggle_PerUserPerEmoji(t *testing.T) {
	f := newReactionFixture(t)
	_, msgID := f.seedMessage(t)
	ctx := context.Background()

	if _, err := f.svc.Toggle(ctx, 1, &dto.ToggleReactionReq{MessageID: msgID, Emoji: "👍"}); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if _, err := f.svc.Toggle(ctx, 2, &dto.ToggleReactionReq{MessageID: msgID, Emoji: "👍"}); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	aggregate, err := f.svc.Toggle(ctx, 2, &dto.ToggleReactionReq{MessageID: msgID, Emoji: "❤️"})
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	if aggregate.Counts["👍"] != 2 || aggregate.Counts["❤️"] != 1 {
		t.Fatalf("unexpected counts: %v", aggregate.Counts)
	}
}

func TestToggle_PublishesAggregate(t *testing.T) {
	f := newReactionFixture(t)
	convID, msgID := f.seedMessage(t)
	ctx := context.Background()

	sub, err := f.router.Subscribe(ctx, realtime.ConversationScope(convID))
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Close()

	if _, err = f.svc.Toggle(ctx, 2, &dto.ToggleReactionReq{MessageID: msgID, Emoji: "👍"}); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	event := waitEvent(t, sub)
	if event.Type != realtime.EventReactionChanged {
		t.Fatalf("expected REACTION_CHANGED, got %s", event.Type)
	}
	var payload dto.ReactionAggregateDTO
	if err := event.DecodePayload(&payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if payload.MessageID != msgID || payload.Counts["👍"] != 1 {
		t.Fatalf("unexpected aggregate payload: %+v", payload)
	}
}

func TestToggle_Validation(t *testing.T) {
	f := newReactionFixture(t)
	_, msgID := f.seedMessage(t)
	ctx := context.Background()

	// 非会话成员
	if _, err := f.svc.Toggle(ctx, 99, &dto.ToggleReactionReq{MessageID: msgID, Emoji: "👍"}); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	// 不存在的消息
	if _, err := f.svc.Toggle(ctx, 1, &dto.ToggleReactionReq{MessageID: "000000000000000000000000", Emoji: "👍"}); err != ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}

	// 超长表情
	if _, err := f.svc.Toggle(ctx, 1, &dto.ToggleReactionReq{MessageID: msgID, Emoji: strings.Repeat("👍", 20)}); err != ErrEmojiInvalid {
		t.Fatalf("expected ErrEmojiInvalid, got %v", err)
	}
}

func TestToggle_DeletedMessageRejected(t *testing.T) {
	f := newReactionFixture(t)
	_, msgID := f.seedMessage(t)
	ctx := context.Background()

	if err := f.msgSvc.Delete(ctx, 1, msgID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := f.svc.Toggle(ctx, 2, &dto.ToggleReactionReq{MessageID: msgID, Emoji: "👍"}); err != ErrMessageDeleted {
		t.Fatalf("expected ErrMessageDeleted, got %v", err)
	}
}
