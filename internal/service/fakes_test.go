package service

import (
	"Homestead/internal/model"
	"Homestead/internal/pkg/kafka"
	"Homestead/internal/pkg/listing"
	mongorepo "Homestead/internal/pkg/mongo"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

var errDuplicateKey = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

type fakeConversationRepo struct {
	mu     sync.Mutex
	nextID uint64
	convs  map[uint64]*model.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{convs: make(map[uint64]*model.Conversation)}
}

func (f *fakeConversationRepo) Create(_ context.Context, conv *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.convs {
		if existing.ListingID == conv.ListingID && existing.BuyerID == conv.BuyerID {
			return errDuplicateKey
		}
	}
	f.nextID++
	conv.ID = f.nextID
	clone := *conv
	f.convs[conv.ID] = &clone
	return nil
}

func (f *fakeConversationRepo) GetByID(_ context.Context, convID uint64) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[convID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *conv
	return &clone, nil
}

func (f *fakeConversationRepo) GetByListingBuyer(_ context.Context, listingID, buyerID uint64) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.convs {
		if conv.ListingID == listingID && conv.BuyerID == buyerID {
			clone := *conv
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConversationRepo) ListVisibleFor(_ context.Context, userID uint64) ([]*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Conversation
	for _, conv := range f.convs {
		visible := (conv.BuyerID == userID && conv.BuyerHidden == 0) ||
			(conv.SellerID == userID && conv.SellerHidden == 0)
		if visible {
			clone := *conv
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastMessageAt.After(result[j].LastMessageAt)
	})
	return result, nil
}

func (f *fakeConversationRepo) SetHidden(_ context.Context, convID uint64, forBuyer bool, hidden bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[convID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	var value int8
	if hidden {
		value = 1
	}
	if forBuyer {
		conv.BuyerHidden = value
	} else {
		conv.SellerHidden = value
	}
	return nil
}

func (f *fakeConversationRepo) AllocateSeq(_ context.Context, convID uint64, preview string, senderID uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[convID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	conv.MaxMsgSeq++
	conv.LastMsgPreview = preview
	conv.LastSenderID = senderID
	conv.LastMessageAt = time.Now()
	conv.BuyerHidden = 0
	conv.SellerHidden = 0
	return conv.MaxMsgSeq, nil
}

func (f *fakeConversationRepo) UpdateListingSnapshot(_ context.Context, listingID uint64, title, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.convs {
		if conv.ListingID == listingID {
			conv.ListingTitle = title
			conv.ListingImageURL = imageURL
		}
	}
	return nil
}

func (f *fakeConversationRepo) ListActiveSince(_ context.Context, since time.Time, limit int) ([]*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Conversation
	for _, conv := range f.convs {
		if conv.LastMessageAt.After(since) && len(result) < limit {
			clone := *conv
			result = append(result, &clone)
		}
	}
	return result, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*mongorepo.Message
	failSave bool
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (f *fakeMessageRepo) EnsureIndexes(context.Context) error { return nil }

func (f *fakeMessageRepo) SaveMessage(_ context.Context, msg *mongorepo.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return errors.New("mongo unavailable")
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	clone := *msg
	f.messages = append(f.messages, &clone)
	return nil
}

func (f *fakeMessageRepo) GetByID(_ context.Context, id string) (*mongorepo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.messages {
		if msg.ID.Hex() == id {
			clone := *msg
			return &clone, nil
		}
	}
	return nil, driver.ErrNoDocuments
}

func (f *fakeMessageRepo) GetHistory(_ context.Context, convID uint64, beforeSeq uint64, pageSize int) ([]*mongorepo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*mongorepo.Message
	for _, msg := range f.messages {
		if msg.ConversationID != convID {
			continue
		}
		if beforeSeq > 0 && msg.Seq >= beforeSeq {
			continue
		}
		clone := *msg
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq > result[j].Seq })
	if len(result) > pageSize {
		result = result[:pageSize]
	}
	return result, nil
}

func (f *fakeMessageRepo) UpdateContent(_ context.Context, id string, senderID uint64, content string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.messages {
		if msg.ID.Hex() == id && msg.SenderID == senderID && !msg.IsDeleted {
			msg.Content = content
			edited := at
			msg.EditedAt = &edited
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMessageRepo) SoftDelete(_ context.Context, id string, senderID uint64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.messages {
		if msg.ID.Hex() == id && msg.SenderID == senderID && !msg.IsDeleted {
			msg.IsDeleted = true
			deleted := at
			msg.DeletedAt = &deleted
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMessageRepo) MarkRead(_ context.Context, convID uint64, readerID uint64, upToSeq uint64, at time.Time) ([]*mongorepo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected []*mongorepo.Message
	for _, msg := range f.messages {
		if msg.ConversationID != convID || msg.SenderID == readerID || msg.ReadAt != nil {
			continue
		}
		if upToSeq > 0 && msg.Seq > upToSeq {
			continue
		}
		readAt := at
		msg.ReadAt = &readAt
		clone := *msg
		affected = append(affected, &clone)
	}
	return affected, nil
}

func (f *fakeMessageRepo) CountUnread(_ context.Context, convID uint64, userID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, msg := range f.messages {
		if msg.ConversationID == convID && msg.SenderID != userID && msg.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

type fakePresenceRepo struct {
	mu         sync.Mutex
	heartbeats map[uint64]time.Time
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{heartbeats: make(map[uint64]time.Time)}
}

func (f *fakePresenceRepo) Touch(_ context.Context, userID uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats[userID] = at
	return nil
}

func (f *fakePresenceRepo) Clear(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.heartbeats, userID)
	return nil
}

func (f *fakePresenceRepo) LastHeartbeat(_ context.Context, userID uint64) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.heartbeats[userID]
	return at, ok, nil
}

func (f *fakePresenceRepo) LastHeartbeats(_ context.Context, userIDs []uint64) (map[uint64]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[uint64]time.Time)
	for _, id := range userIDs {
		if at, ok := f.heartbeats[id]; ok {
			result[id] = at
		}
	}
	return result, nil
}

type reactionKey struct {
	messageID string
	userID    uint64
	emoji     string
}

type fakeReactionRepo struct {
	mu        sync.Mutex
	reactions []*model.Reaction
	index     map[reactionKey]struct{}
}

func newFakeReactionRepo() *fakeReactionRepo {
	return &fakeReactionRepo{index: make(map[reactionKey]struct{})}
}

func (f *fakeReactionRepo) Create(_ context.Context, reaction *model.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := reactionKey{reaction.MessageID, reaction.UserID, reaction.Emoji}
	if _, ok := f.index[key]; ok {
		return errDuplicateKey
	}
	f.index[key] = struct{}{}
	clone := *reaction
	clone.CreatedAt = time.Now()
	f.reactions = append(f.reactions, &clone)
	return nil
}

func (f *fakeReactionRepo) Delete(_ context.Context, messageID string, userID uint64, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := reactionKey{messageID, userID, emoji}
	delete(f.index, key)
	for i, r := range f.reactions {
		if r.MessageID == messageID && r.UserID == userID && r.Emoji == emoji {
			f.reactions = append(f.reactions[:i], f.reactions[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeReactionRepo) ListByMessage(_ context.Context, messageID string) ([]*model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Reaction
	for _, r := range f.reactions {
		if r.MessageID == messageID {
			clone := *r
			result = append(result, &clone)
		}
	}
	return result, nil
}

type fakeListingClient struct {
	mu       sync.Mutex
	listings map[uint64]*listing.Info
	fail     bool
}

func newFakeListingClient() *fakeListingClient {
	return &fakeListingClient{listings: make(map[uint64]*listing.Info)}
}

func (f *fakeListingClient) GetListing(_ context.Context, listingID uint64) (*listing.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("listing service down")
	}
	info, ok := f.listings[listingID]
	if !ok {
		return nil, errors.New("listing not found")
	}
	clone := *info
	return &clone, nil
}

type fakeChatProducer struct {
	mu     sync.Mutex
	events []*kafka.MessageSentEvent
}

func newFakeChatProducer() *fakeChatProducer {
	return &fakeChatProducer{}
}

func (f *fakeChatProducer) MessageSent(event *kafka.MessageSentEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeChatProducer) Close() error { return nil }

func (f *fakeChatProducer) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}
