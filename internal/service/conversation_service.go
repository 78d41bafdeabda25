package service

import (
	"Homestead/internal/api/dto"
	"Homestead/internal/model"
	"Homestead/internal/pkg/consts"
	"Homestead/internal/pkg/listing"
	mongorepo "Homestead/internal/pkg/mongo"
	"Homestead/internal/pkg/realtime"
	"Homestead/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

type ConversationService interface {
	GetOrCreate(ctx context.Context, buyerID uint64, req *dto.CreateConversationReq) (*dto.ConversationDTO, error)
	GetForParticipant(ctx context.Context, userID, convID uint64) (*model.Conversation, error)
	ListFor(ctx context.Context, userID uint64) ([]*dto.ConversationDTO, error)
	SoftDelete(ctx context.Context, userID, convID uint64) error
}

type conversationServiceImpl struct {
	convRepo      repository.ConversationRepo
	presenceRepo  repository.PresenceRepo
	msgRepo       mongorepo.MessageRepo
	listingClient listing.Client
	router        *realtime.Router
}

func NewConversationService(
	convRepo repository.ConversationRepo,
	presenceRepo repository.PresenceRepo,
	msgRepo mongorepo.MessageRepo,
	listingClient listing.Client,
	router *realtime.Router,
) ConversationService {
	return &conversationServiceImpl{
		convRepo:      convRepo,
		presenceRepo:  presenceRepo,
		msgRepo:       msgRepo,
		listingClient: listingClient,
		router:        router,
	}
}

// GetOrCreate 买家对某房源发起会话。(listing_id, buyer_id) 全局唯一，
// 重复发起返回既有会话；已被单侧软删除的会话在此处复活。
func (s *conversationServiceImpl) GetOrCreate(ctx context.Context, buyerID uint64, req *dto.CreateConversationReq) (*dto.ConversationDTO, error) {
	sellerID := req.SellerID
	title, imageURL := "", ""

	// 房源服务快照为增强信息，拉取失败不阻断会话创建
	if info, err := s.listingClient.GetListing(ctx, req.ListingID); err != nil {
		log.Warn("拉取房源快照失败", "listing_id", req.ListingID, "error", err)
	} else {
		if info.SellerID != req.SellerID {
			return nil, ErrListingInvalid
		}
		sellerID = info.SellerID
		title = info.Title
		imageURL = info.ImageURL
	}

	if buyerID == sellerID {
		return nil, ErrSelfConversation
	}

	conv, err := s.convRepo.GetByListingBuyer(ctx, req.ListingID, buyerID)
	if err == nil {
		if conv.HiddenFor(buyerID) {
			if err = s.convRepo.SetHidden(ctx, conv.ID, true, false); err != nil {
				log.Error("复活会话失败", "conversation_id", conv.ID, "error", err)
				return nil, UnExpectedError
			}
			conv.BuyerHidden = 0
		}
		return s.toDTO(ctx, buyerID, conv), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("查询会话失败", "listing_id", req.ListingID, "buyer_id", buyerID, "error", err)
		return nil, UnExpectedError
	}

	conv = &model.Conversation{
		ListingID:       req.ListingID,
		BuyerID:         buyerID,
		SellerID:        sellerID,
		ListingTitle:    title,
		ListingImageURL: imageURL,
		LastMessageAt:   time.Now(),
	}
	if err = s.convRepo.Create(ctx, conv); err != nil {
		// 并发创建撞唯一索引，回读胜出方的记录
		if isDuplicateKey(err) {
			conv, err = s.convRepo.GetByListingBuyer(ctx, req.ListingID, buyerID)
			if err != nil {
				log.Error("回读会话失败", "listing_id", req.ListingID, "buyer_id", buyerID, "error", err)
				return nil, UnExpectedError
			}
			return s.toDTO(ctx, buyerID, conv), nil
		}
		log.Error("创建会话失败", "listing_id", req.ListingID, "buyer_id", buyerID, "error", err)
		return nil, UnExpectedError
	}

	s.publishCreated(ctx, conv)
	return s.toDTO(ctx, buyerID, conv), nil
}

// publishCreated 向双方的用户频道推送新会话通知，
// 已建立的长连接据此补订新会话频道
func (s *conversationServiceImpl) publishCreated(ctx context.Context, conv *model.Conversation) {
	for _, userID := range []uint64{conv.BuyerID, conv.SellerID} {
		event, err := realtime.NewEvent(realtime.EventConversationCreated, conv.ID, s.toDTO(ctx, userID, conv))
		if err != nil {
			log.Error("构造会话创建事件失败", "conversation_id", conv.ID, "error", err)
			return
		}
		if err = s.router.Publish(ctx, realtime.UserScope(userID), event); err != nil {
			log.Error("推送会话创建事件失败", "conversation_id", conv.ID, "user_id", userID, "error", err)
		}
	}
}

// GetForParticipant 获取会话并校验访问者是其成员
func (s *conversationServiceImpl) GetForParticipant(ctx context.Context, userID, convID uint64) (*model.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		log.Error("查询会话失败", "conversation_id", convID, "error", err)
		return nil, UnExpectedError
	}
	if !conv.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// ListFor 会话列表，附带未读数与对手方在线状态，按最近消息倒序
func (s *conversationServiceImpl) ListFor(ctx context.Context, userID uint64) ([]*dto.ConversationDTO, error) {
	convs, err := s.convRepo.ListVisibleFor(ctx, userID)
	if err != nil {
		log.Error("查询会话列表失败", "user_id", userID, "error", err)
		return nil, UnExpectedError
	}

	peerIDs := make([]uint64, 0, len(convs))
	for _, conv := range convs {
		peerIDs = append(peerIDs, conv.PeerOf(userID))
	}
	heartbeats, err := s.presenceRepo.LastHeartbeats(ctx, peerIDs)
	if err != nil {
		log.Warn("批量查询在线状态失败", "user_id", userID, "error", err)
		heartbeats = map[uint64]time.Time{}
	}

	now := time.Now()
	result := make([]*dto.ConversationDTO, 0, len(convs))
	for _, conv := range convs {
		item := s.toDTO(ctx, userID, conv)
		if last, ok := heartbeats[item.PeerID]; ok {
			item.PeerOnline = now.Sub(last) <= consts.PresenceTTL
		}
		result = append(result, item)
	}
	return result, nil
}

// SoftDelete 单侧软删除：仅对操作方隐藏，不触碰消息数据
func (s *conversationServiceImpl) SoftDelete(ctx context.Context, userID, convID uint64) error {
	conv, err := s.GetForParticipant(ctx, userID, convID)
	if err != nil {
		return err
	}
	if err = s.convRepo.SetHidden(ctx, convID, conv.BuyerID == userID, true); err != nil {
		log.Error("软删除会话失败", "conversation_id", convID, "error", err)
		return UnExpectedError
	}
	return nil
}

func (s *conversationServiceImpl) toDTO(ctx context.Context, userID uint64, conv *model.Conversation) *dto.ConversationDTO {
	var item dto.ConversationDTO
	_ = copier.Copy(&item, conv)
	item.PeerID = conv.PeerOf(userID)

	unread, err := s.msgRepo.CountUnread(ctx, conv.ID, userID)
	if err != nil {
		log.Warn("统计未读数失败", "conversation_id", conv.ID, "error", err)
	}
	item.UnreadCount = unread
	return &item
}
