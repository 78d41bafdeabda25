package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	GetHistory(ctx context.Context, convID uint64, beforeSeq uint64, pageSize int) ([]*Message, error)
	UpdateContent(ctx context.Context, id string, senderID uint64, content string, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, id string, senderID uint64, at time.Time) (bool, error)
	MarkRead(ctx context.Context, convID uint64, readerID uint64, upToSeq uint64, at time.Time) ([]*Message, error)
	CountUnread(ctx context.Context, convID uint64, userID uint64) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("messages"),
	}
}

// EnsureIndexes 创建消息集合所需的索引
func (s *messageRepoImpl) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "seq", Value: -1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "read_at", Value: 1}}},
	})
	return err
}

// SaveMessage 将消息存入 MongoDB，并回填生成的 ObjectID
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *Message) error {
	res, err := s.col.InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return nil
}

// GetByID 根据 ObjectID Hex 精确查询
func (s *messageRepoImpl) GetByID(ctx context.Context, id string) (*Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	var msg Message
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetHistory 历史消息查询逻辑
// beforeSeq 为当前页面最旧一条消息的序号。如果是第一页，传 0。
func (s *messageRepoImpl) GetHistory(ctx context.Context, convID uint64, beforeSeq uint64, pageSize int) ([]*Message, error) {
	// 基础过滤：指定会话 ID
	filter := bson.M{"conversation_id": convID}

	// 游标过滤：拉取比当前最旧序号更小的消息
	if beforeSeq > 0 {
		filter["seq"] = bson.M{"$lt": beforeSeq}
	}

	// 按照 seq 降序排列 (最新的在前)，限制返回条数
	findOptions := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetLimit(int64(pageSize))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// UpdateContent 编辑消息内容。过滤条件带上发送者与未删除标记，
// 返回是否有文档被命中。
func (s *messageRepoImpl) UpdateContent(ctx context.Context, id string, senderID uint64, content string, at time.Time) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": oid, "sender_id": senderID, "is_deleted": false},
		bson.M{"$set": bson.M{"content": content, "edited_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// SoftDelete 软删除消息，消息行保留
func (s *messageRepoImpl) SoftDelete(ctx context.Context, id string, senderID uint64, at time.Time) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": oid, "sender_id": senderID, "is_deleted": false},
		bson.M{"$set": bson.M{"is_deleted": true, "deleted_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// MarkRead 将会话内对端发送且未读的消息置为已读，upToSeq 为 0 时不限序号。
// 返回受影响的消息（用于推送已读回执）。
func (s *messageRepoImpl) MarkRead(ctx context.Context, convID uint64, readerID uint64, upToSeq uint64, at time.Time) ([]*Message, error) {
	filter := bson.M{
		"conversation_id": convID,
		"sender_id":       bson.M{"$ne": readerID},
		"read_at":         bson.M{"$exists": false},
	}
	if upToSeq > 0 {
		filter["seq"] = bson.M{"$lte": upToSeq}
	}

	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}

	_, err = s.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "read_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"read_at": at}},
	)
	if err != nil {
		return nil, err
	}

	readAt := at
	for _, m := range messages {
		m.ReadAt = &readAt
	}
	return messages, nil
}

// CountUnread 未读数为读取时派生值，不维护独立计数器
func (s *messageRepoImpl) CountUnread(ctx context.Context, convID uint64, userID uint64) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{
		"conversation_id": convID,
		"sender_id":       bson.M{"$ne": userID},
		"read_at":         bson.M{"$exists": false},
	})
}
