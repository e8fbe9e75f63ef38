package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/persistence"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Message struct {
	Id                   string     `bson:"_id"`
	SenderUsername       string     `bson:"senderUsername"`
	SenderDisplayName    string     `bson:"senderDisplayName"`
	RecipientUsername    string     `bson:"recipientUsername"`
	RecipientDisplayName string     `bson:"recipientDisplayName"`
	Content              string     `bson:"content"`
	SentAt               time.Time  `bson:"sentAt"`
	ReadAt               *time.Time `bson:"readAt"`
}

func fromChatMessage(m chat.Message) Message {
	return Message{
		Id:                   m.Id,
		SenderUsername:       m.SenderUsername,
		SenderDisplayName:    m.SenderDisplayName,
		RecipientUsername:    m.RecipientUsername,
		RecipientDisplayName: m.RecipientDisplayName,
		Content:              m.Content,
		SentAt:               m.SentAt,
		ReadAt:               m.ReadAt,
	}
}

func (m Message) toChat() chat.Message {
	return chat.Message{
		Id:                   m.Id,
		SenderUsername:       m.SenderUsername,
		SenderDisplayName:    m.SenderDisplayName,
		RecipientUsername:    m.RecipientUsername,
		RecipientDisplayName: m.RecipientDisplayName,
		Content:              m.Content,
		SentAt:               m.SentAt,
		ReadAt:               m.ReadAt,
	}
}

type MessageStore struct {
	collection *mongo.Collection
}

func NewMessageStore(client *mongo.Client, database string) *MessageStore {
	return &MessageStore{
		collection: client.Database(database).Collection(messagesCollection),
	}
}

func (s *MessageStore) Setup(ctx context.Context) error {
	threadIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "senderUsername", Value: 1},
			{Key: "recipientUsername", Value: 1},
			{Key: "sentAt", Value: 1},
		},
	}

	inboxIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "recipientUsername", Value: 1},
			{Key: "readAt", Value: 1},
			{Key: "sentAt", Value: -1},
		},
	}

	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{threadIndexModel, inboxIndexModel})

	return err
}

func (s *MessageStore) Save(ctx context.Context, message chat.Message) error {
	_, err := s.collection.InsertOne(ctx, fromChatMessage(message))
	if mongo.IsDuplicateKeyError(err) {
		return persistence.ErrAlreadyExists
	}

	return err
}

func (s *MessageStore) Get(ctx context.Context, id string) (chat.Message, error) {
	var message Message
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return chat.Message{}, persistence.ErrNotFound
	}
	if err != nil {
		return chat.Message{}, err
	}

	return message.toChat(), nil
}

func (s *MessageStore) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func (s *MessageStore) Thread(ctx context.Context, a string, b string) ([]chat.Message, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"senderUsername": a, "recipientUsername": b},
			bson.M{"senderUsername": b, "recipientUsername": a},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "sentAt", Value: 1}, {Key: "_id", Value: 1}})

	return s.find(ctx, filter, opts)
}

func (s *MessageStore) MarkThreadRead(ctx context.Context, recipient string, sender string, readAt time.Time) (int, error) {
	filter := bson.M{
		"senderUsername":    sender,
		"recipientUsername": recipient,
		"readAt":            nil,
	}

	result, err := s.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"readAt": readAt}})
	if err != nil {
		return 0, err
	}

	return int(result.ModifiedCount), nil
}

func (s *MessageStore) List(ctx context.Context, request persistence.ListRequest) (persistence.Page, error) {
	var filter bson.M

	switch request.Container {
	case persistence.ContainerOutbox:
		filter = bson.M{"senderUsername": request.Username}
	case persistence.ContainerUnread:
		filter = bson.M{"recipientUsername": request.Username, "readAt": nil}
	default:
		filter = bson.M{"recipientUsername": request.Username}
	}

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return persistence.Page{}, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "sentAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(max(0, request.Skip()))).
		SetLimit(int64(request.PageSize))

	messages, err := s.find(ctx, filter, opts)
	if err != nil {
		return persistence.Page{}, err
	}

	return persistence.NewPage(request, messages, int(total)), nil
}

func (s *MessageStore) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]chat.Message, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var mongoMessages []Message
	err = cursor.All(ctx, &mongoMessages)
	if err != nil {
		return nil, err
	}

	messages := make([]chat.Message, len(mongoMessages))
	for i, m := range mongoMessages {
		messages[i] = m.toChat()
	}

	return messages, nil
}
