package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/persistence"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type User struct {
	Username     string    `bson:"_id"`
	DisplayName  string    `bson:"displayName"`
	PasswordHash string    `bson:"passwordHash"`
	CreateTime   time.Time `bson:"createTime"`
}

type UserStore struct {
	collection *mongo.Collection
}

func NewUserStore(client *mongo.Client, database string) *UserStore {
	return &UserStore{
		collection: client.Database(database).Collection(usersCollection),
	}
}

// Setup is a no-op: usernames are the document id and unique by construction.
func (s *UserStore) Setup(ctx context.Context) error {
	return nil
}

func (s *UserStore) Create(ctx context.Context, user chat.User) error {
	_, err := s.collection.InsertOne(ctx, User{
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		PasswordHash: user.PasswordHash,
		CreateTime:   user.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return persistence.ErrAlreadyExists
	}

	return err
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (chat.User, error) {
	var user User

	err := s.collection.FindOne(ctx, bson.M{"_id": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return chat.User{}, persistence.ErrNotFound
	}
	if err != nil {
		return chat.User{}, err
	}

	return chat.User{
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreateTime,
	}, nil
}
