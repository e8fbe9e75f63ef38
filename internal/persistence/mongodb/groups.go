package mongodb

import (
	"context"
	"errors"

	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/persistence"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Group struct {
	Name        string            `bson:"_id"`
	Connections []chat.Connection `bson:"connections"`
}

func (g Group) toChat() chat.Group {
	connections := g.Connections
	if connections == nil {
		connections = []chat.Connection{}
	}

	return chat.Group{
		Name:        g.Name,
		Connections: connections,
	}
}

// GroupStore keeps one document per conversation. The group name is the
// document id, so concurrent inserts of the same name cannot both succeed.
type GroupStore struct {
	collection *mongo.Collection
}

func NewGroupStore(client *mongo.Client, database string) *GroupStore {
	return &GroupStore{
		collection: client.Database(database).Collection(groupsCollection),
	}
}

func (s *GroupStore) Setup(ctx context.Context) error {
	connectionIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "connections.connectionId", Value: 1}},
	}

	_, err := s.collection.Indexes().CreateOne(ctx, connectionIndexModel)

	return err
}

func (s *GroupStore) GetGroup(ctx context.Context, name string) (chat.Group, error) {
	return s.findOne(ctx, bson.M{"_id": name})
}

func (s *GroupStore) GetGroupForConnection(ctx context.Context, connectionId string) (chat.Group, error) {
	return s.findOne(ctx, bson.M{"connections.connectionId": connectionId})
}

func (s *GroupStore) InsertGroup(ctx context.Context, name string) (chat.Group, error) {
	group := Group{Name: name, Connections: []chat.Connection{}}

	_, err := s.collection.InsertOne(ctx, group)
	if mongo.IsDuplicateKeyError(err) {
		return chat.Group{}, persistence.ErrAlreadyExists
	}
	if err != nil {
		return chat.Group{}, err
	}

	return group.toChat(), nil
}

func (s *GroupStore) AddConnection(ctx context.Context, name string, connection chat.Connection) (chat.Group, error) {
	return s.findOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$addToSet": bson.M{"connections": connection}},
	)
}

func (s *GroupStore) RemoveConnection(ctx context.Context, connectionId string) (chat.Group, error) {
	return s.findOneAndUpdate(ctx,
		bson.M{"connections.connectionId": connectionId},
		bson.M{"$pull": bson.M{"connections": bson.M{"connectionId": connectionId}}},
	)
}

func (s *GroupStore) ClearConnections(ctx context.Context) (int, error) {
	result, err := s.collection.UpdateMany(ctx,
		bson.M{"connections.0": bson.M{"$exists": true}},
		bson.M{"$set": bson.M{"connections": []chat.Connection{}}},
	)
	if err != nil {
		return 0, err
	}

	return int(result.ModifiedCount), nil
}

func (s *GroupStore) findOne(ctx context.Context, filter bson.M) (chat.Group, error) {
	var group Group

	err := s.collection.FindOne(ctx, filter).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return chat.Group{}, persistence.ErrNotFound
	}
	if err != nil {
		return chat.Group{}, err
	}

	return group.toChat(), nil
}

func (s *GroupStore) findOneAndUpdate(ctx context.Context, filter bson.M, update bson.M) (chat.Group, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After)

	var group Group

	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return chat.Group{}, persistence.ErrNotFound
	}
	if err != nil {
		return chat.Group{}, err
	}

	return group.toChat(), nil
}
