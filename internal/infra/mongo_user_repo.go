package infra

import (
	"context"
	"time"

	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	UserID    string    `bson:"userId"`
	Tokens    int       `bson:"tokens"`
	IsPremium bool      `bson:"isPremium"`
	CreatedAt time.Time `bson:"createdAt"`
}

type MongoUserRepo struct {
	conn *MongoConn
}

func NewMongoUserRepo(conn *MongoConn) ports.UserRepository {
	return &MongoUserRepo{conn: conn}
}

func (r *MongoUserRepo) CreateIfAbsent(ctx context.Context, u *models.User) (bool, error) {
	coll, err := r.conn.collection(ctx, collUsers)
	if err != nil {
		return false, err
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{"userId": u.UserID},
		bson.M{"$setOnInsert": userDoc{
			UserID:    u.UserID,
			Tokens:    u.Tokens,
			IsPremium: u.IsPremium,
			CreatedAt: u.CreatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// lost an upsert race against the unique index
		return false, nil
	}
	if err != nil {
		return false, storageErr("create user", err)
	}
	return res.UpsertedCount == 1, nil
}

func (r *MongoUserRepo) List(ctx context.Context) ([]models.User, error) {
	coll, err := r.conn.collection(ctx, collUsers)
	if err != nil {
		return nil, err
	}

	cur, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr("decode users", err)
	}

	out := make([]models.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.User{
			UserID:    d.UserID,
			Tokens:    d.Tokens,
			IsPremium: d.IsPremium,
			CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}

func (r *MongoUserRepo) SetPremium(ctx context.Context, userID string, premium bool, tokens int) error {
	coll, err := r.conn.collection(ctx, collUsers)
	if err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"isPremium": premium, "tokens": tokens}},
	)
	if err != nil {
		return storageErr("set premium", err)
	}
	if res.MatchedCount == 0 {
		return ports.ErrNotFound
	}
	return nil
}
