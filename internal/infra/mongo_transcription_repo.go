package infra

import (
	"context"
	"errors"
	"time"

	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type transcriptionDoc struct {
	ID            primitive.ObjectID               `bson:"_id,omitempty"`
	Text          string                           `bson:"text"`
	Optimizations map[string]string                `bson:"optimizations,omitempty"`
	Details       map[string]models.StructuredPost `bson:"details,omitempty"`
	OptimizedText string                           `bson:"optimizedText,omitempty"`
	Status        string                           `bson:"status"`
	UserID        string                           `bson:"userId,omitempty"`
	CreatedAt     time.Time                        `bson:"createdAt"`
	UpdatedAt     time.Time                        `bson:"updatedAt"`
	EditedAt      *time.Time                       `bson:"editedAt,omitempty"`
}

func (d *transcriptionDoc) toModel() models.Transcription {
	t := models.Transcription{
		ID:            d.ID.Hex(),
		Text:          d.Text,
		OptimizedText: d.OptimizedText,
		Status:        models.Status(d.Status),
		UserID:        d.UserID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		EditedAt:      d.EditedAt,
	}
	if len(d.Optimizations) > 0 {
		t.Optimizations = make(map[models.Platform]string, len(d.Optimizations))
		for k, v := range d.Optimizations {
			t.Optimizations[models.Platform(k)] = v
		}
	}
	if len(d.Details) > 0 {
		t.Details = make(map[models.Platform]models.StructuredPost, len(d.Details))
		for k, v := range d.Details {
			t.Details[models.Platform(k)] = v
		}
	}
	return t
}

type MongoTranscriptionRepo struct {
	conn *MongoConn
}

func NewMongoTranscriptionRepo(conn *MongoConn) ports.TranscriptionRepository {
	return &MongoTranscriptionRepo{conn: conn}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ports.ErrInvalidID
	}
	return oid, nil
}

func (r *MongoTranscriptionRepo) Insert(ctx context.Context, t *models.Transcription) (*models.Transcription, error) {
	coll, err := r.conn.collection(ctx, collTranscriptions)
	if err != nil {
		return nil, err
	}

	doc := transcriptionDoc{
		Text:      t.Text,
		Status:    string(t.Status),
		UserID:    t.UserID,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, storageErr("insert transcription", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.ID = oid.Hex()
	}
	return t, nil
}

func (r *MongoTranscriptionRepo) GetByID(ctx context.Context, id string) (*models.Transcription, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	coll, err := r.conn.collection(ctx, collTranscriptions)
	if err != nil {
		return nil, err
	}

	var doc transcriptionDoc
	err = coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get transcription", err)
	}

	t := doc.toModel()
	return &t, nil
}

func (r *MongoTranscriptionRepo) List(ctx context.Context) ([]models.Transcription, error) {
	coll, err := r.conn.collection(ctx, collTranscriptions)
	if err != nil {
		return nil, err
	}

	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, storageErr("list transcriptions", err)
	}
	defer cur.Close(ctx)

	var docs []transcriptionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr("decode transcriptions", err)
	}

	out := make([]models.Transcription, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}

func (r *MongoTranscriptionRepo) SaveOptimizations(ctx context.Context, upd models.OptimizationUpdate) error {
	oid, err := parseObjectID(upd.ID)
	if err != nil {
		return err
	}
	coll, err := r.conn.collection(ctx, collTranscriptions)
	if err != nil {
		return err
	}

	opts := make(map[string]string, len(upd.Optimizations))
	for p, text := range upd.Optimizations {
		opts[string(p)] = text
	}

	set := bson.M{
		"optimizations": opts,
		"status":        string(models.StatusOptimized),
		"updatedAt":     upd.UpdatedAt,
	}
	if upd.OptimizedText != "" {
		set["optimizedText"] = upd.OptimizedText
	}
	update := bson.M{"$set": set}

	if len(upd.Details) > 0 {
		details := make(map[string]models.StructuredPost, len(upd.Details))
		for p, d := range upd.Details {
			details[string(p)] = d
		}
		set["details"] = details
	} else {
		update["$unset"] = bson.M{"details": ""}
	}

	res, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return storageErr("save optimizations", err)
	}
	if res.MatchedCount == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *MongoTranscriptionRepo) SetStatus(ctx context.Context, id string, status models.Status) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	coll, err := r.conn.collection(ctx, collTranscriptions)
	if err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"status":    string(status),
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return storageErr("set status", err)
	}
	if res.MatchedCount == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *MongoTranscriptionRepo) ApplyEdit(ctx context.Context, edit models.TranscriptionEdit) error {
	oid, err := parseObjectID(edit.ID)
	if err != nil {
		return err
	}
	coll, err := r.conn.collection(ctx, collTranscriptions)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid}
	if edit.UserID != "" {
		filter["userId"] = edit.UserID
	}

	set := bson.M{
		"status":    string(models.StatusEdited),
		"editedAt":  edit.EditedAt,
		"updatedAt": edit.EditedAt,
	}
	if edit.OptimizedText != "" {
		set["optimizedText"] = edit.OptimizedText
	}
	for p, text := range edit.Optimizations {
		set["optimizations."+string(p)] = text
	}

	res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return storageErr("apply edit", err)
	}
	if res.MatchedCount == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *MongoTranscriptionRepo) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	coll, err := r.conn.collection(ctx, collTranscriptions)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return storageErr("delete transcription", err)
	}
	if res.DeletedCount == 0 {
		return ports.ErrNotFound
	}
	return nil
}
