package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/models"
)

const PlantsCollection = "plants"

type MongoPlantRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoPlantRepository(db *mongo.Database) *MongoPlantRepository {
	return &MongoPlantRepository{coll: db.Collection(PlantsCollection), now: time.Now}
}

// EnsureIndexes creates the timeline index used by List.
func (r *MongoPlantRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: -1}},
		Options: options.Index().SetName("date_desc"),
	})
	return err
}

func (r *MongoPlantRepository) Create(ctx context.Context, title, imageURL, description string) (*models.Plant, error) {
	if err := validateNew(title, imageURL, description); err != nil {
		return nil, err
	}
	p := models.Plant{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(title),
		Image:       imageURL,
		Description: description,
		Date:        r.now().UTC(),
		Comments:    []models.Comment{},
	}
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MongoPlantRepository) List(ctx context.Context) ([]models.Plant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plants := []models.Plant{}
	if err := cursor.All(ctx, &plants); err != nil {
		return nil, err
	}
	for i := range plants {
		plants[i].Normalize()
	}
	return plants, nil
}

func (r *MongoPlantRepository) Get(ctx context.Context, id string) (*models.Plant, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NewNotFound(apperrors.ResourcePlant, id)
	}
	var p models.Plant
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		return nil, plantErr(err, id)
	}
	p.Normalize()
	return &p, nil
}

func (r *MongoPlantRepository) Update(ctx context.Context, id string, update models.PlantUpdate) (*models.Plant, error) {
	if update.IsEmpty() {
		return r.Get(ctx, id)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NewNotFound(apperrors.ResourcePlant, id)
	}

	set := bson.M{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Date != nil {
		set["date"] = update.Date.UTC()
	}
	if update.Image != nil {
		set["image"] = *update.Image
	}
	return r.findAndModify(ctx, id, bson.M{"_id": oid}, bson.M{"$set": set})
}

func (r *MongoPlantRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.NewNotFound(apperrors.ResourcePlant, id)
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperrors.NewNotFound(apperrors.ResourcePlant, id)
	}
	return nil
}

func (r *MongoPlantRepository) AppendComment(ctx context.Context, id, text string) (*models.Plant, error) {
	if err := validateComment(text); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NewNotFound(apperrors.ResourcePlant, id)
	}
	c := models.Comment{ID: primitive.NewObjectID(), Text: text, Date: r.now().UTC()}
	return r.findAndModify(ctx, id, bson.M{"_id": oid}, bson.M{"$push": bson.M{"comments": c}})
}

func (r *MongoPlantRepository) RemoveComment(ctx context.Context, id, commentID string) (*models.Plant, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NewNotFound(apperrors.ResourcePlant, id)
	}
	cid, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, apperrors.NewNotFound(apperrors.ResourceComment, commentID)
	}

	p, err := r.findAndModify(ctx, id,
		bson.M{"_id": oid, "comments._id": cid},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": cid}}},
	)
	if err == nil || !apperrors.IsNotFound(err, apperrors.ResourcePlant) {
		return p, err
	}

	// The filter also misses when only the comment is absent.
	n, countErr := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
	if countErr != nil {
		return nil, countErr
	}
	if n == 0 {
		return nil, err
	}
	return nil, apperrors.NewNotFound(apperrors.ResourceComment, commentID)
}

func (r *MongoPlantRepository) findAndModify(ctx context.Context, id string, filter, update bson.M) (*models.Plant, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Plant
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p); err != nil {
		return nil, plantErr(err, id)
	}
	p.Normalize()
	return &p, nil
}

func plantErr(err error, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.NewNotFound(apperrors.ResourcePlant, id)
	}
	return err
}
