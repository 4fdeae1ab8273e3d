package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxScheduleUpdateAttempts = 5

var errConcurrentScheduleUpdate = errors.New("schedule changed concurrently")

// MongoScheduleRepository implements the ScheduleRepository interface.
// Each date is one document; writes compare-and-swap on its version.
type MongoScheduleRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// scheduleDocument is the stored form of a schedule, keyed by ISO date
type scheduleDocument struct {
	Date         string                `bson:"_id"`
	Version      int64                 `bson:"version"`
	CreatedAt    time.Time             `bson:"createdAt"`
	Reservations []reservationDocument `bson:"reservations"`
}

type reservationDocument struct {
	TailCode string    `bson:"tailCode"`
	Start    time.Time `bson:"start"`
	End      time.Time `bson:"end"`
}

// NewMongoScheduleRepository creates a new MongoDB schedule repository
func NewMongoScheduleRepository(client *mongo.Client, db *mongo.Database) repository.ScheduleRepository {
	collection := db.Collection("schedules")

	// Index on reservation start for retention cleanup
	collection.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.M{"reservations.start": 1},
	})

	return &MongoScheduleRepository{
		client:     client,
		collection: collection,
	}
}

// FindByDate finds the schedule document of a date
func (r *MongoScheduleRepository) FindByDate(ctx context.Context, date string) (*entity.Schedule, error) {
	doc, err := r.findDocument(ctx, date)
	if err != nil {
		return nil, entity.NewStorageError("find schedule "+date, err)
	}
	if doc == nil {
		return nil, nil
	}
	return doc.toEntity(), nil
}

// UpdateSchedule reconciles the stored schedule and writes it back only if
// nobody else changed the document in between
func (r *MongoScheduleRepository) UpdateSchedule(ctx context.Context, date string, reconcile repository.ReconcileFunc) (entity.ScheduleDiff, error) {
	for attempt := 1; attempt <= maxScheduleUpdateAttempts; attempt++ {
		doc, err := r.findDocument(ctx, date)
		if err != nil {
			return entity.ScheduleDiff{}, entity.NewStorageError("find schedule "+date, err)
		}

		if doc == nil {
			diff := reconcile(nil)
			_, err := r.collection.InsertOne(ctx, scheduleDocument{
				Date:         date,
				Version:      1,
				CreatedAt:    time.Now().UTC(),
				Reservations: toReservationDocuments(diff.Initial),
			})
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return entity.ScheduleDiff{}, entity.NewStorageError("insert schedule "+date, err)
			}
			return diff, nil
		}

		current := doc.toEntity()
		diff := reconcile(current)
		next := applyDiff(current.Reservations, diff)

		swapped, err := r.swapReservations(ctx, date, doc.Version, next)
		if err != nil {
			return entity.ScheduleDiff{}, entity.NewStorageError("update schedule "+date, err)
		}
		if swapped {
			return diff, nil
		}
	}

	return entity.ScheduleDiff{}, entity.NewStorageError("update schedule "+date,
		fmt.Errorf("%w after %d attempts", errConcurrentScheduleUpdate, maxScheduleUpdateAttempts))
}

// PurgeBefore deletes schedule documents dated before firstKeptDate and pulls
// reservations that started before startedBefore from the rest
func (r *MongoScheduleRepository) PurgeBefore(ctx context.Context, firstKeptDate string, startedBefore time.Time) (entity.PurgeResult, error) {
	var purged entity.PurgeResult

	old, err := r.findDocuments(ctx, bson.M{"_id": bson.M{"$lt": firstKeptDate}})
	if err != nil {
		return purged, entity.NewStorageError("find old schedules", err)
	}
	for _, doc := range old {
		result, err := r.collection.DeleteOne(ctx, bson.M{"_id": doc.Date, "version": doc.Version})
		if err != nil {
			return purged, entity.NewStorageError("delete schedule "+doc.Date, err)
		}
		if result.DeletedCount > 0 {
			purged.Schedules++
			purged.Reservations += int64(len(doc.Reservations))
		}
	}

	started, err := r.findDocuments(ctx, bson.M{"reservations.start": bson.M{"$lt": startedBefore.UTC()}})
	if err != nil {
		return purged, entity.NewStorageError("find started reservations", err)
	}
	for _, doc := range started {
		current := doc.toEntity()
		kept := make([]entity.Reservation, 0, len(current.Reservations))
		for _, res := range current.Reservations {
			if !res.Start.Before(startedBefore) {
				kept = append(kept, res)
			}
		}

		swapped, err := r.swapReservations(ctx, doc.Date, doc.Version, kept)
		if err != nil {
			return purged, entity.NewStorageError("prune schedule "+doc.Date, err)
		}
		if swapped {
			purged.Reservations += int64(len(current.Reservations) - len(kept))
		}
	}

	return purged, nil
}

// Close disconnects the client
func (r *MongoScheduleRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *MongoScheduleRepository) findDocument(ctx context.Context, date string) (*scheduleDocument, error) {
	var doc scheduleDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": date}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *MongoScheduleRepository) findDocuments(ctx context.Context, filter bson.M) ([]scheduleDocument, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []scheduleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *MongoScheduleRepository) swapReservations(ctx context.Context, date string, version int64, reservations []entity.Reservation) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": date, "version": version},
		bson.M{"$set": bson.M{
			"reservations": toReservationDocuments(reservations),
			"version":      version + 1,
		}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

// applyDiff returns stored without the removed reservations plus the added ones
func applyDiff(stored []entity.Reservation, diff entity.ScheduleDiff) []entity.Reservation {
	removed := make(map[entity.ReservationKey]struct{}, len(diff.Removed))
	for _, res := range diff.Removed {
		removed[res.Key()] = struct{}{}
	}

	next := make([]entity.Reservation, 0, len(stored)+len(diff.Added))
	for _, res := range stored {
		if _, ok := removed[res.Key()]; !ok {
			next = append(next, res)
		}
	}
	return append(next, diff.Added...)
}

func toReservationDocuments(reservations []entity.Reservation) []reservationDocument {
	docs := make([]reservationDocument, 0, len(reservations))
	for _, res := range reservations {
		docs = append(docs, reservationDocument{
			TailCode: res.TailCode,
			Start:    res.Start.UTC(),
			End:      res.End.UTC(),
		})
	}
	return docs
}

func (d *scheduleDocument) toEntity() *entity.Schedule {
	reservations := make([]entity.Reservation, 0, len(d.Reservations))
	for _, res := range d.Reservations {
		reservations = append(reservations, entity.Reservation{
			TailCode: res.TailCode,
			Start:    res.Start.UTC(),
			End:      res.End.UTC(),
		})
	}
	return &entity.Schedule{
		Date:         d.Date,
		Reservations: reservations,
		CreatedAt:    d.CreatedAt,
	}
}
