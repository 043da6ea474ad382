package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/escrow-ledger/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "audit_events"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique event index that makes projection idempotent
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "aggregate_type", Value: 1}, {Key: "aggregate_id", Value: 1}, {Key: "occurred_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "needs_review", Value: 1}, {Key: "occurred_at", Value: -1}},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create audit indexes", "error", err)
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

// Create appends an entry. A second projection of the same event
// hits the unique index and is reported as ErrDuplicateEntry.
func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return audit.ErrDuplicateEntry{EventID: entry.EventID}
		}
		r.logger.Error("Failed to create audit entry",
			"event_id", entry.EventID.String(),
			"event_type", entry.EventType,
			"error", err)
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// GetByEventID retrieves an audit entry by its event ID
func (r *AuditRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"event_id": eventID}
	var entry audit.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, audit.ErrEntryNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get audit entry",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}

	return &entry, nil
}

// ListByAggregate retrieves paginated entries for one wallet, escrow or dispute, newest first
func (r *AuditRepository) ListByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID, limit, offset int) ([]*audit.Entry, error) {
	filter := bson.M{"aggregate_type": aggregateType, "aggregate_id": aggregateID}
	entries, err := r.find(ctx, filter, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get audit entries",
			"aggregate_type", aggregateType,
			"aggregate_id", aggregateID.String(),
			"error", err)
		return nil, err
	}
	return entries, nil
}

// CountByAggregate counts the entries for one aggregate
func (r *AuditRepository) CountByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID) (int64, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"aggregate_type": aggregateType, "aggregate_id": aggregateID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count audit entries",
			"aggregate_id", aggregateID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return count, nil
}

// ListNeedingReview retrieves reconciliation entries flagged for manual review
func (r *AuditRepository) ListNeedingReview(ctx context.Context, limit, offset int) ([]*audit.Entry, error) {
	entries, err := r.find(ctx, bson.M{"needs_review": true}, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get audit entries needing review", "error", err)
		return nil, err
	}
	return entries, nil
}

// GetByTimeRange retrieves paginated entries within the specified time window
func (r *AuditRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*audit.Entry, error) {
	filter := bson.M{
		"occurred_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	entries, err := r.find(ctx, filter, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get audit entries by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, err
	}
	return entries, nil
}

func (r *AuditRepository) find(ctx context.Context, filter bson.M, limit, offset int) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	opts := options.Find().
		SetSort(bson.M{"occurred_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*audit.Entry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}
