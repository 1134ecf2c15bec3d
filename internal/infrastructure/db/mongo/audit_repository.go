package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

const auditCollection = "audit_events"

// auditTTLDays bounds how long security events are retained.
const auditTTLDays = 90

type MongoAuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *MongoAuditRepository {
	return &MongoAuditRepository{coll: db.Collection(auditCollection)}
}

// EnsureIndexes creates the TTL index that ages out old audit events.
func (r *MongoAuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "timestamp", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(auditTTLDays * 24 * 3600),
	})
	if err != nil {
		return fmt.Errorf("create audit indexes: %w", err)
	}
	return nil
}

// Timestamp must stay a BSON date for the TTL index to apply.
type mongoAuditEvent struct {
	Type      string    `bson:"type"`
	Actor     string    `bson:"actor,omitempty"`
	IP        string    `bson:"ip,omitempty"`
	Path      string    `bson:"path,omitempty"`
	Detail    string    `bson:"detail,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
}

func (r *MongoAuditRepository) Record(ctx context.Context, event domain.AuditEvent) error {
	doc := mongoAuditEvent{
		Type:      string(event.Type),
		Actor:     event.Actor,
		IP:        event.IP,
		Path:      event.Path,
		Detail:    event.Detail,
		Timestamp: event.Timestamp.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
