package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

const userCollection = "users"

type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(userCollection)}
}

// EnsureIndexes creates the unique username/email indexes. Called once at
// startup.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

type mongoBackupCode struct {
	Hash string `bson:"hash"`
	Used bool   `bson:"used"`
}

type mongoTwoFactor struct {
	Enabled     bool              `bson:"enabled"`
	Secret      string            `bson:"secret,omitempty"`
	BackupCodes []mongoBackupCode `bson:"backup_codes,omitempty"`
}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	Status       string             `bson:"status"`
	IsFirstLogin bool               `bson:"is_first_login"`
	TwoFactor    mongoTwoFactor     `bson:"two_factor"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc := toMongoUser(user)
	doc.ID = primitive.NilObjectID

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return fromMongoUser(&mu), nil
}

func (r *MongoUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*domain.User
	for cursor.Next(ctx) {
		var mu mongoUser
		if err := cursor.Decode(&mu); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, fromMongoUser(&mu))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *MongoUserRepository) Update(ctx context.Context, user *domain.User) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	doc := toMongoUser(user)
	doc.ID = oid
	doc.UpdatedAt = time.Now().UTC().Unix()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error {
	return r.setFields(ctx, id, bson.M{"status": string(status)})
}

func (r *MongoUserRepository) SetPassword(ctx context.Context, id, passwordHash string, firstLogin bool) error {
	return r.setFields(ctx, id, bson.M{
		"password_hash":  passwordHash,
		"is_first_login": firstLogin,
	})
}

func (r *MongoUserRepository) SetTwoFactor(ctx context.Context, id string, tf domain.TwoFactor) error {
	codes := make([]mongoBackupCode, len(tf.BackupCodes))
	for i, bc := range tf.BackupCodes {
		codes[i] = mongoBackupCode{Hash: bc.Hash, Used: bc.Used}
	}
	return r.setFields(ctx, id, bson.M{
		"two_factor": mongoTwoFactor{Enabled: tf.Enabled, Secret: tf.Secret, BackupCodes: codes},
	})
}

// ConsumeBackupCode flips the used flag at idx with a conditional update:
// the filter matches only while the code is still unused, so exactly one of
// any number of concurrent submissions of the same code wins.
func (r *MongoUserRepository) ConsumeBackupCode(ctx context.Context, id string, idx int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	field := fmt.Sprintf("two_factor.backup_codes.%d.used", idx)
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, field: false},
		bson.M{"$set": bson.M{field: true, "updated_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return fmt.Errorf("consume backup code: %w", err)
	}
	if res.ModifiedCount == 0 {
		return domain.ErrInvalidCode
	}
	return nil
}

func (r *MongoUserRepository) setFields(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	fields["updated_at"] = time.Now().UTC().Unix()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func toMongoUser(u *domain.User) mongoUser {
	codes := make([]mongoBackupCode, len(u.TwoFactor.BackupCodes))
	for i, bc := range u.TwoFactor.BackupCodes {
		codes[i] = mongoBackupCode{Hash: bc.Hash, Used: bc.Used}
	}
	return mongoUser{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Status:       string(u.Status),
		IsFirstLogin: u.IsFirstLogin,
		TwoFactor:    mongoTwoFactor{Enabled: u.TwoFactor.Enabled, Secret: u.TwoFactor.Secret, BackupCodes: codes},
		CreatedAt:    u.CreatedAt.Unix(),
		UpdatedAt:    u.UpdatedAt.Unix(),
	}
}

func fromMongoUser(mu *mongoUser) *domain.User {
	codes := make([]domain.BackupCode, len(mu.TwoFactor.BackupCodes))
	for i, bc := range mu.TwoFactor.BackupCodes {
		codes[i] = domain.BackupCode{Hash: bc.Hash, Used: bc.Used}
	}
	return &domain.User{
		ID:           mu.ID.Hex(),
		Username:     mu.Username,
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		Role:         domain.Role(mu.Role),
		Status:       domain.UserStatus(mu.Status),
		IsFirstLogin: mu.IsFirstLogin,
		TwoFactor:    domain.TwoFactor{Enabled: mu.TwoFactor.Enabled, Secret: mu.TwoFactor.Secret, BackupCodes: codes},
		CreatedAt:    unixToTime(mu.CreatedAt),
		UpdatedAt:    unixToTime(mu.UpdatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
