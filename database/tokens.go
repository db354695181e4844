package database

import (
	"context"
	"errors"
	"time"

	"inventory/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReplaceResetToken drops any earlier reset token for the same user before
// storing the new one, so only the latest link works.
func (s *Store) ReplaceResetToken(ctx context.Context, token *models.ResetToken) error {
	if _, err := s.tokens.DeleteMany(ctx, bson.M{"userId": token.UserID}); err != nil {
		return err
	}
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	_, err := s.tokens.InsertOne(ctx, token)
	return err
}

func (s *Store) FindValidResetToken(ctx context.Context, hash string, now time.Time) (*models.ResetToken, error) {
	var token models.ResetToken
	err := s.tokens.FindOne(ctx, bson.M{
		"token":     hash,
		"expiresAt": bson.M{"$gt": now},
	}).Decode(&token)
	if err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

func (s *Store) DeleteResetToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.tokens.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *Store) BlacklistToken(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := s.blacklist.InsertOne(ctx, models.BlacklistedToken{
		Token:     token,
		ExpiresAt: expiresAt,
	})
	return err
}

func (s *Store) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	var entry models.BlacklistedToken
	err := s.blacklist.FindOne(ctx, bson.M{"token": token}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
