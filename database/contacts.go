package database

import (
	"context"

	"inventory/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) CreateContactMessage(ctx context.Context, msg *models.ContactMessage) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	_, err := s.contacts.InsertOne(ctx, msg)
	return err
}

func (s *Store) MarkContactSent(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.contacts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"sent": true}})
	return err
}
