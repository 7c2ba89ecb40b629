package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type User struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Username   string             `json:"username" bson:"username"`
	FirstName  string             `json:"firstname" bson:"firstname"`
	LastName   string             `json:"lastname" bson:"lastname"`
	Email      string             `json:"email" bson:"email"`
	Password   string             `json:"-" bson:"password"` // bcrypt hash
	DateJoined string             `json:"datejoined" bson:"datejoined"`
	Friends    []string           `json:"friends" bson:"friends"`
}
