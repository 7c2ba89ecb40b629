package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Known user/event statuses. The set is open: any non-empty string is
// stored and matched verbatim, case-sensitively.
const (
	StatusGoing      = "going"
	StatusInterested = "interested"
	StatusDeclined   = "declined"
	StatusCheckedIn  = "checkedIn"
)

// UserEvent records one user's status for one event. There is at most one
// record per (UserID, EventID).
type UserEvent struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID  string             `json:"userId" bson:"userId"`
	EventID string             `json:"eventId" bson:"eventId"`
	Status  string             `json:"status" bson:"status"`
}
