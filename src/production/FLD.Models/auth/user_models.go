package auth_models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered account. Coordinates are optional; a user
// without both is never matched by the proximity notifier.
type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username             string             `bson:"username" json:"username"`
	Email                string             `bson:"email" json:"email"`
	Password             string             `bson:"password" json:"-"`
	FirstName            *string            `bson:"first_name" json:"first_name"`
	LastName             *string            `bson:"last_name" json:"last_name"`
	PhoneNumber          *string            `bson:"phone_number" json:"phone_number"`
	DateOfBirth          *string            `bson:"date_of_birth" json:"date_of_birth"`
	Address              *string            `bson:"address" json:"address"`
	Street1              *string            `bson:"street1" json:"street1"`
	Street2              *string            `bson:"street2" json:"street2"`
	City                 *string            `bson:"city" json:"city"`
	Province             *string            `bson:"province" json:"province"`
	District             *string            `bson:"district" json:"district"`
	PostalCode           *string            `bson:"postal_code" json:"postal_code"`
	Country              *string            `bson:"country" json:"country"`
	Latitude             *float64           `bson:"latitude" json:"latitude"`
	Longitude            *float64           `bson:"longitude" json:"longitude"`
	Role                 string             `bson:"role" json:"role"`
	ResetPasswordOTP     string             `bson:"resetPasswordOTP,omitempty" json:"-"`
	ResetPasswordExpires *time.Time         `bson:"resetPasswordExpires,omitempty" json:"-"`
	ResetPasswordTries   int                `bson:"resetPasswordTries,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
}

// NewUser creates a new User instance
func NewUser(username, email, password, role string) *User {
	return &User{
		Username:  username,
		Email:     email,
		Password:  password, // hashed by the auth service before saving
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// HasLocation reports whether both coordinates are present
func (u *User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// Phone returns the stored phone number or ""
func (u *User) Phone() string {
	if u.PhoneNumber == nil {
		return ""
	}
	return *u.PhoneNumber
}
