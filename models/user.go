package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account holder. Password and reset fields never leave the server.
type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email                string             `bson:"email" json:"email"`
	Password             string             `bson:"password" json:"-"` // bcrypt hash
	Name                 string             `bson:"name" json:"name"`
	ResetPasswordToken   string             `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpires *time.Time         `bson:"resetPasswordExpires,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserUpdate carries the optional fields of a profile update.
type UserUpdate struct {
	Email    *string `json:"email,omitempty" binding:"omitempty,email"`
	Password *string `json:"password,omitempty"`
	Name     *string `json:"name,omitempty"`
}
