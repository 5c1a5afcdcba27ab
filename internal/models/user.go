// Package models provides data models for the portfolio tracker system.
package models

import "time"

// User represents a registered account.
// PasswordHash is a bcrypt hash and is never serialized to JSON.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}
