package models

import (
	"time"
)

// AdminRole defines the privilege tiers of back-office accounts.
type AdminRole string

const (
	RoleAdmin AdminRole = "admin"
	// RoleMainAdmin additionally unlocks the audit log view.
	RoleMainAdmin AdminRole = "main_admin"
)

// Admin is a back-office account. Customers never have accounts; the only
// authenticated principals in the system are admins.
type Admin struct {
	Base         `bson:",inline"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	PasswordHash string    `bson:"password" json:"-"`
	Role         AdminRole `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
	Deleted      bool      `bson:"deleted" json:"-"` // Soft delete flag
}
