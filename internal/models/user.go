package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an application user with subscription and activity tracking
type User struct {
	gorm.Model
	Email            string `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null"`
	Name             string `gorm:"not null;default:''"`
	ExternalID       string `gorm:"column:external_id;index"` // JWT subject from the identity provider
	IsPremium        bool   `gorm:"not null;default:false"`
	StripeCustomerID string `gorm:"column:stripe_customer_id;index"`
	LastLoginAt      *time.Time

	// Associations
	AuthIdentities []AuthIdentity `gorm:"constraint:OnDelete:CASCADE;"`
	Preparations   []Preparation  `gorm:"constraint:OnDelete:CASCADE;"`
}
