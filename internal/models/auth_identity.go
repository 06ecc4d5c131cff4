package models

import (
	"time"

	"github.com/jimdaga/interview-ace/internal/crypto"
	"gorm.io/gorm"
)

var sealer *crypto.Sealer

// InitEncryption initializes the sealer used for secrets stored by this package.
// Without it, values are stored as-is (development and tests).
func InitEncryption(encryptionKey string) error {
	s, err := crypto.NewSealer(encryptionKey)
	if err != nil {
		return err
	}
	sealer = s
	return nil
}

// AuthIdentity represents a user's OAuth identity with encrypted token storage
type AuthIdentity struct {
	gorm.Model
	UserID         uint   `gorm:"not null;index"`
	User           User   `gorm:"constraint:OnDelete:CASCADE;"`
	Provider       string `gorm:"not null"` // e.g., "google"
	ProviderUserID string `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user,where:deleted_at IS NULL"`
	AccessToken    string `gorm:"type:text"` // stored encrypted
	RefreshToken   string `gorm:"type:text"` // stored encrypted
	TokenExpiry    *time.Time
}

// BeforeSave encrypts tokens before saving to database.
func (a *AuthIdentity) BeforeSave(tx *gorm.DB) error {
	if sealer == nil {
		return nil
	}
	var err error
	if a.AccessToken, err = sealer.Seal(a.AccessToken); err != nil {
		return err
	}
	if a.RefreshToken, err = sealer.Seal(a.RefreshToken); err != nil {
		return err
	}
	return nil
}

// AfterFind decrypts tokens after loading from database
func (a *AuthIdentity) AfterFind(tx *gorm.DB) error {
	if sealer == nil {
		return nil
	}
	var err error
	if a.AccessToken, err = sealer.Open(a.AccessToken); err != nil {
		return err
	}
	if a.RefreshToken, err = sealer.Open(a.RefreshToken); err != nil {
		return err
	}
	return nil
}
