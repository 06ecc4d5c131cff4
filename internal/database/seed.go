package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/models"
	"github.com/jimdaga/interview-ace/internal/report"
)

// DevUserEmail owns the seeded development data.
const DevUserEmail = "dev@interviewace.local"

// SeedDevData populates the database with development test data.
// Idempotent: skips if the dev user already exists.
func SeedDevData(db *gorm.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var existing models.User
	err := db.Where("email = ?", DevUserEmail).First(&existing).Error
	if err == nil {
		logger.Info("Seed data already exists, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up dev user: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := models.User{
			Email:      DevUserEmail,
			Name:       "Dev User",
			ExternalID: "dev-subject",
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		identity := models.AuthIdentity{
			UserID:         user.ID,
			Provider:       "google",
			ProviderUserID: "dev-google-id-12345",
			AccessToken:    "dev-access-token-placeholder",
			RefreshToken:   "dev-refresh-token-placeholder",
		}
		if err := tx.Create(&identity).Error; err != nil {
			return err
		}

		prep := SamplePreparation(user.ID)
		if err := tx.Create(&prep).Error; err != nil {
			return err
		}

		// An untouched preparation next to the complete one.
		draft := models.Preparation{UserID: user.ID, Title: "Untitled preparation"}
		if err := tx.Create(&draft).Error; err != nil {
			return err
		}

		logger.Info("Seeded dev data", "user_id", user.ID, "preparations", 2)
		return nil
	})
}

// SamplePreparation splits the built-in demo report into step slots owned by
// userID.
func SamplePreparation(userID uint) models.Preparation {
	root := gjson.ParseBytes(report.SamplePreparation())
	prep := models.Preparation{
		UserID: userID,
		Title:  root.Get("title").String(),
		JobURL: root.Get("job_url").String(),
	}
	for n := 1; n <= models.StepCount; n++ {
		if slot := root.Get(fmt.Sprintf("step_%d_data", n)); slot.IsObject() {
			prep.SetStep(n, []byte(slot.Raw))
		}
	}
	prep.IsComplete = prep.AllStepsPopulated()
	return prep
}
