// Package preparations stores interview preparations and serves their HTTP API.
package preparations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/models"
	"github.com/jimdaga/interview-ace/internal/steps"
)

var (
	// ErrNotFound means no preparation has the requested id.
	ErrNotFound = errors.New("preparation not found")
	// ErrForbidden means the preparation belongs to another user.
	ErrForbidden = errors.New("preparation belongs to another user")
)

// Store is the preparation record store. Every operation is scoped to the
// calling user.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateInput holds the fields accepted on create.
type CreateInput struct {
	Title  string `json:"title"`
	JobURL string `json:"job_url"`
}

// UpdateInput holds the metadata fields accepted on update. Nil fields are
// left unchanged.
type UpdateInput struct {
	Title  *string `json:"title"`
	JobURL *string `json:"job_url"`
}

// Create inserts an empty preparation owned by userID.
func (s *Store) Create(ctx context.Context, userID uint, in CreateInput) (*models.Preparation, error) {
	prep := &models.Preparation{
		UserID: userID,
		Title:  strings.TrimSpace(in.Title),
		JobURL: strings.TrimSpace(in.JobURL),
	}
	if err := s.db.WithContext(ctx).Create(prep).Error; err != nil {
		return nil, fmt.Errorf("failed to create preparation: %w", err)
	}
	return prep, nil
}

// List returns the user's preparations, newest first.
func (s *Store) List(ctx context.Context, userID uint) ([]models.Preparation, error) {
	var preps []models.Preparation
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&preps).Error; err != nil {
		return nil, fmt.Errorf("failed to list preparations: %w", err)
	}
	return preps, nil
}

// Get loads one preparation owned by userID.
func (s *Store) Get(ctx context.Context, userID uint, id uuid.UUID) (*models.Preparation, error) {
	return s.get(s.db.WithContext(ctx), userID, id)
}

func (s *Store) get(tx *gorm.DB, userID uint, id uuid.UUID) (*models.Preparation, error) {
	var prep models.Preparation
	if err := tx.Where("id = ?", id).First(&prep).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load preparation: %w", err)
	}
	if prep.UserID != userID {
		return nil, ErrForbidden
	}
	return &prep, nil
}

// Update changes title and job URL.
func (s *Store) Update(ctx context.Context, userID uint, id uuid.UUID, in UpdateInput) (*models.Preparation, error) {
	var prep *models.Preparation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if prep, err = s.get(tx, userID, id); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			prep.Title = strings.TrimSpace(*in.Title)
			updates["title"] = prep.Title
		}
		if in.JobURL != nil {
			prep.JobURL = strings.TrimSpace(*in.JobURL)
			updates["job_url"] = prep.JobURL
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.Preparation{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, wrapTx("update preparation", err)
	}
	return prep, nil
}

// Delete permanently removes the preparation.
func (s *Store) Delete(ctx context.Context, userID uint, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.get(tx, userID, id); err != nil {
			return err
		}
		if err := tx.Where("preparation_id = ?", id).Delete(&models.ReportJob{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Preparation{}).Error
	})
	return wrapTx("delete preparation", err)
}

// ReplaceStep validates raw and stores its canonical form in slot n,
// replacing whatever was there.
func (s *Store) ReplaceStep(ctx context.Context, userID uint, id uuid.UUID, n int, raw []byte) (*models.Preparation, error) {
	canonical, err := steps.Canonicalize(n, raw)
	if err != nil {
		return nil, err
	}
	return s.writeStep(ctx, userID, id, n, func(*models.Preparation) (json.RawMessage, error) {
		return canonical, nil
	})
}

// MergeStep validates raw and merges it into slot n: list fields are
// appended without duplicates, non-blank scalars overwrite.
func (s *Store) MergeStep(ctx context.Context, userID uint, id uuid.UUID, n int, raw []byte) (*models.Preparation, error) {
	if err := steps.Validate(n, raw); err != nil {
		return nil, err
	}
	return s.writeStep(ctx, userID, id, n, func(prep *models.Preparation) (json.RawMessage, error) {
		current := prep.Step(n)
		merged := steps.Merge(steps.Decode(n, current), steps.Decode(n, raw))
		return steps.Encode(merged, overlay(current, raw))
	})
}

func (s *Store) writeStep(ctx context.Context, userID uint, id uuid.UUID, n int, next func(*models.Preparation) (json.RawMessage, error)) (*models.Preparation, error) {
	column, err := models.StepColumn(n)
	if err != nil {
		return nil, &steps.ValidationError{Step: n, Fields: []steps.FieldError{{Field: "step", Message: err.Error()}}}
	}

	var prep *models.Preparation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := s.get(tx, userID, id)
		if err != nil {
			return err
		}
		prep = loaded
		data, err := next(prep)
		if err != nil {
			return err
		}
		prep.SetStep(n, data)
		prep.IsComplete = prep.AllStepsPopulated()

		return tx.Model(&models.Preparation{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(map[string]interface{}{
				column:        datatypes.JSON(prep.Step(n)),
				"is_complete": prep.IsComplete,
			}).Error
	})
	if err != nil {
		return nil, wrapTx(fmt.Sprintf("save step %d", n), err)
	}
	return prep, nil
}

// overlay returns the keys of base with those of top laid over them.
func overlay(base, top []byte) []byte {
	merged := map[string]json.RawMessage{}
	_ = json.Unmarshal(base, &merged)
	var upper map[string]json.RawMessage
	_ = json.Unmarshal(top, &upper)
	for k, v := range upper {
		merged[k] = v
	}
	out, _ := json.Marshal(merged)
	return out
}

func wrapTx(op string, err error) error {
	if err == nil {
		return nil
	}
	var verr *steps.ValidationError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.As(err, &verr) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
