package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/steps"
)

// StepCount is the number of guided workflow steps stored on a Preparation.
const StepCount = 6

// Preparation is one user's interview-prep session with six independently
// saved step slots. Deletion is permanent (no soft-delete column).
type Preparation struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	User       User           `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Title      string         `gorm:"not null;default:''" json:"title"`
	JobURL     string         `gorm:"column:job_url;type:text" json:"job_url"`
	IsComplete bool           `gorm:"not null;default:false" json:"is_complete"`
	Step1Data  datatypes.JSON `gorm:"column:step_1_data;type:jsonb" json:"step_1_data"`
	Step2Data  datatypes.JSON `gorm:"column:step_2_data;type:jsonb" json:"step_2_data"`
	Step3Data  datatypes.JSON `gorm:"column:step_3_data;type:jsonb" json:"step_3_data"`
	Step4Data  datatypes.JSON `gorm:"column:step_4_data;type:jsonb" json:"step_4_data"`
	Step5Data  datatypes.JSON `gorm:"column:step_5_data;type:jsonb" json:"step_5_data"`
	Step6Data  datatypes.JSON `gorm:"column:step_6_data;type:jsonb" json:"step_6_data"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

var emptyObject = datatypes.JSON(`{}`)

// BeforeCreate assigns the opaque id and defaults every slot to {}.
func (p *Preparation) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for n := 1; n <= StepCount; n++ {
		if slot := p.stepPtr(n); len(*slot) == 0 {
			*slot = emptyObject
		}
	}
	return nil
}

// StepColumn returns the column name of step n.
func StepColumn(n int) (string, error) {
	if n < 1 || n > StepCount {
		return "", fmt.Errorf("step %d out of range 1-%d", n, StepCount)
	}
	return fmt.Sprintf("step_%d_data", n), nil
}

// Step returns the raw JSON stored in slot n (nil when n is out of range).
func (p *Preparation) Step(n int) json.RawMessage {
	if n < 1 || n > StepCount {
		return nil
	}
	return json.RawMessage(*p.stepPtr(n))
}

// SetStep replaces slot n in memory.
func (p *Preparation) SetStep(n int, raw json.RawMessage) {
	if n < 1 || n > StepCount {
		return
	}
	*p.stepPtr(n) = datatypes.JSON(raw)
}

// AllStepsPopulated reports whether every slot decodes to a step with some
// content. Empty objects, or objects whose known fields are all blank, do
// not count.
func (p *Preparation) AllStepsPopulated() bool {
	for n := 1; n <= StepCount; n++ {
		if !steps.Populated(n, p.Step(n)) {
			return false
		}
	}
	return true
}

func (p *Preparation) stepPtr(n int) *datatypes.JSON {
	switch n {
	case 1:
		return &p.Step1Data
	case 2:
		return &p.Step2Data
	case 3:
		return &p.Step3Data
	case 4:
		return &p.Step4Data
	case 5:
		return &p.Step5Data
	default:
		return &p.Step6Data
	}
}
