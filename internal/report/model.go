// Package report derives the report model from a preparation and renders it
// to a self-contained HTML document.
package report

import "github.com/jimdaga/interview-ace/internal/steps"

// ReportData is the normalized, fully defaulted projection of a preparation.
// Every section is a value, so it is always present even when empty.
type ReportData struct {
	Title        string       `json:"title"`
	Role         Role         `json:"role"`
	Company      Company      `json:"company"`
	Strategy     Strategy     `json:"strategy"`
	ProfileMatch ProfileMatch `json:"profileMatch"`
	Why          Why          `json:"why"`
	Interview    Interview    `json:"interview"`

	GeneratedAt        string `json:"generatedAt"`
	IsPremium          bool   `json:"isPremium"`
	ShowGenerateButton bool   `json:"showGenerateButton"`
	Debug              bool   `json:"debug,omitempty"`
}

// Role is built from the job analysis step.
type Role struct {
	Title            string           `json:"title"`
	Location         string           `json:"location"`
	SalaryRange      string           `json:"salaryRange"`
	Description      string           `json:"description"`
	Requirements     steps.StringList `json:"requirements"`
	Responsibilities steps.StringList `json:"responsibilities"`
}

// Company combines the company fields of step 1 with the canvas, news and
// timeline of step 2. Canvas is nil unless at least one bucket has items.
type Company struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Summary     string               `json:"summary"`
	Canvas      []steps.CanvasBucket `json:"canvas"`
	News        []steps.NewsItem     `json:"news"`
	Timeline    steps.StringList     `json:"timeline"`
}

// Strategy is the SWOT analysis.
type Strategy struct {
	Strengths     steps.StringList `json:"strengths"`
	Weaknesses    steps.StringList `json:"weaknesses"`
	Opportunities steps.StringList `json:"opportunities"`
	Threats       steps.StringList `json:"threats"`
}

// ProfileMatch summarizes how the candidate maps onto the requirements.
type ProfileMatch struct {
	Score float64           `json:"score"`
	Band  string            `json:"band"`
	Items []steps.MatchItem `json:"items"`
}

// Why holds the candidate's motivation answers.
type Why struct {
	Company steps.StringList `json:"company"`
	Role    steps.StringList `json:"role"`
	Now     steps.StringList `json:"now"`
	You     steps.StringList `json:"you"`
}

// Interview holds prepared questions and the questions to ask back.
type Interview struct {
	Questions      []steps.Question `json:"questions"`
	QuestionsToAsk steps.StringList `json:"questionsToAsk"`
}

// Match bands, by score.
const (
	BandStrong     = "strong"
	BandModerate   = "moderate"
	BandDeveloping = "developing"
)

func scoreBand(score float64, items int) string {
	switch {
	case score == 0 && items == 0:
		return ""
	case score >= 75:
		return BandStrong
	case score >= 50:
		return BandModerate
	default:
		return BandDeveloping
	}
}
