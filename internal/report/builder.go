package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jimdaga/interview-ace/internal/models"
	"github.com/jimdaga/interview-ace/internal/steps"
)

// DateLayout is the format of ReportData.GeneratedAt.
const DateLayout = "1/2/2006"

// Options are the presentation flags copied onto the model.
type Options struct {
	IsPremium          bool
	ShowGenerateButton bool
	Debug              bool
}

// Builder turns preparation JSON into a ReportData. The zero value uses the
// wall clock.
type Builder struct {
	Now func() time.Time
}

// PrepareModel builds a report model using the wall clock.
func PrepareModel(prep json.RawMessage, opts Options) ReportData {
	return Builder{}.Build(prep, opts)
}

// Build never fails. A slot that is absent, null or not an object falls back
// to the top-level object, so wrapped (step_N_data) and direct payloads are
// read the same way. Any input that is not a JSON object is treated as empty.
func (b Builder) Build(prep json.RawMessage, opts Options) ReportData {
	root := gjson.Result{}
	if gjson.ValidBytes(prep) {
		if r := gjson.ParseBytes(prep); r.IsObject() {
			root = r
		}
	}

	job := steps.DecodeResult(1, slot(root, 1)).(steps.JobAnalysis)
	intel := steps.DecodeResult(2, slot(root, 2)).(steps.CompanyIntel)
	swot := steps.DecodeResult(3, slot(root, 3)).(steps.SWOT)
	match := steps.DecodeResult(4, slot(root, 4)).(steps.ProfileMatch)
	why := steps.DecodeResult(5, slot(root, 5)).(steps.Why)
	questions := steps.DecodeResult(6, slot(root, 6)).(steps.Questions)

	title := root.Get("title").String()
	if title == "" && job.JobTitle != "" {
		title = job.JobTitle
		if job.CompanyName != "" {
			title = job.JobTitle + " at " + job.CompanyName
		}
	}

	return ReportData{
		Title: title,
		Role: Role{
			Title:            job.JobTitle,
			Location:         job.Location,
			SalaryRange:      job.SalaryRange,
			Description:      job.JobDescription,
			Requirements:     job.KeyRequirements,
			Responsibilities: job.KeyResponsibilities,
		},
		Company: Company{
			Name:        job.CompanyName,
			Description: job.CompanyDescription,
			Summary:     job.CompanySummary,
			Canvas:      populatedCanvas(intel),
			News:        intel.TopNewsItems,
			Timeline:    intel.CompanyTimeline,
		},
		Strategy: Strategy{
			Strengths:     swot.Strengths,
			Weaknesses:    swot.Weaknesses,
			Opportunities: swot.Opportunities,
			Threats:       swot.Threats,
		},
		ProfileMatch: ProfileMatch{
			Score: match.MatchScore,
			Band:  scoreBand(match.MatchScore, len(match.Items)),
			Items: match.Items,
		},
		Why: Why{
			Company: why.WhyCompany,
			Role:    why.WhyRole,
			Now:     why.WhyNow,
			You:     why.WhyYou,
		},
		Interview: Interview{
			Questions:      questions.Questions,
			QuestionsToAsk: questions.QuestionsToAsk,
		},
		GeneratedAt:        b.now().Format(DateLayout),
		IsPremium:          opts.IsPremium,
		ShowGenerateButton: opts.ShowGenerateButton,
		Debug:              opts.Debug,
	}
}

func (b Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func slot(root gjson.Result, n int) gjson.Result {
	if !root.IsObject() {
		return gjson.Result{}
	}
	for _, key := range []string{fmt.Sprintf("step_%d_data", n), fmt.Sprintf("step%dData", n)} {
		if v := root.Get(key); v.IsObject() {
			return v
		}
	}
	return root
}

func populatedCanvas(intel steps.CompanyIntel) []steps.CanvasBucket {
	buckets := intel.CanvasBuckets()
	for _, b := range buckets {
		if len(b.Items) > 0 {
			return buckets
		}
	}
	return nil
}

// FromPreparation encodes a stored preparation in the wrapped payload shape.
func FromPreparation(p models.Preparation) json.RawMessage {
	doc := map[string]interface{}{
		"id":          p.ID.String(),
		"title":       p.Title,
		"job_url":     p.JobURL,
		"is_complete": p.IsComplete,
	}
	for n := 1; n <= models.StepCount; n++ {
		doc[fmt.Sprintf("step_%d_data", n)] = p.Step(n)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		// Step slots are json.RawMessage; a corrupt slot drops to the title only.
		out, _ = json.Marshal(map[string]string{"title": p.Title})
	}
	return out
}
