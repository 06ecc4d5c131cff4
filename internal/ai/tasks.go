package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/jimdaga/interview-ace/internal/steps"
)

// Task names. Every prompt starts with "TASK: <name>".
const (
	TaskJobAnalysis     = "job_analysis"
	TaskCVAnalysis      = "cv_analysis"
	TaskBusinessModel   = "business_model"
	TaskSWOT            = "swot"
	TaskTopNews         = "top_news"
	TaskCompanyTimeline = "company_timeline"
	TaskWhy             = "why"
	TaskQuestions       = "questions"
	TaskSkillMatch      = "skill_match"
)

// maxPromptInput caps user-provided text embedded in a prompt.
const maxPromptInput = 12000

// JobInput describes the posting to analyze. Description wins over URL.
type JobInput struct {
	Description string `json:"description"`
	URL         string `json:"url"`
}

// CompanyInput identifies the company being researched.
type CompanyInput struct {
	Company string `json:"company"`
	Role    string `json:"role"`
	Context string `json:"context"`
}

// CVProfile is the structured summary of a candidate's CV.
type CVProfile struct {
	Name       string           `json:"name"`
	Headline   string           `json:"headline"`
	Summary    string           `json:"summary"`
	Skills     steps.StringList `json:"skills"`
	Experience steps.StringList `json:"experience"`
	Education  steps.StringList `json:"education"`
}

// WhyInput feeds the motivation suggestions.
type WhyInput struct {
	Company   string `json:"company"`
	Role      string `json:"role"`
	CVSummary string `json:"cv_summary"`
}

func taskPrompt(task string, lines ...string) string {
	return "TASK: " + task + "\n" + strings.Join(lines, "\n")
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	return truncateUTF8(s, maxPromptInput)
}

// AnalyzeJob extracts step 1 from a job description, fetching the posting
// when only a URL is given.
func (g *Gateway) AnalyzeJob(ctx context.Context, in JobInput) (steps.JobAnalysis, error) {
	description := in.Description
	if strings.TrimSpace(description) == "" {
		if strings.TrimSpace(in.URL) == "" {
			return steps.JobAnalysis{}, invalidInput(TaskJobAnalysis, "description or url is required")
		}
		posting, err := g.fetcher.FetchJobPosting(ctx, in.URL)
		if err != nil {
			return steps.JobAnalysis{}, failed(TaskJobAnalysis, err)
		}
		description = posting
	}

	resp, err := g.call(ctx, TaskJobAnalysis, taskPrompt(TaskJobAnalysis,
		"Analyze the job posting below. Return JSON with keys job_title, company_name, location,",
		"salary_range, company_description, company_summary, key_requirements (array of strings)",
		"and key_responsibilities (array of strings). Use empty strings when unknown.",
		"",
		"JOB POSTING:",
		clip(description),
	), CallOptions{JSON: true})
	if err != nil {
		return steps.JobAnalysis{}, err
	}

	job := steps.DecodeResult(1, resp.Result()).(steps.JobAnalysis)
	if strings.TrimSpace(job.JobTitle) == "" && strings.TrimSpace(job.CompanyName) == "" {
		return steps.JobAnalysis{}, failed(TaskJobAnalysis, errors.New("response has neither job_title nor company_name"))
	}
	if job.JobDescription == "" {
		job.JobDescription = clip(description)
	}
	return job, nil
}

// AnalyzeCV summarizes a CV into a CVProfile.
func (g *Gateway) AnalyzeCV(ctx context.Context, cvText string) (CVProfile, error) {
	if strings.TrimSpace(cvText) == "" {
		return CVProfile{}, invalidInput(TaskCVAnalysis, "cv text is required")
	}
	resp, err := g.call(ctx, TaskCVAnalysis, taskPrompt(TaskCVAnalysis,
		"Summarize the CV below. Return JSON with keys name, headline, summary, skills (array),",
		"experience (array of one-line achievements) and education (array).",
		"",
		"CV:",
		clip(cvText),
	), CallOptions{JSON: true})
	if err != nil {
		return CVProfile{}, err
	}

	r := resp.Result()
	profile := CVProfile{
		Name:       r.Get("name").String(),
		Headline:   r.Get("headline").String(),
		Summary:    r.Get("summary").String(),
		Skills:     stringList(r.Get("skills")),
		Experience: stringList(r.Get("experience")),
		Education:  stringList(r.Get("education")),
	}
	if len(profile.Skills) == 0 && len(profile.Experience) == 0 && profile.Summary == "" {
		return CVProfile{}, failed(TaskCVAnalysis, errors.New("response has no skills, experience or summary"))
	}
	return profile, nil
}

// BusinessModel returns the nine Business Model Canvas buckets.
func (g *Gateway) BusinessModel(ctx context.Context, in CompanyInput) (steps.CompanyIntel, error) {
	if err := in.validate(TaskBusinessModel); err != nil {
		return steps.CompanyIntel{}, err
	}
	resp, err := g.call(ctx, TaskBusinessModel, taskPrompt(TaskBusinessModel,
		fmt.Sprintf("Build a Business Model Canvas for %s.", in.Company),
		"Return JSON with array-of-string keys key_partners, key_activities, key_resources,",
		"value_propositions, customer_relationships, channels, customer_segments, cost_structure, revenue_streams.",
		in.contextLines(),
	), CallOptions{JSON: true})
	if err != nil {
		return steps.CompanyIntel{}, err
	}

	intel := steps.DecodeResult(2, resp.Result()).(steps.CompanyIntel)
	for _, b := range intel.CanvasBuckets() {
		if len(b.Items) > 0 {
			return intel, nil
		}
	}
	return steps.CompanyIntel{}, failed(TaskBusinessModel, errors.New("response has an empty canvas"))
}

// SWOT returns step 3 for the company.
func (g *Gateway) SWOT(ctx context.Context, in CompanyInput) (steps.SWOT, error) {
	if err := in.validate(TaskSWOT); err != nil {
		return steps.SWOT{}, err
	}
	resp, err := g.call(ctx, TaskSWOT, taskPrompt(TaskSWOT,
		fmt.Sprintf("Write a SWOT analysis of %s from the perspective of a candidate interviewing there.", in.Company),
		"Return JSON with array-of-string keys strengths, weaknesses, opportunities, threats.",
		in.contextLines(),
	), CallOptions{JSON: true})
	if err != nil {
		return steps.SWOT{}, err
	}

	swot := steps.DecodeResult(3, resp.Result()).(steps.SWOT)
	if len(swot.Strengths)+len(swot.Weaknesses)+len(swot.Opportunities)+len(swot.Threats) == 0 {
		return steps.SWOT{}, failed(TaskSWOT, errors.New("response has no SWOT entries"))
	}
	return swot, nil
}

// TopNews returns recent news items about the company. An empty list is a
// valid answer.
func (g *Gateway) TopNews(ctx context.Context, in CompanyInput) ([]steps.NewsItem, error) {
	if err := in.validate(TaskTopNews); err != nil {
		return nil, err
	}
	resp, err := g.call(ctx, TaskTopNews, taskPrompt(TaskTopNews,
		fmt.Sprintf("List up to five notable recent news items about %s.", in.Company),
		`Return JSON {"topNewsItems": [{"title", "url", "source", "date", "summary"}]}.`,
		in.contextLines(),
	), CallOptions{JSON: true})
	if err != nil {
		return nil, err
	}

	r := resp.Result()
	if items := r.Get("topNewsItems"); !items.Exists() {
		if alt := r.Get("items"); alt.IsArray() {
			return decodeNews(alt), nil
		}
		return nil, failed(TaskTopNews, errors.New("response has no topNewsItems"))
	}
	return steps.DecodeResult(2, r).(steps.CompanyIntel).TopNewsItems, nil
}

func decodeNews(items gjson.Result) []steps.NewsItem {
	doc, _ := json.Marshal(map[string]json.RawMessage{"topNewsItems": json.RawMessage(items.Raw)})
	return steps.Decode(2, doc).(steps.CompanyIntel).TopNewsItems
}

// CompanyTimeline returns "YYYY – event" lines, oldest first.
func (g *Gateway) CompanyTimeline(ctx context.Context, in CompanyInput) ([]string, error) {
	if err := in.validate(TaskCompanyTimeline); err != nil {
		return nil, err
	}
	resp, err := g.call(ctx, TaskCompanyTimeline, taskPrompt(TaskCompanyTimeline,
		fmt.Sprintf("Give the key milestones in the history of %s.", in.Company),
		`Return JSON {"companyTimeline": [{"year": "YYYY", "event": "..."}]}, oldest first.`,
		in.contextLines(),
	), CallOptions{JSON: true})
	if err != nil {
		return nil, err
	}

	timeline := steps.DecodeResult(2, resp.Result()).(steps.CompanyIntel).CompanyTimeline
	if len(timeline) == 0 {
		return nil, failed(TaskCompanyTimeline, errors.New("response has no timeline entries"))
	}
	return timeline, nil
}

// CompanyIntel runs the canvas, news and timeline tasks concurrently and
// combines them into step 2. The canvas is required; news and timeline
// failures are logged and left empty.
func (g *Gateway) CompanyIntel(ctx context.Context, in CompanyInput) (steps.CompanyIntel, error) {
	var (
		intel    steps.CompanyIntel
		news     []steps.NewsItem
		timeline []string
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		intel, err = g.BusinessModel(egCtx, in)
		return err
	})
	eg.Go(func() error {
		var err error
		if news, err = g.TopNews(egCtx, in); err != nil {
			g.logger.Warn("top news unavailable", "company", in.Company, "error", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		if timeline, err = g.CompanyTimeline(egCtx, in); err != nil {
			g.logger.Warn("company timeline unavailable", "company", in.Company, "error", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return steps.CompanyIntel{}, err
	}

	intel.TopNewsItems = append([]steps.NewsItem{}, news...)
	intel.CompanyTimeline = append(steps.StringList{}, timeline...)
	return intel, nil
}

// WhySuggestions drafts step 5 answers.
func (g *Gateway) WhySuggestions(ctx context.Context, in WhyInput) (steps.Why, error) {
	if strings.TrimSpace(in.Company) == "" || strings.TrimSpace(in.Role) == "" {
		return steps.Why{}, invalidInput(TaskWhy, "company and role are required")
	}
	resp, err := g.call(ctx, TaskWhy, taskPrompt(TaskWhy,
		fmt.Sprintf("Suggest talking points for a candidate interviewing for %s at %s.", in.Role, in.Company),
		"Return JSON with array-of-string keys why_company, why_role, why_now, why_you.",
		"CANDIDATE SUMMARY:",
		clip(in.CVSummary),
	), CallOptions{JSON: true})
	if err != nil {
		return steps.Why{}, err
	}

	why := steps.DecodeResult(5, resp.Result()).(steps.Why)
	if len(why.WhyCompany)+len(why.WhyRole)+len(why.WhyNow)+len(why.WhyYou) == 0 {
		return steps.Why{}, failed(TaskWhy, errors.New("response has no suggestions"))
	}
	return why, nil
}

// InterviewQuestions drafts step 6.
func (g *Gateway) InterviewQuestions(ctx context.Context, in CompanyInput) (steps.Questions, error) {
	if err := in.validate(TaskQuestions); err != nil {
		return steps.Questions{}, err
	}
	resp, err := g.call(ctx, TaskQuestions, taskPrompt(TaskQuestions,
		fmt.Sprintf("List likely interview questions for %s at %s with suggested answers and tips.", in.Role, in.Company),
		`Return JSON {"questions": [{"question", "answer", "tips"}], "questions_to_ask": ["..."]}.`,
		in.contextLines(),
	), CallOptions{JSON: true})
	if err != nil {
		return steps.Questions{}, err
	}

	q := steps.DecodeResult(6, resp.Result()).(steps.Questions)
	if len(q.Questions) == 0 {
		return steps.Questions{}, failed(TaskQuestions, errors.New("response has no questions"))
	}
	return q, nil
}

// MatchSkills scores each requirement against the candidate's experience by
// embedding similarity. The overall score is the mean of the item scores.
func (g *Gateway) MatchSkills(ctx context.Context, requirements, experience []string) (steps.ProfileMatch, error) {
	requirements = nonBlank(requirements)
	experience = nonBlank(experience)
	if len(requirements) == 0 {
		return steps.ProfileMatch{}, invalidInput(TaskSkillMatch, "requirements are required")
	}
	if len(experience) == 0 {
		return steps.ProfileMatch{}, invalidInput(TaskSkillMatch, "experience is required")
	}

	if g.llm == nil {
		return steps.ProfileMatch{}, failed(TaskSkillMatch, errors.New("no model configured"))
	}
	vectors, err := g.llm.Embed(ctx, append(append([]string{}, requirements...), experience...))
	if err != nil {
		return steps.ProfileMatch{}, failed(TaskSkillMatch, err)
	}
	if len(vectors) != len(requirements)+len(experience) {
		return steps.ProfileMatch{}, failed(TaskSkillMatch,
			fmt.Errorf("expected %d embeddings, got %d", len(requirements)+len(experience), len(vectors)))
	}
	reqVecs, expVecs := vectors[:len(requirements)], vectors[len(requirements):]

	match := steps.ProfileMatch{Items: make([]steps.MatchItem, 0, len(requirements))}
	total := 0.0
	for i, req := range requirements {
		best, bestSim := 0, math.Inf(-1)
		for j := range expVecs {
			if sim := CosineSimilarity(reqVecs[i], expVecs[j]); sim > bestSim {
				best, bestSim = j, sim
			}
		}
		score := steps.ClampScore(math.Round(bestSim * 100))
		total += score
		match.Items = append(match.Items, steps.MatchItem{
			Requirement: req,
			Evidence:    experience[best],
			Score:       &score,
		})
	}
	match.MatchScore = steps.ClampScore(math.Round(total / float64(len(requirements))))

	sort.SliceStable(match.Items, func(a, b int) bool { return *match.Items[a].Score > *match.Items[b].Score })
	return match, nil
}

// CosineSimilarity returns 0 for mismatched or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (in CompanyInput) validate(task string) error {
	if strings.TrimSpace(in.Company) == "" {
		return invalidInput(task, "company is required")
	}
	return nil
}

func (in CompanyInput) contextLines() string {
	var b strings.Builder
	if in.Role != "" {
		b.WriteString("ROLE: " + in.Role + "\n")
	}
	if in.Context != "" {
		b.WriteString("CONTEXT:\n" + clip(in.Context))
	}
	return b.String()
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringList(r gjson.Result) steps.StringList {
	out := steps.StringList{}
	if r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
		return append(out, r.Str)
	}
	for _, e := range r.Array() {
		if e.Type == gjson.String && strings.TrimSpace(e.Str) != "" {
			out = append(out, e.Str)
		}
	}
	return out
}
