// Package steps defines the typed shape of the six guided-workflow step slots,
// with lenient decoding, list merging and write-time validation.
package steps

import "encoding/json"

// Count is the number of workflow steps.
const Count = 6

// StringList always encodes as a JSON array, never null.
type StringList []string

// MarshalJSON implements json.Marshaler.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Data is implemented by every typed step.
type Data interface {
	StepNumber() int
}

// JobAnalysis is step 1.
type JobAnalysis struct {
	JobTitle            string     `json:"job_title"`
	CompanyName         string     `json:"company_name"`
	Location            string     `json:"location"`
	SalaryRange         string     `json:"salary_range"`
	CompanyDescription  string     `json:"company_description"`
	KeyRequirements     StringList `json:"key_requirements"`
	KeyResponsibilities StringList `json:"key_responsibilities"`
	CompanySummary      string     `json:"company_summary"`
	JobDescription      string     `json:"job_description"`
}

// NewsItem is one entry of the company's top news.
type NewsItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Source  string `json:"source,omitempty"`
	Date    string `json:"date,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// CompanyIntel is step 2: the nine Business Model Canvas buckets plus news
// and timeline.
type CompanyIntel struct {
	KeyPartners           StringList `json:"key_partners"`
	KeyActivities         StringList `json:"key_activities"`
	KeyResources          StringList `json:"key_resources"`
	ValuePropositions     StringList `json:"value_propositions"`
	CustomerRelationships StringList `json:"customer_relationships"`
	Channels              StringList `json:"channels"`
	CustomerSegments      StringList `json:"customer_segments"`
	CostStructure         StringList `json:"cost_structure"`
	RevenueStreams        StringList `json:"revenue_streams"`
	TopNewsItems          []NewsItem `json:"topNewsItems"`
	CompanyTimeline       StringList `json:"companyTimeline"`
}

// SWOT is step 3.
type SWOT struct {
	Strengths     StringList `json:"strengths"`
	Weaknesses    StringList `json:"weaknesses"`
	Opportunities StringList `json:"opportunities"`
	Threats       StringList `json:"threats"`
}

// MatchItem pairs a job requirement with the candidate's evidence.
type MatchItem struct {
	Requirement string   `json:"requirement"`
	Evidence    string   `json:"evidence"`
	Score       *float64 `json:"score,omitempty"`
}

// ProfileMatch is step 4. MatchScore is within 0-100.
type ProfileMatch struct {
	MatchScore float64     `json:"matchScore"`
	Items      []MatchItem `json:"items"`
}

// Why is step 5.
type Why struct {
	WhyCompany StringList `json:"why_company"`
	WhyRole    StringList `json:"why_role"`
	WhyNow     StringList `json:"why_now"`
	WhyYou     StringList `json:"why_you"`
}

// Question is one interview question with an optional prepared answer.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Tips     string `json:"tips,omitempty"`
}

// Questions is step 6.
type Questions struct {
	Questions      []Question `json:"questions"`
	QuestionsToAsk StringList `json:"questions_to_ask"`
}

func (JobAnalysis) StepNumber() int  { return 1 }
func (CompanyIntel) StepNumber() int { return 2 }
func (SWOT) StepNumber() int         { return 3 }
func (ProfileMatch) StepNumber() int { return 4 }
func (Why) StepNumber() int          { return 5 }
func (Questions) StepNumber() int    { return 6 }

// CanvasBuckets returns the nine canvas lists in display order.
func (c CompanyIntel) CanvasBuckets() []CanvasBucket {
	return []CanvasBucket{
		{Key: "key_partners", Label: "Key Partners", Items: c.KeyPartners},
		{Key: "key_activities", Label: "Key Activities", Items: c.KeyActivities},
		{Key: "key_resources", Label: "Key Resources", Items: c.KeyResources},
		{Key: "value_propositions", Label: "Value Propositions", Items: c.ValuePropositions},
		{Key: "customer_relationships", Label: "Customer Relationships", Items: c.CustomerRelationships},
		{Key: "channels", Label: "Channels", Items: c.Channels},
		{Key: "customer_segments", Label: "Customer Segments", Items: c.CustomerSegments},
		{Key: "cost_structure", Label: "Cost Structure", Items: c.CostStructure},
		{Key: "revenue_streams", Label: "Revenue Streams", Items: c.RevenueStreams},
	}
}

// CanvasBucket is one labelled Business Model Canvas list.
type CanvasBucket struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Items StringList `json:"items"`
}
