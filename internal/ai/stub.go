package ai

import (
	"context"
	"hash/fnv"
	"strings"
	"time"
	"unicode"
)

// StubClient returns canned responses keyed by the prompt's task line. It
// backs AI_STUB_MODE for local development and tests.
type StubClient struct {
	// Delay simulates upstream latency.
	Delay time.Duration
	// Responses overrides the canned reply for a task.
	Responses map[string]string
	// Err, when set, is returned by every call.
	Err error
}

var stubResponses = map[string]string{
	TaskJobAnalysis: `{
		"job_title": "Senior Product Manager",
		"company_name": "Acme Corp",
		"location": "San Francisco, CA",
		"salary_range": "$160,000 - $190,000",
		"company_description": "Workflow automation software for logistics companies.",
		"company_summary": "Growth-stage logistics SaaS company.",
		"key_requirements": ["5+ years of product management", "Strong SQL skills", "B2B SaaS experience"],
		"key_responsibilities": ["Own the product roadmap", "Run customer discovery"]
	}`,
	TaskCVAnalysis: `{
		"name": "Jordan Example",
		"headline": "Product manager with a data background",
		"summary": "Six years of B2B SaaS product management with a focus on analytics.",
		"skills": ["Product strategy", "SQL", "Roadmapping"],
		"experience": ["Led the analytics add-on launch", "Built self-serve metrics dashboards in SQL"],
		"education": ["BSc Computer Science"]
	}`,
	TaskBusinessModel: `{
		"key_partners": ["Freight carriers"],
		"key_activities": ["Platform development"],
		"key_resources": ["Carrier data network"],
		"value_propositions": ["Real-time shipment tracking"],
		"customer_relationships": ["Customer success managers"],
		"channels": ["Direct sales"],
		"customer_segments": ["Mid-market shippers"],
		"cost_structure": ["Cloud infrastructure"],
		"revenue_streams": ["Annual subscriptions"]
	}`,
	TaskSWOT: `{
		"strengths": ["Deep carrier integrations"],
		"weaknesses": ["Limited brand awareness"],
		"opportunities": ["European expansion"],
		"threats": ["ERP vendors bundling tracking"]
	}`,
	TaskTopNews:         `{"topNewsItems": [{"title": "Acme Corp raises Series C", "url": "https://example.com/acme-series-c", "source": "Example News", "date": "2024-03-12"}]}`,
	TaskCompanyTimeline: `{"companyTimeline": [{"year": "2015", "event": "Founded"}, {"year": "2024", "event": "Series C"}]}`,
	TaskWhy: `{
		"why_company": ["The mission matches problems I have solved before"],
		"why_role": ["The role combines strategy with discovery"],
		"why_now": ["The company is entering a new growth stage"],
		"why_you": ["I have shipped data products for operations teams"]
	}`,
	TaskQuestions: `{
		"questions": [{"question": "Tell me about a product you launched.", "answer": "Use a recent launch with metrics.", "tips": "STAR format"}],
		"questions_to_ask": ["What does success look like in six months?"]
	}`,
}

// Complete returns the canned response for the prompt's task.
func (s *StubClient) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	task := promptTask(prompt)
	if resp, ok := s.Responses[task]; ok {
		return resp, nil
	}
	if resp, ok := stubResponses[task]; ok {
		return resp, nil
	}
	if opts.JSON {
		return `{}`, nil
	}
	return "This is a stub response.", nil
}

// stubDims is the size of stub embedding vectors.
const stubDims = 64

// Embed hashes each input's words into a fixed-size vector, so texts that
// share words are similar.
func (s *StubClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	out := make([][]float32, len(inputs))
	for i, text := range inputs {
		vec := make([]float32, stubDims)
		for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[h.Sum32()%stubDims]++
		}
		out[i] = vec
	}
	return out, nil
}

func (s *StubClient) wait(ctx context.Context) error {
	if s.Err != nil {
		return s.Err
	}
	if s.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(s.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func promptTask(prompt string) string {
	line, _, _ := strings.Cut(prompt, "\n")
	task, ok := strings.CutPrefix(strings.TrimSpace(line), "TASK:")
	if !ok {
		return ""
	}
	return strings.TrimSpace(task)
}
