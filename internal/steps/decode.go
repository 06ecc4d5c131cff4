package steps

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// Decode projects an arbitrary JSON value onto the typed shape of step n.
// It never fails: missing, null or wrong-typed fields become "", empty lists
// or 0. An n outside 1..Count yields nil.
func Decode(n int, raw []byte) Data {
	obj := objectOf(raw)
	switch n {
	case 1:
		return decodeJobAnalysis(obj)
	case 2:
		return decodeCompanyIntel(obj)
	case 3:
		return decodeSWOT(obj)
	case 4:
		return decodeProfileMatch(obj)
	case 5:
		return decodeWhy(obj)
	case 6:
		return decodeQuestions(obj)
	default:
		return nil
	}
}

// DecodeResult is Decode for a value already located with gjson.
func DecodeResult(n int, r gjson.Result) Data {
	if !r.IsObject() {
		return Decode(n, nil)
	}
	return Decode(n, []byte(r.Raw))
}

func objectOf(raw []byte) gjson.Result {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return gjson.Result{}
	}
	return r
}

func decodeJobAnalysis(r gjson.Result) JobAnalysis {
	return JobAnalysis{
		JobTitle:            text(r, "job_title", "jobTitle"),
		CompanyName:         text(r, "company_name", "companyName"),
		Location:            text(r, "location"),
		SalaryRange:         text(r, "salary_range", "salaryRange"),
		CompanyDescription:  text(r, "company_description", "companyDescription"),
		KeyRequirements:     list(r, "key_requirements", "keyRequirements"),
		KeyResponsibilities: list(r, "key_responsibilities", "keyResponsibilities"),
		CompanySummary:      text(r, "company_summary", "companySummary"),
		JobDescription:      text(r, "job_description", "jobDescription"),
	}
}

func decodeCompanyIntel(r gjson.Result) CompanyIntel {
	intel := CompanyIntel{
		KeyPartners:           list(r, "key_partners"),
		KeyActivities:         list(r, "key_activities"),
		KeyResources:          list(r, "key_resources"),
		ValuePropositions:     list(r, "value_propositions"),
		CustomerRelationships: list(r, "customer_relationships"),
		Channels:              list(r, "channels"),
		CustomerSegments:      list(r, "customer_segments"),
		CostStructure:         list(r, "cost_structure"),
		RevenueStreams:        list(r, "revenue_streams"),
		TopNewsItems:          []NewsItem{},
		CompanyTimeline:       StringList{},
	}

	for _, item := range first(r, "topNewsItems", "top_news_items").Array() {
		if !item.IsObject() {
			continue
		}
		news := NewsItem{
			Title:   text(item, "title"),
			URL:     text(item, "url", "link"),
			Source:  text(item, "source"),
			Date:    text(item, "date"),
			Summary: text(item, "summary"),
		}
		if strings.TrimSpace(news.Title) == "" {
			continue
		}
		intel.TopNewsItems = append(intel.TopNewsItems, news)
	}

	for _, entry := range first(r, "companyTimeline", "company_timeline").Array() {
		switch {
		case entry.Type == gjson.String:
			intel.CompanyTimeline = append(intel.CompanyTimeline, entry.Str)
		case entry.IsObject():
			// {year, event} objects are flattened to the display form.
			year, event := text(entry, "year", "date"), text(entry, "event", "title")
			if event != "" {
				intel.CompanyTimeline = append(intel.CompanyTimeline, TimelineEntry(year, event))
			}
		}
	}
	return intel
}

// TimelineEntry formats a timeline line as "YYYY – event".
func TimelineEntry(year, event string) string {
	if strings.TrimSpace(year) == "" {
		return event
	}
	return fmt.Sprintf("%s – %s", strings.TrimSpace(year), event)
}

func decodeSWOT(r gjson.Result) SWOT {
	return SWOT{
		Strengths:     list(r, "strengths"),
		Weaknesses:    list(r, "weaknesses"),
		Opportunities: list(r, "opportunities"),
		Threats:       list(r, "threats"),
	}
}

func decodeProfileMatch(r gjson.Result) ProfileMatch {
	pm := ProfileMatch{
		MatchScore: ClampScore(number(first(r, "matchScore", "match_score"))),
		Items:      []MatchItem{},
	}
	for _, item := range first(r, "items", "matches").Array() {
		if !item.IsObject() {
			continue
		}
		mi := MatchItem{
			Requirement: text(item, "requirement", "skill"),
			Evidence:    text(item, "evidence"),
		}
		if s := item.Get("score"); s.Exists() && s.Type != gjson.Null {
			score := ClampScore(number(s))
			mi.Score = &score
		}
		pm.Items = append(pm.Items, mi)
	}
	return pm
}

func decodeWhy(r gjson.Result) Why {
	return Why{
		WhyCompany: list(r, "why_company", "whyCompany"),
		WhyRole:    list(r, "why_role", "whyRole"),
		WhyNow:     list(r, "why_now", "whyNow"),
		WhyYou:     list(r, "why_you", "whyYou"),
	}
}

func decodeQuestions(r gjson.Result) Questions {
	q := Questions{
		Questions:      []Question{},
		QuestionsToAsk: list(r, "questions_to_ask", "questionsToAsk"),
	}
	for _, item := range r.Get("questions").Array() {
		switch {
		case item.Type == gjson.String:
			if strings.TrimSpace(item.Str) != "" {
				q.Questions = append(q.Questions, Question{Question: item.Str})
			}
		case item.IsObject():
			question := Question{
				Question: text(item, "question"),
				Answer:   text(item, "answer"),
				Tips:     text(item, "tips"),
			}
			if strings.TrimSpace(question.Question) != "" {
				q.Questions = append(q.Questions, question)
			}
		}
	}
	return q
}

// ClampScore bounds a score to 0-100; NaN becomes 0.
func ClampScore(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// first returns the first existing, non-null key.
func first(r gjson.Result, keys ...string) gjson.Result {
	if !r.IsObject() {
		return gjson.Result{}
	}
	for _, k := range keys {
		if v := r.Get(gjson.Escape(k)); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func text(r gjson.Result, keys ...string) string {
	v := first(r, keys...)
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number, gjson.True, gjson.False:
		return v.String()
	default:
		return ""
	}
}

// list accepts an array of scalars or a single narrative string.
func list(r gjson.Result, keys ...string) StringList {
	out := StringList{}
	v := first(r, keys...)
	switch {
	case v.IsArray():
		for _, e := range v.Array() {
			switch e.Type {
			case gjson.String:
				out = append(out, e.Str)
			case gjson.Number:
				out = append(out, e.String())
			}
		}
	case v.Type == gjson.String:
		if strings.TrimSpace(v.Str) != "" {
			out = append(out, v.Str)
		}
	}
	return out
}

func number(v gjson.Result) float64 {
	switch v.Type {
	case gjson.Number:
		return v.Num
	case gjson.String:
		return v.Float()
	default:
		return 0
	}
}
