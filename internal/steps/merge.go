package steps

import "strings"

// MergeNoDup appends the items of incoming that are not already present in
// current, comparing case-insensitively after trimming whitespace.
//
// An empty current yields incoming verbatim, duplicates included. Otherwise
// current is preserved in order, blank items are dropped from the appended
// tail, and repeated items within incoming are kept only once.
func MergeNoDup(current, incoming []string) []string {
	if len(current) == 0 {
		if incoming == nil {
			return []string{}
		}
		return append([]string(nil), incoming...)
	}

	result := append(make([]string, 0, len(current)+len(incoming)), current...)
	seen := make(map[string]struct{}, len(current)+len(incoming))
	for _, item := range current {
		seen[normalizeKey(item)] = struct{}{}
	}

	for _, item := range incoming {
		key := normalizeKey(item)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, item)
	}
	return result
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func mergeList(current, incoming StringList) StringList {
	return StringList(MergeNoDup(current, incoming))
}

// mergeBy applies the MergeNoDup rules to structured items identified by key.
func mergeBy[T any](current, incoming []T, key func(T) string) []T {
	if len(current) == 0 {
		return append([]T{}, incoming...)
	}
	result := append(make([]T, 0, len(current)+len(incoming)), current...)
	seen := make(map[string]struct{}, len(current))
	for _, item := range current {
		seen[normalizeKey(key(item))] = struct{}{}
	}
	for _, item := range incoming {
		k := normalizeKey(key(item))
		if _, dup := seen[k]; k == "" || dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, item)
	}
	return result
}

func pick(current, incoming string) string {
	if strings.TrimSpace(incoming) != "" {
		return incoming
	}
	return current
}

// Merge combines two decoded values of the same step: list fields go through
// MergeNoDup, scalars take the incoming value when it is non-blank. Mismatched
// steps return incoming unchanged.
func Merge(current, incoming Data) Data {
	switch cur := current.(type) {
	case JobAnalysis:
		in, ok := incoming.(JobAnalysis)
		if !ok {
			return incoming
		}
		return JobAnalysis{
			JobTitle:            pick(cur.JobTitle, in.JobTitle),
			CompanyName:         pick(cur.CompanyName, in.CompanyName),
			Location:            pick(cur.Location, in.Location),
			SalaryRange:         pick(cur.SalaryRange, in.SalaryRange),
			CompanyDescription:  pick(cur.CompanyDescription, in.CompanyDescription),
			KeyRequirements:     mergeList(cur.KeyRequirements, in.KeyRequirements),
			KeyResponsibilities: mergeList(cur.KeyResponsibilities, in.KeyResponsibilities),
			CompanySummary:      pick(cur.CompanySummary, in.CompanySummary),
			JobDescription:      pick(cur.JobDescription, in.JobDescription),
		}
	case CompanyIntel:
		in, ok := incoming.(CompanyIntel)
		if !ok {
			return incoming
		}
		return CompanyIntel{
			KeyPartners:           mergeList(cur.KeyPartners, in.KeyPartners),
			KeyActivities:         mergeList(cur.KeyActivities, in.KeyActivities),
			KeyResources:          mergeList(cur.KeyResources, in.KeyResources),
			ValuePropositions:     mergeList(cur.ValuePropositions, in.ValuePropositions),
			CustomerRelationships: mergeList(cur.CustomerRelationships, in.CustomerRelationships),
			Channels:              mergeList(cur.Channels, in.Channels),
			CustomerSegments:      mergeList(cur.CustomerSegments, in.CustomerSegments),
			CostStructure:         mergeList(cur.CostStructure, in.CostStructure),
			RevenueStreams:        mergeList(cur.RevenueStreams, in.RevenueStreams),
			TopNewsItems:          mergeBy(cur.TopNewsItems, in.TopNewsItems, func(n NewsItem) string { return n.Title }),
			CompanyTimeline:       mergeList(cur.CompanyTimeline, in.CompanyTimeline),
		}
	case SWOT:
		in, ok := incoming.(SWOT)
		if !ok {
			return incoming
		}
		return SWOT{
			Strengths:     mergeList(cur.Strengths, in.Strengths),
			Weaknesses:    mergeList(cur.Weaknesses, in.Weaknesses),
			Opportunities: mergeList(cur.Opportunities, in.Opportunities),
			Threats:       mergeList(cur.Threats, in.Threats),
		}
	case ProfileMatch:
		in, ok := incoming.(ProfileMatch)
		if !ok {
			return incoming
		}
		score := cur.MatchScore
		if in.MatchScore > 0 {
			score = in.MatchScore
		}
		return ProfileMatch{
			MatchScore: score,
			Items:      mergeBy(cur.Items, in.Items, func(m MatchItem) string { return m.Requirement }),
		}
	case Why:
		in, ok := incoming.(Why)
		if !ok {
			return incoming
		}
		return Why{
			WhyCompany: mergeList(cur.WhyCompany, in.WhyCompany),
			WhyRole:    mergeList(cur.WhyRole, in.WhyRole),
			WhyNow:     mergeList(cur.WhyNow, in.WhyNow),
			WhyYou:     mergeList(cur.WhyYou, in.WhyYou),
		}
	case Questions:
		in, ok := incoming.(Questions)
		if !ok {
			return incoming
		}
		return Questions{
			Questions:      mergeBy(cur.Questions, in.Questions, func(q Question) string { return q.Question }),
			QuestionsToAsk: mergeList(cur.QuestionsToAsk, in.QuestionsToAsk),
		}
	default:
		return incoming
	}
}
