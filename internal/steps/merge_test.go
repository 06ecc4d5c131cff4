package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeNoDup(t *testing.T) {
	tests := []struct {
		name     string
		current  []string
		incoming []string
		want     []string
	}{
		{
			name:     "case-insensitive dedup against current and within incoming",
			current:  []string{"React", "node.js"},
			incoming: []string{"react", "SQL", "sql"},
			want:     []string{"React", "node.js", "SQL"},
		},
		{
			name:     "empty current returns incoming verbatim",
			current:  nil,
			incoming: []string{"Go", "go", " "},
			want:     []string{"Go", "go", " "},
		},
		{
			name:     "both empty",
			current:  nil,
			incoming: nil,
			want:     []string{},
		},
		{
			name:     "blank incoming items are dropped",
			current:  []string{"Kafka"},
			incoming: []string{"", "   ", "Redis"},
			want:     []string{"Kafka", "Redis"},
		},
		{
			name:     "whitespace differences count as duplicates",
			current:  []string{"Product strategy"},
			incoming: []string{"  product STRATEGY ", "Roadmaps"},
			want:     []string{"Product strategy", "Roadmaps"},
		},
		{
			name:     "current duplicates are preserved",
			current:  []string{"a", "A"},
			incoming: []string{"a", "b"},
			want:     []string{"a", "A", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeNoDup(tt.current, tt.incoming))
		})
	}
}

func TestMergeNoDupPreservesCurrentPrefix(t *testing.T) {
	inputs := [][2][]string{
		{{"x", "y", "z"}, {"Z", "w"}},
		{{"only"}, nil},
		{{" padded "}, {"padded", "PADDED", "new"}},
		{{"1", "2"}, {"3", "2", "1", "3"}},
	}
	for _, in := range inputs {
		current, incoming := in[0], in[1]
		got := MergeNoDup(current, incoming)
		assert.Equal(t, current, got[:len(current)])
	}
}

func TestMergeNoDupDoesNotAliasCurrent(t *testing.T) {
	current := make([]string, 1, 10)
	current[0] = "a"
	got := MergeNoDup(current, []string{"b"})
	got[0] = "changed"
	assert.Equal(t, "a", current[0])
}

func TestMergeSWOT(t *testing.T) {
	cur := SWOT{Strengths: StringList{"Leadership"}, Threats: StringList{}}
	in := SWOT{Strengths: StringList{"leadership", "Analytics"}, Threats: StringList{"Competition"}}

	got := Merge(cur, in).(SWOT)
	assert.Equal(t, StringList{"Leadership", "Analytics"}, got.Strengths)
	assert.Equal(t, StringList{"Competition"}, got.Threats)
}

func TestMergeJobAnalysisScalars(t *testing.T) {
	cur := JobAnalysis{JobTitle: "PM", CompanyName: "Acme", KeyRequirements: StringList{"SQL"}}
	in := JobAnalysis{JobTitle: "Senior PM", CompanyName: " ", KeyRequirements: StringList{"sql", "Roadmaps"}}

	got := Merge(cur, in).(JobAnalysis)
	assert.Equal(t, "Senior PM", got.JobTitle)
	assert.Equal(t, "Acme", got.CompanyName)
	assert.Equal(t, StringList{"SQL", "Roadmaps"}, got.KeyRequirements)
}

func TestMergeStructuredItems(t *testing.T) {
	cur := Questions{Questions: []Question{{Question: "Tell me about yourself"}}}
	in := Questions{
		Questions:      []Question{{Question: "tell me about yourself", Answer: "dup"}, {Question: "Why us?"}},
		QuestionsToAsk: StringList{"What does success look like?"},
	}

	got := Merge(cur, in).(Questions)
	assert.Len(t, got.Questions, 2)
	assert.Empty(t, got.Questions[0].Answer)
	assert.Equal(t, "Why us?", got.Questions[1].Question)
	assert.Equal(t, StringList{"What does success look like?"}, got.QuestionsToAsk)
}

func TestMergeMismatchedSteps(t *testing.T) {
	in := Why{WhyNow: StringList{"timing"}}
	assert.Equal(t, in, Merge(SWOT{}, in))
}
