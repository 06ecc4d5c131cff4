package steps

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedSteps(t *testing.T) {
	valid := map[int]string{
		1: `{"job_title": "PM", "company_name": "Acme", "key_requirements": ["SQL"]}`,
		2: `{"channels": ["Web"], "topNewsItems": [{"title": "Launch", "url": "https://x"}], "companyTimeline": ["2010 – Founded"]}`,
		3: `{"strengths": ["Brand"], "threats": []}`,
		4: `{"matchScore": 72, "items": [{"requirement": "SQL", "evidence": "Dashboards", "score": 80}]}`,
		5: `{"why_company": "Mission", "why_you": ["Domain expertise"]}`,
		6: `{"questions": [{"question": "Why us?"}], "questions_to_ask": ["Team?"]}`,
	}
	for n, doc := range valid {
		assert.NoError(t, Validate(n, []byte(doc)), "step %d", n)
	}
}

func TestValidateRejectsTopLevelArray(t *testing.T) {
	err := Validate(3, []byte(`["strengths"]`))

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "data", vErr.Fields[0].Field)
}

func TestValidateRejectsWrongTypes(t *testing.T) {
	err := Validate(1, []byte(`{"key_requirements": "should be a list"}`))

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 1, vErr.Step)
	assert.NotEmpty(t, vErr.Fields)
}

func TestValidateRejectsOutOfRangeScore(t *testing.T) {
	assert.Error(t, Validate(4, []byte(`{"matchScore": 140}`)))
}

func TestValidateRejectsUnknownStep(t *testing.T) {
	assert.Error(t, Validate(0, []byte(`{}`)))
	assert.Error(t, Validate(7, []byte(`{}`)))
}

func TestCanonicalizeFillsDefaultsAndKeepsUnknownKeys(t *testing.T) {
	out, err := Canonicalize(3, []byte(`{"strengths": ["Brand"], "notes": "from the UI"}`))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, []any{"Brand"}, got["strengths"])
	assert.Equal(t, []any{}, got["weaknesses"])
	assert.Equal(t, "from the UI", got["notes"])
}
