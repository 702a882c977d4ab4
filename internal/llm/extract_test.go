package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindesk/pkg/models"
)

func TestExtractJSONEmbeddedInNoise(t *testing.T) {
	payload, ok := ExtractJSON(`noise {"title":"T","description":"D"} trailing`)

	require.True(t, ok)
	assert.Equal(t, "T", payload.Title)
	assert.Equal(t, "D", payload.Description)
}

func TestExtractJSONNestedBraces(t *testing.T) {
	output := `Here is the result:
{"title":"Fix config {merge} bug","description":"The {nested} placeholder breaks parsing","priority":"high","complexity":2,"components":["config"]}
Done.`

	payload, ok := ExtractJSON(output)

	require.True(t, ok)
	assert.Equal(t, "Fix config {merge} bug", payload.Title)
	assert.Equal(t, "high", payload.Priority)
	assert.Equal(t, float64(2), payload.Complexity)
	assert.Equal(t, []string{"config"}, payload.Components)
}

func TestExtractJSONBraceInsideString(t *testing.T) {
	payload, ok := ExtractJSON(`{"title":"T","description":"body has a } brace and a \" quote"}`)

	require.True(t, ok)
	assert.Equal(t, `body has a } brace and a " quote`, payload.Description)
}

func TestExtractJSONMultiline(t *testing.T) {
	output := "Let me analyze this ticket.\n{\n  \"title\": \"Upload timeout\",\n  \"description\": \"Large uploads hit the proxy limit\"\n}\nThat is my analysis."

	payload, ok := ExtractJSON(output)

	require.True(t, ok)
	assert.Equal(t, "Upload timeout", payload.Title)
}

func TestExtractJSONRepairsTruncatedObject(t *testing.T) {
	// A model that ran out of tokens mid-object still yields a usable
	// title via the repair pass.
	payload, ok := ExtractJSON(`{"title":"Half an answer","description":"cut off`)

	require.True(t, ok)
	assert.Equal(t, "Half an answer", payload.Title)
}

func TestExtractJSONNothingParseable(t *testing.T) {
	_, ok := ExtractJSON("The ticket describes a login failure. No structured data here.")
	assert.False(t, ok)

	_, ok = ExtractJSON("")
	assert.False(t, ok)
}

func TestToAnalysisDefaults(t *testing.T) {
	thread := &models.Thread{ID: "1", Subject: "Original subject"}

	analysis := (&AnalysisPayload{}).ToAnalysis(thread)

	assert.Equal(t, "Original subject", analysis.Title)
	assert.Equal(t, "No detailed analysis provided", analysis.Description)
	assert.Equal(t, models.PriorityNormal, analysis.Priority)
	assert.Equal(t, 3, analysis.EstimatedComplexity)
	assert.Equal(t, []string{"General"}, analysis.Components)
	assert.Equal(t, "Original subject", analysis.OriginalSubject)
	assert.Same(t, thread, analysis.Thread)
}

func TestToAnalysisClampsComplexity(t *testing.T) {
	thread := &models.Thread{Subject: "S"}

	assert.Equal(t, 3, (&AnalysisPayload{Title: "T", Complexity: 9}).ToAnalysis(thread).EstimatedComplexity)
	assert.Equal(t, 3, (&AnalysisPayload{Title: "T", Complexity: -1}).ToAnalysis(thread).EstimatedComplexity)
	assert.Equal(t, 5, (&AnalysisPayload{Title: "T", Complexity: 5}).ToAnalysis(thread).EstimatedComplexity)
}

func TestToAnalysisUnknownPriorityDefaults(t *testing.T) {
	thread := &models.Thread{Subject: "S"}

	analysis := (&AnalysisPayload{Title: "T", Priority: "sev1"}).ToAnalysis(thread)
	assert.Equal(t, models.PriorityNormal, analysis.Priority)
}
