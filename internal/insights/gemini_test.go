package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnalysis_PlainJSON(t *testing.T) {
	raw := `{"summary":"Stimmung stabil.","topics":["Werbung","Abstürze"],"buzzwords":[{"term":"stürzt ab","count":3}]}`

	analysis, err := decodeAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Stimmung stabil.", analysis.Summary)
	assert.Equal(t, []string{"Werbung", "Abstürze"}, analysis.Topics)
	require.Len(t, analysis.Buzzwords, 1)
	assert.Equal(t, 3, analysis.Buzzwords[0].Count)
}

func TestDecodeAnalysis_StripsCodeFences(t *testing.T) {
	raw := "```json\n{\"summary\":\"Kurz.\",\"topics\":[\"ePaper\"]}\n```"

	analysis, err := decodeAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Kurz.", analysis.Summary)
}

func TestDecodeAnalysis_RejectsMalformedAnswers(t *testing.T) {
	_, err := decodeAnalysis("not json at all")
	assert.Error(t, err)

	// Parses, but carries neither summary nor topics.
	_, err = decodeAnalysis(`{"buzzwords":[]}`)
	assert.Error(t, err)
}

func TestDecodeAnalysis_HighlightsKeepFingerprint(t *testing.T) {
	raw := `{"summary":"Ok.","topics":["Login"],"topReviews":[{"fingerprint":"abc123","rating":5,"text":"Super"}]}`

	analysis, err := decodeAnalysis(raw)
	require.NoError(t, err)
	require.Len(t, analysis.TopReviews, 1)
	assert.Equal(t, "abc123", analysis.TopReviews[0].Fingerprint)

	review := highlightToReview(analysis.TopReviews[0])
	assert.Equal(t, "abc123", review.Fingerprint)
	assert.Equal(t, 5, review.Rating)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no fences", input: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", input: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounding whitespace", input: "  {\"a\":1}\n", want: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.input))
		})
	}
}

func TestAnalysisSchema_RequiredFields(t *testing.T) {
	schema := analysisSchema()

	assert.Equal(t, []string{"summary", "topics"}, schema.Required)

	highlight := schema.Properties["topReviews"].Items
	require.NotNil(t, highlight)
	assert.Equal(t, []string{"fingerprint"}, highlight.Required)
}
