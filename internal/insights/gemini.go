package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/models"
	"google.golang.org/genai"
)

const systemInstruction = `You are an autonomous feedback-analysis agent for mobile news applications.
Input: recent user reviews from the Apple App Store and Google Play Store, plus one representative review per detected topic cluster.
Return a JSON object with:
- "summary": a concise management summary of current sentiment and technical state, in German
- "topics": short labels for the current issues and themes
- "buzzwords": the most frequent problem terms with occurrence counts
- "topReviews" / "bottomReviews": up to 3 highlight reviews each, referenced by their "fingerprint" field copied verbatim from the input
Keep the summary professional and actionable.`

const requestTimeout = 60 * time.Second

// GeminiClient talks to the Gemini API for both review-text embeddings and
// the structured feedback analysis.
type GeminiClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
}

// Ensure GeminiClient satisfies the engine's embedding contract
var _ Embedder = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini client. The caller decides what to do
// when no API key is configured; this constructor requires one.
func NewGeminiClient(ctx context.Context, apiKey, model, embeddingModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
	}, nil
}

// Embed maps each text to a fixed-size vector via the embedding model.
func (g *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for i, embedding := range result.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
		v := make([]float64, len(embedding.Values))
		for j, value := range embedding.Values {
			v[j] = float64(value)
		}
		vectors[i] = v
	}

	return vectors, nil
}

// promptReview is the slim review shape sent to the model. The fingerprint
// rides along so highlight reviews can be matched back exactly instead of
// by text prefix.
type promptReview struct {
	Fingerprint string `json:"fingerprint"`
	App         string `json:"app"`
	Store       string `json:"store"`
	Rating      int    `json:"rating"`
	Date        string `json:"date"`
	Text        string `json:"text"`
}

// geminiAnalysis is the wire shape of the model's answer. Unknown fields are
// ignored, missing fields default; validation happens after decoding.
type geminiAnalysis struct {
	Summary       string            `json:"summary"`
	Topics        []string          `json:"topics"`
	Buzzwords     []models.Buzzword `json:"buzzwords"`
	TopReviews    []geminiHighlight `json:"topReviews"`
	BottomReviews []geminiHighlight `json:"bottomReviews"`
}

type geminiHighlight struct {
	Fingerprint string `json:"fingerprint"`
	App         string `json:"app"`
	Store       string `json:"store"`
	Rating      int    `json:"rating"`
	Text        string `json:"text"`
}

// Analyze sends the cluster representatives and a bounded recent sample to
// the model and decodes the structured result. Any transport, schema or
// parse problem is returned as an error; the resolver treats every error
// here as a signal to fall back.
func (g *GeminiClient) Analyze(ctx context.Context, representatives, sample []models.Review) (*models.Insights, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	prompt, err := g.buildPrompt(representatives, sample)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("analysis response is empty")
	}

	raw := result.Candidates[0].Content.Parts[0].Text
	analysis, err := decodeAnalysis(raw)
	if err != nil {
		return nil, err
	}

	insights := &models.Insights{
		Summary:   analysis.Summary,
		Topics:    analysis.Topics,
		Buzzwords: analysis.Buzzwords,
		Date:      time.Now().Format("2006-01-02"),
		Origin:    models.InsightOriginRemote,
	}
	for _, h := range analysis.TopReviews {
		insights.TopReviews = append(insights.TopReviews, highlightToReview(h))
	}
	for _, h := range analysis.BottomReviews {
		insights.BottomReviews = append(insights.BottomReviews, highlightToReview(h))
	}

	return insights, nil
}

func (g *GeminiClient) buildPrompt(representatives, sample []models.Review) (string, error) {
	var b strings.Builder
	b.WriteString(systemInstruction)

	if len(representatives) > 0 {
		b.WriteString("\n\nTOPIC CLUSTER REPRESENTATIVES:\n")
		data, err := json.Marshal(toPromptReviews(representatives))
		if err != nil {
			return "", fmt.Errorf("failed to marshal representatives: %w", err)
		}
		b.Write(data)
	}

	b.WriteString("\n\nANALYZE THESE REVIEWS:\n")
	data, err := json.Marshal(toPromptReviews(sample))
	if err != nil {
		return "", fmt.Errorf("failed to marshal review sample: %w", err)
	}
	b.Write(data)

	return b.String(), nil
}

func toPromptReviews(reviews []models.Review) []promptReview {
	out := make([]promptReview, len(reviews))
	for i, r := range reviews {
		out[i] = promptReview{
			Fingerprint: r.Fingerprint,
			App:         r.App,
			Store:       r.Store,
			Rating:      r.Rating,
			Date:        r.Date,
			Text:        r.Text,
		}
	}
	return out
}

// decodeAnalysis strips common code-fence markup and decodes the model
// output into a well-typed result. A response that parses but carries
// neither a summary nor topics is treated as malformed.
func decodeAnalysis(raw string) (*geminiAnalysis, error) {
	cleaned := stripCodeFences(raw)

	var analysis geminiAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("analysis response is not valid JSON: %w", err)
	}

	if analysis.Summary == "" && len(analysis.Topics) == 0 {
		return nil, fmt.Errorf("analysis response carries neither summary nor topics")
	}

	return &analysis, nil
}

func stripCodeFences(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}

func highlightToReview(h geminiHighlight) models.Review {
	return models.Review{
		Fingerprint: h.Fingerprint,
		App:         h.App,
		Store:       h.Store,
		Rating:      h.Rating,
		Text:        h.Text,
	}
}

func analysisSchema() *genai.Schema {
	highlight := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"fingerprint": {Type: genai.TypeString, Description: "Fingerprint copied verbatim from the input review"},
			"app":         {Type: genai.TypeString},
			"store":       {Type: genai.TypeString},
			"rating":      {Type: genai.TypeInteger},
			"text":        {Type: genai.TypeString},
		},
		Required: []string{"fingerprint"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {Type: genai.TypeString, Description: "Management summary in German"},
			"topics": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"buzzwords": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"term":  {Type: genai.TypeString},
						"count": {Type: genai.TypeInteger},
					},
					Required: []string{"term", "count"},
				},
			},
			"topReviews":    {Type: genai.TypeArray, Items: highlight},
			"bottomReviews": {Type: genai.TypeArray, Items: highlight},
		},
		Required: []string{"summary", "topics"},
	}
}
