package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/feedwatch/appfeedback-bot/internal/config"
	"github.com/feedwatch/appfeedback-bot/internal/history"
	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const playBatchExecuteURL = "https://play.google.com/_/PlayStoreUi/data/batchexecute"

// sort mode 2 = newest first, matching the ingestion model of overlapping
// recent windows.
const playSortNewest = 2

// PlayStoreSource reads reviews through the Play Store's internal
// batchexecute endpoint. There is no public API; the endpoint answers with
// an anti-XSSI prefix followed by nested JSON-in-JSON arrays that have to
// be unpacked positionally.
type PlayStoreSource struct {
	client *resty.Client
}

// NewPlayStoreSource creates a new Play Store source
func NewPlayStoreSource() *PlayStoreSource {
	return &PlayStoreSource{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "AppFeedback-Bot/1.0").
			SetHeader("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8"),
	}
}

func (p *PlayStoreSource) GetName() string {
	return "android"
}

func (p *PlayStoreSource) IsEnabled(app config.AppTarget) bool {
	return app.PlayID != ""
}

// FetchReviews fetches the newest count reviews for the app's package.
func (p *PlayStoreSource) FetchReviews(ctx context.Context, app config.AppTarget, count int) ([]models.Review, error) {
	body := p.buildRequestBody(app, count)

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"hl": app.Country,
			"gl": strings.ToUpper(app.Country),
		}).
		SetBody(body).
		Post(playBatchExecuteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Play Store reviews for %s: %w", app.Name, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("Play Store returned status %d for %s", resp.StatusCode(), app.Name)
	}

	rawReviews, err := p.decodeEnvelope(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to decode Play Store response for %s: %w", app.Name, err)
	}

	var reviews []models.Review
	for _, raw := range rawReviews {
		review, err := p.normalize(raw, app)
		if err != nil {
			logrus.Debugf("Skipping Play Store entry for %s: %v", app.Name, err)
			continue
		}
		reviews = append(reviews, review)
		if len(reviews) >= count {
			break
		}
	}

	return reviews, nil
}

func (p *PlayStoreSource) buildRequestBody(app config.AppTarget, count int) string {
	// The UsvDTd RPC carries its own JSON-encoded argument string.
	args := fmt.Sprintf(`[null,null,[2,%d,[%d,null,null],null,[]],[%q,7]]`, playSortNewest, count, app.PlayID)
	envelope := fmt.Sprintf(`[[["UsvDTd",%s,null,"generic"]]]`, mustMarshalString(args))
	return "f.req=" + url.QueryEscape(envelope)
}

// decodeEnvelope peels the three layers of the batchexecute answer: the
// anti-XSSI prefix, the RPC envelope, and the JSON-encoded payload string
// whose first element is the review list.
func (p *PlayStoreSource) decodeEnvelope(body []byte) ([][]interface{}, error) {
	text := strings.TrimPrefix(string(body), ")]}'")
	text = strings.TrimSpace(text)

	// The envelope may be preceded by chunk-length lines; find the array.
	if idx := strings.Index(text, "[["); idx > 0 {
		text = text[idx:]
	}

	var envelope []interface{}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, fmt.Errorf("envelope is not valid JSON: %w", err)
	}

	frame, ok := firstSlice(envelope)
	if !ok || len(frame) < 3 {
		return nil, fmt.Errorf("envelope frame is missing")
	}

	payloadText, ok := frame[2].(string)
	if !ok {
		return nil, fmt.Errorf("envelope carries no payload string")
	}

	var payload []interface{}
	if err := json.Unmarshal([]byte(payloadText), &payload); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	rawList, ok := payload[0].([]interface{})
	if !ok {
		return nil, nil
	}

	var reviews [][]interface{}
	for _, item := range rawList {
		if entry, ok := item.([]interface{}); ok {
			reviews = append(reviews, entry)
		}
	}
	return reviews, nil
}

// normalize unpacks one positional review entry. Known indices: 1=author
// wrapper, 2=star rating, 4=text, 5=[epoch seconds, nanos], 7=vendor reply
// wrapper, 10=app version.
func (p *PlayStoreSource) normalize(entry []interface{}, app config.AppTarget) (models.Review, error) {
	rating, ok := numberAt(entry, 2)
	if !ok {
		return models.Review{}, fmt.Errorf("entry has no rating")
	}

	text, _ := stringAt(entry, 4)

	seconds, ok := nestedNumber(entry, 5, 0)
	if !ok {
		return models.Review{}, fmt.Errorf("entry has no timestamp")
	}

	review := models.Review{
		Store:  "android",
		App:    app.Name,
		Rating: int(rating),
		Text:   text,
		Date:   time.Unix(int64(seconds), 0).UTC().Format("2006-01-02"),
	}

	if author, ok := nestedString(entry, 1, 0); ok {
		review.Author = author
	}
	if version, ok := stringAt(entry, 10); ok {
		review.Version = version
	}
	if reply, ok := nestedString(entry, 7, 1); ok && reply != "" {
		review.Responded = true
	}

	return history.Normalize(review)
}

func mustMarshalString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func firstSlice(envelope []interface{}) ([]interface{}, bool) {
	for _, item := range envelope {
		if frame, ok := item.([]interface{}); ok {
			return frame, true
		}
	}
	return nil, false
}

func stringAt(entry []interface{}, index int) (string, bool) {
	if index >= len(entry) {
		return "", false
	}
	s, ok := entry[index].(string)
	return s, ok
}

func numberAt(entry []interface{}, index int) (float64, bool) {
	if index >= len(entry) {
		return 0, false
	}
	n, ok := entry[index].(float64)
	return n, ok
}

func nestedString(entry []interface{}, index, sub int) (string, bool) {
	if index >= len(entry) {
		return "", false
	}
	inner, ok := entry[index].([]interface{})
	if !ok {
		return "", false
	}
	return stringAt(inner, sub)
}

func nestedNumber(entry []interface{}, index, sub int) (float64, bool) {
	if index >= len(entry) {
		return 0, false
	}
	inner, ok := entry[index].([]interface{})
	if !ok {
		return 0, false
	}
	return numberAt(inner, sub)
}
