package booknetic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"booksync-backend/lib/normalize"
	"booksync-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// APIAdapter pulls appointments through the documented REST endpoint.
// It only covers appointments, so it sits last in the chain: a thin
// but dependable fallback when the export surface breaks.
type APIAdapter struct {
	BaseUrl string
	Token   string

	http *resty.Client
}

func NewAPIAdapter(baseUrl, token string) *APIAdapter {
	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(time.Second * 60)
	client.SetAuthToken(token)
	telemetry.InstrumentResty(client, "services/booknetic/api")

	return &APIAdapter{
		BaseUrl: baseUrl,
		Token:   token,
		http:    client,
	}
}

func (a *APIAdapter) Name() string { return "api" }

func (a *APIAdapter) Fetch(ctx context.Context) (Batch, error) {
	if a.BaseUrl == "" || a.Token == "" {
		return Batch{}, fmt.Errorf("api base url or token not configured")
	}

	res, err := a.http.R().
		SetContext(ctx).
		Get("/wp-json/booknetic/v1/appointments")
	if err != nil {
		return Batch{}, err
	}
	if res.StatusCode() != 200 {
		return Batch{}, fmt.Errorf("appointments api: unexpected status %d", res.StatusCode())
	}

	items, err := decodeItems(res.Body())
	if err != nil {
		return Batch{}, fmt.Errorf("appointments api: %w", err)
	}

	var batch Batch
	for _, item := range items {
		row := make(normalize.Row, len(item))
		for k, v := range item {
			switch v := v.(type) {
			case nil:
				row[k] = ""
			case string:
				row[k] = v
			case float64:
				row[k] = trimFloat(v)
			case bool:
				row[k] = fmt.Sprintf("%t", v)
			default:
				// nested structures survive inside raw via the
				// normalizer, stringified
				encoded, _ := json.Marshal(v)
				row[k] = string(encoded)
			}
		}
		batch.Appointments = append(batch.Appointments, row)
	}
	return batch, nil
}

// decodeItems accepts both response shapes the endpoint has shipped:
// a bare list, or an object with a "data" list.
func decodeItems(body []byte) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Data, nil
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}
