package plantid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "  "}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials got %v", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Endpoint() != DefaultBaseURL+"/identify" {
		t.Fatalf("unexpected endpoint %q", client.Endpoint())
	}
	if client.Language() != "en" {
		t.Fatalf("unexpected language %q", client.Language())
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Fatalf("unexpected timeout %v", client.httpClient.Timeout)
	}
	if len(client.Modifiers()) != 2 || len(client.Details()) != 5 {
		t.Fatalf("unexpected modifiers %v details %v", client.Modifiers(), client.Details())
	}
}

func TestIdentifySendsPayload(t *testing.T) {
	var got identifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST got %s", r.Method)
		}
		if r.URL.Path != "/v2/identify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 42,
			"is_plant": true,
			"suggestions": [
				{
					"plant_name": "Ficus lyrata",
					"probability": 0.91,
					"plant_details": {
						"common_names": ["fiddle-leaf fig"],
						"url": "https://en.wikipedia.org/wiki/Ficus_lyrata",
						"wiki_description": {"value": "A species of flowering plant."},
						"taxonomy": {"kingdom": "Plantae", "genus": "Ficus"}
					}
				},
				{"plant_name": "Ficus elastica"}
			]
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "secret", BaseURL: srv.URL + "/v2/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Identify(context.Background(), "aGVsbG8=")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}

	if got.APIKey != "secret" {
		t.Fatalf("expected api key in body got %q", got.APIKey)
	}
	if len(got.Images) != 1 || got.Images[0] != "aGVsbG8=" {
		t.Fatalf("unexpected images %v", got.Images)
	}
	if got.PlantLanguage != "en" {
		t.Fatalf("unexpected language %q", got.PlantLanguage)
	}
	if len(got.Modifiers) != 2 || got.Modifiers[0] != "crops_fast" || got.Modifiers[1] != "similar_images" {
		t.Fatalf("unexpected modifiers %v", got.Modifiers)
	}
	if len(got.PlantDetails) != 5 {
		t.Fatalf("unexpected details %v", got.PlantDetails)
	}

	if len(resp.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions got %d", len(resp.Suggestions))
	}
	first := resp.Suggestions[0]
	if first.Probability == nil || *first.Probability != 0.91 {
		t.Fatalf("unexpected probability %v", first.Probability)
	}
	if first.PlantDetails == nil || first.PlantDetails.Taxonomy == nil || first.PlantDetails.Taxonomy.Genus != "Ficus" {
		t.Fatalf("taxonomy not decoded: %+v", first.PlantDetails)
	}
	second := resp.Suggestions[1]
	if second.Probability != nil || second.PlantDetails != nil {
		t.Fatalf("expected absent fields on second suggestion: %+v", second)
	}
}

func TestIdentifyStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "bad", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Identify(context.Background(), "aGVsbG8=")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", statusErr.StatusCode)
	}
	if statusErr.Body != "invalid api key" {
		t.Fatalf("unexpected body %q", statusErr.Body)
	}
}

func TestIdentifyRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Identify(ctx, "aGVsbG8="); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded got %v", err)
	}
}

func TestIdentifyRejectsEmptyImage(t *testing.T) {
	client, err := NewClient(Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Identify(context.Background(), ""); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage got %v", err)
	}
}
