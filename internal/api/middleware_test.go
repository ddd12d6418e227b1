package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testRouter(apiKey string) http.Handler {
	h := NewHandler(nil, nil) // /health and /v1/styles never touch db or queue
	return NewRouter(h, RouterConfig{BackendAPIKey: apiKey})
}

func TestHealthIsPublic(t *testing.T) {
	srv := httptest.NewServer(testRouter("secret"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv := httptest.NewServer(testRouter("secret"))
	defer srv.Close()

	cases := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusForbidden},
		{"x-api-key header", "X-API-Key", "secret", http.StatusOK},
		{"bearer token", "Authorization", "Bearer secret", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/styles", nil)
			if err != nil {
				t.Fatal(err)
			}
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
		})
	}
}

func TestListStylesPayload(t *testing.T) {
	srv := httptest.NewServer(testRouter(""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/styles")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Styles  []string `json:"styles"`
		Default string   `json:"default"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}

	if body.Default != "romantic" {
		t.Errorf("default style = %q", body.Default)
	}
	if len(body.Styles) == 0 {
		t.Error("no styles listed")
	}
}
