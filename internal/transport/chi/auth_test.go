package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{"no keys pass through", nil, "/recommend", "", http.StatusOK},
		{"empty string keys pass through", []string{"", ""}, "/recommend", "", http.StatusOK},
		{"missing header", []string{"secret"}, "/recommend", "", http.StatusUnauthorized},
		{"basic scheme", []string{"secret"}, "/recommend", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong key", []string{"secret"}, "/recommend", "Bearer wrong-key", http.StatusUnauthorized},
		{"valid key", []string{"secret"}, "/recommend", "Bearer secret", http.StatusOK},
		{"second of many keys", []string{"key1", "key2"}, "/recommend", "Bearer key2", http.StatusOK},
		{"root exempt", []string{"secret"}, "/", "", http.StatusOK},
		{"health exempt", []string{"secret"}, "/health", "", http.StatusOK},
		{"metrics exempt", []string{"secret"}, "/metrics", "", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := BearerAuthMiddleware(tc.keys)(okHandler())

			req := httptest.NewRequest(http.MethodPost, tc.path, http.NoBody)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Errorf("got %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestAuthMiddleware_ErrorBody(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"secret"})(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/recommend", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if body.Detail != "missing authorization header" {
		t.Errorf("detail: got %q", body.Detail)
	}
}
