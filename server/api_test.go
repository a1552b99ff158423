package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/tforest/config"
	"github.com/wyfcoding/tforest/dataset"
	"github.com/wyfcoding/tforest/forest"
	"github.com/wyfcoding/tforest/metrics"
	"github.com/wyfcoding/tforest/middleware"
	"github.com/wyfcoding/tforest/response"
	"github.com/wyfcoding/tforest/xerrors"
)

const mushroomCSV = `odor,spore,class
n,k,e
n,n,e
a,k,e
l,n,e
f,k,p
f,w,p
c,k,p
p,n,p
n,w,e
f,n,p
`

func init() {
	gin.SetMode(gin.TestMode)
}

func trainedModel(t *testing.T) *Model {
	t.Helper()
	tbl, err := dataset.ReadCSV(strings.NewReader(mushroomCSV), true)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	enc, err := dataset.NewEncoder(tbl, "class")
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	encoded, err := enc.Encode(tbl)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	cfg := forest.DefaultConfig()
	cfg.NumTrees = 5
	cfg.FeatureRatio = 1
	cfg.Seed = 11
	f, err := forest.New[string](cfg)
	if err != nil {
		t.Fatalf("forest.New: %v", err)
	}
	if err := f.Build(context.Background(), encoded.Rows, encoded.Labels); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return &Model{Forest: f, Encoder: enc}
}

func newTestRouter(t *testing.T, api *API, cfg config.ServerConfig) *gin.Engine {
	t.Helper()
	return NewRouter(cfg, "tforest-test", api, nil, metrics.NewMetrics("tforest-test"))
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, response.Body) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out response.Body
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func TestPredictSingle(t *testing.T) {
	api := NewAPI(nil)
	api.SetModel(trainedModel(t))
	r := newTestRouter(t, api, config.ServerConfig{})

	w, body := do(t, r, http.MethodPost, "/v1/predict", `{"features":{"odor":"f","spore":"k"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := body.Data.(map[string]any)
	if data["label"] != "p" {
		t.Fatalf("expected label p, got %v", data["label"])
	}
	if w.Header().Get(middleware.HeaderXRequestID) == "" {
		t.Fatal("missing request id header")
	}
}

func TestPredictBatchWithUnseenValue(t *testing.T) {
	api := NewAPI(nil)
	api.SetModel(trainedModel(t))
	r := newTestRouter(t, api, config.ServerConfig{})

	w, body := do(t, r, http.MethodPost, "/v1/predict",
		`{"records":[{"odor":"n","spore":"k"},{"odor":"zzz","spore":"k"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	labels := body.Data.(map[string]any)["labels"].([]any)
	if len(labels) != 2 || labels[0] != "e" {
		t.Fatalf("unexpected labels %v", labels)
	}
}

func TestPredictBatchCanceledRequest(t *testing.T) {
	api := NewAPI(nil)
	api.SetModel(trainedModel(t))
	r := newTestRouter(t, api, config.ServerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/predict",
		bytes.NewBufferString(`{"records":[{"odor":"n","spore":"k"},{"odor":"f","spore":"w"}]}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestTimeout {
		t.Fatalf("expected 408, got %d: %s", w.Code, w.Body.String())
	}
	var body response.Body
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Code != xerrors.ErrPredictCanceled.Code {
		t.Fatalf("expected code %d, got %d", xerrors.ErrPredictCanceled.Code, body.Code)
	}
}

func TestPredictErrors(t *testing.T) {
	ready := NewAPI(nil)
	ready.SetModel(trainedModel(t))

	tests := []struct {
		name string
		api  *API
		body string
		code int
	}{
		{"not built", NewAPI(nil), `{"features":{"odor":"n","spore":"k"}}`, http.StatusNotFound},
		{"malformed json", ready, `{"features":`, http.StatusBadRequest},
		{"neither field", ready, `{}`, http.StatusBadRequest},
		{"both fields", ready, `{"features":{"odor":"n"},"records":[]}`, http.StatusBadRequest},
		{"missing feature", ready, `{"features":{"odor":"n"}}`, http.StatusBadRequest},
		{"missing feature in batch", ready, `{"records":[{"odor":"n","spore":"k"},{"spore":"k"}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.api, config.ServerConfig{})
			w, _ := do(t, r, http.MethodPost, "/v1/predict", tt.body)
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestForestInfoAndHealth(t *testing.T) {
	api := NewAPI(nil)
	r := newTestRouter(t, api, config.ServerConfig{})

	w, _ := do(t, r, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ready":false`) {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
	if w, _ := do(t, r, http.MethodGet, "/v1/forest", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before a model is published, got %d", w.Code)
	}

	api.SetModel(trainedModel(t))
	w, body := do(t, r, http.MethodGet, "/v1/forest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	info := body.Data.(map[string]any)
	if info["trees"].(float64) != 5 {
		t.Fatalf("expected 5 trees, got %v", info["trees"])
	}
	if len(info["depths"].([]any)) != 5 {
		t.Fatalf("expected 5 depths, got %v", info["depths"])
	}

	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mw := httptest.NewRecorder()
	r.ServeHTTP(mw, metricsReq)
	if !strings.Contains(mw.Body.String(), `http_server_requests_total{method="GET",path="/v1/forest",status="200"} 1`) {
		t.Fatalf("forest request not recorded in metrics:\n%s", mw.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	api := NewAPI(nil)
	r := newTestRouter(t, api, config.ServerConfig{RateLimit: 0.001, RateBurst: 1})

	if w, _ := do(t, r, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodGet, "/healthz", ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", w.Code)
	}
}

func TestMaxBodyBytes(t *testing.T) {
	api := NewAPI(nil)
	api.SetModel(trainedModel(t))
	r := newTestRouter(t, api, config.ServerConfig{MaxBodyBytes: 8})

	w, _ := do(t, r, http.MethodPost, "/v1/predict", `{"features":{"odor":"n","spore":"k"}}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}
