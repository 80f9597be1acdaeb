package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"heartapi/ml"
	"heartapi/schema"
	"heartapi/service"
)

const validBody = `{"age":63,"sex":1,"cp":3,"trestbps":145,"chol":233,"fbs":1,"restecg":0,` +
	`"thalach":150,"exang":0,"oldpeak":2.3,"slope":0,"ca":0,"thal":1}`

// reordered is validBody with its keys in a different order.
const reordered = `{"thal":1,"ca":0,"slope":0,"oldpeak":2.3,"exang":0,"thalach":150,"restecg":0,` +
	`"fbs":1,"chol":233,"trestbps":145,"cp":3,"sex":1,"age":63}`

// ageScorer makes the probability depend on the input so that reordering
// bugs show up.
type ageScorer struct {
	calls atomic.Int64
}

func (s *ageScorer) Score(features []float64) (float64, error) {
	s.calls.Add(1)
	return features[0] / 100, nil
}

type fakePredictor struct {
	out    schema.PredictionOutput
	err    error
	panics bool
}

func (f *fakePredictor) Predict(ctx context.Context, in *schema.HeartInput) (schema.PredictionOutput, error) {
	if f.panics {
		panic("boom")
	}
	return f.out, f.err
}

func (f *fakePredictor) Info() schema.InfoOutput {
	return schema.InfoOutput{ModelType: "fake", Features: ml.FeatureNames()}
}

func newTestRouter(t *testing.T, predictor Predictor) http.Handler {
	t.Helper()
	return NewRouter(DefaultServerConfig(), predictor, nil)
}

func servicePredictor(t *testing.T, scorer ml.Scorer) *service.Predictor {
	t.Helper()
	p, err := service.NewPredictor(scorer, ml.FeatureNames(), service.WithModelType("Pipeline"))
	require.NoError(t, err)
	return p
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRootAndHealth(t *testing.T) {
	req := require.New(t)
	h := newTestRouter(t, &fakePredictor{err: errors.New("unused")})

	w := do(h, http.MethodGet, "/", "")
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"message":"Heart Disease Prediction API is running"}`, w.Body.String())
	req.Equal("application/json", w.Header().Get("Content-Type"))

	w = do(h, http.MethodGet, "/health", "")
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"status":"ok"}`, w.Body.String())

	w = do(h, http.MethodGet, "/nope", "")
	req.Equal(http.StatusNotFound, w.Code)
	w = do(h, http.MethodGet, "/predict", "")
	req.Equal(http.StatusMethodNotAllowed, w.Code)
}

func TestInfo(t *testing.T) {
	req := require.New(t)
	h := newTestRouter(t, servicePredictor(t, &ageScorer{}))

	w := do(h, http.MethodGet, "/info", "")
	req.Equal(http.StatusOK, w.Code)

	var info map[string]any
	req.NoError(json.Unmarshal(w.Body.Bytes(), &info))
	req.Len(info, 2)
	req.Equal("Pipeline", info["model_type"])
	features, ok := info["features"].([]any)
	req.True(ok)
	req.Len(features, 13)
	req.Equal("age", features[0])
	req.Equal("thal", features[12])
}

func TestPredict(t *testing.T) {
	req := require.New(t)
	h := newTestRouter(t, servicePredictor(t, &ageScorer{}))

	w := do(h, http.MethodPost, "/predict", validBody)
	req.Equal(http.StatusOK, w.Code, w.Body.String())
	req.JSONEq(`{"heart_disease":true,"probability":0.63}`, w.Body.String())
	req.NotEmpty(w.Header().Get(RequestIDHeader))
}

func TestPredictKeyOrderInvariant(t *testing.T) {
	req := require.New(t)
	h := newTestRouter(t, servicePredictor(t, &ageScorer{}))

	first := do(h, http.MethodPost, "/predict", validBody)
	second := do(h, http.MethodPost, "/predict", reordered)
	req.Equal(http.StatusOK, first.Code)
	req.Equal(first.Body.String(), second.Body.String())
}

func TestPredictValidationEnumeratesFields(t *testing.T) {
	req := require.New(t)
	scorer := &ageScorer{}
	h := newTestRouter(t, servicePredictor(t, scorer))

	body := strings.Replace(validBody, `"age":63`, `"age":0`, 1)
	body = strings.Replace(body, `"sex":1`, `"sex":2`, 1)
	body = strings.Replace(body, `"ca":0,`, ``, 1)
	w := do(h, http.MethodPost, "/predict", body)
	req.Equal(http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Error  string              `json:"error"`
		Fields []schema.FieldError `json:"fields"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Equal("validation failed", resp.Error)
	got := map[string]string{}
	for _, f := range resp.Fields {
		got[f.Field] = f.Constraint
	}
	req.Equal(map[string]string{"age": "gte", "sex": "lte", "ca": "required"}, got)
	req.Zero(scorer.calls.Load(), "the model is not invoked for invalid input")
}

func TestPredictRejectsUnknownAndMistypedFields(t *testing.T) {
	req := require.New(t)
	h := newTestRouter(t, servicePredictor(t, &ageScorer{}))

	w := do(h, http.MethodPost, "/predict", strings.Replace(validBody, `{`, `{"weight":80,`, 1))
	req.Equal(http.StatusUnprocessableEntity, w.Code)
	req.Contains(w.Body.String(), `"unknown"`)

	w = do(h, http.MethodPost, "/predict", strings.Replace(validBody, `"age":63`, `"age":"63"`, 1))
	req.Equal(http.StatusUnprocessableEntity, w.Code)
	req.Contains(w.Body.String(), `"type"`)
}

func TestPredictMalformedBody(t *testing.T) {
	req := require.New(t)
	h := newTestRouter(t, servicePredictor(t, &ageScorer{}))

	for _, body := range []string{`{"age":`, `[1,2]`, validBody + `{}`} {
		w := do(h, http.MethodPost, "/predict", body)
		req.Equal(http.StatusBadRequest, w.Code, body)
	}
	w := do(h, http.MethodPost, "/predict", "")
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestPredictBodyTooLarge(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.MaxBodyBytes = 64
	h := NewRouter(cfg, servicePredictor(t, &ageScorer{}), nil)
	w := do(h, http.MethodPost, "/predict", validBody)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestPredictInternalErrors(t *testing.T) {
	req := require.New(t)

	h := newTestRouter(t, &fakePredictor{err: service.ErrInference})
	w := do(h, http.MethodPost, "/predict", validBody)
	req.Equal(http.StatusInternalServerError, w.Code)
	req.JSONEq(`{"error":"internal server error"}`, w.Body.String())

	h = newTestRouter(t, &fakePredictor{panics: true})
	w = do(h, http.MethodPost, "/predict", validBody)
	req.Equal(http.StatusInternalServerError, w.Code)

	w = do(h, http.MethodGet, "/health", "")
	req.Equal(http.StatusOK, w.Code, "the server keeps serving after a panic")
}

func TestServerStartStop(t *testing.T) {
	req := require.New(t)
	cfg := DefaultServerConfig()
	cfg.Port = 0
	srv := NewServer(cfg, servicePredictor(t, &ageScorer{}), nil)

	ln, err := newLocalListener()
	req.NoError(err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	req.NoError(srv.Stop())
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
