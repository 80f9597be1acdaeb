package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"heartapi/schema"
)

const rootMessage = "Heart Disease Prediction API is running"

// Predictor is what the handlers need from the prediction service.
type Predictor interface {
	Predict(ctx context.Context, in *schema.HeartInput) (schema.PredictionOutput, error)
	Info() schema.InfoOutput
}

// Handler serves the prediction routes.
type Handler struct {
	predictor Predictor
	logger    *zap.Logger
}

// NewHandler creates a Handler. A nil logger discards output.
func NewHandler(predictor Predictor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{predictor: predictor, logger: logger}
}

// Register adds the routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /info", h.handleInfo)
	mux.HandleFunc("POST /predict", h.handlePredict)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, schema.MessageOutput{Message: rootMessage})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, schema.HealthOutput{Status: "ok"})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.predictor.Info())
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		h.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read request body"})
		return
	}

	in, err := schema.Parse(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.predictor.Predict(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, out)
}

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []schema.FieldError `json:"fields,omitempty"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := h.classify(r.Context(), err)
	h.respondJSON(w, status, resp)
}

// classify maps a parse or prediction error to a status and response body.
// Anything that is not the caller's fault is logged.
func (h *Handler) classify(ctx context.Context, err error) (int, errorResponse) {
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields}
	case errors.Is(err, schema.ErrMalformedBody):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, errorResponse{Error: "request cancelled"}
	default:
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(ctx)),
			zap.Error(err))
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}
