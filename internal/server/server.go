package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"voice-detect/internal/auth"
	"voice-detect/internal/detection"
	"voice-detect/internal/models"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "x-api-key"

// Detector classifies a parsed detection request.
type Detector interface {
	Detect(req models.DetectionRequest) (detection.Result, error)
}

type serverHandler struct {
	detector     Detector
	guard        auth.Guard
	maxBodyBytes int64
	logger       *log.Logger
}

// New creates the HTTP handler that exposes the detection API.
func New(detector Detector, guard auth.Guard, maxBodyBytes int64, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}

	h := &serverHandler{
		detector:     detector,
		guard:        guard,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/voice-detection", h.handleDetection)

	return logRequests(mux, logger)
}

func (h *serverHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, models.ErrorResponse{Status: models.StatusError, Message: "Method not allowed"}, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

func (h *serverHandler) handleDetection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, models.ErrorResponse{Status: models.StatusError, Message: "Method not allowed"}, h.logger)
		return
	}

	if !h.guard.Authorize(strings.TrimSpace(r.Header.Get(APIKeyHeader))) {
		h.writeError(w, r, detection.AuthError())
		return
	}

	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	req, err := detection.ParseRequest(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.detector.Detect(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.DetectionResponse{
		Status:          models.StatusSuccess,
		Language:        result.Language,
		Classification:  string(result.Verdict.Label),
		ConfidenceScore: result.Verdict.Confidence,
		Explanation:     result.Verdict.Explanation,
	}, h.logger)
}

func (h *serverHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	detErr := detection.AsError(err)
	status := detErr.Kind.HTTPStatus()
	if detErr.Err != nil {
		h.logger.Printf("%s %s rejected (%s): %v", r.Method, r.URL.Path, detErr.Kind, detErr.Err)
	}
	writeJSON(w, status, models.ErrorResponse{Status: models.StatusError, Message: detErr.Message}, h.logger)
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *log.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Printf("failed to encode response: %v", err)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func logRequests(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		duration := time.Since(start)
		logger.Printf("%s %s -> %d (%dB) in %s", r.Method, r.URL.Path, sw.status, sw.size, duration)
	})
}
