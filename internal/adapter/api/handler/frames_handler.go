package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/statwatch-io/statwatch/internal/adapter/metrics"
	"github.com/statwatch-io/statwatch/internal/domain"
)

// maxStreamBody caps the body of an NDJSON batch. Individual frames within
// the batch are still held to the configured frame size by the line scanner.
const maxStreamBody = 4 << 20

// Terminal decode errors, mapped to HTTP statuses in fail.
var (
	errBadJSON   = errors.New("failed to decode JSON")
	errBadNDJSON = errors.New("failed to decode NDJSON line")
)

// FrameCapturer buffers one raw frame for decoding.
type FrameCapturer interface {
	Capture(ctx context.Context, frame *domain.RawFrame) error
}

// captureResult summarizes one ingest request. Rejected counts frames that
// decoded as JSON but carried no usable text.
type captureResult struct {
	Accepted int `json:"accepted"`
	Filtered int `json:"filtered"`
	Rejected int `json:"rejected,omitempty"`
}

// FramesHandler accepts frames over HTTP, as a single JSON object or an
// NDJSON stream. Both feed the same capture path as the JS8Call client, so
// a simulator or a remote receiver can stand in for the radio.
type FramesHandler struct {
	capturer     FrameCapturer
	logger       *slog.Logger
	maxFrameSize int64
	metrics      *metrics.ListenerMetrics
}

// NewFramesHandler creates a new FramesHandler.
func NewFramesHandler(capturer FrameCapturer, logger *slog.Logger, maxFrameSize int64, m *metrics.ListenerMetrics) *FramesHandler {
	return &FramesHandler{
		capturer:     capturer,
		logger:       logger,
		maxFrameSize: maxFrameSize,
		metrics:      m,
	}
}

// ServeHTTP processes incoming frame submissions.
func (h *FramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")

	var (
		result captureResult
		err    error
	)
	switch contentType {
	case "application/json":
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFrameSize)
		result, err = h.captureSingle(r)
	case "application/x-ndjson":
		r.Body = http.MaxBytesReader(w, r.Body, maxStreamBody)
		result, err = h.captureStream(r)
	default:
		http.Error(w, "Unsupported Media Type: "+contentType, http.StatusUnsupportedMediaType)
		return
	}

	if err != nil {
		h.fail(w, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusAccepted, result)
}

func (h *FramesHandler) captureSingle(r *http.Request) (captureResult, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return captureResult{}, err
	}

	var frame domain.RawFrame
	if err := json.Unmarshal(body, &frame); err != nil {
		return captureResult{}, errBadJSON
	}

	return h.capture(r.Context(), &frame, len(body), false)
}

// captureStream processes an NDJSON batch line by line. A line that is not
// JSON aborts the request; frames already captured by then stay captured,
// the 400 tells the producer its batch is damaged.
func (h *FramesHandler) captureStream(r *http.Request) (captureResult, error) {
	var result captureResult

	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, h.maxFrameSize), int(h.maxFrameSize))

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var frame domain.RawFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			h.logger.Warn("undecodable ndjson line", "error", err)
			return result, errBadNDJSON
		}

		lineResult, err := h.capture(r.Context(), &frame, len(line), true)
		if err != nil {
			return result, err
		}
		result.Accepted += lineResult.Accepted
		result.Filtered += lineResult.Filtered
		result.Rejected += lineResult.Rejected
	}

	return result, scanner.Err()
}

// capture hands one frame to the use case and translates its verdict into
// counters. In batch mode a frame with no usable text is counted and
// skipped rather than failing the whole request.
func (h *FramesHandler) capture(ctx context.Context, frame *domain.RawFrame, size int, batch bool) (captureResult, error) {
	if frame.Source == "" {
		frame.Source = domain.SourceHTTP
	}

	err := h.capturer.Capture(ctx, frame)
	switch {
	case err == nil:
		h.metrics.FramesTotal.WithLabelValues("accepted").Inc()
		h.metrics.BytesTotal.Add(float64(size))
		return captureResult{Accepted: 1}, nil
	case errors.Is(err, domain.ErrFrameFiltered):
		h.metrics.FramesTotal.WithLabelValues("filtered").Inc()
		return captureResult{Filtered: 1}, nil
	case errors.Is(err, domain.ErrMalformedFrame) && batch:
		h.metrics.FramesTotal.WithLabelValues("empty").Inc()
		return captureResult{Rejected: 1}, nil
	default:
		return captureResult{}, err
	}
}

func (h *FramesHandler) fail(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr), errors.Is(err, bufio.ErrTooLong):
		h.metrics.FramesTotal.WithLabelValues("error_size").Inc()
		http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, errBadJSON):
		h.metrics.FramesTotal.WithLabelValues("error_parse").Inc()
		http.Error(w, "Bad Request: Failed to decode JSON", http.StatusBadRequest)
	case errors.Is(err, errBadNDJSON):
		h.metrics.FramesTotal.WithLabelValues("error_parse").Inc()
		http.Error(w, "Bad Request: Failed to decode NDJSON line", http.StatusBadRequest)
	case errors.Is(err, domain.ErrMalformedFrame):
		h.metrics.FramesTotal.WithLabelValues("empty").Inc()
		http.Error(w, "Bad Request: empty frame text", http.StatusBadRequest)
	case errors.Is(err, domain.ErrBufferUnavailable):
		h.metrics.FramesTotal.WithLabelValues("error_buffer").Inc()
		http.Error(w, "Service Unavailable: frame buffer is down", http.StatusServiceUnavailable)
	default:
		h.metrics.FramesTotal.WithLabelValues("error_buffer").Inc()
		h.logger.Error("failed to process frames request", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
