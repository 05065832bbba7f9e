package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/statwatch-io/statwatch/internal/adapter/metrics"
	"github.com/statwatch-io/statwatch/internal/domain"
)

// Registered once for the whole test binary; promauto registers globally.
var testListenerMetrics = metrics.NewListenerMetrics()

// MockCaptureUseCase is a mock implementation of the capture use case.
type MockCaptureUseCase struct {
	mu          sync.Mutex
	CaptureFunc func(ctx context.Context, frame *domain.RawFrame) error
	Captured    []domain.RawFrame
}

func (m *MockCaptureUseCase) Capture(ctx context.Context, frame *domain.RawFrame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CaptureFunc != nil {
		if err := m.CaptureFunc(ctx, frame); err != nil {
			return err
		}
	}
	m.Captured = append(m.Captured, *frame)
	return nil
}

func TestFramesHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		method         string
		contentType    string
		body           string
		maxSize        int64
		mockCaptureErr error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Valid Single JSON",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"frame_id":"f-1","text":"W8APP: @AMRRON QTC HELLO"}`,
			expectedStatus: http.StatusAccepted,
			expectedBody:   `{"accepted":1,"filtered":0}`,
		},
		{
			name:           "Valid NDJSON",
			method:         http.MethodPost,
			contentType:    "application/x-ndjson",
			body:           `{"frame_id":"f-1","text":"W8APP: @AMRRON STATREP"}` + "\n" + `{"frame_id":"f-2","text":"KB8UVN: @AMRRON MSG OK"}`,
			expectedStatus: http.StatusAccepted,
			expectedBody:   `{"accepted":2,"filtered":0}`,
		},
		{
			name:           "Filtered Frame",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"frame_id":"f-1","text":"W8APP: @OTHERNET MSG HI"}`,
			mockCaptureErr: domain.ErrFrameFiltered,
			expectedStatus: http.StatusAccepted,
			expectedBody:   `{"accepted":0,"filtered":1}`,
		},
		{
			name:           "Invalid Method",
			method:         http.MethodGet,
			contentType:    "application/json",
			body:           `{}`,
			expectedStatus: http.StatusMethodNotAllowed,
			expectedBody:   "Method Not Allowed\n",
		},
		{
			name:           "Unsupported Content-Type",
			method:         http.MethodPost,
			contentType:    "text/plain",
			body:           `hello`,
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedBody:   "Unsupported Media Type: text/plain\n",
		},
		{
			name:           "Bad JSON",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"text": "hello"`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Bad Request: Failed to decode JSON\n",
		},
		{
			name:           "Bad NDJSON line",
			method:         http.MethodPost,
			contentType:    "application/x-ndjson",
			body:           `{"frame_id":"f-1","text":"W8APP: @AMRRON STATREP"}` + "\n" + `{"text": "bad`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Bad Request: Failed to decode NDJSON line\n",
		},
		{
			name:           "Empty Frame Text",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"frame_id":"f-1","text":"   "}`,
			mockCaptureErr: fmt.Errorf("empty frame text: %w", domain.ErrMalformedFrame),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Bad Request: empty frame text\n",
		},
		{
			name:           "Buffer Unavailable",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"frame_id":"f-1","text":"W8APP: @AMRRON STATREP"}`,
			mockCaptureErr: fmt.Errorf("append: %w", domain.ErrBufferUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "Service Unavailable: frame buffer is down\n",
		},
		{
			name:           "Unknown Capture Error",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"frame_id":"f-1","text":"W8APP: @AMRRON STATREP"}`,
			mockCaptureErr: errors.New("wires crossed"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal Server Error\n",
		},
		{
			name:           "Payload Too Large",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"frame_id":"f-1","text":"this payload is definitely too large for the test limit"}`,
			maxSize:        50,
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedBody:   "Payload too large\n",
		},
		{
			name:           "Oversized NDJSON line",
			method:         http.MethodPost,
			contentType:    "application/x-ndjson",
			body:           `{"frame_id":"f-1","text":"` + strings.Repeat("A", 100) + `"}`,
			maxSize:        40,
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedBody:   "Payload too large\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUseCase := &MockCaptureUseCase{
				CaptureFunc: func(ctx context.Context, frame *domain.RawFrame) error {
					return tt.mockCaptureErr
				},
			}

			maxSize := tt.maxSize
			if maxSize == 0 {
				maxSize = 1024
			}

			handler := NewFramesHandler(mockUseCase, logger, maxSize, testListenerMetrics)

			req := httptest.NewRequest(tt.method, "/frames", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", status, tt.expectedStatus)
			}

			if body := rr.Body.String(); body != tt.expectedBody {
				t.Errorf("handler returned unexpected body: got %q want %q", body, tt.expectedBody)
			}
		})
	}
}

func TestFramesHandlerStampsSource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockUseCase := &MockCaptureUseCase{}
	handler := NewFramesHandler(mockUseCase, logger, 1024, testListenerMetrics)

	post := func(body string) {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/frames", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
		}
	}

	post(`{"frame_id":"f-1","text":"W8APP: @AMRRON STATREP"}`)
	post(`{"frame_id":"f-2","text":"KB8UVN: @AMRRON STATREP","source":"sim"}`)

	if len(mockUseCase.Captured) != 2 {
		t.Fatalf("expected 2 captured frames, got %d", len(mockUseCase.Captured))
	}
	if got := mockUseCase.Captured[0].Source; got != domain.SourceHTTP {
		t.Errorf("expected first frame stamped with source %q, got %q", domain.SourceHTTP, got)
	}
	if got := mockUseCase.Captured[1].Source; got != domain.SourceSimulator {
		t.Errorf("expected declared source to be kept, got %q", got)
	}
}

func TestFramesHandlerBatchCountsRejected(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockUseCase := &MockCaptureUseCase{
		CaptureFunc: func(ctx context.Context, frame *domain.RawFrame) error {
			if strings.TrimSpace(frame.Text) == "" {
				return fmt.Errorf("empty frame text: %w", domain.ErrMalformedFrame)
			}
			return nil
		},
	}
	handler := NewFramesHandler(mockUseCase, logger, 1024, testListenerMetrics)

	body := `{"frame_id":"f-1","text":"W8APP: @AMRRON STATREP"}` + "\n" +
		`{"frame_id":"f-2","text":"   "}` + "\n" +
		`{"frame_id":"f-3","text":"KB8UVN: @AMRRON MSG OK"}`

	req := httptest.NewRequest(http.MethodPost, "/frames", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/x-ndjson")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	want := `{"accepted":2,"filtered":0,"rejected":1}`
	if got := rr.Body.String(); got != want {
		t.Errorf("unexpected batch summary: got %q want %q", got, want)
	}
}
