package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/statwatch-io/statwatch/internal/domain"
	"github.com/statwatch-io/statwatch/internal/domain/mocks"
)

func TestRecordsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	entries := []domain.ArchiveEntry{
		{
			Kind:      domain.KindStatusReport,
			Datetime:  "2026-03-07 13:30:00",
			Callsign:  "W8APP",
			Group:     "AMRRON",
			Grid:      "EN82",
			Status:    "1",
			Frequency: 7078000,
		},
	}

	tests := []struct {
		name           string
		target         string
		mock           *mocks.MockArchiveRepository
		expectedStatus int
		expectedBody   string
		expectedFilter *domain.RecordFilter
	}{
		{
			name:           "No Filter",
			target:         "/records",
			mock:           &mocks.MockArchiveRepository{RecentResult: entries},
			expectedStatus: http.StatusOK,
			expectedBody:   `[{"kind":"statrep","datetime":"2026-03-07 13:30:00","callsign":"W8APP","group":"AMRRON","grid":"EN82","status":"1","frequency":7078000}]`,
			expectedFilter: &domain.RecordFilter{},
		},
		{
			name:           "Full Filter",
			target:         "/records?kind=statrep&group=%40AMRRON&callsign=W8APP&limit=10",
			mock:           &mocks.MockArchiveRepository{RecentResult: entries},
			expectedStatus: http.StatusOK,
			expectedBody:   `[{"kind":"statrep","datetime":"2026-03-07 13:30:00","callsign":"W8APP","group":"AMRRON","grid":"EN82","status":"1","frequency":7078000}]`,
			expectedFilter: &domain.RecordFilter{Kind: domain.KindStatusReport, Group: "@AMRRON", Callsign: "W8APP", Limit: 10},
		},
		{
			name:           "Limit Capped",
			target:         "/records?limit=9999",
			mock:           &mocks.MockArchiveRepository{},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
			expectedFilter: &domain.RecordFilter{Limit: maxRecordsLimit},
		},
		{
			name:           "Unknown Kind",
			target:         "/records?kind=weather",
			mock:           &mocks.MockArchiveRepository{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "unknown kind: weather\n",
		},
		{
			name:           "Invalid Limit",
			target:         "/records?limit=-3",
			mock:           &mocks.MockArchiveRepository{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid limit parameter\n",
		},
		{
			name:           "Archive Error",
			target:         "/records",
			mock:           &mocks.MockArchiveRepository{RecentErr: io.ErrUnexpectedEOF},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal server error\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRecordsHandler(tt.mock, logger)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", status, tt.expectedStatus)
			}
			if body := rr.Body.String(); body != tt.expectedBody {
				t.Errorf("handler returned unexpected body: got %q want %q", body, tt.expectedBody)
			}
			if tt.expectedFilter != nil {
				if len(tt.mock.RecentFilters) != 1 {
					t.Fatalf("expected 1 archive query, got %d", len(tt.mock.RecentFilters))
				}
				if got := tt.mock.RecentFilters[0]; got != *tt.expectedFilter {
					t.Errorf("unexpected filter: got %+v want %+v", got, *tt.expectedFilter)
				}
			}
		})
	}
}
