package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/infrastructure/scheduler"
	"github.com/schoolerp/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func postSync(h *SchoolPaySyncHandler, tenantID uuid.UUID, body string) *httptest.ResponseRecorder {
	router := gin.New()
	router.POST("/sync", func(c *gin.Context) {
		if tenantID != uuid.Nil {
			setJWTContext(c, tenantID, uuid.New())
		}
		h.Sync(c)
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestSchoolPaySyncHandler_Success(t *testing.T) {
	require.NoError(t, setupTestValidator())
	tenantID := uuid.New()
	runner := new(MockSyncRunner)
	runner.On("Sync", mock.Anything, appschoolpay.SyncRequest{
		TenantID: tenantID,
		FromDate: "2024-03-01",
		ToDate:   "2024-03-07",
	}).Return(&appschoolpay.SyncResult{
		Total:          5,
		Inserted:       3,
		Skipped:        2,
		AutoReconciled: 1,
		Message:        "Synced 5 SchoolPay transactions",
	}, nil)

	w := postSync(NewSchoolPaySyncHandler(runner), tenantID, `{"fromDate":"2024-03-01","toDate":"2024-03-07"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"success": true,
		"total": 5,
		"inserted": 3,
		"skipped": 2,
		"autoReconciled": 1,
		"message": "Synced 5 SchoolPay transactions"
	}`, w.Body.String())
	runner.AssertExpectations(t)
}

func TestSchoolPaySyncHandler_EmptyBodyReachesService(t *testing.T) {
	require.NoError(t, setupTestValidator())
	tenantID := uuid.New()
	runner := new(MockSyncRunner)
	runner.On("Sync", mock.Anything, appschoolpay.SyncRequest{TenantID: tenantID}).
		Return(nil, domain.ErrSyncDatesRequired)

	w := postSync(NewSchoolPaySyncHandler(runner), tenantID, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"`+MsgSyncDatesRequired+`"}`, w.Body.String())
}

func TestSchoolPaySyncHandler_RejectsBadInput(t *testing.T) {
	require.NoError(t, setupTestValidator())

	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{"malformed date", `{"date":"01/03/2024"}`, MsgInvalidSyncDate},
		{"impossible date", `{"fromDate":"2024-02-30","toDate":"2024-03-01"}`, MsgInvalidSyncDate},
		{"broken json", `{"date":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockSyncRunner)

			w := postSync(NewSchoolPaySyncHandler(runner), uuid.New(), tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMessage)
			runner.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
		})
	}
}

func TestSchoolPaySyncHandler_ServiceErrors(t *testing.T) {
	require.NoError(t, setupTestValidator())

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"not configured", domain.ErrNotConfigured, http.StatusBadRequest, MsgNotConfigured},
		{"already running", domain.ErrSyncInProgress, http.StatusConflict, MsgSyncInProgress},
		{"provider rejected", &domain.ProviderError{ReturnCode: 2, Message: "Invalid hash"}, http.StatusBadGateway, "Invalid hash"},
		{"provider down", domain.ErrProviderUnavailable, http.StatusBadGateway, MsgProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockSyncRunner)
			runner.On("Sync", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := postSync(NewSchoolPaySyncHandler(runner), uuid.New(), `{"date":"2024-03-01"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, `{"success":false,"error":"`+tt.wantError+`"}`, w.Body.String())
		})
	}
}

func TestSchoolPaySyncHandler_RequiresTenant(t *testing.T) {
	runner := new(MockSyncRunner)

	w := postSync(NewSchoolPaySyncHandler(runner), uuid.Nil, `{"date":"2024-03-01"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	runner.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
}

func getSyncHistory(h *SchoolPaySyncHandler, tenantID uuid.UUID, query string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/sync/history", func(c *gin.Context) {
		if tenantID != uuid.Nil {
			setJWTContext(c, tenantID, uuid.New())
		}
		h.History(c)
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sync/history"+query, nil))
	return w
}

func TestSchoolPaySyncHandler_History(t *testing.T) {
	require.NoError(t, setupTestValidator())
	tenantID := uuid.New()

	started := time.Date(2024, 3, 2, 2, 0, 0, 0, time.UTC)
	done := started.Add(3 * time.Second)
	syncID := uuid.New()
	jobs := []scheduler.SyncJob{
		{
			ID: uuid.New(), TenantID: tenantID, Date: "2024-03-01",
			Status: scheduler.SyncJobStatusSuccess, StartedAt: &started, CompletedAt: &done,
			SyncID: syncID, Total: 4, Inserted: 3, Skipped: 1, AutoReconciled: 2,
			ArchiveKey: "schoolpay/t/2024/03/x.json",
		},
		{
			ID: uuid.New(), TenantID: tenantID, Date: "2024-02-29",
			Status: scheduler.SyncJobStatusFailed, Error: "school has not configured SchoolPay",
			Permanent: true,
		},
	}

	t.Run("lists the caller's attempts", func(t *testing.T) {
		history := new(MockSyncHistory)
		history.On("GetJobHistoryByTenant", tenantID, 5).Return(jobs)
		h := NewSchoolPaySyncHandler(nil)
		h.SetHistory(history)

		w := getSyncHistory(h, tenantID, "?limit=5")

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Success bool                    `json:"success"`
			Data    dto.SyncHistoryResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.True(t, body.Data.ScheduleEnabled)
		require.Len(t, body.Data.Attempts, 2)

		first := body.Data.Attempts[0]
		assert.Equal(t, "SUCCESS", first.Status)
		assert.Equal(t, 3, first.Inserted)
		assert.Equal(t, 2, first.AutoReconciled)
		require.NotNil(t, first.SyncID)
		assert.Equal(t, syncID.String(), *first.SyncID)

		second := body.Data.Attempts[1]
		assert.Equal(t, "FAILED", second.Status)
		assert.True(t, second.Permanent)
		assert.Nil(t, second.SyncID)
		history.AssertExpectations(t)
	})

	t.Run("default limit", func(t *testing.T) {
		history := new(MockSyncHistory)
		history.On("GetJobHistoryByTenant", tenantID, defaultSyncHistoryLimit).Return([]scheduler.SyncJob{})
		h := NewSchoolPaySyncHandler(nil)
		h.SetHistory(history)

		w := getSyncHistory(h, tenantID, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"schedule_enabled":true,"attempts":[]}`, dataField(t, w))
		history.AssertExpectations(t)
	})

	t.Run("schedule disabled", func(t *testing.T) {
		w := getSyncHistory(NewSchoolPaySyncHandler(nil), tenantID, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"schedule_enabled":false,"attempts":[]}`, dataField(t, w))
	})

	t.Run("limit out of range", func(t *testing.T) {
		history := new(MockSyncHistory)
		h := NewSchoolPaySyncHandler(nil)
		h.SetHistory(history)

		w := getSyncHistory(h, tenantID, "?limit=500")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		history.AssertNotCalled(t, "GetJobHistoryByTenant", mock.Anything, mock.Anything)
	})

	t.Run("missing tenant", func(t *testing.T) {
		w := getSyncHistory(NewSchoolPaySyncHandler(nil), uuid.Nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func dataField(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return string(body.Data)
}
