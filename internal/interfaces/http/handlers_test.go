package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/vehware/attendance-console/internal/attendance"
	"github.com/vehware/attendance-console/internal/crm"
	"github.com/vehware/attendance-console/internal/importer"
	"github.com/vehware/attendance-console/internal/repository"
	"github.com/vehware/attendance-console/pkg/database"
)

// crmBackend fakes the remote CRM service and records what reached it.
type crmBackend struct {
	*httptest.Server

	batchStatus int
	singleAdds  []map[string]interface{}
	updates     []map[string]interface{}
}

func newCRMBackend(t *testing.T) *crmBackend {
	t.Helper()

	backend := &crmBackend{batchStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/attendance/add", func(w http.ResponseWriter, r *http.Request) {
		if backend.batchStatus != http.StatusOK {
			w.WriteHeader(backend.batchStatus)
			return
		}
		var payload attendance.BatchPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		// The fake backend knows employee E999 and nobody else fails.
		outcome := struct {
			Saved   []attendance.SavedEntry   `json:"saved"`
			Unsaved []attendance.UnsavedEntry `json:"unsaved"`
		}{}
		for _, rec := range payload.DailyRecords {
			if rec.UserID == "E999" {
				outcome.Unsaved = append(outcome.Unsaved, attendance.UnsavedEntry{UserID: rec.UserID, Reason: "Employee not found"})
				continue
			}
			outcome.Saved = append(outcome.Saved, attendance.SavedEntry{UserID: rec.UserID})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": outcome})
	})
	mux.HandleFunc("POST /api/attendance/single-add/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["_path"] = r.URL.Path
		backend.singleAdds = append(backend.singleAdds, body)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("PATCH /api/attendance/update", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		backend.updates = append(backend.updates, body)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /api/attendance/get/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attendance":[{"_id":"a1","date":"2023-03-15","checkInTime":"8:30 AM","checkOutTime":"5:00 PM","status":"Present"}]}}`))
	})

	backend.Server = httptest.NewServer(mux)
	t.Cleanup(backend.Close)
	return backend
}

func newTestServer(t *testing.T, backend *crmBackend) *Server {
	t.Helper()

	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations("../../../migrations"))

	runs := repository.NewImportRunRepository(db.DB, logger)
	client := crm.NewClient(crm.Config{BaseURL: backend.URL, Timeout: 5 * time.Second}, logger)
	service := importer.NewService(attendance.NewFormatter(attendance.PolicyReject), client, runs, logger)

	return NewServer(ServerConfig{MaxUploadBytes: 1 << 20}, service, client, runs, logger)
}

func uploadBody(t *testing.T, rows [][]interface{}) (*bytes.Buffer, string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{"User ID", "User Type", "Check In", "Check Out", "Date"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	var workbook bytes.Buffer
	require.NoError(t, f.Write(&workbook))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "march.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func doRequest(t *testing.T, server *Server, req *http.Request) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t, newCRMBackend(t))

	w, resp := doRequest(t, server, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestImportAttendance(t *testing.T) {
	backend := newCRMBackend(t)
	server := newTestServer(t, backend)

	body, contentType := uploadBody(t, [][]interface{}{
		{"E100", "Employee", 0.354166667, 0.708333333, 45000},
		{"E999", "Employee", 0.375, 0.75, 45000},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/attendance/import", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer operator-token")

	w, resp := doRequest(t, server, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result importer.Result
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.ValidRows)
	assert.Equal(t, attendance.StatusPartial, result.Report.Status)
	assert.Contains(t, result.Report.Failed[0], "E999")
	assert.NotZero(t, result.RunID)
}

func TestImportAttendance_MissingToken(t *testing.T) {
	server := newTestServer(t, newCRMBackend(t))

	body, contentType := uploadBody(t, [][]interface{}{
		{"E100", "Employee", 0.354166667, 0.708333333, 45000},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/attendance/import", body)
	req.Header.Set("Content-Type", contentType)

	w, resp := doRequest(t, server, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp.Success)
}

func TestImportAttendance_MissingFile(t *testing.T) {
	server := newTestServer(t, newCRMBackend(t))

	req := httptest.NewRequest(http.MethodPost, "/api/attendance/import", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer operator-token")

	w, _ := doRequest(t, server, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportAttendance_NoValidRows(t *testing.T) {
	server := newTestServer(t, newCRMBackend(t))

	body, contentType := uploadBody(t, [][]interface{}{
		{"", "Employee", 0.354166667, 0.708333333, 45000},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/attendance/import", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer operator-token")

	w, resp := doRequest(t, server, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, resp.Error, "no valid data")
}

func TestImportAttendance_MixedDates(t *testing.T) {
	server := newTestServer(t, newCRMBackend(t))

	body, contentType := uploadBody(t, [][]interface{}{
		{"E100", "Employee", 0.354166667, 0.708333333, 45000},
		{"E101", "Employee", 0.375, 0.75, 45001},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/attendance/import", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer operator-token")

	w, _ := doRequest(t, server, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestImportAttendance_CRMDown(t *testing.T) {
	backend := newCRMBackend(t)
	backend.batchStatus = http.StatusInternalServerError
	server := newTestServer(t, backend)

	body, contentType := uploadBody(t, [][]interface{}{
		{"E100", "Employee", 0.354166667, 0.708333333, 45000},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/attendance/import", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer operator-token")

	w, _ := doRequest(t, server, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPreviewImport(t *testing.T) {
	server := newTestServer(t, newCRMBackend(t))

	body, contentType := uploadBody(t, [][]interface{}{
		{"E100", "Employee", 0.354166667, 17.0 / 24.0, 45000},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/attendance/import/preview", body)
	req.Header.Set("Content-Type", contentType)

	w, resp := doRequest(t, server, req)

	require.Equal(t, http.StatusOK, w.Code)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var preview importer.Preview
	require.NoError(t, json.Unmarshal(data, &preview))

	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "2023-03-15", preview.Rows[0].Date)
	assert.Equal(t, "8:30 AM", preview.Rows[0].CheckIn)
	assert.Equal(t, "5:00 PM", preview.Rows[0].CheckOut)
}

func singleRequest(t *testing.T, method, url string, payload interface{}) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer operator-token")
	return req
}

func TestAddSingleAttendance(t *testing.T) {
	backend := newCRMBackend(t)
	server := newTestServer(t, backend)

	req := singleRequest(t, http.MethodPost, "/api/employees/emp-42/attendance", map[string]interface{}{
		"date": "2023-03-15", "checkIn": "08:30", "checkOut": "17:00",
	})
	w, resp := doRequest(t, server, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	require.Len(t, backend.singleAdds, 1)
	sent := backend.singleAdds[0]
	assert.Equal(t, "/api/attendance/single-add/emp-42", sent["_path"])
	assert.Equal(t, "Employee", sent["userType"])
	assert.Equal(t, "08:30", sent["checkInTime"])
	assert.Equal(t, "17:00", sent["checkOutTime"])
}

func TestAddSingleAttendance_AbsentForwardsNulls(t *testing.T) {
	backend := newCRMBackend(t)
	server := newTestServer(t, backend)

	req := singleRequest(t, http.MethodPost, "/api/employees/emp-42/attendance", map[string]interface{}{
		"date": "2023-03-15", "checkIn": "08:30", "checkOut": "17:00", "absent": true,
	})
	w, _ := doRequest(t, server, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, backend.singleAdds, 1)
	assert.Nil(t, backend.singleAdds[0]["checkInTime"])
	assert.Nil(t, backend.singleAdds[0]["checkOutTime"])
}

func TestAddSingleAttendance_ValidationErrors(t *testing.T) {
	backend := newCRMBackend(t)
	server := newTestServer(t, backend)

	req := singleRequest(t, http.MethodPost, "/api/employees/emp-42/attendance", map[string]interface{}{
		"date": "2023-03-15", "checkIn": "08:30",
	})
	w, resp := doRequest(t, server, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, backend.singleAdds)

	fields, ok := resp.Fields.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "checkOut")
}

func TestUpdateSingleAttendance(t *testing.T) {
	backend := newCRMBackend(t)
	server := newTestServer(t, backend)

	req := singleRequest(t, http.MethodPatch, "/api/employees/emp-42/attendance", map[string]interface{}{
		"date": "2023-03-15", "checkIn": "09:00", "checkOut": "18:00",
	})
	w, _ := doRequest(t, server, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, backend.updates, 1)
	assert.Equal(t, "emp-42", backend.updates[0]["userId"])
	assert.Empty(t, backend.singleAdds)
}

func TestGetEmployeeAttendance(t *testing.T) {
	server := newTestServer(t, newCRMBackend(t))

	req := httptest.NewRequest(http.MethodGet, "/api/employees/emp-42/attendance", nil)
	req.Header.Set("Authorization", "Bearer operator-token")

	w, resp := doRequest(t, server, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, fmt.Sprintf("%v", resp.Data), "Present")
}

func TestListImportRuns(t *testing.T) {
	backend := newCRMBackend(t)
	server := newTestServer(t, backend)

	body, contentType := uploadBody(t, [][]interface{}{
		{"E100", "Employee", 0.354166667, 0.708333333, 45000},
	})
	importReq := httptest.NewRequest(http.MethodPost, "/api/attendance/import", body)
	importReq.Header.Set("Content-Type", contentType)
	importReq.Header.Set("Authorization", "Bearer operator-token")
	w, _ := doRequest(t, server, importReq)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doRequest(t, server, httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	require.Equal(t, http.StatusOK, w.Code)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var runs []repository.ImportRun
	require.NoError(t, json.Unmarshal(data, &runs))

	require.Len(t, runs, 1)
	assert.Equal(t, "march.xlsx", runs[0].FileName)
	assert.Equal(t, "Success", runs[0].Status)

	w, _ = doRequest(t, server, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/imports/%d", runs[0].ID), nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetImportRun_NotFound(t *testing.T) {
	server := newTestServer(t, newCRMBackend(t))

	w, _ := doRequest(t, server, httptest.NewRequest(http.MethodGet, "/api/imports/9999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetImportRun_BadID(t *testing.T) {
	server := newTestServer(t, newCRMBackend(t))

	w, _ := doRequest(t, server, httptest.NewRequest(http.MethodGet, "/api/imports/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
