package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/flight-log-viewer/internal/dji"
	"github.com/roman-kulish/flight-log-viewer/internal/flight"
	"github.com/roman-kulish/flight-log-viewer/internal/importer"
	"github.com/roman-kulish/flight-log-viewer/internal/logfile"
	"github.com/roman-kulish/flight-log-viewer/internal/storage"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := storage.NewSqliteStore(filepath.Join(t.TempDir(), "flights.sqlite"))
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	keyring := dji.NewKeyring(
		dji.WithAppDataDir(t.TempDir()),
		dji.WithEnvFile("testdata/missing.env"),
		dji.WithLogger(logger))

	return NewServer(&Dependencies{
		Store:    store,
		Importer: importer.New(store, logfile.NewDecoder(nil, logger), logger),
		Keyring:  keyring,
		Logger:   logger,
		Version:  "test",
	})
}

func buildLogFile(t *testing.T) []byte {
	t.Helper()

	enc := logfile.NewEncoder(7)
	enc.SetDrone("Mavic 3", "SN-API-1")
	enc.Home(-33.8688, 151.2093)
	enc.Position(-33.8688, 151.2093, 0, 10)
	enc.Battery(100, 15.4, 2.0, 22)
	enc.Tick(1_700_000_000_000)
	enc.Position(-33.8689, 151.2094, 8, 18)
	enc.Velocity(4.2, 3, 3, -1)
	enc.Tick(1_700_000_000_500)

	data, err := enc.Bytes()
	require.NoError(t, err)
	return data
}

func multipartBody(t *testing.T, fileName string, data []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func importLog(t *testing.T, e *echo.Echo, fileName string, data []byte) flight.ImportResult {
	t.Helper()

	body, contentType := multipartBody(t, fileName, data)
	req := httptest.NewRequest(http.MethodPost, "/api/flights/import", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result flight.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestImportAndQueryFlow(t *testing.T) {
	e := newTestServer(t)

	result := importLog(t, e, "flight.bin", buildLogFile(t))
	require.True(t, result.Success)
	require.NotNil(t, result.FlightID)
	assert.Equal(t, 2, result.PointCount)

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/flights", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var flights []flight.Flight
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flights))
		require.Len(t, flights, 1)
		assert.Equal(t, "flight.bin", flights[0].FileName)
	})

	t.Run("detail", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/flights/1", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var data flight.DataResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
		assert.Len(t, data.Telemetry.Time, 2)
		assert.Len(t, data.Track, 2)
	})

	t.Run("stats", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/flights/1/stats", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var stats flight.Stats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, int64(100), stats.MinBattery)
		require.NotNil(t, stats.HomeLocation)
	})

	t.Run("duplicate upload", func(t *testing.T) {
		result := importLog(t, e, "again.bin", buildLogFile(t))
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "already imported")
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/flights/1", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/flights/1", nil)
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestImport_UnsupportedFormat(t *testing.T) {
	e := newTestServer(t)

	data := buildLogFile(t)
	data[4] = logfile.MaxVersion + 1

	body, contentType := multipartBody(t, "future.bin", data)
	req := httptest.NewRequest(http.MethodPost, "/api/flights/import", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "UNSUPPORTED_FORMAT", apiErr.Code)

	// Nothing was written.
	req = httptest.NewRequest(http.MethodGet, "/api/flights", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestImport_MissingFileField(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/flights/import", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFlight_InvalidID(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/flights/not-a-number", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestSettings_KeyLifecycle(t *testing.T) {
	t.Setenv(dji.EnvAPIKey, "")
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/settings/key", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"configured": false}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/settings/key", strings.NewReader(`{"apiKey":"new-key"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "after restart")

	// The cached resolution is intentionally stale until restart.
	req = httptest.NewRequest(http.MethodGet, "/api/settings/key", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"configured": false}`, rec.Body.String())
}

func TestSettings_SaveEmptyKey(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/settings/key", strings.NewReader(`{"apiKey":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "version": "test"}`, rec.Body.String())
}
