// Package api exposes the import and query entrypoints consumed by the
// viewer frontend.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/roman-kulish/flight-log-viewer/internal/dji"
	"github.com/roman-kulish/flight-log-viewer/internal/flight"
	"github.com/roman-kulish/flight-log-viewer/internal/logfile"
	"github.com/roman-kulish/flight-log-viewer/internal/storage"
)

// maxUploadSize caps imported log files. Real flight logs top out in the
// tens of megabytes.
const maxUploadSize = 256 << 20

// FlightHandler serves the flight list, detail, stats and delete endpoints.
type FlightHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewFlightHandler(store storage.Store, logger *slog.Logger) *FlightHandler {
	return &FlightHandler{store: store, logger: logger}
}

func (h *FlightHandler) HandleListFlights(c echo.Context) error {
	flights, err := h.store.Flights(c.Request().Context())
	if err != nil {
		return NewInternalError("listing flights", err)
	}
	return c.JSON(http.StatusOK, flights)
}

func (h *FlightHandler) HandleGetFlight(c echo.Context) error {
	id, err := flightID(c)
	if err != nil {
		return err
	}

	data, err := h.store.FlightData(c.Request().Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NewNotFoundError("flight", c.Param("id"))
	case err != nil:
		return NewInternalError("loading flight", err)
	}
	return c.JSON(http.StatusOK, data)
}

func (h *FlightHandler) HandleGetStats(c echo.Context) error {
	id, err := flightID(c)
	if err != nil {
		return err
	}

	stats, err := h.store.Stats(c.Request().Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NewNotFoundError("flight", c.Param("id"))
	case err != nil:
		return NewInternalError("loading stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *FlightHandler) HandleDeleteFlight(c echo.Context) error {
	id, err := flightID(c)
	if err != nil {
		return err
	}

	switch err = h.store.DeleteFlight(c.Request().Context(), id); {
	case errors.Is(err, storage.ErrNotFound):
		return NewNotFoundError("flight", c.Param("id"))
	case err != nil:
		return NewInternalError("deleting flight", err)
	}

	h.logger.Info("deleted flight", slog.Int64("flightID", id))
	return c.NoContent(http.StatusNoContent)
}

func flightID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, NewBadRequestError("invalid flight id", err)
	}
	return id, nil
}

// ImportService is the import pipeline behind the upload endpoint.
// Implemented by importer.Service.
type ImportService interface {
	Import(ctx context.Context, fileName string, data []byte) (*flight.ImportResult, error)
}

// ImportHandler accepts log file uploads.
type ImportHandler struct {
	importer ImportService
	logger   *slog.Logger
}

func NewImportHandler(importer ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, logger: logger}
}

func (h *ImportHandler) HandleImport(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("missing file field", err)
	}
	if fileHeader.Size > maxUploadSize {
		return NewBadRequestError("file too large", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return NewBadRequestError("opening upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return NewInternalError("reading upload", err)
	}

	h.logger.Info("importing uploaded log",
		slog.String("file", fileHeader.Filename),
		slog.String("size", humanize.Bytes(uint64(len(data)))))

	result, err := h.importer.Import(c.Request().Context(), fileHeader.Filename, data)
	if err != nil {
		return importError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// importError maps the decoder/credential taxonomy onto API errors.
func importError(err error) error {
	var remoteErr *dji.RemoteError

	switch {
	case errors.Is(err, logfile.ErrUnsupportedFormat):
		return NewUnprocessableError("UNSUPPORTED_FORMAT", "this log format is not supported", err)
	case errors.Is(err, dji.ErrAPIKeyNotConfigured):
		return NewUnprocessableError("API_KEY_MISSING", "a DJI API key is required to decrypt this log", err)
	case errors.Is(err, logfile.ErrDecryptionFailed):
		return NewUnprocessableError("DECRYPTION_FAILED", "the log could not be decrypted", err)
	case errors.As(err, &remoteErr):
		return NewUnprocessableError("KEY_SERVICE_ERROR", remoteErr.Error(), err)
	default:
		return NewInternalError("import failed", err)
	}
}

// SettingsHandler manages the stored DJI API key.
type SettingsHandler struct {
	keyring *dji.Keyring
	logger  *slog.Logger
}

func NewSettingsHandler(keyring *dji.Keyring, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{keyring: keyring, logger: logger}
}

func (h *SettingsHandler) HandleGetKeyStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"configured": h.keyring.HasAPIKey()})
}

type saveKeyRequest struct {
	APIKey string `json:"apiKey"`
}

func (h *SettingsHandler) HandleSaveKey(c echo.Context) error {
	var req saveKeyRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.APIKey == "" {
		return NewBadRequestError("apiKey must not be empty", nil)
	}

	switch err := h.keyring.SaveAPIKey(req.APIKey); {
	case errors.Is(err, dji.ErrNoConfigDir):
		return NewInternalError("no configuration directory available", err)
	case err != nil:
		return NewInternalError("saving key", err)
	}

	// The resolved key is cached per process; a saved key is picked up on
	// the next start.
	return c.JSON(http.StatusOK, map[string]string{
		"message": "key saved; it takes effect after restart",
	})
}

// HealthHandler reports service liveness.
type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

func (h *HealthHandler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}
