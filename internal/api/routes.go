package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/roman-kulish/flight-log-viewer/internal/dji"
	"github.com/roman-kulish/flight-log-viewer/internal/storage"
)

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Store    storage.Store
	Importer ImportService
	Keyring  *dji.Keyring
	Logger   *slog.Logger
	Version  string
}

// Handlers holds all handler instances.
type Handlers struct {
	Flight   *FlightHandler
	Import   *ImportHandler
	Settings *SettingsHandler
	Health   *HealthHandler
}

// NewHandlers creates all handler instances.
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Flight:   NewFlightHandler(deps.Store, deps.Logger),
		Import:   NewImportHandler(deps.Importer, deps.Logger),
		Settings: NewSettingsHandler(deps.Keyring, deps.Logger),
		Health:   NewHealthHandler(deps.Version),
	}
}

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/health", handlers.Health.HandleHealth)

	flights := e.Group("/api/flights")
	flights.GET("", handlers.Flight.HandleListFlights)
	flights.POST("/import", handlers.Import.HandleImport)
	flights.GET("/:id", handlers.Flight.HandleGetFlight)
	flights.GET("/:id/stats", handlers.Flight.HandleGetStats)
	flights.DELETE("/:id", handlers.Flight.HandleDeleteFlight)

	settings := e.Group("/api/settings")
	settings.GET("/key", handlers.Settings.HandleGetKeyStatus)
	settings.POST("/key", handlers.Settings.HandleSaveKey)
}

// NewServer builds a configured Echo instance with the routes registered.
func NewServer(deps *Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Use(middleware.Recover())

	RegisterRoutes(e, NewHandlers(deps))
	return e
}
