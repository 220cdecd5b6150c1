package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/homepulse/housing-market-data/internal/csvdata"
	"github.com/homepulse/housing-market-data/internal/market"
)

var validate = validator.New()

// Ingester accepts raw upload text and replaces the bulk provider's
// dataset. Implemented by the CSV provider.
type Ingester interface {
	Ingest(raw string) (int, []csvdata.RowError, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *market.Service, ingester Ingester) {
	v1 := app.Group("/api/v1")

	v1.Get("/markets/stats", func(c *fiber.Ctx) error {
		var req statsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		stats, err := service.GetStats(c.Context(), req.Location, req.Refresh)
		if err != nil {
			return statusForResolveError(err)
		}
		return c.JSON(stats)
	})

	v1.Get("/markets/series", func(c *fiber.Ctx) error {
		var req seriesQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := service.Series(c.Context(), req.Location, req.Window)
		if err != nil {
			return statusForResolveError(err)
		}
		return c.JSON(fiber.Map{
			"location": req.Location,
			"window":   req.Window,
			"series":   series,
		})
	})

	v1.Get("/markets/search", func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q query parameter is required")
		}

		records, err := service.Search(c.Context(), query)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "search failed")
		}
		if records == nil {
			records = []market.MarketRecord{}
		}
		return c.JSON(fiber.Map{"query": query, "results": records})
	})

	v1.Post("/markets/upload", func(c *fiber.Ctx) error {
		body := c.Body()
		if len(body) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "empty upload body")
		}

		count, diagnostics, err := ingester.Ingest(string(body))
		if err != nil {
			if errors.Is(err, csvdata.ErrFormatUnrecognized) {
				return fiber.NewError(fiber.StatusBadRequest,
					"unrecognized csv format: need either wide time-series columns or city/state columns")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to ingest upload")
		}

		// freshly uploaded data supersedes anything cached
		if err := service.ClearCache(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "ingested but failed to clear cache")
		}

		if diagnostics == nil {
			diagnostics = []csvdata.RowError{}
		}
		return c.JSON(fiber.Map{
			"records":     count,
			"diagnostics": diagnostics,
		})
	})

	v1.Get("/providers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"providers": service.Descriptors()})
	})

	v1.Delete("/cache", func(c *fiber.Ctx) error {
		if err := service.ClearCache(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear cache")
		}
		return c.JSON(fiber.Map{"cleared": true})
	})
}

func statusForResolveError(err error) error {
	if errors.Is(err, market.ErrNoData) {
		return fiber.NewError(fiber.StatusNotFound, "no market data for requested location")
	}
	if errors.Is(err, market.ErrNotConfigured) {
		return fiber.NewError(fiber.StatusNotFound, "no configured provider could answer")
	}
	return fiber.NewError(fiber.StatusBadGateway, "all provider tiers failed")
}

// statsQuery holds query parameters for the stats endpoint.
type statsQuery struct {
	Location string `validate:"required"`
	Refresh  bool
}

func (q *statsQuery) bind(c *fiber.Ctx) error {
	q.Location = c.Query("location")
	q.Refresh = c.QueryBool("refresh")
	return validate.Struct(q)
}

// seriesQuery holds query parameters for the series endpoint.
type seriesQuery struct {
	Location string `validate:"required"`
	Window   market.Window
}

func (q *seriesQuery) bind(c *fiber.Ctx) error {
	q.Location = c.Query("location")
	if err := validate.Struct(q); err != nil {
		return err
	}

	window, err := market.ParseWindow(c.Query("window", "MAX"))
	if err != nil {
		return err
	}
	q.Window = window
	return nil
}
