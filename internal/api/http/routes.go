package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/regional-forecast/internal/location"
	"github.com/i474232898/regional-forecast/internal/weather"
)

var validate = validator.New()

// Locator bundles what the location endpoint needs. Both fields may be nil,
// in which case the endpoint always reports the permission as missing.
type Locator struct {
	Gate     location.PermissionGate
	Provider location.Provider
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, ctrl *weather.RefreshController, locator Locator) {
	v1 := app.Group("/api/v1")

	v1.Get("/regions", func(c *fiber.Ctx) error {
		named := weather.NamedRegions()
		views := make([]regionView, 0, len(named))
		for _, r := range named {
			views = append(views, toRegionView(r))
		}
		return c.JSON(fiber.Map{"regions": views})
	})

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(toStateView(ctrl.State()))
	})

	v1.Put("/region", func(c *fiber.Ctx) error {
		q, err := parseRegionQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctrl.SelectRegion(q.toRegion())
		return c.JSON(toStateView(ctrl.State()))
	})

	v1.Post("/region/location", func(c *fiber.Ctx) error {
		region, err := location.Resolve(c.UserContext(), locator.Gate, locator.Provider)
		switch {
		case errors.Is(err, location.ErrPermissionDenied):
			return fiber.NewError(fiber.StatusForbidden, "location permission not granted")
		case err != nil:
			return fiber.NewError(fiber.StatusNotFound, "could not determine current location")
		}

		ctrl.SelectRegion(region)
		return c.JSON(toStateView(ctrl.State()))
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		done, started := ctrl.Refresh(c.UserContext())
		if !started {
			return fiber.NewError(fiber.StatusConflict, "a refresh is already in progress")
		}

		if c.QueryBool("wait") {
			select {
			case <-done:
			case <-c.UserContext().Done():
			}
			return c.JSON(toStateView(ctrl.State()))
		}
		return c.Status(fiber.StatusAccepted).JSON(toStateView(ctrl.State()))
	})

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		loc := time.UTC
		if tz := c.Query("tz"); tz != "" {
			l, err := time.LoadLocation(tz)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid tz")
			}
			loc = l
		}

		state := ctrl.State()
		forecast := state.CurrentForecast()
		if forecast == nil {
			return fiber.NewError(fiber.StatusNotFound, "no forecast for selected region")
		}
		return c.JSON(toForecastView(state, forecast, loc))
	})
}

// regionQuery holds query parameters selecting a region: either a named
// city or a coordinate pair.
type regionQuery struct {
	City string   `validate:"omitempty,oneof=Tokyo Hyogo Oita Hokkaido"`
	Lat  *float64 `validate:"omitempty,gte=-90,lte=90"`
	Lon  *float64 `validate:"omitempty,gte=-180,lte=180"`
}

func (q regionQuery) toRegion() weather.Region {
	if q.City != "" {
		r, _ := weather.LookupNamedRegion(q.City)
		return r
	}
	return weather.NewGeoRegion(*q.Lat, *q.Lon)
}

func parseRegionQuery(c *fiber.Ctx) (regionQuery, error) {
	var q regionQuery

	q.City = c.Query("city")
	var err error
	if q.Lat, err = queryFloat(c, "lat"); err != nil {
		return q, err
	}
	if q.Lon, err = queryFloat(c, "lon"); err != nil {
		return q, err
	}

	if err = validate.Struct(q); err != nil {
		return q, err
	}

	hasCoord := q.Lat != nil || q.Lon != nil
	switch {
	case q.City != "" && hasCoord:
		return q, errors.New("use either city or lat/lon, not both")
	case q.City == "" && !hasCoord:
		return q, errors.New("city or lat/lon is required")
	case hasCoord && (q.Lat == nil || q.Lon == nil):
		return q, errors.New("lat and lon must be given together")
	}
	return q, nil
}

// queryFloat parses an optional numeric query parameter. nil means absent.
func queryFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &v, nil
}
