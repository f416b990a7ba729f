package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"runlytics/internal/analysis"
	"runlytics/internal/service"
)

const dateLayout = "2006-01-02"

// RegisterRoutes mounts the analytics routes on r
func RegisterRoutes(r fiber.Router, s *Server) {
	r.Get("/zones", func(c *fiber.Ctx) error {
		dr, err := s.dateRange(c)
		if err != nil {
			return err
		}
		g, err := granularity(c)
		if err != nil {
			return err
		}
		rows, err := s.analytics.GetZoneStats(c.Context(), dr, g)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"granularity": g, "rollups": nonNil(rows)})
	})

	r.Get("/fitness/trend", func(c *fiber.Ctx) error {
		dr, err := s.dateRange(c)
		if err != nil {
			return err
		}
		g, err := granularity(c)
		if err != nil {
			return err
		}
		points, err := s.analytics.GetFitnessTrend(c.Context(), dr, g)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"granularity": g, "points": nonNil(points)})
	})

	r.Get("/fitness/current", func(c *fiber.Ctx) error {
		current, err := s.analytics.GetCurrentFitness(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(current)
	})

	r.Get("/records", func(c *fiber.Ctx) error {
		w, err := timeWindow(c)
		if err != nil {
			return err
		}
		result, err := s.analytics.GetPersonalRecords(c.Context(), w)
		if err != nil {
			return err
		}
		return c.JSON(result)
	})

	r.Get("/pace-zones", func(c *fiber.Ctx) error {
		dr, err := s.dateRange(c)
		if err != nil {
			return err
		}
		var score float64
		if v := c.Query("fitness"); v != "" {
			score, err = strconv.ParseFloat(v, 64)
			if err != nil || score <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "fitness must be a positive number")
			}
		}
		bands, err := s.analytics.GetPaceZoneStats(c.Context(), score, dr)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"zones": nonNil(bands)})
	})

	r.Get("/training-form", func(c *fiber.Ctx) error {
		dr, err := s.dateRange(c)
		if err != nil {
			return err
		}
		form, err := s.analytics.GetTrainingForm(c.Context(), dr)
		if err != nil {
			return err
		}
		return c.JSON(form)
	})

	if s.rebuilder != nil {
		r.Post("/rollups/rebuild", func(c *fiber.Ctx) error {
			build, err := s.rebuilder.Rebuild(c.Context(), service.TriggerManual)
			if err != nil {
				return err
			}
			return c.Status(fiber.StatusAccepted).JSON(build)
		})
	}
}

// dateRange reads from/to as YYYY-MM-DD. to covers its whole day and
// defaults to now; from defaults to 90 days before to.
func (s *Server) dateRange(c *fiber.Ctx) (service.DateRange, error) {
	r := service.DateRange{End: s.now().UTC()}

	if v := c.Query("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return r, fiber.NewError(fiber.StatusBadRequest, "invalid to date: use YYYY-MM-DD")
		}
		r.End = endOfDay(to)
	}

	r.Start = r.End.Add(-service.DefaultQueryRange)
	if v := c.Query("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return r, fiber.NewError(fiber.StatusBadRequest, "invalid from date: use YYYY-MM-DD")
		}
		r.Start = from
	}

	if r.Start.After(r.End) {
		return r, fiber.NewError(fiber.StatusBadRequest, "from must not be after to")
	}
	return r, nil
}

// timeWindow reads from/to like dateRange but leaves missing ends open
func timeWindow(c *fiber.Ctx) (analysis.TimeWindow, error) {
	var w analysis.TimeWindow
	if v := c.Query("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return w, fiber.NewError(fiber.StatusBadRequest, "invalid from date: use YYYY-MM-DD")
		}
		w.From = from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return w, fiber.NewError(fiber.StatusBadRequest, "invalid to date: use YYYY-MM-DD")
		}
		w.To = endOfDay(to)
	}
	if !w.From.IsZero() && !w.To.IsZero() && w.From.After(w.To) {
		return w, fiber.NewError(fiber.StatusBadRequest, "from must not be after to")
	}
	return w, nil
}

func granularity(c *fiber.Ctx) (analysis.Granularity, error) {
	return analysis.ParseGranularity(c.Query("granularity", string(analysis.Week)))
}

func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Second)
}

// nonNil keeps empty results encoding as [] instead of null
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
