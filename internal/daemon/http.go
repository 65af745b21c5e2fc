package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/theirongolddev/kpicast/internal/model"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ForecastsResponse is served at /v1/forecasts.
type ForecastsResponse struct {
	RunID    string              `json:"run_id"`
	At       time.Time           `json:"at"`
	Columns  []string            `json:"columns"`
	Rows     []model.ForecastRow `json:"rows"`
	Outcomes []model.Outcome     `json:"outcomes"`
	Message  string              `json:"message,omitempty"`
}

// MerchantsResponse is served at /v1/merchants/:id.
type MerchantsResponse struct {
	Query   string               `json:"query"`
	Matches []model.StatusRecord `json:"matches"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.recoverMiddleware(), s.requestLogging())

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	g := e.Group("/v1")
	g.GET("/status", s.handleStatus)
	g.GET("/forecasts", s.handleForecasts)
	g.GET("/forecasts/:indicator", s.handleForecast)
	g.GET("/merchants/:id", s.handleMerchants)
	g.POST("/refresh", s.handleRefresh)
	g.GET("/events", s.handleEvents)
	g.GET("/stream", s.handleStream)
	return e
}

func (s *Service) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok\n")
}

func (s *Service) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleForecasts(c echo.Context) error {
	res, summary, lastErr := s.current()
	if res == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: noResultMessage(lastErr)})
	}
	resp := ForecastsResponse{
		RunID:    summary.RunID,
		At:       summary.At,
		Columns:  model.ColumnLabels(c.QueryParam("lang")),
		Rows:     res.Rows,
		Outcomes: res.Outcomes,
	}
	if res.Empty() {
		resp.Message = "no forecasts available"
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Service) handleForecast(c echo.Context) error {
	res, _, lastErr := s.current()
	if res == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: noResultMessage(lastErr)})
	}
	name, err := url.PathUnescape(c.Param("indicator"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed indicator name"})
	}
	row, ok := res.Row(name)
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("no forecast for indicator %q", name)})
	}
	return c.JSON(http.StatusOK, row)
}

func (s *Service) handleMerchants(c echo.Context) error {
	s.mu.RLock()
	lookup, statusErr := s.statuses, s.statusErr
	s.mu.RUnlock()
	if lookup == nil {
		msg := "status table not loaded"
		if statusErr != "" {
			msg = statusErr
		}
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: msg})
	}

	query, err := url.PathUnescape(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed merchant id"})
	}
	matches, err := lookup.Lookup(query)
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Msg("status lookup failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "status lookup failed"})
	}
	if matches == nil {
		matches = []model.StatusRecord{}
	}
	return c.JSON(http.StatusOK, MerchantsResponse{Query: query, Matches: matches})
}

func (s *Service) handleRefresh(c echo.Context) error {
	summary, _ := s.Refresh(TriggerManual, true)
	if summary.Error != "" {
		return c.JSON(http.StatusInternalServerError, summary)
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Service) handleEvents(c echo.Context) error {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	return c.JSON(http.StatusOK, events)
}

func (s *Service) handleStream(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send the latest run immediately.
	writeSSE(w, Event{Type: EventRun, Timestamp: time.Now(), Run: s.latestRun()})
	w.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			writeSSE(w, ev)
			w.Flush()
		}
	}
}

func writeSSE(w io.Writer, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func noResultMessage(lastErr string) string {
	if lastErr != "" {
		return lastErr
	}
	return "no completed run yet"
}

func (s *Service) requestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			s.log.Debug().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("request")
			return err
		}
	}
}

func (s *Service) recoverMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().
						Str("panic", fmt.Sprint(r)).
						Bytes("stack", debug.Stack()).
						Msg("handler panic")
					err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
				}
			}()
			return next(c)
		}
	}
}
