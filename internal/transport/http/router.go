package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fundview/internal/catalog"
	"fundview/internal/export"
	"fundview/internal/funding"
	"fundview/internal/gateway/deribit"
	"fundview/internal/service"
	"fundview/internal/store/fetchlog"
	"fundview/internal/visual"
)

// FundingBackend is the service surface the router consumes.
type FundingBackend interface {
	Refresh(ctx context.Context, instrument string) (service.Snapshot, error)
	Snapshot(ctx context.Context, instrument string) (service.Snapshot, bool)
}

// FetchAudit lists recent fetch attempts.
type FetchAudit interface {
	Recent(ctx context.Context, limit int) ([]fetchlog.Record, error)
}

// Router wires the funding endpoints.
type Router struct {
	backend  FundingBackend
	registry *catalog.Registry
	exporter *export.MonthlyCSV
	audit    FetchAudit
	oldest   funding.MonthKey
}

func NewRouter(backend FundingBackend, registry *catalog.Registry, exporter *export.MonthlyCSV, audit FetchAudit, oldest funding.MonthKey) *Router {
	return &Router{
		backend:  backend,
		registry: registry,
		exporter: exporter,
		audit:    audit,
		oldest:   oldest,
	}
}

// Register mounts the /api/funding group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/instruments", r.handleInstruments)
	group.GET("/history", r.handleHistory)
	group.GET("/monthly", r.handleMonthly)
	group.GET("/stats", r.handleStats)
	group.POST("/refresh", r.handleRefresh)
	group.GET("/chart.png", r.handleChartPNG)
	group.GET("/export.csv", r.handleExportCSV)
	group.GET("/fetches", r.handleFetches)
}

// instrument resolves and validates the requested instrument, falling back
// to the catalog default.
func (r *Router) instrument(c *gin.Context) (string, bool) {
	name := strings.TrimSpace(c.Query("instrument"))
	if name == "" {
		def, ok := r.registry.Default()
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "instrument catalog is empty"})
			return "", false
		}
		return def.Name, true
	}
	if !r.registry.Has(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown instrument: " + name})
		return "", false
	}
	return name, true
}

func (r *Router) handleInstruments(c *gin.Context) {
	snap := r.registry.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version":     snap.Version,
		"instruments": snap.Instruments,
	})
}

func (r *Router) handleHistory(c *gin.Context) {
	name, ok := r.instrument(c)
	if !ok {
		return
	}
	snap, _ := r.backend.Snapshot(c.Request.Context(), name)

	// optional from/to months restart the cumulative total inside the window
	fromQ, toQ := strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to"))
	if fromQ != "" || toQ != "" {
		from, to, err := parseMonthRange(fromQ, toQ, r.oldest)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		samples := make([]funding.Sample, len(snap.Points))
		for i, p := range snap.Points {
			samples[i] = funding.Sample{Timestamp: p.Timestamp, Rate: p.Rate, Rate8H: p.Rate8H, Instrument: name}
		}
		snap.Points = funding.CumulateWindow(samples, from.Start(), to.Next().Start())
	}
	c.JSON(http.StatusOK, snap)
}

// parseMonthRange resolves an optional month window, defaulting from to the
// history floor and to to the current month.
func parseMonthRange(fromQ, toQ string, oldest funding.MonthKey) (funding.MonthKey, funding.MonthKey, error) {
	from := oldest
	if fromQ != "" {
		parsed, err := funding.ParseMonth(fromQ)
		if err != nil {
			return funding.MonthKey{}, funding.MonthKey{}, err
		}
		from = parsed
	}
	to := funding.MonthOf(timeNow())
	if toQ != "" {
		parsed, err := funding.ParseMonth(toQ)
		if err != nil {
			return funding.MonthKey{}, funding.MonthKey{}, err
		}
		to = parsed
	}
	if to.Before(from) {
		return funding.MonthKey{}, funding.MonthKey{}, fmt.Errorf("range inverted: %s after %s", from, to)
	}
	return from, to, nil
}

func (r *Router) handleMonthly(c *gin.Context) {
	name, ok := r.instrument(c)
	if !ok {
		return
	}
	snap, _ := r.backend.Snapshot(c.Request.Context(), name)
	months := snap.Months
	if parseBool(c.Query("annualized")) {
		annualized := make([]funding.MonthlyTotal, len(months))
		for i, m := range months {
			annualized[i] = funding.MonthlyTotal{Month: m.Month, Total: funding.Annualize(m.Total)}
		}
		months = annualized
	}
	c.JSON(http.StatusOK, gin.H{
		"instrument": name,
		"months":     months,
		"annualized": parseBool(c.Query("annualized")),
	})
}

func (r *Router) handleStats(c *gin.Context) {
	name, ok := r.instrument(c)
	if !ok {
		return
	}
	snap, _ := r.backend.Snapshot(c.Request.Context(), name)
	c.JSON(http.StatusOK, gin.H{
		"instrument": name,
		"stats":      snap.Stats,
		"fetched_at": snap.FetchedAt,
	})
}

func (r *Router) handleRefresh(c *gin.Context) {
	name, ok := r.instrument(c)
	if !ok {
		return
	}
	snap, err := r.backend.Refresh(c.Request.Context(), name)
	if err != nil {
		var apiErr *deribit.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"instrument": name,
		"samples":    len(snap.Points),
		"months":     len(snap.Months),
	})
}

func (r *Router) handleDashboard(c *gin.Context) {
	name, ok := r.instrument(c)
	if !ok {
		return
	}
	snap, _ := r.backend.Snapshot(c.Request.Context(), name)
	html, err := visual.BuildPage(visual.PageInput{
		Instrument: name,
		Points:     snap.Points,
		Months:     snap.Months,
		Annualized: parseBool(c.Query("annualized")),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (r *Router) handleChartPNG(c *gin.Context) {
	name, ok := r.instrument(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	snap, _ := r.backend.Snapshot(ctx, name)
	html, err := visual.BuildPage(visual.PageInput{
		Instrument: name,
		Points:     snap.Points,
		Months:     snap.Months,
		Annualized: parseBool(c.Query("annualized")),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	png, err := renderPNG(ctx, html, visual.PageWidth(), visual.PageHeight())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "headless chrome unavailable: " + err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (r *Router) handleExportCSV(c *gin.Context) {
	if r.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export disabled"})
		return
	}
	from, to, err := parseMonthRange(strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to")), r.oldest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := r.exporter.Write(c.Request.Context(), &buf, r.registry.Names(), from, to); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="funding_monthly_wide.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (r *Router) handleFetches(c *gin.Context) {
	if r.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "fetch log disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	records, err := r.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fetches": records})
}

// timeNow is swapped in tests to pin the default export range.
var timeNow = time.Now

// renderPNG is swapped in tests to avoid a real browser.
var renderPNG = visual.RenderPNG

func parseBool(v string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && parsed
}
