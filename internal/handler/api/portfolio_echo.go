package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"CoinScout/internal/domain/models"
	"CoinScout/internal/service/metrics"
	"CoinScout/internal/service/ratelimit"
	"CoinScout/internal/usecase"
	"CoinScout/pkg/config"
	xhttp "CoinScout/pkg/http"
	xlogger "CoinScout/pkg/logger"
)

// PortfolioService is the read and refresh surface of the orchestrator.
type PortfolioService interface {
	Portfolio() models.RankedPortfolio
	Stats() models.Stats
	Status() models.Status
	Refresh(ctx context.Context) (models.CycleReport, error)
}

const (
	refreshBurst      = 2
	refreshRatePerSec = 1.0 / 30
	refreshTimeout    = 2 * time.Minute
)

// PortfolioEchoHandler serves the ranked portfolio over HTTP.
type PortfolioEchoHandler struct {
	logger *xlogger.Logger
	svc    PortfolioService
	cfg    *config.Config
	rl     *ratelimit.Limiter
	now    func() time.Time
}

func NewPortfolioEchoHandler(logger *xlogger.Logger, svc PortfolioService, cfg *config.Config, rl *ratelimit.Limiter) *PortfolioEchoHandler {
	metrics.Register()
	if rl == nil {
		rl = ratelimit.New()
	}
	return &PortfolioEchoHandler{logger: logger, svc: svc, cfg: cfg, rl: rl, now: time.Now}
}

func (h *PortfolioEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api/v1")
	g.GET("/health", h.Health)
	g.GET("/portfolio", h.Portfolio)
	g.GET("/portfolio/:symbol", h.Asset)
	g.GET("/stats", h.Stats)
	g.GET("/status", h.Status)
	g.POST("/refresh", h.Refresh)
	g.GET("/export", h.Export)
}

func (h *PortfolioEchoHandler) Portfolio(c echo.Context) error {
	defer observe("portfolio", time.Now())
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("portfolio").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	p := h.svc.Portfolio()
	assets := models.RankedPortfolio{Coins: p.Search(req.Query)}.FilterByScore(req.MinScore)
	total := len(assets)
	if req.Limit > 0 && len(assets) > req.Limit {
		assets = assets[:req.Limit]
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, PortfolioView{
		Cards:      NewCards(assets, p),
		Total:      total,
		LastUpdate: p.LastUpdate,
		Synthetic:  p.Synthetic,
	})
}

func (h *PortfolioEchoHandler) Asset(c echo.Context) error {
	defer observe("asset", time.Now())
	req := &models.AssetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("asset").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	for i, coin := range h.svc.Portfolio().Coins {
		if coin.Symbol == symbol || coin.InstID == symbol {
			return xhttp.SuccessResponse(c, NewDetail(coin, i+1))
		}
	}
	return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset %s is not in the current portfolio", req.Symbol))
}

func (h *PortfolioEchoHandler) Stats(c echo.Context) error {
	defer observe("stats", time.Now())
	return xhttp.SuccessResponse(c, h.svc.Stats())
}

func (h *PortfolioEchoHandler) Status(c echo.Context) error {
	defer observe("status", time.Now())
	return xhttp.SuccessResponse(c, h.svc.Status())
}

func (h *PortfolioEchoHandler) Refresh(c echo.Context) error {
	defer observe("refresh", time.Now())
	if !h.rl.Allow(c.RealIP()+":refresh", refreshBurst, refreshRatePerSec) {
		h.logger.Warn("refresh rate limited", xlogger.String("remote", c.RealIP()))
		metrics.APIErrors.WithLabelValues("refresh").Inc()
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("refresh rate limit exceeded"))
	}

	// the cycle outlives a dropped client connection
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), refreshTimeout)
	defer cancel()

	report, err := h.svc.Refresh(ctx)
	switch {
	case errors.Is(err, usecase.ErrRefreshInProgress):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("a refresh is already running"))
	case err != nil:
		h.logger.Error("refresh failed", xlogger.Error(err))
		metrics.APIErrors.WithLabelValues("refresh").Inc()
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("market data unavailable").WithError(err))
	}
	return xhttp.AcceptedResponse(c, report)
}

func (h *PortfolioEchoHandler) Export(c echo.Context) error {
	defer observe("export", time.Now())
	req := &models.ExportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("export").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	now := h.now()
	p := h.svc.Portfolio()
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+usecase.ExportFilename(now, req.Format)+`"`)

	if req.Format == "csv" {
		c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
		c.Response().WriteHeader(http.StatusOK)
		if err := usecase.WriteCSV(c.Response(), p.Coins); err != nil {
			h.logger.Error("csv export failed", xlogger.Error(err))
			metrics.APIErrors.WithLabelValues("export").Inc()
			return err
		}
		return nil
	}
	return c.JSONPretty(http.StatusOK, usecase.NewExport(p, h.cfg, now), "  ")
}

func (h *PortfolioEchoHandler) Health(c echo.Context) error {
	st := h.svc.Status()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"state":      st.State,
		"lastUpdate": st.LastUpdate,
		"synthetic":  st.Synthetic,
	})
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

var _ xhttp.Handler = (*PortfolioEchoHandler)(nil)
