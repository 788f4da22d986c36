package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sagarsarangi/startup-check/internal/pipeline"
	"github.com/sagarsarangi/startup-check/internal/store"
	"github.com/sagarsarangi/startup-check/models"
)

// displayNameLimit caps competitor names in responses. Storage keeps the full
// name; only the rendered view is truncated.
const displayNameLimit = 25

// AnalysesHandler exposes the pipeline to the form (submit) and to the
// rendering page (latest/status/clear).
type AnalysesHandler struct {
	Controller *pipeline.Controller
	Store      store.Store
	Logger     *log.Logger
}

func (h *AnalysesHandler) Register(g *echo.Group) {
	g.POST("", h.submit)
	g.GET("/latest", h.latest)
	g.GET("/status", h.status)
	g.DELETE("/latest", h.clear)
}

type analysisResponse struct {
	Input   models.StartupInput   `json:"input"`
	Result  models.AnalysisResult `json:"result"`
	SavedAt time.Time             `json:"saved_at"`
}

// errorResponse is the user-visible failure shape: a generic notice plus the
// error kind and the submitted input, so the form can offer a retype-free
// retry. Diagnostic detail stays in the logs.
type errorResponse struct {
	Error string               `json:"error"`
	Kind  pipeline.ErrorKind   `json:"kind,omitempty"`
	Input *models.StartupInput `json:"input,omitempty"`
}

func (h *AnalysesHandler) submit(c echo.Context) error {
	sessionID := c.Get("session_id").(string)

	var input models.StartupInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	pair, err := h.Controller.Submit(c.Request().Context(), sessionID, input)
	if err != nil {
		if errors.Is(err, models.ErrEmptyField) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, pipeline.ErrRunInFlight) {
			return c.JSON(http.StatusConflict, errorResponse{
				Error: "an analysis is already running for this session",
			})
		}

		kind := pipeline.Classify(err)
		h.logf("submit failed: session=%s kind=%s err=%v", sessionID, kind, err)
		return c.JSON(statusForKind(kind), errorResponse{
			Error: "analysis failed, please try again",
			Kind:  kind,
			Input: &input,
		})
	}

	c.Response().Header().Set("Location", "/api/analyses/latest")
	return c.JSON(http.StatusCreated, renderPair(pair))
}

func (h *AnalysesHandler) latest(c echo.Context) error {
	sessionID := c.Get("session_id").(string)

	pair, err := h.Store.Load(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNoAnalysis) {
			return echo.NewHTTPError(http.StatusNotFound, "no analysis saved")
		}
		h.logf("load failed: session=%s err=%v", sessionID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load analysis")
	}
	// Storage is re-checked before anything reaches rendering.
	if err := pair.Result.Validate(); err != nil {
		h.logf("stored result invalid: session=%s err=%v", sessionID, err)
		return echo.NewHTTPError(http.StatusNotFound, "no analysis saved")
	}
	return c.JSON(http.StatusOK, renderPair(pair))
}

func (h *AnalysesHandler) status(c echo.Context) error {
	sessionID := c.Get("session_id").(string)
	return c.JSON(http.StatusOK, h.Controller.Status(sessionID))
}

func (h *AnalysesHandler) clear(c echo.Context) error {
	sessionID := c.Get("session_id").(string)
	if err := h.Store.Clear(c.Request().Context(), sessionID); err != nil {
		h.logf("clear failed: session=%s err=%v", sessionID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not clear analysis")
	}
	return c.NoContent(http.StatusNoContent)
}

// renderPair prepares the read-only view: competitor names display-truncated,
// everything else verbatim.
func renderPair(pair store.Pair) analysisResponse {
	result := pair.Result
	result.CompetitorScore = append([]models.CompetitorScore(nil), pair.Result.CompetitorScore...)
	for i := range result.CompetitorScore {
		result.CompetitorScore[i].Name = truncateName(result.CompetitorScore[i].Name)
	}
	return analysisResponse{Input: pair.Input, Result: result, SavedAt: pair.SavedAt}
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= displayNameLimit {
		return name
	}
	return string(runes[:displayNameLimit])
}

// statusForKind maps an error kind to an HTTP status: a missing credential is
// a deployment problem, store failures are ours, everything else came from the
// upstream model.
func statusForKind(kind pipeline.ErrorKind) int {
	switch kind {
	case pipeline.KindMissingCredential:
		return http.StatusServiceUnavailable
	case pipeline.KindPersistenceFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (h *AnalysesHandler) logf(format string, args ...interface{}) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
