package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/domainsync/domainsync/client"
	"github.com/domainsync/domainsync/internal/constants"
	"github.com/domainsync/domainsync/internal/state"
	"github.com/domainsync/domainsync/internal/store"
	"github.com/gin-gonic/gin"
)

const maxPayloadBytes = 64 << 10

// Dependencies are the collaborators of the admin API.
type Dependencies struct {
	Jobs     store.JobStore
	Domains  store.DomainStore
	Enqueuer client.Enqueuer
	// Registered reports whether a job name can be dispatched by the workers.
	Registered func(name string) bool
	Logger     *slog.Logger
}

type HttpRouteHandler struct {
	jobs       store.JobStore
	domains    store.DomainStore
	enqueuer   client.Enqueuer
	registered func(name string) bool
	logger     *slog.Logger
}

func NewRouteHandler(deps Dependencies) *HttpRouteHandler {
	return &HttpRouteHandler{
		jobs:       deps.Jobs,
		domains:    deps.Domains,
		enqueuer:   deps.Enqueuer,
		registered: deps.Registered,
		logger:     deps.Logger,
	}
}

// Router builds the gin engine serving the admin API.
func (h *HttpRouteHandler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(h.logger))

	r.GET("/healthz", h.health)

	jobs := r.Group("/jobs")
	{
		jobs.GET("", h.listJobs)
		jobs.GET("/stats", h.jobStats)
		jobs.GET("/:id", h.getJob)
		jobs.POST("/:name", h.enqueueJob)
	}

	r.GET("/domains", h.listDomains)
	return r
}

func (h *HttpRouteHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HttpRouteHandler) listJobs(c *gin.Context) {
	status := state.JobStatus(strings.TrimSpace(c.Query("status")))
	if status != "" {
		parsed, err := state.ParseJobStatus(string(status))
		if err != nil {
			errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		status = parsed
	}

	result, err := h.jobs.List(c.Request.Context(), getPageNumber(c), getPageSize(c), status)
	if err != nil {
		c.Error(err)
		errorResponse(c, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HttpRouteHandler) jobStats(c *gin.Context) {
	counts, err := h.jobs.CountAllJobsGroupedByStatus(c.Request.Context())
	if err != nil {
		c.Error(err)
		errorResponse(c, http.StatusInternalServerError, "failed to count jobs")
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *HttpRouteHandler) getJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		errorResponse(c, http.StatusBadRequest, "job id must be a positive integer")
		return
	}

	job, err := h.jobs.FindByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrJobNotFound) {
		errorResponse(c, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		c.Error(err)
		errorResponse(c, http.StatusInternalServerError, "failed to load job")
		return
	}
	c.JSON(http.StatusOK, job)
}

// enqueueJob enqueues a registered job by name. An empty body enqueues the job with no
// parameters, otherwise the body is stored as the job payload.
func (h *HttpRouteHandler) enqueueJob(c *gin.Context) {
	name := c.Param("name")
	if h.registered == nil || !h.registered(name) {
		errorResponse(c, http.StatusNotFound, "unknown job "+name)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > maxPayloadBytes {
		errorResponse(c, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	payload := json.RawMessage("{}")
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		if !json.Valid([]byte(trimmed)) {
			errorResponse(c, http.StatusBadRequest, "payload must be valid JSON")
			return
		}
		payload = json.RawMessage(trimmed)
	}

	id, err := h.enqueuer.Enqueue(c.Request.Context(), name, payload, constants.HTTPContext)
	if err != nil {
		c.Error(err)
		errorResponse(c, http.StatusInternalServerError, "failed to enqueue job")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "name": name})
}

func (h *HttpRouteHandler) listDomains(c *gin.Context) {
	records, err := h.domains.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		errorResponse(c, http.StatusInternalServerError, "failed to list domains")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": records, "total_items": len(records)})
}
