// Package handler provides HTTP handlers for the deployment status API.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Bidon15/indicator-deployer/internal/pkg/response"
	"github.com/Bidon15/indicator-deployer/internal/pkg/ulid"
	"github.com/Bidon15/indicator-deployer/internal/repository"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 500

// DeploymentReader is the read side of the deployment ledger.
type DeploymentReader interface {
	GetDeployment(ctx context.Context, id uuid.UUID) (*repository.Deployment, error)
	GetDeploymentByRunID(ctx context.Context, runID string) (*repository.Deployment, error)
	ListDeployments(ctx context.Context, limit int) ([]*repository.Deployment, error)
}

// DeploymentHandler serves recorded deployment runs.
type DeploymentHandler struct {
	repo   DeploymentReader
	logger *slog.Logger
}

// NewDeploymentHandler creates a new deployment handler.
func NewDeploymentHandler(repo DeploymentReader, logger *slog.Logger) *DeploymentHandler {
	return &DeploymentHandler{repo: repo, logger: logger}
}

// Routes returns a chi router with deployment routes.
func (h *DeploymentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}

// List handles GET /api/v1/deployments
func (h *DeploymentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := repository.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.ValidationError(w, "limit", "must be a positive integer")
			return
		}
		limit = min(n, MaxListLimit)
	}

	deployments, err := h.repo.ListDeployments(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list deployments", slog.String("error", err.Error()))
		response.InternalError(w)
		return
	}
	if deployments == nil {
		deployments = []*repository.Deployment{}
	}

	response.JSONWithMeta(w, http.StatusOK, deployments, &response.Meta{
		PerPage: limit,
		Total:   int64(len(deployments)),
	})
}

// Get handles GET /api/v1/deployments/{id}
//
// The id is either a deployment UUID or a run id.
func (h *DeploymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		deployment *repository.Deployment
		err        error
	)
	switch {
	case ulid.IsValid(id):
		deployment, err = h.repo.GetDeploymentByRunID(r.Context(), id)
	default:
		deploymentID, parseErr := uuid.Parse(id)
		if parseErr != nil {
			response.ValidationError(w, "id", "must be a deployment UUID or run id")
			return
		}
		deployment, err = h.repo.GetDeployment(r.Context(), deploymentID)
	}

	if errors.Is(err, repository.ErrNotFound) {
		response.NotFound(w, "Deployment")
		return
	}
	if err != nil {
		h.logger.Error("failed to get deployment",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		response.InternalError(w)
		return
	}

	response.OK(w, deployment)
}
