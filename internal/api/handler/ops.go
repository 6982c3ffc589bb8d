// Package handler provides HTTP handlers for the stepfree API.
package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/stepfree/stepfree/internal/api/models"
	"github.com/stepfree/stepfree/internal/api/response"
	"github.com/stepfree/stepfree/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. The service is
// ready unless the transit provider's circuit is open: without facility data
// there is nothing to serve.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	httpStatus := http.StatusOK

	if h.registry != nil {
		for _, provider := range h.registry.GetAllHealth() {
			if !provider.IsHealthy() && !provider.IsDegraded() {
				status = models.HealthStatusFail
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
	}

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, httpStatus, health)
}

// SystemStatus handles GET /v1/ops/status - per-provider health.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      now,
		Providers: []models.ProviderStatus{},
	}

	if h.registry != nil {
		for _, provider := range h.registry.GetAllHealth() {
			ps := models.ProviderStatus{
				Provider: provider.Name,
				Status:   providerHealthStatus(provider),
			}
			if provider.LastSuccessAt != nil {
				t := models.Timestamp(*provider.LastSuccessAt)
				ps.LastSuccessAt = &t
			}
			if provider.LastFailureAt != nil {
				t := models.Timestamp(*provider.LastFailureAt)
				ps.LastFailureAt = &t
			}
			status.Providers = append(status.Providers, ps)

			if ps.Status == models.HealthStatusFail {
				status.Status = models.HealthStatusFail
			} else if ps.Status == models.HealthStatusDegraded && status.Status == models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
		}
	}

	sort.Slice(status.Providers, func(i, j int) bool {
		return status.Providers[i].Provider < status.Providers[j].Provider
	})

	response.JSON(w, r, http.StatusOK, status)
}

func providerHealthStatus(provider *resilience.ProviderHealth) models.HealthStatus {
	switch {
	case provider.IsHealthy():
		return models.HealthStatusOK
	case provider.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusFail
	}
}
