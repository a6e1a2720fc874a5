// Package http provides http transport for model scoring
package http

import (
	stdhttp "net/http"

	"churnlearn/internal/modkit/httpkit"
	"churnlearn/internal/modkit/swaggerkit"
	"churnlearn/internal/platform/logger"
	"churnlearn/internal/services/api/scoring/domain"
	svc "churnlearn/internal/services/api/scoring/service"
)

// Register mounts model endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{key}", h.describe)
	httpkit.PostJSON[domain.ScoreInput](r, "/{key}/score", h.score)
}

// Document adds the model endpoints to the served swagger spec
func Document() {
	swaggerkit.Register(swaggerkit.AddPath("/models", "get", "Models", "Persisted models, newest first"))
	swaggerkit.Register(swaggerkit.AddPath("/models/{key}", "get", "Models", "Model metadata and the input schema it was fit on"))
	swaggerkit.Register(swaggerkit.AddPath("/models/{key}/score", "post", "Models", "Churn probability per row"))
}

type handlers struct{ svc svc.Service }

// swagger:route GET /models Models modelsList
// @Summary Persisted models, newest first
// @Tags Models
// @Produce json
// @Success 200 {array} domain.ModelSummary "ok"
// @Router /models [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	return h.svc.List(r.Context())
}

// swagger:route GET /models/{key} Models modelsDescribe
// @Summary Model metadata and the input schema it was fit on
// @Tags Models
// @Produce json
// @Param key path string true "Model key"
// @Success 200 {object} domain.ModelInfo "ok"
// @Router /models/{key} [get]
func (h *handlers) describe(r *stdhttp.Request) (any, error) {
	return h.svc.Describe(r.Context(), httpkit.URLParam(r, "key"))
}

// swagger:route POST /models/{key}/score Models modelsScore
// @Summary Churn probability per row
// @Tags Models
// @Accept json
// @Produce json
// @Param key path string true "Model key"
// @Param payload body domain.ScoreInput true "Rows"
// @Success 200 {object} domain.ScoreOutput "ok"
// @Failure 401 {object} httpkit.Envelope "missing or unknown token when CORE_API_TOKENS is set"
// @Failure 409 {object} httpkit.Envelope "rows lack fitted columns"
// @Router /models/{key}/score [post]
func (h *handlers) score(r *stdhttp.Request, in domain.ScoreInput) (any, error) {
	ctx := logger.WithClient(r.Context(), httpkit.ClientOr(r, ""))
	return h.svc.Score(ctx, httpkit.URLParam(r, "key"), in)
}
