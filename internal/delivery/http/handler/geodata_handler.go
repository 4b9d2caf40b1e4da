package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/pkg/utils"
	"github.com/geo-drilldown/internal/pkg/validator"
	"github.com/geo-drilldown/internal/usecase"
	"github.com/geo-drilldown/internal/usecase/dto"
)

type GeoDataHandler struct {
	drillUC *usecase.DrillDownUseCase
	logger  *zap.Logger
}

func NewGeoDataHandler(drillUC *usecase.DrillDownUseCase, logger *zap.Logger) *GeoDataHandler {
	return &GeoDataHandler{
		drillUC: drillUC,
		logger:  logger,
	}
}

// GetScope godoc
// @Summary Read one geodata scope
// @Description Returns the children of parent at level from the configured source. Other instances use this endpoint as their http source.
// @Tags GeoData
// @Produce json
// @Param level path string true "regions, provinces or municipalities"
// @Param parent query string false "Parent code, required below regions"
// @Success 200 {object} utils.SuccessResponse{data=[]domain.GeoFeature}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /api/v1/geodata/{level} [get]
func (h *GeoDataHandler) GetScope(c *fiber.Ctx) error {
	req := dto.GeoDataRequest{
		Level:  c.Params("level"),
		Parent: c.Query("parent"),
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	features, err := h.drillUC.GeoData(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, features, &utils.Meta{Total: len(features)})
}

// Health godoc
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /api/v1/health [get]
func (h *GeoDataHandler) Health(c *fiber.Ctx) error {
	return c.JSON(dto.HealthResponse{
		Status:   "healthy",
		Sessions: h.drillUC.SessionCount(),
	})
}
