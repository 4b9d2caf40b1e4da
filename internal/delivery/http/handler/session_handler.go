package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/pkg/utils"
	"github.com/geo-drilldown/internal/pkg/validator"
	"github.com/geo-drilldown/internal/usecase"
	"github.com/geo-drilldown/internal/usecase/dto"
)

// SessionHandler exposes drill-down sessions.
type SessionHandler struct {
	drillUC *usecase.DrillDownUseCase
	logger  *zap.Logger
}

func NewSessionHandler(drillUC *usecase.DrillDownUseCase, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		drillUC: drillUC,
		logger:  logger,
	}
}

// Create godoc
// @Summary Open a drill-down session
// @Description Creates a session positioned at the region level and returns its first frame
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body dto.CreateSessionRequest false "Initial metric"
// @Success 201 {object} utils.SuccessResponse{data=dto.SessionCreatedResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.drillUC.CreateSession(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendCreated(c, result, &utils.Meta{SessionID: result.SessionID})
}

// Get godoc
// @Summary Current frame
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} utils.SuccessResponse{data=dto.Frame}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	frame, err := h.drillUC.GetFrame(c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.sendFrame(c, frame)
}

// Delete godoc
// @Summary Close a session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	if err := h.drillUC.DeleteSession(c.Params("id")); err != nil {
		return utils.SendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Select godoc
// @Summary Select a feature
// @Description Drills into the feature at the current level. At the municipality level the feature becomes the selected leaf.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.SelectRequest true "Feature code"
// @Success 200 {object} utils.SuccessResponse{data=dto.Frame}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/select [post]
func (h *SessionHandler) Select(c *fiber.Ctx) error {
	var req dto.SelectRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}
	req.Wait = req.Wait || c.QueryBool("wait")

	frame, err := h.drillUC.Select(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.sendFrame(c, frame)
}

// Navigate godoc
// @Summary Navigate to a level
// @Description Moves to a coarser level, or stays put when the path lacks the needed ancestor
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.NavigateRequest true "Target level"
// @Success 200 {object} utils.SuccessResponse{data=dto.Frame}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/navigate [post]
func (h *SessionHandler) Navigate(c *fiber.Ctx) error {
	var req dto.NavigateRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}
	req.Wait = req.Wait || c.QueryBool("wait")

	frame, err := h.drillUC.Navigate(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.sendFrame(c, frame)
}

// Reset godoc
// @Summary Reset to the region view
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param wait query bool false "Block until the transition settles"
// @Success 200 {object} utils.SuccessResponse{data=dto.Frame}
// @Router /api/v1/sessions/{id}/reset [post]
func (h *SessionHandler) Reset(c *fiber.Ctx) error {
	var req dto.WaitRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	req.Wait = req.Wait || c.QueryBool("wait")

	frame, err := h.drillUC.Reset(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.sendFrame(c, frame)
}

// Retry godoc
// @Summary Retry the last failed load
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param wait query bool false "Block until the transition settles"
// @Success 200 {object} utils.SuccessResponse{data=dto.Frame}
// @Router /api/v1/sessions/{id}/retry [post]
func (h *SessionHandler) Retry(c *fiber.Ctx) error {
	var req dto.WaitRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	req.Wait = req.Wait || c.QueryBool("wait")

	frame, err := h.drillUC.Retry(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.sendFrame(c, frame)
}

// Jump godoc
// @Summary Jump to a resident feature
// @Description Rebuilds the selection path for a feature found through search
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.JumpRequest true "Target feature"
// @Success 200 {object} utils.SuccessResponse{data=dto.Frame}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/jump [post]
func (h *SessionHandler) Jump(c *fiber.Ctx) error {
	var req dto.JumpRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}
	req.Wait = req.Wait || c.QueryBool("wait")

	frame, err := h.drillUC.Jump(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.sendFrame(c, frame)
}

// SetMetric godoc
// @Summary Change the displayed metric
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.MetricRequest true "Metric"
// @Success 200 {object} utils.SuccessResponse{data=dto.Frame}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/metric [put]
func (h *SessionHandler) SetMetric(c *fiber.Ctx) error {
	var req dto.MetricRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	frame, err := h.drillUC.SetMetric(c.Params("id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.sendFrame(c, frame)
}

// Hover godoc
// @Summary Set or clear the hovered feature
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.HoverRequest true "Feature code, empty to clear"
// @Success 200 {object} utils.SuccessResponse{data=dto.Frame}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/hover [put]
func (h *SessionHandler) Hover(c *fiber.Ctx) error {
	var req dto.HoverRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	frame, err := h.drillUC.SetHover(c.Params("id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.sendFrame(c, frame)
}

// Search godoc
// @Summary Search loaded locations
// @Description Case-insensitive substring match over every level loaded in the session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param q query string true "Query"
// @Param limit query int false "Maximum results" default(50)
// @Success 200 {object} utils.SuccessResponse{data=dto.SearchResponse}
// @Router /api/v1/sessions/{id}/search [get]
func (h *SessionHandler) Search(c *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := parseQuery(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.drillUC.Search(c.Params("id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, result, &utils.Meta{Total: result.Total, Limit: req.Limit, SessionID: c.Params("id")})
}

// Legend godoc
// @Summary Legend for the current view
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param steps query int false "Number of legend steps" default(5)
// @Success 200 {object} utils.SuccessResponse{data=dto.LegendResponse}
// @Router /api/v1/sessions/{id}/legend [get]
func (h *SessionHandler) Legend(c *fiber.Ctx) error {
	var req dto.LegendRequest
	if err := parseQuery(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.drillUC.Legend(c.Params("id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, result, nil)
}

func (h *SessionHandler) sendFrame(c *fiber.Ctx, frame *dto.Frame) error {
	return utils.SendSuccess(c, frame, &utils.Meta{
		Total:     len(frame.Features),
		SessionID: frame.SessionID,
	})
}
