package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tirth-chokshi/strategy-backend/middleware"
	"github.com/Tirth-chokshi/strategy-backend/models"
	"github.com/Tirth-chokshi/strategy-backend/services"
)

// CreateStrategyInput keeps strategyDetails raw so a non-array value can be
// told apart from a missing one.
type CreateStrategyInput struct {
	StrategyName    string          `json:"strategyName"`
	Status          *bool           `json:"status"`
	StrategyDetails json.RawMessage `json:"strategyDetails"`
}

type AddDetailsInput struct {
	StrategyDetails json.RawMessage `json:"strategyDetails"`
}

type StrategyHandler struct {
	Strategies *services.StrategyService
	Logger     *zap.Logger
}

// decodeDetails accepts only a JSON array.
func decodeDetails(raw json.RawMessage) ([]models.StrategyDetailInput, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	out := []models.StrategyDetailInput{}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Create handler: new strategy owned by the caller
func (h *StrategyHandler) Create(c *gin.Context) {
	var input CreateStrategyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Strategy name and details are required")
		return
	}
	details, ok := decodeDetails(input.StrategyDetails)
	if !ok {
		badRequest(c, "Strategy name and details are required")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Strategies.Create(ctx, middleware.CurrentUser(c).ID, services.CreateStrategyInput{
		StrategyName:    input.StrategyName,
		Status:          input.Status,
		StrategyDetails: details,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    st,
		"message": "Strategy created successfully",
	})
}

// List handler: GET /strategies/get
func (h *StrategyHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Strategies.ListMine(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategies": items})
}

// ListByUser handler: GET /strategies/get/user
func (h *StrategyHandler) ListByUser(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Strategies.ListMine(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"strategies": items,
		"message":    "Strategies fetched successfully",
	})
}

func (h *StrategyHandler) Get(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Strategies.GetByID(ctx, middleware.CurrentUser(c).ID, c.Param("strategyId"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": st})
}

func (h *StrategyHandler) Update(c *gin.Context) {
	var input models.StrategyUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Strategies.Update(ctx, middleware.CurrentUser(c).ID, c.Param("strategyId"), input)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    st,
		"message": "Strategy updated successfully",
	})
}

func (h *StrategyHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Strategies.Delete(ctx, middleware.CurrentUser(c).ID, c.Param("strategyId")); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Strategy deleted successfully"})
}

// AddDetails handler: POST /strategies/:strategyId/details
func (h *StrategyHandler) AddDetails(c *gin.Context) {
	var input AddDetailsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Strategy details must be an array")
		return
	}
	details, ok := decodeDetails(input.StrategyDetails)
	if !ok {
		badRequest(c, "Strategy details must be an array")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Strategies.AddDetails(ctx, middleware.CurrentUser(c).ID, c.Param("strategyId"), details)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    st,
		"message": "Strategy details added successfully",
	})
}

func (h *StrategyHandler) UpdateDetail(c *gin.Context) {
	var input models.StrategyDetailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Strategies.UpdateDetail(ctx, middleware.CurrentUser(c).ID, c.Param("strategyId"), c.Param("detailId"), input)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    st,
		"message": "Strategy detail updated successfully",
	})
}

func (h *StrategyHandler) RemoveDetail(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Strategies.RemoveDetail(ctx, middleware.CurrentUser(c).ID, c.Param("strategyId"), c.Param("detailId"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    st,
		"message": "Strategy detail removed successfully",
	})
}

// ToggleStatus handler: PATCH /strategies/:strategyId/toggle-status
func (h *StrategyHandler) ToggleStatus(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Strategies.ToggleStatus(ctx, middleware.CurrentUser(c).ID, c.Param("strategyId"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    st,
		"message": "Strategy status toggled successfully",
	})
}
