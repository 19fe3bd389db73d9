package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tirth-chokshi/strategy-backend/services"
)

// OptionDetailsInput accepts strikePrice as a number or a numeric string.
type OptionDetailsInput struct {
	StrikePrice any `json:"strikePrice"`
}

type OptionHandler struct {
	Options *services.OptionService
	Logger  *zap.Logger
}

// Details handler: every leg listed at one strike price
func (h *OptionHandler) Details(c *gin.Context) {
	var input OptionDetailsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid Strike Price. Must be a number.")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	legs, err := h.Options.GetByStrikePrice(ctx, input.StrikePrice)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"options": legs})
}

// Suggestions handler: typeahead over strike prices, symbols and labels
func (h *OptionHandler) Suggestions(c *gin.Context) {
	var input services.SuggestQuery
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	values, err := h.Options.Suggest(ctx, input)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": values})
}
