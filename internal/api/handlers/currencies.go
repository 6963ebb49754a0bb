package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/craudioviz/invoicer/internal/currency"
)

// CurrenciesHandler serves the currency catalog, conversion and rates.
// These endpoints never fail because the live rate source is down; the
// service falls back to its static table internally.
type CurrenciesHandler struct {
	service *currency.Service
	logger  zerolog.Logger
}

// NewCurrenciesHandler creates a new currencies handler.
func NewCurrenciesHandler(service *currency.Service, logger zerolog.Logger) *CurrenciesHandler {
	return &CurrenciesHandler{
		service: service,
		logger:  logger.With().Str("component", "currencies_handler").Logger(),
	}
}

// RegisterRoutes registers currency routes on the given router group.
func (h *CurrenciesHandler) RegisterRoutes(r *gin.RouterGroup) {
	currencies := r.Group("/currencies")
	{
		currencies.GET("", h.List)
		currencies.GET("/convert", h.Convert)
		currencies.GET("/rates", h.Rates)
	}
}

// List returns the supported currency catalog.
func (h *CurrenciesHandler) List(c *gin.Context) {
	all := currency.All()
	c.JSON(http.StatusOK, gin.H{"currencies": all, "count": len(all)})
}

// Convert converts an amount between two supported currencies.
func (h *CurrenciesHandler) Convert(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	converted, err := h.service.Convert(c.Request.Context(), amount, from, to)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":      from,
		"to":        to,
		"amount":    amount,
		"converted": converted,
		"formatted": currency.Format(converted, to),
	})
}

// Rates returns the current USD-base rate table and its source.
func (h *CurrenciesHandler) Rates(c *gin.Context) {
	rates := h.service.GetRates(c.Request.Context())
	c.JSON(http.StatusOK, rates)
}
