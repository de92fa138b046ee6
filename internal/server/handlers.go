package server

import (
	"context"
	"errors"
	"net/http"

	"keto-planner/internal/metrics"
	"keto-planner/internal/nutrition"
	"keto-planner/internal/planner"

	"github.com/gin-gonic/gin"
)

// Service is the application surface the HTTP API exposes.
type Service interface {
	Calculate(input nutrition.UserInput) (*nutrition.CalcOutput, error)
	GenerateMealPlan(ctx context.Context, input nutrition.UserInput) (*planner.MealPlan, error)
	Health() metrics.SysHealth
}

type handlers struct {
	svc Service
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "system": h.svc.Health()})
}

func (h *handlers) calc(c *gin.Context) {
	input, ok := bindInput(c)
	if !ok {
		return
	}
	out, err := h.svc.Calculate(input)
	if err != nil {
		respondAppError(c, err)
		return
	}
	RespondOK(c, out)
}

func (h *handlers) mealPlan(c *gin.Context) {
	input, ok := bindInput(c)
	if !ok {
		return
	}
	plan, err := h.svc.GenerateMealPlan(c.Request.Context(), input)
	if err != nil {
		respondAppError(c, err)
		return
	}
	RespondOK(c, plan)
}

func bindInput(c *gin.Context) (nutrition.UserInput, bool) {
	var input nutrition.UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, string(planner.KindInvalidInput), errors.New("invalid request body: "+err.Error()))
		return input, false
	}
	return input, true
}

func respondAppError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code := StatusFor(err)
	RespondError(c, status, code, err)
}
