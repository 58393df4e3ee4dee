package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"family-finance/internal/middleware"
	"family-finance/internal/month"
	"family-finance/internal/service"
	"family-finance/internal/util"
)

// BudgetHandler serves /api/budget.
type BudgetHandler struct {
	budgets *service.BudgetService
	users   *service.UserService
}

func NewBudgetHandler(budgets *service.BudgetService, users *service.UserService) *BudgetHandler {
	return &BudgetHandler{budgets: budgets, users: users}
}

func (h *BudgetHandler) ListLimits(c *gin.Context) {
	limits, err := h.budgets.ListLimits(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, limits)
}

func (h *BudgetHandler) SaveLimit(c *gin.Context) {
	var req service.LimitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	limit, err := h.budgets.SaveLimit(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, limit)
}

func (h *BudgetHandler) DeleteLimit(c *gin.Context) {
	if err := h.budgets.DeleteLimit(c.Request.Context(), middleware.CurrentUser(c), c.Param("category")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Summary compares limits with spending. ?month=YYYY-MM selects a month
// other than the current one and ?userId= a visible family member.
func (h *BudgetHandler) Summary(c *gin.Context) {
	subject, err := h.users.Subject(c.Request.Context(), middleware.CurrentUser(c), c.Query("userId"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	m := h.budgets.CurrentMonth()
	if raw := c.Query("month"); raw != "" {
		if m, err = month.Parse(raw); err != nil {
			util.BadRequest(c, "mês inválido, use AAAA-MM")
			return
		}
	}
	items, err := h.budgets.Summary(c.Request.Context(), subject.ID, m)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *BudgetHandler) History(c *gin.Context) {
	subject, err := h.users.Subject(c.Request.Context(), middleware.CurrentUser(c), c.Query("userId"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	history, err := h.budgets.History(c.Request.Context(), subject.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *BudgetHandler) SaveHistory(c *gin.Context) {
	m, count, err := h.budgets.SaveCurrentMonth(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"month": m,
		"saved": count,
	})
}

func (h *BudgetHandler) Suggest(c *gin.Context) {
	suggestions, err := h.budgets.Suggest(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestions)
}
