package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"family-finance/internal/middleware"
	"family-finance/internal/service"
	"family-finance/internal/util"
)

// GoalHandler serves /api/goals and their contribution history.
type GoalHandler struct {
	goals *service.GoalService
}

func NewGoalHandler(goals *service.GoalService) *GoalHandler {
	return &GoalHandler{goals: goals}
}

func (h *GoalHandler) List(c *gin.Context) {
	goals, err := h.goals.List(c.Request.Context(), middleware.CurrentUser(c), c.Query("userId"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (h *GoalHandler) Get(c *gin.Context) {
	goal, err := h.goals.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *GoalHandler) Create(c *gin.Context) {
	var req service.GoalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	goal, err := h.goals.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (h *GoalHandler) Update(c *gin.Context) {
	var req service.GoalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	goal, err := h.goals.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *GoalHandler) Delete(c *gin.Context) {
	if err := h.goals.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GoalHandler) AddContribution(c *gin.Context) {
	var req service.ContributionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	goal, err := h.goals.AddContribution(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (h *GoalHandler) UpdateContribution(c *gin.Context) {
	var req service.ContributionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	goal, err := h.goals.UpdateContribution(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("cid"), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *GoalHandler) DeleteContribution(c *gin.Context) {
	goal, err := h.goals.DeleteContribution(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("cid"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}
