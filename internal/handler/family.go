package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"family-finance/internal/middleware"
	"family-finance/internal/service"
	"family-finance/internal/util"
)

// FamilyHandler serves /api/family: members, tasks and events.
type FamilyHandler struct {
	users *service.UserService
	tasks *service.TaskService
}

func NewFamilyHandler(users *service.UserService, tasks *service.TaskService) *FamilyHandler {
	return &FamilyHandler{users: users, tasks: tasks}
}

func (h *FamilyHandler) Get(c *gin.Context) {
	family, members, err := h.users.FamilyMembers(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"family":  family,
		"members": members,
	})
}

func (h *FamilyHandler) ListTasks(c *gin.Context) {
	tasks, err := h.tasks.ListTasks(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *FamilyHandler) CreateTask(c *gin.Context) {
	var req service.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	task, err := h.tasks.CreateTask(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *FamilyHandler) UpdateTask(c *gin.Context) {
	var req service.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	task, err := h.tasks.UpdateTask(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *FamilyHandler) ToggleTask(c *gin.Context) {
	task, err := h.tasks.ToggleTask(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *FamilyHandler) DeleteTask(c *gin.Context) {
	if err := h.tasks.DeleteTask(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FamilyHandler) ListEvents(c *gin.Context) {
	upcoming, _ := strconv.ParseBool(c.Query("upcoming"))
	events, err := h.tasks.ListEvents(c.Request.Context(), middleware.CurrentUser(c), upcoming)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *FamilyHandler) CreateEvent(c *gin.Context) {
	var req service.EventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	event, err := h.tasks.CreateEvent(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *FamilyHandler) DeleteEvent(c *gin.Context) {
	if err := h.tasks.DeleteEvent(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
