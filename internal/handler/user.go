package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"family-finance/internal/loan"
	"family-finance/internal/middleware"
	"family-finance/internal/model"
	"family-finance/internal/service"
	"family-finance/internal/util"
)

// UserHandler serves /api/users and the per-user resources under
// /api/users/me.
type UserHandler struct {
	users  *service.UserService
	notify *service.NotificationService
	sims   *service.SimulationService
}

func NewUserHandler(users *service.UserService, notify *service.NotificationService, sims *service.SimulationService) *UserHandler {
	return &UserHandler{users: users, notify: notify, sims: sims}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	target, err := h.users.Get(c.Request.Context(), user, userParam(c, user))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateMemberInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	created, err := h.users.CreateMember(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	user := middleware.CurrentUser(c)
	updated, err := h.users.Update(c.Request.Context(), user, userParam(c, user), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.users.Delete(c.Request.Context(), user, userParam(c, user)); err != nil {
		util.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) TelegramCode(c *gin.Context) {
	user, ok := selfOnly(c)
	if !ok {
		return
	}
	code, err := h.users.TelegramLinkCode(c.Request.Context(), user)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

func (h *UserHandler) Notifications(c *gin.Context) {
	user, ok := selfOnly(c)
	if !ok {
		return
	}
	items, err := h.notify.List(c.Request.Context(), user.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *UserHandler) MarkNotificationRead(c *gin.Context) {
	user, ok := selfOnly(c)
	if !ok {
		return
	}
	if err := h.notify.MarkRead(c.Request.Context(), user.ID, c.Param("nid")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) PreviewSimulation(c *gin.Context) {
	var req loan.Terms
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	schedule, err := h.sims.Preview(req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

func (h *UserHandler) ListSimulations(c *gin.Context) {
	user, ok := selfOnly(c)
	if !ok {
		return
	}
	sims, err := h.sims.List(c.Request.Context(), user)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sims)
}

func (h *UserHandler) CreateSimulation(c *gin.Context) {
	user, ok := selfOnly(c)
	if !ok {
		return
	}
	var req service.SimulationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	sim, err := h.sims.Create(c.Request.Context(), user, req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sim)
}

func (h *UserHandler) SimulationSchedule(c *gin.Context) {
	user, ok := selfOnly(c)
	if !ok {
		return
	}
	schedule, err := h.sims.Schedule(c.Request.Context(), user, c.Param("sid"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

func (h *UserHandler) DeleteSimulation(c *gin.Context) {
	user, ok := selfOnly(c)
	if !ok {
		return
	}
	if err := h.sims.Delete(c.Request.Context(), user, c.Param("sid")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// userParam resolves the :id path segment, where "me" is the caller.
func userParam(c *gin.Context, user *model.User) string {
	id := c.Param("id")
	if id == "me" {
		return user.ID
	}
	return id
}

// selfOnly allows per-user resources only for the caller's own id.
func selfOnly(c *gin.Context) (*model.User, bool) {
	user := middleware.CurrentUser(c)
	if userParam(c, user) != user.ID {
		util.Fail(c, service.ErrNotFound)
		return nil, false
	}
	return user, true
}
