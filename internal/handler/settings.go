package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"family-finance/internal/service"
	"family-finance/internal/util"
)

const maxBackupBytes = 64 << 20

// SettingsHandler serves /api/settings, the manual snapshot trigger and
// backup/restore.
type SettingsHandler struct {
	settings *service.SettingsService
	backup   *service.BackupService
}

func NewSettingsHandler(settings *service.SettingsService, backup *service.BackupService) *SettingsHandler {
	return &SettingsHandler{settings: settings, backup: backup}
}

type settingReq struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

func (h *SettingsHandler) List(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *SettingsHandler) Upsert(c *gin.Context) {
	var req settingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "key é obrigatório")
		return
	}
	setting, err := h.settings.Upsert(c.Request.Context(), req.Key, req.Value)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

func (h *SettingsHandler) RunSnapshot(c *gin.Context) {
	report, err := h.settings.RunSnapshot(c.Request.Context())
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *SettingsHandler) Backup(c *gin.Context) {
	ds, err := h.backup.Export(c.Request.Context())
	if err != nil {
		util.Fail(c, err)
		return
	}
	name := fmt.Sprintf("family-finance-backup_%s.json", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.JSON(http.StatusOK, ds)
}

// Restore replaces every table with the uploaded backup.
func (h *SettingsHandler) Restore(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBackupBytes))
	if err != nil {
		util.BadRequest(c, "falha ao ler o backup")
		return
	}
	if err := h.backup.Restore(c.Request.Context(), raw); err != nil {
		util.Fail(c, err)
		return
	}
	util.Message(c, "backup restaurado")
}
