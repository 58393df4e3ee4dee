package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"family-finance/internal/middleware"
	"family-finance/internal/service"
	"family-finance/internal/util"
)

type TranslationHandler struct {
	translations *service.TranslationService
}

func NewTranslationHandler(translations *service.TranslationService) *TranslationHandler {
	return &TranslationHandler{translations: translations}
}

func (h *TranslationHandler) Language(c *gin.Context) {
	values, err := h.translations.Language(c.Request.Context(), c.Param("lang"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, values)
}

func (h *TranslationHandler) Languages(c *gin.Context) {
	langs, err := h.translations.Languages(c.Request.Context())
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, langs)
}

func (h *TranslationHandler) All(c *gin.Context) {
	rows, err := h.translations.All(c.Request.Context())
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *TranslationHandler) Upsert(c *gin.Context) {
	var req service.TranslationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	row, err := h.translations.Upsert(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *TranslationHandler) AddLanguage(c *gin.Context) {
	var req service.AddLanguageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	copied, err := h.translations.AddLanguage(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"language": req.Language,
		"copied":   copied,
	})
}
