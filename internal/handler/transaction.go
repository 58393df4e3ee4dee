package handler

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"family-finance/internal/middleware"
	"family-finance/internal/service"
	"family-finance/internal/util"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxUploadBytes = 10 << 20
)

// TransactionHandler serves /api/transactions, including the AI helpers
// and spreadsheet import/export.
type TransactionHandler struct {
	txs     *service.TransactionService
	reports *service.ReportService
}

func NewTransactionHandler(txs *service.TransactionService, reports *service.ReportService) *TransactionHandler {
	return &TransactionHandler{txs: txs, reports: reports}
}

func (h *TransactionHandler) List(c *gin.Context) {
	list, err := h.txs.List(c.Request.Context(), middleware.CurrentUser(c), queryFrom(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TransactionHandler) Create(c *gin.Context) {
	var req service.TransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	tx, err := h.txs.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *TransactionHandler) Update(c *gin.Context) {
	var req service.TransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	tx, err := h.txs.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *TransactionHandler) Delete(c *gin.Context) {
	if err := h.txs.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type categorizeReq struct {
	Description string `json:"description" binding:"required"`
}

func (h *TransactionHandler) Categorize(c *gin.Context) {
	var req categorizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "descrição é obrigatória")
		return
	}
	category, err := h.txs.Categorize(c.Request.Context(), middleware.CurrentUser(c), req.Description)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

type parseReq struct {
	Text     string `json:"text"`
	Data     string `json:"data"` // base64 audio or image
	MimeType string `json:"mimeType"`
}

// Parse turns free text, a recording or a receipt photo into a draft
// transaction. Media may come as a multipart "file" or base64 JSON.
func (h *TransactionHandler) Parse(c *gin.Context) {
	var in service.ParseInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			util.BadRequest(c, "arquivo ausente")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			util.BadRequest(c, "falha ao ler o arquivo")
			return
		}
		in = service.ParseInput{
			Text:     c.PostForm("text"),
			MimeType: header.Header.Get("Content-Type"),
			Data:     data,
		}
	} else {
		var req parseReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.BadRequest(c, "corpo inválido: "+err.Error())
			return
		}
		in = service.ParseInput{Text: req.Text, MimeType: req.MimeType}
		if req.Data != "" {
			data, err := base64.StdEncoding.DecodeString(stripDataURL(req.Data))
			if err != nil {
				util.BadRequest(c, "data deve estar em base64")
				return
			}
			in.Data = data
		}
	}

	draft, err := h.txs.Parse(c.Request.Context(), in)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

type analyzeReq struct {
	UserID string `json:"userId"`
}

func (h *TransactionHandler) Analyze(c *gin.Context) {
	var req analyzeReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.BadRequest(c, "corpo inválido: "+err.Error())
			return
		}
	}
	analysis, err := h.txs.Analyze(c.Request.Context(), middleware.CurrentUser(c), req.UserID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *TransactionHandler) ExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reports.ExportCSV(c.Request.Context(), middleware.CurrentUser(c), queryFrom(c), &buf); err != nil {
		util.Fail(c, err)
		return
	}
	attachment(c, exportName("csv"), contentTypeCSV, buf.Bytes())
}

func (h *TransactionHandler) ExportXLSX(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reports.ExportXLSX(c.Request.Context(), middleware.CurrentUser(c), queryFrom(c), &buf); err != nil {
		util.Fail(c, err)
		return
	}
	attachment(c, exportName("xlsx"), contentTypeXLSX, buf.Bytes())
}

func (h *TransactionHandler) Template(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reports.Template(&buf); err != nil {
		util.Fail(c, err)
		return
	}
	attachment(c, "modelo_importacao.xlsx", contentTypeXLSX, buf.Bytes())
}

func (h *TransactionHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		util.BadRequest(c, "envie a planilha no campo file")
		return
	}
	defer file.Close()

	result, err := h.reports.Import(c.Request.Context(), middleware.CurrentUser(c), io.LimitReader(file, maxUploadBytes))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryFrom(c *gin.Context) service.TransactionQuery {
	return service.TransactionQuery{
		UserID:   c.Query("userId"),
		Month:    c.Query("month"),
		Type:     c.Query("type"),
		Category: c.Query("category"),
	}
}

func exportName(ext string) string {
	return fmt.Sprintf("transacoes_%s.%s", time.Now().Format("20060102_150405"), ext)
}

func attachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, data)
}

// stripDataURL drops a "data:<mime>;base64," prefix if present.
func stripDataURL(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}
