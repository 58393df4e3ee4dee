package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"family-finance/internal/log"
	"family-finance/internal/model"
	"family-finance/internal/money"
	"family-finance/internal/repository"
)

// ImportSheet is the worksheet read by imports and written by the template.
const ImportSheet = "Transações"

var reportHeaders = []string{"Data (DD/MM/YYYY)", "Descrição", "Categoria", "Tipo (INCOME/EXPENSE)", "Valor"}

// ImportResult reports a spreadsheet import. Rows with errors are skipped.
type ImportResult struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
	Message  string   `json:"message"`
}

// ReportService exports transactions and imports them from spreadsheets.
type ReportService struct {
	txs    *repository.TransactionRepository
	users  *UserService
	logger *log.Logger
}

func NewReportService(txs *repository.TransactionRepository, users *UserService, logger *log.Logger) *ReportService {
	return &ReportService{txs: txs, users: users, logger: logger}
}

func (s *ReportService) listFor(ctx context.Context, viewer *model.User, q TransactionQuery) ([]model.Transaction, error) {
	subject, err := s.users.Subject(ctx, viewer, q.UserID)
	if err != nil {
		return nil, err
	}
	f, err := q.filter(subject.ID)
	if err != nil {
		return nil, err
	}
	return s.txs.List(ctx, f)
}

// ExportCSV writes the subject's transactions as UTF-8 CSV with a BOM so
// spreadsheet programs detect the encoding.
func (s *ReportService) ExportCSV(ctx context.Context, viewer *model.User, q TransactionQuery, w io.Writer) error {
	txs, err := s.listFor(ctx, viewer, q)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(reportHeaders); err != nil {
		return err
	}
	for _, t := range txs {
		if err := writer.Write(reportRow(t)); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "transactions exported", log.FieldOperation, log.OpExport, log.FieldUserID, viewer.ID, "format", "csv", log.FieldCount, len(txs))
	return nil
}

// ExportXLSX writes the subject's transactions as a workbook laid out like
// the import template, so an export can be imported again.
func (s *ReportService) ExportXLSX(ctx context.Context, viewer *model.User, q TransactionQuery, w io.Writer) error {
	txs, err := s.listFor(ctx, viewer, q)
	if err != nil {
		return err
	}
	f, err := newReportWorkbook()
	if err != nil {
		return err
	}
	defer f.Close()

	for i, t := range txs {
		row := reportRow(t)
		values := []interface{}{row[0], row[1], row[2], row[3], t.Amount.Float()}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ImportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	s.logger.InfoContext(ctx, "transactions exported", log.FieldOperation, log.OpExport, log.FieldUserID, viewer.ID, "format", "xlsx", log.FieldCount, len(txs))
	return nil
}

// Template writes an empty import workbook with one example row.
func (s *ReportService) Template(w io.Writer) error {
	f, err := newReportWorkbook()
	if err != nil {
		return err
	}
	defer f.Close()

	example := []interface{}{"01/12/2024", "Exemplo: Compra no supermercado", "Alimentação", string(model.Expense), 150.00}
	if err := f.SetSheetRow(ImportSheet, "A2", &example); err != nil {
		return err
	}
	return f.Write(w)
}

// Import reads the ImportSheet worksheet and stores every valid row as a
// transaction of user. Invalid rows are reported and skipped.
func (s *ReportService) Import(ctx context.Context, user *model.User, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, invalid("file", "not a valid xlsx workbook")
	}
	defer f.Close()

	rows, err := f.GetRows(ImportSheet)
	if err != nil {
		return nil, invalid("file", "sheet %q not found", ImportSheet)
	}

	res := &ImportResult{Errors: []string{}}
	var batch []model.Transaction
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		tx, err := parseImportRow(row)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Linha %d: %s", i+1, err))
			continue
		}
		tx.UserID = user.ID
		batch = append(batch, *tx)
	}

	if err := s.txs.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}
	res.Imported = len(batch)
	res.Message = fmt.Sprintf("Importadas %d transações com sucesso!", res.Imported)
	s.logger.InfoContext(ctx, "transactions imported",
		log.FieldOperation, log.OpImport,
		log.FieldUserID, user.ID,
		log.FieldCount, res.Imported,
		"rejected", len(res.Errors),
	)
	return res, nil
}

func newReportWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(ImportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}

	headers := make([]interface{}, len(reportHeaders))
	for i, h := range reportHeaders {
		headers[i] = h
	}
	if err := f.SetSheetRow(ImportSheet, "A1", &headers); err != nil {
		f.Close()
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4B0082"}},
	})
	if err == nil {
		_ = f.SetRowStyle(ImportSheet, 1, 1, style)
	}
	_ = f.SetColWidth(ImportSheet, "A", "A", 15)
	_ = f.SetColWidth(ImportSheet, "B", "B", 30)
	_ = f.SetColWidth(ImportSheet, "C", "C", 18)
	_ = f.SetColWidth(ImportSheet, "D", "D", 22)
	_ = f.SetColWidth(ImportSheet, "E", "E", 12)
	return f, nil
}

func reportRow(t model.Transaction) []string {
	date := t.Date
	if d, err := time.Parse(time.DateOnly, t.Date); err == nil {
		date = d.Format("02/01/2006")
	}
	return []string{date, t.Description, t.Category, string(t.Type), t.Amount.String()}
}

var importDateLayouts = []string{"02/01/2006", time.DateOnly, "2/1/2006", "01-02-06", "1/2/06"}

func parseImportRow(row []string) (*model.Transaction, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	date, desc, category, kind, amount := cell(0), cell(1), cell(2), cell(3), cell(4)
	if date == "" || desc == "" || category == "" || kind == "" || amount == "" {
		return nil, errors.New("campos obrigatórios ausentes")
	}

	var day time.Time
	var err error
	for _, layout := range importDateLayouts {
		if day, err = time.Parse(layout, date); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("data inválida %q", date)
	}

	t, ok := model.ParseTransactionType(kind)
	if !ok {
		return nil, fmt.Errorf("tipo inválido %q", kind)
	}
	value, err := parseAmount(amount)
	if err != nil || value <= 0 {
		return nil, fmt.Errorf("valor inválido %q", amount)
	}
	return &model.Transaction{
		Date:        day.Format(time.DateOnly),
		Description: desc,
		Category:    category,
		Type:        t,
		Amount:      value,
	}, nil
}

// parseAmount accepts 1234.56, 1234,56 and 1.234,56 with an optional R$ prefix.
func parseAmount(s string) (money.Cents, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return money.Parse(s)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
