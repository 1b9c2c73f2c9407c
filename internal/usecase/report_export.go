package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/security"

	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ledgerColumns = []string{
	"JOB ID", "JOB TITLE", "CLIENT UID", "FREELANCER UID",
	"MILESTONE", "DESCRIPTION", "DUE DATE", "AMOUNT", "STATUS",
}

// LedgerRow is one milestone of one job as exported.
type LedgerRow struct {
	JobID         string
	JobTitle      string
	ClientUID     string
	FreelancerUID string
	Index         int
	Description   string
	DueDate       string
	Amount        float64
	Status        domain.MilestoneStatus
}

func (r LedgerRow) values() []any {
	return []any{
		r.JobID, r.JobTitle, r.ClientUID, r.FreelancerUID,
		r.Index + 1, r.Description, r.DueDate, r.Amount, string(r.Status),
	}
}

// LedgerRows flattens every contract into milestone rows, in job order.
// Jobs nobody has been accepted on have no ledger and are left out.
func LedgerRows(jobs []domain.Job, accepted []domain.Application) []LedgerRow {
	byJob := make(map[string]domain.Application, len(accepted))
	for _, a := range accepted {
		if _, ok := byJob[a.JobID]; !ok {
			byJob[a.JobID] = a
		}
	}

	var rows []LedgerRow
	for _, job := range jobs {
		a, ok := byJob[job.ID]
		if !ok {
			continue
		}
		for i, m := range a.JobMilestones {
			rows = append(rows, LedgerRow{
				JobID:         job.ID,
				JobTitle:      job.Title,
				ClientUID:     job.ClientUID,
				FreelancerUID: a.ApplicantUID,
				Index:         i,
				Description:   m.Description,
				DueDate:       m.DueDate,
				Amount:        m.Amount.Float(),
				Status:        m.Status,
			})
		}
	}
	return rows
}

func (u *reportUsecase) ExportLedger(ctx context.Context, actor domain.Actor, format string) (*domain.ExportFile, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperror.Forbidden("Only admins can export the ledger")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = domain.ExportXLSX
	}
	if format != domain.ExportXLSX && format != domain.ExportCSV {
		return nil, apperror.BadRequest(fmt.Sprintf("Unsupported export format: %s", format))
	}

	jobs, err := u.jobRepo.Fetch(ctx)
	if err != nil {
		logger.Log.Error("Failed to load jobs for export", "error", err)
		return nil, apperror.Internal(err)
	}
	accepted, err := u.appRepo.ListAccepted(ctx)
	if err != nil {
		logger.Log.Error("Failed to load contracts for export", "error", err)
		return nil, apperror.Internal(err)
	}
	rows := LedgerRows(jobs, accepted)
	security.DefaultLogger().LogUserEvent(ctx, security.EventLedgerExport, actor.UID, map[string]any{
		"format": format, "rows": len(rows),
	})

	stamp := time.Now().UTC().Format("20060102_150405")
	if format == domain.ExportCSV {
		data, err := ledgerCSV(rows)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		return &domain.ExportFile{Name: "ledger_" + stamp + ".csv", ContentType: "text/csv", Data: data}, nil
	}

	data, err := ledgerXLSX(rows)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &domain.ExportFile{Name: "ledger_" + stamp + ".xlsx", ContentType: xlsxContentType, Data: data}, nil
}

func ledgerXLSX(rows []LedgerRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Ledger"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(ledgerColumns))
	for i, name := range ledgerColumns {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#1E3A5F"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	endCell, err := excelize.CoordinatesToCellName(len(ledgerColumns), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", endCell, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		values := row.values()
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(ledgerColumns))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

// csvText keeps spreadsheet apps from evaluating a user-supplied cell as a
// formula when the CSV is opened.
func csvText(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func ledgerCSV(rows []LedgerRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ledgerColumns); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			csvText(row.JobID), csvText(row.JobTitle), csvText(row.ClientUID), csvText(row.FreelancerUID),
			strconv.Itoa(row.Index + 1), csvText(row.Description), csvText(row.DueDate),
			strconv.FormatFloat(row.Amount, 'f', 2, 64), string(row.Status),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}
