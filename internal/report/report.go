// Package report writes the reconciliation summary workbook and reads it
// back for reverse verification.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

// Sheet is the single worksheet name in the summary workbook.
const Sheet = "汇总"

// SummaryLabel marks the trailing synthetic total row. It is display-only and
// must never be fed back into the verification index.
const SummaryLabel = "总计"

var headers = []string{"序号", "发票号码", "开票日期", "销售方名称", "价税合计", "数据来源", "备注", "文件名"}

// WriteXLSX writes the result rows plus the synthetic summary row to path.
func WriteXLSX(rows []model.ResultRow, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(Sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(Sheet, cell, h)
	}

	write := func(row, col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(Sheet, cell, v)
	}

	total := decimal.Zero
	for i, r := range rows {
		rowNum := i + 2
		write(rowNum, 1, r.Seq)
		write(rowNum, 2, r.Number)
		write(rowNum, 3, r.Date)
		write(rowNum, 4, r.Seller)
		write(rowNum, 5, r.Amount)
		write(rowNum, 6, string(r.Source))
		write(rowNum, 7, r.Note)
		write(rowNum, 8, r.Filename)
		total = total.Add(decimal.NewFromFloat(r.Amount))
	}

	sumRow := len(rows) + 2
	write(sumRow, 1, SummaryLabel)
	write(sumRow, 4, fmt.Sprintf("共 %d 张", len(rows)))
	write(sumRow, 5, total.InexactFloat64())

	_ = f.SetColWidth(Sheet, "B", "B", 24) // invoice number
	_ = f.SetColWidth(Sheet, "C", "C", 14) // date
	_ = f.SetColWidth(Sheet, "D", "D", 32) // seller
	_ = f.SetColWidth(Sheet, "G", "G", 30) // note
	_ = f.SetColWidth(Sheet, "H", "H", 40) // filename

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// ReadXLSX loads result rows from a previously written workbook, dropping the
// header and the summary row.
func ReadXLSX(path string) ([]model.ResultRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := Sheet
	if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
		// Tolerate workbooks from older builds with a different sheet name.
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read workbook rows: %w", err)
	}

	var rows []model.ResultRow
	for i, cells := range raw {
		if i == 0 || len(cells) == 0 || cells[0] == SummaryLabel {
			continue
		}
		row := model.ResultRow{
			Seq:      atoiSafe(cell(cells, 0)),
			Number:   cell(cells, 1),
			Date:     cell(cells, 2),
			Seller:   cell(cells, 3),
			Source:   model.SourceKind(cell(cells, 5)),
			Note:     cell(cells, 6),
			Filename: cell(cells, 7),
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(cell(cells, 4), ",", ""), 64); err == nil {
			row.Amount = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
