package reports

import (
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/models"
	"github.com/xuri/excelize/v2"
)

const (
	SheetStock   = "Склад"
	SheetJournal = "Журнал"

	exportDateLayout = "02.01.2006 15:04:05"
)

var (
	stockHeadings   = []interface{}{"Назва", "Категорія", "Од.", "Залишок", "Критичний рівень", "Статус"}
	journalHeadings = []interface{}{"Дата", "Товар", "Категорія", "Кількість", "Ціна", "Сума", "Тип"}
)

// BuildWorkbook lays out the ledger (from the snapshot) and the given journal
// rows, oldest first, on two sheets. The caller closes the file.
func BuildWorkbook(snapshot *models.InventorySnapshot, journal []models.JournalEntry, loc *time.Location) (*excelize.File, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("%w: nil inventory snapshot", models.ErrValidation)
	}
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetStock); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(SheetJournal); err != nil {
		_ = f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	stockRows := make([][]interface{}, 0, len(snapshot.Products))
	for _, p := range snapshot.Products {
		stockRows = append(stockRows, []interface{}{
			p.Name,
			p.Category,
			p.Unit,
			p.CurrentStock.Decimal().InexactFloat64(),
			p.CriticalLevel.Decimal().InexactFloat64(),
			string(p.Status),
		})
	}
	if err := writeSheet(f, SheetStock, stockHeadings, stockRows, bold); err != nil {
		_ = f.Close()
		return nil, err
	}

	journalRows := make([][]interface{}, 0, len(journal))
	for _, e := range journal {
		v := models.TransactionViewFor(e)
		journalRows = append(journalRows, []interface{}{
			e.Date.In(loc).Format(exportDateLayout),
			v.Item,
			v.Category,
			v.Quantity.Decimal().InexactFloat64(),
			v.PricePerUnit.Decimal().InexactFloat64(),
			v.Total.Decimal().InexactFloat64(),
			v.Type,
		})
	}
	if err := writeSheet(f, SheetJournal, journalHeadings, journalRows, bold); err != nil {
		_ = f.Close()
		return nil, err
	}

	idx, err := f.GetSheetIndex(SheetStock)
	if err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

// WriteWorkbook builds the workbook and streams it to w.
func WriteWorkbook(w io.Writer, snapshot *models.InventorySnapshot, journal []models.JournalEntry, loc *time.Location) error {
	f, err := BuildWorkbook(snapshot, journal, loc)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, headings []interface{}, rows [][]interface{}, headingStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &headings); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headings), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headingStyle); err != nil {
		return err
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "B", 24)
}
