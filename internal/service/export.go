package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/eatbalance/web/internal"
)

const exportSheet = "Menu"

var exportHeaders = []string{"Meal", "Menu", "Food", "Grams", "Kcal", "Protein (g)", "Carbs (g)", "Fat (g)"}

// ExportXLSX renders the confirmed menu as a workbook: one row per item, a
// subtotal row per meal and the day total at the bottom.
func ExportXLSX(menu *internal.ConfirmedMenu) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#2E7D32"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("total style: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(exportSheet, "A1", "H1", header); err != nil {
		return nil, err
	}

	row := 2
	for _, meal := range menu.Meals {
		for _, it := range meal.Items {
			if err := setRow(f, row, meal.Slot, meal.MenuName, it.Name, it.Grams, it.Macros()); err != nil {
				return nil, err
			}
			row++
		}
		if err := setRow(f, row, meal.Slot, "", "Meal total", 0, meal.Achieved); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(exportSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("H%d", row), bold); err != nil {
			return nil, err
		}
		row++
	}

	if err := setRow(f, row, "Day", "", "Day total", 0, menu.DayTotals()); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("H%d", row), bold); err != nil {
		return nil, err
	}
	row += 2
	target := internal.MacroSet{Kcal: menu.Totals.Kcal, ProteinG: menu.Totals.ProteinG, CarbG: menu.Totals.CarbG, FatG: menu.Totals.FatG}
	if err := setRow(f, row, "Target", "", "Scheme "+strings.ReplaceAll(menu.Scheme, "_", " "), 0, target); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(exportSheet, "A", "B", 16); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "C", "C", 32); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, meal, menuName, food string, grams float64, m internal.MacroSet) error {
	values := []interface{}{meal, menuName, food, "", round1(m.Kcal), round1(m.ProteinG), round1(m.CarbG), round1(m.FatG)}
	if grams > 0 {
		values[3] = round1(grams)
	}
	cell := fmt.Sprintf("A%d", row)
	return f.SetSheetRow(exportSheet, cell, &values)
}

// round1 is for display in the sheet only.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
