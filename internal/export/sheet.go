package export

import (
	"fmt"
	"io"

	"pcbuilder/internal/models"
	"pcbuilder/internal/recommend"

	"github.com/xuri/excelize/v2"
)

const (
	buildSheet = "Build"
	moneyFmt   = 2 // "0.00"
)

var buildHeader = []interface{}{"Category", "Product", "Brand", "Model", "Price", "Retailer", "Link"}

var savedHeader = []interface{}{"Category", "Product", "Brand", "Model", "Recommended", "Current", "Saving", "Retailer", "Link"}

// BuildSheet renders a recommendation as a one-sheet workbook with a total row.
func BuildSheet(build *recommend.BuildResult) (*excelize.File, error) {
	rows := make([][]interface{}, 0, len(build.Order))
	for _, p := range build.OrderedParts() {
		rows = append(rows, []interface{}{
			string(p.Category), p.Product.Name, p.Product.Brand, p.Product.Model,
			p.Price.Price.InexactFloat64(), p.Price.RetailerName, p.Price.RetailerURL,
		})
	}
	return newSheet(buildHeader, rows, []string{"E"}, "E")
}

// SavedBuildSheet renders a saved build with recommended and current prices.
func SavedBuildSheet(build *models.SavedBuild) (*excelize.File, error) {
	rows := make([][]interface{}, 0, len(build.Parts))
	for _, p := range build.Parts {
		current := p.RecommendedPrice
		if p.CurrentPrice != nil {
			current = *p.CurrentPrice
		}
		rows = append(rows, []interface{}{
			string(p.Category), p.Product.Name, p.Product.Brand, p.Product.Model,
			p.RecommendedPrice.InexactFloat64(), current.InexactFloat64(),
			p.RecommendedPrice.Sub(current).InexactFloat64(),
			p.LowestPriceRetailer, p.LowestPriceURL,
		})
	}
	return newSheet(savedHeader, rows, []string{"E", "F", "G"}, "E", "F", "G")
}

func newSheet(header []interface{}, rows [][]interface{}, moneyCols []string, sumCols ...string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", buildSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(buildSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, row := range rows {
		row := row
		if err := f.SetSheetRow(buildSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	last := len(rows) + 1
	totalRow := last + 1
	if err := f.SetCellValue(buildSheet, fmt.Sprintf("A%d", totalRow), "Total"); err != nil {
		return nil, err
	}
	for _, col := range sumCols {
		formula := fmt.Sprintf("SUM(%s2:%s%d)", col, col, last)
		if err := f.SetCellFormula(buildSheet, fmt.Sprintf("%s%d", col, totalRow), formula); err != nil {
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyFmt})
	if err != nil {
		return nil, err
	}
	endCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(buildSheet, "A1", endCol+"1", bold); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(buildSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("A%d", totalRow), bold); err != nil {
		return nil, err
	}
	for _, col := range moneyCols {
		if err := f.SetCellStyle(buildSheet, col+"2", fmt.Sprintf("%s%d", col, totalRow), money); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(buildSheet, "B", "B", 40); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(buildSheet, endCol, endCol, 50); err != nil {
		return nil, err
	}
	return f, nil
}

// Write serialises the workbook and closes it.
func Write(w io.Writer, f *excelize.File) error {
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
