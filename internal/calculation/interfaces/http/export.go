package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"lca-backend/internal/calculation/domain"
)

// BuildResultPDF renders a result report: project header, impact totals
// and the per-instance table.
func BuildResultPDF(project *domain.Project, result *domain.CalculationResult, floorArea float64) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "LCA Result Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Project: %s", project.Name))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Model file: %s", project.Filename))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Uploaded: %s", project.UploadedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Floor area (m2): %.2f", floorArea))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Total GWP (kg CO2-eq): %.2f", result.TotalImpact.GWP))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total UBP: %.2f", result.TotalImpact.UBP))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total PENR (kWh): %.2f", result.TotalImpact.PENR))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Material instances: %d (%d failed)", result.ProcessedCount, result.ErrorCount))
	pdf.Ln(8)

	// Instances table
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(55, 6, "Element", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Material", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Reference", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Years", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "GWP abs", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "GWP rel", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, instance := range result.Instances {
		pdf.CellFormat(55, 6, instance.ElementID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, instance.MaterialName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, instance.ReferenceName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", instance.AmortizationYears), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.3f", instance.Absolute.GWP), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.5f", instance.Relative.GWP), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildResultXLSX renders a result workbook with a summary sheet and an
// instances sheet carrying all six impact columns.
func BuildResultXLSX(project *domain.Project, result *domain.CalculationResult, floorArea float64) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	instancesSheet := "instances"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(instancesSheet)

	_ = f.SetCellValue(summarySheet, "A1", "LCA Result Report")
	_ = f.SetCellValue(summarySheet, "A3", "Project")
	_ = f.SetCellValue(summarySheet, "B3", project.Name)
	_ = f.SetCellValue(summarySheet, "A4", "Model file")
	_ = f.SetCellValue(summarySheet, "B4", project.Filename)
	_ = f.SetCellValue(summarySheet, "A5", "Uploaded")
	_ = f.SetCellValue(summarySheet, "B5", project.UploadedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A6", "Floor area (m2)")
	_ = f.SetCellValue(summarySheet, "B6", floorArea)
	_ = f.SetCellValue(summarySheet, "A7", "Total GWP (kg CO2-eq)")
	_ = f.SetCellValue(summarySheet, "B7", result.TotalImpact.GWP)
	_ = f.SetCellValue(summarySheet, "A8", "Total UBP")
	_ = f.SetCellValue(summarySheet, "B8", result.TotalImpact.UBP)
	_ = f.SetCellValue(summarySheet, "A9", "Total PENR (kWh)")
	_ = f.SetCellValue(summarySheet, "B9", result.TotalImpact.PENR)
	_ = f.SetCellValue(summarySheet, "A10", "Material instances")
	_ = f.SetCellValue(summarySheet, "B10", result.ProcessedCount)
	_ = f.SetCellValue(summarySheet, "A11", "Failed instances")
	_ = f.SetCellValue(summarySheet, "B11", result.ErrorCount)

	headers := []string{
		"Element", "Seq", "Material", "Reference", "eBKP", "Years",
		"GWP abs", "GWP rel", "UBP abs", "UBP rel", "PENR abs", "PENR rel",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(instancesSheet, cell, header)
	}
	for i, instance := range result.Instances {
		row := i + 2
		values := []any{
			instance.ElementID,
			instance.Sequence,
			instance.MaterialName,
			instance.ReferenceName,
			instance.CategoryCode,
			instance.AmortizationYears,
			instance.Absolute.GWP,
			instance.Relative.GWP,
			instance.Absolute.UBP,
			instance.Relative.UBP,
			instance.Absolute.PENR,
			instance.Relative.PENR,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(instancesSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
