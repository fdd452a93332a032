package interfaces

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	payroll "opsledger/internal/payroll/domain"
)

// BuildPayrollXLSX renders a payroll batch workbook with a summary
// sheet and one row per entry.
func BuildPayrollXLSX(batch payroll.Batch) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	entriesSheet := "entries"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(entriesSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Payroll Batch")
	_ = f.SetCellValue(summarySheet, "A3", "Period")
	_ = f.SetCellValue(summarySheet, "B3", batch.Period.String())
	_ = f.SetCellValue(summarySheet, "A4", "Generated")
	_ = f.SetCellValue(summarySheet, "B4", batch.GeneratedAt.Format("2006-01-02 15:04:05"))
	_ = f.SetCellValue(summarySheet, "A5", "Employees")
	_ = f.SetCellValue(summarySheet, "B5", batch.Totals.Count)
	_ = f.SetCellValue(summarySheet, "A6", "Total Basic")
	_ = f.SetCellValue(summarySheet, "B6", batch.Totals.Basic.StringFixed())
	_ = f.SetCellValue(summarySheet, "A7", "Total Allowances")
	_ = f.SetCellValue(summarySheet, "B7", batch.Totals.Allowances.StringFixed())
	_ = f.SetCellValue(summarySheet, "A8", "Total Deductions")
	_ = f.SetCellValue(summarySheet, "B8", batch.Totals.Deductions.StringFixed())
	_ = f.SetCellValue(summarySheet, "A9", "Total Net")
	_ = f.SetCellValue(summarySheet, "B9", batch.Totals.Net.StringFixed())
	_ = f.SetCellValue(summarySheet, "A10", "Average Net")
	_ = f.SetCellValue(summarySheet, "B10", batch.Summary.AverageNet.StringFixed())
	_ = f.SetCellValue(summarySheet, "A11", "Highest Net")
	_ = f.SetCellValue(summarySheet, "B11", batch.Summary.HighestNet.StringFixed())
	_ = f.SetCellValue(summarySheet, "A12", "Lowest Net")
	_ = f.SetCellValue(summarySheet, "B12", batch.Summary.LowestNet.StringFixed())

	headers := []string{"Code", "Name", "Department", "Basic", "Housing", "Transport", "Medical", "Other", "Allowances", "Tax", "Statutory A", "Statutory B", "Deductions", "Gross", "Net", "Flag"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(entriesSheet, cell, header)
	}
	for i, entry := range batch.Entries {
		row := i + 2
		flag := ""
		if entry.NegativeNet {
			flag = "negative net"
		}
		values := []any{
			entry.EmployeeCode,
			entry.EmployeeName,
			entry.Department,
			entry.BasicSalary.StringFixed(),
			entry.Allowances.Housing.StringFixed(),
			entry.Allowances.Transport.StringFixed(),
			entry.Allowances.Medical.StringFixed(),
			entry.Allowances.Other.StringFixed(),
			entry.Allowances.Total.StringFixed(),
			entry.Deductions.Tax.StringFixed(),
			entry.Deductions.StatutoryA.StringFixed(),
			entry.Deductions.StatutoryB.StringFixed(),
			entry.Deductions.Total.StringFixed(),
			entry.GrossSalary.StringFixed(),
			entry.NetSalary.StringFixed(),
			flag,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(entriesSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func payrollFileName(batch payroll.Batch) string {
	return fmt.Sprintf("payroll-%s.xlsx", batch.Period)
}
