package interfaces

import (
	"time"

	payroll "opsledger/internal/payroll/domain"
)

type allowancesResponse struct {
	Housing   string `json:"housing"`
	Transport string `json:"transport"`
	Medical   string `json:"medical"`
	Other     string `json:"other"`
	Total     string `json:"total"`
}

type deductionsResponse struct {
	Tax        string `json:"tax"`
	StatutoryA string `json:"statutory_a"`
	StatutoryB string `json:"statutory_b"`
	Total      string `json:"total"`
}

type entryResponse struct {
	EmployeeID   string             `json:"employee_id"`
	EmployeeCode string             `json:"employee_code"`
	EmployeeName string             `json:"employee_name"`
	Department   string             `json:"department"`
	BasicSalary  string             `json:"basic_salary"`
	Allowances   allowancesResponse `json:"allowances"`
	Deductions   deductionsResponse `json:"deductions"`
	GrossSalary  string             `json:"gross_salary"`
	NetSalary    string             `json:"net_salary"`
	NegativeNet  bool               `json:"negative_net,omitempty"`
}

type totalsResponse struct {
	Basic      string `json:"basic"`
	Allowances string `json:"allowances"`
	Deductions string `json:"deductions"`
	Net        string `json:"net"`
	Count      int    `json:"count"`
}

type summaryResponse struct {
	AverageNet string `json:"average_net"`
	HighestNet string `json:"highest_net"`
	LowestNet  string `json:"lowest_net"`
}

type batchResponse struct {
	Period      string          `json:"period"`
	GeneratedAt time.Time       `json:"generated_at"`
	Entries     []entryResponse `json:"entries"`
	Totals      totalsResponse  `json:"totals"`
	Summary     summaryResponse `json:"summary"`
}

func toBatchResponse(batch payroll.Batch) batchResponse {
	resp := batchResponse{
		Period:      batch.Period.String(),
		GeneratedAt: batch.GeneratedAt,
		Entries:     make([]entryResponse, 0, len(batch.Entries)),
		Totals: totalsResponse{
			Basic:      batch.Totals.Basic.StringFixed(),
			Allowances: batch.Totals.Allowances.StringFixed(),
			Deductions: batch.Totals.Deductions.StringFixed(),
			Net:        batch.Totals.Net.StringFixed(),
			Count:      batch.Totals.Count,
		},
		Summary: summaryResponse{
			AverageNet: batch.Summary.AverageNet.StringFixed(),
			HighestNet: batch.Summary.HighestNet.StringFixed(),
			LowestNet:  batch.Summary.LowestNet.StringFixed(),
		},
	}
	for _, entry := range batch.Entries {
		resp.Entries = append(resp.Entries, entryResponse{
			EmployeeID:   entry.EmployeeID,
			EmployeeCode: entry.EmployeeCode,
			EmployeeName: entry.EmployeeName,
			Department:   entry.Department,
			BasicSalary:  entry.BasicSalary.StringFixed(),
			Allowances: allowancesResponse{
				Housing:   entry.Allowances.Housing.StringFixed(),
				Transport: entry.Allowances.Transport.StringFixed(),
				Medical:   entry.Allowances.Medical.StringFixed(),
				Other:     entry.Allowances.Other.StringFixed(),
				Total:     entry.Allowances.Total.StringFixed(),
			},
			Deductions: deductionsResponse{
				Tax:        entry.Deductions.Tax.StringFixed(),
				StatutoryA: entry.Deductions.StatutoryA.StringFixed(),
				StatutoryB: entry.Deductions.StatutoryB.StringFixed(),
				Total:      entry.Deductions.Total.StringFixed(),
			},
			GrossSalary: entry.GrossSalary.StringFixed(),
			NetSalary:   entry.NetSalary.StringFixed(),
			NegativeNet: entry.NegativeNet,
		})
	}
	return resp
}
