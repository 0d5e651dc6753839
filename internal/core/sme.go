package core

import (
	"regexp"
	"strconv"
	"strings"
)

// EU SME ceilings converted to RON at the fixed rate of 5 RON/EUR used by the
// importer: 50M EUR turnover and 43M EUR balance-sheet total.
const (
	SMEMaxEmployees       = 250
	SMEMaxTurnoverRON     = 50_000_000 * 5
	SMEMaxBalanceSheetRON = 43_000_000 * 5
)

// FinancialRecord is one row of the government financial-disclosure dataset,
// still in its raw string form. Field names follow the source file's indicator
// codes (i1 = fixed assets, i2 = current assets, i10 = total equity,
// i13 = net turnover, i18 = net profit, i19 = net loss, i20 = average employees).
type FinancialRecord struct {
	CUI  string `json:"CUI"`
	CAEN string `json:"CAEN"`
	I1   string `json:"i1"`
	I2   string `json:"i2"`
	I10  string `json:"i10"`
	I13  string `json:"i13"`
	I18  string `json:"i18"`
	I19  string `json:"i19"`
	I20  string `json:"i20"`
}

var nonNumericChars = regexp.MustCompile(`[^\d.-]`)

// ParseNumber reads a numeric field from the disclosure file. Empty or
// unparseable values resolve to nil, not zero, so absence stays observable.
func ParseNumber(value string) *float64 {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	cleaned := nonNumericChars.ReplaceAllString(value, "")
	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &num
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// IsSME applies the EU definition: fewer than 250 employees AND at most one of
// the monetary ceilings may be exceeded. Pure function of the three inputs.
func IsSME(employees, turnover, balanceSheet float64) bool {
	if employees >= SMEMaxEmployees {
		return false
	}
	return turnover <= SMEMaxTurnoverRON || balanceSheet <= SMEMaxBalanceSheetRON
}

// ClassifyRecord computes the persisted is_sme flag for a raw record.
// The balance-sheet total is the sum of fixed and current assets.
func ClassifyRecord(rec FinancialRecord) bool {
	employees := orZero(ParseNumber(rec.I20))
	turnover := orZero(ParseNumber(rec.I13))
	balance := orZero(ParseNumber(rec.I1)) + orZero(ParseNumber(rec.I2))
	return IsSME(employees, turnover, balance)
}
