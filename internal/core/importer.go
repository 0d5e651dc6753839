package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"localagent.ro/sme-agent/internal/store"
)

// Fixed column positions of the financial indicators in the government
// disclosure file (WEB_BL_BS_SL_AN<year>.txt). CUI, CAEN and DENUMIRE are
// located by header name; the numeric indicators sit at stable offsets.
const (
	colFixedAssets   = 2  // i1
	colCurrentAssets = 3  // i2
	colTotalEquity   = 9  // i10
	colNetTurnover   = 12 // i13
	colNetProfit     = 17 // i18
	colNetLoss       = 18 // i19
	colAvgEmployees  = 19 // i20
)

const importBatchSize = 100

type companyUpserter interface {
	UpsertCompanies(ctx context.Context, companies []store.Company) (int, error)
}

// Importer parses the semicolon-delimited disclosure file and upserts
// companies in batches, classifying each row at import time.
type Importer struct {
	store  companyUpserter
	logger *zap.Logger
}

func NewImporter(st companyUpserter, logger *zap.Logger) *Importer {
	return &Importer{store: st, logger: logger.Named("import")}
}

// ImportResult summarizes one bulk import run.
type ImportResult struct {
	Processed int
	Skipped   int
}

// ImportFile reads the disclosure file at path and loads it for the given
// reporting year.
func (im *Importer) ImportFile(ctx context.Context, path string, year int) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f, year)
}

// Import consumes semicolon-delimited, quote-escaped rows with a header line.
// Rows missing the CUI or repeating the literal header value are skipped.
func (im *Importer) Import(ctx context.Context, r io.Reader, year int) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	cuiIdx, caenIdx, nameIdx := -1, -1, -1
	for i, h := range header {
		switch strings.ToUpper(strings.TrimSpace(h)) {
		case "CUI":
			cuiIdx = i
		case "CAEN":
			caenIdx = i
		case "DENUMIRE":
			nameIdx = i
		}
	}
	if cuiIdx == -1 {
		return nil, fmt.Errorf("required column CUI not found in header")
	}

	result := &ImportResult{}
	batch := make([]store.Company, 0, importBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		count, err := im.store.UpsertCompanies(ctx, batch)
		if err != nil {
			return err
		}
		result.Processed += count
		batch = batch[:0]
		return nil
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			im.logger.Warn("skipping malformed row", zap.Error(err))
			result.Skipped++
			continue
		}

		rec := recordFromRow(row, cuiIdx, caenIdx)
		if rec.CUI == "" || strings.EqualFold(rec.CUI, "CUI") {
			result.Skipped++
			continue
		}

		var name *string
		if nameIdx != -1 {
			if v := strings.TrimSpace(field(row, nameIdx)); v != "" {
				name = &v
			}
		}

		batch = append(batch, BuildCompany(rec, name, year))
		if len(batch) >= importBatchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := flush(); err != nil {
		return result, err
	}

	im.logger.Info("import finished",
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("year", year))
	return result, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func recordFromRow(row []string, cuiIdx, caenIdx int) FinancialRecord {
	return FinancialRecord{
		CUI:  strings.TrimSpace(field(row, cuiIdx)),
		CAEN: strings.TrimSpace(field(row, caenIdx)),
		I1:   field(row, colFixedAssets),
		I2:   field(row, colCurrentAssets),
		I10:  field(row, colTotalEquity),
		I13:  field(row, colNetTurnover),
		I18:  field(row, colNetProfit),
		I19:  field(row, colNetLoss),
		I20:  field(row, colAvgEmployees),
	}
}

// BuildCompany turns a raw record into the persisted row, computing the
// balance-sheet total and the SME classification once, at import time.
func BuildCompany(rec FinancialRecord, name *string, year int) store.Company {
	fixedAssets := ParseNumber(rec.I1)
	currentAssets := ParseNumber(rec.I2)
	total := orZero(fixedAssets) + orZero(currentAssets)

	var caen *string
	if rec.CAEN != "" {
		caen = &rec.CAEN
	}

	return store.Company{
		CUI:               rec.CUI,
		Name:              name,
		CAEN:              caen,
		ReportingYear:     year,
		NetTurnover:       ParseNumber(rec.I13),
		FixedAssets:       fixedAssets,
		CurrentAssets:     currentAssets,
		BalanceSheetTotal: &total,
		TotalEquity:       ParseNumber(rec.I10),
		NetProfit:         ParseNumber(rec.I18),
		NetLoss:           ParseNumber(rec.I19),
		AvgEmployees:      ParseNumber(rec.I20),
		IsSME:             ClassifyRecord(rec),
	}
}
