package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"localagent.ro/sme-agent/internal/store"
)

type fakeUpserter struct {
	batches [][]store.Company
	err     error
}

func (f *fakeUpserter) UpsertCompanies(_ context.Context, companies []store.Company) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	batch := make([]store.Company, len(companies))
	copy(batch, companies)
	f.batches = append(f.batches, batch)
	return len(companies), nil
}

func (f *fakeUpserter) all() []store.Company {
	var out []store.Company
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

// 20-column layout of the disclosure file: CUI, DENUMIRE and CAEN are found
// by header name, the numeric indicators sit at fixed offsets.
const importHeader = "CUI;DENUMIRE;i1;i2;CAEN;c5;c6;c7;c8;i10;c10;c11;i13;c13;c14;c15;c16;i18;i19;i20"

func importRow(cui, name, caen, i1, i2, i10, i13, i18, i19, i20 string) string {
	return fmt.Sprintf("%s;%q;%s;%s;%s;;;;;%s;;;%s;;;;;%s;%s;%s",
		cui, name, i1, i2, caen, i10, i13, i18, i19, i20)
}

func TestImportParsesAndClassifies(t *testing.T) {
	data := strings.Join([]string{
		importHeader,
		importRow("123", "ATELIER LEMN SRL", "1629", "100000", "50000", "20000", "2500000", "10000", "0", "12"),
		importRow("456", "RETAILER MARE SA", "4711", "900000000", "600000000", "0", "1500000000", "0", "0", "4200"),
	}, "\n")

	up := &fakeUpserter{}
	importer := NewImporter(up, zap.NewNop())
	result, err := importer.Import(context.Background(), strings.NewReader(data), 2023)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Skipped)

	companies := up.all()
	require.Len(t, companies, 2)

	sme := companies[0]
	assert.Equal(t, "123", sme.CUI)
	require.NotNil(t, sme.Name)
	assert.Equal(t, "ATELIER LEMN SRL", *sme.Name)
	require.NotNil(t, sme.CAEN)
	assert.Equal(t, "1629", *sme.CAEN)
	assert.Equal(t, 2023, sme.ReportingYear)
	require.NotNil(t, sme.NetTurnover)
	assert.Equal(t, 2_500_000.0, *sme.NetTurnover)
	require.NotNil(t, sme.BalanceSheetTotal)
	assert.Equal(t, 150_000.0, *sme.BalanceSheetTotal)
	require.NotNil(t, sme.AvgEmployees)
	assert.Equal(t, 12.0, *sme.AvgEmployees)
	assert.True(t, sme.IsSME)

	assert.False(t, companies[1].IsSME)
}

func TestImportSkipsEmptyAndRepeatedHeaderCUI(t *testing.T) {
	data := strings.Join([]string{
		importHeader,
		importRow("", "FARA CUI SRL", "1629", "1", "1", "1", "1", "1", "0", "1"),
		importRow("CUI", "HEADER REPETAT", "1629", "1", "1", "1", "1", "1", "0", "1"),
		importRow("789", "VALIDA SRL", "1629", "1", "1", "1", "1", "1", "0", "1"),
	}, "\n")

	up := &fakeUpserter{}
	importer := NewImporter(up, zap.NewNop())
	result, err := importer.Import(context.Background(), strings.NewReader(data), 2023)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, up.all(), 1)
	assert.Equal(t, "789", up.all()[0].CUI)
}

func TestImportHandlesQuotedSemicolons(t *testing.T) {
	data := strings.Join([]string{
		importHeader,
		importRow("111", "NUME; CU SEPARATOR SRL", "1629", "1", "1", "1", "1", "1", "0", "1"),
	}, "\n")

	up := &fakeUpserter{}
	importer := NewImporter(up, zap.NewNop())
	_, err := importer.Import(context.Background(), strings.NewReader(data), 2022)

	require.NoError(t, err)
	require.Len(t, up.all(), 1)
	require.NotNil(t, up.all()[0].Name)
	assert.Equal(t, "NUME; CU SEPARATOR SRL", *up.all()[0].Name)
}

func TestImportFlushesInBatches(t *testing.T) {
	var b strings.Builder
	b.WriteString(importHeader)
	for i := 0; i < 150; i++ {
		b.WriteString("\n")
		b.WriteString(importRow(fmt.Sprintf("%d", 1000+i), "FIRMA SRL", "1629", "1", "1", "1", "1", "1", "0", "1"))
	}

	up := &fakeUpserter{}
	importer := NewImporter(up, zap.NewNop())
	result, err := importer.Import(context.Background(), strings.NewReader(b.String()), 2023)

	require.NoError(t, err)
	assert.Equal(t, 150, result.Processed)
	require.Len(t, up.batches, 2)
	assert.Len(t, up.batches[0], 100)
	assert.Len(t, up.batches[1], 50)
}

func TestImportRequiresCUIColumn(t *testing.T) {
	importer := NewImporter(&fakeUpserter{}, zap.NewNop())
	_, err := importer.Import(context.Background(), strings.NewReader("DENUMIRE;CAEN\nX;Y"), 2023)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CUI")
}
