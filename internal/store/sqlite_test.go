package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func ptr[T any](v T) *T { return &v }

func testCompany(cui, name string, isSME bool) Company {
	return Company{
		CUI:           cui,
		Name:          ptr(name),
		CAEN:          ptr("1629"),
		ReportingYear: 2023,
		NetTurnover:   ptr(2_500_000.0),
		AvgEmployees:  ptr(12.0),
		IsSME:         isSME,
	}
}

func TestUpsertCompaniesLastWriteWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	count, err := st.UpsertCompanies(ctx, []Company{testCompany("123", "ATELIER LEMN SRL", true)})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	updated := testCompany("123", "ATELIER LEMN NOU SRL", false)
	updated.ReportingYear = 2024
	_, err = st.UpsertCompanies(ctx, []Company{updated})
	require.NoError(t, err)

	got, err := st.GetCompanyByCUI(ctx, "123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ATELIER LEMN NOU SRL", *got.Name)
	assert.Equal(t, 2024, got.ReportingYear)
	assert.False(t, got.IsSME)
}

func TestGetCompanyByCUIUnknownIsNotAnError(t *testing.T) {
	st := newTestStore(t)

	got, err := st.GetCompanyByCUI(context.Background(), "999999")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSearchSMEFiltersAndMatchesCaseInsensitively(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.UpsertCompanies(ctx, []Company{
		testCompany("1", "ATELIER LEMN SRL", true),
		testCompany("2", "atelier ceramica srl", true),
		testCompany("3", "ATELIER MARE SA", false),
		testCompany("4", "FLORARIA IRIS SRL", true),
	})
	require.NoError(t, err)

	companies, err := st.SearchSME(ctx, "atelier", 10)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	cuis := []string{companies[0].CUI, companies[1].CUI}
	assert.ElementsMatch(t, []string{"1", "2"}, cuis)

	companies, err = st.SearchSME(ctx, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, companies)

	companies, err = st.SearchSME(ctx, "inexistent", 10)
	require.NoError(t, err)
	assert.Empty(t, companies)
}

func TestSearchSMERespectsLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.UpsertCompanies(ctx, []Company{
		testCompany("1", "ATELIER UNU", true),
		testCompany("2", "ATELIER DOI", true),
		testCompany("3", "ATELIER TREI", true),
	})
	require.NoError(t, err)

	companies, err := st.SearchSME(ctx, "atelier", 2)
	require.NoError(t, err)
	assert.Len(t, companies, 2)
}

func TestStats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	older := testCompany("1", "VECHE SRL", true)
	older.ReportingYear = 2022
	_, err := st.UpsertCompanies(ctx, []Company{
		older,
		testCompany("2", "NOUA SRL", true),
		testCompany("3", "MARE SA", false),
	})
	require.NoError(t, err)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCompanies)
	assert.Equal(t, 2, stats.SMECount)
	assert.Equal(t, 1, stats.NonSMECount)
	assert.Equal(t, []int{2022, 2023}, stats.Years)
}

func TestIncrementMessageCountEnforcesDailyLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		count, allowed, err := st.IncrementMessageCount(ctx, "user-1", "2026-08-29", 3)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, i, count)
	}

	count, allowed, err := st.IncrementMessageCount(ctx, "user-1", "2026-08-29", 3)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 3, count, "rejected attempt must not raise the counter")

	// A new day starts a fresh counter, and other users are unaffected.
	_, allowed, err = st.IncrementMessageCount(ctx, "user-1", "2026-08-30", 3)
	require.NoError(t, err)
	assert.True(t, allowed)
	_, allowed, err = st.IncrementMessageCount(ctx, "user-2", "2026-08-29", 3)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIncrementMessageCountZeroLimitNeverCreatesARow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	count, allowed, err := st.IncrementMessageCount(ctx, "user-1", "2026-08-29", 0)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, count)

	count, allowed, err = st.IncrementMessageCount(ctx, "user-1", "2026-08-29", 0)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, count, "rejected attempts must not create or advance the counter")
}

func TestWishlistRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	item := &WishlistItem{
		UserID:       "user-1",
		ProductURL:   "https://atelier.ro/masa",
		ProductTitle: ptr("Masă stejar"),
		ProductPrice: ptr("450 RON"),
	}
	require.NoError(t, st.AddWishlistItem(ctx, item))
	assert.NotEmpty(t, item.ID)

	err := st.AddWishlistItem(ctx, &WishlistItem{UserID: "user-1", ProductURL: "https://atelier.ro/masa"})
	assert.ErrorIs(t, err, ErrDuplicate)

	items, err := st.GetWishlist(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://atelier.ro/masa", items[0].ProductURL)
	require.NotNil(t, items[0].ProductTitle)
	assert.Equal(t, "Masă stejar", *items[0].ProductTitle)

	require.NoError(t, st.RemoveWishlistItem(ctx, "user-1", "https://atelier.ro/masa"))
	assert.ErrorIs(t, st.RemoveWishlistItem(ctx, "user-1", "https://atelier.ro/masa"), sql.ErrNoRows)

	items, err = st.GetWishlist(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}
