package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrDuplicate reports that a uniqueness constraint already holds the row.
// Callers treat this as a no-op, not a failure.
var ErrDuplicate = errors.New("already present")

type SQLiteStore struct {
	db         *sql.DB
	logger     *zap.Logger
	ftsEnabled bool
}

func NewSQLiteStore(dataSourceName string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger.Named("store")}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS companies (
        cui TEXT PRIMARY KEY,
        denumire TEXT,
        caen TEXT,
        an_raportare INTEGER NOT NULL,
        cifra_afaceri_neta REAL,
        active_imobilizate REAL,
        active_circulante REAL,
        total_bilant REAL,
        capitaluri_total REAL,
        profit_net REAL,
        pierdere_neta REAL,
        numar_mediu_salariati REAL,
        is_sme BOOLEAN NOT NULL DEFAULT FALSE
    );

    CREATE TABLE IF NOT EXISTS message_counts (
        user_id TEXT NOT NULL,
        day TEXT NOT NULL,
        message_count INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (user_id, day)
    );

    CREATE TABLE IF NOT EXISTS wishlist (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        product_url TEXT NOT NULL,
        product_title TEXT,
        product_price TEXT,
        product_image TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (user_id, product_url)
    );
    `
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Full-text name search is optional: drivers built without the fts5
	// module fall back to substring search in SearchSME.
	_, err := s.db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS companies_fts USING fts5(cui UNINDEXED, denumire)`)
	if err != nil {
		s.logger.Warn("fts5 unavailable, name search will use substring matching", zap.Error(err))
		s.ftsEnabled = false
		return nil
	}
	s.ftsEnabled = true
	return nil
}

// UpsertCompanies replaces rows by CUI (last write wins) in a single
// transaction and returns the number of rows written.
func (s *SQLiteStore) UpsertCompanies(ctx context.Context, companies []Company) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO companies (
            cui, denumire, caen, an_raportare, cifra_afaceri_neta,
            active_imobilizate, active_circulante, total_bilant,
            capitaluri_total, profit_net, pierdere_neta,
            numar_mediu_salariati, is_sme
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(cui) DO UPDATE SET
            denumire = excluded.denumire,
            caen = excluded.caen,
            an_raportare = excluded.an_raportare,
            cifra_afaceri_neta = excluded.cifra_afaceri_neta,
            active_imobilizate = excluded.active_imobilizate,
            active_circulante = excluded.active_circulante,
            total_bilant = excluded.total_bilant,
            capitaluri_total = excluded.capitaluri_total,
            profit_net = excluded.profit_net,
            pierdere_neta = excluded.pierdere_neta,
            numar_mediu_salariati = excluded.numar_mediu_salariati,
            is_sme = excluded.is_sme`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare company upsert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, c := range companies {
		_, err = stmt.ExecContext(ctx,
			c.CUI, c.Name, c.CAEN, c.ReportingYear, c.NetTurnover,
			c.FixedAssets, c.CurrentAssets, c.BalanceSheetTotal,
			c.TotalEquity, c.NetProfit, c.NetLoss, c.AvgEmployees, c.IsSME)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert company %s: %w", c.CUI, err)
		}

		if s.ftsEnabled {
			if _, err = tx.ExecContext(ctx, `DELETE FROM companies_fts WHERE cui = ?`, c.CUI); err != nil {
				return 0, fmt.Errorf("failed to refresh fts row for %s: %w", c.CUI, err)
			}
			if c.Name != nil {
				if _, err = tx.ExecContext(ctx, `INSERT INTO companies_fts (cui, denumire) VALUES (?, ?)`, c.CUI, *c.Name); err != nil {
					return 0, fmt.Errorf("failed to index company name for %s: %w", c.CUI, err)
				}
			}
		}
		count++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import transaction: %w", err)
	}
	return count, nil
}

// GetCompanyByCUI returns nil when the identifier is unknown.
func (s *SQLiteStore) GetCompanyByCUI(ctx context.Context, cui string) (*Company, error) {
	var company Company
	err := sqlscan.Get(ctx, s.db, &company, `SELECT * FROM companies WHERE cui = ?`, cui)
	if err != nil {
		if sqlscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query company: %w", err)
	}
	return &company, nil
}

// SearchSME finds SME companies by name. It tries the full-text index first
// and falls back to a case-insensitive substring match when that is
// unavailable or errors. Zero results is a successful, empty answer.
func (s *SQLiteStore) SearchSME(ctx context.Context, query string, limit int) ([]Company, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if s.ftsEnabled {
		companies, err := s.searchSMEFullText(ctx, query, limit)
		if err == nil {
			return companies, nil
		}
		s.logger.Warn("full-text search failed, falling back to substring match", zap.Error(err))
	}

	var companies []Company
	err := sqlscan.Select(ctx, s.db, &companies, `
        SELECT * FROM companies
        WHERE is_sme = 1 AND denumire LIKE ? COLLATE NOCASE
        ORDER BY cui
        LIMIT ?`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search companies: %w", err)
	}
	return companies, nil
}

func (s *SQLiteStore) searchSMEFullText(ctx context.Context, query string, limit int) ([]Company, error) {
	var companies []Company
	err := sqlscan.Select(ctx, s.db, &companies, `
        SELECT c.* FROM companies_fts f
        JOIN companies c ON c.cui = f.cui
        WHERE f.denumire MATCH ? AND c.is_sme = 1
        ORDER BY rank
        LIMIT ?`, ftsMatchExpr(query), limit)
	if err != nil {
		return nil, err
	}
	return companies, nil
}

// ftsMatchExpr quotes each term so user punctuation cannot change the match
// expression's meaning.
func ftsMatchExpr(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// Stats aggregates SME / non-SME counts and the distinct reporting years.
func (s *SQLiteStore) Stats(ctx context.Context) (*ImportStats, error) {
	stats := &ImportStats{}
	row := s.db.QueryRowContext(ctx, `
        SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_sme THEN 1 ELSE 0 END), 0)
        FROM companies`)
	if err := row.Scan(&stats.TotalCompanies, &stats.SMECount); err != nil {
		return nil, fmt.Errorf("failed to aggregate companies: %w", err)
	}
	stats.NonSMECount = stats.TotalCompanies - stats.SMECount

	if err := sqlscan.Select(ctx, s.db, &stats.Years,
		`SELECT DISTINCT an_raportare FROM companies ORDER BY an_raportare`); err != nil {
		return nil, fmt.Errorf("failed to collect reporting years: %w", err)
	}
	return stats, nil
}

// IncrementMessageCount is the single atomic check-and-increment for the
// daily quota. The WHERE clause keeps the counter unchanged once the limit is
// reached, so two concurrent requests cannot both take the last slot. The
// returned count is the value after a successful increment, or the current
// value when the attempt was rejected.
func (s *SQLiteStore) IncrementMessageCount(ctx context.Context, userID, day string, limit int) (count int, allowed bool, err error) {
	// A non-positive limit rejects outright; the insert below would otherwise
	// create the day row at 1 before the guard could apply.
	if limit <= 0 {
		count, err = s.getMessageCount(ctx, userID, day)
		return count, false, err
	}

	row := s.db.QueryRowContext(ctx, `
        INSERT INTO message_counts (user_id, day, message_count)
        VALUES (?, ?, 1)
        ON CONFLICT(user_id, day) DO UPDATE SET
            message_count = message_count + 1
            WHERE message_counts.message_count < ?
        RETURNING message_count`, userID, day, limit)

	if err = row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Update suppressed by the quota guard: the row exists at the limit.
			count, err = s.getMessageCount(ctx, userID, day)
			return count, false, err
		}
		return 0, false, fmt.Errorf("failed to increment message count: %w", err)
	}
	return count, count <= limit, nil
}

func (s *SQLiteStore) getMessageCount(ctx context.Context, userID, day string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT message_count FROM message_counts WHERE user_id = ? AND day = ?`,
		userID, day).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read message count: %w", err)
	}
	return count, nil
}

// AddWishlistItem inserts the (user, product URL) pair. A duplicate add
// returns ErrDuplicate so callers can report "already present" instead of a
// hard failure.
func (s *SQLiteStore) AddWishlistItem(ctx context.Context, item *WishlistItem) error {
	item.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO wishlist (id, user_id, product_url, product_title, product_price, product_image)
        VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.ProductURL, item.ProductTitle, item.ProductPrice, item.ProductImage)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert wishlist item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveWishlistItem(ctx context.Context, userID, productURL string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wishlist WHERE user_id = ? AND product_url = ?`, userID, productURL)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist item: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) GetWishlist(ctx context.Context, userID string) ([]WishlistItem, error) {
	var items []WishlistItem
	err := sqlscan.Select(ctx, s.db, &items, `
        SELECT * FROM wishlist WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
	}
	return items, nil
}
