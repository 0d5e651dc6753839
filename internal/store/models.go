package store

import "time"

// Company is one imported financial-disclosure row. Monetary fields are kept
// nullable because the source files leave them blank for dormant companies.
// is_sme is computed once at import time and persisted.
type Company struct {
	CUI               string   `json:"cui" db:"cui"`
	Name              *string  `json:"denumire" db:"denumire"`
	CAEN              *string  `json:"caen" db:"caen"`
	ReportingYear     int      `json:"an_raportare" db:"an_raportare"`
	NetTurnover       *float64 `json:"cifra_afaceri_neta" db:"cifra_afaceri_neta"`
	FixedAssets       *float64 `json:"active_imobilizate" db:"active_imobilizate"`
	CurrentAssets     *float64 `json:"active_circulante" db:"active_circulante"`
	BalanceSheetTotal *float64 `json:"total_bilant" db:"total_bilant"`
	TotalEquity       *float64 `json:"capitaluri_total" db:"capitaluri_total"`
	NetProfit         *float64 `json:"profit_net" db:"profit_net"`
	NetLoss           *float64 `json:"pierdere_neta" db:"pierdere_neta"`
	AvgEmployees      *float64 `json:"numar_mediu_salariati" db:"numar_mediu_salariati"`
	IsSME             bool     `json:"is_sme" db:"is_sme"`
}

// ImportStats aggregates the imported dataset for the admin screen.
type ImportStats struct {
	TotalCompanies int   `json:"totalCompanies"`
	SMECount       int   `json:"smeCount"`
	NonSMECount    int   `json:"nonSmeCount"`
	Years          []int `json:"years"`
}

type WishlistItem struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"-" db:"user_id"`
	ProductURL   string    `json:"product_url" db:"product_url"`
	ProductTitle *string   `json:"product_title" db:"product_title"`
	ProductPrice *string   `json:"product_price" db:"product_price"`
	ProductImage *string   `json:"product_image" db:"product_image"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
