package core

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"localagent.ro/sme-agent/internal/store"
)

type wishlistStore interface {
	AddWishlistItem(ctx context.Context, item *store.WishlistItem) error
	RemoveWishlistItem(ctx context.Context, userID, productURL string) error
	GetWishlist(ctx context.Context, userID string) ([]store.WishlistItem, error)
}

// WishlistService manages per-user saved products with a cached
// title/price/image snapshot.
type WishlistService struct {
	store  wishlistStore
	logger *zap.Logger
}

func NewWishlistService(st wishlistStore, logger *zap.Logger) *WishlistService {
	return &WishlistService{store: st, logger: logger.Named("wishlist")}
}

// Add saves a product for the user. Returns (false, nil) when the URL was
// already present, which is a no-op, not a failure.
func (s *WishlistService) Add(ctx context.Context, userID, productURL, title, price, image string) (created bool, item *store.WishlistItem, err error) {
	if title == "" || title == "Produs" || title == "Vezi produs" {
		title = ExtractTitleFromURL(productURL)
	}

	item = &store.WishlistItem{
		UserID:       userID,
		ProductURL:   productURL,
		ProductTitle: &title,
	}
	if price != "" {
		item.ProductPrice = &price
	}
	if image != "" {
		item.ProductImage = &image
	}

	if err := s.store.AddWishlistItem(ctx, item); err != nil {
		if err == store.ErrDuplicate {
			return false, item, nil
		}
		return false, nil, err
	}
	return true, item, nil
}

func (s *WishlistService) Remove(ctx context.Context, userID, productURL string) error {
	return s.store.RemoveWishlistItem(ctx, userID, productURL)
}

func (s *WishlistService) List(ctx context.Context, userID string) ([]store.WishlistItem, error) {
	return s.store.GetWishlist(ctx, userID)
}

// Path segments that never describe the product itself.
var titleSkipWords = map[string]bool{
	"cautare": true, "search": true, "produs": true, "product": true,
	"p": true, "item": true, "pd": true, "oferta": true, "offer": true,
}

var (
	titleExtension = regexp.MustCompile(`(?i)\.(html|htm|php|aspx?)$`)
	trailingDigits = regexp.MustCompile(`[0-9]+$`)
)

// ExtractTitleFromURL derives a readable product title from the last
// meaningful URL path segment, falling back to the domain name.
func ExtractTitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Produs"
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	meaningful := segments[:0]
	for _, seg := range segments {
		if !titleSkipWords[strings.ToLower(seg)] {
			meaningful = append(meaningful, seg)
		}
	}

	last := ""
	if len(meaningful) > 0 {
		last = meaningful[len(meaningful)-1]
	} else if len(segments) > 0 {
		last = segments[len(segments)-1]
	}

	cleaned := titleExtension.ReplaceAllString(last, "")
	cleaned = strings.NewReplacer("-", " ", "_", " ").Replace(cleaned)
	if i := strings.IndexByte(cleaned, '?'); i >= 0 {
		cleaned = cleaned[:i]
	}
	cleaned = strings.TrimSpace(trailingDigits.ReplaceAllString(cleaned, ""))

	if len(cleaned) < 3 {
		host := strings.TrimPrefix(u.Hostname(), "www.")
		cleaned = strings.SplitN(host, ".", 2)[0]
	}
	if cleaned == "" {
		return "Produs"
	}
	// Capitalize by rune: slugs can start with a multi-byte letter.
	first, size := utf8.DecodeRuneInString(cleaned)
	return string(unicode.ToUpper(first)) + cleaned[size:]
}
