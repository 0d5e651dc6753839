package stream

import (
	"regexp"
	"strings"
)

// ProductRef is one product card extracted from assistant text: the target
// link plus whatever image/price/title markers accompanied it.
type ProductRef struct {
	URL   string
	Title string
	Price string
	Image string
}

// Accepted image-marker line formats.
var imagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)🖼️\s*Imagine:\s*(https?://[^\s\n)]+)`),
	regexp.MustCompile(`(?i)Imagine:\s*(https?://[^\s\n)]+)`),
	regexp.MustCompile(`(?i)\*\*Imagine\*\*:\s*(https?://[^\s\n]+)`),
}

var (
	pricePattern        = regexp.MustCompile(`(?i)(?:💰\s*)?Pre[țt]:\s*([0-9.,]+\s*(?:RON|Lei|EUR|€)?)`)
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	linkLinePattern     = regexp.MustCompile(`(?i)(?:🔗\s*)?Link:\s*(https?://[^\s\n]+)`)
	imageFileURL        = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp|gif)(\?|$)`)
	trailingBrackets    = regexp.MustCompile(`[)\]]+$`)
	multiBlankLines     = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// imageLineWindow is how many lines back an image marker still applies to a
// link.
const imageLineWindow = 4

// ExtractProducts scans the full accumulated assistant text and returns the
// display string with image-marker lines stripped plus the product references
// found. It is a pure function of its input so the client can cheaply re-run
// it on every content delta without incremental state.
func ExtractProducts(content string) (clean string, products []ProductRef) {
	lines := strings.Split(content, "\n")

	// First pass: image markers by line.
	imageAt := make(map[int]string)
	for idx, line := range lines {
		for _, p := range imagePatterns {
			if m := p.FindStringSubmatch(line); m != nil {
				imageAt[idx] = trailingBrackets.ReplaceAllString(m[1], "")
				break
			}
		}
	}

	// Second pass: links, each claiming the nearest preceding image and the
	// price seen since the last extracted product. Emitting a product resets
	// both so a later product is not contaminated by this one's metadata.
	var currentImage, currentPrice string
	seen := make(map[string]bool)
	for idx, line := range lines {
		if m := pricePattern.FindStringSubmatch(line); m != nil {
			currentPrice = strings.TrimSpace(m[1])
		}
		for i := idx; i >= 0 && i >= idx-imageLineWindow; i-- {
			if img, ok := imageAt[i]; ok {
				currentImage = img
				break
			}
		}

		for _, m := range markdownLinkPattern.FindAllStringSubmatch(line, -1) {
			title, linkURL := m[1], m[2]
			if imageFileURL.MatchString(linkURL) {
				continue
			}
			products = append(products, ProductRef{
				URL:   linkURL,
				Title: title,
				Price: currentPrice,
				Image: currentImage,
			})
			seen[linkURL] = true
			currentImage, currentPrice = "", ""
		}

		for _, m := range linkLinePattern.FindAllStringSubmatch(line, -1) {
			linkURL := m[1]
			if seen[linkURL] {
				continue
			}
			products = append(products, ProductRef{
				URL:   linkURL,
				Price: currentPrice,
				Image: currentImage,
			})
			seen[linkURL] = true
			currentImage, currentPrice = "", ""
		}
	}

	clean = content
	for _, p := range imagePatterns {
		clean = p.ReplaceAllString(clean, "")
	}
	clean = multiBlankLines.ReplaceAllString(clean, "\n\n")
	return strings.TrimSpace(clean), products
}
