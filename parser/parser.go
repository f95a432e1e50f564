package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/aluiziolira/go-vitibrasil/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// encodingFixer repairs UTF-8 text that was decoded as Latin-1 and encoded
// again. Longer sequences sharing a prefix must come first: the replacer
// prefers earlier pairs at the same position.
var encodingFixer = strings.NewReplacer(
	"Ã¡", "Á", "Ã©", "É", "Ã\u00ad", "Í", "Ã³", "Ó", "Ãº", "Ú", "Ã\u00a0", "À",
	"Ã¢", "Â", "Ã£", "Ã", "Ã§", "Ç", "Ãª", "Ê", "Ã«", "Ë", "Ã¬", "Ì",
	"Ã®", "Î", "Ã¯", "Ï", "Ã´", "Ô", "Ã¶", "Ö", "Ã¹", "Ù", "Ã¼", "Ü",
	"Ã½", "Ý", "Ã¿", "Ÿ", "Ã‘", "Ñ", "Ã²", "Ò",
	"â€™", "'", "â€œ", "\"", "â€“", "-", "â€˜", "'", "â€¢", "•", "â€¡", "‡",
	"â€", "\"",
	"â‚¬", "€", "â„¢", "™", "â‹…", "⋅",
	"âˆž", "∞", "âˆ†", "∆", "âˆ‰", "∩", "âˆ’", "−", "âˆ—", "*", "âˆ…", "∅",
	"âˆ•", "/", "âˆš", "√", "âˆ›", "∧", "âˆª", "∪", "âˆ«", "∫", "âˆ‡", "∇",
	"âˆµ", "µ", "âˆƒ", "∃", "âˆˆ", "∈", "âˆ‚", "∂",
	"âˆ", "∑",
	"â‰¥", "≥", "â‰¤", "≤",
	"â‰", "≠",
)

// FixEncoding replaces known double-encoded sequences with the intended
// characters. It must run before any accent stripping or comparison.
func FixEncoding(s string) string {
	return encodingFixer.Replace(s)
}

// StripAccents removes combining marks after canonical decomposition.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// IsPlaceholder reports whether s is a missing-data marker.
func IsPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	return s == "-" || s == "*"
}

// NormalizeText trims s and maps placeholders to "0"; anything else is
// returned unaccented and uppercased.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	if IsPlaceholder(s) {
		return "0"
	}
	return strings.ToUpper(StripAccents(s))
}

// FoldHeader canonicalizes a column name for lookups.
func FoldHeader(s string) string {
	return strings.ToUpper(StripAccents(strings.TrimSpace(s)))
}

// ParseQuantity coerces s to a non-negative integer. Non-numeric text is 0.
func ParseQuantity(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return clamp(n)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt64 {
		return 0
	}
	return clamp(int64(f))
}

// ParseSiteNumber strips the site's "." thousand separators before coercion.
func ParseSiteNumber(s string) int64 {
	return ParseQuantity(strings.ReplaceAll(s, ".", ""))
}

func clamp(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// ValidateRecord ensures a record is fit for output.
func ValidateRecord(r *models.Record) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.Entity) == "" {
		return fmt.Errorf("record missing entity")
	}
	if r.Year < 1000 || r.Year > 9999 {
		return fmt.Errorf("record %s has invalid year %d", r.Entity, r.Year)
	}
	if r.Quantity < 0 {
		return fmt.Errorf("record %s has negative quantity", r.Entity)
	}
	if r.Value != nil && *r.Value < 0 {
		return fmt.Errorf("record %s has negative value", r.Entity)
	}
	return nil
}
