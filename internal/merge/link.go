package merge

import (
	"fmt"
	"strings"

	"github.com/chilam/strongpool/internal/strategy"
)

// ExternalLink derives the reference link for an instrument code of the
// form "600519.SH": the market suffix becomes the venue prefix, cased
// per the link config, concatenated with the numeric segment and placed
// into the template. Codes without a market suffix get no link. No
// network calls.
func ExternalLink(code string, cfg strategy.LinkConfig) string {
	num, suffix, ok := strings.Cut(code, ".")
	if !ok || num == "" || suffix == "" {
		return ""
	}

	venue := strings.ToLower(suffix)
	if cfg.UppercaseVenue {
		venue = strings.ToUpper(suffix)
	}

	return fmt.Sprintf(cfg.Template, venue+num)
}
