package eastmoney

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/chilam/strongpool/pkg/httputil"
	"github.com/chilam/strongpool/pkg/logger"
	"github.com/chilam/strongpool/pkg/redis"
)

const (
	surveyURL   = "https://emweb.securities.eastmoney.com/PC_HSF10/CompanySurvey/Index?type=web&code=%s"
	categoryTTL = 24 * time.Hour
)

// CategoryClient resolves an instrument's industry board from the
// Eastmoney company-survey page, one HTTP fetch per instrument.
// Implements contracts.CategoryProvider. Lookups are cached: boards
// change rarely and the universe is large.
type CategoryClient struct {
	http   *httputil.Client
	cache  *redis.Cache // may be nil
	logger *logger.Logger
}

// NewCategoryClient creates a category client. cache may be nil.
func NewCategoryClient(log *logger.Logger, cache *redis.Cache) *CategoryClient {
	return &CategoryClient{
		http:   httputil.NewWithTimeout(log, 15*time.Second).WithRetry(1, 500*time.Millisecond),
		cache:  cache,
		logger: log.WithField("module", "eastmoney"),
	}
}

// Category fetches the industry text for one instrument code
// ("600519.SH"). Errors are per-instrument; the caller decides whether
// to substitute a placeholder.
func (c *CategoryClient) Category(ctx context.Context, code string) (string, error) {
	pageCode, err := pageCode(code)
	if err != nil {
		return "", err
	}

	cacheKey := "category:" + code
	if c.cache != nil {
		var cached string
		if hit, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(surveyURL, pageCode), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://quote.eastmoney.com/")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch survey page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse survey page: %w", err)
	}

	category := extractIndustry(doc)
	if category == "" {
		return "", fmt.Errorf("no industry cell for %s", code)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, cacheKey, category, categoryTTL)
	}

	return category, nil
}

// extractIndustry finds the cell following the 所属行业 label.
func extractIndustry(doc *goquery.Document) string {
	var category string
	doc.Find("td, th").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.TrimSpace(s.Text()), "所属行业") {
			category = strings.TrimSpace(s.Next().Text())
			return false
		}
		return true
	})
	return category
}

// pageCode converts "600519.SH" into Eastmoney's "SH600519" page code.
func pageCode(code string) (string, error) {
	num, suffix, ok := strings.Cut(code, ".")
	if !ok || num == "" || suffix == "" {
		return "", fmt.Errorf("code %q has no market suffix", code)
	}
	return strings.ToUpper(suffix) + num, nil
}
