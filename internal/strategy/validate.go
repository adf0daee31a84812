package strategy

import "fmt"

// Validate checks a strategy for internally consistent settings.
func Validate(s *Strategy) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Universe != "equity" && s.Universe != "fund" {
		return fmt.Errorf("universe must be equity or fund, got %q", s.Universe)
	}

	h := s.Horizons
	if h.Primary <= 0 || h.Mid <= 0 || h.Long <= 0 {
		return fmt.Errorf("horizons must be positive, got %d/%d/%d", h.Primary, h.Mid, h.Long)
	}
	if !(h.Primary < h.Mid && h.Mid < h.Long) {
		return fmt.Errorf("horizons must be strictly increasing, got %d/%d/%d", h.Primary, h.Mid, h.Long)
	}

	// The primary horizon drives delta tracking and must always gate.
	if s.Cutoffs.Primary <= 0 {
		return fmt.Errorf("primary cutoff must be positive")
	}
	for _, c := range []float64{s.Cutoffs.Primary, s.Cutoffs.Mid, s.Cutoffs.Long} {
		if c >= 100 {
			return fmt.Errorf("cutoff %v leaves no instrument able to qualify", c)
		}
	}

	if s.Link.Template == "" {
		return fmt.Errorf("link template is required")
	}

	if s.Store.File == "" && s.Store.Table == "" {
		return fmt.Errorf("store file or table is required")
	}

	return nil
}
