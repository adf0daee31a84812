package strategy

// Strategy describes one signal-pool universe: which instruments, which
// lookback horizons, which cutoffs, and where the result is persisted.
// The built-in defaults mirror the production equity and ETF pools; a
// YAML file can override them (see Load).
type Strategy struct {
	Name     string `yaml:"name"`     // identifier, also the store key
	Universe string `yaml:"universe"` // equity | fund

	Horizons Horizons `yaml:"horizons"`
	Cutoffs  Cutoffs  `yaml:"cutoffs"`

	// UseAdjusted selects adjusted closes as the comparison basis.
	// Equities need it for corporate-action continuity; ETF adjustment
	// data is unreliable upstream so funds compare raw closes.
	UseAdjusted bool `yaml:"use_adjusted"`

	// ExcludeNameKeywords drops instruments whose display name contains
	// any keyword. Applied in the filter stage, after scoring, so scores
	// stay comparable across the full universe.
	ExcludeNameKeywords []string `yaml:"exclude_name_keywords"`

	Link LinkConfig `yaml:"link"`

	Store StoreTarget `yaml:"store"`
}

// Horizons are the three lookback lengths in trading days. Primary is
// the shortest and drives day-over-day delta tracking.
type Horizons struct {
	Primary int `yaml:"primary"`
	Mid     int `yaml:"mid"`
	Long    int `yaml:"long"`
}

// All returns the horizons in fixed primary/mid/long order.
func (h Horizons) All() []int {
	return []int{h.Primary, h.Mid, h.Long}
}

// Max returns the longest horizon.
func (h Horizons) Max() int {
	m := h.Primary
	if h.Mid > m {
		m = h.Mid
	}
	if h.Long > m {
		m = h.Long
	}
	return m
}

// Cutoffs are per-horizon score thresholds. A zero (or negative) cutoff
// means the horizon is scored but not gated; the primary cutoff is
// always gated.
type Cutoffs struct {
	Primary float64 `yaml:"primary"`
	Mid     float64 `yaml:"mid"`
	Long    float64 `yaml:"long"`
}

// LinkConfig derives the external reference link from an instrument
// code. Template receives one %s: the venue prefix concatenated with
// the numeric segment (e.g. 600519.SH -> sh600519 or SH600519).
type LinkConfig struct {
	Template       string `yaml:"template"`
	UppercaseVenue bool   `yaml:"uppercase_venue"`
}

// StoreTarget names this strategy's slice of the signal store.
type StoreTarget struct {
	File  string `yaml:"file"`  // csv driver: file name under DATA_DIR
	Table string `yaml:"table"` // postgres driver: table name
}

// DefaultEquity returns the production A-share equity pool strategy.
func DefaultEquity() Strategy {
	return Strategy{
		Name:     "stock",
		Universe: "equity",
		Horizons: Horizons{Primary: 50, Mid: 120, Long: 250},
		// All three horizons must clear 87: strong across short, mid
		// and long lookbacks simultaneously.
		Cutoffs:     Cutoffs{Primary: 87, Mid: 87, Long: 87},
		UseAdjusted: true,
		Link: LinkConfig{
			Template:       "https://quote.eastmoney.com/%s.html",
			UppercaseVenue: false,
		},
		Store: StoreTarget{
			File:  "strong_stocks.csv",
			Table: "strong_stocks",
		},
	}
}

// DefaultFund returns the production exchange-traded fund pool strategy.
func DefaultFund() Strategy {
	return Strategy{
		Name:     "etf",
		Universe: "fund",
		Horizons: Horizons{Primary: 50, Mid: 120, Long: 250},
		// Long horizon scored but not gated: fund histories are often
		// shorter than 250 sessions.
		Cutoffs:     Cutoffs{Primary: 87, Mid: 80, Long: 0},
		UseAdjusted: false,
		ExcludeNameKeywords: []string{
			"债", "货币", "理财", "黄金", "石油",
			"标普", "纳指", "道琼斯", "德国", "法国", "日经", "恒生",
		},
		Link: LinkConfig{
			Template:       "https://xueqiu.com/S/%s",
			UppercaseVenue: true,
		},
		Store: StoreTarget{
			File:  "strong_etfs.csv",
			Table: "strong_etfs",
		},
	}
}

// Defaults returns the built-in strategies keyed by name.
func Defaults() map[string]Strategy {
	return map[string]Strategy{
		"stock": DefaultEquity(),
		"etf":   DefaultFund(),
	}
}
