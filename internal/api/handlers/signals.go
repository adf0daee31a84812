package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/pkg/logger"
)

// SignalHandler serves the persisted signal pool read-only: the full
// table per strategy plus a simple substring search over code, name and
// category for the rendering layer.
type SignalHandler struct {
	stores map[string]contracts.SignalStore
	logger *logger.Logger
}

// NewSignalHandler creates a handler over one store per strategy.
func NewSignalHandler(stores map[string]contracts.SignalStore, log *logger.Logger) *SignalHandler {
	return &SignalHandler{
		stores: stores,
		logger: log.WithField("module", "api"),
	}
}

// signalRow is the JSON shape of one persisted record.
type signalRow struct {
	Code              string   `json:"code"`
	Name              string   `json:"name"`
	Category          string   `json:"category"`
	PriceNow          float64  `json:"price_now"`
	ScorePrimary      float64  `json:"score_primary"`
	ScorePrimaryDelta float64  `json:"score_primary_delta"`
	IsNew             bool     `json:"is_new"`
	ScoreMid          *float64 `json:"score_mid,omitempty"`
	ScoreLong         *float64 `json:"score_long,omitempty"`
	StreakDays        int      `json:"streak_days"`
	FirstQualified    string   `json:"first_qualified"`
	LastUpdate        string   `json:"last_update"`
	Link              string   `json:"link"`
	PE                *float64 `json:"pe,omitempty"`
	FloatMarketCap    *float64 `json:"float_mv,omitempty"`
}

// ListStrategies returns the available strategy names.
func (h *SignalHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.stores))
	for name := range h.stores {
		names = append(names, name)
	}
	sort.Strings(names)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": names,
	})
}

// GetSignals returns one strategy's current table, optionally filtered
// by the q query parameter (substring match on code, name, category).
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["strategy"]
	store, ok := h.stores[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "unknown strategy: " + name,
		})
		return
	}

	records, err := store.Load(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Signal store load failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load signal pool",
		})
		return
	}

	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	rows := make([]signalRow, 0, len(records))
	for _, rec := range records {
		if query != "" && !matches(&rec, query) {
			continue
		}
		rows = append(rows, toRow(&rec))
	}

	// Strongest first, stable order for equal scores.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ScorePrimary != rows[j].ScorePrimary {
			return rows[i].ScorePrimary > rows[j].ScorePrimary
		}
		return rows[i].Code < rows[j].Code
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategy": name,
		"count":    len(rows),
		"signals":  rows,
	})
}

func matches(rec *contracts.SignalRecord, query string) bool {
	return strings.Contains(strings.ToLower(rec.Code), query) ||
		strings.Contains(strings.ToLower(rec.Name), query) ||
		strings.Contains(strings.ToLower(rec.Category), query)
}

func toRow(rec *contracts.SignalRecord) signalRow {
	return signalRow{
		Code:              rec.Code,
		Name:              rec.Name,
		Category:          rec.Category,
		PriceNow:          rec.PriceNow,
		ScorePrimary:      rec.ScorePrimary,
		ScorePrimaryDelta: rec.ScorePrimaryDelta,
		IsNew:             rec.IsNewEntry(),
		ScoreMid:          rec.ScoreMid,
		ScoreLong:         rec.ScoreLong,
		StreakDays:        rec.StreakDays,
		FirstQualified:    rec.FirstQualified.Format("2006-01-02"),
		LastUpdate:        rec.LastUpdate.Format("2006-01-02"),
		Link:              rec.ExternalLink,
		PE:                rec.PE,
		FloatMarketCap:    rec.FloatMarketCap,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
