package tushare

import (
	"context"
	"time"

	"github.com/chilam/strongpool/internal/contracts"
)

// EquityData exposes the A-share equity universe: daily closes merged
// with cumulative adjustment factors, the listing table, and bulk
// valuation fields. Implements contracts.PriceProvider,
// ListingProvider and FundamentalsProvider.
type EquityData struct {
	client *Client
}

// NewEquityData creates the equity dataset adapter.
func NewEquityData(client *Client) *EquityData {
	return &EquityData{client: client}
}

// PriceSnapshot returns every listed equity's close for a date, with the
// cumulative adjustment factor joined on. Instruments without a factor
// row default to 1 (unadjusted). An empty market day returns an empty
// snapshot, not an error.
func (d *EquityData) PriceSnapshot(ctx context.Context, date time.Time) (contracts.PriceSnapshot, error) {
	daily, err := d.client.Call(ctx, "daily", map[string]string{
		"trade_date": formatDate(date),
	}, "ts_code,close")
	if err != nil {
		return nil, err
	}

	snap := make(contracts.PriceSnapshot, daily.Len())
	codeCol := daily.Index("ts_code")
	closeCol := daily.Index("close")
	for row := 0; row < daily.Len(); row++ {
		code := daily.Str(row, codeCol)
		close, ok := daily.Float(row, closeCol)
		if code == "" || !ok {
			continue
		}
		snap[code] = contracts.PriceQuote{Close: close, AdjFactor: 1}
	}

	if len(snap) == 0 {
		return snap, nil
	}

	adj, err := d.client.Call(ctx, "adj_factor", map[string]string{
		"trade_date": formatDate(date),
	}, "ts_code,adj_factor")
	if err != nil {
		// Factors missing for the whole day degrades to unadjusted
		// comparison rather than losing the snapshot.
		return snap, nil
	}

	codeCol = adj.Index("ts_code")
	factorCol := adj.Index("adj_factor")
	for row := 0; row < adj.Len(); row++ {
		code := adj.Str(row, codeCol)
		factor, ok := adj.Float(row, factorCol)
		if code == "" || !ok || factor == 0 {
			continue
		}
		if q, exists := snap[code]; exists {
			q.AdjFactor = factor
			snap[code] = q
		}
	}

	return snap, nil
}

// Listings returns all actively listed equities with display name and
// coarse industry tag.
func (d *EquityData) Listings(ctx context.Context) (map[string]contracts.Listing, error) {
	frame, err := d.client.Call(ctx, "stock_basic", map[string]string{
		"exchange":    "",
		"list_status": "L",
	}, "ts_code,name,industry")
	if err != nil {
		return nil, err
	}

	out := make(map[string]contracts.Listing, frame.Len())
	codeCol := frame.Index("ts_code")
	nameCol := frame.Index("name")
	industryCol := frame.Index("industry")
	for row := 0; row < frame.Len(); row++ {
		code := frame.Str(row, codeCol)
		if code == "" {
			continue
		}
		out[code] = contracts.Listing{
			Code:     code,
			Name:     frame.Str(row, nameCol),
			Industry: frame.Str(row, industryCol),
		}
	}

	return out, nil
}

// FundamentalsSnapshot returns bulk valuation fields for a date. Empty
// when the upstream has not published the day's batch yet.
func (d *EquityData) FundamentalsSnapshot(ctx context.Context, date time.Time) (map[string]contracts.Fundamentals, error) {
	frame, err := d.client.Call(ctx, "daily_basic", map[string]string{
		"trade_date": formatDate(date),
	}, "ts_code,pe,circ_mv")
	if err != nil {
		return nil, err
	}

	out := make(map[string]contracts.Fundamentals, frame.Len())
	codeCol := frame.Index("ts_code")
	peCol := frame.Index("pe")
	mvCol := frame.Index("circ_mv")
	for row := 0; row < frame.Len(); row++ {
		code := frame.Str(row, codeCol)
		if code == "" {
			continue
		}

		var f contracts.Fundamentals
		if pe, ok := frame.Float(row, peCol); ok {
			f.PE = &pe
		}
		if mv, ok := frame.Float(row, mvCol); ok {
			f.FloatMarketCap = &mv
		}
		out[code] = f
	}

	return out, nil
}
