package tushare

import (
	"context"
	"time"

	"github.com/chilam/strongpool/internal/contracts"
)

// FundData exposes the exchange-traded fund universe. Fund adjustment
// data is unreliable upstream, so quotes carry factor 1 and the fund
// strategies compare raw closes. Implements contracts.PriceProvider and
// ListingProvider; funds have no bulk fundamentals source.
type FundData struct {
	client *Client
}

// NewFundData creates the fund dataset adapter.
func NewFundData(client *Client) *FundData {
	return &FundData{client: client}
}

// PriceSnapshot returns every exchange-traded fund's close for a date.
func (d *FundData) PriceSnapshot(ctx context.Context, date time.Time) (contracts.PriceSnapshot, error) {
	frame, err := d.client.Call(ctx, "fund_daily", map[string]string{
		"trade_date": formatDate(date),
	}, "ts_code,close")
	if err != nil {
		return nil, err
	}

	snap := make(contracts.PriceSnapshot, frame.Len())
	codeCol := frame.Index("ts_code")
	closeCol := frame.Index("close")
	for row := 0; row < frame.Len(); row++ {
		code := frame.Str(row, codeCol)
		close, ok := frame.Float(row, closeCol)
		if code == "" || !ok {
			continue
		}
		snap[code] = contracts.PriceQuote{Close: close, AdjFactor: 1}
	}

	return snap, nil
}

// Listings returns all exchange-listed funds. There is no industry
// classification for funds; the name drives the keyword exclusion
// instead.
func (d *FundData) Listings(ctx context.Context) (map[string]contracts.Listing, error) {
	frame, err := d.client.Call(ctx, "fund_basic", map[string]string{
		"market": "E",
	}, "ts_code,name")
	if err != nil {
		return nil, err
	}

	out := make(map[string]contracts.Listing, frame.Len())
	codeCol := frame.Index("ts_code")
	nameCol := frame.Index("name")
	for row := 0; row < frame.Len(); row++ {
		code := frame.Str(row, codeCol)
		if code == "" {
			continue
		}
		out[code] = contracts.Listing{
			Code: code,
			Name: frame.Str(row, nameCol),
		}
	}

	return out, nil
}
