package lots

import (
	"fmt"
	"sort"
	"time"

	ledger "main/internal/domain/entity/ledger"

	"github.com/shopspring/decimal"
)

// dailyGroup aggregates one position key's executions on one trade date.
type dailyGroup struct {
	key       ledger.PositionKey
	tradeDate time.Time

	buyQty    int64
	sellQty   int64
	buyValue  decimal.Decimal
	sellValue decimal.Decimal

	stockName    string
	currency     string
	exchangeCode string
}

func (g *dailyGroup) avgBuy() decimal.Decimal {
	if g.buyQty == 0 {
		return decimal.Zero
	}
	return g.buyValue.Div(decimal.NewFromInt(g.buyQty))
}

func (g *dailyGroup) avgSell() decimal.Decimal {
	if g.sellQty == 0 {
		return decimal.Zero
	}
	return g.sellValue.Div(decimal.NewFromInt(g.sellQty))
}

// position tracks the open lots of one position key during the fold. The
// invariant is that all open lots share the same sign.
type position struct {
	open []*ledger.Lot // ascending trade date
}

func (p *position) netQuantity() int64 {
	var total int64
	for _, lot := range p.open {
		total += lot.NetQuantity
	}
	return total
}

// reduce consumes up to qty shares from the open lots, newest trade date
// first, realizing P&L against the exit price. Fully consumed lots close
// with the given date. Returns the quantity actually consumed.
func (p *position) reduce(qty int64, exitPrice decimal.Decimal, date time.Time) int64 {
	remaining := qty
	for i := len(p.open) - 1; i >= 0 && remaining > 0; i-- {
		lot := p.open[i]
		lotAbs := lot.NetQuantity
		sign := int64(1)
		if lotAbs < 0 {
			lotAbs = -lotAbs
			sign = -1
		}

		take := remaining
		if lotAbs < take {
			take = lotAbs
		}

		realized := exitPrice.Sub(lot.AvgPurchasePrice).Mul(decimal.NewFromInt(take))
		if sign < 0 {
			realized = realized.Neg()
		}
		lot.RealizedPnL = lot.RealizedPnL.Add(realized)

		lot.NetQuantity -= sign * take
		lot.TotalCost = lot.AvgPurchasePrice.Mul(decimal.NewFromInt(lot.NetQuantity))
		remaining -= take

		if lot.NetQuantity == 0 {
			closed := ledger.Day(date)
			lot.Closed = true
			lot.ClosedDate = &closed
			lot.CurrentPrice = exitPrice
			lot.HoldingDays = ledger.DaysBetween(lot.TradeDate, date)
			lot.UnrealizedPnL = decimal.Zero
			lot.UnrealizedReturnPct = decimal.Zero
			p.open = append(p.open[:i], p.open[i+1:]...)
		}
	}
	return qty - remaining
}

// BuildLots replays the full execution stream into a deterministic lot
// ledger. Executions are grouped per position key and trade date, the group
// is netted, and the net leg is applied against the open lots of the key:
// opposite-direction legs reduce existing lots (newest first) and realize
// P&L on the closed portion; a leg that crosses zero closes the position and
// opens a residual lot at the day's leg price. The intra-day netted portion
// realizes the spread between the day's average sell and buy prices.
//
// Running BuildLots twice over the same stream yields identical output,
// which is what makes the daily job safe to re-run.
func BuildLots(trades []ledger.TradeExecution) ([]ledger.Lot, error) {
	groups, err := groupDaily(trades)
	if err != nil {
		return nil, err
	}

	positions := make(map[ledger.PositionKey]*position)
	seen := make(map[ledger.LotKey]struct{})
	var all []*ledger.Lot

	for _, g := range groups {
		pos := positions[g.key]
		if pos == nil {
			pos = &position{}
			positions[g.key] = pos
		}

		created := applyGroup(pos, g)
		for _, lot := range created {
			key := lot.Key()
			if _, dup := seen[key]; dup {
				return nil, fmt.Errorf("%w: %s", ledger.ErrLotKeyCollision, key)
			}
			seen[key] = struct{}{}
			all = append(all, lot)
		}
	}

	out := make([]ledger.Lot, 0, len(all))
	for _, lot := range all {
		out = append(out, *lot)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StockCode != b.StockCode {
			return a.StockCode < b.StockCode
		}
		if a.CrdClass != b.CrdClass {
			return a.CrdClass < b.CrdClass
		}
		if a.LoanDate != b.LoanDate {
			return a.LoanDate < b.LoanDate
		}
		return a.TradeDate.Before(b.TradeDate)
	})
	return out, nil
}

// applyGroup folds one daily group into the position and returns lots
// created for this trade date (zero or one).
func applyGroup(pos *position, g *dailyGroup) []*ledger.Lot {
	// The day's buys and sells net against each other before the residual
	// leg touches earlier lots, so the matched quantity realizes the day's
	// sell/buy spread on the day's own lot, not on the lots it would have
	// reduced.
	matched := g.buyQty
	if g.sellQty < matched {
		matched = g.sellQty
	}
	matchRealized := decimal.Zero
	if matched > 0 {
		matchRealized = g.avgSell().Sub(g.avgBuy()).Mul(decimal.NewFromInt(matched))
	}

	netQty := g.buyQty - g.sellQty
	legPrice := g.avgBuy()
	if netQty < 0 {
		legPrice = g.avgSell()
	}

	openQty := pos.netQuantity()
	residual := netQty
	if netQty != 0 && openQty != 0 && (netQty > 0) != (openQty > 0) {
		legAbs := netQty
		if legAbs < 0 {
			legAbs = -legAbs
		}
		openAbs := openQty
		if openAbs < 0 {
			openAbs = -openAbs
		}
		reducible := legAbs
		if openAbs < reducible {
			reducible = openAbs
		}
		pos.reduce(reducible, legPrice, g.tradeDate)
		if netQty > 0 {
			residual = netQty - reducible
		} else {
			residual = netQty + reducible
		}
	}

	if residual != 0 {
		// Residual opens a new lot for this trade date: a same-direction
		// add, or the far side of a zero crossing at the crossing price.
		lot := newLot(g, residual, legPrice, matchRealized)
		pos.open = append(pos.open, lot)
		return []*ledger.Lot{lot}
	}

	if matched > 0 {
		// The day netted to zero but the round trip still realized the
		// buy/sell spread; record it on a lot that is born closed.
		lot := newLot(g, 0, g.avgBuy(), matchRealized)
		closed := ledger.Day(g.tradeDate)
		lot.Closed = true
		lot.ClosedDate = &closed
		lot.CurrentPrice = g.avgSell()
		return []*ledger.Lot{lot}
	}
	return nil
}

func newLot(g *dailyGroup, qty int64, avgPrice, realized decimal.Decimal) *ledger.Lot {
	return &ledger.Lot{
		StockCode:        g.key.StockCode,
		StockName:        g.stockName,
		CrdClass:         g.key.CrdClass,
		LoanDate:         g.key.LoanDate,
		TradeDate:        ledger.Day(g.tradeDate),
		NetQuantity:      qty,
		AvgPurchasePrice: avgPrice,
		TotalCost:        avgPrice.Mul(decimal.NewFromInt(qty)),
		RealizedPnL:      realized,
		Currency:         g.currency,
		ExchangeCode:     g.exchangeCode,
	}
}

// groupDaily buckets executions per (position key, trade date), ordered by
// trade date ascending so the fold replays history in order.
func groupDaily(trades []ledger.TradeExecution) ([]*dailyGroup, error) {
	sorted := make([]ledger.TradeExecution, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !ledger.SameDay(a.TradeDate, b.TradeDate) {
			return a.TradeDate.Before(b.TradeDate)
		}
		if a.OrderTime != b.OrderTime {
			return a.OrderTime < b.OrderTime
		}
		return a.OrderNo < b.OrderNo
	})

	byKey := make(map[ledger.LotKey]*dailyGroup)
	var ordered []*dailyGroup
	for _, t := range sorted {
		if !t.Side.IsValid() {
			return nil, fmt.Errorf("trade %s: invalid side %q", t.OrderNo, t.Side)
		}
		if t.Quantity <= 0 {
			continue
		}

		key := t.LotKey()
		g := byKey[key]
		if g == nil {
			g = &dailyGroup{
				key:          key.PositionKey,
				tradeDate:    key.TradeDate,
				stockName:    t.StockName,
				currency:     t.Currency,
				exchangeCode: t.ExchangeCode,
			}
			byKey[key] = g
			ordered = append(ordered, g)
		}

		if t.Side == ledger.TradeSideBuy {
			g.buyQty += t.Quantity
			g.buyValue = g.buyValue.Add(t.Notional())
		} else {
			g.sellQty += t.Quantity
			g.sellValue = g.sellValue.Add(t.Notional())
		}
	}
	return ordered, nil
}

// ApplyMetrics computes the daily mark-to-market refresh for open lots. A
// position with no quote as of the date keeps its last known price and is
// flagged stale instead of failing the run. Lots traded after the date are
// left untouched so a run for a past date never marks them.
func ApplyMetrics(open []ledger.Lot, prices map[ledger.PriceKey]ledger.PriceQuote, asOf time.Time) []ledger.LotMetrics {
	day := ledger.Day(asOf)
	metrics := make([]ledger.LotMetrics, 0, len(open))
	for _, lot := range open {
		if lot.TradeDate.After(day) {
			continue
		}
		m := ledger.LotMetrics{
			LotID:       lot.ID,
			HoldingDays: ledger.DaysBetween(lot.TradeDate, day),
		}

		quote, ok := prices[lot.PriceKey()]
		if ok {
			m.CurrentPrice = quote.Price
			m.PriceStale = ledger.Day(quote.AsOf).Before(day)
		} else {
			m.CurrentPrice = lot.CurrentPrice
			m.PriceStale = true
		}

		if m.CurrentPrice.IsPositive() {
			qty := decimal.NewFromInt(lot.NetQuantity)
			m.UnrealizedPnL = m.CurrentPrice.Sub(lot.AvgPurchasePrice).Mul(qty)
			base := lot.AvgPurchasePrice.Mul(qty.Abs())
			if base.IsPositive() {
				m.UnrealizedReturnPct = m.UnrealizedPnL.Div(base).Mul(decimal.NewFromInt(100))
			}
		}
		metrics = append(metrics, m)
	}
	return metrics
}
