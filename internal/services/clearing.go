package services

import (
	"fmt"
	"sort"

	"water-auction/internal/auctionerrors"
	"water-auction/internal/models"

	"github.com/shopspring/decimal"
)

// ClearingOrder is one price/quantity point of a schedule as seen by the
// engine. Seq is the global submission order of the point within the round.
type ClearingOrder struct {
	ParticipantID string
	Price         decimal.Decimal
	Quantity      int
	Side          string
	Seq           int
}

// ParticipantParams carries the two-tier valuation the engine prices
// executions against.
type ParticipantParams struct {
	ParticipantID string
	ValueFirst    decimal.Decimal
	ValueSecond   decimal.Decimal
}

// ParticipantOutcome is one participant's execution in a cleared round.
type ParticipantOutcome struct {
	ExecutedQuantity int
	Profit           decimal.Decimal
}

// ClearingResult is the full outcome of clearing one round. Outcomes holds an
// entry for every known participant, including zero entries for those who did
// not trade.
type ClearingResult struct {
	UniformPrice  decimal.Decimal
	TotalQuantity int
	Outcomes      map[string]ParticipantOutcome
}

// ClearingEngine computes the uniform clearing price and per-participant
// execution for a round. It is a pure computation: no storage, no clock, no
// randomness.
//
// Price selection works over the union of distinct quoted prices. Demand(p)
// sums buy quantity with limit >= p, Supply(p) sums sell quantity with limit
// <= p. The clearing price minimizes |Demand(p) - Supply(p)|; when several
// candidates tie with an exact Demand = Supply crossing, the midpoint of the
// tied interval is used, otherwise the lowest tied price at which supply
// covers demand (or the highest tied price when none does).
//
// Rationing at the marginal price level is pro rata by submitted quantity,
// floored, with the remainder assigned one unit at a time in submission order.
type ClearingEngine struct {
	tierBoundary int
}

// NewClearingEngine returns an engine with the given two-tier block boundary
// (units 1..boundary are valued at the first-tier rate).
func NewClearingEngine(tierBoundary int) *ClearingEngine {
	if tierBoundary <= 0 {
		tierBoundary = 10
	}
	return &ClearingEngine{tierBoundary: tierBoundary}
}

// Clear computes the uniform price, cleared quantity and per-participant
// profit for one round's schedules.
func (e *ClearingEngine) Clear(orders []ClearingOrder, participants []ParticipantParams) (*ClearingResult, error) {
	params := make(map[string]ParticipantParams, len(participants))
	for _, p := range participants {
		params[p.ParticipantID] = p
	}

	var buys, sells []ClearingOrder
	for _, o := range orders {
		if o.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity %d", auctionerrors.ErrEngine, o.Quantity)
		}
		if o.Price.IsNegative() {
			return nil, fmt.Errorf("%w: negative price %s", auctionerrors.ErrEngine, o.Price)
		}
		if _, ok := params[o.ParticipantID]; !ok {
			return nil, fmt.Errorf("%w: unknown participant %s", auctionerrors.ErrEngine, o.ParticipantID)
		}
		switch o.Side {
		case models.SideBuy:
			buys = append(buys, o)
		case models.SideSell:
			sells = append(sells, o)
		default:
			return nil, fmt.Errorf("%w: side %q", auctionerrors.ErrEngine, o.Side)
		}
	}

	if len(buys) == 0 || len(sells) == 0 || highestPrice(buys).LessThan(lowestPrice(sells)) {
		return e.noTrade(participants), nil
	}

	price := clearingPrice(buys, sells)
	demand := demandAt(buys, price)
	supply := supplyAt(sells, price)
	quantity := demand
	if supply < quantity {
		quantity = supply
	}
	if quantity == 0 {
		return e.noTrade(participants), nil
	}

	buyExec := allocate(buys, quantity, true)
	sellExec := allocate(sells, quantity, false)

	outcomes := make(map[string]ParticipantOutcome, len(participants))
	for _, p := range participants {
		bought := buyExec[p.ParticipantID]
		sold := sellExec[p.ParticipantID]
		profit := e.buyerProfit(bought, price, p).Add(e.sellerProfit(sold, price, p))
		outcomes[p.ParticipantID] = ParticipantOutcome{
			ExecutedQuantity: bought + sold,
			Profit:           profit,
		}
	}

	return &ClearingResult{
		UniformPrice:  price,
		TotalQuantity: quantity,
		Outcomes:      outcomes,
	}, nil
}

func (e *ClearingEngine) noTrade(participants []ParticipantParams) *ClearingResult {
	outcomes := make(map[string]ParticipantOutcome, len(participants))
	for _, p := range participants {
		outcomes[p.ParticipantID] = ParticipantOutcome{Profit: decimal.Zero}
	}
	return &ClearingResult{UniformPrice: decimal.Zero, Outcomes: outcomes}
}

// clearingPrice selects the uniform price from the candidate set.
func clearingPrice(buys, sells []ClearingOrder) decimal.Decimal {
	candidates := candidatePrices(buys, sells)

	type point struct {
		price decimal.Decimal
		diff  decimal.Decimal
	}

	best := make([]point, 0, len(candidates))
	var bestAbs decimal.Decimal
	for i, p := range candidates {
		diff := decimal.NewFromInt(int64(demandAt(buys, p) - supplyAt(sells, p)))
		abs := diff.Abs()
		switch {
		case i == 0 || abs.LessThan(bestAbs):
			bestAbs = abs
			best = best[:0]
			best = append(best, point{price: p, diff: diff})
		case abs.Equal(bestAbs):
			best = append(best, point{price: p, diff: diff})
		}
	}

	allZero := true
	for _, pt := range best {
		if !pt.diff.IsZero() {
			allZero = false
			break
		}
	}
	if allZero {
		// Exact flat crossing: take the midpoint of the tied interval.
		return best[0].price.Add(best[len(best)-1].price).Div(decimal.NewFromInt(2))
	}

	// Otherwise prefer the lowest tied price at which supply covers demand.
	for _, pt := range best {
		if !pt.diff.IsPositive() {
			return pt.price
		}
	}
	return best[len(best)-1].price
}

func candidatePrices(buys, sells []ClearingOrder) []decimal.Decimal {
	seen := make(map[string]decimal.Decimal)
	for _, o := range buys {
		seen[o.Price.String()] = o.Price
	}
	for _, o := range sells {
		seen[o.Price.String()] = o.Price
	}
	prices := make([]decimal.Decimal, 0, len(seen))
	for _, p := range seen {
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })
	return prices
}

func demandAt(buys []ClearingOrder, price decimal.Decimal) int {
	total := 0
	for _, o := range buys {
		if o.Price.GreaterThanOrEqual(price) {
			total += o.Quantity
		}
	}
	return total
}

func supplyAt(sells []ClearingOrder, price decimal.Decimal) int {
	total := 0
	for _, o := range sells {
		if o.Price.LessThanOrEqual(price) {
			total += o.Quantity
		}
	}
	return total
}

func highestPrice(orders []ClearingOrder) decimal.Decimal {
	max := orders[0].Price
	for _, o := range orders[1:] {
		if o.Price.GreaterThan(max) {
			max = o.Price
		}
	}
	return max
}

func lowestPrice(orders []ClearingOrder) decimal.Decimal {
	min := orders[0].Price
	for _, o := range orders[1:] {
		if o.Price.LessThan(min) {
			min = o.Price
		}
	}
	return min
}

// allocate fills one side of the book up to capacity units and returns the
// executed quantity per participant. Buys fill from the highest price down,
// sells from the lowest up. A price level that does not fit entirely is
// rationed pro rata by submitted quantity with the floored remainder handed
// out in submission order.
func allocate(orders []ClearingOrder, capacity int, buySide bool) map[string]int {
	sorted := make([]ClearingOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		cmp := sorted[i].Price.Cmp(sorted[j].Price)
		if cmp != 0 {
			if buySide {
				return cmp > 0
			}
			return cmp < 0
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	executed := make(map[string]int)
	remaining := capacity

	for start := 0; start < len(sorted) && remaining > 0; {
		end := start
		levelTotal := 0
		for end < len(sorted) && sorted[end].Price.Equal(sorted[start].Price) {
			levelTotal += sorted[end].Quantity
			end++
		}
		level := sorted[start:end]

		if levelTotal <= remaining {
			for _, o := range level {
				executed[o.ParticipantID] += o.Quantity
			}
			remaining -= levelTotal
			start = end
			continue
		}

		// Marginal level: pro rata by quantity, floored.
		shares := make([]int, len(level))
		assigned := 0
		for i, o := range level {
			shares[i] = remaining * o.Quantity / levelTotal
			assigned += shares[i]
		}
		leftover := remaining - assigned
		for i := range level {
			if leftover == 0 {
				break
			}
			if shares[i] < level[i].Quantity {
				shares[i]++
				leftover--
			}
		}
		for i, o := range level {
			executed[o.ParticipantID] += shares[i]
		}
		remaining = 0
	}

	return executed
}

func (e *ClearingEngine) buyerProfit(quantity int, price decimal.Decimal, p ParticipantParams) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	first := quantity
	if first > e.tierBoundary {
		first = e.tierBoundary
	}
	rest := quantity - first
	profit := p.ValueFirst.Sub(price).Mul(decimal.NewFromInt(int64(first)))
	if rest > 0 {
		profit = profit.Add(p.ValueSecond.Sub(price).Mul(decimal.NewFromInt(int64(rest))))
	}
	return profit
}

// sellerProfit mirrors buyerProfit with ascending marginal cost: the cheap
// (second-tier) units go first, as in the original experiment parameters.
func (e *ClearingEngine) sellerProfit(quantity int, price decimal.Decimal, p ParticipantParams) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	first := quantity
	if first > e.tierBoundary {
		first = e.tierBoundary
	}
	rest := quantity - first
	profit := price.Sub(p.ValueSecond).Mul(decimal.NewFromInt(int64(first)))
	if rest > 0 {
		profit = profit.Add(price.Sub(p.ValueFirst).Mul(decimal.NewFromInt(int64(rest))))
	}
	return profit
}
