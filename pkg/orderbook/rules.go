package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderRule is a per-market admission check applied before matching.
type OrderRule interface {
	Check(spec OrderSpec) error
}

// TickTier applies Step to limit prices up to MaxPrice. A zero MaxPrice has no
// upper bound.
type TickTier struct {
	MaxPrice decimal.Decimal
	Step     decimal.Decimal
}

// TickSizeRule requires limit prices to be a multiple of the tick of the
// first tier covering the price.
type TickSizeRule struct {
	Tiers []TickTier
}

func NewTickSizeRule(tick decimal.Decimal) *TickSizeRule {
	return &TickSizeRule{Tiers: []TickTier{{Step: tick}}}
}

func (r *TickSizeRule) Check(spec OrderSpec) error {
	if spec.Type != LIMIT || !spec.LimitPrice.Valid {
		return nil
	}
	price := spec.LimitPrice.Decimal
	for _, tier := range r.Tiers {
		if !tier.MaxPrice.IsZero() && price.GreaterThan(tier.MaxPrice) {
			continue
		}
		if tier.Step.IsPositive() && !price.Mod(tier.Step).IsZero() {
			return fmt.Errorf("%w: price %s is not a multiple of tick %s", ErrInvalidOrder, price, tier.Step)
		}
		return nil
	}
	return nil
}

// LotSizeRule requires quantities to be a multiple of Lot.
type LotSizeRule struct {
	Lot decimal.Decimal
}

func (r *LotSizeRule) Check(spec OrderSpec) error {
	if r.Lot.IsPositive() && !spec.Quantity.Mod(r.Lot).IsZero() {
		return fmt.Errorf("%w: quantity %s is not a multiple of lot %s", ErrInvalidOrder, spec.Quantity, r.Lot)
	}
	return nil
}

type MinQuantityRule struct {
	Min decimal.Decimal
}

func (r *MinQuantityRule) Check(spec OrderSpec) error {
	if spec.Quantity.LessThan(r.Min) {
		return fmt.Errorf("%w: quantity %s below minimum %s", ErrInvalidOrder, spec.Quantity, r.Min)
	}
	return nil
}

// PriceBandRule rejects limit prices outside [Floor, Ceil]. A zero bound is
// open.
type PriceBandRule struct {
	Floor decimal.Decimal
	Ceil  decimal.Decimal
}

func (r *PriceBandRule) Check(spec OrderSpec) error {
	if spec.Type != LIMIT || !spec.LimitPrice.Valid {
		return nil
	}
	price := spec.LimitPrice.Decimal
	if !r.Ceil.IsZero() && price.GreaterThan(r.Ceil) {
		return fmt.Errorf("%w: price %s above ceiling %s", ErrInvalidOrder, price, r.Ceil)
	}
	if !r.Floor.IsZero() && price.LessThan(r.Floor) {
		return fmt.Errorf("%w: price %s below floor %s", ErrInvalidOrder, price, r.Floor)
	}
	return nil
}
