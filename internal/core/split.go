package core

import "fmt"

// SplitPolicy identifies how one expense amount is divided among
// participants.
type SplitPolicy string

const (
	PolicyEqual  SplitPolicy = "EQUAL"
	PolicyCustom SplitPolicy = "CUSTOM"
)

// CustomEntry is one user's share as typed, still in display decimals. The
// allocator converts it to minor units itself so that rounding happens in
// exactly one place.
type CustomEntry struct {
	UserID int64
	Amount string
}

// SplitRequest is the full input to the allocator for one expense.
type SplitRequest struct {
	AmountMinor int64
	PayerID     int64
	Policy      SplitPolicy

	// ParticipantIDs applies to EQUAL; the payer is always included even
	// when absent from this list.
	ParticipantIDs []int64

	// Entries applies to CUSTOM, in the order they were supplied.
	Entries []CustomEntry
}

// Allocate computes the per-participant owed amounts for the request's
// policy. Every returned split set sums exactly to AmountMinor.
func (r SplitRequest) Allocate() ([]Split, error) {
	switch r.Policy {
	case PolicyEqual:
		return AllocateEqual(r.AmountMinor, r.PayerID, r.ParticipantIDs)
	case PolicyCustom:
		return AllocateCustom(r.AmountMinor, r.Entries)
	default:
		return nil, fmt.Errorf("unknown split policy %q", r.Policy)
	}
}

// AllocateEqual divides amountMinor evenly across the payer-first ordered
// participant set. Each participant gets floor(amount/n); the first
// amount%n participants in order get one extra minor unit, so the sum is
// exact and identical inputs always produce identical splits.
func AllocateEqual(amountMinor, payerID int64, participantIDs []int64) ([]Split, error) {
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	order := participantOrder(payerID, participantIDs)
	if len(order) == 0 {
		return nil, ErrNoParticipants
	}

	n := int64(len(order))
	base := amountMinor / n
	remainder := amountMinor % n

	splits := make([]Split, len(order))
	for i, id := range order {
		owed := base
		if int64(i) < remainder {
			owed++
		}
		splits[i] = Split{UserID: id, AmountOwed: owed}
	}
	return splits, nil
}

// participantOrder builds the deduplicated participant set: payer first,
// then the remaining ids in the order supplied. The remainder distribution
// walks this order, so it is a contract, not an implementation detail.
func participantOrder(payerID int64, ids []int64) []int64 {
	seen := map[int64]struct{}{payerID: {}}
	order := []int64{payerID}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	return order
}

// AllocateCustom converts each entry to minor units, drops entries that
// round to zero, and requires the surviving sum to equal amountMinor
// exactly. A mismatch is rejected outright with ErrSplitMismatch; entries
// are never rescaled to absorb the difference.
func AllocateCustom(amountMinor int64, entries []CustomEntry) ([]Split, error) {
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}

	var (
		splits []Split
		total  int64
	)
	for _, e := range entries {
		owed, err := ParseDecimalToMinor(e.Amount)
		if err != nil {
			return nil, err
		}
		if owed < 0 {
			return nil, ErrInvalidAmount
		}
		if owed == 0 {
			continue
		}
		total += owed
		splits = append(splits, Split{UserID: e.UserID, AmountOwed: owed})
	}

	if total != amountMinor {
		return nil, fmt.Errorf("%w: entries sum to %d, expense is %d",
			ErrSplitMismatch, total, amountMinor)
	}
	if len(splits) == 0 {
		return nil, ErrNoParticipants
	}
	return splits, nil
}
