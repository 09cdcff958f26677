package core

// AllocationTotals is the derived money breakdown of a finished allocation.
// SelfShare is self + half of shared, OtherShare is other + half of shared.
// When the shared total is an odd number of cents the extra cent goes to
// SelfShare so the two shares always add up to the receipt total.
type AllocationTotals struct {
	Self       Money
	Other      Money
	Shared     Money
	SelfShare  Money
	OtherShare Money
}

// AllocationResult partitions categorized line items and carries the derived
// totals. Once produced the items are no longer edited.
type AllocationResult struct {
	Self   []LineItem
	Other  []LineItem
	Shared []LineItem
	Totals AllocationTotals
}

// ItemCount returns the number of items across all three partitions.
func (r AllocationResult) ItemCount() int {
	return len(r.Self) + len(r.Other) + len(r.Shared)
}

// Aggregate partitions categorized items and computes the totals. Every item
// must carry a valid category and a positive price; nothing is dropped or
// double-counted, so Self+Other+Shared and SelfShare+OtherShare both equal
// the sum of all input prices.
func Aggregate(items []LineItem) (AllocationResult, error) {
	var result AllocationResult
	var selfCents, otherCents, sharedCents int64

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return AllocationResult{}, err
		}
		switch item.Category {
		case CategorySelf:
			result.Self = append(result.Self, item)
			selfCents += item.Price.Cents
		case CategoryOther:
			result.Other = append(result.Other, item)
			otherCents += item.Price.Cents
		case CategoryShared:
			result.Shared = append(result.Shared, item)
			sharedCents += item.Price.Cents
		default:
			return AllocationResult{}, ErrUncategorizedItem
		}
	}

	half := sharedCents / 2
	result.Totals = AllocationTotals{
		Self:       Money{Cents: selfCents},
		Other:      Money{Cents: otherCents},
		Shared:     Money{Cents: sharedCents},
		SelfShare:  Money{Cents: selfCents + sharedCents - half},
		OtherShare: Money{Cents: otherCents + half},
	}
	return result, nil
}
