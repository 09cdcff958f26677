package core

// Balance is the derived who-owes-whom position between the two parties,
// seen from a viewer. Viewer.Cents positive means the viewer is owed money.
// Other is always the exact negation, so the pair is zero-sum.
type Balance struct {
	Viewer Money
	Other  Money
}

// ComputeBalances folds the full transaction log into the viewer's net
// position. It is a pure sum: recomputation is always safe, and the result
// does not depend on the order of the log.
//
// Per entry, the viewer's signed delta (positive = receivable) is:
//   - expense split with both: the non-payer owes half, payer absorbs the
//     odd cent of an odd amount.
//   - expense split with a named party: the named party owes the whole
//     amount to the payer; entries naming neither party as viewer are
//     neutral for the viewer.
//   - expense with no split (or split with the payer): personal, neutral.
//   - settlement: a direct transfer; the payer's debt shrinks by the amount.
//   - income: attributed wholly to the payer, never split, neutral.
func ComputeBalances(txns []Transaction, viewer PartyID) Balance {
	var delta int64

	for _, t := range txns {
		amount := t.Amount.Cents
		switch t.Kind {
		case KindExpense:
			switch {
			case t.SplitWith == SplitBoth:
				half := amount / 2
				if t.PaidBy == viewer {
					delta += half
				} else {
					delta -= half
				}
			case t.SplitWith == "" || t.SplitWith == string(t.PaidBy):
				// personal expense, no cross-party effect
			case t.PaidBy == viewer:
				delta += amount
			case t.SplitWith == string(viewer):
				delta -= amount
			}
		case KindSettlement:
			if t.PaidBy == viewer {
				delta += amount
			} else {
				delta -= amount
			}
		case KindIncome:
			// wholly attributed to the payer, no cross-party effect
		}
	}

	return Balance{
		Viewer: Money{Cents: delta},
		Other:  Money{Cents: -delta},
	}
}
