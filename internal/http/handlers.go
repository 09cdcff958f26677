package http

import (
	"net/http"
	"time"

	"haushalt/internal/core"
)

type transactionJSON struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Date        string `json:"date"`
	PaidBy      string `json:"paid_by"`
	SplitWith   string `json:"split_with,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		Date:        t.Date.Format("2006-01-02"),
		PaidBy:      string(t.PaidBy),
		SplitWith:   t.SplitWith,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.ledger.ListTransactions(r.Context(), s.householdID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]transactionJSON, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

type createTransactionRequest struct {
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
	PaidBy      string `json:"paid_by"`
	SplitWith   string `json:"split_with"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount: "+err.Error())
		return
	}

	date := time.Now()
	if req.Date != "" {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	paidBy := core.PartyID(sanitizeInput(req.PaidBy))
	if paidBy == "" {
		paidBy = s.partySelf
	}
	if paidBy != s.partySelf && paidBy != s.partyOther {
		writeError(w, http.StatusUnprocessableEntity, "paid_by must name a household member")
		return
	}
	splitWith := sanitizeInput(req.SplitWith)
	if splitWith != "" && splitWith != core.SplitBoth &&
		splitWith != string(s.partySelf) && splitWith != string(s.partyOther) {
		writeError(w, http.StatusUnprocessableEntity, "split_with must be empty, \"both\", or a household member")
		return
	}

	t := core.Transaction{
		Kind:        core.TransactionKind(sanitizeInput(req.Kind)),
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(req.Description),
		Date:        core.NewDate(date.Year(), int(date.Month()), date.Day()),
		PaidBy:      paidBy,
		SplitWith:   splitWith,
		HouseholdID: s.householdID,
	}

	saved, err := s.ledger.AppendTransaction(r.Context(), t)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(saved))
}

type balanceJSON struct {
	Party string `json:"party"`
	Cents int64  `json:"cents"`
	Euros string `json:"euros"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	viewer := s.partySelf
	other := s.partyOther
	if v := r.URL.Query().Get("viewer"); v != "" {
		switch core.PartyID(v) {
		case s.partySelf:
		case s.partyOther:
			viewer, other = s.partyOther, s.partySelf
		default:
			writeError(w, http.StatusUnprocessableEntity, "viewer must name a household member")
			return
		}
	}

	b, err := s.ledger.Balances(r.Context(), s.householdID, viewer)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"viewer": balanceJSON{Party: string(viewer), Cents: b.Viewer.Cents, Euros: b.Viewer.String()},
		"other":  balanceJSON{Party: string(other), Cents: b.Other.Cents, Euros: b.Other.String()},
	})
}
