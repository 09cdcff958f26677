package http

import (
	"io"
	"net/http"

	"haushalt/internal/core"
	applog "haushalt/internal/log"
	"haushalt/internal/scan"
)

// Receipt photos above this size are rejected before decoding.
const maxImageBytes = 10 << 20

type lineItemJSON struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Price       string `json:"price"`
	PriceCents  int64  `json:"price_cents"`
	Category    string `json:"category,omitempty"`
}

func toLineItemJSON(item core.LineItem) lineItemJSON {
	return lineItemJSON{
		ID:          item.ID,
		Description: item.Description,
		Price:       item.Price.String(),
		PriceCents:  item.Price.Cents,
		Category:    string(item.Category),
	}
}

func toLineItemsJSON(items []core.LineItem) []lineItemJSON {
	out := make([]lineItemJSON, 0, len(items))
	for _, item := range items {
		out = append(out, toLineItemJSON(item))
	}
	return out
}

// workflow resolves the scan session from the request path. A nil return
// means the response has already been written.
func (s *Server) workflow(w http.ResponseWriter, r *http.Request) *scan.Workflow {
	sessionID := r.PathValue("session")
	wf, ok := s.scans.Get(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "no scan for session "+sessionID)
		return nil
	}
	return wf
}

func (s *Server) scanStateResponse(wf *scan.Workflow) map[string]any {
	assigned, total := wf.Progress()
	resp := map[string]any{
		"state":    string(wf.State()),
		"items":    toLineItemsJSON(wf.Items()),
		"assigned": assigned,
		"total":    total,
	}
	if current, ok := wf.Current(); ok {
		resp["current_item"] = toLineItemJSON(current)
	}
	return resp
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	wf, err := s.scans.Start(sessionID)
	if err != nil {
		writeScanError(w, err)
		return
	}
	s.logs.LogScanEvent(r.Context(), "Scan started", sessionID, string(wf.State()), applog.OpCreate)
	writeJSON(w, http.StatusCreated, s.scanStateResponse(wf))
}

func (s *Server) handleScanState(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	writeJSON(w, http.StatusOK, s.scanStateResponse(wf))
}

func (s *Server) handleAttachImage(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}

	image, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read image: "+err.Error())
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "empty image")
		return
	}
	if len(image) > maxImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image exceeds size limit")
		return
	}

	if err := wf.AttachImage(image); err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scanStateResponse(wf))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	if err := wf.Process(r.Context()); err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scanStateResponse(wf))
}

type itemRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	item, err := wf.AddItem(sanitizeInput(req.Description), sanitizeInput(req.Amount))
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLineItemJSON(item))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := wf.UpdateItem(r.PathValue("id"), sanitizeInput(req.Description), sanitizeInput(req.Amount)); err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scanStateResponse(wf))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	if err := wf.RemoveItem(r.PathValue("id")); err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scanStateResponse(wf))
}

func (s *Server) handleBeginCategorizing(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	if err := wf.BeginCategorizing(); err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scanStateResponse(wf))
}

type assignRequest struct {
	Category string `json:"category"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	done, err := wf.Assign(core.Category(sanitizeInput(req.Category)))
	if err != nil {
		writeScanError(w, err)
		return
	}

	resp := s.scanStateResponse(wf)
	resp["done"] = done
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	if err := wf.Back(); err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scanStateResponse(wf))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}

	result, err := wf.Result()
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryJSON(result))
}

func summaryJSON(result core.AllocationResult) map[string]any {
	return map[string]any{
		"self":   toLineItemsJSON(result.Self),
		"other":  toLineItemsJSON(result.Other),
		"shared": toLineItemsJSON(result.Shared),
		"totals": map[string]string{
			"self":        result.Totals.Self.String(),
			"other":       result.Totals.Other.String(),
			"shared":      result.Totals.Shared.String(),
			"self_share":  result.Totals.SelfShare.String(),
			"other_share": result.Totals.OtherShare.String(),
		},
	}
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	if err := wf.Confirm(r.Context(), s.submitter); err != nil {
		writeScanError(w, err)
		return
	}

	session := r.PathValue("session")
	s.scans.Drop(session)
	s.logs.LogScanEvent(r.Context(), "Scan confirmed", session, string(scan.StateCompleted), applog.OpConfirm)
	writeJSON(w, http.StatusOK, map[string]any{"state": string(scan.StateCompleted)})
}

func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	if err := wf.Cancel(); err != nil {
		writeScanError(w, err)
		return
	}

	session := r.PathValue("session")
	s.scans.Drop(session)
	s.logs.LogScanEvent(r.Context(), "Scan cancelled", session, string(scan.StateCancelled), applog.OpCancel)
	writeJSON(w, http.StatusOK, map[string]any{"state": string(scan.StateCancelled)})
}
