package export

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledger/internal/export"
	"github.com/MrJamesThe3rd/ledger/internal/http/query"
	"github.com/MrJamesThe3rd/ledger/internal/http/render"
)

type Handler struct {
	svc *export.Service
	now func() time.Time
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc, now: func() time.Time { return time.Now().UTC() }}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/accounts/{id}", h.statement)
	r.Get("/accounts/{id}/transactions.csv", h.transactionsCSV)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*export.Statement, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.BadRequest(w, "invalid id")
		return nil, false
	}

	start, end, err := query.Range(r, h.now())
	if err != nil {
		render.BadRequest(w, err.Error())
		return nil, false
	}

	st, err := h.svc.Statement(r.Context(), id, start, end)
	if err != nil {
		render.Error(w, r, err)
		return nil, false
	}

	return st, true
}

// statement downloads the zip archive. It is built in memory first so a
// failure can still be reported as JSON.
func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	st, ok := h.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteArchive(&buf, st); err != nil {
		render.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.ArchiveName(st)))
	w.Write(buf.Bytes())
}

func (h *Handler) transactionsCSV(w http.ResponseWriter, r *http.Request) {
	st, ok := h.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTransactionsCSV(&buf, st.Transactions); err != nil {
		render.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"transactions_%s.csv\"", st.Account.Number))
	w.Write(buf.Bytes())
}
