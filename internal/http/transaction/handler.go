package transaction

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/http/auth"
	"github.com/MrJamesThe3rd/ledger/internal/http/query"
	"github.com/MrJamesThe3rd/ledger/internal/http/render"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
)

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/pending", h.pending)
	r.Get("/number/{number}", h.getByNumber)
	r.Get("/account/{accountID}", h.listByAccount)
	r.Get("/{id}", h.get)
	r.Post("/{id}/process", h.process)
}

type createTransactionRequest struct {
	Type        transaction.Type `json:"transaction_type"`
	Amount      decimal.Decimal  `json:"amount"`
	Fee         decimal.Decimal  `json:"fee"`
	Tax         decimal.Decimal  `json:"tax"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
	Number      string           `json:"transaction_number,omitempty"`
	Description string           `json:"description,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	AccountID   *uuid.UUID       `json:"account_id,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err.Error())
		return
	}

	tx, err := h.svc.Create(r.Context(), transaction.CreateRequest{
		Type:        req.Type,
		Amount:      req.Amount,
		Fee:         req.Fee,
		Tax:         req.Tax,
		TotalAmount: req.TotalAmount,
		Number:      req.Number,
		Description: req.Description,
		Notes:       req.Notes,
		AccountID:   req.AccountID,
	}, userID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(tx))
}

// process answers 200 with a FAILED transaction when processing hit an
// infrastructure fault; the failure is in its notes and the audit trail.
func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.BadRequest(w, "invalid id")
		return
	}

	tx, err := h.svc.Process(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	filter := transaction.ListFilter{UserID: &userID}

	var err error

	if filter.StartDate, err = query.Time(r, "start_date", false); err != nil {
		render.BadRequest(w, err.Error())
		return
	}

	if filter.EndDate, err = query.Time(r, "end_date", true); err != nil {
		render.BadRequest(w, err.Error())
		return
	}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(transaction.Status(s))
	}

	if s := r.URL.Query().Get("type"); s != "" {
		filter.Type = new(transaction.Type(s))
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.ListPending(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) listByAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		render.BadRequest(w, "invalid account id")
		return
	}

	txs, err := h.svc.ListByAccount(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.BadRequest(w, "invalid id")
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) getByNumber(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}
