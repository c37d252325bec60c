package audit

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/http/auth"
	"github.com/MrJamesThe3rd/ledger/internal/http/query"
	"github.com/MrJamesThe3rd/ledger/internal/http/render"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
)

const defaultMinFailures = 3

type Handler struct {
	svc    *audit.Service
	engine *transaction.Service
	now    func() time.Time
}

func NewHandler(svc *audit.Service, engine *transaction.Service) *Handler {
	return &Handler{svc: svc, engine: engine, now: func() time.Time { return time.Now().UTC() }}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.all)
	r.Get("/me", h.me)
	r.Get("/transactions/{id}", h.byTransaction)
	r.Get("/transactions/number/{number}", h.byTransactionNumber)
	r.Get("/users/{id}", h.byUser)
	r.Get("/accounts/{id}", h.byAccount)
	r.Get("/accounts/number/{number}", h.byAccountNumber)
	r.Get("/events/{type}", h.byEventType)
	r.Get("/search", h.search)
	r.Get("/range", h.byRange)
	r.Get("/status-changes", h.byStatusChange)
	r.Get("/ip/{ip}", h.byIP)
	r.Get("/sessions/{id}", h.bySession)
	r.Get("/statistics", h.statistics)
	r.Get("/suspicious", h.suspicious)
	r.Post("/suspicious/flag", h.flagSuspicious)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, recs []*audit.Record, err error) {
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(recs))
}

func (h *Handler) paged(w http.ResponseWriter, r *http.Request, fetch func(audit.Page) (*audit.PageResult, error)) {
	page, err := query.Page(r)
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}

	res, err := fetch(page)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toPageResponse(res))
}

func (h *Handler) all(w http.ResponseWriter, r *http.Request) {
	h.paged(w, r, func(p audit.Page) (*audit.PageResult, error) {
		return h.svc.All(r.Context(), p)
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	recs, err := h.svc.ByUser(r.Context(), userID)
	h.list(w, r, recs, err)
}

func (h *Handler) byTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.BadRequest(w, "invalid id")
		return
	}

	recs, err := h.svc.ByTransaction(r.Context(), id)
	h.list(w, r, recs, err)
}

func (h *Handler) byTransactionNumber(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ByTransactionNumber(r.Context(), chi.URLParam(r, "number"))
	h.list(w, r, recs, err)
}

func (h *Handler) byUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.BadRequest(w, "invalid id")
		return
	}

	h.paged(w, r, func(p audit.Page) (*audit.PageResult, error) {
		return h.svc.ByUserPaged(r.Context(), id, p)
	})
}

func (h *Handler) byAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.BadRequest(w, "invalid id")
		return
	}

	recs, err := h.svc.ByAccount(r.Context(), id)
	h.list(w, r, recs, err)
}

func (h *Handler) byAccountNumber(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ByAccountNumber(r.Context(), chi.URLParam(r, "number"))
	h.list(w, r, recs, err)
}

func (h *Handler) byEventType(w http.ResponseWriter, r *http.Request) {
	event := audit.EventType(strings.ToUpper(chi.URLParam(r, "type")))
	if !event.Valid() {
		render.BadRequest(w, "unknown event type "+string(event))
		return
	}

	h.paged(w, r, func(p audit.Page) (*audit.PageResult, error) {
		return h.svc.ByEventTypePaged(r.Context(), event, p)
	})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		render.BadRequest(w, "missing q")
		return
	}

	recs, err := h.svc.SearchDescription(r.Context(), q)
	h.list(w, r, recs, err)
}

func (h *Handler) byRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := query.Range(r, h.now())
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}

	h.paged(w, r, func(p audit.Page) (*audit.PageResult, error) {
		return h.svc.ByDateRangePaged(r.Context(), start, end, p)
	})
}

func (h *Handler) byStatusChange(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		render.BadRequest(w, "from and to are required")
		return
	}

	recs, err := h.svc.ByStatusChange(r.Context(), strings.ToUpper(from), strings.ToUpper(to))
	h.list(w, r, recs, err)
}

func (h *Handler) byIP(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ByIPAddress(r.Context(), chi.URLParam(r, "ip"))
	h.list(w, r, recs, err)
}

func (h *Handler) bySession(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.BySession(r.Context(), chi.URLParam(r, "id"))
	h.list(w, r, recs, err)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	start, end, err := query.Range(r, h.now())
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}

	stats, err := h.svc.EventStatistics(r.Context(), start, end)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, stats)
}

func (h *Handler) suspicious(w http.ResponseWriter, r *http.Request) {
	start, end, err := query.Range(r, h.now())
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}

	minFailures, err := query.Int(r, "min_failures", defaultMinFailures)
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}

	hits, err := h.svc.SuspiciousTransactions(r.Context(), start, end, minFailures)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSuspiciousList(hits))
}

type flagRequest struct {
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	MinFailures int        `json:"min_failures,omitempty"`
}

// flagSuspicious records a FRAUD_DETECTED event for every transaction over
// the failure threshold and returns them.
func (h *Handler) flagSuspicious(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err.Error())
		return
	}

	end := h.now()
	if req.EndDate != nil {
		end = *req.EndDate
	}

	start := end.Add(-24 * time.Hour)
	if req.StartDate != nil {
		start = *req.StartDate
	}

	if req.MinFailures == 0 {
		req.MinFailures = defaultMinFailures
	}

	hits, err := h.engine.FlagSuspicious(r.Context(), start, end, req.MinFailures)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSuspiciousList(hits))
}
