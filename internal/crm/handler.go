package crm

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Handler exposes the CRM entities as JSON endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers CRM routes. Callers mount this under an authenticated
// group; anonymous requests still reach the service but carry principal 0,
// which the role directory rejects.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/leads", func(r chi.Router) {
		r.Get("/", h.listLeads)
		r.Post("/", h.createLead)
		r.Get("/{id}", h.getLead)
		r.Patch("/{id}", h.updateLead)
		r.Delete("/{id}", h.deleteLead)
	})
	r.Route("/deals", func(r chi.Router) {
		r.Get("/", h.listDeals)
		r.Post("/", h.createDeal)
		r.Get("/{id}", h.getDeal)
		r.Patch("/{id}", h.updateDeal)
		r.Delete("/{id}", h.deleteDeal)
		r.Post("/{id}/derive-proposal", h.deriveProposal)
	})
	r.Route("/proposals", func(r chi.Router) {
		r.Get("/", h.listProposals)
		r.Post("/", h.createProposal)
		r.Get("/{id}", h.getProposal)
		r.Patch("/{id}", h.updateProposal)
		r.Delete("/{id}", h.deleteProposal)
	})
	r.Route("/closer-reports", func(r chi.Router) {
		r.Get("/", h.listCloserReports)
		r.Post("/", h.createCloserReport)
		r.Get("/{id}", h.getCloserReport)
		r.Patch("/{id}", h.updateCloserReport)
		r.Delete("/{id}", h.deleteCloserReport)
	})
	r.Route("/setter-reports", func(r chi.Router) {
		r.Get("/", h.listSetterReports)
		r.Post("/", h.createSetterReport)
		r.Get("/{id}", h.getSetterReport)
		r.Patch("/{id}", h.updateSetterReport)
		r.Delete("/{id}", h.deleteSetterReport)
	})
	r.Route("/offers", func(r chi.Router) {
		r.Get("/", h.listOffers)
		r.Post("/", h.createOffer)
		r.Get("/{id}", h.getOffer)
		r.Patch("/{id}", h.updateOffer)
		r.Delete("/{id}", h.deleteOffer)
	})
	r.Route("/cash-entries", func(r chi.Router) {
		r.Get("/", h.listCashEntries)
		r.Post("/", h.createCashEntry)
		r.Get("/{id}", h.getCashEntry)
		r.Patch("/{id}", h.updateCashEntry)
		r.Delete("/{id}", h.deleteCashEntry)
	})
	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", h.listExpenses)
		r.Post("/", h.createExpense)
		r.Get("/{id}", h.getExpense)
		r.Patch("/{id}", h.updateExpense)
		r.Delete("/{id}", h.deleteExpense)
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrPrincipalNotFound):
		httpx.Unauthorized(w, "unknown principal")
	case errors.Is(err, authz.ErrDenied):
		httpx.Forbidden(w, "operation not permitted")
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, err.Error())
	case errors.Is(err, ErrCascadeTargetMissing):
		httpx.Conflict(w, err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Conflict(w, "request already processed")
	default:
		h.logger.Error("crm request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}

// decode reads and validates the JSON body into target. A false return means
// the response was already written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Unprocessable(w, err.Error())
		return false
	}
	return true
}

func principal(r *http.Request) int64 {
	return shared.PrincipalIDFromContext(r.Context())
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func listParams(r *http.Request) ListParams {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return ListParams{Limit: limit, Offset: offset}
}

// ====== LEADS ======

func (h *Handler) createLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if !h.decode(w, r, &req) {
		return
	}
	lead, err := h.service.CreateLead(r.Context(), principal(r), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lead)
}

func (h *Handler) getLead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	lead, err := h.service.GetLead(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lead)
}

func (h *Handler) listLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.service.ListLeads(r.Context(), principal(r), listParams(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, leads)
}

func (h *Handler) updateLead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	var req UpdateLeadRequest
	if !h.decode(w, r, &req) {
		return
	}
	lead, err := h.service.UpdateLead(r.Context(), principal(r), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lead)
}

func (h *Handler) deleteLead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	if err := h.service.DeleteLead(r.Context(), principal(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

// ====== DEALS ======

func (h *Handler) createDeal(w http.ResponseWriter, r *http.Request) {
	var req CreateDealRequest
	if !h.decode(w, r, &req) {
		return
	}
	deal, err := h.service.CreateDeal(r.Context(), principal(r), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, deal)
}

func (h *Handler) getDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	deal, err := h.service.GetDeal(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deal)
}

func (h *Handler) listDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.service.ListDeals(r.Context(), principal(r), listParams(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deals)
}

func (h *Handler) updateDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	var req UpdateDealRequest
	if !h.decode(w, r, &req) {
		return
	}
	deal, err := h.service.UpdateDeal(r.Context(), principal(r), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deal)
}

func (h *Handler) deleteDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	if err := h.service.DeleteDeal(r.Context(), principal(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

// deriveProposal materializes a draft proposal from the deal. The optional
// Idempotency-Key header makes retries safe.
func (h *Handler) deriveProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	proposal, err := h.service.DeriveProposal(r.Context(), id, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, proposal)
}

// ====== PROPOSALS ======

func (h *Handler) createProposal(w http.ResponseWriter, r *http.Request) {
	var req CreateProposalRequest
	if !h.decode(w, r, &req) {
		return
	}
	proposal, err := h.service.CreateProposal(r.Context(), principal(r), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, proposal)
}

func (h *Handler) getProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	proposal, err := h.service.GetProposal(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, proposal)
}

func (h *Handler) listProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.service.ListProposals(r.Context(), principal(r), listParams(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, proposals)
}

func (h *Handler) updateProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	var req UpdateProposalRequest
	if !h.decode(w, r, &req) {
		return
	}
	proposal, err := h.service.UpdateProposal(r.Context(), principal(r), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, proposal)
}

func (h *Handler) deleteProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	if err := h.service.DeleteProposal(r.Context(), principal(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

// ====== CALL REPORTS ======

func (h *Handler) createCloserReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.service.CreateCloserReport(r.Context(), principal(r), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, report)
}

func (h *Handler) getCloserReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	report, err := h.service.GetCloserReport(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) listCloserReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.ListCloserReports(r.Context(), principal(r), listParams(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports)
}

func (h *Handler) updateCloserReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	var req UpdateReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.service.UpdateCloserReport(r.Context(), principal(r), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) deleteCloserReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	if err := h.service.DeleteCloserReport(r.Context(), principal(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) createSetterReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.service.CreateSetterReport(r.Context(), principal(r), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, report)
}

func (h *Handler) getSetterReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	report, err := h.service.GetSetterReport(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) listSetterReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.ListSetterReports(r.Context(), principal(r), listParams(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports)
}

func (h *Handler) updateSetterReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	var req UpdateReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.service.UpdateSetterReport(r.Context(), principal(r), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) deleteSetterReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	if err := h.service.DeleteSetterReport(r.Context(), principal(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

// ====== FINANCIAL RECORDS ======

func (h *Handler) createOffer(w http.ResponseWriter, r *http.Request) {
	var req CreateOfferRequest
	if !h.decode(w, r, &req) {
		return
	}
	offer, err := h.service.CreateOffer(r.Context(), principal(r), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, offer)
}

func (h *Handler) getOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	offer, err := h.service.GetOffer(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, offer)
}

func (h *Handler) listOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.ListOffers(r.Context(), principal(r), listParams(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, offers)
}

func (h *Handler) updateOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	var req UpdateOfferRequest
	if !h.decode(w, r, &req) {
		return
	}
	offer, err := h.service.UpdateOffer(r.Context(), principal(r), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, offer)
}

func (h *Handler) deleteOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	if err := h.service.DeleteOffer(r.Context(), principal(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) createCashEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateCashEntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	entry, err := h.service.CreateCashEntry(r.Context(), principal(r), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) getCashEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	entry, err := h.service.GetCashEntry(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) listCashEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListCashEntries(r.Context(), principal(r), listParams(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) updateCashEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	var req UpdateCashEntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	entry, err := h.service.UpdateCashEntry(r.Context(), principal(r), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) deleteCashEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	if err := h.service.DeleteCashEntry(r.Context(), principal(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	expense, err := h.service.CreateExpense(r.Context(), principal(r), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

func (h *Handler) getExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	expense, err := h.service.GetExpense(r.Context(), principal(r), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.service.ListExpenses(r.Context(), principal(r), listParams(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expenses)
}

func (h *Handler) updateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	var req UpdateExpenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	expense, err := h.service.UpdateExpense(r.Context(), principal(r), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return
	}
	if err := h.service.DeleteExpense(r.Context(), principal(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}
