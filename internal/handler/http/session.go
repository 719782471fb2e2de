package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/thevrus/sellflow/internal/domain"
	"github.com/thevrus/sellflow/internal/machine"
	"github.com/thevrus/sellflow/internal/service"
	apperrors "github.com/thevrus/sellflow/pkg/errors"
	"github.com/thevrus/sellflow/pkg/httputil"
	"github.com/thevrus/sellflow/pkg/pagination"
	"github.com/thevrus/sellflow/pkg/validator"
)

// SessionHandler handles HTTP requests for cart session endpoints.
type SessionHandler struct {
	service *service.SessionService
	logger  *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(svc *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// EventRequest is the JSON request body for injecting a machine event. Type
// selects which payload fields are read.
type EventRequest struct {
	Type string `json:"type" validate:"required"`

	CartID        string                       `json:"cart_id,omitempty"`
	Input         *domain.CartInput            `json:"input,omitempty"`
	Cart          *domain.RawCart              `json:"cart,omitempty"`
	Lines         []domain.CartLineInput       `json:"lines,omitempty"`
	LineUpdates   []domain.CartLineUpdateInput `json:"line_updates,omitempty"`
	LineIDs       []string                     `json:"line_ids,omitempty"`
	Note          *string                      `json:"note,omitempty"`
	BuyerIdentity *domain.BuyerIdentity        `json:"buyer_identity,omitempty"`
	Attributes    []domain.Attribute           `json:"attributes,omitempty"`
	DiscountCodes []string                     `json:"discount_codes,omitempty"`
}

// toEvent maps the request onto a machine event, rejecting unknown or
// internal-only types.
func (req *EventRequest) toEvent() (machine.Event, error) {
	switch machine.EventType(req.Type) {
	case machine.EventCartFetch:
		if req.CartID == "" {
			return machine.Event{}, apperrors.InvalidInput("cart_id is required for CART_FETCH")
		}
		return machine.FetchCart(req.CartID), nil

	case machine.EventCartCreate:
		return machine.CreateCart(req.Input), nil

	case machine.EventCartSet:
		if req.Cart == nil {
			return machine.Event{}, apperrors.InvalidInput("cart is required for CART_SET")
		}
		return machine.SetCart(req.Cart), nil

	case machine.EventCartLineAdd:
		if len(req.Lines) == 0 {
			return machine.Event{}, apperrors.InvalidInput("lines are required for CARTLINE_ADD")
		}
		for _, line := range req.Lines {
			if err := validator.Validate(line); err != nil {
				return machine.Event{}, err
			}
		}
		return machine.AddLines(req.Lines...), nil

	case machine.EventCartLineUpdate:
		if len(req.LineUpdates) == 0 {
			return machine.Event{}, apperrors.InvalidInput("line_updates are required for CARTLINE_UPDATE")
		}
		for _, update := range req.LineUpdates {
			if err := validator.Validate(update); err != nil {
				return machine.Event{}, err
			}
		}
		return machine.UpdateLines(req.LineUpdates...), nil

	case machine.EventCartLineRemove:
		if len(req.LineIDs) == 0 {
			return machine.Event{}, apperrors.InvalidInput("line_ids are required for CARTLINE_REMOVE")
		}
		return machine.RemoveLines(req.LineIDs...), nil

	case machine.EventNoteUpdate:
		note := ""
		if req.Note != nil {
			note = *req.Note
		}
		return machine.UpdateNote(note), nil

	case machine.EventBuyerIdentityUpdate:
		if req.BuyerIdentity == nil {
			return machine.Event{}, apperrors.InvalidInput("buyer_identity is required for BUYER_IDENTITY_UPDATE")
		}
		return machine.UpdateBuyerIdentity(*req.BuyerIdentity), nil

	case machine.EventCartAttributesUpdate:
		return machine.UpdateAttributes(req.Attributes), nil

	case machine.EventDiscountCodesUpdate:
		return machine.UpdateDiscountCodes(req.DiscountCodes), nil

	default:
		return machine.Event{}, apperrors.InvalidInput("unknown event type " + strconv.Quote(req.Type))
	}
}

// --- Handlers ---

// CreateSessionRequest optionally seeds the new session with a known cart.
type CreateSessionRequest struct {
	Cart *domain.RawCart `json:"cart,omitempty"`
}

// CreateSession handles POST /api/v1/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	session, err := h.service.CreateSession(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// A seeded cart lands the session directly in idle.
	if req.Cart != nil {
		snap, err := h.service.SendEvent(r.Context(), session.ID, machine.SetCart(req.Cart))
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		session.State = snap.State
		session.Context = snap.Context
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: session})
}

// GetSession handles GET /api/v1/sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// DeleteSession handles DELETE /api/v1/sessions/{sessionID}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.service.DeleteSession(r.Context(), sessionID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "deleted"}})
}

// ListSessions handles GET /api/v1/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	result, err := h.service.ListSessions(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// SendEvent handles POST /api/v1/sessions/{sessionID}/events
func (h *SessionHandler) SendEvent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	ev, err := req.toEvent()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	snap, err := h.service.SendEvent(r.Context(), sessionID, ev)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: snap})
}

// ListTransitions handles GET /api/v1/sessions/{sessionID}/transitions
func (h *SessionHandler) ListTransitions(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	transitions, err := h.service.ListTransitions(r.Context(), sessionID, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: transitions})
}
