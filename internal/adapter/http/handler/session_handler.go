package handler

import (
	"strconv"

	"checkout-sandbox/internal/adapter/http/dto"
	"checkout-sandbox/internal/core/domain"
	"checkout-sandbox/internal/core/ports"
	"checkout-sandbox/pkg/apperror"
	"checkout-sandbox/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SessionHandler handles payment-session endpoints.
type SessionHandler struct {
	sessionSvc  ports.SessionService
	shipmentSvc ports.ShipmentService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionSvc ports.SessionService, shipmentSvc ports.ShipmentService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc, shipmentSvc: shipmentSvc}
}

// CreateSession handles POST /api/v1/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	session, err := h.sessionSvc.CreateSession(c.Request.Context(), ports.CreateSessionRequest{
		OrderID:            req.OrderID,
		Amount:             decimal.NewFromFloat(req.Amount),
		Currency:           req.Currency,
		Description:        req.Description,
		Sender:             toParty(req.Sender),
		Receiver:           toParty(req.Receiver),
		Location:           req.Location,
		Weight:             decimal.NewFromFloat(req.Weight),
		IsCOD:              req.IsCod,
		SameDayDelivery:    req.SameDayDelivery,
		IsSensitive:        req.IsSensitive,
		SpecialNotes:       req.SpecialNotes,
		ProntoCustomerCode: req.ProntoCustomerCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toSessionResponse(session))
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessionSvc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSessionResponse(session))
}

// ListSessions handles GET /api/v1/sessions.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, apperror.Validation("limit must be an integer"))
			return
		}
		limit = parsed
	}

	sessions, err := h.sessionSvc.ListSessions(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, toSessionResponse(&sessions[i]))
	}
	response.OK(c, items)
}

// TrackShipment handles GET /api/v1/sessions/:id/tracking.
func (h *SessionHandler) TrackShipment(c *gin.Context) {
	sessionID := c.Param("id")

	session, err := h.sessionSvc.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	events, err := h.shipmentSvc.TrackShipment(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.TrackingResponse{Events: make([]dto.TrackingEventResponse, 0, len(events))}
	if session.ProntoTrackingNumber != nil {
		resp.TrackingNumber = *session.ProntoTrackingNumber
	}
	for _, e := range events {
		resp.Events = append(resp.Events, dto.TrackingEventResponse(e))
	}
	if len(events) > 0 {
		// Carrier ordering is chronological; current status is the last entry.
		resp.CurrentStatus = events[len(events)-1].Status
	}
	response.OK(c, resp)
}

func toParty(p dto.PartyRequest) domain.Party {
	return domain.Party{Name: p.Name, Phone: p.Phone, Address: p.Address}
}

// toSessionResponse converts a domain.PaymentSession to its DTO.
func toSessionResponse(s *domain.PaymentSession) dto.SessionResponse {
	resp := dto.SessionResponse{
		SessionID:       s.SessionID,
		OrderID:         s.OrderID,
		Amount:          s.Amount.StringFixed(2),
		Currency:        s.Currency,
		Description:     s.Description,
		Sender:          dto.PartyResponse(s.Sender),
		Receiver:        dto.PartyResponse(s.Receiver),
		Location:        s.Location,
		Weight:          s.Weight.String(),
		IsCod:           s.IsCOD,
		SameDayDelivery: s.SameDayDelivery,
		IsSensitive:     s.IsSensitive,
		SpecialNotes:    s.SpecialNotes,
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	resp.ProntoTrackingNumber = s.ProntoTrackingNumber
	if s.ProntoStatus != nil {
		status := string(*s.ProntoStatus)
		resp.ProntoStatus = &status
	}
	if s.ProntoAreaCode != nil {
		code := int(*s.ProntoAreaCode)
		resp.ProntoAreaCode = &code
	}
	if s.ProntoCost != nil {
		cost := s.ProntoCost.StringFixed(2)
		resp.ProntoCost = &cost
	}
	return resp
}
