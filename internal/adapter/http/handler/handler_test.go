package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"checkout-sandbox/internal/adapter/http/dto"
	"checkout-sandbox/internal/core/domain"
	"checkout-sandbox/internal/core/ports"
	"checkout-sandbox/internal/core/ports/mocks"
	"checkout-sandbox/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "super-secret"

func testRouter(t *testing.T, ctrl *gomock.Controller) (*gin.Engine, *mocks.MockSessionService, *mocks.MockShipmentService, *mocks.MockNotificationService) {
	t.Helper()
	sessionSvc := mocks.NewMockSessionService(ctrl)
	shipmentSvc := mocks.NewMockShipmentService(ctrl)
	notificationSvc := mocks.NewMockNotificationService(ctrl)

	r := SetupRouter(RouterDeps{
		SessionSvc:      sessionSvc,
		ShipmentSvc:     shipmentSvc,
		NotificationSvc: notificationSvc,
		WebhookSecret:   testSecret,
		Logger:          zerolog.Nop(),
	})
	return r, sessionSvc, shipmentSvc, notificationSvc
}

func validCreateBody() dto.CreateSessionRequest {
	return dto.CreateSessionRequest{
		OrderID:     "ORD-100",
		Amount:      1000,
		Description: "Ceramic vase",
		Sender:      dto.PartyRequest{Name: "Nimal", Phone: "0771234567", Address: "12 Galle Rd"},
		Receiver:    dto.PartyRequest{Name: "Kamala", Phone: "0777654321", Address: "8 Temple Rd"},
		Location:    "Colombo",
		Weight:      2.5,
		IsCod:       true,
	}
}

// --- Session creation ---

func TestCreateSession_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, sessionSvc, _, _ := testRouter(t, ctrl)

	sessionSvc.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.CreateSessionRequest) (*domain.PaymentSession, error) {
			assert.Equal(t, "ORD-100", req.OrderID)
			assert.True(t, req.Amount.Equal(decimal.NewFromInt(1000)))
			assert.Equal(t, "Nimal", req.Sender.Name)
			assert.True(t, req.IsCOD)
			return &domain.PaymentSession{
				SessionID: "SESSION0001",
				OrderID:   "ORD-100",
				Amount:    decimal.NewFromInt(1450),
				Currency:  "LKR",
				Status:    domain.SessionStatusPending,
			}, nil
		})

	body, _ := json.Marshal(validCreateBody())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, "SESSION0001", data["sessionId"])
	assert.Equal(t, "1450.00", data["amount"])
	assert.Equal(t, "PENDING", data["status"])
}

func TestCreateSession_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, _, _, _ := testRouter(t, ctrl)

	// Missing required fields => binding error, service never called.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"amount":-5}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	errBlock := resp["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errBlock["code"])
}

func TestCreateSession_TrimsInputStrings(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, sessionSvc, _, _ := testRouter(t, ctrl)

	sessionSvc.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.CreateSessionRequest) (*domain.PaymentSession, error) {
			assert.Equal(t, "Nimal", req.Sender.Name)
			assert.Equal(t, "Colombo", req.Location)
			return &domain.PaymentSession{SessionID: "SESSION0001", Amount: decimal.Zero}, nil
		})

	b := validCreateBody()
	b.Sender.Name = "  Nimal  "
	b.Location = " Colombo "
	body, _ := json.Marshal(b)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateSession_QuoteUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, sessionSvc, _, _ := testRouter(t, ctrl)

	sessionSvc.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrQuoteUnavailable(assert.AnError))

	body, _ := json.Marshal(validCreateBody())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	errBlock := resp["error"].(map[string]any)
	assert.Equal(t, "QUOTE_UNAVAILABLE", errBlock["code"])
}

// --- Webhook ingress ---

func notifyRequest(method, secret, body string) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/payments/notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("x-notification-secret", secret)
	}
	return req
}

func TestNotify_UnauthorizedNeverTouchesSessions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, _, _, _ := testRouter(t, ctrl)
	// No EXPECT on the notification service: a bad secret short-circuits
	// before any session work.

	for _, secret := range []string{"", "wrong-secret"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, notifyRequest(http.MethodPost, secret, `{"sessionId":"SESSION0001","result":"SUCCESS"}`))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		errBlock := resp["error"].(map[string]any)
		assert.Equal(t, "UNAUTHORIZED", errBlock["code"])
	}
}

func TestNotify_SuccessfulPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, _, _, notificationSvc := testRouter(t, ctrl)

	notificationSvc.EXPECT().
		ProcessNotification(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, payload domain.NotificationPayload) (*ports.NotificationResult, error) {
			id, ok := payload.SessionID()
			require.True(t, ok)
			assert.Equal(t, "SESSION0001", id)
			return &ports.NotificationResult{
				SessionID:     "SESSION0001",
				OrderID:       "ORD-100",
				PaymentStatus: domain.SessionStatusCompleted,
				Shipment: &ports.ShipmentResult{
					TrackingNumber: "PRN123456",
					Cost:           decimal.NewFromInt(350),
					AreaCode:       domain.ZoneMetro,
				},
			}, nil
		})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, notifyRequest(http.MethodPost, testSecret, `{"sessionId":"SESSION0001","result":"SUCCESS"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "COMPLETED", data["paymentStatus"])
	shipment := data["shipment"].(map[string]any)
	assert.Equal(t, "PRN123456", shipment["trackingNumber"])
	assert.Equal(t, "350.00", shipment["cost"])
	assert.Equal(t, float64(1), shipment["areaCode"])
}

func TestNotify_PatchMethodAccepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, _, _, notificationSvc := testRouter(t, ctrl)

	notificationSvc.EXPECT().
		ProcessNotification(gomock.Any(), gomock.Any()).
		Return(&ports.NotificationResult{
			SessionID:     "SESSION0001",
			OrderID:       "ORD-100",
			PaymentStatus: domain.SessionStatusFailed,
		}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, notifyRequest(http.MethodPatch, testSecret, `{"sessionId":"SESSION0001","result":"FAILURE"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "FAILED", data["paymentStatus"])
	assert.NotContains(t, data, "shipment")
}

func TestNotify_InvalidPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, _, _, notificationSvc := testRouter(t, ctrl)

	notificationSvc.EXPECT().
		ProcessNotification(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInvalidPayload())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, notifyRequest(http.MethodPost, testSecret, `{}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	errBlock := resp["error"].(map[string]any)
	assert.Equal(t, "INVALID_PAYLOAD", errBlock["code"])
}

func TestNotify_MalformedBodyStillReachesService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, _, _, notificationSvc := testRouter(t, ctrl)

	// A malformed body parses to an empty payload; rejecting it is the
	// service's decision, not a transport error.
	notificationSvc.EXPECT().
		ProcessNotification(gomock.Any(), domain.NotificationPayload{}).
		Return(nil, apperror.ErrInvalidPayload())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, notifyRequest(http.MethodPost, testSecret, `{not json`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Session reads ---

func TestGetSession_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, sessionSvc, _, _ := testRouter(t, ctrl)

	sessionSvc.EXPECT().
		GetSession(gomock.Any(), "SESSION0001").
		Return(&domain.PaymentSession{
			SessionID: "SESSION0001",
			OrderID:   "ORD-100",
			Amount:    decimal.NewFromInt(1450),
			Status:    domain.SessionStatusCompleted,
		}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/SESSION0001", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "COMPLETED", data["status"])
}

func TestGetSession_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, sessionSvc, _, _ := testRouter(t, ctrl)

	sessionSvc.EXPECT().
		GetSession(gomock.Any(), "SESSION-MISSING").
		Return(nil, apperror.ErrNotFound("session"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/SESSION-MISSING", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSessions_InvalidLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, _, _, _ := testRouter(t, ctrl)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSessions_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, sessionSvc, _, _ := testRouter(t, ctrl)

	sessionSvc.EXPECT().
		ListSessions(gomock.Any(), 5).
		Return([]domain.PaymentSession{
			{SessionID: "SESSION0002", Amount: decimal.Zero},
			{SessionID: "SESSION0001", Amount: decimal.Zero},
		}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=5", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp["data"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "SESSION0002", first["sessionId"])
}

// --- Tracking ---

func TestTrackShipment_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, sessionSvc, shipmentSvc, _ := testRouter(t, ctrl)

	tno := "PRN123456"
	sessionSvc.EXPECT().
		GetSession(gomock.Any(), "SESSION0001").
		Return(&domain.PaymentSession{
			SessionID:            "SESSION0001",
			Amount:               decimal.Zero,
			ProntoTrackingNumber: &tno,
		}, nil)
	shipmentSvc.EXPECT().
		TrackShipment(gomock.Any(), "SESSION0001").
		Return([]domain.TrackingEvent{
			{Status: "Picked up", Date: "2026-08-25", Time: "09:14", Location: "Colombo Hub"},
			{Status: "Delivered", Date: "2026-08-26", Time: "11:40", Location: "Dehiwala"},
		}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/SESSION0001/tracking", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "PRN123456", data["trackingNumber"])
	assert.Equal(t, "Delivered", data["currentStatus"])
	assert.Len(t, data["events"], 2)
}

func TestTrackShipment_NoShipment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	r, sessionSvc, shipmentSvc, _ := testRouter(t, ctrl)

	sessionSvc.EXPECT().
		GetSession(gomock.Any(), "SESSION0001").
		Return(&domain.PaymentSession{SessionID: "SESSION0001", Amount: decimal.Zero}, nil)
	shipmentSvc.EXPECT().
		TrackShipment(gomock.Any(), "SESSION0001").
		Return(nil, apperror.ErrNoShipment())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/SESSION0001/tracking", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
