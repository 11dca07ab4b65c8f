package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"checkout-sandbox/internal/core/domain"
	"checkout-sandbox/internal/core/ports"
	"checkout-sandbox/internal/core/ports/mocks"
	"checkout-sandbox/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type sessionTestDeps struct {
	svc        *SessionServiceImpl
	repo       *mocks.MockSessionRepository
	gateway    *mocks.MockPaymentGateway
	carrier    *mocks.MockCarrierGateway
	quoteCache *mocks.MockQuoteCache
	ctrl       *gomock.Controller
}

func setupSessionService(t *testing.T) *sessionTestDeps {
	ctrl := gomock.NewController(t)
	d := &sessionTestDeps{
		repo:       mocks.NewMockSessionRepository(ctrl),
		gateway:    mocks.NewMockPaymentGateway(ctrl),
		carrier:    mocks.NewMockCarrierGateway(ctrl),
		quoteCache: mocks.NewMockQuoteCache(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewSessionService(d.repo, d.gateway, d.carrier, d.quoteCache, "CUS001", "LKR", zerolog.Nop())
	return d
}

func baseCreateRequest() ports.CreateSessionRequest {
	return ports.CreateSessionRequest{
		OrderID:     "ORD-100",
		Amount:      decimal.NewFromInt(1000),
		Description: "Ceramic vase",
		Sender:      domain.Party{Name: "Nimal", Phone: "0771234567", Address: "12 Galle Rd"},
		Receiver:    domain.Party{Name: "Kamala", Phone: "0777654321", Address: "8 Temple Rd"},
		Location:    "Kandy",
		Weight:      decimal.NewFromFloat(2.5),
	}
}

// ==================== CreateSession Tests ====================

func TestSessionService_CreateSession_TotalIncludesDeliveryCharge(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := baseCreateRequest()

	d.quoteCache.EXPECT().Get(ctx, gomock.Any()).Return(decimal.Zero, false, nil)
	d.carrier.EXPECT().
		QuoteCost(ctx, "CUS001", req.Weight, domain.ZoneOutstation).
		Return(decimal.NewFromInt(450), nil)
	d.quoteCache.EXPECT().Set(ctx, gomock.Any(), decimal.NewFromInt(450), quoteCacheTTL).Return(nil)

	d.gateway.EXPECT().
		CreateCheckoutSession(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, gwReq ports.GatewaySessionRequest) (*ports.GatewaySession, error) {
			// Gateway is charged the item amount plus delivery.
			assert.True(t, gwReq.Amount.Equal(decimal.NewFromInt(1450)), "got %s", gwReq.Amount)
			assert.Equal(t, "ORD-100", gwReq.OrderID)
			assert.Equal(t, "LKR", gwReq.Currency)
			return &ports.GatewaySession{
				SessionID: "SESSION0001",
				Raw:       json.RawMessage(`{"result":"SUCCESS","session":{"id":"SESSION0001"}}`),
			}, nil
		})

	d.repo.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, s *domain.PaymentSession) error {
			assert.Equal(t, "SESSION0001", s.SessionID)
			assert.Equal(t, domain.SessionStatusPending, s.Status)
			assert.True(t, s.Amount.Equal(decimal.NewFromInt(1450)))

			var meta map[string]any
			require.NoError(t, json.Unmarshal(s.Metadata, &meta))
			pricing := meta["pricing"].(map[string]any)
			assert.Equal(t, "1000", pricing["itemAmount"])
			assert.Equal(t, "450", pricing["deliveryCharge"])
			assert.Equal(t, "1450", pricing["totalAmount"])
			assert.Equal(t, float64(domain.ZoneOutstation), pricing["areaCode"])
			return nil
		})

	session, err := d.svc.CreateSession(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "SESSION0001", session.SessionID)
	assert.Equal(t, domain.SessionStatusPending, session.Status)
}

func TestSessionService_CreateSession_GeneratesOrderIDWhenEmpty(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := baseCreateRequest()
	req.OrderID = ""

	d.quoteCache.EXPECT().Get(ctx, gomock.Any()).Return(decimal.Zero, false, nil)
	d.carrier.EXPECT().QuoteCost(ctx, "CUS001", req.Weight, domain.ZoneOutstation).Return(decimal.NewFromInt(450), nil)
	d.quoteCache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), quoteCacheTTL).Return(nil)
	d.gateway.EXPECT().
		CreateCheckoutSession(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, gwReq ports.GatewaySessionRequest) (*ports.GatewaySession, error) {
			assert.Contains(t, gwReq.OrderID, "ORD-")
			return &ports.GatewaySession{SessionID: "SESSION0002", Raw: json.RawMessage(`{}`)}, nil
		})
	d.repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	session, err := d.svc.CreateSession(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, session.OrderID, "ORD-")
}

func TestSessionService_CreateSession_QuoteFailureAbortsEverything(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := baseCreateRequest()

	d.quoteCache.EXPECT().Get(ctx, gomock.Any()).Return(decimal.Zero, false, nil)
	d.carrier.EXPECT().
		QuoteCost(ctx, "CUS001", req.Weight, domain.ZoneOutstation).
		Return(decimal.Zero, errors.New("carrier unreachable"))
	// Gateway is never called and nothing is persisted.

	_, err := d.svc.CreateSession(ctx, req)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "QUOTE_UNAVAILABLE", appErr.Code)
}

func TestSessionService_CreateSession_QuoteCacheHitSkipsCarrier(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := baseCreateRequest()

	d.quoteCache.EXPECT().Get(ctx, "CUS001:3:2.5").Return(decimal.NewFromInt(450), true, nil)
	d.gateway.EXPECT().
		CreateCheckoutSession(ctx, gomock.Any()).
		Return(&ports.GatewaySession{SessionID: "SESSION0003", Raw: json.RawMessage(`{}`)}, nil)
	d.repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.CreateSession(ctx, req)
	require.NoError(t, err)
}

func TestSessionService_CreateSession_CacheErrorFallsThroughToCarrier(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := baseCreateRequest()

	d.quoteCache.EXPECT().Get(ctx, gomock.Any()).Return(decimal.Zero, false, errors.New("redis down"))
	d.carrier.EXPECT().QuoteCost(ctx, "CUS001", req.Weight, domain.ZoneOutstation).Return(decimal.NewFromInt(450), nil)
	d.quoteCache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), quoteCacheTTL).Return(errors.New("redis down"))
	d.gateway.EXPECT().
		CreateCheckoutSession(ctx, gomock.Any()).
		Return(&ports.GatewaySession{SessionID: "SESSION0004", Raw: json.RawMessage(`{}`)}, nil)
	d.repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.CreateSession(ctx, req)
	require.NoError(t, err)
}

func TestSessionService_CreateSession_GatewayErrorPropagates(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := baseCreateRequest()

	d.quoteCache.EXPECT().Get(ctx, gomock.Any()).Return(decimal.NewFromInt(450), true, nil)
	d.gateway.EXPECT().
		CreateCheckoutSession(ctx, gomock.Any()).
		Return(nil, apperror.ErrGateway("gateway returned HTTP 502", errors.New("bad gateway")))

	_, err := d.svc.CreateSession(ctx, req)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "GATEWAY_ERROR", appErr.Code)
}

func TestSessionService_CreateSession_CustomerCodeOverride(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := baseCreateRequest()
	code := "CUS777"
	req.ProntoCustomerCode = &code

	d.quoteCache.EXPECT().Get(ctx, "CUS777:3:2.5").Return(decimal.Zero, false, nil)
	d.carrier.EXPECT().QuoteCost(ctx, "CUS777", req.Weight, domain.ZoneOutstation).Return(decimal.NewFromInt(500), nil)
	d.quoteCache.EXPECT().Set(ctx, "CUS777:3:2.5", decimal.NewFromInt(500), quoteCacheTTL).Return(nil)
	d.gateway.EXPECT().
		CreateCheckoutSession(ctx, gomock.Any()).
		Return(&ports.GatewaySession{SessionID: "SESSION0005", Raw: json.RawMessage(`{}`)}, nil)
	d.repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.CreateSession(ctx, req)
	require.NoError(t, err)
}

// ==================== Transition Tests ====================

func TestSessionService_Transition_SuccessMarksCompleted(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payload := domain.NotificationPayload{"sessionId": "SESSION0001", "result": "SUCCESS"}

	d.repo.EXPECT().Get(ctx, "SESSION0001").Return(&domain.PaymentSession{
		SessionID: "SESSION0001",
		Status:    domain.SessionStatusPending,
	}, nil)

	d.repo.EXPECT().
		Update(ctx, "SESSION0001", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, patch ports.SessionUpdate) (*domain.PaymentSession, error) {
			require.NotNil(t, patch.Status)
			assert.Equal(t, domain.SessionStatusCompleted, *patch.Status)

			var meta map[string]any
			require.NoError(t, json.Unmarshal(patch.MetadataPatch, &meta))
			webhooks := meta["webhooks"].([]any)
			require.Len(t, webhooks, 1)
			entry := webhooks[0].(map[string]any)
			assert.Equal(t, true, entry["success"])
			assert.NotEmpty(t, entry["receivedAt"])
			assert.NotEmpty(t, meta["lastWebhookAt"])

			return &domain.PaymentSession{SessionID: "SESSION0001", Status: domain.SessionStatusCompleted}, nil
		})

	session, err := d.svc.Transition(ctx, "SESSION0001", true, payload)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, session.Status)
}

func TestSessionService_Transition_FailureMarksFailed(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.repo.EXPECT().Get(ctx, "SESSION0001").Return(&domain.PaymentSession{
		SessionID: "SESSION0001",
		Status:    domain.SessionStatusPending,
	}, nil)
	d.repo.EXPECT().
		Update(ctx, "SESSION0001", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, patch ports.SessionUpdate) (*domain.PaymentSession, error) {
			assert.Equal(t, domain.SessionStatusFailed, *patch.Status)
			return &domain.PaymentSession{SessionID: "SESSION0001", Status: domain.SessionStatusFailed}, nil
		})

	session, err := d.svc.Transition(ctx, "SESSION0001", false, domain.NotificationPayload{"result": "FAILURE"})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusFailed, session.Status)
}

func TestSessionService_Transition_ReplayAccumulatesWebhookMetadata(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	// Session already carries one recorded webhook from a previous delivery.
	existing, err := json.Marshal(map[string]any{
		"webhooks": []any{
			map[string]any{
				"receivedAt": time.Now().UTC().Format(time.RFC3339Nano),
				"success":    true,
			},
		},
	})
	require.NoError(t, err)

	d.repo.EXPECT().Get(ctx, "SESSION0001").Return(&domain.PaymentSession{
		SessionID: "SESSION0001",
		Status:    domain.SessionStatusCompleted,
		Metadata:  existing,
	}, nil)
	d.repo.EXPECT().
		Update(ctx, "SESSION0001", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, patch ports.SessionUpdate) (*domain.PaymentSession, error) {
			// Replay keeps the same terminal status and appends, never
			// overwrites, the webhook history.
			assert.Equal(t, domain.SessionStatusCompleted, *patch.Status)

			var meta map[string]any
			require.NoError(t, json.Unmarshal(patch.MetadataPatch, &meta))
			assert.Len(t, meta["webhooks"].([]any), 2)
			return &domain.PaymentSession{SessionID: "SESSION0001", Status: domain.SessionStatusCompleted}, nil
		})

	_, err = d.svc.Transition(ctx, "SESSION0001", true, domain.NotificationPayload{"result": "SUCCESS"})
	require.NoError(t, err)
}

func TestSessionService_Transition_UnknownSession(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.repo.EXPECT().Get(ctx, "SESSION-MISSING").Return(nil, nil)

	_, err := d.svc.Transition(ctx, "SESSION-MISSING", true, domain.NotificationPayload{})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SESSION_NOT_FOUND", appErr.Code)
}

// ==================== GetSession / ListSessions Tests ====================

func TestSessionService_GetSession_NotFound(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.repo.EXPECT().Get(ctx, "SESSION-MISSING").Return(nil, nil)

	_, err := d.svc.GetSession(ctx, "SESSION-MISSING")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SESSION_NOT_FOUND", appErr.Code)
}

func TestSessionService_ListSessions_ClampsLimit(t *testing.T) {
	d := setupSessionService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.repo.EXPECT().List(ctx, defaultListLimit).Return(nil, nil)
	_, err := d.svc.ListSessions(ctx, 0)
	require.NoError(t, err)

	d.repo.EXPECT().List(ctx, maxListLimit).Return(nil, nil)
	_, err = d.svc.ListSessions(ctx, 5000)
	require.NoError(t, err)

	d.repo.EXPECT().List(ctx, 7).Return(nil, nil)
	_, err = d.svc.ListSessions(ctx, 7)
	require.NoError(t, err)
}
