package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bs-shop/internal/models"
	"bs-shop/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIdentity(t *testing.T) {
	caller := &models.User{ID: 5}

	tests := []struct {
		name         string
		caller       *models.User
		sessionOwner *int64
		guestOnly    bool
		wantClient   int64
		wantGuest    bool
		wantLink     bool
	}{
		{
			name:       "caller owns unlinked session",
			caller:     caller,
			wantClient: 5,
			wantLink:   true,
		},
		{
			name:         "caller matches linked session",
			caller:       caller,
			sessionOwner: int64Ptr(5),
			wantClient:   5,
			wantLink:     false,
		},
		{
			name:         "caller overrides foreign link",
			caller:       caller,
			sessionOwner: int64Ptr(9),
			wantClient:   5,
			wantLink:     true,
		},
		{
			name:         "anonymous falls back to session link",
			sessionOwner: int64Ptr(9),
			wantClient:   9,
		},
		{
			name:      "anonymous unlinked session provisions guest",
			wantGuest: true,
			wantLink:  true,
		},
		{
			name:      "guest only ignores caller",
			caller:    caller,
			guestOnly: true,
			wantGuest: true,
			wantLink:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &models.CartSession{SessionToken: "abcdef123456", ClientID: tt.sessionOwner}

			got := resolveIdentity(tt.caller, session, tt.guestOnly)

			assert.Equal(t, tt.wantLink, got.linkSession)
			if tt.wantGuest {
				require.NotNil(t, got.guest)
				assert.True(t, got.guest.IsGuest)
				assert.Equal(t, "Client 123456", got.guest.Name)
				assert.Equal(t, models.RoleClient, got.guest.Role)
			} else {
				assert.Nil(t, got.guest)
				assert.Equal(t, tt.wantClient, got.clientID)
			}
		})
	}
}

func TestCheckoutExpiredSession(t *testing.T) {
	m := newMockStore()
	svc := NewCheckoutService(m, newMockCache(), &mockPublisher{})

	_, err := svc.Checkout(context.Background(), CheckoutRequest{SessionToken: "gone"})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestCheckoutSessionPastExpiry(t *testing.T) {
	m := newMockStore()
	session := seedSession(m, "tok-old", nil)
	session.ExpiresAt = time.Now().Add(-time.Hour)
	svc := NewCheckoutService(m, newMockCache(), &mockPublisher{})

	_, err := svc.Checkout(context.Background(), CheckoutRequest{SessionToken: "tok-old"})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestCheckoutEmptyCart(t *testing.T) {
	m := newMockStore()
	seedSession(m, "tok-empty", nil)
	svc := NewCheckoutService(m, newMockCache(), &mockPublisher{})

	_, err := svc.Checkout(context.Background(), CheckoutRequest{SessionToken: "tok-empty"})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutUnavailableItems(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	drained := m.variants[10]
	drained.StockQuantity = intPtr(1)
	m.variants[10] = drained

	session := seedSession(m, "tok-unavail", nil)
	seedItem(m, session.ID, 2, int64Ptr(10), 3)

	svc := NewCheckoutService(m, newMockCache(), &mockPublisher{})

	_, err := svc.Checkout(context.Background(), CheckoutRequest{SessionToken: "tok-unavail"})

	var unavailable *UnavailableItemsError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"Cold Brew - 1L Bottle"}, unavailable.Items)
	assert.Nil(t, m.convertParams, "conversion must not be attempted")
}

func TestCheckoutGuestProvisioning(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	session := seedSession(m, "tok-guest-abc123", nil)
	seedItem(m, session.ID, 1, nil, 2)

	publisher := &mockPublisher{}
	svc := NewCheckoutService(m, newMockCache(), publisher)

	resp, err := svc.Checkout(context.Background(), CheckoutRequest{
		SessionToken: "tok-guest-abc123",
		GuestOnly:    true,
	})

	require.NoError(t, err)
	require.NotNil(t, m.convertParams)
	require.NotNil(t, m.convertParams.Guest)
	assert.True(t, m.convertParams.Guest.IsGuest)
	assert.Equal(t, "Client abc123", m.convertParams.Guest.Name)
	assert.True(t, m.convertParams.LinkSession)

	assert.False(t, resp.Order.ClientInfo.IsExistingUser)
	assert.Empty(t, resp.WhatsAppMessage, "guest checkout carries no message block")
	assert.Empty(t, resp.NextSteps)

	require.Len(t, publisher.placed, 1)
	assert.True(t, publisher.placed[0].Guest)
}

func TestCheckoutAuthenticatedCaller(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	caller := &models.User{ID: 5, Name: "Ada", Email: "ada@example.com", IsActive: true}
	m.users[5] = caller

	session := seedSession(m, "tok-auth", int64Ptr(9))
	seedItem(m, session.ID, 2, int64Ptr(10), 2)
	seedItem(m, session.ID, 1, nil, 1)

	publisher := &mockPublisher{}
	cache := newMockCache()
	svc := NewCheckoutService(m, cache, publisher)

	resp, err := svc.Checkout(context.Background(), CheckoutRequest{
		SessionToken: "tok-auth",
		Notes:        "ASAP please",
		Caller:       caller,
	})

	require.NoError(t, err)
	require.NotNil(t, m.convertParams)
	assert.Equal(t, int64(5), m.convertParams.ClientID)
	assert.Nil(t, m.convertParams.Guest)
	assert.True(t, m.convertParams.LinkSession, "foreign link must be overridden")

	// 2 x 1500 + 1 x 250, frozen at conversion time
	assert.Equal(t, int64(3250), m.convertParams.TotalAmount)
	require.Len(t, m.convertParams.Lines, 2)
	assert.True(t, m.convertParams.Lines[0].DecrementStock)
	assert.False(t, m.convertParams.Lines[1].DecrementStock, "variant-less lines never touch stock")
	assert.Equal(t, int64(1500), m.convertParams.Lines[0].UnitPrice)
	assert.Equal(t, int64(250), m.convertParams.Lines[1].UnitPrice)

	assert.Equal(t, "Ada", resp.Order.ClientInfo.Name)
	assert.True(t, resp.Order.ClientInfo.IsExistingUser)
	assert.Equal(t, models.OrderStatusPending, resp.Order.Status)
	assert.Equal(t, "ASAP please", resp.Order.Notes)
	assert.NotEmpty(t, resp.WhatsAppMessage)
	assert.Contains(t, resp.WhatsAppMessage, "Cold Brew - 1L Bottle x2")
	assert.Len(t, resp.NextSteps, 3)

	assert.Contains(t, cache.invalidated, "tok-auth")
	require.Len(t, publisher.placed, 1)
	assert.Equal(t, resp.Order.ID, publisher.placed[0].OrderID)
	assert.Len(t, publisher.placed[0].Items, 2)
}

func TestCheckoutUnlimitedVariantSkipsDecrement(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	session := seedSession(m, "tok-unlimited", nil)
	seedItem(m, session.ID, 2, int64Ptr(11), 50)

	svc := NewCheckoutService(m, newMockCache(), &mockPublisher{})

	_, err := svc.Checkout(context.Background(), CheckoutRequest{SessionToken: "tok-unlimited", GuestOnly: true})

	require.NoError(t, err)
	require.Len(t, m.convertParams.Lines, 1)
	assert.False(t, m.convertParams.Lines[0].DecrementStock)
}

func TestCheckoutStockRace(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	session := seedSession(m, "tok-race", nil)
	seedItem(m, session.ID, 2, int64Ptr(10), 2)

	m.convertErr = &store.InsufficientStockError{VariantID: 10, Quantity: 2}
	svc := NewCheckoutService(m, newMockCache(), &mockPublisher{})

	_, err := svc.Checkout(context.Background(), CheckoutRequest{SessionToken: "tok-race", GuestOnly: true})

	var unavailable *UnavailableItemsError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"Cold Brew - 1L Bottle"}, unavailable.Items)
}

func TestCheckoutConversionFailure(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	session := seedSession(m, "tok-dbfail", nil)
	seedItem(m, session.ID, 1, nil, 1)

	m.convertErr = errors.New("deadlock detected")
	publisher := &mockPublisher{}
	svc := NewCheckoutService(m, newMockCache(), publisher)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{SessionToken: "tok-dbfail", GuestOnly: true})

	require.Error(t, err)
	assert.Empty(t, publisher.placed, "no event without a committed order")
}

func TestCheckoutSurvivesPublishFailure(t *testing.T) {
	m := newMockStore()
	seedCatalog(m)
	session := seedSession(m, "tok-pubfail", nil)
	seedItem(m, session.ID, 1, nil, 1)

	svc := NewCheckoutService(m, newMockCache(), &mockPublisher{err: errors.New("broker down")})

	resp, err := svc.Checkout(context.Background(), CheckoutRequest{SessionToken: "tok-pubfail", GuestOnly: true})

	require.NoError(t, err, "the order is committed; publish failure must not fail the checkout")
	assert.NotZero(t, resp.Order.ID)
}
