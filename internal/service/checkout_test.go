package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/luxemarket/storefront/internal/domain"
	apperrors "github.com/luxemarket/storefront/pkg/errors"
)

type checkoutFixture struct {
	svc      *CheckoutService
	carts    *CartService
	cartRepo *mockCartRepository
	orders   *mockOrderRepository
	notifier *mockNotifier
	events   *mockOrderEvents
	opener   *recordingOpener
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		cartRepo: new(mockCartRepository),
		orders:   new(mockOrderRepository),
		notifier: new(mockNotifier),
		events:   new(mockOrderEvents),
		opener:   &recordingOpener{},
	}
	f.carts = NewCartService(f.cartRepo, new(mockProductRepository), newTestLogger())
	f.svc = NewCheckoutService(f.carts, f.orders, f.notifier, f.events, newTestLogger())
	f.svc.newID = func() string { return "order-1" }
	f.svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return f
}

// Silk Scarf 45.00 x2 and Leather Belt 60.00 x1.
func fixtureCart() *domain.Cart {
	c := domain.NewCart("s-1", time.Now().UTC())
	c.Version = 7
	c.DrawerOpen = true
	c.Lines = []domain.CartLine{
		{ProductID: "p-1", Name: "Silk Scarf", Price: decimal.RequireFromString("45.00"), Quantity: 2},
		{ProductID: "p-2", Name: "Leather Belt", Price: decimal.RequireFromString("60.00"), Quantity: 1},
	}
	return c
}

func validInput(method string) CheckoutInput {
	return CheckoutInput{
		Name:          "Ada Lovelace",
		Email:         "ada@example.com",
		Phone:         "+44 7700 900123",
		Address:       "1 High Street",
		PaymentMethod: method,
	}
}

func TestPlaceOrder_CashOnDeliveryAutomatic(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.cartRepo.On("Get", mock.Anything, "s-1").Return(fixtureCart(), nil)
	f.cartRepo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), 7).Return(true, nil)

	var created *domain.Order
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Order) }).
		Return(nil)
	f.events.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)

	var sent domain.OrderNotification
	f.notifier.On("Dispatch", mock.Anything, mock.AnythingOfType("domain.OrderNotification")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(domain.OrderNotification) }).
		Return(domain.DispatchResult{Success: true, Method: domain.DeliveryAutomatic})

	res, err := f.svc.PlaceOrder(ctx, "s-1", validInput("cod"), f.opener)
	require.NoError(t, err)

	assert.True(t, res.OrderPlaced)
	assert.Equal(t, "order-1", res.Order.ID)
	assert.Equal(t, domain.DeliveryAutomatic, res.Notification.Method)
	assert.Empty(t, res.ManualURL)
	assert.Empty(t, f.opener.urls)

	require.NotNil(t, created)
	assert.Equal(t, domain.PaymentCashOnDelivery, created.PaymentMethod)
	assert.Equal(t, domain.OrderStatusPending, created.Status)
	assert.Equal(t, "150.00", created.TotalAmount.StringFixed(2))
	require.Len(t, created.Items, 2)
	assert.Equal(t, "45.00", created.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "60.00", created.Items[1].UnitPrice.StringFixed(2))

	assert.Len(t, sent.Items, 2)
	assert.Equal(t, "150.00", sent.Total.StringFixed(2))
	assert.Equal(t, "Ada Lovelace", sent.CustomerName)

	// Cart emptied and drawer closed.
	f.cartRepo.AssertCalled(t, "SaveIfVersion", mock.Anything, mock.MatchedBy(func(c *domain.Cart) bool {
		return c.IsEmpty() && !c.DrawerOpen
	}), 7)
	f.notifier.AssertNotCalled(t, "ManualLink", mock.Anything)
}

func TestPlaceOrder_KeepsItemsAddedDuringCheckout(t *testing.T) {
	f := newCheckoutFixture()

	cart := fixtureCart()
	f.cartRepo.On("Get", mock.Anything, "s-1").Return(cart, nil)
	f.cartRepo.On("SaveIfVersion", mock.Anything, mock.Anything, 8).Return(true, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			// Another tab adds a product while the order is being written.
			cart.Lines = append(cart.Lines, domain.CartLine{
				ProductID: "p-3", Name: "Linen Shirt", Price: decimal.RequireFromString("80.00"), Quantity: 1,
			})
			cart.Version = 8
		}).
		Return(nil)
	f.events.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Dispatch", mock.Anything, mock.Anything).
		Return(domain.DispatchResult{Success: true, Method: domain.DeliveryAutomatic})

	res, err := f.svc.PlaceOrder(context.Background(), "s-1", validInput("cod"), f.opener)
	require.NoError(t, err)
	assert.Len(t, res.Order.Items, 2)

	f.cartRepo.AssertCalled(t, "SaveIfVersion", mock.Anything, mock.MatchedBy(func(c *domain.Cart) bool {
		return len(c.Lines) == 1 && c.Lines[0].ProductID == "p-3" && !c.DrawerOpen
	}), 8)
}

func TestPlaceOrder_EmptyCartDoesNothing(t *testing.T) {
	f := newCheckoutFixture()

	f.cartRepo.On("Get", mock.Anything, "s-1").Return(nil, apperrors.NotFound("cart", "s-1"))

	res, err := f.svc.PlaceOrder(context.Background(), "s-1", validInput("cod"), f.opener)
	require.NoError(t, err)
	assert.False(t, res.OrderPlaced)
	assert.Nil(t, res.Order)

	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "PublishOrderPlaced", mock.Anything, mock.Anything)
	f.cartRepo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.opener.urls)
}

func TestPlaceOrder_ManualFallbackOpensLink(t *testing.T) {
	f := newCheckoutFixture()

	f.cartRepo.On("Get", mock.Anything, "s-1").Return(fixtureCart(), nil)
	f.cartRepo.On("SaveIfVersion", mock.Anything, mock.Anything, 7).Return(true, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Dispatch", mock.Anything, mock.Anything).
		Return(domain.DispatchResult{Success: true, Method: domain.DeliveryManual, Fallback: true, Error: "gateway 500"})
	f.notifier.On("ManualLink", mock.Anything).Return("https://wa.me/447448071922?text=hi")

	res, err := f.svc.PlaceOrder(context.Background(), "s-1", validInput("cod"), f.opener)
	require.NoError(t, err)

	assert.True(t, res.OrderPlaced)
	assert.True(t, res.Notification.Fallback)
	assert.Equal(t, []string{"https://wa.me/447448071922?text=hi"}, f.opener.urls)
	assert.Equal(t, "https://wa.me/447448071922?text=hi", res.ManualURL)
}

func TestPlaceOrder_WhatsAppAlwaysOpensLink(t *testing.T) {
	f := newCheckoutFixture()

	f.cartRepo.On("Get", mock.Anything, "s-1").Return(fixtureCart(), nil)
	f.cartRepo.On("SaveIfVersion", mock.Anything, mock.Anything, 7).Return(true, nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.PaymentMethod == domain.PaymentWhatsApp
	})).Return(nil)
	f.events.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Dispatch", mock.Anything, mock.Anything).
		Return(domain.DispatchResult{Success: true, Method: domain.DeliveryAutomatic})
	f.notifier.On("ManualLink", mock.Anything).Return("https://wa.me/1?text=x")

	res, err := f.svc.PlaceOrder(context.Background(), "s-1", validInput("whatsapp"), f.opener)
	require.NoError(t, err)
	assert.True(t, res.OrderPlaced)
	assert.Len(t, f.opener.urls, 1)
	f.orders.AssertExpectations(t)
}

func TestPlaceOrder_PersistenceFailureKeepsCart(t *testing.T) {
	f := newCheckoutFixture()

	f.cartRepo.On("Get", mock.Anything, "s-1").Return(fixtureCart(), nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert order item: fk violation"))

	res, err := f.svc.PlaceOrder(context.Background(), "s-1", validInput("cod"), f.opener)
	require.Error(t, err)
	assert.Nil(t, res)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ORDER_FAILED", appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.NotContains(t, appErr.Message, "fk violation")

	f.cartRepo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "PublishOrderPlaced", mock.Anything, mock.Anything)
	assert.Empty(t, f.opener.urls)
}

func TestPlaceOrder_BestEffortFailuresDoNotFailOrder(t *testing.T) {
	f := newCheckoutFixture()
	f.opener.err = errors.New("no host frame")

	f.cartRepo.On("Get", mock.Anything, "s-1").Return(fixtureCart(), nil)
	f.cartRepo.On("SaveIfVersion", mock.Anything, mock.Anything, 7).Return(false, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(errors.New("kafka down"))
	f.notifier.On("Dispatch", mock.Anything, mock.Anything).
		Return(domain.DispatchResult{Success: true, Method: domain.DeliveryManual})
	f.notifier.On("ManualLink", mock.Anything).Return("https://wa.me/1?text=x")

	res, err := f.svc.PlaceOrder(context.Background(), "s-1", validInput("cod"), f.opener)
	require.NoError(t, err)
	assert.True(t, res.OrderPlaced)
	assert.Equal(t, "order-1", res.Order.ID)
}

func TestPlaceOrder_UnknownPaymentMethod(t *testing.T) {
	f := newCheckoutFixture()

	f.cartRepo.On("Get", mock.Anything, "s-1").Return(fixtureCart(), nil)

	_, err := f.svc.PlaceOrder(context.Background(), "s-1", validInput("card"), f.opener)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetOrder(t *testing.T) {
	f := newCheckoutFixture()

	f.orders.On("GetByID", mock.Anything, "order-1").Return(&domain.Order{ID: "order-1"}, nil)
	f.orders.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NotFound("order", "missing"))

	o, err := f.svc.GetOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", o.ID)

	_, err = f.svc.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
