package order

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cartloom/checkout/internal/domain/product"
	"github.com/cartloom/checkout/internal/domain/promo"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyItems = errors.New("items required")
	// ErrNegativeTotal signals a broken pricing invariant, not a user
	// error: subtotal + shipping - discount must never be negative.
	ErrNegativeTotal = errors.New("order total became negative")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductUnavailableError indicates a requested product or variant is
// missing or inactive.
type ProductUnavailableError struct {
	ProductID string
	VariantID string
}

func (e *ProductUnavailableError) Error() string {
	if e.VariantID != "" {
		return fmt.Sprintf("variant %s of product %s is unavailable", e.VariantID, e.ProductID)
	}
	return fmt.Sprintf("product %s is unavailable", e.ProductID)
}

// ItemRequest is one requested line item.
type ItemRequest struct {
	ProductID string
	VariantID string
	Quantity  int
}

// CreateOrderRequest holds the checkout input. When Items is empty the
// actor's cart contents are used instead.
type CreateOrderRequest struct {
	Items         []ItemRequest
	PaymentMethod string
	Shipping      Address
	PromoCode     string
	Notes         string
}

// Config holds the orchestrator's policy knobs.
type Config struct {
	Shipping ShippingPolicy
	// PromoStrict decides what an invalid promo code does to checkout:
	// true aborts with the validation error, false drops the code and
	// proceeds without a discount. This is an explicit policy choice,
	// not a fallback.
	PromoStrict bool
}

// Service is the order engine: it sequences checkout as one atomic unit of
// work and governs the order lifecycle afterwards.
type Service struct {
	cfg    Config
	tx     TxManager
	orders Repository       // pool-scoped, reads outside transactions
	promos promo.Repository // pool-scoped, read-only previews
	pub    Publisher
	lg     *zap.Logger
	now    func() time.Time
}

// NewService creates the order Service with its collaborators.
func NewService(cfg Config, tx TxManager, orders Repository, promos promo.Repository, pub Publisher, lg *zap.Logger) *Service {
	return &Service{
		cfg:    cfg,
		tx:     tx,
		orders: orders,
		promos: promos,
		pub:    pub,
		lg:     lg,
		now:    time.Now,
	}
}

// resolvedLine pairs a request line with its catalog snapshot.
type resolvedLine struct {
	req         ItemRequest
	target      product.StockTarget
	name        string
	sku         string
	variantName string
	priced      PricedLine
}

// CreateOrder places an order for the actor as one atomic transaction:
// number generation, catalog resolution, pricing, promo validation,
// persistence, stock reservation, promo redemption, cart clear. Any
// failure rolls the whole thing back; side effects are visible only after
// commit. An order-number collision is retried once with a fresh number.
func (s *Service) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*Order, error) {
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
	}

	var placed *Order
	attempt := func() error {
		return s.tx.WithinTx(ctx, func(tx Tx) error {
			o, err := s.placeOrder(ctx, tx, userID, req)
			if err != nil {
				return err
			}
			placed = o
			return nil
		})
	}

	err := attempt()
	if errors.Is(err, ErrDuplicateNumber) {
		err = attempt()
	}
	if err != nil {
		return nil, err
	}

	s.pub.OrderCreated(ctx, placed)
	return placed, nil
}

func (s *Service) placeOrder(ctx context.Context, tx Tx, userID string, req CreateOrderRequest) (*Order, error) {
	items := req.Items
	if len(items) == 0 {
		carted, err := tx.Carts().ListByUser(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "load cart")
		}
		for _, ci := range carted {
			items = append(items, ItemRequest{
				ProductID: ci.ProductID,
				VariantID: ci.VariantID,
				Quantity:  ci.Quantity,
			})
		}
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	lines, err := s.resolveLines(ctx, tx, items)
	if err != nil {
		return nil, err
	}

	priced := make([]PricedLine, len(lines))
	for i, l := range lines {
		priced[i] = l.priced
	}
	quote := CalculateQuote(priced, s.cfg.Shipping)

	shipping := quote.ShippingCost
	discount := decimal.Zero
	promoID := ""
	perUserLimit := 0
	if req.PromoCode != "" {
		preview, err := promo.NewValidatorAt(tx.Promos(), s.now).Validate(ctx, req.PromoCode, userID, quote.Subtotal)
		switch {
		case err == nil:
			discount = preview.Discount.Amount
			if preview.Discount.FreeShipping {
				shipping = decimal.Zero
			}
			promoID = preview.Code.ID
			perUserLimit = preview.Code.UsagePerUser
		case s.cfg.PromoStrict:
			return nil, err
		default:
			s.lg.Info("dropping invalid promo code",
				zap.String("code", req.PromoCode), zap.Error(err))
		}
	}

	total := quote.Subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		return nil, errors.Wrapf(ErrNegativeTotal,
			"subtotal %s shipping %s discount %s", quote.Subtotal, shipping, discount)
	}

	now := s.now()
	o := &Order{
		ID:             uuid.New().String(),
		Number:         newOrderNumber(now),
		UserID:         userID,
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
		PaymentMethod:  req.PaymentMethod,
		Subtotal:       quote.Subtotal,
		ShippingCost:   shipping,
		DiscountAmount: discount,
		TotalAmount:    total,
		PromoCodeID:    promoID,
		Shipping:       req.Shipping,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	o.Items = make([]Item, len(lines))
	for i, l := range lines {
		o.Items[i] = Item{
			ID:          uuid.New().String(),
			OrderID:     o.ID,
			ProductID:   l.req.ProductID,
			VariantID:   l.req.VariantID,
			Name:        l.name,
			SKU:         l.sku,
			VariantName: l.variantName,
			UnitPrice:   l.priced.UnitPrice(),
			Quantity:    l.req.Quantity,
			Subtotal:    quote.LineSubtotals[i],
		}
	}

	if err := tx.Orders().Create(ctx, o); err != nil {
		return nil, err
	}

	// Reservation runs after persistence so a race against a concurrent
	// order aborts this transaction as a whole: no order, no stock change,
	// no redemption survive.
	for _, l := range lines {
		if err := tx.Inventory().Reserve(ctx, l.target, l.req.Quantity); err != nil {
			return nil, err
		}
	}

	if promoID != "" {
		if err := tx.Promos().Redeem(ctx, promoID, userID, o.ID, perUserLimit); err != nil {
			return nil, err
		}
	}

	if err := tx.Carts().Clear(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}

	return o, nil
}

// resolveLines fetches the catalog snapshot for every requested line,
// failing on missing/inactive targets and on visibly short stock. The
// authoritative stock check is the conditional decrement at reservation.
func (s *Service) resolveLines(ctx context.Context, tx Tx, items []ItemRequest) ([]resolvedLine, error) {
	lines := make([]resolvedLine, len(items))
	for i, it := range items {
		p, err := tx.Products().GetByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &ProductUnavailableError{ProductID: it.ProductID}
			}
			return nil, errors.Wrapf(err, "get product %s", it.ProductID)
		}
		if !p.IsActive {
			return nil, &ProductUnavailableError{ProductID: it.ProductID}
		}

		line := resolvedLine{
			req:    it,
			target: product.ProductTarget(p.ID),
			name:   p.Name,
			sku:    p.SKU,
			priced: PricedLine{BasePrice: p.Price, Quantity: it.Quantity},
		}

		available := p.Stock
		if it.VariantID != "" {
			v, err := tx.Products().GetVariant(ctx, it.VariantID)
			if err != nil {
				if errors.Is(err, product.ErrVariantNotFound) {
					return nil, &ProductUnavailableError{ProductID: it.ProductID, VariantID: it.VariantID}
				}
				return nil, errors.Wrapf(err, "get variant %s", it.VariantID)
			}
			if v.ProductID != p.ID || !v.IsActive {
				return nil, &ProductUnavailableError{ProductID: it.ProductID, VariantID: it.VariantID}
			}
			line.target = product.VariantTarget(v.ID)
			line.variantName = v.Name
			line.priced.Adjustment = v.PriceAdjustment
			available = v.Stock
		}

		if available < it.Quantity {
			return nil, &product.InsufficientStockError{Target: line.target, Requested: it.Quantity}
		}
		lines[i] = line
	}
	return lines, nil
}

// CancelOrder cancels a pending or confirmed order owned by the actor,
// releasing exactly the stock its item snapshots reserved. Promo usage is
// deliberately left spent. The status guard and the row lock make
// cancellation and concurrent lifecycle changes mutually exclusive.
func (s *Service) CancelOrder(ctx context.Context, orderID, userID, reason string) (*Order, error) {
	var cancelled *Order
	err := s.tx.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrNotFound
		}
		if !CanTransition(o.Status, StatusCancelled) {
			return &InvalidTransitionError{From: o.Status, To: StatusCancelled}
		}

		for _, it := range o.Items {
			if err := tx.Inventory().Release(ctx, it.Target(), it.Quantity); err != nil {
				return errors.Wrapf(err, "release %s", it.Target())
			}
		}

		now := s.now()
		if err := tx.Orders().SetCancelled(ctx, o.ID, reason, now); err != nil {
			return err
		}
		if err := tx.Orders().AppendHistory(ctx, &StatusChange{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			From:      o.Status,
			To:        StatusCancelled,
			Note:      reason,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		o.Status = StatusCancelled
		o.CancelReason = reason
		o.CancelledAt = &now
		o.UpdatedAt = now
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.pub.OrderCancelled(ctx, cancelled, reason)
	return cancelled, nil
}

// ConfirmOrder moves a pending order to confirmed.
func (s *Service) ConfirmOrder(ctx context.Context, orderID, note string) (*Order, error) {
	return s.advance(ctx, orderID, StatusConfirmed, note)
}

// MarkDelivered moves a confirmed order to its terminal delivered state.
func (s *Service) MarkDelivered(ctx context.Context, orderID, note string) (*Order, error) {
	return s.advance(ctx, orderID, StatusDelivered, note)
}

func (s *Service) advance(ctx context.Context, orderID string, to Status, note string) (*Order, error) {
	var (
		updated *Order
		from    Status
	)
	err := s.tx.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, to) {
			return &InvalidTransitionError{From: o.Status, To: to}
		}

		if err := tx.Orders().SetStatus(ctx, o.ID, to); err != nil {
			return err
		}
		now := s.now()
		if err := tx.Orders().AppendHistory(ctx, &StatusChange{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			From:      o.Status,
			To:        to,
			Note:      note,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		from = o.Status
		o.Status = to
		o.UpdatedAt = now
		updated = o

		s.lg.Debug("order status changed",
			zap.String("order_id", o.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.pub.OrderStatusChanged(ctx, updated, from, to)
	return updated, nil
}

// ValidatePromoCode previews the discount a code would yield for the actor
// at the given subtotal without redeeming anything.
func (s *Service) ValidatePromoCode(ctx context.Context, code, userID string, subtotal decimal.Decimal) (*promo.Preview, error) {
	return promo.NewValidatorAt(s.promos, s.now).Validate(ctx, code, userID, subtotal)
}

// GetOrder returns the actor's order with items and history.
func (s *Service) GetOrder(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListOrders returns the actor's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// OrderHistory returns the status history of the actor's order.
func (s *Service) OrderHistory(ctx context.Context, orderID, userID string) ([]StatusChange, error) {
	if _, err := s.GetOrder(ctx, orderID, userID); err != nil {
		return nil, err
	}
	return s.orders.History(ctx, orderID)
}

const numberAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ0123456789"

// newOrderNumber builds a human-readable business identifier like
// ORD-20260901-K4QZT7MB. Uniqueness is enforced by a storage constraint;
// a collision is retried once by the caller.
func newOrderNumber(now time.Time) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a uuid-derived suffix rather than panic in the checkout path.
		copy(buf, uuid.New().String())
	}
	for i := range buf {
		buf[i] = numberAlphabet[int(buf[i])%len(numberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), buf)
}
