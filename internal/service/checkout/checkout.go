package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"time"

	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/mailer"
	"github.com/quartier-aromes/shop/internal/metrics"
	"github.com/quartier-aromes/shop/internal/models"
	"github.com/quartier-aromes/shop/internal/mykafka"
	"github.com/quartier-aromes/shop/internal/notify"
	"github.com/quartier-aromes/shop/internal/service/coupon"
	"github.com/quartier-aromes/shop/internal/service/loyalty"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("invalid cart quantity")
	ErrProductNotFound = errors.New("product not found")
)

const (
	// Flat shipping fee applied below the free-shipping threshold.
	ShippingFee           = 30.0
	FreeShippingThreshold = 200.0

	storeWhatsApp = "212708505157"
)

type Request struct {
	CouponCode      string
	ShippingAddress string
	Phone           string
	PaymentMethod   string
	Notes           string
	WhatsAppHandoff bool
}

type Result struct {
	Order        models.Order
	Items        []models.OrderItem
	Subtotal     float64
	Discount     float64
	ShippingFee  float64
	PointsEarned int
	// CouponNotice carries the non-fatal rejection reason when a supplied
	// code could not be applied; checkout proceeded without the discount.
	CouponNotice string
	WhatsAppURL  string
}

type Service struct {
	DB       *gorm.DB
	Mailer   *mailer.Mailer
	Notifier *notify.Notifier
	Producer *mykafka.Producer
	Log      *slog.Logger
}

func shippingFor(total float64) float64 {
	if total < FreeShippingThreshold {
		return ShippingFee
	}
	return 0
}

type pricedItem struct {
	cartItem models.CartItem
	product  models.Product
}

func (s *Service) loadCart(tx *gorm.DB, userID uint) ([]pricedItem, float64, error) {
	var items []models.CartItem
	if err := tx.Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("loading cart: %w", err)
	}
	if len(items) == 0 {
		return nil, 0, ErrEmptyCart
	}

	priced := make([]pricedItem, 0, len(items))
	var subtotal float64
	for _, it := range items {
		if it.Quantity == 0 {
			return nil, 0, ErrInvalidQuantity
		}
		var p models.Product
		if err := tx.First(&p, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, ErrProductNotFound
			}
			return nil, 0, fmt.Errorf("loading product %d: %w", it.ProductID, err)
		}
		priced = append(priced, pricedItem{cartItem: it, product: p})
		subtotal += p.Price * float64(it.Quantity)
	}
	return priced, subtotal, nil
}

func couponNotice(err error) string {
	var minErr *coupon.MinPurchaseError
	switch {
	case errors.As(err, &minErr):
		return fmt.Sprintf("Achat minimum de %.2f DH requis pour ce code promo.", minErr.Required)
	case errors.Is(err, coupon.ErrNotValid):
		return "Ce code promo n'est plus valide."
	case errors.Is(err, coupon.ErrNotFound):
		return "Code promo invalide."
	default:
		return ""
	}
}

// Quote prices the current cart without settling it: subtotal, discount for
// an optional coupon code, shipping, and the resulting total.
func (s *Service) Quote(userID uint, couponCode string) (*Result, error) {
	res := &Result{}
	_, subtotal, err := s.loadCart(s.DB, userID)
	if err != nil {
		return nil, err
	}
	res.Subtotal = subtotal

	if couponCode != "" {
		_, discount, err := coupon.Evaluate(s.DB, couponCode, subtotal)
		if err != nil {
			if notice := couponNotice(err); notice != "" {
				res.CouponNotice = notice
			} else {
				return nil, err
			}
		} else {
			res.Discount = discount
		}
	}

	res.ShippingFee = shippingFor(subtotal - res.Discount)
	res.Order.TotalAmount = subtotal - res.Discount + res.ShippingFee
	return res, nil
}

// Settle converts the user's cart into an order inside one transaction:
// pricing, coupon redemption, order numbering, stock decrement, cart
// deletion and loyalty accrual commit together or not at all. Post-commit
// side effects (notification, email, event) are best effort.
func (s *Service) Settle(ctx context.Context, user models.User, req Request) (*Result, error) {
	res := &Result{}

	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		priced, subtotal, err := s.loadCart(tx, user.ID)
		if err != nil {
			return err
		}
		res.Subtotal = subtotal

		var applied *models.Coupon
		if req.CouponCode != "" {
			c, discount, err := coupon.Evaluate(tx, req.CouponCode, subtotal)
			if err != nil {
				notice := couponNotice(err)
				if notice == "" {
					return err
				}
				res.CouponNotice = notice
			} else {
				applied = c
				res.Discount = discount
			}
		}

		// The increment rides in this transaction: a failed order must
		// not consume coupon usage.
		if applied != nil {
			if err := coupon.Redeem(tx, applied); err != nil {
				if errors.Is(err, coupon.ErrNotValid) {
					// Lost a race to the usage cap; proceed without it.
					applied = nil
					res.Discount = 0
					res.CouponNotice = "Ce code promo n'est plus valide."
				} else {
					return err
				}
			}
		}

		total := subtotal - res.Discount
		res.ShippingFee = shippingFor(total)

		order := models.Order{
			UserID:          user.ID,
			Status:          "pending",
			TotalAmount:     total + res.ShippingFee,
			ShippingAddress: req.ShippingAddress,
			Phone:           req.Phone,
			PaymentMethod:   req.PaymentMethod,
			Notes:           req.Notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		order.OrderNumber = OrderNumber(time.Now(), order.ID)
		if err := tx.Model(&order).Update("order_number", order.OrderNumber).Error; err != nil {
			return fmt.Errorf("writing order number: %w", err)
		}

		res.Items = make([]models.OrderItem, 0, len(priced))
		for _, pi := range priced {
			oi := models.OrderItem{
				OrderID:   order.ID,
				ProductID: pi.cartItem.ProductID,
				Quantity:  pi.cartItem.Quantity,
				Price:     pi.product.Price,
			}
			if err := tx.Create(&oi).Error; err != nil {
				return fmt.Errorf("creating order item: %w", err)
			}
			res.Items = append(res.Items, oi)

			// Best-effort decrement; stock may go negative.
			if err := tx.Model(&models.Product{}).Where("id = ?", pi.product.ID).
				Update("stock", gorm.Expr("stock - ?", pi.cartItem.Quantity)).Error; err != nil {
				return fmt.Errorf("decrementing stock: %w", err)
			}

			if err := tx.Delete(&pi.cartItem).Error; err != nil {
				return fmt.Errorf("clearing cart item: %w", err)
			}
		}

		points := int(math.Round(total))
		if points > 0 {
			account, err := loyalty.GetOrCreate(tx, user.ID)
			if err != nil {
				return err
			}
			if err := loyalty.Earn(tx, account, points, "purchase",
				fmt.Sprintf("Achat - Commande %s", order.OrderNumber), &order.ID); err != nil {
				return err
			}
			res.PointsEarned = points
		}

		res.Order = order
		return nil
	})
	if txErr != nil {
		metrics.SettlementFailedTotal.WithLabelValues(failureReason(txErr)).Inc()
		return nil, txErr
	}

	metrics.OrdersSettledTotal.Inc()
	if res.Discount > 0 {
		metrics.CouponsAppliedTotal.Inc()
	}
	if res.PointsEarned > 0 {
		metrics.LoyaltyPointsEarnedTotal.Add(float64(res.PointsEarned))
	}

	s.afterCommit(ctx, user, res, req)
	return res, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	default:
		return "persistence"
	}
}

// afterCommit runs the best-effort side effects. None of them can undo the
// committed order; failures are logged and swallowed.
func (s *Service) afterCommit(ctx context.Context, user models.User, res *Result, req Request) {
	order := res.Order

	s.Notifier.Create(
		"order",
		"Nouvelle Commande",
		fmt.Sprintf("%s a passé une commande de %.2f DH (N°%d)", user.Username, order.TotalAmount, order.ID),
		"/admin/orders",
	)

	if s.Mailer != nil {
		s.Mailer.SendOrderConfirmation(user.Email, order.OrderNumber, order.TotalAmount)
	}

	if s.Producer != nil {
		publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		event := map[string]any{
			"type":         "order_created",
			"userID":       user.ID,
			"orderID":      order.ID,
			"order_number": order.OrderNumber,
			"total":        order.TotalAmount,
			"items":        res.Items,
		}
		if err := s.Producer.PublishEvent(publishCtx, "order_events", fmt.Sprint(user.ID), event); err != nil && s.Log != nil {
			s.Log.Error("kafka publish failed", "order", order.OrderNumber, "error", err)
		}
	}

	if req.WhatsAppHandoff {
		res.WhatsAppURL = whatsAppURL(user, res)
	}
}

// OrderNumber derives the public order reference from the creation date and
// the assigned row id: ORD-<YYYYMMDD>-<id zero-padded to 4>.
func OrderNumber(at time.Time, orderID uint) string {
	return fmt.Sprintf("ORD-%s-%04d", at.Format("20060102"), orderID)
}

func whatsAppURL(user models.User, res *Result) string {
	msg := fmt.Sprintf("Nouvelle Commande - %s\n\n", res.Order.OrderNumber)
	msg += fmt.Sprintf("Client: %s %s (%s)\n", user.FirstName, user.LastName, user.Email)
	msg += fmt.Sprintf("Téléphone: %s\n", res.Order.Phone)
	msg += fmt.Sprintf("Adresse: %s\n\n", res.Order.ShippingAddress)
	msg += "Produits:\n"
	for _, item := range res.Items {
		msg += fmt.Sprintf("- produit %d × %d à %.2f DH\n", item.ProductID, item.Quantity, item.Price)
	}
	if res.Order.Notes != "" {
		msg += fmt.Sprintf("\nNote: %s\n", res.Order.Notes)
	}
	msg += fmt.Sprintf("\nSous-total: %.2f DH\nLivraison: %.2f DH\nTotal: %.2f DH",
		res.Subtotal-res.Discount, res.ShippingFee, res.Order.TotalAmount)

	return fmt.Sprintf("https://wa.me/%s?text=%s", storeWhatsApp, url.QueryEscape(msg))
}
