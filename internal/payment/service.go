package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Believetim-cloud/SkyRiff/internal/config"
	"github.com/Believetim-cloud/SkyRiff/internal/logger"
	"github.com/Believetim-cloud/SkyRiff/internal/metrics"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrNotPayable      = errors.New("payment is not in pending state")
)

type Service struct {
	repo     Store
	ledger   wallet.Ledger
	products []Product

	now func() time.Time
}

func NewService(repo Store, ledger wallet.Ledger, tariff config.Tariff) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		products: catalog(tariff),
		now:      time.Now,
	}
}

// catalog builds the fixed product list from the tariff: one recharge
// product per tier plus the monthly card.
func catalog(t config.Tariff) []Product {
	products := make([]Product, 0, len(t.RechargeTiers)+1)
	for _, tier := range t.RechargeTiers {
		products = append(products, Product{
			ProductID:    tier.ProductID,
			Name:         fmt.Sprintf("%d credits pack", tier.Credits+tier.BonusCredits),
			ProductType:  ProductTypeRecharge,
			PriceYuan:    tier.PriceYuan,
			Credits:      tier.Credits,
			BonusCredits: tier.BonusCredits,
		})
	}
	products = append(products, Product{
		ProductID:    SubscriptionProductID,
		Name:         "Monthly card",
		ProductType:  ProductTypeSubscription,
		PriceYuan:    t.SubscriptionPriceYuan,
		DurationDays: t.SubscriptionDays,
		DailyCredits: t.DailyCredits,
	})
	return products
}

// Products returns the catalog, optionally filtered by product type.
func (s *Service) Products(productType string) []Product {
	if productType == "" {
		return s.products
	}
	filtered := []Product{}
	for _, p := range s.products {
		if p.ProductType == productType {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func (s *Service) Product(productID int) (Product, bool) {
	for _, p := range s.products {
		if p.ProductID == productID {
			return p, true
		}
	}
	return Product{}, false
}

// CreatePayment opens a pending payment order for a catalog product.
// The mock channel gets its pay params filled in immediately.
func (s *Service) CreatePayment(ctx context.Context, userID int64, productID int, channel string) (*Payment, error) {
	product, ok := s.Product(productID)
	if !ok {
		return nil, ErrProductNotFound
	}

	p := &Payment{
		UserID:     userID,
		ProductID:  productID,
		AmountCNY:  product.PriceYuan,
		PayChannel: channel,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	if channel == ChannelMock {
		params := fmt.Sprintf(`{"mock_payment_id": %d}`, p.PaymentID)
		if err := s.repo.SetPayParams(ctx, p.PaymentID, params); err != nil {
			return nil, err
		}
		p.PayParams = &params
	}

	logger.Infof("Payment %d created by user %d for product %d (%s yuan)", p.PaymentID, userID, productID, p.AmountCNY)
	return p, nil
}

// ProcessCallback settles a pending payment. On success a recharge
// product credits its total credits to the payer; the subscription
// product only marks the order paid and leaves the grant to the
// subscription engine. The status guard in the repository makes a
// duplicate callback fail with ErrNotPayable instead of paying twice.
func (s *Service) ProcessCallback(ctx context.Context, paymentID int64, success bool) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if !success {
		claimed, err := s.repo.MarkFailed(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, ErrNotPayable
		}
		p.Status = StatusFailed
		metrics.RecordPayment(StatusFailed)
		return p, nil
	}

	claimed, err := s.repo.MarkPaid(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrNotPayable
	}

	if product, ok := s.Product(p.ProductID); ok && product.ProductType == ProductTypeRecharge {
		total := product.Credits + product.BonusCredits
		desc := fmt.Sprintf("Recharge %s: %d credits", product.Name, total)
		ref := &wallet.Ref{Type: wallet.RefPayment, ID: paymentID}
		if _, err := s.ledger.CreditCredits(ctx, p.UserID, total, wallet.TypeRecharge, ref, desc); err != nil {
			logger.Errorf("CRITICAL: payment %d settled but credit grant for user %d failed: %v", paymentID, p.UserID, err)
			return nil, err
		}
	}

	now := s.now()
	p.Status = StatusSuccess
	p.PaidAt = &now
	metrics.RecordPayment(StatusSuccess)
	logger.Infof("Payment %d settled for user %d", paymentID, p.UserID)
	return p, nil
}

// Purchase runs the create-and-pay flow in one step. Only the mock
// channel settles inline; other channels stay pending until their
// callback arrives.
func (s *Service) Purchase(ctx context.Context, userID int64, productID int, channel string) (*Payment, error) {
	p, err := s.CreatePayment(ctx, userID, productID, channel)
	if err != nil {
		return nil, err
	}
	if channel != ChannelMock {
		return p, nil
	}
	return s.ProcessCallback(ctx, p.PaymentID, true)
}

func (s *Service) Get(ctx context.Context, paymentID, userID int64) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64, limit int, cursor int64) ([]Payment, error) {
	return s.repo.ListByUser(ctx, userID, limit, cursor)
}
