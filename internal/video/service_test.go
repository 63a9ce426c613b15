package video

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Believetim-cloud/SkyRiff/internal/config"
	"github.com/Believetim-cloud/SkyRiff/internal/dyuapi"
	"github.com/Believetim-cloud/SkyRiff/internal/logger"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

// Mock repositories
type MockStore struct{ mock.Mock }
type MockLedger struct{ mock.Mock }
type MockVendor struct{ mock.Mock }

func (m *MockStore) Create(ctx context.Context, asset *Asset) error {
	return m.Called(ctx, asset).Error(0)
}

func (m *MockStore) GetByID(ctx context.Context, videoID, userID int64) (*Asset, error) {
	args := m.Called(ctx, videoID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Asset), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, userID int64, limit int, cursor int64) ([]Asset, error) {
	args := m.Called(ctx, userID, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Asset), args.Error(1)
}

func (m *MockStore) SetLocalPlayURL(ctx context.Context, videoID int64, localURL string) error {
	return m.Called(ctx, videoID, localURL).Error(0)
}

func (m *MockStore) IncrementDownloadCount(ctx context.Context, videoID int64) error {
	return m.Called(ctx, videoID).Error(0)
}

func (m *MockLedger) CreateWallets(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockLedger) CreditCredits(ctx context.Context, userID int64, amount int, txType string, ref *wallet.Ref, description string) (*wallet.CreditLedger, error) {
	args := m.Called(ctx, userID, amount, txType, ref, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.CreditLedger), args.Error(1)
}

func (m *MockLedger) DebitCredits(ctx context.Context, userID int64, amount int, txType string, ref *wallet.Ref, description string) (*wallet.CreditLedger, error) {
	args := m.Called(ctx, userID, amount, txType, ref, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.CreditLedger), args.Error(1)
}

func (m *MockLedger) CreditCoinsPending(ctx context.Context, userID int64, amount decimal.Decimal, sourceUserID *int64, txType string, ref *wallet.Ref, unlockAt time.Time, description string) (*wallet.CoinLedger, error) {
	args := m.Called(ctx, userID, amount, sourceUserID, txType, ref, unlockAt, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.CoinLedger), args.Error(1)
}

func (m *MockLedger) DebitCoinsAvailable(ctx context.Context, userID int64, amount decimal.Decimal, txType string, ref *wallet.Ref, description string) (*wallet.CoinLedger, error) {
	args := m.Called(ctx, userID, amount, txType, ref, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.CoinLedger), args.Error(1)
}

func (m *MockLedger) CreditCoinsAvailable(ctx context.Context, userID int64, amount decimal.Decimal, txType string, ref *wallet.Ref, description string) (*wallet.CoinLedger, error) {
	args := m.Called(ctx, userID, amount, txType, ref, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.CoinLedger), args.Error(1)
}

func (m *MockLedger) CreditCommissionPending(ctx context.Context, userID int64, amount decimal.Decimal, sourceUserID *int64, txType string, unlockAt time.Time, description string) (*wallet.CommissionLedger, error) {
	args := m.Called(ctx, userID, amount, sourceUserID, txType, unlockAt, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.CommissionLedger), args.Error(1)
}

func (m *MockLedger) SettleUnlocked(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) GetBalances(ctx context.Context, userID int64) (*wallet.Balances, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Balances), args.Error(1)
}

func (m *MockLedger) GetCreditLedgers(ctx context.Context, userID int64, limit int, cursor int64) ([]wallet.CreditLedger, error) {
	args := m.Called(ctx, userID, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.CreditLedger), args.Error(1)
}

func (m *MockLedger) GetCoinLedgers(ctx context.Context, userID int64, limit int, cursor int64) ([]wallet.CoinLedger, error) {
	args := m.Called(ctx, userID, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.CoinLedger), args.Error(1)
}

func (m *MockLedger) GetCommissionLedgers(ctx context.Context, userID int64, limit int, cursor int64) ([]wallet.CommissionLedger, error) {
	args := m.Called(ctx, userID, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.CommissionLedger), args.Error(1)
}

func (m *MockVendor) CreateTextToVideo(ctx context.Context, req dyuapi.GenerationRequest) (*dyuapi.TaskResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dyuapi.TaskResult), args.Error(1)
}

func (m *MockVendor) CreateImageToVideo(ctx context.Context, req dyuapi.GenerationRequest) (*dyuapi.TaskResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dyuapi.TaskResult), args.Error(1)
}

func (m *MockVendor) GetTaskStatus(ctx context.Context, vendorTaskID string) (*dyuapi.TaskResult, error) {
	args := m.Called(ctx, vendorTaskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dyuapi.TaskResult), args.Error(1)
}

func (m *MockVendor) GetVideoDetail(ctx context.Context, vendorVideoID string) (*dyuapi.VideoResult, error) {
	args := m.Called(ctx, vendorVideoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dyuapi.VideoResult), args.Error(1)
}

func (m *MockVendor) GetDownloadURL(ctx context.Context, vendorVideoID string, watermark bool) (string, error) {
	args := m.Called(ctx, vendorVideoID, watermark)
	return args.String(0), args.Error(1)
}

func (m *MockVendor) CancelTask(ctx context.Context, vendorTaskID string) error {
	return m.Called(ctx, vendorTaskID).Error(0)
}

func strPtr(s string) *string { return &s }

func TestDownloadNoWatermark_Success(t *testing.T) {
	store := new(MockStore)
	ledger := new(MockLedger)
	vendor := new(MockVendor)
	svc := NewService(store, ledger, vendor, config.DefaultTariff())
	ctx := context.Background()

	asset := &Asset{VideoID: 7, UserID: 1, VendorVideoID: strPtr("vid-7")}
	store.On("GetByID", ctx, int64(7), int64(1)).Return(asset, nil)
	ledger.On("DebitCredits", ctx, int64(1), 6, wallet.TypeDownloadSpend, &wallet.Ref{Type: wallet.RefVideo, ID: 7}, mock.Anything).
		Return(&wallet.CreditLedger{LedgerID: 1}, nil)
	vendor.On("GetDownloadURL", ctx, "vid-7", false).Return("https://signed.example.com/v.mp4", nil)
	store.On("IncrementDownloadCount", ctx, int64(7)).Return(nil)

	url, err := svc.DownloadNoWatermark(ctx, 7, 1)

	assert.NoError(t, err)
	assert.Equal(t, "https://signed.example.com/v.mp4", url)
	store.AssertExpectations(t)
	ledger.AssertExpectations(t)
	vendor.AssertExpectations(t)
}

func TestDownloadNoWatermark_InsufficientCredits(t *testing.T) {
	store := new(MockStore)
	ledger := new(MockLedger)
	vendor := new(MockVendor)
	svc := NewService(store, ledger, vendor, config.DefaultTariff())
	ctx := context.Background()

	asset := &Asset{VideoID: 7, UserID: 1, VendorVideoID: strPtr("vid-7")}
	store.On("GetByID", ctx, int64(7), int64(1)).Return(asset, nil)
	ledger.On("DebitCredits", ctx, int64(1), 6, wallet.TypeDownloadSpend, mock.Anything, mock.Anything).
		Return(nil, wallet.ErrInsufficientBalance)

	_, err := svc.DownloadNoWatermark(ctx, 7, 1)

	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	vendor.AssertNotCalled(t, "GetDownloadURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestDownloadNoWatermark_VendorFailureRefunds(t *testing.T) {
	store := new(MockStore)
	ledger := new(MockLedger)
	vendor := new(MockVendor)
	svc := NewService(store, ledger, vendor, config.DefaultTariff())
	ctx := context.Background()

	asset := &Asset{VideoID: 7, UserID: 1, VendorVideoID: strPtr("vid-7")}
	store.On("GetByID", ctx, int64(7), int64(1)).Return(asset, nil)
	ledger.On("DebitCredits", ctx, int64(1), 6, wallet.TypeDownloadSpend, mock.Anything, mock.Anything).
		Return(&wallet.CreditLedger{LedgerID: 1}, nil)
	vendor.On("GetDownloadURL", ctx, "vid-7", false).Return("", errors.New("vendor down"))
	ledger.On("CreditCredits", ctx, int64(1), 6, wallet.TypeGenRefund, mock.Anything, mock.Anything).
		Return(&wallet.CreditLedger{LedgerID: 2}, nil)

	_, err := svc.DownloadNoWatermark(ctx, 7, 1)

	assert.Error(t, err)
	ledger.AssertExpectations(t)
	store.AssertNotCalled(t, "IncrementDownloadCount", mock.Anything, mock.Anything)
}

func TestDownloadNoWatermark_MissingVendorID(t *testing.T) {
	store := new(MockStore)
	ledger := new(MockLedger)
	vendor := new(MockVendor)
	svc := NewService(store, ledger, vendor, config.DefaultTariff())
	ctx := context.Background()

	store.On("GetByID", ctx, int64(9), int64(1)).Return(&Asset{VideoID: 9, UserID: 1}, nil)

	_, err := svc.DownloadNoWatermark(ctx, 9, 1)

	assert.ErrorIs(t, err, ErrNotFound)
	ledger.AssertNotCalled(t, "DebitCredits", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
