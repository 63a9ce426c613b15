package withdrawal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Believetim-cloud/SkyRiff/internal/config"
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

func (m *MockStore) Create(ctx context.Context, w *Withdrawal) error {
	args := m.Called(ctx, w)
	if args.Error(0) == nil {
		w.WithdrawalID = 61
		w.Status = StatusApplied
	}
	return args.Error(0)
}

func (m *MockStore) GetByID(ctx context.Context, withdrawalID int64) (*Withdrawal, error) {
	args := m.Called(ctx, withdrawalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Withdrawal), args.Error(1)
}

func (m *MockStore) ListByUser(ctx context.Context, userID int64, limit int, cursor int64) ([]Withdrawal, error) {
	args := m.Called(ctx, userID, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Withdrawal), args.Error(1)
}

func (m *MockStore) ListByStatus(ctx context.Context, status string, limit int, cursor int64) ([]Withdrawal, error) {
	args := m.Called(ctx, status, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Withdrawal), args.Error(1)
}

func (m *MockStore) Transition(ctx context.Context, withdrawalID int64, status string, rejectReason, adminNote *string) (bool, error) {
	args := m.Called(ctx, withdrawalID, status, rejectReason, adminNote)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) MarkPaid(ctx context.Context, withdrawalID int64, adminNote *string) (bool, error) {
	args := m.Called(ctx, withdrawalID, adminNote)
	return args.Bool(0), args.Error(1)
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

func newTestService() (*Service, *MockStore, *MockLedger) {
	store := new(MockStore)
	ledger := new(MockLedger)
	return NewService(store, ledger, config.DefaultTariff()), store, ledger
}

func decimalEq(want string) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.RequireFromString(want))
	})
}

// Below-minimum requests are rejected before any ledger mutation.
func TestCreate_BelowMinimum(t *testing.T) {
	svc, store, ledger := newTestService()

	_, err := svc.Create(context.Background(), 1, CreateRequest{
		AmountCNY: decimal.NewFromInt(50), Method: "alipay", AccountInfo: "acct",
	})

	assert.ErrorIs(t, err, ErrBelowMinimum)
	ledger.AssertNotCalled(t, "DebitCoinsAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_DebitsAvailableOneToOne(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	ledger.On("DebitCoinsAvailable", ctx, int64(1), decimalEq("150"), wallet.TypeWithdraw, (*wallet.Ref)(nil), mock.Anything).
		Return(&wallet.CoinLedger{LedgerID: 1}, nil)
	store.On("Create", ctx, mock.MatchedBy(func(w *Withdrawal) bool {
		return w.AmountCNY.Equal(decimal.NewFromInt(150)) && w.AmountCoins.Equal(decimal.NewFromInt(150))
	})).Return(nil)

	w, err := svc.Create(ctx, 1, CreateRequest{
		AmountCNY: decimal.NewFromInt(150), Method: "alipay", AccountInfo: "acct",
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusApplied, w.Status)
	ledger.AssertExpectations(t)
}

func TestCreate_InsufficientAvailable(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	ledger.On("DebitCoinsAvailable", ctx, int64(1), mock.Anything, wallet.TypeWithdraw, mock.Anything, mock.Anything).
		Return(nil, wallet.ErrInsufficientBalance)

	_, err := svc.Create(ctx, 1, CreateRequest{
		AmountCNY: decimal.NewFromInt(200), Method: "alipay", AccountInfo: "acct",
	})

	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReject_RefundsExactlyOnce(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	applied := &Withdrawal{WithdrawalID: 61, UserID: 1, AmountCoins: decimal.NewFromInt(150), Status: StatusApplied}
	rejected := &Withdrawal{WithdrawalID: 61, UserID: 1, AmountCoins: decimal.NewFromInt(150), Status: StatusRejected}

	store.On("GetByID", ctx, int64(61)).Return(applied, nil).Once()
	store.On("Transition", ctx, int64(61), StatusRejected, mock.Anything, mock.Anything).Return(true, nil)
	ledger.On("CreditCoinsAvailable", ctx, int64(1), decimalEq("150"), wallet.TypeWithdrawRefund,
		&wallet.Ref{Type: wallet.RefWithdrawal, ID: 61}, mock.Anything).
		Return(&wallet.CoinLedger{LedgerID: 2}, nil)
	store.On("GetByID", ctx, int64(61)).Return(rejected, nil).Once()

	w, err := svc.Reject(ctx, 61, "invalid account", nil)

	assert.NoError(t, err)
	assert.Equal(t, StatusRejected, w.Status)
	ledger.AssertExpectations(t)
}

func TestReject_AlreadyProcessedSkipsRefund(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	processed := &Withdrawal{WithdrawalID: 61, UserID: 1, AmountCoins: decimal.NewFromInt(150), Status: StatusPaid}
	store.On("GetByID", ctx, int64(61)).Return(processed, nil)
	store.On("Transition", ctx, int64(61), StatusRejected, mock.Anything, mock.Anything).Return(false, nil)

	_, err := svc.Reject(ctx, 61, "too late", nil)

	assert.ErrorIs(t, err, ErrNotProcessable)
	ledger.AssertNotCalled(t, "CreditCoinsAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_RefundsAndTransitions(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	applied := &Withdrawal{WithdrawalID: 61, UserID: 1, AmountCoins: decimal.NewFromInt(150), Status: StatusApplied}
	cancelled := &Withdrawal{WithdrawalID: 61, UserID: 1, AmountCoins: decimal.NewFromInt(150), Status: StatusCancelled}

	store.On("GetByID", ctx, int64(61)).Return(applied, nil).Once()
	store.On("Transition", ctx, int64(61), StatusCancelled, (*string)(nil), (*string)(nil)).Return(true, nil)
	ledger.On("CreditCoinsAvailable", ctx, int64(1), decimalEq("150"), wallet.TypeWithdrawRefund,
		&wallet.Ref{Type: wallet.RefWithdrawal, ID: 61}, mock.Anything).
		Return(&wallet.CoinLedger{LedgerID: 3}, nil)
	store.On("GetByID", ctx, int64(61)).Return(cancelled, nil).Once()

	w, err := svc.Cancel(ctx, 61, 1)

	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, w.Status)
	ledger.AssertExpectations(t)
}

func TestCancel_WrongOwnerHidden(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	other := &Withdrawal{WithdrawalID: 61, UserID: 2, AmountCoins: decimal.NewFromInt(150), Status: StatusApplied}
	store.On("GetByID", ctx, int64(61)).Return(other, nil)

	_, err := svc.Cancel(ctx, 61, 1)

	assert.ErrorIs(t, err, ErrNotFound)
	store.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ledger.AssertNotCalled(t, "CreditCoinsAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_AlreadyProcessedSkipsRefund(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	processed := &Withdrawal{WithdrawalID: 61, UserID: 1, AmountCoins: decimal.NewFromInt(150), Status: StatusApproved}
	store.On("GetByID", ctx, int64(61)).Return(processed, nil)
	store.On("Transition", ctx, int64(61), StatusCancelled, (*string)(nil), (*string)(nil)).Return(false, nil)

	_, err := svc.Cancel(ctx, 61, 1)

	assert.ErrorIs(t, err, ErrNotProcessable)
	ledger.AssertNotCalled(t, "CreditCoinsAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApprove_NoLedgerEffect(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	approved := &Withdrawal{WithdrawalID: 61, UserID: 1, Status: StatusApproved}
	store.On("Transition", ctx, int64(61), StatusApproved, (*string)(nil), (*string)(nil)).Return(true, nil)
	store.On("GetByID", ctx, int64(61)).Return(approved, nil)

	w, err := svc.Approve(ctx, 61, nil)

	assert.NoError(t, err)
	assert.Equal(t, StatusApproved, w.Status)
	ledger.AssertNotCalled(t, "CreditCoinsAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ledger.AssertNotCalled(t, "DebitCoinsAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGet_WrongOwnerHidden(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	other := &Withdrawal{WithdrawalID: 61, UserID: 2, Status: StatusApplied}
	store.On("GetByID", ctx, int64(61)).Return(other, nil)

	_, err := svc.Get(ctx, 61, 1)

	assert.ErrorIs(t, err, ErrNotFound)
}
