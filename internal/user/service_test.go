package user

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Believetim-cloud/SkyRiff/internal/auth"
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

func (m *MockStore) Create(ctx context.Context, nickname, email, passwordHash, role string) (*User, error) {
	args := m.Called(ctx, nickname, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, userID int64) (*User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockStore) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
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

const testSecret = "test-secret"

func newTestService() (*Service, *MockStore, *MockLedger) {
	store := new(MockStore)
	ledger := new(MockLedger)
	return NewService(store, ledger, testSecret), store, ledger
}

func TestRegister_CreatesUserAndWallets(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	store.On("EmailExists", ctx, "alice@example.com").Return(false, nil)
	store.On("Create", ctx, "alice", "alice@example.com", mock.Anything, RoleMember).
		Return(&User{UserID: 1, Nickname: "alice", Email: "alice@example.com", Role: RoleMember}, nil)
	ledger.On("CreateWallets", ctx, int64(1)).Return(nil)

	u, access, refresh, err := svc.Register(ctx, RegisterRequest{
		Nickname: "alice", Email: "alice@example.com", Password: "password123",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), u.UserID)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	ledger.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	store.On("EmailExists", ctx, "alice@example.com").Return(true, nil)

	_, _, _, err := svc.Register(ctx, RegisterRequest{
		Nickname: "alice", Email: "alice@example.com", Password: "password123",
	})

	assert.ErrorIs(t, err, ErrEmailExists)
	ledger.AssertNotCalled(t, "CreateWallets", mock.Anything, mock.Anything)
}

func TestRegister_WalletBootstrapFailureSurfaces(t *testing.T) {
	svc, store, ledger := newTestService()
	ctx := context.Background()

	store.On("EmailExists", ctx, "alice@example.com").Return(false, nil)
	store.On("Create", ctx, "alice", "alice@example.com", mock.Anything, RoleMember).
		Return(&User{UserID: 1, Role: RoleMember}, nil)
	ledger.On("CreateWallets", ctx, int64(1)).Return(errors.New("db down"))

	_, _, _, err := svc.Register(ctx, RegisterRequest{
		Nickname: "alice", Email: "alice@example.com", Password: "password123",
	})

	assert.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	hash, err := auth.HashPassword("password123")
	assert.NoError(t, err)
	store.On("FindByEmail", ctx, "alice@example.com").
		Return(&User{UserID: 1, Email: "alice@example.com", PasswordHash: hash, Role: RoleMember}, nil)

	u, access, _, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "password123"})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), u.UserID)
	assert.NotEmpty(t, access)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	hash, err := auth.HashPassword("password123")
	assert.NoError(t, err)
	store.On("FindByEmail", ctx, "alice@example.com").
		Return(&User{UserID: 1, PasswordHash: hash}, nil)

	_, _, _, err = svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrong"})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmailIndistinguishable(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	store.On("FindByEmail", ctx, "ghost@example.com").Return(nil, ErrNotFound)

	_, _, _, err := svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "password123"})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, refresh, err := auth.GenerateTokens(1, RoleMember, testSecret, testSecret)
	assert.NoError(t, err)
	store.On("FindByID", ctx, int64(1)).Return(&User{UserID: 1, Role: RoleMember}, nil)

	newAccess, u, err := svc.RefreshToken(ctx, refresh)

	assert.NoError(t, err)
	assert.NotEmpty(t, newAccess)
	assert.Equal(t, int64(1), u.UserID)
}
