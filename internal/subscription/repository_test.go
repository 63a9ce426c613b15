package subscription

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func setupSubscriptionMock(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func subscriptionColumns() []string {
	return []string{"subscription_id", "user_id", "payment_id", "status", "start_at", "end_at", "created_at"}
}

func TestCreate_ReturnsActiveRow(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	paymentID := int64(71)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO subscriptions")).
		WithArgs(int64(1), &paymentID, start, end).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()).
			AddRow(int64(11), int64(1), int64(71), StatusActive, start, end, start))

	sub, err := repo.Create(context.Background(), 1, &paymentID, start, end)

	require.NoError(t, err)
	require.Equal(t, int64(11), sub.SubscriptionID)
	require.Equal(t, StatusActive, sub.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActive_NoUnexpiredRow(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM subscriptions")).
		WithArgs(int64(1), now).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()))

	_, err := repo.GetActive(context.Background(), 1, now)

	require.ErrorIs(t, err, ErrNoActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateClaim_UniqueViolationMapsToAlreadyClaimed(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO daily_reward_claims")).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	claim := &DailyRewardClaim{
		UserID:         1,
		SubscriptionID: 11,
		ClaimDate:      time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		CreditsAmount:  30,
	}
	err := repo.CreateClaim(context.Background(), claim)

	require.ErrorIs(t, err, ErrAlreadyClaimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateClaim_Success(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO daily_reward_claims")).
		WithArgs(int64(1), int64(11), day, 30).
		WillReturnRows(sqlmock.NewRows([]string{"claim_id", "created_at"}).AddRow(int64(91), time.Now()))

	claim := &DailyRewardClaim{UserID: 1, SubscriptionID: 11, ClaimDate: day, CreditsAmount: 30}
	err := repo.CreateClaim(context.Background(), claim)

	require.NoError(t, err)
	require.Equal(t, int64(91), claim.ClaimID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtend_PushesEndDate(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newEnd := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE subscriptions")).
		WithArgs(newEnd, int64(11)).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()).
			AddRow(int64(11), int64(1), nil, StatusActive, start, newEnd, start))

	sub, err := repo.Extend(context.Background(), 11, newEnd)

	require.NoError(t, err)
	require.Equal(t, newEnd, sub.EndAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHasClaim(t *testing.T) {
	repo, mock, close := setupSubscriptionMock(t)
	defer close()

	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(int64(1), day).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	claimed, err := repo.HasClaim(context.Background(), 1, day)

	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}
