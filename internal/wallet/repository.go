package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Believetim-cloud/SkyRiff/internal/metrics"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Repository is the only path through which wallet balances change.
// Every mutation runs as one transaction: lock the wallet row, validate,
// write the new balance, append the ledger row.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateWallets provisions the three wallet rows for a new user.
func (r *Repository) CreateWallets(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credit_wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO coin_wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO commission_wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return err
	}

	return tx.Commit()
}

func lockCreditWallet(ctx context.Context, tx *sqlx.Tx, userID int64) (*CreditWallet, error) {
	w := &CreditWallet{}
	err := tx.QueryRowxContext(ctx,
		`SELECT user_id, balance_credits, updated_at
		 FROM credit_wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(w)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO credit_wallets (user_id)
			 VALUES ($1)
			 RETURNING user_id, balance_credits, updated_at`,
			userID,
		).StructScan(w)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func lockCoinWallet(ctx context.Context, tx *sqlx.Tx, userID int64) (*CoinWallet, error) {
	w := &CoinWallet{}
	err := tx.QueryRowxContext(ctx,
		`SELECT user_id, balance_coins, pending_coins, updated_at
		 FROM coin_wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(w)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO coin_wallets (user_id)
			 VALUES ($1)
			 RETURNING user_id, balance_coins, pending_coins, updated_at`,
			userID,
		).StructScan(w)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func lockCommissionWallet(ctx context.Context, tx *sqlx.Tx, userID int64) (*CommissionWallet, error) {
	w := &CommissionWallet{}
	err := tx.QueryRowxContext(ctx,
		`SELECT user_id, balance_cny, pending_cny, updated_at
		 FROM commission_wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(w)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO commission_wallets (user_id)
			 VALUES ($1)
			 RETURNING user_id, balance_cny, pending_cny, updated_at`,
			userID,
		).StructScan(w)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func refColumns(ref *Ref) (*string, *int64) {
	if ref == nil {
		return nil, nil
	}
	return &ref.Type, &ref.ID
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreditCredits adds credits and appends a ledger row with the
// resulting balance snapshot. amount must be positive; the sign of the
// ledger row is determined by the operation, never by the caller.
func (r *Repository) CreditCredits(ctx context.Context, userID int64, amount int, txType string, ref *Ref, description string) (*CreditLedger, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return r.mutateCredits(ctx, userID, amount, txType, ref, description)
}

// DebitCredits removes credits. amount must be positive. Fails with
// ErrInsufficientBalance when amount exceeds the current balance;
// nothing is written in that case.
func (r *Repository) DebitCredits(ctx context.Context, userID int64, amount int, txType string, ref *Ref, description string) (*CreditLedger, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return r.mutateCredits(ctx, userID, -amount, txType, ref, description)
}

func (r *Repository) mutateCredits(ctx context.Context, userID int64, amount int, txType string, ref *Ref, description string) (*CreditLedger, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := lockCreditWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	newBalance := w.BalanceCredits + amount
	if newBalance < 0 {
		return nil, ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE credit_wallets
		 SET balance_credits = $1, updated_at = NOW()
		 WHERE user_id = $2`,
		newBalance, userID,
	); err != nil {
		return nil, err
	}

	refType, refID := refColumns(ref)
	entry := &CreditLedger{}
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO credit_ledgers (user_id, type, amount, balance_after, ref_type, ref_id, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING ledger_id, user_id, type, amount, balance_after, ref_type, ref_id, description, created_at`,
		userID, txType, amount, newBalance, refType, refID, optional(description),
	).StructScan(entry)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordLedgerMutation("credits", txType)
	return entry, nil
}

// CreditCoinsPending adds frozen creator income to the pending
// sub-balance. The ledger row carries status=pending and the unlock
// timestamp; balance_after snapshots available+pending.
func (r *Repository) CreditCoinsPending(ctx context.Context, userID int64, amount decimal.Decimal, sourceUserID *int64, txType string, ref *Ref, unlockAt time.Time, description string) (*CoinLedger, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := lockCoinWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	newPending := w.PendingCoins.Add(amount)
	if _, err := tx.ExecContext(ctx,
		`UPDATE coin_wallets
		 SET pending_coins = $1, updated_at = NOW()
		 WHERE user_id = $2`,
		newPending, userID,
	); err != nil {
		return nil, err
	}

	balanceAfter := w.BalanceCoins.Add(newPending)
	refType, refID := refColumns(ref)
	entry := &CoinLedger{}
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO coin_ledgers (user_id, type, amount_coins, balance_after, source_user_id, ref_type, ref_id, status, unlock_at, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9)
		 RETURNING ledger_id, user_id, type, amount_coins, balance_after, source_user_id, ref_type, ref_id, status, unlock_at, description, created_at`,
		userID, txType, amount, balanceAfter, sourceUserID, refType, refID, unlockAt, optional(description),
	).StructScan(entry)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordLedgerMutation("coins", txType)
	return entry, nil
}

// DebitCoinsAvailable removes settled coins, e.g. for a withdrawal.
// amount must be positive.
func (r *Repository) DebitCoinsAvailable(ctx context.Context, userID int64, amount decimal.Decimal, txType string, ref *Ref, description string) (*CoinLedger, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return r.mutateCoinsAvailable(ctx, userID, amount.Neg(), txType, ref, description)
}

// CreditCoinsAvailable adds directly spendable coins, e.g. the
// compensating entry when a withdrawal is rejected. amount must be
// positive.
func (r *Repository) CreditCoinsAvailable(ctx context.Context, userID int64, amount decimal.Decimal, txType string, ref *Ref, description string) (*CoinLedger, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return r.mutateCoinsAvailable(ctx, userID, amount, txType, ref, description)
}

func (r *Repository) mutateCoinsAvailable(ctx context.Context, userID int64, amount decimal.Decimal, txType string, ref *Ref, description string) (*CoinLedger, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := lockCoinWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	newBalance := w.BalanceCoins.Add(amount)
	if newBalance.IsNegative() {
		return nil, ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE coin_wallets
		 SET balance_coins = $1, updated_at = NOW()
		 WHERE user_id = $2`,
		newBalance, userID,
	); err != nil {
		return nil, err
	}

	balanceAfter := newBalance.Add(w.PendingCoins)
	refType, refID := refColumns(ref)
	entry := &CoinLedger{}
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO coin_ledgers (user_id, type, amount_coins, balance_after, ref_type, ref_id, status, description)
		 VALUES ($1, $2, $3, $4, $5, $6, 'settled', $7)
		 RETURNING ledger_id, user_id, type, amount_coins, balance_after, source_user_id, ref_type, ref_id, status, unlock_at, description, created_at`,
		userID, txType, amount, balanceAfter, refType, refID, optional(description),
	).StructScan(entry)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordLedgerMutation("coins", txType)
	return entry, nil
}

// CreditCommissionPending adds frozen promoter commission.
func (r *Repository) CreditCommissionPending(ctx context.Context, userID int64, amount decimal.Decimal, sourceUserID *int64, txType string, unlockAt time.Time, description string) (*CommissionLedger, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := lockCommissionWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	newPending := w.PendingCNY.Add(amount)
	if _, err := tx.ExecContext(ctx,
		`UPDATE commission_wallets
		 SET pending_cny = $1, updated_at = NOW()
		 WHERE user_id = $2`,
		newPending, userID,
	); err != nil {
		return nil, err
	}

	balanceAfter := w.BalanceCNY.Add(newPending)
	entry := &CommissionLedger{}
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO commission_ledgers (user_id, type, amount_cny, balance_after, source_user_id, status, unlock_at, description)
		 VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7)
		 RETURNING ledger_id, user_id, type, amount_cny, balance_after, source_user_id, status, unlock_at, description, created_at`,
		userID, txType, amount, balanceAfter, sourceUserID, unlockAt, optional(description),
	).StructScan(entry)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordLedgerMutation("commission", txType)
	return entry, nil
}

// SettleUnlocked moves frozen income whose unlock time has elapsed from
// pending to available, for both coin and commission wallets. The move
// is balance-neutral: ledger rows flip to settled, no new entries are
// appended. Returns the number of settled ledger rows.
func (r *Repository) SettleUnlocked(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE coin_wallets w
		 SET balance_coins = w.balance_coins + d.total,
		     pending_coins = w.pending_coins - d.total,
		     updated_at = NOW()
		 FROM (
		     SELECT user_id, SUM(amount_coins) AS total
		     FROM coin_ledgers
		     WHERE status = 'pending' AND unlock_at <= $1
		     GROUP BY user_id
		 ) d
		 WHERE w.user_id = d.user_id`,
		now,
	); err != nil {
		return 0, err
	}

	coinRes, err := tx.ExecContext(ctx,
		`UPDATE coin_ledgers
		 SET status = 'settled'
		 WHERE status = 'pending' AND unlock_at <= $1`,
		now,
	)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE commission_wallets w
		 SET balance_cny = w.balance_cny + d.total,
		     pending_cny = w.pending_cny - d.total,
		     updated_at = NOW()
		 FROM (
		     SELECT user_id, SUM(amount_cny) AS total
		     FROM commission_ledgers
		     WHERE status = 'pending' AND unlock_at <= $1
		     GROUP BY user_id
		 ) d
		 WHERE w.user_id = d.user_id`,
		now,
	); err != nil {
		return 0, err
	}

	commissionRes, err := tx.ExecContext(ctx,
		`UPDATE commission_ledgers
		 SET status = 'settled'
		 WHERE status = 'pending' AND unlock_at <= $1`,
		now,
	)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	coinRows, _ := coinRes.RowsAffected()
	commissionRows, _ := commissionRes.RowsAffected()
	total := coinRows + commissionRows
	if total > 0 {
		metrics.SettledLedgerRowsTotal.Add(float64(total))
	}
	return total, nil
}

// GetBalances returns the three-wallet snapshot. Missing wallet rows
// read as zero.
func (r *Repository) GetBalances(ctx context.Context, userID int64) (*Balances, error) {
	b := &Balances{
		CoinsAvailable:      decimal.Zero,
		CoinsPending:        decimal.Zero,
		CommissionAvailable: decimal.Zero,
		CommissionPending:   decimal.Zero,
	}

	var credit CreditWallet
	err := r.db.GetContext(ctx, &credit, `SELECT * FROM credit_wallets WHERE user_id = $1`, userID)
	if err == nil {
		b.Credits = credit.BalanceCredits
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var coin CoinWallet
	err = r.db.GetContext(ctx, &coin, `SELECT * FROM coin_wallets WHERE user_id = $1`, userID)
	if err == nil {
		b.CoinsAvailable = coin.BalanceCoins
		b.CoinsPending = coin.PendingCoins
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var commission CommissionWallet
	err = r.db.GetContext(ctx, &commission, `SELECT * FROM commission_wallets WHERE user_id = $1`, userID)
	if err == nil {
		b.CommissionAvailable = commission.BalanceCNY
		b.CommissionPending = commission.PendingCNY
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return b, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// GetCreditLedgers pages the credit ledger newest-first. cursor is the
// last seen ledger_id; zero means from the top.
func (r *Repository) GetCreditLedgers(ctx context.Context, userID int64, limit int, cursor int64) ([]CreditLedger, error) {
	limit = clampLimit(limit)

	entries := []CreditLedger{}
	var err error
	if cursor > 0 {
		err = r.db.SelectContext(ctx, &entries,
			`SELECT * FROM credit_ledgers
			 WHERE user_id = $1 AND ledger_id < $2
			 ORDER BY ledger_id DESC
			 LIMIT $3`,
			userID, cursor, limit)
	} else {
		err = r.db.SelectContext(ctx, &entries,
			`SELECT * FROM credit_ledgers
			 WHERE user_id = $1
			 ORDER BY ledger_id DESC
			 LIMIT $2`,
			userID, limit)
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) GetCoinLedgers(ctx context.Context, userID int64, limit int, cursor int64) ([]CoinLedger, error) {
	limit = clampLimit(limit)

	entries := []CoinLedger{}
	var err error
	if cursor > 0 {
		err = r.db.SelectContext(ctx, &entries,
			`SELECT * FROM coin_ledgers
			 WHERE user_id = $1 AND ledger_id < $2
			 ORDER BY ledger_id DESC
			 LIMIT $3`,
			userID, cursor, limit)
	} else {
		err = r.db.SelectContext(ctx, &entries,
			`SELECT * FROM coin_ledgers
			 WHERE user_id = $1
			 ORDER BY ledger_id DESC
			 LIMIT $2`,
			userID, limit)
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) GetCommissionLedgers(ctx context.Context, userID int64, limit int, cursor int64) ([]CommissionLedger, error) {
	limit = clampLimit(limit)

	entries := []CommissionLedger{}
	var err error
	if cursor > 0 {
		err = r.db.SelectContext(ctx, &entries,
			`SELECT * FROM commission_ledgers
			 WHERE user_id = $1 AND ledger_id < $2
			 ORDER BY ledger_id DESC
			 LIMIT $3`,
			userID, cursor, limit)
	} else {
		err = r.db.SelectContext(ctx, &entries,
			`SELECT * FROM commission_ledgers
			 WHERE user_id = $1
			 ORDER BY ledger_id DESC
			 LIMIT $2`,
			userID, limit)
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}
