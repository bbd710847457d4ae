package services

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"bankdesk/config"
	"bankdesk/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *AccountService {
	t.Helper()

	cfg := &config.Config{}
	cfg.DB.Driver = config.DriverSQLite
	cfg.DB.Path = filepath.Join(t.TempDir(), "bank.db")

	db, err := database.NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewAccountService(db.GetDB())
}

func balanceOf(t *testing.T, s *AccountService, number int64) float64 {
	t.Helper()
	account, err := s.GetByNumber(context.Background(), number)
	require.NoError(t, err)
	return account.Balance
}

func TestCreateAccount(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	account, err := s.CreateAccount(ctx, CreateAccountRequest{Number: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(100), account.AccountNumber)
	assert.Equal(t, "Holder100", account.AccountHolder)
	assert.Equal(t, 0.0, account.Balance)
	assert.NotZero(t, account.ID)

	// Отрицательные номера принимаются
	_, err = s.CreateAccount(ctx, CreateAccountRequest{Number: -5})
	assert.NoError(t, err)
}

func TestCreateAccountDuplicate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, CreateAccountRequest{Number: 100})
	require.NoError(t, err)
	_, err = s.Deposit(ctx, TransactionRequest{Number: 100, Amount: 25})
	require.NoError(t, err)

	_, err = s.CreateAccount(ctx, CreateAccountRequest{Number: 100})
	assert.ErrorIs(t, err, ErrAccountExists)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, 25.0, accounts[0].Balance)
}

func TestDeposit(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, CreateAccountRequest{Number: 1})
	require.NoError(t, err)

	applied, err := s.Deposit(ctx, TransactionRequest{Number: 1, Amount: 40})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 40.0, balanceOf(t, s, 1))

	// Отрицательная сумма уменьшает баланс
	applied, err = s.Deposit(ctx, TransactionRequest{Number: 1, Amount: -15})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 25.0, balanceOf(t, s, 1))
}

func TestDepositUnknownAccount(t *testing.T) {
	s := newTestService(t)

	applied, err := s.Deposit(context.Background(), TransactionRequest{Number: 404, Amount: 10})
	assert.NoError(t, err)
	assert.False(t, applied)
}

func TestDepositRejectsNaN(t *testing.T) {
	s := newTestService(t)

	_, err := s.Deposit(context.Background(), TransactionRequest{Number: 1, Amount: math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWithdraw(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, CreateAccountRequest{Number: 1})
	require.NoError(t, err)
	_, err = s.Deposit(ctx, TransactionRequest{Number: 1, Amount: 50})
	require.NoError(t, err)

	account, err := s.Withdraw(ctx, TransactionRequest{Number: 1, Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, 0.0, account.Balance)

	_, err = s.Withdraw(ctx, TransactionRequest{Number: 1, Amount: 0.01})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 0.0, balanceOf(t, s, 1))
}

func TestWithdrawUnknownAccount(t *testing.T) {
	s := newTestService(t)

	_, err := s.Withdraw(context.Background(), TransactionRequest{Number: 404, Amount: 1})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestTransfer(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for _, n := range []int64{1, 2} {
		_, err := s.CreateAccount(ctx, CreateAccountRequest{Number: n})
		require.NoError(t, err)
	}
	_, err := s.Deposit(ctx, TransactionRequest{Number: 1, Amount: 30})
	require.NoError(t, err)

	require.NoError(t, s.Transfer(ctx, TransferRequest{SourceNumber: 1, DestinationNumber: 2, Amount: 30}))
	assert.Equal(t, 0.0, balanceOf(t, s, 1))
	assert.Equal(t, 30.0, balanceOf(t, s, 2))
}

func TestTransferFailuresLeaveBalancesUnchanged(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for _, n := range []int64{1, 2} {
		_, err := s.CreateAccount(ctx, CreateAccountRequest{Number: n})
		require.NoError(t, err)
	}
	_, err := s.Deposit(ctx, TransactionRequest{Number: 1, Amount: 20})
	require.NoError(t, err)

	tests := []struct {
		name    string
		request TransferRequest
		wantErr error
	}{
		{"missing destination", TransferRequest{SourceNumber: 1, DestinationNumber: 3, Amount: 5}, ErrTargetNotFound},
		{"insufficient balance", TransferRequest{SourceNumber: 1, DestinationNumber: 2, Amount: 21}, ErrInsufficientBalance},
		{"missing source", TransferRequest{SourceNumber: 9, DestinationNumber: 2, Amount: 5}, ErrAccountNotFound},
		{"same account over balance", TransferRequest{SourceNumber: 1, DestinationNumber: 1, Amount: 21}, ErrInsufficientBalance},
		{"infinite amount", TransferRequest{SourceNumber: 1, DestinationNumber: 2, Amount: math.Inf(1)}, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Transfer(ctx, tt.request)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 20.0, balanceOf(t, s, 1))
			assert.Equal(t, 0.0, balanceOf(t, s, 2))
		})
	}
}

func TestTransferToSameAccount(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, CreateAccountRequest{Number: 1})
	require.NoError(t, err)
	_, err = s.Deposit(ctx, TransactionRequest{Number: 1, Amount: 20})
	require.NoError(t, err)

	require.NoError(t, s.Transfer(ctx, TransferRequest{SourceNumber: 1, DestinationNumber: 1, Amount: 20}))
	assert.Equal(t, 20.0, balanceOf(t, s, 1))
}

func TestListAccountsStorageOrder(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	for _, n := range []int64{30, 10, 20} {
		_, err := s.CreateAccount(ctx, CreateAccountRequest{Number: n})
		require.NoError(t, err)
	}

	accounts, err = s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, int64(30), accounts[0].AccountNumber)
	assert.Equal(t, int64(10), accounts[1].AccountNumber)
	assert.Equal(t, int64(20), accounts[2].AccountNumber)
}

func TestScenario(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, CreateAccountRequest{Number: 100})
	require.NoError(t, err)
	assert.Equal(t, 0.0, balanceOf(t, s, 100))

	_, err = s.Deposit(ctx, TransactionRequest{Number: 100, Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, 50.0, balanceOf(t, s, 100))

	_, err = s.Withdraw(ctx, TransactionRequest{Number: 100, Amount: 20})
	require.NoError(t, err)
	assert.Equal(t, 30.0, balanceOf(t, s, 100))

	_, err = s.Withdraw(ctx, TransactionRequest{Number: 100, Amount: 100})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 30.0, balanceOf(t, s, 100))

	_, err = s.CreateAccount(ctx, CreateAccountRequest{Number: 200})
	require.NoError(t, err)
	require.NoError(t, s.Transfer(ctx, TransferRequest{SourceNumber: 100, DestinationNumber: 200, Amount: 10}))
	assert.Equal(t, 20.0, balanceOf(t, s, 100))
	assert.Equal(t, 10.0, balanceOf(t, s, 200))
}
