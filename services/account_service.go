package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"bankdesk/models"
	"bankdesk/utils"

	"gorm.io/gorm"
)

// OperationType представляет тип операции со счетом
type OperationType string

const (
	OperationCreate   OperationType = "create"
	OperationDeposit  OperationType = "deposit"
	OperationWithdraw OperationType = "withdraw"
	OperationTransfer OperationType = "transfer"
	OperationList     OperationType = "list"
)

// CreateAccountRequest представляет данные для создания счета
type CreateAccountRequest struct {
	Number int64 `json:"account_number"`
}

// TransactionRequest представляет данные для пополнения или снятия
type TransactionRequest struct {
	Number int64   `json:"account_number"`
	Amount float64 `json:"amount"`
}

// TransferRequest представляет данные для перевода средств
type TransferRequest struct {
	SourceNumber      int64   `json:"source_number"`
	DestinationNumber int64   `json:"destination_number"`
	Amount            float64 `json:"amount"`
}

// AccountService предоставляет методы для работы со счетами.
// Сервис владеет подключением к базе; закрывает его вызывающая сторона.
type AccountService struct {
	db *gorm.DB
}

// NewAccountService создает новый экземпляр AccountService
func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db: db,
	}
}

// CreateAccount создает счет с нулевым балансом.
// Уникальность номера обеспечивается индексом в базе.
func (s *AccountService) CreateAccount(ctx context.Context, request CreateAccountRequest) (account *models.Account, err error) {
	defer func(start time.Time) { utils.LogOperation(string(OperationCreate), start, err) }(time.Now())

	account = &models.Account{
		AccountNumber: request.Number,
		AccountHolder: models.HolderName(request.Number),
		Balance:       0.0,
	}

	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account %d: %w", request.Number, err)
	}

	return account, nil
}

// Deposit пополняет счет одним запросом.
// Сумма не проверяется на знак; если счета нет, applied == false и ошибки нет.
func (s *AccountService) Deposit(ctx context.Context, request TransactionRequest) (applied bool, err error) {
	defer func(start time.Time) { utils.LogOperation(string(OperationDeposit), start, err) }(time.Now())

	if err := validateAmount(request.Amount); err != nil {
		return false, err
	}

	result := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("account_number = ?", request.Number).
		UpdateColumn("balance", gorm.Expr("balance + ?", request.Amount))
	if result.Error != nil {
		return false, fmt.Errorf("deposit to %d: %w", request.Number, result.Error)
	}

	if result.RowsAffected == 0 {
		utils.LogWarn("deposit to unknown account %d had no effect", request.Number)
		return false, nil
	}
	return true, nil
}

// Withdraw снимает средства одним условным обновлением
func (s *AccountService) Withdraw(ctx context.Context, request TransactionRequest) (account *models.Account, err error) {
	defer func(start time.Time) { utils.LogOperation(string(OperationWithdraw), start, err) }(time.Now())

	if err := validateAmount(request.Amount); err != nil {
		return nil, err
	}

	account = &models.Account{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := debit(tx, request.Number, request.Amount); err != nil {
			return err
		}
		return tx.First(account, "account_number = ?", request.Number).Error
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// Transfer переводит средства между счетами в одной транзакции.
// При любой ошибке оба изменения откатываются. Перевод на тот же счет
// проходит проверку баланса и не меняет его.
func (s *AccountService) Transfer(ctx context.Context, request TransferRequest) (err error) {
	defer func(start time.Time) { utils.LogOperation(string(OperationTransfer), start, err) }(time.Now())

	if err := validateAmount(request.Amount); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := debit(tx, request.SourceNumber, request.Amount); err != nil {
			return err
		}

		exists, err := accountExists(tx, request.DestinationNumber)
		if err != nil {
			return err
		}
		if !exists {
			return ErrTargetNotFound
		}

		result := tx.Model(&models.Account{}).
			Where("account_number = ?", request.DestinationNumber).
			UpdateColumn("balance", gorm.Expr("balance + ?", request.Amount))
		if result.Error != nil {
			return fmt.Errorf("credit %d: %w", request.DestinationNumber, result.Error)
		}
		return nil
	})
}

// ListAccounts возвращает все счета в порядке хранения
func (s *AccountService) ListAccounts(ctx context.Context) (accounts []models.Account, err error) {
	defer func(start time.Time) { utils.LogOperation(string(OperationList), start, err) }(time.Now())

	if err := s.db.WithContext(ctx).Order("id").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// GetByNumber возвращает счет по номеру
func (s *AccountService) GetByNumber(ctx context.Context, number int64) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "account_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account %d: %w", number, err)
	}
	return &account, nil
}

// debit уменьшает баланс, только если его хватает.
// Если строка не изменилась, различает отсутствие счета и нехватку средств.
func debit(tx *gorm.DB, number int64, amount float64) error {
	result := tx.Model(&models.Account{}).
		Where("account_number = ? AND balance >= ?", number, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("debit %d: %w", number, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	exists, err := accountExists(tx, number)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAccountNotFound
	}
	return ErrInsufficientBalance
}

func accountExists(tx *gorm.DB, number int64) (bool, error) {
	var count int64
	if err := tx.Model(&models.Account{}).Where("account_number = ?", number).Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup account %d: %w", number, err)
	}
	return count > 0, nil
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidAmount
	}
	return nil
}
