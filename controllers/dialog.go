package controllers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"bankdesk/models"
	"bankdesk/services"

	"github.com/go-playground/validator/v10"
)

const (
	TitleSuccess  = "Success"
	TitleError    = "Error"
	TitleAccounts = "Accounts"
)

// Dialog результат действия, который показывается пользователю
type Dialog struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Final   bool   `json:"-"`
}

func success(message string) Dialog {
	return Dialog{Title: TitleSuccess, Message: message, Status: http.StatusOK}
}

func failure(status int, message string) Dialog {
	return Dialog{Title: TitleError, Message: message, Status: status}
}

// invalidInput формирует диалог для ошибок ввода и ошибок хранилища
func invalidInput(err error) Dialog {
	status := http.StatusBadRequest
	var inputErr *InputError
	if !errors.As(err, &inputErr) && !errors.Is(err, services.ErrInvalidAmount) {
		status = http.StatusInternalServerError
	}
	return failure(status, "Invalid input. "+err.Error())
}

// AccountForm содержит текст полей формы до разбора
type AccountForm struct {
	AccountNumber     string `json:"account_number" validate:"required"`
	Amount            string `json:"amount" validate:"required"`
	DestinationNumber string `json:"destination_number" validate:"required"`
}

// InputError ошибка разбора текста поля
type InputError struct {
	Field string
	Value string
}

func (e *InputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

var fieldNames = map[string]string{
	"AccountNumber":     "account number",
	"Amount":            "amount",
	"DestinationNumber": "destination account number",
}

// validateFields проверяет, что нужные действию поля заполнены
func validateFields(v *validator.Validate, form AccountForm, fields ...string) error {
	if err := v.StructPartial(form, fields...); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return &InputError{Field: fieldNames[validationErrors[0].StructField()]}
		}
		return err
	}
	return nil
}

func parseAccountNumber(field, value string) (int64, error) {
	number, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, &InputError{Field: field, Value: value}
	}
	return number, nil
}

func parseAmount(value string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, &InputError{Field: "amount", Value: value}
	}
	return amount, nil
}

// formatBalance печатает баланс как 30.0 или 12.5
func formatBalance(balance float64) string {
	s := strconv.FormatFloat(balance, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatAccounts собирает текст диалога со списком счетов
func formatAccounts(accounts []models.Account) string {
	if len(accounts) == 0 {
		return "No accounts found."
	}

	var b strings.Builder
	b.WriteString("Accounts:\n")
	for _, account := range accounts {
		fmt.Fprintf(&b, "Account Number: %d, Account Holder: %s, Balance: %s\n",
			account.AccountNumber, account.AccountHolder, formatBalance(account.Balance))
	}
	return b.String()
}
