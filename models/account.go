package models

import "fmt"

// Account представляет банковский счет
type Account struct {
	ID            uint    `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountNumber int64   `gorm:"column:account_number;not null;uniqueIndex:idx_accounts_account_number" json:"account_number"`
	AccountHolder string  `gorm:"column:account_holder;not null" json:"account_holder"`
	Balance       float64 `gorm:"column:balance;not null" json:"balance"`
}

func (Account) TableName() string {
	return "accounts"
}

// HolderName формирует имя владельца по номеру счета
func HolderName(accountNumber int64) string {
	return fmt.Sprintf("Holder%d", accountNumber)
}
