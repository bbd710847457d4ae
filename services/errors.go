package services

import "errors"

// Ошибки бизнес-правил для операций со счетами
var (
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountNotFound     = errors.New("account does not exist")
	ErrTargetNotFound      = errors.New("target account does not exist")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be a finite number")
)
