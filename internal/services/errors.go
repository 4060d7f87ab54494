package services

import "errors"

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountSuspended    = errors.New("account is not active")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrRequestNotFound     = errors.New("request not found")
	ErrNotPending          = errors.New("request is not pending")
	ErrNotApproved         = errors.New("request is not approved")
	ErrPendingExists       = errors.New("a pending request already exists")
)
