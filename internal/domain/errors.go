package domain

import "errors"

var (
	ErrInvalidAmount   = errors.New("amount must round to at least one rupiah")
	ErrProgramNotFound = errors.New("program not found")
	ErrGatewayRejected = errors.New("payment gateway rejected the transaction")
)
