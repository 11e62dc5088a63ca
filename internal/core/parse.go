// Package core provides the ledger domain types and expense text parsing.
//
// This file turns free text of the form "description amount" into a
// PendingExpense.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrUnparseableExpense = errors.New("expense text must look like 'description amount'")

// ParseExpense splits text on whitespace, parses the last token as a float64
// amount and rejoins the preceding tokens with single spaces as description.
//
// Examples:
//
//	ParseExpense("молоко 100")        -> {"молоко", 100}, nil
//	ParseExpense("  хлеб  белый 2.5") -> {"хлеб белый", 2.5}, nil
//	ParseExpense("100")               -> ErrUnparseableExpense
//	ParseExpense("кофе сто")          -> ErrUnparseableExpense
//
// The sign of the amount is not checked. NaN and infinities are rejected.
func ParseExpense(text string) (PendingExpense, error) {
	words := strings.Fields(text)
	if len(words) < 2 {
		return PendingExpense{}, ErrUnparseableExpense
	}
	amount, err := strconv.ParseFloat(words[len(words)-1], 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return PendingExpense{}, ErrUnparseableExpense
	}
	return PendingExpense{
		Description: strings.Join(words[:len(words)-1], " "),
		Amount:      amount,
	}, nil
}
