package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/transaction"
)

type transactionResponse struct {
	ID                   uuid.UUID          `json:"id"`
	Number               string             `json:"transaction_number"`
	Type                 transaction.Type   `json:"transaction_type"`
	Status               transaction.Status `json:"status"`
	Amount               decimal.Decimal    `json:"amount"`
	Fee                  decimal.Decimal    `json:"fee"`
	Tax                  decimal.Decimal    `json:"tax"`
	TotalAmount          decimal.Decimal    `json:"total_amount"`
	Description          string             `json:"description,omitempty"`
	Notes                string             `json:"notes,omitempty"`
	UserID               uuid.UUID          `json:"user_id"`
	Username             string             `json:"username"`
	AccountID            *uuid.UUID         `json:"account_id,omitempty"`
	AccountNumber        string             `json:"account_number,omitempty"`
	SourceAccountID      *uuid.UUID         `json:"source_account_id,omitempty"`
	DestinationAccountID *uuid.UUID         `json:"destination_account_id,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	ProcessedAt          *time.Time         `json:"processed_at,omitempty"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:                   tx.ID,
		Number:               tx.Number,
		Type:                 tx.Type,
		Status:               tx.Status,
		Amount:               tx.Amount,
		Fee:                  tx.Fee,
		Tax:                  tx.Tax,
		TotalAmount:          tx.TotalAmount,
		Description:          tx.Description,
		Notes:                tx.Notes,
		UserID:               tx.UserID,
		Username:             tx.Username,
		AccountID:            tx.AccountID,
		AccountNumber:        tx.AccountNumber,
		SourceAccountID:      tx.SourceAccountID,
		DestinationAccountID: tx.DestinationAccountID,
		CreatedAt:            tx.CreatedAt,
		UpdatedAt:            tx.UpdatedAt,
		ProcessedAt:          tx.ProcessedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
