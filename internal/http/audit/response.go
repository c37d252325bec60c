package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
)

type recordResponse struct {
	ID                       int64               `json:"id"`
	TransactionID            *uuid.UUID          `json:"transaction_id,omitempty"`
	TransactionNumber        string              `json:"transaction_number,omitempty"`
	TransactionType          string              `json:"transaction_type,omitempty"`
	Amount                   decimal.NullDecimal `json:"amount"`
	TotalAmount              decimal.NullDecimal `json:"total_amount"`
	UserID                   *uuid.UUID          `json:"user_id,omitempty"`
	Username                 string              `json:"username,omitempty"`
	AccountID                *uuid.UUID          `json:"account_id,omitempty"`
	AccountNumber            string              `json:"account_number,omitempty"`
	SourceAccountID          *uuid.UUID          `json:"source_account_id,omitempty"`
	SourceAccountNumber      string              `json:"source_account_number,omitempty"`
	DestinationAccountID     *uuid.UUID          `json:"destination_account_id,omitempty"`
	DestinationAccountNumber string              `json:"destination_account_number,omitempty"`
	PreviousStatus           string              `json:"previous_status,omitempty"`
	NewStatus                string              `json:"new_status,omitempty"`
	EventType                audit.EventType     `json:"event_type"`
	Description              string              `json:"description"`
	AdditionalData           string              `json:"additional_data,omitempty"`
	IPAddress                string              `json:"ip_address,omitempty"`
	UserAgent                string              `json:"user_agent,omitempty"`
	SessionID                string              `json:"session_id,omitempty"`
	CreatedAt                time.Time           `json:"created_at"`
}

type pageResponse struct {
	Records []recordResponse `json:"records"`
	Total   int64            `json:"total"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}

type suspiciousResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	FailureCount  int64     `json:"failure_count"`
}

func toResponse(rec *audit.Record) recordResponse {
	return recordResponse{
		ID:                       rec.ID,
		TransactionID:            rec.TransactionID,
		TransactionNumber:        rec.TransactionNumber,
		TransactionType:          rec.TransactionType,
		Amount:                   rec.Amount,
		TotalAmount:              rec.TotalAmount,
		UserID:                   rec.UserID,
		Username:                 rec.Username,
		AccountID:                rec.AccountID,
		AccountNumber:            rec.AccountNumber,
		SourceAccountID:          rec.SourceAccountID,
		SourceAccountNumber:      rec.SourceAccountNumber,
		DestinationAccountID:     rec.DestinationAccountID,
		DestinationAccountNumber: rec.DestinationAccountNumber,
		PreviousStatus:           rec.PreviousStatus,
		NewStatus:                rec.NewStatus,
		EventType:                rec.EventType,
		Description:              rec.Description,
		AdditionalData:           rec.AdditionalData,
		IPAddress:                rec.IPAddress,
		UserAgent:                rec.UserAgent,
		SessionID:                rec.SessionID,
		CreatedAt:                rec.CreatedAt,
	}
}

func toResponseList(recs []*audit.Record) []recordResponse {
	resp := make([]recordResponse, len(recs))
	for i, rec := range recs {
		resp[i] = toResponse(rec)
	}

	return resp
}

func toPageResponse(p *audit.PageResult) pageResponse {
	return pageResponse{
		Records: toResponseList(p.Records),
		Total:   p.Total,
		Offset:  p.Offset,
		Limit:   p.Limit,
	}
}

func toSuspiciousList(hits []audit.SuspiciousTransaction) []suspiciousResponse {
	resp := make([]suspiciousResponse, len(hits))
	for i, h := range hits {
		resp[i] = suspiciousResponse{TransactionID: h.TransactionID, FailureCount: h.FailureCount}
	}

	return resp
}
