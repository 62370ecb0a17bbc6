package core

import (
	"encoding/json"
	"time"
)

// SyncResult summarises one ingestion run.
type SyncResult struct {
	Success         bool      `json:"success"`
	NewTransactions int       `json:"newTransactions"`
	TotalProcessed  int       `json:"totalProcessed"`
	Errors          []string  `json:"errors"`
	LastSyncDate    time.Time `json:"lastSyncDate"`
}

// IntegrationStatus reports ingestion health as seen from the store.
type IntegrationStatus struct {
	Connected         bool             `json:"connected"`
	LastSync          *time.Time       `json:"lastSync"`
	TotalTransactions int64            `json:"totalTransactions"`
	LastTransaction   *TransactionView `json:"lastTransaction"`
}

// TransactionView is the JSON shape of a stored transaction.
type TransactionView struct {
	ID                  string      `json:"id"`
	Date                string      `json:"date"`
	Direction           string      `json:"direction"`
	Amount              json.Number `json:"amount"`
	Description         string      `json:"description"`
	Message             string      `json:"message,omitempty"`
	Document            string      `json:"document,omitempty"`
	CounterpartyRole    string      `json:"counterpartyRole,omitempty"`
	CounterpartyName    string      `json:"counterpartyName,omitempty"`
	CounterpartyBank    string      `json:"counterpartyBank,omitempty"`
	CounterpartyBranch  string      `json:"counterpartyBranch,omitempty"`
	CounterpartyAccount string      `json:"counterpartyAccount,omitempty"`
	ExternalID          string      `json:"externalId,omitempty"`
	CreatedAt           time.Time   `json:"createdAt"`
}

// NewTransactionView converts a stored transaction for output.
func NewTransactionView(st StoredTransaction) *TransactionView {
	return &TransactionView{
		ID:                  st.ID,
		Date:                st.Date,
		Direction:           st.Direction.Label(),
		Amount:              json.Number(st.Amount.StringFixed(2)),
		Description:         st.Description,
		Message:             st.Message,
		Document:            st.Document,
		CounterpartyRole:    st.Counterparty.Role,
		CounterpartyName:    st.Counterparty.Name,
		CounterpartyBank:    st.Counterparty.Bank,
		CounterpartyBranch:  st.Counterparty.Branch,
		CounterpartyAccount: st.Counterparty.Account,
		ExternalID:          st.ExternalID,
		CreatedAt:           st.CreatedAt,
	}
}
