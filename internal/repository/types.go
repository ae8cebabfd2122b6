// Package repository provides the persistence layer for deployment runs.
package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents the deployment status.
type Status string

const (
	// StatusPending indicates the run was recorded but the deployer has not been called.
	StatusPending Status = "pending"
	// StatusRunning indicates the contract creation is in flight.
	StatusRunning Status = "running"
	// StatusCompleted indicates the contract was mined successfully.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the deployer returned an error.
	StatusFailed Status = "failed"
)

// Deployment is one configurator run as recorded in the ledger.
type Deployment struct {
	ID              uuid.UUID       `json:"id"`
	RunID           string          `json:"run_id"`
	Artifact        string          `json:"artifact"`
	ChainID         int64           `json:"chain_id"`
	Pool            string          `json:"pool"`
	Operator        string          `json:"operator"`
	Params          json.RawMessage `json:"params"`
	Status          Status          `json:"status"`
	TxHash          *string         `json:"tx_hash,omitempty"`
	ContractAddress *string         `json:"contract_address,omitempty"`
	BlockNumber     *int64          `json:"block_number,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Completion carries what a successful run learned from its receipt.
type Completion struct {
	TxHash          string
	ContractAddress string
	BlockNumber     int64
}
