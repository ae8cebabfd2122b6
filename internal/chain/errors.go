package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Stage names the step of a deployment that failed.
type Stage string

const (
	StageChainID  Stage = "chain_id"
	StageBalance  Stage = "balance"
	StageEncode   Stage = "encode"
	StageNonce    Stage = "nonce"
	StageGasPrice Stage = "gas_price"
	StageSign     Stage = "sign"
	StageSend     Stage = "send"
	StageWait     Stage = "wait"
	StageReceipt  Stage = "receipt"
)

// ErrReverted is wrapped by a DeploymentError when the creation transaction
// was mined with a failed status.
var ErrReverted = errors.New("contract deployment reverted")

// DeploymentError is returned by ContractDeployer.Deploy.
type DeploymentError struct {
	Contract string
	Stage    Stage
	// TxHash is set once the transaction has been signed.
	TxHash common.Hash
	Err    error
}

// Error implements the error interface.
func (e *DeploymentError) Error() string {
	if e.TxHash != (common.Hash{}) {
		return fmt.Sprintf("deploy %s: %s (tx %s): %v", e.Contract, e.Stage, e.TxHash.Hex(), e.Err)
	}
	return fmt.Sprintf("deploy %s: %s: %v", e.Contract, e.Stage, e.Err)
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}
