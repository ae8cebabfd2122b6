// Package artifact resolves compiled contract artifacts and encodes their
// creation data.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is a compiled contract in the Truffle build/contracts layout.
type Artifact struct {
	ContractName     string             `json:"contractName"`
	ABI              json.RawMessage    `json:"abi"`
	Bytecode         Bytecode           `json:"bytecode"`
	DeployedBytecode Bytecode           `json:"deployedBytecode,omitempty"`
	Networks         map[string]Network `json:"networks,omitempty"`
}

// Network is the per-chain deployment entry Truffle keeps inside an artifact.
type Network struct {
	Address         common.Address `json:"address"`
	TransactionHash common.Hash    `json:"transactionHash"`
}

// Bytecode is a hex bytecode string. It unmarshals from either a plain string
// (Truffle, Hardhat) or an object with an "object" field (Foundry, solc).
type Bytecode struct {
	hex string
}

// NewBytecode wraps a hex string.
func NewBytecode(hex string) Bytecode {
	return Bytecode{hex: hex}
}

// UnmarshalJSON handles both string and object bytecode formats.
func (b *Bytecode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.hex = s
		return nil
	}

	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		b.hex = obj.Object
		return nil
	}

	return fmt.Errorf("bytecode must be a string or object with 'object' field")
}

// MarshalJSON marshals the bytecode as a string.
func (b Bytecode) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.hex)
}

// String returns the bytecode hex string.
func (b Bytecode) String() string {
	return b.hex
}

// Bytes decodes the bytecode. Unlinked library placeholders are rejected.
func (b Bytecode) Bytes() ([]byte, error) {
	s := b.hex
	if s == "" || s == "0x" {
		return nil, fmt.Errorf("empty bytecode")
	}
	if strings.Contains(s, "__") {
		return nil, fmt.Errorf("bytecode has unlinked library placeholders")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

// ParsedABI parses the artifact ABI.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	if len(a.ABI) == 0 {
		return abi.ABI{}, fmt.Errorf("artifact %s has no ABI", a.ContractName)
	}
	return abi.JSON(bytes.NewReader(a.ABI))
}

// PackConstructor ABI-encodes constructor arguments. Integer values and
// integer slices are converted to the Go types the constructor inputs require.
func (a *Artifact) PackConstructor(args ...any) ([]byte, error) {
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	inputs := parsed.Constructor.Inputs
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("constructor of %s expects %d arguments, got %d",
			a.ContractName, len(inputs), len(args))
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	coerced := make([]any, len(args))
	for i, in := range inputs {
		v, err := coerce(in.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("constructor argument %d (%s %s): %w", i, in.Type.String(), in.Name, err)
		}
		coerced[i] = v
	}

	packed, err := inputs.Pack(coerced...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor args: %w", err)
	}
	return packed, nil
}

// CreationData returns the contract creation payload: bytecode followed by the
// encoded constructor arguments.
func (a *Artifact) CreationData(args ...any) ([]byte, error) {
	code, err := a.Bytecode.Bytes()
	if err != nil {
		return nil, fmt.Errorf("decode %s bytecode: %w", a.ContractName, err)
	}

	packed, err := a.PackConstructor(args...)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(code)+len(packed))
	data = append(data, code...)
	return append(data, packed...), nil
}
