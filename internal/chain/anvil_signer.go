package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// AnvilPrivateKeys are the first accounts derived from Anvil's default mnemonic
// "test test test test test test test test test test test junk".
//
// These keys are PUBLICLY KNOWN. Any funds sent to these addresses on real
// networks will be stolen. NewAnvilSigner refuses production chain ids.
var AnvilPrivateKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", // anvil-0: 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d", // anvil-1: 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a", // anvil-2: 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6", // anvil-3: 0x90F79bf6EB2c4f870365E785982E1f101E93b906
	"47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a", // anvil-4: 0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65
}

// productionChainIDs are networks where the Anvil keys must never sign.
var productionChainIDs = map[int64]string{
	1:     "Ethereum Mainnet",
	10:    "Optimism",
	137:   "Polygon",
	8453:  "Base",
	42161: "Arbitrum One",
}

// AnvilSigner signs with one of the well-known Anvil development accounts.
// A mainnet fork should be started with a non-production --chain-id.
type AnvilSigner struct {
	*LocalSigner
	index int
}

// NewAnvilSigner creates a signer for Anvil account index on chainID.
func NewAnvilSigner(index int, chainID *big.Int) (*AnvilSigner, error) {
	if chainName, isProduction := productionChainIDs[chainID.Int64()]; isProduction {
		return nil, fmt.Errorf("anvil signer cannot be used on %s (chain_id=%s): keys are publicly known", chainName, chainID)
	}
	if index < 0 || index >= len(AnvilPrivateKeys) {
		return nil, fmt.Errorf("anvil account index %d out of range [0,%d)", index, len(AnvilPrivateKeys))
	}

	privateKey, err := crypto.HexToECDSA(AnvilPrivateKeys[index])
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &AnvilSigner{LocalSigner: newLocalSigner(privateKey, chainID), index: index}, nil
}

// Index returns the Anvil account index.
func (s *AnvilSigner) Index() int {
	return s.index
}

// SignTransaction signs tx, refusing transactions whose chain id differs from
// the signer's.
func (s *AnvilSigner) SignTransaction(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	if tx.Type() != types.LegacyTxType && tx.ChainId().Cmp(s.chainID) != 0 {
		return nil, fmt.Errorf("transaction chain id %s does not match anvil signer chain id %s", tx.ChainId(), s.chainID)
	}
	return s.LocalSigner.SignTransaction(ctx, tx)
}

// IsAnvilAddress reports whether addr belongs to an Anvil development account.
func IsAnvilAddress(addr common.Address) bool {
	for _, hexKey := range AnvilPrivateKeys {
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			continue
		}
		if crypto.PubkeyToAddress(key.PublicKey) == addr {
			return true
		}
	}
	return false
}

var _ TransactionSigner = (*AnvilSigner)(nil)

// IsProductionChain reports whether chainID is a network where publicly known
// keys must not be used.
func IsProductionChain(chainID int64) bool {
	_, ok := productionChainIDs[chainID]
	return ok
}
