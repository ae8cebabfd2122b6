package deploy

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Bidon15/indicator-deployer/internal/indicator"
)

// Plan is what Run would send, computed without contacting the chain.
type Plan struct {
	ArtifactName string           `json:"artifact"`
	ChainID      int64            `json:"chain_id"`
	Params       indicator.Params `json:"params"`
	// CreationData is the bytecode followed by the ABI-encoded constructor
	// arguments, i.e. the data of the contract-creation transaction.
	CreationData hexutil.Bytes `json:"creation_data"`
}

// Plan validates params, resolves the artifact and encodes the creation data.
// The Deployer is never called.
func (c *Configurator) Plan(ctx context.Context, params indicator.Params) (*Plan, error) {
	p := params.Clone()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	art, err := c.registry.Resolve(ctx, c.target.ArtifactName)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact %s: %w", c.target.ArtifactName, err)
	}

	data, err := art.CreationData(p.ConstructorArgs()...)
	if err != nil {
		return nil, fmt.Errorf("encode %s constructor: %w", art.ContractName, err)
	}

	return &Plan{
		ArtifactName: art.ContractName,
		ChainID:      c.target.ChainID,
		Params:       p,
		CreationData: data,
	}, nil
}
