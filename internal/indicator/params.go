// Package indicator holds the constructor parameter bundle for the
// MultipleMovingAverageCrossoverIndicator contract.
package indicator

import (
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// ContractName is the artifact name the bundle is deployed against.
const ContractName = "MultipleMovingAverageCrossoverIndicator"

// Ethereum mainnet values used by the original migration.
var (
	// MainnetWETHUSDCPool is the Uniswap V3 WETH-USDC 0.3% pool.
	MainnetWETHUSDCPool = common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8")

	// MainnetOperator controls the deployed indicator.
	MainnetOperator = common.HexToAddress("0xD20673d9c07BaA5400B9DF075C3077DfE75A1a1F")
)

// Params is the constructor bundle for one indicator deployment.
// Window lengths are in seconds and are paired by index: LongTermTimePeriods[i]
// is compared against ShortTermTimePeriods[i].
//
// Treat a Params as a value. Use Clone before handing it to code that may
// keep a reference.
type Params struct {
	Pool                 common.Address `json:"pool"`
	LongTermTimePeriods  []uint64       `json:"longTermTimePeriods"`
	ShortTermTimePeriods []uint64       `json:"shortTermTimePeriods"`
	UncertainIsBullish   bool           `json:"uncertainIsBullish"`
	Operator             common.Address `json:"operator"`
}

// DefaultParams returns the mainnet bundle:
// long windows of 3.5, 3.0, 2.5 and 2.0 days against short windows of
// 12, 9, 6 and 3 hours, with group overlap treated as bearish.
func DefaultParams() Params {
	return Params{
		Pool:                 MainnetWETHUSDCPool,
		LongTermTimePeriods:  []uint64{302400, 259200, 216000, 172800},
		ShortTermTimePeriods: []uint64{43200, 32400, 21600, 10800},
		UncertainIsBullish:   false,
		Operator:             MainnetOperator,
	}
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	p.LongTermTimePeriods = slices.Clone(p.LongTermTimePeriods)
	p.ShortTermTimePeriods = slices.Clone(p.ShortTermTimePeriods)
	return p
}

// Validate checks the pairing invariants and returns the first violation as a
// *ConfigError.
func (p Params) Validate() error {
	if p.Pool == (common.Address{}) {
		return newConfigError("pool", "must be a non-zero address")
	}
	if p.Operator == (common.Address{}) {
		return newConfigError("operator", "must be a non-zero address")
	}
	if len(p.LongTermTimePeriods) == 0 {
		return newConfigError("longTermTimePeriods", "must contain at least one window")
	}
	if len(p.LongTermTimePeriods) != len(p.ShortTermTimePeriods) {
		return newConfigError("shortTermTimePeriods",
			fmt.Sprintf("length %d does not match longTermTimePeriods length %d",
				len(p.ShortTermTimePeriods), len(p.LongTermTimePeriods)))
	}
	for i := range p.LongTermTimePeriods {
		long, short := p.LongTermTimePeriods[i], p.ShortTermTimePeriods[i]
		if short == 0 {
			return newConfigError(fmt.Sprintf("shortTermTimePeriods[%d]", i), "must be greater than zero")
		}
		if long <= short {
			return newConfigError(fmt.Sprintf("longTermTimePeriods[%d]", i),
				fmt.Sprintf("%d must exceed paired short-term window %d", long, short))
		}
	}
	return nil
}

// ConstructorArgs returns the arguments in constructor order:
// pool, longTermTimePeriods, shortTermTimePeriods, uncertainIsBullish, operator.
func (p Params) ConstructorArgs() []any {
	return []any{
		p.Pool,
		slices.Clone(p.LongTermTimePeriods),
		slices.Clone(p.ShortTermTimePeriods),
		p.UncertainIsBullish,
		p.Operator,
	}
}
