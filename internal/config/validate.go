package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/Bidon15/indicator-deployer/internal/indicator"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks field-level rules, the signer selection and the parameter
// bundle. The first violation is returned as an *indicator.ConfigError.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(withSigner bool) error {
	if err := validatorInstance().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return fmt.Errorf("validate config: %w", err)
	}

	if withSigner {
		if err := c.Signer.validate(); err != nil {
			return err
		}
	}

	params, err := c.Deployment.ToParams()
	if err != nil {
		return err
	}
	return params.Validate()
}

func (s SignerConfig) validate() error {
	switch s.Mode {
	case SignerLocal:
		if s.PrivateKey == "" {
			return indicator.NewConfigError("signer.private_key", "is required for local signing")
		}
	case SignerAnvil:
		// Production chain ids are refused when the signer is built.
	case SignerRemote:
		if s.Remote.Endpoint == "" {
			return indicator.NewConfigError("signer.remote.endpoint", "is required for remote signing")
		}
		if !common.IsHexAddress(s.Remote.Address) {
			return indicator.NewConfigError("signer.remote.address", "must be a hex address")
		}
		if s.Remote.APIKey == "" && (s.Remote.ClientCert == "" || s.Remote.ClientKey == "") {
			return indicator.NewConfigError("signer.remote.api_key", "api key or client certificate is required")
		}
	}
	return nil
}

// ToParams converts the configured bundle into indicator.Params.
// It does not apply the pairing rules; call Params.Validate for that.
func (d DeploymentConfig) ToParams() (indicator.Params, error) {
	if !common.IsHexAddress(d.Pool) {
		return indicator.Params{}, indicator.NewConfigError("deployment.pool", "must be a hex address")
	}
	if !common.IsHexAddress(d.Operator) {
		return indicator.Params{}, indicator.NewConfigError("deployment.operator", "must be a hex address")
	}
	p := indicator.Params{
		Pool:                 common.HexToAddress(d.Pool),
		LongTermTimePeriods:  d.LongTermTimePeriods,
		ShortTermTimePeriods: d.ShortTermTimePeriods,
		UncertainIsBullish:   d.UncertainIsBullish,
		Operator:             common.HexToAddress(d.Operator),
	}
	return p.Clone(), nil
}

func fieldError(fe validator.FieldError) *indicator.ConfigError {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return indicator.NewConfigError(field, describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return "is required"
	case "eth_addr":
		return "must be a 0x-prefixed 20-byte hex address"
	case "url":
		return "must be a URL"
	case "min":
		return fmt.Sprintf("must contain at least %s entries", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
