package domain

import "github.com/shopspring/decimal"

// Configuration holds office-wide defaults used to prefill origination
// when a request omits rate or installment count.
type Configuration struct {
	DefaultRatePct      decimal.Decimal
	DefaultInstallments int
}

func DefaultConfiguration() Configuration {
	return Configuration{
		DefaultRatePct:      decimal.NewFromInt(30),
		DefaultInstallments: 6,
	}
}
