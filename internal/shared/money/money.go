// Package money concentra a aritmética monetária: decimal em todo o caminho,
// arredondamento half-up só no valor final.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultDecimals é a unidade mínima padrão (centavos)
const DefaultDecimals int32 = 2

// Round arredonda para a unidade mínima da moeda com half-up.
// decimal.Round arredonda metade para longe de zero, o que equivale a
// half-up para os valores positivos que circulam no ledger.
func Round(v decimal.Decimal, places int32) decimal.Decimal {
	return v.Round(places)
}

// Parse converte texto em decimal, rejeitando valores vazios
func Parse(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// MustParse é usado em testes e constantes
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Positive indica se v > 0
func Positive(v decimal.Decimal) bool {
	return v.GreaterThan(decimal.Zero)
}

// Format renderiza com número fixo de casas (ex: "250.00")
func Format(v decimal.Decimal, places int32) string {
	return v.StringFixed(places)
}
