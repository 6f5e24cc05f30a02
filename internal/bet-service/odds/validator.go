package odds

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type Validator struct {
	Rdb *redis.Client
}

func NewValidator(r *redis.Client) *Validator { return &Validator{Rdb: r} }

func key(marketID, selectionID string) string {
	return fmt.Sprintf("odds:%s:%s", marketID, selectionID)
}

// CurrentOdd lê "odds:{marketId}:{selectionId}" => valor string com a odd, ex: "1.85".
// found=false quando o mercado não está no cache (a aposta segue sem checagem).
func (v *Validator) CurrentOdd(ctx context.Context, marketID, selectionID string) (odd decimal.Decimal, found bool, err error) {
	val, err := v.Rdb.Get(ctx, key(marketID, selectionID)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse cached odd %q: %w", val, err)
	}
	return d, true, nil
}

// SetCurrent grava a odd corrente (usado pelo simulador de feed e nos testes)
func (v *Validator) SetCurrent(ctx context.Context, marketID, selectionID string, odd decimal.Decimal) error {
	return v.Rdb.Set(ctx, key(marketID, selectionID), odd.String(), 0).Err()
}
