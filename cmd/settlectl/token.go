package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/radieske/bet-settlement-engine/internal/shared/auth"
)

//nolint:gochecknoglobals // Cobra boilerplate
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin JWT for the settlement API",
	Long: `Signs an HS256 token with one of the keys in ADMIN_JWT_KEYS.

Example usage:
  settlectl token --kid ops-2026 --subject alice@ops --ttl 15m`,
	RunE: runToken,
}

var (
	tokenKid     string
	tokenSubject string
	tokenTTL     time.Duration
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenKid, "kid", "", "key id from ADMIN_JWT_KEYS")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "settlectl", "token subject (operator)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 15*time.Minute, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("kid")
}

func runToken(*cobra.Command, []string) error {
	keys, err := auth.ParseKeys(os.Getenv("ADMIN_JWT_KEYS"))
	if err != nil {
		return err
	}
	secret, ok := keys[tokenKid]
	if !ok {
		return fmt.Errorf("kid %q not found in ADMIN_JWT_KEYS", tokenKid)
	}
	if tokenTTL <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	tok, err := auth.Sign(tokenKid, secret, tokenSubject, auth.ScopeSettlementAdmin, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
