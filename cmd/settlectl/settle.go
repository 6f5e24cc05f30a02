package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/radieske/bet-settlement-engine/internal/scheduler"
	"github.com/radieske/bet-settlement-engine/internal/settlement"
)

//nolint:gochecknoglobals // Cobra boilerplate
var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Settle every pending bet of a market",
	Long: `Settles all pending bets of a market with the given result.

Example usage:
  settlectl settle --market MATCH_001 --result HOME
  settlectl settle --market MATCH_002 --mode void
  settlectl settle --market MATCH_003 --result OVER_2.5 --mode half_win`,
	RunE: runSettle,
}

//nolint:gochecknoglobals // Cobra boilerplate
var runCycleCmd = &cobra.Command{
	Use:   "run-cycle",
	Short: "Run one auto-settlement cycle against the result feed",
	RunE:  runCycle,
}

//nolint:gochecknoglobals // Cobra boilerplate
var pendingMarketsCmd = &cobra.Command{
	Use:   "pending-markets",
	Short: "List markets that still have pending bets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := openDeps(cmd.Context())
		if err != nil {
			return err
		}
		defer d.close()

		ids, err := d.registry.PendingMarkets(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(ids)
	},
}

var (
	settleMarket string
	settleResult string
	settleMode   string
	feedURL      string
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(settleCmd, runCycleCmd, pendingMarketsCmd)

	settleCmd.Flags().StringVarP(&settleMarket, "market", "m", "", "market id")
	settleCmd.Flags().StringVarP(&settleResult, "result", "r", "", "winning selection (ignored for void)")
	settleCmd.Flags().StringVar(&settleMode, "mode", string(settlement.ModeNormal), "normal | void | half_win | half_lost")
	_ = settleCmd.MarkFlagRequired("market")

	runCycleCmd.Flags().StringVar(&feedURL, "feed", "", "result feed base URL (default RESULT_FEED_URL)")
}

func runSettle(cmd *cobra.Command, _ []string) error {
	req := settlement.Request{
		MarketID:   settleMarket,
		ResultCode: settleResult,
		Mode:       settlement.Mode(settleMode),
		Trigger:    settlement.TriggerCLI,
	}
	// erro de validação sai antes de abrir o banco
	if err := settlement.Validate(req); err != nil {
		return err
	}

	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	res, err := d.engine.SettleMarket(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("settle market %s: %w", req.MarketID, err)
	}
	return printJSON(res)
}

func runCycle(cmd *cobra.Command, _ []string) error {
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	url := feedURL
	if url == "" {
		url = d.cfg.ResultFeedURL
	}
	s := scheduler.New(
		scheduler.NewHTTPSource(url, d.cfg.ResultFeedTimeout),
		d.engine, d.markets,
		scheduler.Config{Interval: d.cfg.SettlementInterval, Workers: d.cfg.SettlementWorkers},
		d.log,
	)
	rep := s.RunCycle(cmd.Context())
	if err := printJSON(rep); err != nil {
		return err
	}
	if !rep.Success {
		return fmt.Errorf("cycle finished with %d errors", len(rep.Errors))
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
