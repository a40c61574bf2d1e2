package ztm

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/zivoe/ztm/internal/allocator"
	"github.com/zivoe/ztm/internal/config"
	"github.com/zivoe/ztm/internal/distributor"
	"github.com/zivoe/ztm/internal/logger"
	"github.com/zivoe/ztm/internal/metrics"
	"github.com/zivoe/ztm/internal/preflight"
	"github.com/zivoe/ztm/internal/state"
	"github.com/zivoe/ztm/internal/tranche"
	"github.com/zivoe/ztm/internal/types"
	"github.com/zivoe/ztm/internal/utils"
)

const (
	// Export constant for use in main.go
	DefaultParamsConfigName = "default_tranche_strategy"

	// settleBatchLimit caps how many pending grants one settlement run pays.
	// The batch rides a single MsgMultiSend, so the limit bounds tx size.
	settleBatchLimit = 200
)

// PayoutExecutor signs and broadcasts payout batches. *wallet.PayoutBuilder
// satisfies it; dry-run deployments run without one.
type PayoutExecutor interface {
	ExecutePayoutPlan(ctx context.Context, plan types.PayoutPlan) (*types.TransactionResult, error)
	ExecuteIncentivePayout(ctx context.Context, grants []types.IncentiveGrant) (*types.TransactionResult, error)
}

// ZTM represents the Zivoe Tranche Manager with all its dependencies
type ZTM struct {
	// Core dependencies
	logger     zerolog.Logger
	reader     tranche.TrancheReader
	payouts    PayoutExecutor
	recipients types.RecipientSet

	// Configuration
	configName       string
	distributionCron string
	settleInterval   time.Duration

	// Runtime state
	distributionCount int
	settlementCount   int
}

// Config holds the configuration for creating a new ZTM instance
type Config struct {
	Reader           tranche.TrancheReader
	Payouts          PayoutExecutor // nil in dry-run mode
	Recipients       types.RecipientSet
	ConfigName       string
	DistributionCron string
	SettleInterval   time.Duration
}

// NewZTM creates a new ZTM instance with dependency injection
func NewZTM(cfg Config) (*ZTM, error) {
	if err := validateZTMConfig(cfg); err != nil {
		return nil, fmt.Errorf("ZTM configuration validation failed: %w", err)
	}

	z := &ZTM{
		logger:            logger.GetForComponent("ztm_core"),
		reader:            cfg.Reader,
		payouts:           cfg.Payouts,
		recipients:        cfg.Recipients,
		configName:        cfg.ConfigName,
		distributionCron:  cfg.DistributionCron,
		settleInterval:    cfg.SettleInterval,
		distributionCount: 0,
		settlementCount:   0,
	}

	z.logger.Info().
		Str("configName", z.configName).
		Str("distributionCron", z.distributionCron).
		Dur("settleInterval", z.settleInterval).
		Bool("liveBroadcast", z.payouts != nil).
		Msg("ZTM instance created successfully with dependency injection")

	return z, nil
}

// validateZTMConfig validates the ZTM configuration
func validateZTMConfig(cfg Config) error {
	if cfg.Reader == nil {
		return fmt.Errorf("tranche reader cannot be nil")
	}
	if cfg.Payouts == nil && config.IsLive() {
		return fmt.Errorf("payout executor is required in live mode")
	}
	if err := config.ValidateRecipients(cfg.Recipients); err != nil {
		return fmt.Errorf("recipient set is invalid: %w", err)
	}
	if cfg.ConfigName == "" {
		return fmt.Errorf("config name cannot be empty")
	}
	if cfg.DistributionCron == "" {
		return fmt.Errorf("distribution cron expression cannot be empty")
	}
	if cfg.SettleInterval <= 0 {
		return fmt.Errorf("settle interval must be positive")
	}
	return nil
}

// RunLoop starts the main ZTM loop: a UTC cron schedule drives distribution
// epochs while a ticker drives incentive settlement. The first settlement
// runs immediately; distribution waits for its scheduled slot.
func (z *ZTM) RunLoop(ctx context.Context) error {
	z.logger.Info().
		Str("distributionCron", z.distributionCron).
		Dur("settleInterval", z.settleInterval).
		Msg("Starting ZTM main loop")

	scheduler := cron.New(cron.WithLocation(time.UTC))
	_, err := scheduler.AddFunc(z.distributionCron, func() {
		z.distributionCount++
		z.logger.Info().Int("run", z.distributionCount).Msg("Initiating distribution epoch")
		z.RunDistribution(ctx)
		z.logger.Info().Int("run", z.distributionCount).Msg("Distribution epoch completed")
	})
	if err != nil {
		return fmt.Errorf("invalid distribution cron expression %q: %w", z.distributionCron, err)
	}
	scheduler.Start()

	ticker := time.NewTicker(z.settleInterval)
	defer ticker.Stop()

	// Run first settlement immediately
	z.settlementCount++
	z.logger.Info().Int("run", z.settlementCount).Msg("Initiating settlement run")
	z.RunSettlement(ctx)
	z.logger.Info().Int("run", z.settlementCount).Msg("Settlement run completed")

	for {
		select {
		case <-ctx.Done():
			z.logger.Info().Msg("ZTM loop stopped due to context cancellation")
			// Wait for any in-flight cron job before returning.
			<-scheduler.Stop().Done()
			return nil
		case <-ticker.C:
			z.settlementCount++
			z.logger.Info().Int("run", z.settlementCount).Msg("Initiating settlement run")
			z.RunSettlement(ctx)
			z.logger.Info().Int("run", z.settlementCount).Msg("Settlement run completed")
		}
	}
}

// RunDistribution executes one complete distribution epoch
func (z *ZTM) RunDistribution(ctx context.Context) {
	epochStartTime := time.Now()

	// Generate unique run ID for tracing logs across the entire epoch
	runID := uuid.New().String()
	runLogger := z.logger.With().Str("run_id", runID).Logger()

	runLogger.Info().Msg("--- Starting Distribution Epoch ---")

	// --- Step 1: Pin Chain State ---
	runLogger.Info().Msg("Step 1: Pinning chain state...")

	decimals, err := config.DecimalsForDenom(config.YieldDenom)
	if err != nil {
		runLogger.Error().Err(err).Str("denom", config.YieldDenom).Msg("Epoch aborted: Yield denom has no decimals entry.")
		return
	}

	height, err := z.reader.LatestHeight()
	if err != nil {
		runLogger.Error().Err(err).Msg("Epoch aborted: Failed to read latest height.")
		return
	}

	supplies, err := z.reader.SuppliesAtHeight(height)
	if err != nil {
		runLogger.Error().Err(err).Int64("height", height).Msg("Epoch aborted: Failed to read tranche supplies.")
		return
	}

	grossNative, err := z.reader.AccountBalance(config.DepositAddress, config.YieldDenom)
	if err != nil {
		runLogger.Error().Err(err).Msg("Epoch aborted: Failed to read distribution wallet balance.")
		return
	}

	runLogger.Info().
		Int64("height", height).
		Str("seniorSupply", supplies.Senior.String()).
		Str("juniorSupply", supplies.Junior.String()).
		Str("grossYield", grossNative.String()).
		Msg("Step 1: Chain state pinned.")

	if grossNative.IsZero() {
		// No yield arrived since the last epoch. The counter does not
		// advance, so the lookback window only ever counts funded epochs.
		runLogger.Warn().Msg("Distribution wallet holds no yield; epoch skipped without a snapshot")
		return
	}

	// --- Step 2: Allocate Epoch Number ---
	epochNumber, err := state.IncrementEpochNumber()
	if err != nil {
		runLogger.Error().Err(err).Msg("Epoch aborted: Failed to increment epoch counter.")
		return
	}
	runLogger = runLogger.With().Int64("epoch", epochNumber).Logger()
	runLogger.Info().Msg("Step 2: Epoch number allocated.")

	snapshot := newEpochSnapshot(epochNumber, height, supplies)
	snapshot.GrossYield = standardizeOrZero(grossNative, decimals)

	// --- Step 3: Load Parameters & Yield History ---
	runLogger.Info().Msg("Step 3: Loading parameters and yield history...")

	params, paramsID, err := state.LoadActiveTrancheParameters(z.configName)
	if err != nil {
		z.failEpoch(runLogger, &snapshot, "Failed to load active tranche parameters", err)
		return
	}
	snapshot.ParametersID = paramsID

	cumulativeYield, err := state.TrailingYieldSum(params.LookbackPeriod)
	if err != nil {
		z.failEpoch(runLogger, &snapshot, "Failed to compute trailing yield sum", err)
		return
	}
	snapshot.CumulativeYield = cumulativeYield

	previous, err := state.GetLatestEpoch()
	if err != nil {
		z.failEpoch(runLogger, &snapshot, "Failed to load previous epoch snapshot", err)
		return
	}
	previousRate := sdkmath.ZeroInt()
	if previous != nil && !previous.SeniorRate.IsNil() {
		previousRate = previous.SeniorRate
	}

	runLogger.Info().
		Int64("parametersID", paramsID).
		Str("cumulativeYield", cumulativeYield.String()).
		Str("previousRate", previousRate.String()).
		Msg("Step 3: Parameters and history loaded.")

	// --- Step 4: Build Payout Plan ---
	runLogger.Info().Msg("Step 4: Building payout plan...")

	plan, err := distributor.BuildPayoutPlan(distributor.PlanInput{
		EpochNumber:     epochNumber,
		Params:          params,
		Recipients:      z.recipients,
		SeniorSupply:    supplies.Senior,
		JuniorSupply:    supplies.Junior,
		GrossYield:      grossNative,
		CumulativeYield: cumulativeYield,
		PreviousRate:    previousRate,
		Denom:           config.YieldDenom,
		Decimals:        decimals,
		SeniorAddress:   config.SeniorRewardsAddress,
		JuniorAddress:   config.JuniorRewardsAddress,
	})
	if err != nil {
		z.failEpoch(runLogger, &snapshot, "Failed to build payout plan", err)
		return
	}
	applyPlanToSnapshot(&snapshot, plan)

	runLogger.Info().
		Str("branch", string(plan.Branch)).
		Str("seniorOwed", plan.SeniorOwed.String()).
		Str("juniorOwed", plan.JuniorOwed.String()).
		Str("residual", plan.Residual.String()).
		Int("legs", len(plan.Legs)).
		Msg("Step 4: Payout plan built.")

	// --- Step 5: Pre-Flight Funds Check ---
	runLogger.Info().Msg("Step 5: Verifying distribution wallet can cover the plan...")

	if err := preflight.CheckDistributionFunds(z.reader, plan); err != nil {
		z.failEpoch(runLogger, &snapshot, "Distribution funds pre-flight failed", err)
		return
	}
	runLogger.Info().Msg("Step 5: Pre-flight check passed.")

	// --- Step 6: Execute Distribution ---
	runLogger.Info().Msg("Step 6: Executing distribution...")

	var txHash string
	receiptMessage := "paid in epoch distribution batch"
	if z.payouts == nil {
		z.logPlanPreview(runLogger, plan)
		receiptMessage = "dry-run preview, not broadcast"
	} else {
		result, err := z.payouts.ExecutePayoutPlan(ctx, plan)
		if err != nil {
			z.failEpoch(runLogger, &snapshot, "Distribution broadcast failed", err)
			return
		}
		txHash = result.TxHash
		runLogger.Info().
			Str("txHash", result.TxHash).
			Int64("gasUsed", result.GasUsed).
			Msg("Step 6: Distribution transaction confirmed.")
	}

	if txHash != "" {
		snapshot.TxHashes = append(snapshot.TxHashes, txHash)
	}

	receipts := make([]types.PayoutReceipt, 0, len(plan.Legs))
	for _, leg := range plan.Legs {
		receipts = append(receipts, types.PayoutReceipt{
			EpochNumber: epochNumber,
			Leg:         leg,
			Success:     true,
			Message:     receiptMessage,
			TxHash:      txHash,
			Timestamp:   time.Now().UTC(),
		})
	}
	snapshot.Receipts = receipts

	// --- Step 7: Persist Snapshot & Analytics ---
	runLogger.Info().Msg("Step 7: Persisting epoch snapshot and receipts...")

	snapshot.EmaYield = z.smoothColumn(previous, pickEmaYield, plan.YieldBag, params.EmaPeriods, runLogger)
	snapshot.EmaSeniorSupply = z.smoothColumn(previous, pickEmaSenior, supplies.Senior, params.EmaPeriods, runLogger)
	snapshot.EmaJuniorSupply = z.smoothColumn(previous, pickEmaJunior, supplies.Junior, params.EmaPeriods, runLogger)
	snapshot.Success = true

	if _, err := state.SaveEpochSnapshot(snapshot); err != nil {
		runLogger.Error().Err(err).Msg("Failed to persist epoch snapshot")
	}
	if err := state.SaveDistributionReceipts(receipts); err != nil {
		runLogger.Error().Err(err).Msg("Failed to persist distribution receipts")
	}

	metrics.RecordEpoch(snapshot)
	metrics.RecordDistribution(plan, true)

	runLogger.Info().
		Str("branch", string(plan.Branch)).
		Str("grossYield", plan.GrossYield.String()).
		Str("protocolFee", plan.ProtocolFee.String()).
		Str("seniorOwed", plan.SeniorOwed.String()).
		Str("juniorOwed", plan.JuniorOwed.String()).
		Str("residual", plan.Residual.String()).
		Str("epochDuration", time.Since(epochStartTime).String()).
		Msg("--- Distribution Epoch Completed Successfully ---")
}

// RunSettlement scans for new tranche deposits, accrues their incentive
// grants, and pays the pending batch when the reserve covers it.
func (z *ZTM) RunSettlement(ctx context.Context) {
	settleStartTime := time.Now()

	runID := uuid.New().String()
	runLogger := z.logger.With().Str("run_id", runID).Logger()

	runLogger.Info().Msg("--- Starting Settlement Run ---")

	cursor, err := state.GetScanCursor()
	if err != nil {
		runLogger.Error().Err(err).Msg("Settlement aborted: Failed to read scan cursor.")
		metrics.RecordSettlement(false, 0, 0)
		return
	}

	params, _, err := state.LoadActiveTrancheParameters(z.configName)
	if err != nil {
		runLogger.Error().Err(err).Msg("Settlement aborted: Failed to load active tranche parameters.")
		metrics.RecordSettlement(false, 0, 0)
		return
	}

	// --- Phase 1: Deposit Scan & Grant Accrual ---
	deposits, newCursor, err := z.reader.DepositsSince(cursor)
	if err != nil {
		runLogger.Error().Err(err).Int64("cursor", cursor).Msg("Settlement aborted: Deposit scan failed.")
		metrics.RecordSettlement(false, 0, 0)
		return
	}

	skipped := 0
	if len(deposits) > 0 {
		runLogger.Info().
			Int("deposits", len(deposits)).
			Int64("fromHeight", cursor).
			Int64("toHeight", newCursor).
			Msg("Phase 1: Pricing observed deposits...")

		// The reserve available to new grants is the live balance minus
		// rewards already promised to pending grants.
		reserve, err := z.reader.AccountBalance(config.DepositAddress, config.IncentiveDenom)
		if err != nil {
			runLogger.Error().Err(err).Msg("Settlement aborted: Failed to read incentive reserve.")
			metrics.RecordSettlement(false, 0, skipped)
			return
		}
		pendingTotal, err := state.PendingRewardTotal()
		if err != nil {
			runLogger.Error().Err(err).Msg("Settlement aborted: Failed to sum pending rewards.")
			metrics.RecordSettlement(false, 0, skipped)
			return
		}
		available := reserve.Sub(pendingTotal)
		if available.IsNegative() {
			available = sdkmath.ZeroInt()
		}

		for _, deposit := range deposits {
			grant, err := z.priceDeposit(deposit, params, available)
			if err != nil {
				// Abort before the cursor advances so the batch is rescanned
				// next run; grant inserts are idempotent on (tx, msg index).
				runLogger.Error().Err(err).
					Str("txHash", deposit.TxHash).
					Int64("height", deposit.Height).
					Msg("Settlement aborted: Failed to price deposit.")
				metrics.RecordSettlement(false, 0, skipped)
				return
			}

			_, inserted, err := state.InsertIncentiveGrant(grant)
			if err != nil {
				runLogger.Error().Err(err).
					Str("txHash", deposit.TxHash).
					Msg("Settlement aborted: Failed to record incentive grant.")
				metrics.RecordSettlement(false, 0, skipped)
				return
			}
			if !inserted {
				runLogger.Debug().
					Str("txHash", deposit.TxHash).
					Int("msgIndex", deposit.MsgIndex).
					Msg("Deposit already recorded, skipping")
				continue
			}

			switch grant.Status {
			case types.GrantPending:
				available = available.Sub(grant.Reward)
				runLogger.Info().
					Str("depositor", grant.Depositor).
					Str("side", string(grant.Side)).
					Str("deposit", grant.DepositAmount.String()).
					Str("reward", grant.Reward.String()).
					Bool("capped", grant.Capped).
					Msg("Incentive grant accrued")
			case types.GrantSkipped:
				skipped++
				runLogger.Info().
					Str("depositor", grant.Depositor).
					Str("side", string(grant.Side)).
					Str("reason", grant.SkipReason).
					Msg("Deposit recorded without reward")
			}
		}
	}

	if err := state.SetScanCursor(newCursor); err != nil {
		runLogger.Error().Err(err).Int64("height", newCursor).Msg("Settlement aborted: Failed to advance scan cursor.")
		metrics.RecordSettlement(false, 0, skipped)
		return
	}
	metrics.RecordScanHeight(newCursor)

	// --- Phase 2: Pay Pending Grants ---
	pending, err := state.ListPendingGrants(settleBatchLimit)
	if err != nil {
		runLogger.Error().Err(err).Msg("Settlement aborted: Failed to list pending grants.")
		metrics.RecordSettlement(false, 0, skipped)
		return
	}

	paid := 0
	if len(pending) > 0 {
		runLogger.Info().Int("pending", len(pending)).Msg("Phase 2: Settling pending grants...")

		if err := preflight.CheckIncentiveFunds(z.reader, config.DepositAddress, pending); err != nil {
			runLogger.Warn().Err(err).
				Int("pending", len(pending)).
				Msg("Incentive reserve cannot cover the pending batch; payout deferred")
		} else if z.payouts == nil {
			z.logGrantPreview(runLogger, pending)
		} else {
			result, err := z.payouts.ExecuteIncentivePayout(ctx, pending)
			if err != nil {
				runLogger.Error().Err(err).Msg("Settlement aborted: Incentive payout failed.")
				metrics.RecordSettlement(false, 0, skipped)
				return
			}
			// An empty hash means the builder previewed instead of
			// broadcasting; the grants stay pending for a live run.
			if result.TxHash != "" {
				grantIDs := make([]int64, 0, len(pending))
				for _, grant := range pending {
					grantIDs = append(grantIDs, grant.ID)
				}
				if err := state.MarkGrantsPaid(grantIDs, result.TxHash); err != nil {
					runLogger.Error().Err(err).Str("txHash", result.TxHash).Msg("Failed to mark grants paid")
					metrics.RecordSettlement(false, 0, skipped)
					return
				}
				paid = len(pending)
				runLogger.Info().
					Int("paid", paid).
					Str("txHash", result.TxHash).
					Msg("Incentive batch settled")
			}
		}
	}

	metrics.RecordPendingGrants(len(pending) - paid)
	metrics.RecordSettlement(true, paid, skipped)

	runLogger.Info().
		Int("deposits", len(deposits)).
		Int("paid", paid).
		Int("skipped", skipped).
		Int64("cursor", newCursor).
		Str("settleDuration", time.Since(settleStartTime).String()).
		Msg("--- Settlement Run Completed ---")
}

// priceDeposit resolves one observed deposit into an incentive grant. The
// supplies are read at the block before the deposit landed so the deposit
// cannot dilute its own reward.
func (z *ZTM) priceDeposit(deposit types.DepositEvent, params types.TrancheParameters, available sdkmath.Int) (types.IncentiveGrant, error) {
	supplies, err := z.reader.SuppliesAtHeight(deposit.Height - 1)
	if err != nil {
		return types.IncentiveGrant{}, fmt.Errorf("failed to read supplies at height %d: %w", deposit.Height-1, err)
	}

	grant := types.IncentiveGrant{
		TxHash:             deposit.TxHash,
		MsgIndex:           deposit.MsgIndex,
		Height:             deposit.Height,
		Depositor:          deposit.Depositor,
		Side:               deposit.Side,
		DepositDenom:       deposit.DepositDenom,
		DepositAmount:      deposit.DepositAmount,
		StandardizedAmount: deposit.StandardizedAmount,
		SeniorSupplyAt:     supplies.Senior,
		JuniorSupplyAt:     supplies.Junior,
		Reward:             sdkmath.ZeroInt(),
		Status:             types.GrantPending,
		CreatedAt:          time.Now().UTC(),
	}

	if params.DepositsPaused {
		grant.Status = types.GrantSkipped
		grant.SkipReason = "deposits paused"
		return grant, nil
	}

	if deposit.Side == types.TrancheJunior {
		open, err := allocator.JuniorDepositOpen(supplies.Junior, supplies.Senior, deposit.StandardizedAmount, params.MaxTrancheRatioBips)
		if err != nil {
			return types.IncentiveGrant{}, fmt.Errorf("junior-open gate failed: %w", err)
		}
		if !open {
			grant.Status = types.GrantSkipped
			grant.SkipReason = "junior tranche at ratio cap"
			return grant, nil
		}
	}

	reward, err := allocator.CalculateDepositIncentive(
		deposit.Side, deposit.StandardizedAmount,
		supplies.Senior, supplies.Junior,
		available, params,
	)
	if err != nil {
		return types.IncentiveGrant{}, fmt.Errorf("incentive pricing failed: %w", err)
	}

	if reward.IsZero() {
		grant.Status = types.GrantSkipped
		if available.IsZero() {
			grant.SkipReason = "incentive reserve exhausted"
		} else {
			grant.SkipReason = "curve priced the deposit at zero"
		}
		return grant, nil
	}

	grant.Reward = reward
	// The calculator clamps to the available balance, so equality marks the
	// cap binding.
	grant.Capped = reward.Equal(available)
	return grant, nil
}

// failEpoch persists a failure snapshot so the epoch is visible in history
// with the error attached, then counts the failed run. Funds are untouched.
func (z *ZTM) failEpoch(runLogger zerolog.Logger, snapshot *types.EpochSnapshot, reason string, err error) {
	runLogger.Error().Err(err).Msgf("Epoch failed: %s", reason)

	snapshot.Success = false
	snapshot.ErrorMessage = fmt.Sprintf("%s: %v", reason, err)
	if _, saveErr := state.SaveEpochSnapshot(*snapshot); saveErr != nil {
		runLogger.Error().Err(saveErr).Msg("Failed to persist failure snapshot")
	}
	metrics.RecordDistribution(types.PayoutPlan{}, false)
}

// smoothColumn folds the current observation into the previous epoch's EMA
// column. The first funded epoch seeds the series with the raw value.
func (z *ZTM) smoothColumn(previous *types.EpochSnapshot, pick func(types.EpochSnapshot) sdkmath.Int, current sdkmath.Int, periods int64, runLogger zerolog.Logger) sdkmath.Int {
	if previous == nil {
		return current
	}
	base := pick(*previous)
	if base.IsNil() {
		return current
	}
	smoothed, err := allocator.CalculateEMA(base, current, periods)
	if err != nil {
		runLogger.Warn().Err(err).Msg("EMA fold failed, seeding column with raw value")
		return current
	}
	return smoothed
}

func pickEmaYield(s types.EpochSnapshot) sdkmath.Int  { return s.EmaYield }
func pickEmaSenior(s types.EpochSnapshot) sdkmath.Int { return s.EmaSeniorSupply }
func pickEmaJunior(s types.EpochSnapshot) sdkmath.Int { return s.EmaJuniorSupply }

// logPlanPreview logs every leg a dry-run distribution would have paid.
func (z *ZTM) logPlanPreview(runLogger zerolog.Logger, plan types.PayoutPlan) {
	for _, leg := range plan.Legs {
		runLogger.Info().
			Str("purpose", string(leg.Purpose)).
			Str("name", leg.Name).
			Str("recipient", leg.Recipient).
			Str("amount", leg.Amount.String()).
			Str("denom", leg.Denom).
			Msg("DRY RUN: would pay distribution leg")
	}
	runLogger.Warn().
		Int64("epoch", plan.EpochNumber).
		Int("legs", len(plan.Legs)).
		Msg("DRY RUN MODE: distribution plan not broadcast")
}

// logGrantPreview logs every grant a dry-run settlement would have paid.
// Grants stay pending so a live deployment can settle them later.
func (z *ZTM) logGrantPreview(runLogger zerolog.Logger, grants []types.IncentiveGrant) {
	total := sdkmath.ZeroInt()
	for _, grant := range grants {
		total = total.Add(grant.Reward)
		runLogger.Info().
			Str("depositor", grant.Depositor).
			Str("side", string(grant.Side)).
			Str("reward", grant.Reward.String()).
			Msg("DRY RUN: would pay incentive grant")
	}
	runLogger.Warn().
		Int("grants", len(grants)).
		Str("totalReward", total.String()).
		Msg("DRY RUN MODE: incentive batch not broadcast")
}

// newEpochSnapshot seeds a snapshot with every amount column zeroed so a
// failure at any step still persists cleanly.
func newEpochSnapshot(epochNumber, height int64, supplies types.TrancheSupply) types.EpochSnapshot {
	zero := sdkmath.ZeroInt()
	return types.EpochSnapshot{
		EpochNumber:     epochNumber,
		Timestamp:       time.Now().UTC(),
		Height:          height,
		SeniorSupply:    supplies.Senior,
		JuniorSupply:    supplies.Junior,
		GrossYield:      zero,
		ProtocolFee:     zero,
		YieldBag:        zero,
		CumulativeYield: zero,
		YieldTarget:     zero,
		SeniorRate:      zero,
		JuniorRate:      zero,
		SeniorOwed:      zero,
		JuniorOwed:      zero,
		Residual:        zero,
		EmaYield:        zero,
		EmaSeniorSupply: zero,
		EmaJuniorSupply: zero,
		TxHashes:        make([]string, 0),
	}
}

// applyPlanToSnapshot copies the resolved waterfall summary onto the epoch
// snapshot. All plan summary fields are standardized.
func applyPlanToSnapshot(snapshot *types.EpochSnapshot, plan types.PayoutPlan) {
	snapshot.Branch = plan.Branch
	snapshot.YieldTarget = plan.YieldTarget
	snapshot.SeniorRate = plan.SeniorRate
	snapshot.JuniorRate = plan.JuniorRate
	snapshot.GrossYield = plan.GrossYield
	snapshot.ProtocolFee = plan.ProtocolFee
	snapshot.YieldBag = plan.YieldBag
	snapshot.SeniorOwed = plan.SeniorOwed
	snapshot.JuniorOwed = plan.JuniorOwed
	snapshot.Residual = plan.Residual
}

// standardizeOrZero converts a native amount to 18 decimals, falling back to
// zero when the conversion cannot succeed. Only used for snapshot columns.
func standardizeOrZero(amount sdkmath.Int, decimals int64) sdkmath.Int {
	std, err := utils.StandardizeAmount(amount, decimals)
	if err != nil {
		return sdkmath.ZeroInt()
	}
	return std
}
