package indexer

import (
	"fmt"
	"strconv"

	"lending-risk-monitor/internal/domain"
)

// Wire types mirror the indexer API's JSON, which reports every
// numeric field as a string. Parsing into domain records happens here,
// at the boundary, so the rest of the codebase never has to guess
// whether a field exists or what it parses to.

type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type collateralVaultSnapshotWire struct {
	ChainID                        string `json:"chainId"`
	VaultAddress                   string `json:"vaultAddress"`
	CreditVault                    string `json:"creditVault"`
	DebtVault                      string `json:"debtVault"`
	MaxRelease                     string `json:"maxRelease"`
	MaxRepay                       string `json:"maxRepay"`
	TotalAssetsDepositedOrReserved string `json:"totalAssetsDepositedOrReserved"`
	UserOwnedCollateral            string `json:"userOwnedCollateral"`
	LiqLTV                         string `json:"twyneLiqLtv"`
	CanLiquidate                   bool   `json:"canLiquidate"`
	IsExternallyLiquidated         bool   `json:"isExternallyLiquidated"`
	BlockNumber                    string `json:"blockNumber"`
	BlockTimestamp                 string `json:"blockTimestamp"`
	LogIndex                       string `json:"logIndex"`
}

type snapshotsResponse struct {
	LatestSnapshots []collateralVaultSnapshotWire `json:"latestSnapshots"`
}

type vaultHistoryResponse struct {
	VaultAddress string                        `json:"vaultAddress"`
	Snapshots    []collateralVaultSnapshotWire `json:"snapshots"`
}

type vaultCreationWire struct {
	VaultAddress string `json:"vaultAddress"`
	Creator      string `json:"creator"`
	Factory      string `json:"factory"`
	Asset        string `json:"asset"`
	TargetVault  string `json:"targetVault"`
	BlockNumber  string `json:"blockNumber"`
	TxnHash      string `json:"txnHash"`
}

type vaultCreationsResponse struct {
	Vaults []vaultCreationWire `json:"vaults"`
}

type evaultMetricWire struct {
	ChainID        string `json:"chainId"`
	VaultAddress   string `json:"vaultAddress"`
	TotalAssets    string `json:"totalAssets"`
	TotalAssetsUsd string `json:"totalAssetsUsd"`
	TotalBorrows   string `json:"totalBorrows"`
	Decimals       string `json:"decimals"`
	Asset          string `json:"asset"`
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	InterestRate   string `json:"interestRate"`
	BlockNumber    string `json:"blockNumber"`
	BlockTimestamp string `json:"blockTimestamp"`
}

type evaultMetricsResponse struct {
	VaultAddress  string             `json:"vaultAddress,omitempty"`
	Metrics       []evaultMetricWire `json:"metrics,omitempty"`
	LatestMetrics []evaultMetricWire `json:"latestMetrics,omitempty"`
}

type externalLiquidationWire struct {
	VaultAddress     string `json:"vaultAddress"`
	Liquidator       string `json:"liquidator"`
	Violator         string `json:"violator"`
	Collateral       string `json:"collateral"`
	RepayAssets      string `json:"repayAssets"`
	RepayAssetsUsd   string `json:"repayAssetsUsd"`
	YieldBalance     string `json:"yieldBalance"`
	CollateralAmount string `json:"collateralAmount"`
	DebtAmount       string `json:"debtAmount"`
	BlockNumber      string `json:"blockNumber"`
	BlockTimestamp   string `json:"blockTimestamp"`
	TxnHash          string `json:"txnHash"`
}

type externalLiquidationsResponse struct {
	ExternalLiquidations []externalLiquidationWire `json:"externalLiquidations"`
}

type internalLiquidationWire struct {
	CollateralVault string `json:"collateral_vault"`
	CreditVault     string `json:"credit_vault"`
	DebtVault       string `json:"debt_vault"`
	Liquidator      string `json:"liquidator_address"`
	CreditReserved  string `json:"credit_reserved"`
	Debt            string `json:"debt"`
	LiqLTV          string `json:"twyne_liq_ltv"`
	BlockNumber     string `json:"block_number"`
	BlockTimestamp  string `json:"block_timestamp"`
	TxnHash         string `json:"txn_hash"`
}

type internalLiquidationsResponse struct {
	InternalLiquidations []internalLiquidationWire `json:"internalLiquidations"`
}

type govEventWire struct {
	VaultAddress   string            `json:"vaultAddress"`
	ChainID        string            `json:"chainId"`
	BlockNumber    string            `json:"blockNumber"`
	BlockTimestamp string            `json:"blockTimestamp"`
	TxnHash        string            `json:"txnHash"`
	Params         map[string]string `json:"params,omitempty"`
}

type govEventsResponse struct {
	Events []govEventWire `json:"events"`
}

// HealthStatus is the indexer's health report.
type HealthStatus struct {
	Status              string `json:"status"`
	Timestamp           string `json:"timestamp"`
	TotalVaults         int    `json:"totalVaults,omitempty"`
	TotalMetricsRecords int    `json:"totalMetricsRecords,omitempty"`
}

// parseBlock parses a required stringly-typed integer field.
func parseBlock(field, raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing %s", field)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return n, nil
}

// parseOptBlock parses an optional stringly-typed integer field,
// collapsing absence and garbage to zero.
func parseOptBlock(raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (w collateralVaultSnapshotWire) toDomain() (*domain.CollateralVaultSnapshot, error) {
	if w.VaultAddress == "" {
		return nil, fmt.Errorf("snapshot missing vaultAddress")
	}
	block, err := parseBlock("blockNumber", w.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("snapshot for %s: %w", w.VaultAddress, err)
	}
	return &domain.CollateralVaultSnapshot{
		ChainID:                        w.ChainID,
		VaultAddress:                   w.VaultAddress,
		CreditVault:                    w.CreditVault,
		DebtVault:                      w.DebtVault,
		MaxRelease:                     w.MaxRelease,
		MaxRepay:                       w.MaxRepay,
		TotalAssetsDepositedOrReserved: w.TotalAssetsDepositedOrReserved,
		UserOwnedCollateral:            w.UserOwnedCollateral,
		LiqLTV:                         w.LiqLTV,
		CanLiquidate:                   w.CanLiquidate,
		IsExternallyLiquidated:         w.IsExternallyLiquidated,
		BlockNumber:                    block,
		BlockTimestamp:                 parseOptBlock(w.BlockTimestamp),
		LogIndex:                       parseOptBlock(w.LogIndex),
	}, nil
}

func (w vaultCreationWire) toDomain() (*domain.VaultCreation, error) {
	if w.VaultAddress == "" {
		return nil, fmt.Errorf("vault creation missing vaultAddress")
	}
	block, err := parseBlock("blockNumber", w.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("vault creation for %s: %w", w.VaultAddress, err)
	}
	return &domain.VaultCreation{
		VaultAddress: w.VaultAddress,
		Creator:      w.Creator,
		Factory:      w.Factory,
		Asset:        w.Asset,
		TargetVault:  w.TargetVault,
		BlockNumber:  block,
		TxnHash:      w.TxnHash,
	}, nil
}

func (w evaultMetricWire) toDomain() (*domain.EVaultMetric, error) {
	if w.VaultAddress == "" {
		return nil, fmt.Errorf("pool metric missing vaultAddress")
	}
	block, err := parseBlock("blockNumber", w.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("pool metric for %s: %w", w.VaultAddress, err)
	}
	return &domain.EVaultMetric{
		ChainID:        w.ChainID,
		VaultAddress:   w.VaultAddress,
		TotalAssets:    w.TotalAssets,
		TotalAssetsUsd: w.TotalAssetsUsd,
		TotalBorrows:   w.TotalBorrows,
		Decimals:       w.Decimals,
		Asset:          w.Asset,
		Symbol:         w.Symbol,
		Name:           w.Name,
		InterestRate:   w.InterestRate,
		BlockNumber:    block,
		BlockTimestamp: parseOptBlock(w.BlockTimestamp),
	}, nil
}

func (w externalLiquidationWire) toDomain() *domain.ExternalLiquidation {
	return &domain.ExternalLiquidation{
		VaultAddress:     w.VaultAddress,
		Liquidator:       w.Liquidator,
		Violator:         w.Violator,
		Collateral:       w.Collateral,
		RepayAssets:      w.RepayAssets,
		RepayAssetsUsd:   w.RepayAssetsUsd,
		YieldBalance:     w.YieldBalance,
		CollateralAmount: w.CollateralAmount,
		DebtAmount:       w.DebtAmount,
		BlockNumber:      parseOptBlock(w.BlockNumber),
		BlockTimestamp:   parseOptBlock(w.BlockTimestamp),
		TxnHash:          w.TxnHash,
	}
}

func (w internalLiquidationWire) toDomain() *domain.InternalLiquidation {
	return &domain.InternalLiquidation{
		CollateralVault: w.CollateralVault,
		CreditVault:     w.CreditVault,
		DebtVault:       w.DebtVault,
		Liquidator:      w.Liquidator,
		CreditReserved:  w.CreditReserved,
		Debt:            w.Debt,
		LiqLTV:          w.LiqLTV,
		BlockNumber:     parseOptBlock(w.BlockNumber),
		BlockTimestamp:  parseOptBlock(w.BlockTimestamp),
		TxnHash:         w.TxnHash,
	}
}

func (w govEventWire) toDomain(eventType domain.GovEventType) (*domain.GovEvent, error) {
	if w.VaultAddress == "" {
		return nil, fmt.Errorf("%s event missing vaultAddress", eventType)
	}
	block, err := parseBlock("blockNumber", w.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("%s event for %s: %w", eventType, w.VaultAddress, err)
	}
	return &domain.GovEvent{
		EventType:      eventType,
		VaultAddress:   w.VaultAddress,
		ChainID:        w.ChainID,
		BlockNumber:    block,
		BlockTimestamp: parseOptBlock(w.BlockTimestamp),
		TxnHash:        w.TxnHash,
		Params:         w.Params,
	}, nil
}
