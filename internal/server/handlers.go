package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/risk"
	"lending-risk-monitor/internal/storage"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// vaultView is the JSON shape of one valued vault.
type vaultView struct {
	VaultAddress      string  `json:"vault_address"`
	CreditVault       string  `json:"credit_vault"`
	DebtVault         string  `json:"debt_vault"`
	MaxReleaseUSD     float64 `json:"max_release_usd"`
	MaxRepayUSD       float64 `json:"max_repay_usd"`
	TotalAssetsUSD    float64 `json:"total_assets_usd"`
	UserCollateralUSD float64 `json:"user_collateral_usd"`
	CreditPrice       float64 `json:"credit_price"`
	DebtPrice         float64 `json:"debt_price"`
	SnapshotBlock     int64   `json:"snapshot_block"`
	CanLiquidate      bool    `json:"can_liquidate"`
	HasPricingErrors  bool    `json:"has_pricing_errors"`
}

type snapshotView struct {
	TargetBlock   int64       `json:"target_block"`
	Timestamp     int64       `json:"timestamp"`
	PricesBlock   int64       `json:"prices_block"`
	TotalVaults   int         `json:"total_vaults"`
	Vaults        []vaultView `json:"vaults"`
	PricingErrors []string    `json:"pricing_errors,omitempty"`
	FetchErrors   []string    `json:"fetch_errors,omitempty"`
}

func toSnapshotView(snap *domain.BlockSnapshot) snapshotView {
	view := snapshotView{
		TargetBlock:   snap.TargetBlock,
		Timestamp:     snap.Timestamp,
		PricesBlock:   snap.PricesBlock,
		TotalVaults:   snap.TotalVaults,
		Vaults:        make([]vaultView, 0, len(snap.VaultSnapshots)),
		PricingErrors: snap.PricingErrors,
		FetchErrors:   snap.FetchErrors,
	}
	for _, vs := range snap.VaultSnapshots {
		view.Vaults = append(view.Vaults, toVaultView(vs))
	}
	return view
}

func toVaultView(vs *domain.EnhancedSnapshot) vaultView {
	vv := vaultView{
		VaultAddress:      vs.VaultAddress,
		CreditVault:       vs.CreditVault,
		DebtVault:         vs.DebtVault,
		MaxReleaseUSD:     vs.USD.MaxRelease,
		MaxRepayUSD:       vs.USD.MaxRepay,
		TotalAssetsUSD:    vs.USD.TotalAssets,
		UserCollateralUSD: vs.USD.UserCollateral,
		CreditPrice:       vs.CreditPrice,
		DebtPrice:         vs.DebtPrice,
		SnapshotBlock:     vs.SnapshotBlock,
		HasPricingErrors:  vs.HasPricingErrors,
	}
	if vs.Snapshot != nil {
		vv.CanLiquidate = vs.Snapshot.CanLiquidate
	}
	return vv
}

type metricView struct {
	VaultAddress   string `json:"vault_address"`
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	Asset          string `json:"asset"`
	TotalAssets    string `json:"total_assets"`
	TotalAssetsUsd string `json:"total_assets_usd"`
	TotalBorrows   string `json:"total_borrows"`
	InterestRate   string `json:"interest_rate"`
	BlockNumber    int64  `json:"block_number"`
	BlockTimestamp int64  `json:"block_timestamp"`
}

func toMetricView(m *domain.EVaultMetric) metricView {
	return metricView{
		VaultAddress:   m.VaultAddress,
		Symbol:         m.Symbol,
		Name:           m.Name,
		Asset:          m.Asset,
		TotalAssets:    m.TotalAssets,
		TotalAssetsUsd: m.TotalAssetsUsd,
		TotalBorrows:   m.TotalBorrows,
		InterestRate:   m.InterestRate,
		BlockNumber:    m.BlockNumber,
		BlockTimestamp: m.BlockTimestamp,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if s.indexer != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if upstream, err := s.indexer.Health(ctx); err != nil {
			resp["status"] = "degraded"
			resp["indexer_error"] = err.Error()
		} else {
			resp["indexer"] = upstream
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	block, ok := blockParam(w, r)
	if !ok {
		return
	}
	snap := s.orch.CreateSnapshotAtBlock(r.Context(), block)
	writeJSON(w, http.StatusOK, toSnapshotView(snap))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	block, ok := blockParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Summarize(r.Context(), block))
}

func (s *Server) handleHealthFactors(w http.ResponseWriter, r *http.Request) {
	block, ok := blockParam(w, r)
	if !ok {
		return
	}
	snap := s.orch.CreateSnapshotAtBlock(r.Context(), block)
	points := risk.Points(snap.VaultSnapshots)
	writeJSON(w, http.StatusOK, map[string]any{
		"target_block": snap.TargetBlock,
		"prices_block": snap.PricesBlock,
		"stats":        risk.Summarize(points),
		"points":       points,
	})
}

func (s *Server) handleVaultSet(w http.ResponseWriter, r *http.Request) {
	block, ok := blockParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.orch.VaultAddressesAt(r.Context(), block))
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	block, ok := blockParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.orch.PricesAt(r.Context(), block))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	blockA := queryInt64(r, "block_a", 0)
	blockB := queryInt64(r, "block_b", 0)
	if blockA <= 0 || blockB <= 0 {
		writeError(w, http.StatusBadRequest, "block_a and block_b query parameters are required")
		return
	}
	writeJSON(w, http.StatusOK, s.orch.CompareBlocks(r.Context(), blockA, blockB))
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	start := queryInt64(r, "start", 0)
	end := queryInt64(r, "end", 0)
	step := queryInt64(r, "step", 0)
	if start <= 0 || end <= 0 || step <= 0 {
		writeError(w, http.StatusBadRequest, "start, end, and step query parameters are required")
		return
	}
	if end < start {
		writeError(w, http.StatusBadRequest, "end must be >= start")
		return
	}
	writeJSON(w, http.StatusOK, s.orch.RangeSummary(r.Context(), start, end, step))
}

func (s *Server) handleLatestMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, stale, errs := s.cache.Latest(r.Context())
	views := make([]metricView, 0, len(metrics))
	for _, m := range metrics {
		views = append(views, toMetricView(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": views,
		"stale":   stale,
		"errors":  errs,
	})
}

func (s *Server) handleLatestVaults(w http.ResponseWriter, r *http.Request) {
	view := s.orch.LatestView(r.Context())
	vaults := make([]vaultView, 0, len(view.Vaults))
	for _, vs := range view.Vaults {
		vaults = append(vaults, toVaultView(vs))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vaults":         vaults,
		"prices_block":   view.PricesBlock,
		"stale":          view.Stale,
		"pricing_errors": view.PricingErrors,
		"fetch_errors":   view.FetchErrors,
	})
}

type externalLiquidationView struct {
	VaultAddress     string `json:"vault_address"`
	Liquidator       string `json:"liquidator"`
	Violator         string `json:"violator"`
	Collateral       string `json:"collateral"`
	RepayAssets      string `json:"repay_assets"`
	RepayAssetsUsd   string `json:"repay_assets_usd"`
	CollateralAmount string `json:"collateral_amount"`
	DebtAmount       string `json:"debt_amount"`
	BlockNumber      int64  `json:"block_number"`
	BlockTimestamp   int64  `json:"block_timestamp"`
	TxnHash          string `json:"txn_hash"`
}

func (s *Server) handleExternalLiquidations(w http.ResponseWriter, r *http.Request) {
	limit, offset := listParams(r)
	liqs, err := s.indexer.ExternalLiquidations(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	views := make([]externalLiquidationView, 0, len(liqs))
	for _, l := range liqs {
		views = append(views, externalLiquidationView{
			VaultAddress:     l.VaultAddress,
			Liquidator:       l.Liquidator,
			Violator:         l.Violator,
			Collateral:       l.Collateral,
			RepayAssets:      l.RepayAssets,
			RepayAssetsUsd:   l.RepayAssetsUsd,
			CollateralAmount: l.CollateralAmount,
			DebtAmount:       l.DebtAmount,
			BlockNumber:      l.BlockNumber,
			BlockTimestamp:   l.BlockTimestamp,
			TxnHash:          l.TxnHash,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type internalLiquidationView struct {
	CollateralVault string `json:"collateral_vault"`
	CreditVault     string `json:"credit_vault"`
	DebtVault       string `json:"debt_vault"`
	Liquidator      string `json:"liquidator"`
	CreditReserved  string `json:"credit_reserved"`
	Debt            string `json:"debt"`
	LiqLTV          string `json:"liq_ltv"`
	BlockNumber     int64  `json:"block_number"`
	BlockTimestamp  int64  `json:"block_timestamp"`
	TxnHash         string `json:"txn_hash"`
}

func (s *Server) handleInternalLiquidations(w http.ResponseWriter, r *http.Request) {
	limit, offset := listParams(r)
	liqs, err := s.indexer.InternalLiquidations(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	views := make([]internalLiquidationView, 0, len(liqs))
	for _, l := range liqs {
		views = append(views, internalLiquidationView{
			CollateralVault: l.CollateralVault,
			CreditVault:     l.CreditVault,
			DebtVault:       l.DebtVault,
			Liquidator:      l.Liquidator,
			CreditReserved:  l.CreditReserved,
			Debt:            l.Debt,
			LiqLTV:          l.LiqLTV,
			BlockNumber:     l.BlockNumber,
			BlockTimestamp:  l.BlockTimestamp,
			TxnHash:         l.TxnHash,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type govEventView struct {
	EventType      string            `json:"event_type"`
	VaultAddress   string            `json:"vault_address"`
	BlockNumber    int64             `json:"block_number"`
	BlockTimestamp int64             `json:"block_timestamp"`
	TxnHash        string            `json:"txn_hash"`
	Params         map[string]string `json:"params,omitempty"`
}

func (s *Server) handleGovEvents(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "eventType")
	eventType := domain.GovEventType(raw)
	known := false
	for _, et := range domain.AllGovEventTypes {
		if et == eventType {
			known = true
			break
		}
	}
	if !known {
		writeError(w, http.StatusNotFound, "unknown governance event type: "+raw)
		return
	}

	limit, offset := listParams(r)
	events, err := s.indexer.GovSetEvents(r.Context(), eventType, limit, offset)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	views := make([]govEventView, 0, len(events))
	for _, ev := range events {
		views = append(views, govEventView{
			EventType:      string(ev.EventType),
			VaultAddress:   ev.VaultAddress,
			BlockNumber:    ev.BlockNumber,
			BlockTimestamp: ev.BlockTimestamp,
			TxnHash:        ev.TxnHash,
			Params:         ev.Params,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleArchiveLatest(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "summary archive not configured")
		return
	}
	limit, _ := listParams(r)
	summaries, err := s.archive.GetLatest(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleArchiveByBlock(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "summary archive not configured")
		return
	}
	block, ok := blockParam(w, r)
	if !ok {
		return
	}
	summary, err := s.archive.GetByBlock(r.Context(), block)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no summary archived for block "+strconv.FormatInt(block, 10))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleArchiveRange(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "summary archive not configured")
		return
	}
	start := queryInt64(r, "start", 0)
	end := queryInt64(r, "end", 0)
	if start <= 0 || end <= 0 || end < start {
		writeError(w, http.StatusBadRequest, "start and end query parameters are required, end >= start")
		return
	}
	summaries, err := s.archive.GetRange(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if s.series == nil {
		writeError(w, http.StatusServiceUnavailable, "summary series store not configured")
		return
	}
	start := queryInt64(r, "start", 0)
	end := queryInt64(r, "end", 0)
	if start <= 0 || end <= 0 || end < start {
		writeError(w, http.StatusBadRequest, "start and end query parameters are required, end >= start")
		return
	}
	summaries, err := s.series.GetRange(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Helpers

func blockParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "block")
	block, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || block <= 0 {
		writeError(w, http.StatusBadRequest, "invalid block number: "+raw)
		return 0, false
	}
	return block, true
}

func queryInt64(r *http.Request, key string, def int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func listParams(r *http.Request) (limit, offset int) {
	limit = int(queryInt64(r, "limit", defaultListLimit))
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset = int(queryInt64(r, "offset", 0))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
