package domain

// EVaultMetric is one lending pool's reported state at one block.
// TotalAssets and TotalAssetsUsd share the same raw fixed-point base,
// so dividing them yields a price per unit with the scale cancelled.
type EVaultMetric struct {
	ChainID        string
	VaultAddress   string
	TotalAssets    string // raw units
	TotalAssetsUsd string // raw units
	TotalBorrows   string
	Decimals       string
	Asset          string
	Symbol         string
	Name           string
	InterestRate   string
	BlockNumber    int64
	BlockTimestamp int64
}

// Block returns the metric's block number.
func (m *EVaultMetric) Block() int64 { return m.BlockNumber }
