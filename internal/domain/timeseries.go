package domain

// PriceSample is one point of the price/volume time series.
// Series are ordered by strictly increasing TimestampMs.
// Corresponds to price_timeseries table in ClickHouse.
type PriceSample struct {
	Mint        string
	TimestampMs int64
	Price       float64
	Volume      float64
}

// WhaleFlowPoint is the net balance delta (accumulation minus distribution)
// of whale wallets over one sampling interval, aligned with the price series.
// Corresponds to whale_flow_timeseries table in ClickHouse.
type WhaleFlowPoint struct {
	Mint        string
	TimestampMs int64
	NetFlow     float64 // token units; positive = accumulation
	WalletCount int     // whales contributing to this interval
}
