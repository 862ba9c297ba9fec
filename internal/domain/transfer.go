package domain

// TransferAsset identifies which asset a transfer moved.
type TransferAsset string

const (
	AssetToken  TransferAsset = "TOKEN"  // the analyzed token
	AssetNative TransferAsset = "NATIVE" // SOL
)

// Transfer is one transfer from a wallet's history. Amount is always
// positive; direction is carried by Source and Destination.
type Transfer struct {
	Source      string // sending wallet address
	Destination string // receiving wallet address
	Amount      float64
	Asset       TransferAsset
	TimestampMs int64
	TxSignature string
}

// FundingEdge is a transfer interpreted as "source capitalized destination"
// because it landed inside the destination's priming window. Immutable fact
// derived from transfer history.
type FundingEdge struct {
	Source      string
	Destination string
	Amount      float64
	TimestampMs int64
}

// WalletHistory is the observed transfer history of one top holder,
// restricted by the ingestion layer to the wallet's priming period.
type WalletHistory struct {
	Wallet          string
	FirstAcquiredMs int64      // first holding of the analyzed token, 0 if unknown
	Inbound         []Transfer // transfers into the wallet
	Outbound        []Transfer // transfers out of the wallet
}

