// Package ingestion turns raw on-chain records into the engine's domain
// types: it validates addresses, converts raw base-unit amounts into ui
// amounts, enforces deterministic ordering and fans wallet history fetches
// out over a bounded worker pool.
package ingestion

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"solana-risk-engine/internal/domain"
)

// RawHolder is one holder record as delivered by an upstream source,
// amounts still in base units.
type RawHolder struct {
	Owner     string
	RawAmount string // integer base units as decimal string
}

// RawSnapshot is an unconverted holder distribution.
type RawSnapshot struct {
	Mint         string
	CapturedAtMs int64
	RawSupply    string
	Decimals     int
	Holders      []RawHolder
}

// RawTransfer is one transfer record as delivered by an upstream source.
type RawTransfer struct {
	Source      string
	Destination string
	RawAmount   string
	Decimals    int
	Asset       domain.TransferAsset
	TimestampMs int64
	TxSignature string
}

// Adapter converts raw records into validated domain types. Invalid
// records are dropped and logged rather than failing the whole batch; a
// single malformed holder must not block an analysis.
type Adapter struct {
	logger *log.Logger
}

// NewAdapter creates an adapter.
func NewAdapter(logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.New(log.Writer(), "[ingestion] ", log.LstdFlags)
	}
	return &Adapter{logger: logger}
}

// Snapshot converts a raw holder distribution into a canonical snapshot.
// The mint must be a valid address; holders with malformed addresses or
// unparseable amounts are skipped.
func (a *Adapter) Snapshot(raw *RawSnapshot) (*domain.HolderSnapshot, error) {
	if raw == nil {
		return nil, fmt.Errorf("adapt snapshot: nil input")
	}
	if err := ValidateAddress(raw.Mint); err != nil {
		return nil, fmt.Errorf("adapt snapshot: mint: %w", err)
	}

	supply, err := uiAmount(raw.RawSupply, raw.Decimals)
	if err != nil {
		return nil, fmt.Errorf("adapt snapshot for %s: supply: %w", raw.Mint, err)
	}

	snapshot := &domain.HolderSnapshot{
		Mint:         raw.Mint,
		CapturedAtMs: raw.CapturedAtMs,
		TotalSupply:  supply,
	}

	for _, h := range raw.Holders {
		if err := ValidateAddress(h.Owner); err != nil {
			a.logger.Printf("dropping holder with malformed address: %v", err)
			continue
		}
		balance, err := uiAmount(h.RawAmount, raw.Decimals)
		if err != nil {
			a.logger.Printf("dropping holder %s: %v", h.Owner, err)
			continue
		}
		if balance < 0 {
			a.logger.Printf("dropping holder %s: negative balance", h.Owner)
			continue
		}
		snapshot.Holders = append(snapshot.Holders, domain.HolderBalance{
			Address: h.Owner,
			Balance: balance,
		})
	}

	snapshot.SortHolders()
	return snapshot, nil
}

// History converts raw transfers into a wallet history. A record whose
// source is the wallet itself is outbound; everything else is inbound.
// FirstAcquiredMs is the earliest token-denominated inbound transfer,
// 0 when the wallet never received the token through an observed transfer.
func (a *Adapter) History(wallet string, raws []RawTransfer) (*domain.WalletHistory, error) {
	if err := ValidateAddress(wallet); err != nil {
		return nil, fmt.Errorf("adapt history: wallet: %w", err)
	}

	history := &domain.WalletHistory{Wallet: wallet}
	for _, r := range raws {
		outbound := r.Source == wallet
		counterparty := r.Source
		if outbound {
			counterparty = r.Destination
		}
		if err := ValidateAddress(counterparty); err != nil {
			a.logger.Printf("dropping transfer for %s: counterparty: %v", wallet, err)
			continue
		}
		amount, err := uiAmount(r.RawAmount, r.Decimals)
		if err != nil {
			a.logger.Printf("dropping transfer %s: %v", r.TxSignature, err)
			continue
		}
		if amount <= 0 {
			continue
		}

		t := domain.Transfer{
			Source:      r.Source,
			Destination: r.Destination,
			Amount:      amount,
			Asset:       r.Asset,
			TimestampMs: r.TimestampMs,
			TxSignature: r.TxSignature,
		}
		if outbound {
			history.Outbound = append(history.Outbound, t)
		} else {
			t.Destination = wallet
			history.Inbound = append(history.Inbound, t)
		}
	}

	SortTransfers(history.Inbound)
	SortTransfers(history.Outbound)

	for _, t := range history.Inbound {
		if t.Asset == domain.AssetToken {
			history.FirstAcquiredMs = t.TimestampMs
			break
		}
	}

	return history, nil
}

// uiAmount converts a raw base-unit amount string into a ui amount.
// decimal avoids the float drift of naive division for large supplies.
func uiAmount(raw string, decimals int) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", raw, err)
	}
	return d.Shift(int32(-decimals)).InexactFloat64(), nil
}
