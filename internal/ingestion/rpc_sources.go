package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/solana"
)

// maxSignaturesPerWallet bounds the history depth fetched per top holder.
// Freshly launched tokens rarely have deeper relevant history.
const maxSignaturesPerWallet = 200

// RPCHolderSource fetches holder distributions from Solana RPC.
// getTokenLargestAccounts returns token accounts; their addresses stand in
// for holder identity, which is sufficient for concentration and clustering
// over a consistent snapshot.
type RPCHolderSource struct {
	rpc     solana.RPCClient
	adapter *Adapter
	now     func() time.Time
}

// NewRPCHolderSource creates an RPC-backed holder source.
func NewRPCHolderSource(rpc solana.RPCClient, adapter *Adapter) *RPCHolderSource {
	return &RPCHolderSource{rpc: rpc, adapter: adapter, now: time.Now}
}

// Fetch returns the current holder snapshot for a mint.
func (s *RPCHolderSource) Fetch(ctx context.Context, mint string) (*domain.HolderSnapshot, error) {
	supply, err := s.rpc.GetTokenSupply(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get token supply for %s: %w", mint, err)
	}

	accounts, err := s.rpc.GetTokenLargestAccounts(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get largest accounts for %s: %w", mint, err)
	}

	raw := &RawSnapshot{
		Mint:         mint,
		CapturedAtMs: s.now().UnixMilli(),
		RawSupply:    supply.Amount,
		Decimals:     supply.Decimals,
	}
	for _, a := range accounts {
		raw.Holders = append(raw.Holders, RawHolder{
			Owner:     a.Address,
			RawAmount: a.Amount.Amount,
		})
	}

	return s.adapter.Snapshot(raw)
}

var _ HolderSource = (*RPCHolderSource)(nil)

// RPCMetadataSource fetches mint account state from Solana RPC.
// Liquidity lock status is not observable through plain RPC and is
// reported as UNKNOWN.
type RPCMetadataSource struct {
	rpc solana.RPCClient
	now func() time.Time
}

// NewRPCMetadataSource creates an RPC-backed metadata source.
func NewRPCMetadataSource(rpc solana.RPCClient) *RPCMetadataSource {
	return &RPCMetadataSource{rpc: rpc, now: time.Now}
}

// Fetch returns token metadata for a given mint address.
func (s *RPCMetadataSource) Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	account, err := s.rpc.GetMintAccount(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account for %s: %w", mint, err)
	}
	if account == nil {
		return nil, fmt.Errorf("mint account %s not found", mint)
	}

	supply := decimal.NewFromUint64(account.Supply).Shift(int32(-account.Decimals))

	return &domain.TokenMetadata{
		Mint:            mint,
		Decimals:        account.Decimals,
		Supply:          supply.InexactFloat64(),
		MintAuthority:   account.MintAuthority,
		FreezeAuthority: account.FreezeAuthority,
		Liquidity:       domain.LiquidityUnknown,
		FetchedAtMs:     s.now().UnixMilli(),
	}, nil
}

var _ MetadataSource = (*RPCMetadataSource)(nil)

// RPCTransferSource reconstructs wallet transfers from transaction token
// and lamport balance deltas, both directions.
type RPCTransferSource struct {
	rpc     solana.RPCClient
	adapter *Adapter
}

// NewRPCTransferSource creates an RPC-backed transfer source.
func NewRPCTransferSource(rpc solana.RPCClient, adapter *Adapter) *RPCTransferSource {
	return &RPCTransferSource{rpc: rpc, adapter: adapter}
}

// Fetch returns transfers observed for a wallet, relative to the
// analyzed mint.
func (s *RPCTransferSource) Fetch(ctx context.Context, mint, wallet string) (*domain.WalletHistory, error) {
	sigs, err := s.rpc.GetSignaturesForAddress(ctx, wallet, &solana.SignaturesOpts{
		Limit: maxSignaturesPerWallet,
	})
	if err != nil {
		return nil, fmt.Errorf("get signatures for %s: %w", wallet, err)
	}

	var raws []RawTransfer
	for _, sig := range sigs {
		// Skip failed transactions
		if sig.Err != nil || sig.BlockTime == nil {
			continue
		}

		tx, err := s.rpc.GetTransaction(ctx, sig.Signature)
		if err != nil {
			return nil, fmt.Errorf("get transaction %s: %w", sig.Signature, err)
		}
		if tx == nil || tx.Meta == nil || tx.Message == nil {
			continue
		}

		raws = append(raws, extractTransfers(tx, mint, wallet)...)
	}

	return s.adapter.History(wallet, raws)
}

var _ TransferSource = (*RPCTransferSource)(nil)

// extractTransfers derives raw transfers for wallet from one transaction's
// balance deltas. A positive token delta (post - pre) is an inbound
// transfer, a negative one an outbound transfer, so net flow over a history
// is signed. The counterparty is the owner whose balance of the mint moved
// the opposite way, falling back to the fee payer when none is visible.
func extractTransfers(tx *solana.Transaction, mint, wallet string) []RawTransfer {
	keys := tx.Message.AccountKeys
	if len(keys) == 0 {
		return nil
	}
	feePayer := keys[0]
	timestampMs := tx.BlockTime * 1000

	var raws []RawTransfer

	pre := tokenBalanceFor(tx.Meta.PreTokenBalances, mint, wallet)
	post := tokenBalanceFor(tx.Meta.PostTokenBalances, mint, wallet)
	if pre != nil || post != nil {
		preAmount, postAmount := decimal.Zero, decimal.Zero
		decimals := 0
		if pre != nil {
			preAmount, _ = decimal.NewFromString(pre.Amount.Amount)
			decimals = pre.Amount.Decimals
		}
		if post != nil {
			postAmount, _ = decimal.NewFromString(post.Amount.Amount)
			decimals = post.Amount.Decimals
		}
		delta := postAmount.Sub(preAmount)

		counterparty := tokenCounterparty(tx.Meta, mint, wallet, delta.Sign())
		if counterparty == "" && feePayer != wallet {
			counterparty = feePayer
		}

		if counterparty != "" && !delta.IsZero() {
			raw := RawTransfer{
				Source:      counterparty,
				Destination: wallet,
				RawAmount:   delta.String(),
				Decimals:    decimals,
				Asset:       domain.AssetToken,
				TimestampMs: timestampMs,
				TxSignature: tx.Signature,
			}
			if delta.IsNegative() {
				raw.Source = wallet
				raw.Destination = counterparty
				raw.RawAmount = delta.Neg().String()
			}
			raws = append(raws, raw)
		}
	}

	// Native delta: lamport increase credited by another signer. Decreases
	// are dominated by fees and rent and are not reconstructed.
	if feePayer != wallet {
		for i, key := range keys {
			if key != wallet {
				continue
			}
			if i < len(tx.Meta.PreBalances) && i < len(tx.Meta.PostBalances) {
				if tx.Meta.PostBalances[i] > tx.Meta.PreBalances[i] {
					lamports := tx.Meta.PostBalances[i] - tx.Meta.PreBalances[i]
					raws = append(raws, RawTransfer{
						Source:      feePayer,
						Destination: wallet,
						RawAmount:   decimal.NewFromUint64(lamports).String(),
						Decimals:    9, // lamports per SOL
						Asset:       domain.AssetNative,
						TimestampMs: timestampMs,
						TxSignature: tx.Signature,
					})
				}
			}
			break
		}
	}

	return raws
}

// tokenCounterparty finds the owner whose balance of mint moved opposite
// to the wallet's delta, preferring the largest move. Ties break on owner
// address so map iteration order never changes the result.
func tokenCounterparty(meta *solana.TransactionMeta, mint, wallet string, sign int) string {
	if sign == 0 {
		return ""
	}

	deltas := make(map[string]decimal.Decimal)
	for i := range meta.PreTokenBalances {
		b := &meta.PreTokenBalances[i]
		if b.Mint != mint || b.Owner == wallet {
			continue
		}
		amount, _ := decimal.NewFromString(b.Amount.Amount)
		deltas[b.Owner] = deltas[b.Owner].Sub(amount)
	}
	for i := range meta.PostTokenBalances {
		b := &meta.PostTokenBalances[i]
		if b.Mint != mint || b.Owner == wallet {
			continue
		}
		amount, _ := decimal.NewFromString(b.Amount.Amount)
		deltas[b.Owner] = deltas[b.Owner].Add(amount)
	}

	best := ""
	bestAbs := decimal.Zero
	for owner, d := range deltas {
		if d.Sign() == 0 || d.Sign() == sign {
			continue
		}
		abs := d.Abs()
		if abs.GreaterThan(bestAbs) || (abs.Equal(bestAbs) && (best == "" || owner < best)) {
			bestAbs = abs
			best = owner
		}
	}
	return best
}

func tokenBalanceFor(balances []solana.TokenBalance, mint, owner string) *solana.TokenBalance {
	for i := range balances {
		if balances[i].Mint == mint && balances[i].Owner == owner {
			return &balances[i]
		}
	}
	return nil
}
