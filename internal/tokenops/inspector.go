package tokenops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/token"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/solana"
	"github.com/bjeschke/solanahub/internal/validate"
)

// RecentTransactionLimit caps a wallet history query.
const RecentTransactionLimit = 10

// InspectReader is the read surface the inspector needs.
type InspectReader interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, programID string) ([]solana.KeyedAccount, error)
	GetProgramAccounts(ctx context.Context, programID string, filters []solana.ProgramAccountsFilter) ([]solana.KeyedAccount, error)
	GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error)
	GetVersion(ctx context.Context) (string, error)
	GetSlot(ctx context.Context) (int64, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
}

// Holding is one token balance of a wallet.
type Holding struct {
	Mint         string `json:"mint"`
	TokenAccount string `json:"token_account"`
	Amount       uint64 `json:"amount"`
	Frozen       bool   `json:"frozen"`
}

// FrozenHolder is a frozen token account of a mint.
type FrozenHolder struct {
	TokenAccount string `json:"token_account"`
	Owner        string `json:"owner"`
	Amount       uint64 `json:"amount"`
}

// ClusterStatus is a snapshot of the connected cluster.
type ClusterStatus struct {
	Version     string `json:"version"`
	Slot        int64  `json:"slot"`
	BlockHeight uint64 `json:"block_height"`
}

// Inspector answers read-only questions about mints, metadata, and wallets.
type Inspector struct {
	chain InspectReader
	http  *http.Client
}

// NewInspector creates an Inspector. The HTTP client fetches off-chain
// metadata documents; nil gets a 10 second default.
func NewInspector(chain InspectReader, httpClient *http.Client) *Inspector {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Inspector{chain: chain, http: httpClient}
}

// LookupMetadata resolves a mint's on-chain metadata and, best effort, the
// off-chain document its URI points at. A failed document fetch degrades to
// on-chain fields only.
func (i *Inspector) LookupMetadata(ctx context.Context, owner, mint string) (domain.MetadataLookup, error) {
	mintKey, err := validate.ParseAddress(mint)
	if err != nil {
		return domain.MetadataLookup{}, err
	}

	metadataKey, err := token_metadata.GetTokenMetaPubkey(mintKey)
	if err != nil {
		return domain.MetadataLookup{}, fmt.Errorf("derive metadata address: %w", err)
	}

	info, err := i.chain.GetAccountInfo(ctx, metadataKey.ToBase58())
	if err != nil {
		return domain.MetadataLookup{}, fmt.Errorf("fetch metadata account: %w", err)
	}
	if info == nil {
		return domain.MetadataLookup{}, fmt.Errorf("%w: no metadata for mint %s", domain.ErrNotFound, mint)
	}

	raw, err := info.DecodeData()
	if err != nil {
		return domain.MetadataLookup{}, err
	}
	md, err := token_metadata.MetadataDeserialize(raw)
	if err != nil {
		return domain.MetadataLookup{}, fmt.Errorf("deserialize metadata: %w", err)
	}

	lookup := domain.MetadataLookup{
		Owner:           owner,
		Mint:            mint,
		Name:            trimPadding(md.Data.Name),
		Symbol:          trimPadding(md.Data.Symbol),
		URI:             trimPadding(md.Data.Uri),
		UpdateAuthority: md.UpdateAuthority.ToBase58(),
		LookedUpAt:      time.Now().UnixMilli(),
	}

	if lookup.URI != "" {
		if doc, err := i.fetchDocument(ctx, lookup.URI); err == nil {
			lookup.Description = doc.Description
			lookup.Image = doc.Image
		}
	}

	return lookup, nil
}

// offchainDocument is the subset of the pinned JSON the viewer displays.
type offchainDocument struct {
	Description string `json:"description"`
	Image       string `json:"image"`
}

func (i *Inspector) fetchDocument(ctx context.Context, uri string) (offchainDocument, error) {
	var doc offchainDocument

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return doc, err
	}

	resp, err := i.http.Do(req)
	if err != nil {
		return doc, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return doc, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// WalletTokens lists every token balance the owner holds.
func (i *Inspector) WalletTokens(ctx context.Context, owner string) ([]Holding, error) {
	if _, err := validate.ParseWalletAddress(owner); err != nil {
		return nil, err
	}

	accounts, err := i.chain.GetTokenAccountsByOwner(ctx, owner, common.TokenProgramID.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("fetch token accounts: %w", err)
	}

	holdings := make([]Holding, 0, len(accounts))
	for _, acc := range accounts {
		raw, err := acc.Account.DecodeData()
		if err != nil {
			continue
		}
		state, err := token.TokenAccountFromData(raw)
		if err != nil {
			continue
		}
		holdings = append(holdings, Holding{
			Mint:         state.Mint.ToBase58(),
			TokenAccount: acc.Pubkey,
			Amount:       state.Amount,
			Frozen:       state.State == token.TokenAccountFrozen,
		})
	}
	return holdings, nil
}

// RecentTransactions lists the newest signatures touching an address.
func (i *Inspector) RecentTransactions(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error) {
	if _, err := validate.ParseAddress(address); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > RecentTransactionLimit {
		limit = RecentTransactionLimit
	}

	sigs, err := i.chain.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("fetch signatures: %w", err)
	}
	return sigs, nil
}

// FrozenAccounts scans the token program for frozen accounts of a mint.
// The scan filters on the token-account size and the mint address at data
// offset zero, then keeps only frozen entries.
func (i *Inspector) FrozenAccounts(ctx context.Context, mint string) ([]FrozenHolder, error) {
	if _, err := validate.ParseAddress(mint); err != nil {
		return nil, err
	}

	accounts, err := i.chain.GetProgramAccounts(ctx, common.TokenProgramID.ToBase58(), []solana.ProgramAccountsFilter{
		{DataSize: token.TokenAccountSize},
		{Memcmp: &solana.MemcmpFilter{Offset: 0, Bytes: mint}},
	})
	if err != nil {
		return nil, fmt.Errorf("scan program accounts: %w", err)
	}

	var frozen []FrozenHolder
	for _, acc := range accounts {
		raw, err := acc.Account.DecodeData()
		if err != nil {
			continue
		}
		state, err := token.TokenAccountFromData(raw)
		if err != nil {
			continue
		}
		if state.State != token.TokenAccountFrozen {
			continue
		}
		frozen = append(frozen, FrozenHolder{
			TokenAccount: acc.Pubkey,
			Owner:        state.Owner.ToBase58(),
			Amount:       state.Amount,
		})
	}
	return frozen, nil
}

// Status reports the cluster's version, slot, and block height.
func (i *Inspector) Status(ctx context.Context) (ClusterStatus, error) {
	version, err := i.chain.GetVersion(ctx)
	if err != nil {
		return ClusterStatus{}, fmt.Errorf("fetch version: %w", err)
	}
	slot, err := i.chain.GetSlot(ctx)
	if err != nil {
		return ClusterStatus{}, fmt.Errorf("fetch slot: %w", err)
	}
	height, err := i.chain.GetBlockHeight(ctx)
	if err != nil {
		return ClusterStatus{}, fmt.Errorf("fetch block height: %w", err)
	}

	return ClusterStatus{
		Version:     version,
		Slot:        slot,
		BlockHeight: height,
	}, nil
}
