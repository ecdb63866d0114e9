package domain

// TokenRecord is a denormalized summary of a successfully created token,
// persisted per owner for later display. Not authoritative: on-chain state
// can diverge and wins.
type TokenRecord struct {
	Owner       string // wallet address that created the token
	Mint        string // mint address, unique per owner
	Name        string
	Symbol      string
	Decimals    int
	MetadataURI string
	ImageURI    string
	Network     string // cluster tag, e.g. "devnet"

	MintAuthority   string
	FreezeAuthority string
	UpdateAuthority string

	CreatedAt int64 // unix milliseconds
}

// MetadataLookup is one entry of the bounded, most-recent-first metadata
// search history kept per owner.
type MetadataLookup struct {
	Owner           string
	Mint            string
	Name            string
	Symbol          string
	URI             string
	UpdateAuthority string
	// Description and Image come from the off-chain document and may be
	// empty when its fetch failed.
	Description string
	Image       string

	LookedUpAt int64 // unix milliseconds
}

// MetadataLookupHistoryLimit bounds the per-owner lookup history.
const MetadataLookupHistoryLimit = 10
