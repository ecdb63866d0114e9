package domain

import "github.com/blocto/solana-go-sdk/common"

// Authority is the holder of a mint capability: either nobody (revoked or
// never set) or exactly one address. Call sites must handle the None case
// explicitly; comparing against None always fails.
type Authority struct {
	held bool
	addr common.PublicKey
}

// NoAuthority returns the absent authority.
func NoAuthority() Authority {
	return Authority{}
}

// HeldBy returns an authority held by addr.
func HeldBy(addr common.PublicKey) Authority {
	return Authority{held: true, addr: addr}
}

// AuthorityFromPointer converts the SDK's optional-pubkey representation.
func AuthorityFromPointer(p *common.PublicKey) Authority {
	if p == nil {
		return NoAuthority()
	}
	return HeldBy(*p)
}

// Holder returns the holding address and whether one exists.
func (a Authority) Holder() (common.PublicKey, bool) {
	return a.addr, a.held
}

// Matches reports whether addr holds this authority. An absent authority
// matches no one.
func (a Authority) Matches(addr common.PublicKey) bool {
	return a.held && a.addr == addr
}

func (a Authority) String() string {
	if !a.held {
		return "none"
	}
	return a.addr.ToBase58()
}

// AuthorityKind identifies which mint capability an operation targets.
type AuthorityKind string

const (
	AuthorityMintTokens    AuthorityKind = "MintTokens"
	AuthorityFreezeAccount AuthorityKind = "FreezeAccount"
)

// Valid reports whether the kind is one of the supported capabilities.
func (k AuthorityKind) Valid() bool {
	return k == AuthorityMintTokens || k == AuthorityFreezeAccount
}
