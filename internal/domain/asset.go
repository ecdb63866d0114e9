package domain

// AssetBundle holds the content-addressed locators returned by a successful
// publish. Immutable once returned; a failed downstream submission leaves
// the bundle valid for reuse without re-publishing.
type AssetBundle struct {
	ImageURI    string
	MetadataURI string
}

// Checkpoint is a recent blockhash plus the last block height at which a
// transaction referencing it is still valid.
type Checkpoint struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// Submission identifies one sent transaction. It carries no finality claim.
type Submission struct {
	Signature  string
	Checkpoint Checkpoint
}
