package api

// TreeSyncStatus reports one tree's local progress against its on-chain
// counterpart.
type TreeSyncStatus struct {
	LocalLeafCount    uint64 `json:"local_leaf_count"`
	ContractLeafCount uint64 `json:"contract_leaf_count"`
	IsSynced          bool   `json:"is_synced"`
}

// SyncStatus is the /sync-status response body.
type SyncStatus struct {
	L1Bridge   TreeSyncStatus   `json:"l1_bridge"`
	L1InfoTree TreeSyncStatus   `json:"l1_info_tree"`
	L2Bridge   []TreeSyncStatus `json:"l2_bridge"`
}

// Proof is the inclusion-proof payload for a single claim.
type Proof struct {
	MerkleProof       [32]string `json:"merkle_proof"`
	RollupMerkleProof [32]string `json:"rollup_merkle_proof"`
	MainExitRoot      string     `json:"main_exit_root"`
	RollupExitRoot    string     `json:"rollup_exit_root"`
}

// ClaimProofResponse is the /merkle-proof response body.
type ClaimProofResponse struct {
	Proof Proof `json:"proof"`
}
