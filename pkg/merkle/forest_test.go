package merkle

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mustHash(s string) Hash {
	return Hash(common.HexToHash(s))
}

func openTestForest(t *testing.T) *Forest {
	t.Helper()
	f, err := Open(filepath.Join(t.TempDir(), "forest"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func bridgeLeaf(depositCount uint32, amount uint64, metadata string) BridgeLeaf {
	return BridgeLeaf{
		LeafType:           1,
		OriginNetwork:      0,
		DestinationNetwork: 2,
		Amount:             uint256.NewInt(amount),
		Metadata:           []byte(metadata),
		DepositCount:       depositCount,
	}
}

// Property 7 — empty-tree root.
func TestGetRootEmptyTree(t *testing.T) {
	f := openTestForest(t)

	root, err := f.GetRoot(LocalExit(1))
	require.NoError(t, err)
	require.Nil(t, root)

	count, err := f.GetLeafCount(LocalExit(1))
	require.NoError(t, err)
	require.Zero(t, count)
}

// Property 2 — round-trip: calc_root(leaf, proof(index), index) == root.
func TestRoundTripBridgeAppend(t *testing.T) {
	f := openTestForest(t)
	kind := LocalExit(1)

	leaves := []BridgeLeaf{
		bridgeLeaf(0, 6_666_666, "some metadata"),
		bridgeLeaf(1, 888_888, "more metadata"),
	}
	require.NoError(t, f.AppendBridgeLeaves(1, leaves, 100))

	root, err := f.GetRoot(kind)
	require.NoError(t, err)
	require.NotNil(t, root)

	for _, leaf := range leaves {
		proof, err := f.MerkleProof(kind, leaf.DepositCount)
		require.NoError(t, err)
		got := CalcRoot(leaf.HashedLeaf(), proof, leaf.DepositCount)
		require.Equal(t, *root, got)
	}
}

// Property 3 — monotonicity of leaf_count and latest_block.
func TestMonotonicity(t *testing.T) {
	f := openTestForest(t)
	kind := LocalExit(0)

	var prevCount uint32
	var prevBlock uint64
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, f.AppendBridgeLeaves(0, []BridgeLeaf{bridgeLeaf(i, uint64(i), "m")}, uint64(10+i)))

		count, err := f.GetLeafCount(kind)
		require.NoError(t, err)
		require.GreaterOrEqual(t, count, prevCount)
		prevCount = count

		block, err := f.GetLatestBlock(kind)
		require.NoError(t, err)
		require.NotNil(t, block)
		require.GreaterOrEqual(t, *block, prevBlock)
		prevBlock = *block
	}
}

// Property 4 — persistence across close/reopen.
func TestPersistenceAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "forest")
	kind := LocalExit(7)

	f, err := Open(dir, zap.NewNop())
	require.NoError(t, err)

	leaves := []BridgeLeaf{
		bridgeLeaf(0, 1, "a"),
		bridgeLeaf(1, 2, "b"),
		bridgeLeaf(2, 3, "c"),
	}
	require.NoError(t, f.AppendBridgeLeaves(7, leaves, 42))

	rootBefore, err := f.GetRoot(kind)
	require.NoError(t, err)
	proofBefore, err := f.MerkleProof(kind, 1)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f2, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f2.Close() })

	rootAfter, err := f2.GetRoot(kind)
	require.NoError(t, err)
	require.Equal(t, rootBefore, rootAfter)

	proofAfter, err := f2.MerkleProof(kind, 1)
	require.NoError(t, err)
	require.Equal(t, proofBefore, proofAfter)

	count, err := f2.GetLeafCount(kind)
	require.NoError(t, err)
	require.Equal(t, uint32(3), count)

	block, err := f2.GetLatestBlock(kind)
	require.NoError(t, err)
	require.Equal(t, uint64(42), *block)
}

// Property 5 — order invariance of RollupExit: the final root depends only
// on the last value written at each index, matching insertion in ascending
// order regardless of the actual write order.
func TestRollupExitOrderInvariance(t *testing.T) {
	fOrdered := openTestForest(t)
	fShuffled := openTestForest(t)

	entries := make([]Hash, 20)
	for i := range entries {
		entries[i] = Hash(crypto.Keccak256Hash([]byte{byte(i)}))
	}

	for i, h := range entries {
		require.NoError(t, fOrdered.SetRollupLeaf(uint32(i+1), h, uint64(i)))
	}

	order := rand.New(rand.NewSource(1)).Perm(len(entries))
	for _, i := range order {
		require.NoError(t, fShuffled.SetRollupLeaf(uint32(i+1), entries[i], uint64(i)))
	}

	rootOrdered, err := fOrdered.GetRoot(RollupExit())
	require.NoError(t, err)
	rootShuffled, err := fShuffled.GetRoot(RollupExit())
	require.NoError(t, err)
	require.Equal(t, rootOrdered, rootShuffled)
}

// Property 5 (idempotence half) — overwriting entries with zero and then
// restoring the original value yields the identical root.
func TestRollupExitIdempotence(t *testing.T) {
	f := openTestForest(t)

	entries := make([]Hash, 20)
	for i := range entries {
		entries[i] = Hash(crypto.Keccak256Hash([]byte{byte(i)}))
	}
	for i, h := range entries {
		require.NoError(t, f.SetRollupLeaf(uint32(i+1), h, uint64(i)))
	}

	rootBefore, err := f.GetRoot(RollupExit())
	require.NoError(t, err)

	zero := Hash{}
	for _, i := range []int{2, 5, 9, 17} {
		require.NoError(t, f.SetRollupLeaf(uint32(i+1), zero, uint64(100)))
	}
	for _, i := range []int{2, 5, 9, 17} {
		require.NoError(t, f.SetRollupLeaf(uint32(i+1), entries[i], uint64(101)))
	}

	rootAfter, err := f.GetRoot(RollupExit())
	require.NoError(t, err)
	require.Equal(t, rootBefore, rootAfter)
}

func TestAppendBridgeLeavesRejectsGapAndDuplicate(t *testing.T) {
	f := openTestForest(t)
	require.NoError(t, f.AppendBridgeLeaves(1, []BridgeLeaf{bridgeLeaf(0, 1, "a")}, 1))

	err := f.AppendBridgeLeaves(1, []BridgeLeaf{bridgeLeaf(2, 1, "a")}, 2)
	require.ErrorIs(t, err, ErrDepositCountGap)

	err = f.AppendBridgeLeaves(1, []BridgeLeaf{bridgeLeaf(0, 1, "a")}, 2)
	require.ErrorIs(t, err, ErrDuplicateDepositCount)

	err = f.AppendBridgeLeaves(1, []BridgeLeaf{bridgeLeaf(1, 1, "a"), bridgeLeaf(1, 1, "a")}, 2)
	require.ErrorIs(t, err, ErrDepositCountNotMonotonic)
}

func TestSetRollupLeafRejectsChainZero(t *testing.T) {
	f := openTestForest(t)
	err := f.SetRollupLeaf(0, Hash{}, 1)
	require.ErrorIs(t, err, ErrInvalidChainID)
}

func TestMerkleProofForRollupExitZeroIndexIsError(t *testing.T) {
	f := openTestForest(t)
	_, err := f.MerkleProof(RollupExit(), 0)
	require.ErrorIs(t, err, ErrInvalidChainID)
}

// TestLocalExitFixtureVectors hard-codes the two LocalExit(1) roots from
// the original implementation's own fixture test (test_todo in
// merkle_tree.rs), to pin the exact hash preimage and tree-update algorithm
// rather than only checking internal round-trip consistency.
func TestLocalExitFixtureVectors(t *testing.T) {
	f := openTestForest(t)
	kind := LocalExit(1)

	leaf1 := BridgeLeaf{
		LeafType:           1,
		OriginNetwork:      0,
		OriginAddress:      common.HexToAddress("0x1111111111111111111111111111111111111111"),
		DestinationNetwork: 2,
		DestinationAddress: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Amount:             uint256.NewInt(6_666_666),
		Metadata:           []byte("some metadata"),
		DepositCount:       0,
	}
	leaf2 := BridgeLeaf{
		LeafType:           1,
		OriginNetwork:      0,
		OriginAddress:      common.HexToAddress("0x3333333333333333333333333333333333333333"),
		DestinationNetwork: 2,
		DestinationAddress: common.HexToAddress("0x4444444444444444444444444444444444444444"),
		Amount:             uint256.NewInt(888_888),
		Metadata:           []byte("more metadata"),
		DepositCount:       1,
	}

	require.NoError(t, f.AppendBridgeLeaves(1, []BridgeLeaf{leaf1}, 1))
	root, err := f.GetRoot(kind)
	require.NoError(t, err)
	require.Equal(t, mustHash("0xda166a2aea3989c951077f31eee9d4535a0ab449b82f3557f7335bc79033d121"), *root)

	require.NoError(t, f.AppendBridgeLeaves(1, []BridgeLeaf{leaf2}, 2))
	root, err = f.GetRoot(kind)
	require.NoError(t, err)
	require.Equal(t, mustHash("0x75322539144af420787b8e59d9bf5051a8fbd19de9302ddc773c0eba884c54d3"), *root)
}

// rollupExitFixtureEntries is the 20-entry (rollup_id, exit_root) table from
// the original implementation's test_todo_testingsometuff and
// test_anothertodo fixtures.
func rollupExitFixtureEntries() []struct {
	rollupID uint32
	exitRoot Hash
} {
	return []struct {
		rollupID uint32
		exitRoot Hash
	}{
		{1, mustHash("0x2eec493df61d778cb2a5d02b73445ea758a64543b540a1b8111d0fb47274221f")},
		{2, mustHash("0x5e5d1aa128d94a3c164b3f76cb54b02fec1387d247b4f500fc562272c717424d")},
		{3, mustHash("0xb218b61c22d70f2d59bab9cf4964fe9f7ef73afabb776aa54fba30c97fd89b4b")},
		{4, mustHash("0x0000000000000000000000000000000000000000000000000000000000000000")},
		{5, mustHash("0x386c1f907fe8768b23a17cf2ebf449e679ae8ab38d17131cd603d6655cc6770b")},
		{6, mustHash("0xb52156faceb1557001af394dae8fd5b0de31ce9a321f63e813c115abf9ddadb2")},
		{7, mustHash("0xac9a61e84eb4347c58a8dc22949ef17a593c0662da75d06936ff124f6aac86b6")},
		{8, mustHash("0x5afa8f38e955e222e440ee61ca4b8f455c41b542e7f8b0f7d276f2ef0026106d")},
		{9, mustHash("0x2c22e60e9e5ebcce3885897ecebffec1aaf7e141f1241dee04d4b47f3444d665")},
		{10, mustHash("0x97998af9b58859d6ec3fa77a0613e504fb8e8f051885e8f3a4a13d3bf5eaedae")},
		{11, mustHash("0xdb1bef18121aed0ec6da77297897bd2ee34b9da0ba3f3766b1fe9cd7446af5d5")},
		{12, mustHash("0xdb1bef18121aed0ec6da77297897bd2ee34b9da0ba3f3766b1fe9cd7446af5d5")},
		{13, mustHash("0xe364a474900343072eb2f4234169079ecdb96660901f63f0eaf7df2d7a34243e")},
		{14, mustHash("0x78c2c6a7aeec799425ca459a970dd859e663af7fcda42d90bfa59c886f46a5da")},
		{15, mustHash("0x0000000000000000000000000000000000000000000000000000000000000000")},
		{16, mustHash("0x05fdb6446f26abaf23892e5da409edeb2a125bec3af72eeb9b2ef037449975c4")},
		{17, mustHash("0x4e5b0deba6495eff975e8389f220520d6c25363cfd1b55e30cbe3667ebdf545a")},
		{18, mustHash("0xa3a26da5b9c197a458570a50487c7c44f1df73f5ce4024ef913af55f0102ae55")},
		{19, mustHash("0xcc7e59609197f085caadb64e436cf248f40f4158324daf334ac8099fd1cbe613")},
		{20, mustHash("0x656db1fd488f456faa9766f4948fc5d8602371602b66e7874080bcc6621f82bc")},
	}
}

// rollupExitFixtureRoot is the RollupExit root the original implementation's
// test_todo_testingsometuff/test_anothertodo fixtures assert against after
// writing rollupExitFixtureEntries.
const rollupExitFixtureRoot = "0xcfc0867b45230182da671566501ec406ec5a27cade099444de6e34562d36ea40"

// rollupExitFixtureProofForRollup1 is the 32-element sibling path
// test_todo_testingsometuff asserts for rollup_id=1 against the same fixture
// (note: the original places rollup 1 at tree index 0).
var rollupExitFixtureProofForRollup1 = []string{
	"0x5e5d1aa128d94a3c164b3f76cb54b02fec1387d247b4f500fc562272c717424d",
	"0x108031021fc01678da05870a2a6d7d50b12aaf0f2c2cf095da93ed882a77dd84",
	"0xd0e306aa24e72a56666e842ef4612037aa4e077a21c4bac9a3dc532d7f22f249",
	"0x908f89438281b585a80788d31016a8622c3afbba8db6f94f8b4762e9f891e9b7",
	"0x5fc736a2c94307be78da58ffb63d16ec28b7c5799f52cc38f839324a2f7c0614",
	"0x0eb01ebfc9ed27500cd4dfc979272d1f0913cc9f66540d7e8005811109e1cf2d",
	"0x887c22bd8750d34016ac3c66b5ff102dacdd73f6b014e710b51e8022af9a1968",
	"0xffd70157e48063fc33c97a050f7f640233bf646cc98d9524c6b92bcf3ab56f83",
	"0x9867cc5f7f196b93bae1e27e6320742445d290f2263827498b54fec539f756af",
	"0xcefad4e508c098b9a7e1d8feb19955fb02ba9675585078710969d3440f5054e0",
	"0xf9dc3e7fe016e050eff260334f18a5d4fe391d82092319f5964f2e2eb7c1c3a5",
	"0xf8b13a49e282f609c317a833fb8d976d11517c571d1221a265d25af778ecf892",
	"0x3490c6ceeb450aecdc82e28293031d10c7d73bf85e57bf041a97360aa2c5d99c",
	"0xc1df82d9c4b87413eae2ef048f94b4d3554cea73d92b0f7af96e0271c691e2bb",
	"0x5c67add7c6caf302256adedf7ab114da0acfe870d449a3a489f781d659e8becc",
	"0xda7bce9f4e8618b6bd2f4132ce798cdc7a60e7e1460a7299e3c6342a579626d2",
	"0x2733e50f526ec2fa19a22b31e8ed50f23cd1fdf94c9154ed3a7609a2f1ff981f",
	"0xe1d3b5c807b281e4683cc6d6315cf95b9ade8641defcb32372f1c126e398ef7a",
	"0x5a2dce0a8a7f68bb74560f8f71837c2c2ebbcbf7fffb42ae1896f13f7c7479a0",
	"0xb46a28b6f55540f89444f63de0378e3d121be09e06cc9ded1c20e65876d36aa0",
	"0xc65e9645644786b620e2dd2ad648ddfcbf4a7e5b1a3a4ecfe7f64667a3f0b7e2",
	"0xf4418588ed35a2458cffeb39b93d26f18d2ab13bdce6aee58e7b99359ec2dfd9",
	"0x5a9c16dc00d6ef18b7933a6f8dc65ccb55667138776f7dea101070dc8796e377",
	"0x4df84f40ae0c8229d0d6069e5c8f39a7c299677a09d367fc7b05e3bc380ee652",
	"0xcdc72595f74c7b1043d0e1ffbab734648c838dfb0527d971b602bc216c9619ef",
	"0x0abf5ac974a1ed57f4050aa510dd9c74f508277b39d7973bb2dfccc5eeb0618d",
	"0xb8cd74046ff337f0a7bf2c8e03e10f642c1886798d71806ab1e888d9e5ee87d0",
	"0x838c5655cb21c6cb83313b5a631175dff4963772cce9108188b34ac87c81c41e",
	"0x662ee4dd2dd7b2bc707961b1e646c4047669dcb6584f0d8d770daf5d7e7deb2e",
	"0x388ab20e2573d171a88108e79d820e98f26c0b84aa8b2f4aa4968dbb818ea322",
	"0x93237c50ba75ee485f4c22adf2f741400bdf8d6a9cc7df7ecae576221665d735",
	"0x8448818bb4ae4562849e949e17ac16e0be16688e156b5cf15e098c627c0056a9",
}

// TestRollupExitFixtureVectors pins the RollupExit root and rollup_id=1
// sibling path from test_todo_testingsometuff, catching a symmetric
// chain_id-1 indexing or sibling-path shift bug that a generic
// order-invariance check would miss (both sides of such a bug would still
// agree with each other).
func TestRollupExitFixtureVectors(t *testing.T) {
	f := openTestForest(t)

	for _, e := range rollupExitFixtureEntries() {
		require.NoError(t, f.SetRollupLeaf(e.rollupID, e.exitRoot, 1))
	}

	root, err := f.GetRoot(RollupExit())
	require.NoError(t, err)
	require.Equal(t, mustHash(rollupExitFixtureRoot), *root)

	proof, err := f.MerkleProof(RollupExit(), 1)
	require.NoError(t, err)
	for i, want := range rollupExitFixtureProofForRollup1 {
		require.Equal(t, mustHash(want), proof[i], "sibling at level %d", i)
	}
}

// TestRollupExitFixtureIdempotence mirrors test_anothertodo: scribbling
// zero over a handful of entries and then restoring their fixture values
// round-trips to the same fixture root.
func TestRollupExitFixtureIdempotence(t *testing.T) {
	f := openTestForest(t)

	entries := rollupExitFixtureEntries()
	for _, e := range entries {
		require.NoError(t, f.SetRollupLeaf(e.rollupID, e.exitRoot, 1))
	}

	for _, rollupID := range []uint32{1, 3, 5, 6} {
		require.NoError(t, f.SetRollupLeaf(rollupID, Hash{}, 1))
	}
	for _, e := range entries {
		require.NoError(t, f.SetRollupLeaf(e.rollupID, e.exitRoot, 1))
	}

	root, err := f.GetRoot(RollupExit())
	require.NoError(t, err)
	require.Equal(t, mustHash(rollupExitFixtureRoot), *root)
}
