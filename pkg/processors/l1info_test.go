package processors

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/bridge-forest/pkg/ethrpc"
	"github.com/Layr-Labs/bridge-forest/pkg/merkle"
)

func TestL1InfoProcessorUsesV2WhenPaired(t *testing.T) {
	forest := openTestForest(t)
	client := ethrpc.NewFakeClient()
	proc := &L1InfoEventProcessor{Forest: forest, Client: client, Logger: zap.NewNop().Sugar()}

	txHash := common.HexToHash("0xaaaa")
	v1Data := packNonIndexed(t, "UpdateL1InfoTree", [32]byte{1}, [32]byte{2})
	v2Data := packNonIndexed(t, "UpdateL1InfoTreeV2", [32]byte{3}, uint32(1), [32]byte{4}, uint64(1_707_911_747))

	logs := []types.Log{
		{Topics: []common.Hash{TopicUpdateL1InfoTree}, Data: v1Data, BlockNumber: 5, TxHash: txHash},
		{Topics: []common.Hash{TopicUpdateL1InfoTreeV2}, Data: v2Data, BlockNumber: 5, TxHash: txHash},
	}

	require.NoError(t, proc.ProcessEvents(context.Background(), 5, 5, logs))
	require.Empty(t, client.Calls(), "paired V1/V2 must not need a block header fetch")

	count, err := forest.GetLeafCount(merkle.L1Info())
	require.NoError(t, err)
	require.Equal(t, uint32(1), count)
}

func TestL1InfoProcessorFallsBackToBlockHeader(t *testing.T) {
	forest := openTestForest(t)
	client := ethrpc.NewFakeClient()
	client.SetHeader(7, &types.Header{Time: 1_707_911_747})
	proc := &L1InfoEventProcessor{Forest: forest, Client: client, Logger: zap.NewNop().Sugar()}

	v1Data := packNonIndexed(t, "UpdateL1InfoTree", [32]byte{1}, [32]byte{2})
	logs := []types.Log{
		{Topics: []common.Hash{TopicUpdateL1InfoTree}, Data: v1Data, BlockNumber: 7, TxHash: common.HexToHash("0xbbbb")},
	}

	require.NoError(t, proc.ProcessEvents(context.Background(), 7, 7, logs))
	require.Contains(t, client.Calls(), "HeaderByNumber")

	count, err := forest.GetLeafCount(merkle.L1Info())
	require.NoError(t, err)
	require.Equal(t, uint32(1), count)
}
