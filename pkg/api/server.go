// Package api is the core's read-only HTTP surface: sync status and
// Merkle inclusion proofs, served straight off the forest.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Layr-Labs/bridge-forest/pkg/merkle"
)

// Server exposes GET /sync-status, GET /merkle-proof, and GET /healthz over
// the shared Forest handle.
type Server struct {
	forest  *merkle.Forest
	logger  *zap.SugaredLogger
	httpSrv *http.Server

	l1BridgeCounter *ContractCounter
	l1InfoCounter   *ContractCounter
	l2Counters      map[uint32]*ContractCounter
}

// NewServer builds a Server bound to addr. l2Counters is keyed by L2 chain
// id.
func NewServer(addr string, forest *merkle.Forest, l1BridgeCounter, l1InfoCounter *ContractCounter, l2Counters map[uint32]*ContractCounter, logger *zap.Logger) *Server {
	s := &Server{
		forest:          forest,
		logger:          logger.Sugar(),
		l1BridgeCounter: l1BridgeCounter,
		l1InfoCounter:   l1InfoCounter,
		l2Counters:      l2Counters,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sync-status", s.withRequestID(s.handleSyncStatus))
	mux.HandleFunc("/merkle-proof", s.withRequestID(s.handleMerkleProof))
	mux.HandleFunc("/healthz", s.withRequestID(s.handleHealthz))

	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// withRequestID stamps every request with a correlation id surfaced in logs
// and the response headers, for tracing a single claim lookup end to end.
func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		s.logger.Debugw("http request", "request_id", id, "method", r.Method, "path", r.URL.Path)
		next(w, r)
	}
}

// Start begins serving in the background. Errors other than a clean
// shutdown are logged and do not stop the rest of the process.
func (s *Server) Start() {
	go func() {
		s.logger.Infow("starting http server", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorw("http server error", "error", err)
		}
	}()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) treeStatus(ctx context.Context, kind merkle.Kind, counter *ContractCounter) (TreeSyncStatus, error) {
	local, err := s.forest.GetLeafCount(kind)
	if err != nil {
		return TreeSyncStatus{}, err
	}
	var contract uint64
	if counter != nil {
		contract, err = counter.DepositCount(ctx)
		if err != nil {
			return TreeSyncStatus{}, err
		}
	}
	return TreeSyncStatus{
		LocalLeafCount:    uint64(local),
		ContractLeafCount: contract,
		IsSynced:          uint64(local) == contract,
	}, nil
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	l1Status, err := s.treeStatus(ctx, merkle.LocalExit(0), s.l1BridgeCounter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	l1InfoStatus, err := s.treeStatus(ctx, merkle.L1Info(), s.l1InfoCounter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	chainIDs := make([]uint32, 0, len(s.l2Counters))
	for chainID := range s.l2Counters {
		chainIDs = append(chainIDs, chainID)
	}
	sort.Slice(chainIDs, func(i, j int) bool { return chainIDs[i] < chainIDs[j] })

	l2Status := make([]TreeSyncStatus, 0, len(chainIDs))
	for _, chainID := range chainIDs {
		status, err := s.treeStatus(ctx, merkle.LocalExit(chainID), s.l2Counters[chainID])
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		l2Status = append(l2Status, status)
	}

	writeJSON(w, SyncStatus{L1Bridge: l1Status, L1InfoTree: l1InfoStatus, L2Bridge: l2Status})
}

func (s *Server) handleMerkleProof(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	netID64, err := strconv.ParseUint(query.Get("net_id"), 10, 32)
	if err != nil {
		http.Error(w, "invalid net_id", http.StatusBadRequest)
		return
	}
	depositCount64, err := strconv.ParseUint(query.Get("deposit_cnt"), 10, 64)
	if err != nil {
		http.Error(w, "invalid deposit_cnt", http.StatusBadRequest)
		return
	}
	netID := uint32(netID64)

	lerProof, err := s.forest.MerkleProof(merkle.LocalExit(netID), uint32(depositCount64))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var rerProof [merkle.Depth]merkle.Hash
	if netID != 0 {
		rerProof, err = s.forest.MerkleProof(merkle.RollupExit(), netID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	mer, err := s.forest.GetRoot(merkle.LocalExit(0))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rer, err := s.forest.GetRoot(merkle.RollupExit())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, ClaimProofResponse{Proof: Proof{
		MerkleProof:       hashArrayToHex(lerProof),
		RollupMerkleProof: hashArrayToHex(rerProof),
		MainExitRoot:      hashPtrToHex(mer),
		RollupExitRoot:    hashPtrToHex(rer),
	}})
}

func hashArrayToHex(hashes [merkle.Depth]merkle.Hash) [32]string {
	var out [32]string
	for i, h := range hashes {
		out[i] = hashToHex(h)
	}
	return out
}

func hashToHex(h merkle.Hash) string {
	return fmt.Sprintf("0x%x", h[:])
}

func hashPtrToHex(h *merkle.Hash) string {
	if h == nil {
		return hashToHex(merkle.Hash{})
	}
	return hashToHex(*h)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
