package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"hnscan-clone/internal/consensus"
)

// Search classifies a free-form query into explorer links. The
// heuristics run in a fixed order and silently skip on non-match, so
// one query can yield several hits (a digit string is both a height
// and a valid name).
func (e *Engine) Search(ctx context.Context, q string) ([]SearchResult, error) {
	q = strings.TrimSpace(q)
	results := make([]SearchResult, 0, 2)
	if q == "" {
		return results, nil
	}

	if height, err := strconv.ParseUint(q, 10, 64); err == nil {
		if rec, err := e.store.GetBlockRecord(ctx, height); err == nil && rec != nil {
			results = append(results, SearchResult{Type: "Block", URL: fmt.Sprintf("/block/%d", height)})
		}
	}

	lower := strings.ToLower(q)
	if len(lower) == 64 && isHex(lower) {
		if _, err := e.node.Tx(ctx, lower); err == nil {
			results = append(results, SearchResult{Type: "Transaction", URL: "/tx/" + lower})
		} else if rec, err := e.store.GetBlockRecordByHash(ctx, lower); err == nil && rec != nil {
			results = append(results, SearchResult{Type: "Block", URL: fmt.Sprintf("/block/%d", rec.Height)})
		}
	}

	if e.cfg.Network.ValidAddress(q) {
		results = append(results, SearchResult{Type: "Address", URL: "/address/" + q})
	}

	if consensus.VerifyName(lower) {
		results = append(results, SearchResult{Type: "Name", URL: "/name/" + lower})
	}
	return results, nil
}
