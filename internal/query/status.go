package query

import (
	"context"
	"fmt"
	"log"
	"net"

	"hnscan-clone/internal/models"
)

// GetSummary builds the network summary card: live chain facts from
// the node plus the indexed hashrate window and name totals.
func (e *Engine) GetSummary(ctx context.Context) (*SummaryView, error) {
	info, err := e.node.ChainInfo(ctx)
	if err != nil {
		return nil, mapNodeErr(err)
	}
	v := &SummaryView{
		Network:    info.Chain,
		ChainWork:  info.Chainwork,
		Difficulty: info.Difficulty,
	}
	if rate, err := e.Hashrate(ctx); err == nil {
		v.Hashrate = rate
	} else {
		log.Printf("[query] failed to estimate hashrate: %v", err)
	}
	if mp, err := e.node.MempoolInfo(ctx); err == nil {
		v.Unconfirmed = mp.Size
		v.UnconfirmedSize = mp.Bytes
	} else {
		log.Printf("[query] failed to read mempool info: %v", err)
	}
	names, err := e.store.RegisteredNamesCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count registered names: %w", err)
	}
	v.RegisteredNames = names
	return v, nil
}

// GetStatus reports the upstream node's own state.
func (e *Engine) GetStatus(ctx context.Context) (*StatusView, error) {
	info, err := e.node.Info(ctx)
	if err != nil {
		return nil, mapNodeErr(err)
	}
	v := &StatusView{
		Host:        info.Pool.Host,
		Port:        info.Pool.Port,
		Key:         info.Pool.IdentityKey,
		Network:     info.Network,
		Progress:    info.Chain.Progress,
		Version:     info.Version,
		Agent:       info.Pool.Agent,
		Connections: info.Pool.Inbound + info.Pool.Outbound,
		Height:      info.Chain.Height,
		Uptime:      info.Time.Uptime,
	}
	if rpc, err := e.node.RPCInfo(ctx); err == nil {
		v.Difficulty = rpc.Difficulty
	} else {
		log.Printf("[query] failed to read rpc info: %v", err)
	}
	if totals, err := e.node.NetTotals(ctx); err == nil {
		v.TotalBytesRecv = totals.TotalBytesRecv
		v.TotalBytesSent = totals.TotalBytesSent
	} else {
		log.Printf("[query] failed to read net totals: %v", err)
	}
	return v, nil
}

// GetPeers pages the node's peer list. Page numbering is 1-based.
func (e *Engine) GetPeers(ctx context.Context, page, limit int) (*PeerPage, error) {
	if page <= 0 {
		page = 1
	}
	limit, _, err := clampPage(limit, 0, 10, 100)
	if err != nil {
		return nil, err
	}
	peers, err := e.node.Peers(ctx)
	if err != nil {
		return nil, mapNodeErr(err)
	}
	lo, hi := sliceBounds(len(peers), limit, (page-1)*limit)
	return &PeerPage{Total: len(peers), Result: peers[lo:hi]}, nil
}

// GetPeersLocation joins the peer list with the geoip table for the
// network map. Peers without a table entry are dropped.
func (e *Engine) GetPeersLocation(ctx context.Context) ([]models.PeerLocation, error) {
	peers, err := e.node.Peers(ctx)
	if err != nil {
		return nil, mapNodeErr(err)
	}
	out := make([]models.PeerLocation, 0, len(peers))
	for _, p := range peers {
		host := p.Addr
		if h, _, err := net.SplitHostPort(p.Addr); err == nil {
			host = h
		}
		if loc, ok := e.cfg.Geo.Lookup(host); ok {
			out = append(out, models.PeerLocation{Host: host, Latitude: loc.Lat, Longitude: loc.Lon})
		}
	}
	return out, nil
}
