package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"hnscan-clone/internal/chain"
	"hnscan-clone/internal/consensus"
	"hnscan-clone/internal/models"
	"hnscan-clone/internal/repository"
)

// GetName builds the full name document: rollout data and live state
// from the node, merged with the indexed auction record and bids.
func (e *Engine) GetName(ctx context.Context, name string) (*NameView, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !consensus.VerifyName(name) {
		return nil, fmt.Errorf("%w: invalid name %q", ErrInput, name)
	}
	nameHash := consensus.HashNameHex(name)
	v := &NameView{Name: name, NameHash: nameHash, State: "INACTIVE"}

	ni, err := e.node.NameInfo(ctx, name)
	if err != nil && mapNodeErr(err) != ErrNotFound {
		return nil, err
	}
	if ni != nil {
		v.Reserved = ni.Start.Reserved
		v.Week = ni.Start.Week
		v.Release = ni.Start.Start
		if info := ni.Info; info != nil {
			v.Height = info.Height
			v.Value = info.Value
			v.Highest = info.Highest
			v.Renewal = info.Renewal
			v.Renewals = info.Renewals
			v.Transfer = info.Transfer
			v.Revoked = info.Revoked
			v.Claimed = info.Claimed
			v.Weak = info.Weak
			v.Registered = info.Registered
			v.Expired = info.Expired
			v.Owner = info.Owner
			if !info.Expired {
				v.State = info.State
				v.BlocksUntil = blocksUntil(info)
			}
		}
	} else {
		// The node had no rollout data; derive it locally.
		v.Release, v.Week = e.cfg.Network.RolloutByName(name)
	}
	v.NextState = nextNameState(v.State)

	rec, err := e.store.GetNameRecord(ctx, nameHash)
	if err != nil {
		return nil, fmt.Errorf("failed to read name record: %w", err)
	}
	var openHeight uint64
	if rec != nil {
		v.Open = rec.Open
		openHeight = rec.Open
		if v.Value == 0 && v.Highest == 0 {
			v.Value = rec.Value
			v.Highest = rec.Highest
		}
	}

	bids, err := e.GetNameBids(ctx, nameHash, openHeight)
	if err != nil {
		return nil, err
	}
	v.Bids = bids
	return v, nil
}

// nextNameState maps a live auction state to the phase that follows
// it. A registered name's next phase is renewal.
func nextNameState(state string) string {
	switch state {
	case "OPENING":
		return "BIDDING"
	case "BIDDING":
		return "REVEAL"
	case "REVEAL":
		return "CLOSED"
	case "CLOSED":
		return "RENEWAL"
	case "LOCKED":
		return "CLOSED"
	}
	return "OPENING"
}

// blocksUntil picks the countdown matching the current state from the
// node's stats block.
func blocksUntil(info *chain.NameState) int64 {
	s := info.Stats
	if s == nil {
		return 0
	}
	switch info.State {
	case "OPENING":
		if s.BlocksUntilBidding != nil {
			return *s.BlocksUntilBidding
		}
	case "BIDDING":
		if s.BlocksUntilReveal != nil {
			return *s.BlocksUntilReveal
		}
	case "REVEAL":
		if s.BlocksUntilClose != nil {
			return *s.BlocksUntilClose
		}
	case "CLOSED":
		if s.BlocksUntilExpire != nil {
			return *s.BlocksUntilExpire
		}
	}
	return 0
}

type bidOutpoint struct {
	txid  string
	index uint32
}

// GetNameBids lists the current auction's bids, newest first. A bid
// spent at an outpoint where a REVEAL coin exists is revealed at that
// coin's value; the highest revealed bid after the open wins.
func (e *Engine) GetNameBids(ctx context.Context, nameHash string, openHeight uint64) ([]*BidView, error) {
	coins, err := e.store.CoinsByNameHash(ctx, nameHash)
	if err != nil {
		return nil, fmt.Errorf("failed to read name coins: %w", err)
	}

	reveals := make(map[bidOutpoint]uint64)
	for _, c := range coins {
		if c.CovenantType == consensus.CovenantReveal {
			reveals[bidOutpoint{c.Txid, c.Index}] = c.Value
		}
	}

	bids := make([]*BidView, 0)
	winIdx := -1
	var winVal uint64
	for _, c := range coins {
		if c.CovenantType != consensus.CovenantBid || c.Height <= openHeight {
			continue
		}
		b := &BidView{Txid: c.Txid, Index: c.Index, Height: c.Height, Time: c.Time, Lockup: c.Value}
		if c.Spent {
			if val, ok := reveals[bidOutpoint{c.SpentTxid, c.SpentIndex}]; ok {
				value := val
				b.Revealed = true
				b.Value = &value
				if winIdx < 0 || val > winVal {
					winIdx = len(bids)
					winVal = val
				}
			}
		}
		bids = append(bids, b)
	}
	if winIdx >= 0 {
		bids[winIdx].Win = true
	}
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Time > bids[j].Time })
	return bids, nil
}

// GetNameHistory pages a name's covenant events, newest first.
func (e *Engine) GetNameHistory(ctx context.Context, name string, limit, offset int) (*HistoryPage, error) {
	limit, offset, err := clampPage(limit, offset, 25, 50)
	if err != nil {
		return nil, err
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if !consensus.VerifyName(name) {
		return nil, fmt.Errorf("%w: invalid name %q", ErrInput, name)
	}
	nameHash := consensus.HashNameHex(name)

	total, err := e.store.CountCoinsByNameHash(ctx, nameHash)
	if err != nil {
		return nil, fmt.Errorf("failed to count name history: %w", err)
	}
	coins, err := e.store.CoinsByNameHashPage(ctx, nameHash, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to read name history: %w", err)
	}

	result := make([]HistoryItem, 0, len(coins))
	for _, c := range coins {
		item := HistoryItem{
			Txid:   c.Txid,
			Index:  c.Index,
			Height: c.Height,
			Time:   c.Time,
			Action: historyAction(c.CovenantType),
		}
		switch c.CovenantType {
		case consensus.CovenantBid, consensus.CovenantReveal, consensus.CovenantRedeem:
			value := c.Value
			item.Value = &value
		}
		result = append(result, item)
	}
	return &HistoryPage{Total: total, Limit: limit, Offset: offset, Result: result}, nil
}

// historyAction labels a covenant type for the history feed.
func historyAction(covType int) string {
	switch covType {
	case consensus.CovenantClaim:
		return "Claimed"
	case consensus.CovenantOpen:
		return "Opened"
	case consensus.CovenantBid:
		return "Bid"
	case consensus.CovenantReveal:
		return "Reveal"
	case consensus.CovenantRedeem:
		return "Redeem"
	case consensus.CovenantRegister:
		return "Register"
	case consensus.CovenantUpdate:
		return "Update"
	case consensus.CovenantRenew:
		return "Renew"
	case consensus.CovenantTransfer:
		return "Transfer"
	case consensus.CovenantFinalize:
		return "Finalize"
	case consensus.CovenantRevoke:
		return "Revoked"
	}
	return consensus.CovenantName(covType)
}

// GetNames serves the /names listing. A type of value, weekBid or
// monthBid overrides the status filter; otherwise names are listed by
// lifecycle status, defaulting to opening.
func (e *Engine) GetNames(ctx context.Context, listType, status string, limit, offset int) (*NamePage, error) {
	switch strings.ToLower(strings.TrimSpace(listType)) {
	case "":
	case "value":
		return e.topNamesPage(ctx, limit, offset)
	case "weekbid":
		return e.topBidsPage(ctx, weekSeconds, limit, offset)
	case "monthbid":
		return e.topBidsPage(ctx, monthSeconds, limit, offset)
	default:
		return nil, fmt.Errorf("%w: unknown name listing type %q", ErrInput, listType)
	}
	if status == "" {
		status = "opening"
	}
	return e.GetNamesByStatus(ctx, status, limit, offset)
}

// GetNamesByStatus pages names sitting in one auction phase, newest
// open first. Totals come from the aggregate snapshot when it is
// current for the indexed head.
func (e *Engine) GetNamesByStatus(ctx context.Context, status string, limit, offset int) (*NamePage, error) {
	limit, offset, err := clampPage(limit, offset, 25, 50)
	if err != nil {
		return nil, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "opening", "bidding", "reveal", "closed", "locked":
	default:
		return nil, fmt.Errorf("%w: unknown name status %q", ErrInput, status)
	}

	head, err := e.store.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexed head: %w", err)
	}

	total := int64(-1)
	if snap := e.agg.Load(); snap != nil && snap.Height == head {
		if n, ok := snap.StatusCounts[status]; ok {
			total = n
		}
	}

	var names []models.Name
	if status == "closed" {
		boundary := e.cfg.Network.OpenPeriod() + e.cfg.Network.BiddingPeriod + e.cfg.Network.RevealPeriod
		if head < boundary {
			return &NamePage{Total: 0, Limit: limit, Offset: offset, Result: []models.Name{}}, nil
		}
		maxOpen := head - boundary
		if total < 0 {
			if total, err = e.store.CountNamesOpenedBefore(ctx, maxOpen); err != nil {
				return nil, fmt.Errorf("failed to count closed names: %w", err)
			}
		}
		if names, err = e.store.NamesOpenedBefore(ctx, maxOpen, limit, offset); err != nil {
			return nil, fmt.Errorf("failed to list closed names: %w", err)
		}
		return &NamePage{Total: total, Limit: limit, Offset: offset, Result: names}, nil
	}

	minOpen, maxOpen, ok := e.auctionWindow(status, head)
	if !ok {
		return &NamePage{Total: 0, Limit: limit, Offset: offset, Result: []models.Name{}}, nil
	}
	if total < 0 {
		if total, err = e.store.CountNamesByOpenWindow(ctx, minOpen, maxOpen); err != nil {
			return nil, fmt.Errorf("failed to count %s names: %w", status, err)
		}
	}
	if names, err = e.store.NamesByOpenWindow(ctx, minOpen, maxOpen, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list %s names: %w", status, err)
	}
	return &NamePage{Total: total, Limit: limit, Offset: offset, Result: names}, nil
}

// auctionWindow computes the open-height range whose names sit in a
// lifecycle phase at the given chain height. ok is false when the
// chain is younger than the phase boundary.
func (e *Engine) auctionWindow(status string, head uint64) (minOpen, maxOpen uint64, ok bool) {
	n := e.cfg.Network
	open := n.OpenPeriod()
	switch status {
	case "opening":
		return floorSub(head, open-1), head, true
	case "bidding":
		if head < open {
			return 0, 0, false
		}
		return floorSub(head, open+n.BiddingPeriod-1), head - open, true
	case "reveal":
		if head < open+n.BiddingPeriod {
			return 0, 0, false
		}
		return floorSub(head, open+n.BiddingPeriod+n.RevealPeriod-1), head - open - n.BiddingPeriod, true
	case "locked":
		return floorSub(head, n.LockupPeriod-1), head, true
	}
	return 0, 0, false
}

// floorSub is a-b clamped at zero.
func floorSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

// topNamesPage serves type=value from the aggregate snapshot, falling
// back to a live query before the first refresh.
func (e *Engine) topNamesPage(ctx context.Context, limit, offset int) (*NamePage, error) {
	limit, offset, err := clampPage(limit, offset, 25, 50)
	if err != nil {
		return nil, err
	}
	if snap := e.agg.Load(); snap != nil {
		names := snap.TopValue
		lo, hi := sliceBounds(len(names), limit, offset)
		return &NamePage{Total: int64(len(names)), Limit: limit, Offset: offset, Result: names[lo:hi]}, nil
	}
	names, err := e.store.TopNamesByValue(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list top names: %w", err)
	}
	return &NamePage{Total: int64(offset + len(names)), Limit: limit, Offset: offset, Result: names}, nil
}

// topBidsPage serves type=weekBid/monthBid from the aggregate
// snapshot, falling back to a live query before the first refresh.
func (e *Engine) topBidsPage(ctx context.Context, windowSec int64, limit, offset int) (*NamePage, error) {
	limit, offset, err := clampPage(limit, offset, 25, 50)
	if err != nil {
		return nil, err
	}
	var bids []repository.TopBid
	if snap := e.agg.Load(); snap != nil {
		bids = snap.WeekBids
		if windowSec == monthSeconds {
			bids = snap.MonthBids
		}
	} else {
		since := time.Now().Unix() - windowSec
		if bids, err = e.store.TopBids(ctx, since, topBidsSize); err != nil {
			return nil, fmt.Errorf("failed to list top bids: %w", err)
		}
	}
	lo, hi := sliceBounds(len(bids), limit, offset)
	return &NamePage{Total: int64(len(bids)), Limit: limit, Offset: offset, Result: bids[lo:hi]}, nil
}

// sliceBounds clamps a limit/offset window to a slice of length n.
func sliceBounds(n, limit, offset int) (lo, hi int) {
	lo = offset
	if lo > n {
		lo = n
	}
	hi = lo + limit
	if hi > n {
		hi = n
	}
	return lo, hi
}
