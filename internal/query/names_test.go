package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hnscan-clone/internal/chain"
	"hnscan-clone/internal/consensus"
	"hnscan-clone/internal/models"
	"hnscan-clone/internal/repository"
)

func nameCoin(txid string, index uint32, height uint64, time int64, value uint64, covType int, hash string) models.Coin {
	return models.Coin{
		Txid:         txid,
		Index:        index,
		Height:       height,
		Time:         time,
		Value:        value,
		CovenantType: covType,
		NameHash:     hash,
	}
}

func TestNextNameState(t *testing.T) {
	cases := map[string]string{
		"OPENING":  "BIDDING",
		"BIDDING":  "REVEAL",
		"REVEAL":   "CLOSED",
		"CLOSED":   "RENEWAL",
		"LOCKED":   "CLOSED",
		"INACTIVE": "OPENING",
		"":         "OPENING",
	}
	for state, want := range cases {
		if got := nextNameState(state); got != want {
			t.Errorf("nextNameState(%q) = %q, want %q", state, got, want)
		}
	}
}

func TestGetNameMergesNodeAndStore(t *testing.T) {
	store := newFakeStore()
	node := newFakeNode()
	hash := consensus.HashNameHex("water")

	expire := int64(5000)
	ni := &chain.NameInfo{Info: &chain.NameState{
		State:      "CLOSED",
		Height:     100,
		Value:      200,
		Highest:    300,
		Renewal:    150,
		Registered: true,
		Stats:      &chain.NameStats{BlocksUntilExpire: &expire},
	}}
	ni.Start.Week = 10
	ni.Start.Start = 2016
	node.nameInfos["water"] = ni
	store.names[hash] = models.Name{NameHash: hash, Name: "water", Open: 100, Value: 999, Highest: 999}

	eng := testEngine(store, node)
	v, err := eng.GetName(context.Background(), "WATER")
	if err != nil {
		t.Fatalf("GetName: %v", err)
	}
	if v.Name != "water" || v.NameHash != hash {
		t.Fatalf("identity = %q/%q", v.Name, v.NameHash)
	}
	if v.State != "CLOSED" || v.NextState != "RENEWAL" {
		t.Fatalf("state = %q next = %q", v.State, v.NextState)
	}
	if v.BlocksUntil != 5000 {
		t.Fatalf("blocksUntil = %d", v.BlocksUntil)
	}
	if v.Week != 10 || v.Release != 2016 {
		t.Fatalf("rollout = week %d release %d", v.Week, v.Release)
	}
	// Node values win over the indexed auction record.
	if v.Value != 200 || v.Highest != 300 {
		t.Fatalf("value = %d highest = %d", v.Value, v.Highest)
	}
	if v.Open != 100 {
		t.Fatalf("open = %d", v.Open)
	}
	if v.Bids == nil || len(v.Bids) != 0 {
		t.Fatalf("bids = %v", v.Bids)
	}
}

func TestGetNameInactive(t *testing.T) {
	eng := testEngine(newFakeStore(), newFakeNode())
	v, err := eng.GetName(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetName: %v", err)
	}
	if v.State != "INACTIVE" || v.NextState != "OPENING" {
		t.Fatalf("state = %q next = %q", v.State, v.NextState)
	}

	// Expired names report INACTIVE regardless of the node state.
	node := newFakeNode()
	node.nameInfos["ghost"] = &chain.NameInfo{Info: &chain.NameState{State: "CLOSED", Expired: true}}
	eng = testEngine(newFakeStore(), node)
	v, err = eng.GetName(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetName expired: %v", err)
	}
	if v.State != "INACTIVE" || !v.Expired {
		t.Fatalf("expired state = %q expired = %v", v.State, v.Expired)
	}
}

func TestGetNameRejectsInvalid(t *testing.T) {
	eng := testEngine(newFakeStore(), newFakeNode())
	for _, name := range []string{"", "bad name", "UPPER!", strings.Repeat("x", 64)} {
		if _, err := eng.GetName(context.Background(), name); !errors.Is(err, ErrInput) {
			t.Errorf("GetName(%q): expected ErrInput, got %v", name, err)
		}
	}
}

func TestGetNameBidsRevealJoin(t *testing.T) {
	store := newFakeStore()
	hash := strings.Repeat("ff", 32)
	revTx := strings.Repeat("9", 64)
	b1 := strings.Repeat("1", 64)
	b2 := strings.Repeat("2", 64)
	b3 := strings.Repeat("3", 64)
	b0 := strings.Repeat("4", 64)

	bid1 := nameCoin(b1, 0, 5, 500, 1000, consensus.CovenantBid, hash)
	bid1.Spent = true
	bid1.SpentTxid = revTx
	bid1.SpentIndex = 0
	bid2 := nameCoin(b2, 1, 6, 600, 3500, consensus.CovenantBid, hash)
	bid2.Spent = true
	bid2.SpentTxid = revTx
	bid2.SpentIndex = 1
	store.nameCoins[hash] = []models.Coin{
		nameCoin(strings.Repeat("0", 64), 0, 1, 100, 0, consensus.CovenantOpen, hash),
		nameCoin(b0, 0, 1, 100, 50, consensus.CovenantBid, hash), // pre-open row, ignored
		bid1,
		bid2,
		nameCoin(b3, 0, 7, 700, 2200, consensus.CovenantBid, hash),
		nameCoin(revTx, 0, 20, 2000, 100, consensus.CovenantReveal, hash),
		nameCoin(revTx, 1, 20, 2000, 300, consensus.CovenantReveal, hash),
	}

	eng := testEngine(store, newFakeNode())
	bids, err := eng.GetNameBids(context.Background(), hash, 1)
	if err != nil {
		t.Fatalf("GetNameBids: %v", err)
	}
	if len(bids) != 3 {
		t.Fatalf("len(bids) = %d, want 3", len(bids))
	}
	// Newest first.
	if bids[0].Txid != b3 || bids[1].Txid != b2 || bids[2].Txid != b1 {
		t.Fatalf("order = %s, %s, %s", bids[0].Txid, bids[1].Txid, bids[2].Txid)
	}
	if bids[0].Revealed || bids[0].Value != nil || bids[0].Win {
		t.Fatalf("unrevealed bid = %+v", bids[0])
	}
	if bids[0].Lockup != 2200 {
		t.Fatalf("lockup = %d", bids[0].Lockup)
	}
	if !bids[1].Revealed || bids[1].Value == nil || *bids[1].Value != 300 || !bids[1].Win {
		t.Fatalf("winning bid = %+v", bids[1])
	}
	if !bids[2].Revealed || bids[2].Value == nil || *bids[2].Value != 100 || bids[2].Win {
		t.Fatalf("losing bid = %+v", bids[2])
	}
}

func TestGetNameHistoryLabels(t *testing.T) {
	store := newFakeStore()
	name := "water"
	hash := consensus.HashNameHex(name)
	store.nameCoins[hash] = []models.Coin{
		nameCoin(strings.Repeat("1", 64), 0, 1, 100, 0, consensus.CovenantOpen, hash),
		nameCoin(strings.Repeat("2", 64), 0, 5, 500, 1000, consensus.CovenantBid, hash),
		nameCoin(strings.Repeat("3", 64), 0, 20, 2000, 100, consensus.CovenantReveal, hash),
		nameCoin(strings.Repeat("4", 64), 0, 40, 4000, 0, consensus.CovenantRegister, hash),
	}

	eng := testEngine(store, newFakeNode())
	page, err := eng.GetNameHistory(context.Background(), name, 10, 0)
	if err != nil {
		t.Fatalf("GetNameHistory: %v", err)
	}
	if page.Total != 4 || len(page.Result) != 4 {
		t.Fatalf("total = %d len = %d", page.Total, len(page.Result))
	}
	wantActions := []string{"Register", "Reveal", "Bid", "Opened"}
	for i, want := range wantActions {
		if page.Result[i].Action != want {
			t.Errorf("action[%d] = %q, want %q", i, page.Result[i].Action, want)
		}
	}
	if page.Result[0].Value != nil {
		t.Errorf("register item should carry no value")
	}
	if page.Result[2].Value == nil || *page.Result[2].Value != 1000 {
		t.Errorf("bid item value = %v", page.Result[2].Value)
	}

	if _, err := eng.GetNameHistory(context.Background(), "bad name", 10, 0); !errors.Is(err, ErrInput) {
		t.Fatalf("expected ErrInput for invalid name, got %v", err)
	}
	if _, err := eng.GetNameHistory(context.Background(), name, 51, 0); !errors.Is(err, ErrInput) {
		t.Fatalf("expected ErrInput for oversized limit, got %v", err)
	}
}

// Regtest auction phases: open period 6, bidding 5, reveal 10,
// lockup 2.
func TestGetNamesByStatusWindows(t *testing.T) {
	store := newFakeStore()
	store.head = 30
	for _, n := range []struct {
		name string
		open uint64
	}{
		{"n30", 30}, {"n25", 25},
		{"n24", 24}, {"n20", 20},
		{"n19", 19}, {"n10", 10},
		{"n9", 9}, {"n1", 1},
	} {
		store.names[n.name] = models.Name{NameHash: n.name, Name: n.name, Open: n.open}
	}
	eng := testEngine(store, newFakeNode())
	ctx := context.Background()

	cases := []struct {
		status string
		want   []string
	}{
		{"opening", []string{"n30", "n25"}},
		{"bidding", []string{"n24", "n20"}},
		{"reveal", []string{"n19", "n10"}},
		{"closed", []string{"n9", "n1"}},
		{"locked", []string{"n30"}},
	}
	for _, tc := range cases {
		page, err := eng.GetNamesByStatus(ctx, tc.status, 10, 0)
		if err != nil {
			t.Fatalf("GetNamesByStatus(%s): %v", tc.status, err)
		}
		names := page.Result.([]models.Name)
		if page.Total != int64(len(tc.want)) || len(names) != len(tc.want) {
			t.Fatalf("%s: total = %d len = %d, want %d", tc.status, page.Total, len(names), len(tc.want))
		}
		for i, want := range tc.want {
			if names[i].Name != want {
				t.Errorf("%s[%d] = %q, want %q", tc.status, i, names[i].Name, want)
			}
		}
	}

	if _, err := eng.GetNamesByStatus(ctx, "expired", 10, 0); !errors.Is(err, ErrInput) {
		t.Fatalf("expected ErrInput for unknown status, got %v", err)
	}
}

func TestGetNamesByStatusYoungChain(t *testing.T) {
	store := newFakeStore()
	store.head = 3
	store.names["early"] = models.Name{NameHash: "early", Name: "early", Open: 1}
	eng := testEngine(store, newFakeNode())
	ctx := context.Background()

	for _, status := range []string{"bidding", "reveal", "closed"} {
		page, err := eng.GetNamesByStatus(ctx, status, 10, 0)
		if err != nil {
			t.Fatalf("GetNamesByStatus(%s): %v", status, err)
		}
		if page.Total != 0 || len(page.Result.([]models.Name)) != 0 {
			t.Fatalf("%s on young chain: %+v", status, page)
		}
	}
}

func TestGetNamesListings(t *testing.T) {
	store := newFakeStore()
	store.head = 30
	store.topNames = []models.Name{
		{NameHash: "a", Name: "a", Value: 900},
		{NameHash: "b", Name: "b", Value: 500},
	}
	store.topBids = []repository.TopBid{{NameHash: "c", Name: "c", Value: 400, Time: 1234}}
	eng := testEngine(store, newFakeNode())
	ctx := context.Background()

	// Live fallback before the first aggregate refresh.
	page, err := eng.GetNames(ctx, "value", "", 10, 0)
	if err != nil {
		t.Fatalf("GetNames(value): %v", err)
	}
	if len(page.Result.([]models.Name)) != 2 {
		t.Fatalf("live top names = %+v", page.Result)
	}

	if err := eng.RefreshAggregates(ctx); err != nil {
		t.Fatalf("RefreshAggregates: %v", err)
	}

	page, err = eng.GetNames(ctx, "value", "", 1, 1)
	if err != nil {
		t.Fatalf("GetNames(value) cached: %v", err)
	}
	names := page.Result.([]models.Name)
	if page.Total != 2 || len(names) != 1 || names[0].Name != "b" {
		t.Fatalf("cached top names page = %+v", page)
	}

	for _, listType := range []string{"weekBid", "monthBid"} {
		page, err = eng.GetNames(ctx, listType, "", 10, 0)
		if err != nil {
			t.Fatalf("GetNames(%s): %v", listType, err)
		}
		bids := page.Result.([]repository.TopBid)
		if page.Total != 1 || len(bids) != 1 || bids[0].Name != "c" {
			t.Fatalf("%s page = %+v", listType, page)
		}
	}

	if _, err := eng.GetNames(ctx, "bogus", "", 10, 0); !errors.Is(err, ErrInput) {
		t.Fatalf("expected ErrInput for unknown type, got %v", err)
	}
}

func TestRefreshAggregatesCachesStatusTotals(t *testing.T) {
	store := newFakeStore()
	store.head = 30
	store.names["n30"] = models.Name{NameHash: "n30", Name: "n30", Open: 30}
	eng := testEngine(store, newFakeNode())
	ctx := context.Background()

	if err := eng.RefreshAggregates(ctx); err != nil {
		t.Fatalf("RefreshAggregates: %v", err)
	}
	snap := eng.AggregatesSnapshot()
	if snap == nil || snap.Height != 30 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.StatusCounts["opening"] != 1 {
		t.Fatalf("opening count = %d", snap.StatusCounts["opening"])
	}

	// A row indexed after the refresh shows up in the page while the
	// cached total lags until the next refresh.
	store.names["n25"] = models.Name{NameHash: "n25", Name: "n25", Open: 25}
	page, err := eng.GetNamesByStatus(ctx, "opening", 10, 0)
	if err != nil {
		t.Fatalf("GetNamesByStatus: %v", err)
	}
	if page.Total != 1 || len(page.Result.([]models.Name)) != 2 {
		t.Fatalf("cached total = %d len = %d, want 1, 2", page.Total, len(page.Result.([]models.Name)))
	}

	// Once the head moves the snapshot goes stale and totals are
	// recounted live.
	store.head = 31
	page, err = eng.GetNamesByStatus(ctx, "opening", 10, 0)
	if err != nil {
		t.Fatalf("GetNamesByStatus stale: %v", err)
	}
	if page.Total != 1 || len(page.Result.([]models.Name)) != 1 {
		t.Fatalf("stale total = %d len = %d, want 1, 1", page.Total, len(page.Result.([]models.Name)))
	}
}
