package consensus

import "fmt"

// CoinExponent is the number of base units ("dollarydoos") per HNS.
const CoinExponent = 1e6

// BaseReward is the starting block subsidy in base units.
const BaseReward = 2000 * CoinExponent

// maxHalvings caps the subsidy schedule; beyond this the reward is zero.
const maxHalvings = 52

// Network holds the consensus parameters the indexer and query engine
// depend on. Only the fields this service actually reads are carried;
// block validation lives in the upstream node.
type Network struct {
	Name string

	// Bech32 human-readable part for addresses on this network.
	AddressHRP string

	// Subsidy schedule.
	HalvingInterval uint64

	// Name auction phase lengths, in blocks. The open period is
	// TreeInterval+1: an OPEN takes effect at the start of the next
	// tree interval.
	TreeInterval  uint64
	BiddingPeriod uint64
	RevealPeriod  uint64

	// Name rollout and lifetime.
	AuctionStart    uint64
	RolloutInterval uint64
	LockupPeriod    uint64
	RenewalWindow   uint64
	ClaimPeriod     uint64
	TransferLockup  uint64
}

// OpenPeriod returns the number of blocks between an OPEN and the start
// of bidding.
func (n *Network) OpenPeriod() uint64 {
	return n.TreeInterval + 1
}

// Main returns the mainnet parameter set.
func Main() *Network {
	return &Network{
		Name:            "main",
		AddressHRP:      "hs",
		HalvingInterval: 170000,
		TreeInterval:    36,
		BiddingPeriod:   720,
		RevealPeriod:    1440,
		AuctionStart:    14 * 144,
		RolloutInterval: 7 * 144,
		LockupPeriod:    30 * 144,
		RenewalWindow:   2 * 365 * 144,
		ClaimPeriod:     4 * 365 * 144,
		TransferLockup:  2 * 144,
	}
}

// Testnet returns the testnet parameter set.
func Testnet() *Network {
	return &Network{
		Name:            "testnet",
		AddressHRP:      "ts",
		HalvingInterval: 170000,
		TreeInterval:    36,
		BiddingPeriod:   144,
		RevealPeriod:    288,
		AuctionStart:    0,
		RolloutInterval: 144,
		LockupPeriod:    144,
		RenewalWindow:   30 * 144,
		ClaimPeriod:     90 * 144,
		TransferLockup:  144,
	}
}

// Regtest returns the regression-test parameter set.
func Regtest() *Network {
	return &Network{
		Name:            "regtest",
		AddressHRP:      "rs",
		HalvingInterval: 2500,
		TreeInterval:    5,
		BiddingPeriod:   5,
		RevealPeriod:    10,
		AuctionStart:    0,
		RolloutInterval: 2,
		LockupPeriod:    2,
		RenewalWindow:   5000,
		ClaimPeriod:     250000,
		TransferLockup:  10,
	}
}

// ByName resolves a network parameter set from its config name.
func ByName(name string) (*Network, error) {
	switch name {
	case "", "main", "mainnet":
		return Main(), nil
	case "testnet", "test":
		return Testnet(), nil
	case "regtest", "simnet":
		n := Regtest()
		if name == "simnet" {
			n.Name = "simnet"
			n.AddressHRP = "ss"
		}
		return n, nil
	}
	return nil, fmt.Errorf("unknown network %q", name)
}

// GetReward returns the block subsidy at the given height in base units.
func GetReward(height, interval uint64) uint64 {
	if interval == 0 {
		return 0
	}
	halvings := height / interval
	if halvings >= maxHalvings {
		return 0
	}
	return BaseReward >> halvings
}
