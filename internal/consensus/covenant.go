package consensus

// Covenant types, matching the on-chain output covenant enum.
const (
	CovenantNone     = 0
	CovenantClaim    = 1
	CovenantOpen     = 2
	CovenantBid      = 3
	CovenantReveal   = 4
	CovenantRedeem   = 5
	CovenantRegister = 6
	CovenantUpdate   = 7
	CovenantRenew    = 8
	CovenantTransfer = 9
	CovenantFinalize = 10
	CovenantRevoke   = 11
)

var covenantNames = map[int]string{
	CovenantNone:     "NONE",
	CovenantClaim:    "CLAIM",
	CovenantOpen:     "OPEN",
	CovenantBid:      "BID",
	CovenantReveal:   "REVEAL",
	CovenantRedeem:   "REDEEM",
	CovenantRegister: "REGISTER",
	CovenantUpdate:   "UPDATE",
	CovenantRenew:    "RENEW",
	CovenantTransfer: "TRANSFER",
	CovenantFinalize: "FINALIZE",
	CovenantRevoke:   "REVOKE",
}

var covenantTypes = func() map[string]int {
	m := make(map[string]int, len(covenantNames))
	for t, name := range covenantNames {
		m[name] = t
	}
	return m
}()

// CovenantName returns the uppercase action name for a covenant type,
// or "UNKNOWN" for values outside the enum.
func CovenantName(t int) string {
	if name, ok := covenantNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// CovenantType maps an action name back to its enum value. Returns -1
// when the name is not part of the enum.
func CovenantType(name string) int {
	if t, ok := covenantTypes[name]; ok {
		return t
	}
	return -1
}

// IsNameCovenant reports whether a covenant type carries a name hash as
// its first item. Everything from CLAIM through REVOKE does.
func IsNameCovenant(t int) bool {
	return t >= CovenantClaim && t <= CovenantRevoke
}
