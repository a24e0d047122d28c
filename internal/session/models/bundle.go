package models

// Reserved keys in the raw attribute bundle. Every other key is a
// per-attribute disclosure entry.
const (
	// KeyTokenID carries the on-ledger credential token identifier.
	KeyTokenID = "vct"
	// KeyOwnerAddress carries the wallet address the caller claims to own.
	KeyOwnerAddress = "Matic_Address"
	// KeyShareLedgerAddress carries the secondary ledger address. It is
	// required by the webhook contract but not checked against the chain.
	KeyShareLedgerAddress = "ShareLedger_Address"
)

// IsReservedBundleKey reports whether key is one of the non-disclosure keys.
func IsReservedBundleKey(key string) bool {
	switch key {
	case KeyTokenID, KeyOwnerAddress, KeyShareLedgerAddress:
		return true
	}
	return false
}
