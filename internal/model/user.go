package model

// UserRecord is the user-level document: coin ledger, spendable balance,
// the sad-pet rotation pointer, owned pets and purchased items.
type UserRecord struct {
	UserID                string `json:"userId"`
	CumulativeCoinsEarned int64  `json:"cumulativeCoinsEarned"`
	SpendableBalance      int64  `json:"spendableBalance"`
	RotationPointer       int    `json:"rotationPointer"`

	// Pets maps pet id to ownedAt. Inventory maps item id to count.
	Pets      map[string]int64 `json:"-"`
	Inventory map[string]int64 `json:"-"`
}
