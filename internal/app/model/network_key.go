package model

// NetworkKey is a symmetric payload key held by the local encryption network,
// bound to the hash of the condition expression it was issued for.
type NetworkKey struct {
	Id            uint   `gorm:"primaryKey;autoIncrement"`
	Handle        string `gorm:"uniqueIndex"`
	ConditionHash string
	Key           []byte
	CreatedAt     int64
}
