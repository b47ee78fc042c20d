package model

type Schema struct {
	Id         uint   `gorm:"primaryKey;autoIncrement"`
	SchemaUid  string `gorm:"uniqueIndex"`
	Definition string
	Resolver   string
	Revocable  bool
	Creator    string
	CreatedAt  int64
}
