package models

// Pin item types. Page pins bookmark a whole context, comment pins a single
// comment.
const (
	PinItemTypePage    = 10
	PinItemTypeComment = 20
)

// Pin is a per-user bookmark. ItemID holds a context id for page pins and a
// comment id for comment pins. The uniqueness constraint is the storage-layer
// backstop for the idempotent toggle.
type Pin struct {
	ID          uint  `gorm:"primaryKey" json:"id"`
	ItemType    int   `gorm:"not null;uniqueIndex:idx_pins_user_item" json:"item_type"`
	ItemID      uint  `gorm:"not null;uniqueIndex:idx_pins_user_item" json:"item_id"`
	UserID      uint  `gorm:"not null;uniqueIndex:idx_pins_user_item;index" json:"user_id"`
	TimeCreated int64 `gorm:"not null" json:"time_created"`
}
