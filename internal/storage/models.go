package storage

// Slot names used by the application. Each slot holds one JSON document that
// is replaced wholesale on every write.
const (
	SlotUserTags = "user_tags"
)

// SlotInfo describes a stored slot without decoding it.
type SlotInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}
