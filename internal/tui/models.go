package tui

type View int

const (
	ViewCards View = iota
	ViewDetail
	ViewTags
	ViewAddTag
	ViewSearch
)

func (v View) String() string {
	switch v {
	case ViewCards:
		return "cards"
	case ViewDetail:
		return "detail"
	case ViewTags:
		return "tags"
	case ViewAddTag:
		return "add tag"
	case ViewSearch:
		return "search"
	default:
		return "unknown"
	}
}
