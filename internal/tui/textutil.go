package tui

const ellipsis = "…"

// truncateEnd cuts s to limit runes, ending in an ellipsis when shortened.
func truncateEnd(s string, limit int) string {
	r := []rune(s)
	switch {
	case limit <= 0:
		return ""
	case len(r) <= limit:
		return s
	case limit == 1:
		return ellipsis
	}
	return string(r[:limit-1]) + ellipsis
}

// truncateMiddle cuts s to limit runes keeping both ends, for URLs and
// filter lists where the tail matters.
func truncateMiddle(s string, limit int) string {
	r := []rune(s)
	n := len(r)
	switch {
	case limit <= 0:
		return ""
	case n <= limit:
		return s
	case limit == 1:
		return ellipsis
	}
	left := (limit - 1) / 2
	right := limit - 1 - left
	return string(r[:left]) + ellipsis + string(r[n-right:])
}
