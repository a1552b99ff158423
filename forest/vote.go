package forest

// Plurality 返回得票最多的标签，平票时取在 votes 中最先出现的那个。
func Plurality[L comparable](votes []L) (L, bool) {
	var winner L
	if len(votes) == 0 {
		return winner, false
	}

	counts := make(map[L]int, len(votes))
	order := make([]L, 0, 4)
	for _, v := range votes {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	best := 0
	for _, label := range order {
		if counts[label] > best {
			best = counts[label]
			winner = label
		}
	}
	return winner, true
}
