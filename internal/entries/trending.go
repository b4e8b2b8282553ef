package entries

import (
	"sort"
	"strings"
)

const trendingTop = 5

// Count is a trending label with its number of occurrences.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Trending struct {
	Jobs       []Count `json:"jobs"`
	Categories []Count `json:"categories"`
}

// ComputeTrending ranks job titles (lower-cased, trimmed, blanks skipped) and
// categories (missing ones counted as General) by frequency.
func ComputeTrending(entries []Entry) Trending {
	var titles, categories counter
	for _, e := range entries {
		if t := strings.ToLower(strings.TrimSpace(e.JobTitle)); t != "" {
			titles.add(t)
		}
		c := strings.TrimSpace(e.Category)
		if c == "" {
			c = DefaultCategory
		}
		categories.add(c)
	}
	return Trending{Jobs: titles.top(trendingTop), Categories: categories.top(trendingTop)}
}

// counter keeps first-seen order so ties rank stably.
type counter struct {
	index  map[string]int
	counts []Count
}

func (c *counter) add(name string) {
	if c.index == nil {
		c.index = map[string]int{}
	}
	if i, ok := c.index[name]; ok {
		c.counts[i].Count++
		return
	}
	c.index[name] = len(c.counts)
	c.counts = append(c.counts, Count{Name: name, Count: 1})
}

func (c *counter) top(n int) []Count {
	out := append([]Count{}, c.counts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
