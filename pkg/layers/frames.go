package layers

import (
	"sort"

	"github.com/hazyhaar/constats/pkg/monthly"
)

// Frame is one step of the chronological sequence.
type Frame struct {
	Index int         `json:"index"`
	Key   monthly.Key `json:"key"`
	Label string      `json:"label"`
	// Visible lists the layer names shown in this frame, oldest first.
	Visible []string `json:"visible"`
}

// Frames returns the frames for months keys, from startYear on (0 keeps
// every month). In cumulative mode a frame shows all months up to its own;
// otherwise only its own month.
func Frames(keys []monthly.Key, startYear int, cumulative bool) []Frame {
	sorted := make([]monthly.Key, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var effective []monthly.Key
	for _, k := range sorted {
		if startYear == 0 || k.Year >= startYear {
			effective = append(effective, k)
		}
	}

	frames := make([]Frame, len(effective))
	for i, k := range effective {
		f := Frame{Index: i, Key: k, Label: k.String()}
		if cumulative {
			for _, prev := range effective[:i+1] {
				f.Visible = append(f.Visible, Name(prev))
			}
		} else {
			f.Visible = []string{Name(k)}
		}
		frames[i] = f
	}
	return frames
}
