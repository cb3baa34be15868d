package detector

import (
	"slices"

	"github.com/ayusman/gokoki/internal/koki"
)

// SortByDistance orders markers nearest first.
func SortByDistance(markers []koki.Marker) {
	slices.SortStableFunc(markers, func(a, b koki.Marker) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
}

// FindCode returns the first marker with the given code.
func FindCode(markers []koki.Marker, code int32) (koki.Marker, bool) {
	i := slices.IndexFunc(markers, func(m koki.Marker) bool { return m.Code == code })
	if i < 0 {
		return koki.Marker{}, false
	}
	return markers[i], true
}
