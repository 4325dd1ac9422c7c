package band

import (
	"fmt"
	"strconv"
	"strings"
)

// Id identifies one band within an archive: a tuple of non-negative
// integers, rendered as "b0000", "b0001.0001" and so on, each component
// zero-padded to four digits.
type Id []int

// ZeroId is the first band in an archive.
func ZeroId() Id {
	return Id{0}
}

// ParseId parses a band directory name such as "b0000" or "b0001.0002".
func ParseId(s string) (Id, error) {
	if !strings.HasPrefix(s, "b") {
		return nil, fmt.Errorf("invalid band id %q", s)
	}
	parts := strings.Split(s[1:], ".")
	id := make(Id, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("invalid band id %q", s)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid band id %q", s)
		}
		id = append(id, n)
	}
	return id, nil
}

// String returns the textual form used for the band directory name.
func (id Id) String() string {
	parts := make([]string, len(id))
	for i, n := range id {
		parts[i] = fmt.Sprintf("%04d", n)
	}
	return "b" + strings.Join(parts, ".")
}

// Next returns the id of the band that follows this one: the last
// component incremented.
func (id Id) Next() Id {
	next := append(Id(nil), id...)
	next[len(next)-1]++
	return next
}

// Previous returns the id before this one, or false at the start of the
// sequence.
func (id Id) Previous() (Id, bool) {
	if len(id) == 0 || id[len(id)-1] == 0 {
		return nil, false
	}
	prev := append(Id(nil), id...)
	prev[len(prev)-1]--
	return prev, true
}

// Compare orders ids numerically, component by component.
func Compare(a, b Id) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Equal reports whether two ids are the same band.
func Equal(a, b Id) bool {
	return Compare(a, b) == 0
}
