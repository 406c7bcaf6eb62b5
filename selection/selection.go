// Package selection validates and normalises 1-based page numbers.
//
// A Selection is an ordered list of page numbers that may repeat. Deletion
// and membership checks use it as a set; reorder, extraction order and
// duplication use it as a sequence.
package selection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lvillar/pagekit"
)

// Selection is an ordered list of 1-based page numbers.
type Selection []int

// Validate checks every index against pageCount and returns a copy of the
// indices in their original order.
func Validate(indices []int, pageCount int) (Selection, error) {
	out := make(Selection, len(indices))
	for i, n := range indices {
		if n < 1 || n > pageCount {
			return nil, fmt.Errorf("selection: page %d not in [1, %d]: %w", n, pageCount, pagekit.ErrOutOfRange)
		}
		out[i] = n
	}
	return out, nil
}

// RequireNonEmpty fails with pagekit.ErrEmptySelection for an empty list.
func RequireNonEmpty(indices []int) error {
	if len(indices) == 0 {
		return fmt.Errorf("selection: %w", pagekit.ErrEmptySelection)
	}
	return nil
}

// All returns the identity selection 1..count.
func All(count int) Selection {
	s := make(Selection, count)
	for i := range s {
		s[i] = i + 1
	}
	return s
}

// Set returns the distinct members of s.
func (s Selection) Set() map[int]bool {
	set := make(map[int]bool, len(s))
	for _, n := range s {
		set[n] = true
	}
	return set
}

// Contains reports whether page n is selected.
func (s Selection) Contains(n int) bool {
	for _, m := range s {
		if m == n {
			return true
		}
	}
	return false
}

// Complement returns the pages of 1..count not in s, ascending.
func (s Selection) Complement(count int) Selection {
	set := s.Set()
	out := make(Selection, 0, count)
	for n := 1; n <= count; n++ {
		if !set[n] {
			out = append(out, n)
		}
	}
	return out
}

// MoveOrder returns the page order that results from taking page from out of
// 1..count and reinserting it so that it ends up at position to. to is
// clamped to [1, count].
//
// For five pages, MoveOrder(5, 1, 5) is [2 3 4 5 1] and MoveOrder(5, 5, 1)
// is [5 1 2 3 4].
func MoveOrder(count, from, to int) (Selection, error) {
	if from < 1 || from > count {
		return nil, fmt.Errorf("selection: move source %d not in [1, %d]: %w", from, count, pagekit.ErrOutOfRange)
	}
	to = max(1, min(to, count))

	order := make(Selection, 0, count)
	for n := 1; n <= count; n++ {
		if n != from {
			order = append(order, n)
		}
	}
	order = append(order, 0)
	copy(order[to:], order[to-1:])
	order[to-1] = from
	return order, nil
}

// InsertPosition resolves the "after page" argument of page insertions to a
// 0-based index in the output page list:
//
//	after == 0            insert at the beginning
//	after == -1           append at the end
//	1 <= after <= count   insert after that page
//	after > count         append at the end
//
// Any other negative value is out of range.
func InsertPosition(after, count int) (int, error) {
	switch {
	case after == -1:
		return count, nil
	case after < -1:
		return 0, fmt.Errorf("selection: insert position %d: %w", after, pagekit.ErrOutOfRange)
	case after > count:
		return count, nil
	default:
		return after, nil
	}
}

// Parse reads a page-range list such as "1-3,5,8-" against pageCount.
// An open-ended range runs to the last page; "-4" runs from the first.
// Descending ranges ("5-2") are expanded in descending order.
func Parse(expr string, pageCount int) (Selection, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("selection: %w", pagekit.ErrEmptySelection)
	}

	var out Selection
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parseBound(lo, 1)
		if err != nil {
			return nil, fmt.Errorf("selection: %q: %w", part, err)
		}
		last := first
		if isRange {
			if last, err = parseBound(hi, pageCount); err != nil {
				return nil, fmt.Errorf("selection: %q: %w", part, err)
			}
		}

		for _, n := range []int{first, last} {
			if n < 1 || n > pageCount {
				return nil, fmt.Errorf("selection: page %d not in [1, %d]: %w", n, pageCount, pagekit.ErrOutOfRange)
			}
		}

		step := 1
		if last < first {
			step = -1
		}
		for n := first; ; n += step {
			out = append(out, n)
			if n == last {
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("selection: %w", pagekit.ErrEmptySelection)
	}
	return out, nil
}

func parseBound(s string, dflt int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return dflt, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid page number %q: %w", s, pagekit.ErrInvalidParam)
	}
	return n, nil
}

// String formats s compactly, collapsing ascending runs: [1 2 3 5] is "1-3,5".
func (s Selection) String() string {
	var sb strings.Builder
	for i := 0; i < len(s); {
		j := i
		for j+1 < len(s) && s[j+1] == s[j]+1 {
			j++
		}
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		if j > i {
			fmt.Fprintf(&sb, "%d-%d", s[i], s[j])
		} else {
			sb.WriteString(strconv.Itoa(s[i]))
		}
		i = j + 1
	}
	return sb.String()
}
