package docnode

import (
	"iter"
	"slices"
	"strings"
)

// typesKey is the object-model type tag key.
const typesKey = "_types"

// Walk returns a lazy pre-order sequence of every container node reachable
// from root, root included. Scalars are never yielded. Each call to the
// returned sequence starts a fresh walk.
func Walk(root Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		walk(root, yield)
	}
}

func walk(current Node, yield func(Node) bool) bool {
	switch typed := current.(type) {
	case *Mapping:
		if !yield(typed) {
			return false
		}

		for _, key := range typed.keys {
			if !walk(typed.values[key], yield) {
				return false
			}
		}
	case *Sequence:
		if !yield(typed) {
			return false
		}

		for _, item := range typed.Items {
			if !walk(item, yield) {
				return false
			}
		}
	}

	return true
}

// Filter keeps the elements of seq for which keep returns true.
func Filter[T any](seq iter.Seq[T], keep func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for item := range seq {
			if keep(item) && !yield(item) {
				return
			}
		}
	}
}

// Map applies fn to every element of seq.
func Map[T, U any](seq iter.Seq[T], fn func(T) U) iter.Seq[U] {
	return func(yield func(U) bool) {
		for item := range seq {
			if !yield(fn(item)) {
				return
			}
		}
	}
}

// FlatMap applies fn to every element of seq and concatenates the results.
func FlatMap[T, U any](seq iter.Seq[T], fn func(T) iter.Seq[U]) iter.Seq[U] {
	return func(yield func(U) bool) {
		for item := range seq {
			for inner := range fn(item) {
				if !yield(inner) {
					return
				}
			}
		}
	}
}

// Mappings narrows a node sequence to its mapping nodes.
func Mappings(seq iter.Seq[Node]) iter.Seq[*Mapping] {
	return func(yield func(*Mapping) bool) {
		for item := range seq {
			mapping, ok := item.(*Mapping)
			if ok && !yield(mapping) {
				return
			}
		}
	}
}

// Items yields the items of the sequence stored under key in each mapping,
// skipping mappings where key is absent or not a sequence.
func Items(seq iter.Seq[*Mapping], key string) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for mapping := range seq {
			child, ok := mapping.Sequence(key)
			if !ok {
				continue
			}

			for _, item := range child.Items {
				if !yield(item) {
					return
				}
			}
		}
	}
}

// HasKey matches mappings containing key.
func HasKey(key string) func(*Mapping) bool {
	return func(mapping *Mapping) bool {
		return mapping.Has(key)
	}
}

// KeyEquals matches mappings whose key holds the string value.
func KeyEquals(key, value string) func(*Mapping) bool {
	return func(mapping *Mapping) bool {
		text, ok := mapping.Text(key)

		return ok && text == value
	}
}

// TypeTags returns the string entries of the mapping's _types sequence.
func TypeTags(mapping *Mapping) []string {
	seq, ok := mapping.Sequence(typesKey)
	if !ok {
		return nil
	}

	tags := make([]string, 0, seq.Len())

	for _, item := range seq.Items {
		scalar, isScalar := item.(Scalar)
		if !isScalar {
			continue
		}

		tag, err := scalar.Text()
		if err == nil {
			tags = append(tags, tag)
		}
	}

	return tags
}

// TypeTagged matches mappings with a _types entry satisfying match.
func TypeTagged(match func(tag string) bool) func(*Mapping) bool {
	return func(mapping *Mapping) bool {
		return slices.ContainsFunc(TypeTags(mapping), match)
	}
}

// TagEquals returns a matcher for exact type tags.
func TagEquals(want string) func(tag string) bool {
	return func(tag string) bool {
		return tag == want
	}
}

// TagSuffixFold returns a matcher for tags starting with prefix and ending
// with suffix, ignoring case in the suffix.
func TagSuffixFold(prefix, suffix string) func(tag string) bool {
	return func(tag string) bool {
		if !strings.HasPrefix(tag, prefix) || len(tag) < len(prefix)+len(suffix) {
			return false
		}

		return strings.EqualFold(tag[len(tag)-len(suffix):], suffix)
	}
}

// Collect drains seq into a slice.
func Collect[T any](seq iter.Seq[T]) []T {
	return slices.Collect(seq)
}
