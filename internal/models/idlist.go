package models

import "encoding/json"

// IDList is an ordered list of entity IDs stored inline on its owner as a
// JSON column. It backs the friend/request sets on User and the likes and
// comments on Post.
type IDList []uint

// Contains reports whether id is present.
func (l IDList) Contains(id uint) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Append returns the list with id added at the end.
func (l IDList) Append(id uint) IDList {
	return append(l, id)
}

// RemoveFirst returns the list without the first occurrence of id and
// whether anything was removed.
func (l IDList) RemoveFirst(id uint) (IDList, bool) {
	for i, v := range l {
		if v == id {
			out := make(IDList, 0, len(l)-1)
			out = append(out, l[:i]...)
			return append(out, l[i+1:]...), true
		}
	}
	return l, false
}

// MarshalJSON renders a nil list as [] instead of null.
func (l IDList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]uint(l))
}
