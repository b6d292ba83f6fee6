package model

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidBackup is returned by ParseBackup for documents that
// cannot be imported.
var ErrInvalidBackup = errors.New("invalid backup")

// entityKeys are the collections whose entries carry ids.
var entityKeys = []string{"tasks", "habits", "focus_items"}

// ParseBackup validates an exported document and decodes it.
// Unknown top-level keys are ignored; entity collections must be
// arrays of objects with unique ids.
func ParseBackup(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidBackup)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidBackup)
	}
	for _, key := range entityKeys {
		list := doc.Get(key)
		if !list.Exists() || list.Type == gjson.Null {
			continue
		}
		if !list.IsArray() {
			return nil, fmt.Errorf("%w: %q must be an array", ErrInvalidBackup, key)
		}
		seen := make(map[int64]bool)
		var err error
		list.ForEach(func(_, v gjson.Result) bool {
			id := v.Get("id")
			if !v.IsObject() || id.Type != gjson.Number {
				err = fmt.Errorf("%w: %q entry without a numeric id", ErrInvalidBackup, key)
				return false
			}
			if seen[id.Int()] {
				err = fmt.Errorf("%w: duplicate %s id %d", ErrInvalidBackup, key, id.Int())
				return false
			}
			seen[id.Int()] = true
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return s, nil
}
