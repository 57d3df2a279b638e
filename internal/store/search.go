package store

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"nosam/internal/core"
)

// Search returns every object whose field value contains query, ignoring
// case. With field empty any field may match. Nil values never match.
// Search is not paginated so HasMore is always false.
func (s *Store) Search(ctx context.Context, objectType, query, field string) (ListResult, error) {
	if err := validType(objectType); err != nil {
		return ListResult{}, err
	}
	key := CollectionKey(objectType)
	unlock := s.lock(key)
	objs, err := s.load(ctx, key)
	unlock()
	if err != nil {
		return ListResult{}, err
	}

	fold := cases.Fold()
	needle := fold.String(query)

	items := make([]core.StoredObject, 0)
	for _, o := range objs {
		if matches(o.ObjectData, needle, field, fold) {
			items = append(items, o)
		}
	}
	return ListResult{Items: items, Total: len(items), HasMore: false}, nil
}

func matches(d core.Data, needle, field string, fold cases.Caser) bool {
	if field != "" {
		v, ok := d[field]
		return ok && containsFolded(v, needle, fold)
	}
	for _, v := range d {
		if containsFolded(v, needle, fold) {
			return true
		}
	}
	return false
}

func containsFolded(v any, needle string, fold cases.Caser) bool {
	s, ok := stringify(v)
	if !ok {
		return false
	}
	return strings.Contains(fold.String(s), needle)
}

// stringify renders scalars the way they are shown to users: numbers in
// their shortest decimal form, bools as true or false.
func stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}
