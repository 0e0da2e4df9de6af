package oada

import (
	"encoding/json"
	"sort"
	"strings"
)

// Listing is the typed projection of an OADA link-map resource: a JSON
// object whose non-internal keys each name a child resource. Storage-internal
// fields (underscore-prefixed) and server-maintained index keys (suffixed
// "-index") are dropped during unmarshaling, so callers only ever see real
// child keys.
type Listing struct {
	// ID is the resource's _id, empty if the resource carried none.
	ID string

	// Keys are the child resource keys, sorted.
	Keys []string
}

// Link is a reference to another resource within the store.
type Link struct {
	ID  string `json:"_id"`
	Rev int    `json:"_rev"`
}

func (l *Listing) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	l.ID = ""
	l.Keys = nil
	if id, ok := raw["_id"]; ok {
		// Ignore a malformed _id; the listing is then treated as empty.
		_ = json.Unmarshal(id, &l.ID)
	}
	for k := range raw {
		if strings.HasPrefix(k, "_") || strings.HasSuffix(k, "-index") {
			continue
		}
		l.Keys = append(l.Keys, k)
	}
	sort.Strings(l.Keys)
	return nil
}

// Empty reports whether this listing should be treated as having no
// children. A resource without an _id is a placeholder the store has not
// materialized yet.
func (l *Listing) Empty() bool {
	return l.ID == "" || len(l.Keys) == 0
}
