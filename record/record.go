// Package record turns store snapshots into plain records: the document's
// fields plus its id under "id".
package record

import (
	"maps"

	"github.com/beyondbrewing/brewery-odm/store"
)

// IDField is the key holding the document id in a Record.
const IDField = "id"

// Record is a formatted document. A nil Record means "not found".
type Record map[string]any

// ID returns the record's id, or "" when absent.
func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// Format converts a snapshot into a Record, or nil when the document does
// not exist. Stored fields win over the id if the document has its own "id".
func Format(snap *store.DocumentSnapshot) Record {
	if !snap.Exists() {
		return nil
	}
	data := snap.Data()
	r := make(Record, len(data)+1)
	r[IDField] = snap.ID
	maps.Copy(r, data)
	return r
}

// FormatAll formats every snapshot, skipping missing documents.
func FormatAll(snaps []*store.DocumentSnapshot) []Record {
	out := make([]Record, 0, len(snaps))
	for _, s := range snaps {
		if r := Format(s); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// New builds a Record from an id and fields already in hand, following the
// same precedence as Format.
func New(id string, fields map[string]any) Record {
	r := make(Record, len(fields)+1)
	r[IDField] = id
	maps.Copy(r, fields)
	return r
}
