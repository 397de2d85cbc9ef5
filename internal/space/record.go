package space

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalid is matched by every validation error returned from this package.
var ErrInvalid = errors.New("invalid space")

// Validate checks that the external space can be persisted.
//
// SQLite stores NaN as NULL, so non-finite airflow values would not survive a
// round trip and are rejected here. Ids must be valid UTF-8: peer lists are
// stored as JSON, which would rewrite invalid bytes and break the edge back.
func (e External) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalid)
	}
	if !utf8.ValidString(e.ID) {
		return fmt.Errorf("%w: id %q is not valid UTF-8", ErrInvalid, e.ID)
	}
	if err := e.Design.validate(); err != nil {
		return fmt.Errorf("%w: space %s: %v", ErrInvalid, e.ID, err)
	}
	return nil
}

func (a Airflow) validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"supply", a.Supply},
		{"return", a.Return},
		{"exhaust", a.Exhaust},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s airflow is not finite", f.name)
		}
	}
	return nil
}

// NewRecord maps an external space into a record stamped with groupID and
// connected to every id in group except its own.
//
// Name and number are NFC normalized so that visually identical labels coming
// from different host sessions compare equal.
func NewRecord(ext External, groupID string, group []string) Record {
	return Record{
		ID:           ext.ID,
		Name:         norm.NFC.String(ext.Name),
		Number:       norm.NFC.String(ext.Number),
		GroupID:      groupID,
		ConnectedIDs: PeerSet(ext.ID, group),
		Specified:    ext.Design,
	}
}

// PeerSet returns ids sorted and de-duplicated with self removed.
func PeerSet(self string, ids []string) []string {
	peers := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != self {
			peers = append(peers, id)
		}
	}
	slices.Sort(peers)
	return slices.Compact(peers)
}

// IsConnectedTo reports whether id is a direct peer of r.
func (r Record) IsConnectedTo(id string) bool {
	_, found := slices.BinarySearch(r.ConnectedIDs, id)
	return found
}

// Disconnect removes id from r's peers. Returns false if id was not a peer.
func (r *Record) Disconnect(id string) bool {
	i, found := slices.BinarySearch(r.ConnectedIDs, id)
	if !found {
		return false
	}
	r.ConnectedIDs = slices.Delete(r.ConnectedIDs, i, i+1)
	return true
}

// Label returns a human-readable label, e.g. "101 Office".
func (r Record) Label() string {
	switch {
	case r.Number != "" && r.Name != "":
		return r.Number + " " + r.Name
	case r.Number != "":
		return r.Number
	default:
		return r.Name
	}
}
