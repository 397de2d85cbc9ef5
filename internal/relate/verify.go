package relate

import (
	"context"
	"fmt"
	"slices"
)

// ViolationKind names a broken graph invariant.
type ViolationKind string

const (
	// ViolationSelfLoop: a space lists itself as a peer.
	ViolationSelfLoop ViolationKind = "self_loop"
	// ViolationAsymmetric: A lists B but B does not list A.
	ViolationAsymmetric ViolationKind = "asymmetric"
	// ViolationDangling: a peer id names no tracked space.
	ViolationDangling ViolationKind = "dangling"
)

// Violation is one broken invariant found by Verify.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	SpaceID string        `json:"space_id"`
	PeerID  string        `json:"peer_id"`
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationSelfLoop:
		return fmt.Sprintf("%s: %s is connected to itself", v.Kind, v.SpaceID)
	case ViolationAsymmetric:
		return fmt.Sprintf("%s: %s lists %s but %s does not list %s", v.Kind, v.SpaceID, v.PeerID, v.PeerID, v.SpaceID)
	default:
		return fmt.Sprintf("%s: %s lists untracked %s", v.Kind, v.SpaceID, v.PeerID)
	}
}

// Verify scans the whole store and reports every broken invariant, ordered by
// space id then peer id. An empty result means the graph is consistent.
//
// Verify is the way to find out what a failed BreakGroup or BreakOne left
// behind.
func (e *Engine) Verify(ctx context.Context) (violations []Violation, err error) {
	const op = "Verify"
	defer recoverInto(&err, op)

	records, err := e.store.All(ctx)
	if err != nil {
		return nil, classify(op, nil, err)
	}

	peersOf := make(map[string][]string, len(records))
	for _, rec := range records {
		peersOf[rec.ID] = rec.ConnectedIDs
	}

	violations = []Violation{}
	for _, rec := range records {
		for _, peerID := range rec.ConnectedIDs {
			if peerID == rec.ID {
				violations = append(violations, Violation{Kind: ViolationSelfLoop, SpaceID: rec.ID, PeerID: peerID})
				continue
			}
			back, tracked := peersOf[peerID]
			if !tracked {
				violations = append(violations, Violation{Kind: ViolationDangling, SpaceID: rec.ID, PeerID: peerID})
				continue
			}
			if !slices.Contains(back, rec.ID) {
				violations = append(violations, Violation{Kind: ViolationAsymmetric, SpaceID: rec.ID, PeerID: peerID})
			}
		}
	}

	if len(violations) > 0 {
		e.logger.Warn("relationship store inconsistent", "violations", len(violations))
	}
	return violations, nil
}
