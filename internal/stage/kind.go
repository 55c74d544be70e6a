// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package stage

import "fmt"

// Kind identifies a pipeline stage. The set is closed: adding a stage means
// adding a constant here and registering its handler in the server wiring.
type Kind string

const (
	KindIngest         Kind = "ingest"
	KindDerive         Kind = "derive"
	KindScore          Kind = "score"
	KindUpdateLeadFeed Kind = "update_lead_feed"
)

// Kinds returns every known stage kind in pipeline order.
func Kinds() []Kind {
	return []Kind{KindIngest, KindDerive, KindScore, KindUpdateLeadFeed}
}

// ParseKind validates an externally supplied stage name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	switch k {
	case KindIngest, KindDerive, KindScore, KindUpdateLeadFeed:
		return k, nil
	}
	return "", fmt.Errorf("unknown stage kind %q", s)
}

func (k Kind) String() string { return string(k) }
