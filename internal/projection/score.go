// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package projection

import "math"

// OutreachScore ranks a lead by combining the readiness composite (0-100)
// with the engagement suitability (0-1): round(composite * engagement),
// clamped to [0, 100]. Pure and monotonic non-decreasing in both arguments.
//
// The builder and the read-path fallback share this exact function; a stored
// outreach_score column and a recomputed value must never disagree for the
// same inputs.
func OutreachScore(composite int, engagement float64) int {
	if composite < 0 {
		composite = 0
	} else if composite > 100 {
		composite = 100
	}
	if engagement < 0 {
		engagement = 0
	} else if engagement > 1 {
		engagement = 1
	}
	return int(math.Round(float64(composite) * engagement))
}
