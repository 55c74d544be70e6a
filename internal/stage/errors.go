// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package stage

import "errors"

// ErrRateLimited is returned when a stage invocation exceeds the per
// (workspace, kind) quota. No job run is recorded for a rate-limited
// attempt; the API maps this to 429.
var ErrRateLimited = errors.New("stage invocation rate limited")
