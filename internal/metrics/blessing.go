// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlessingsGranted counts successful two-hop trust admissions.
	BlessingsGranted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blessings",
			Name:      "granted_total",
			Help:      "Total number of blessing admissions granted",
		},
	)

	// BlessingsRejected counts rejected blessing attempts, labeled by
	// the reason blessing.Engine.Check refused admission.
	BlessingsRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blessings",
			Name:      "rejected_total",
			Help:      "Total number of blessing admissions rejected",
		},
		[]string{"reason"}, // self_referential, not_trusted, unknown_post, invalid_proof, quota_full
	)

	// TrustSetSize reports the current cardinality of the local trust
	// set, sampled when blessing admission adds or evicts a member.
	TrustSetSize = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "set_size",
			Help:      "Current number of trusted peers",
		},
	)

	// EloUpdateDuration tracks how long a single Elo rating update
	// (scoring.Engine.updateScores) takes, including its store round
	// trips.
	EloUpdateDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "elo_update_seconds",
			Help:      "Duration of a single Elo rating update",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to 204.8ms
		},
	)
)
