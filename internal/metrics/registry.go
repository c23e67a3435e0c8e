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

// Package metrics exposes the node's Prometheus instrumentation: a
// dedicated registry (rather than the global default, so a node
// embedding this package never collides with another library's metric
// names) and the counters, gauge, and histogram spec.md's operations are
// instrumented with.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// namespace prefixes every metric name registered in this package.
const namespace = "gossipwire"

// Registry is the Prometheus registry every metric in this package is
// registered against.
var Registry = prometheus.NewRegistry()
