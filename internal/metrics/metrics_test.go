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
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreRegistered(t *testing.T) {
	assert.NotNil(t, PostsReceived)
	assert.NotNil(t, PostsForwarded)
	assert.NotNil(t, BlessingsGranted)
	assert.NotNil(t, BlessingsRejected)
	assert.NotNil(t, TrustSetSize)
	assert.NotNil(t, EloUpdateDuration)
}

func TestMetricsIncrementAndObserve(t *testing.T) {
	PostsReceived.WithLabelValues("new").Inc()
	PostsForwarded.WithLabelValues("success").Inc()
	BlessingsGranted.Inc()
	BlessingsRejected.WithLabelValues("quota_full").Inc()
	TrustSetSize.Set(3)
	EloUpdateDuration.Observe(0.002)

	assert.Equal(t, 1, testutil.CollectAndCount(PostsReceived))
	assert.Equal(t, 1, testutil.CollectAndCount(BlessingsGranted))
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	BlessingsGranted.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "gossipwire_blessings_granted_total")
}
