// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAcquisition(t *testing.T) {
	t.Parallel()

	reg, m := NewRegistry()
	m.RecordAcquisition(OutcomeCacheHit, time.Millisecond)
	m.RecordAcquisition(OutcomeCacheHit, time.Millisecond)
	m.RecordAcquisition(OutcomeRefreshFailed, 0)
	m.RecordAcquisition(OutcomeRedeem, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokenAcquisitions.WithLabelValues(OutcomeCacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenAcquisitions.WithLabelValues(OutcomeRefreshFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenAcquisitions.WithLabelValues(OutcomeRedeem)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TokenAcquisitions.WithLabelValues(OutcomeRefresh)))

	// refresh_failed has no duration sample; cache_hit and redeem do.
	assert.Equal(t, 2, testutil.CollectAndCount(m.TokenAcquisitionDuration))

	count, err := testutil.GatherAndCount(reg, "batchauth_token_acquisitions_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestRecordLogin(t *testing.T) {
	t.Parallel()

	_, m := NewRegistry()
	m.RecordLogin("success")
	m.RecordLogin("cancelled")
	m.RecordLogin("success")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues("success")))
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordAcquisition(OutcomeError, time.Second)
	m.RecordLogin("error")
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	reg, m := NewRegistry()
	m.RecordAcquisition(OutcomeRefresh, 100*time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	assert.Contains(t, buf.String(), `batchauth_token_acquisitions_total{outcome="refresh"} 1`)
	assert.Contains(t, buf.String(), "# TYPE batchauth_token_acquisition_duration_seconds histogram")
}
