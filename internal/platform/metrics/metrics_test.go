package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(500, 30*time.Millisecond)
	c.Record(429, 0)
	c.RecordDispatch("assessment_reminder", "sent")
	c.RecordDispatch("assessment_reminder", "duplicate")
	c.RecordDispatch("assessment_reminder", "sent")
	c.RecordTick("tenant-1", 4, 2, 1, time.Second)

	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(1), snap["rateLimitedTotal"])
	assert.Equal(t, map[string]uint64{"sent": 2, "duplicate": 1}, snap["dispatchOutcomes"])
	assert.Equal(t, uint64(1), snap["ticksTotal"])
	assert.Equal(t, uint64(4), snap["assessmentsEvaluated"])
}
