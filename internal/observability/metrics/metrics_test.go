package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserversCountAfterInit(t *testing.T) {
	Init(nil, nil)

	before := testutil.ToFloat64(billCreationTotal.WithLabelValues(ResultError))
	IncBillCreation(ResultError)
	assert.Equal(t, before+1, testutil.ToFloat64(billCreationTotal.WithLabelValues(ResultError)))

	IncSettlementGroupSkipped("", "")
	assert.Equal(t, 1.0, testutil.ToFloat64(settlementGroupsSkipped.WithLabelValues("unknown", "unknown")))

	AddCourierResets(0)
	AddCourierResets(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(courierResetsTotal))

	ObserveFeeCalculation("", true, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(feeCalculationsTotal.WithLabelValues(ResultSuccess, "true")))
}
