package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordStatement(t *testing.T) {
	before := testutil.ToFloat64(StatementsTotal.WithLabelValues("SHOW CURVE", "no candidates"))
	RecordStatement("SHOW CURVE", "no candidates", time.Millisecond)
	after := testutil.ToFloat64(StatementsTotal.WithLabelValues("SHOW CURVE", "no candidates"))
	assert.Equal(t, before+1, after)
}

func TestRecordTableLoad(t *testing.T) {
	RecordTableLoad("Table-test", "csv", 42, time.Second, nil)
	assert.Equal(t, 42.0, testutil.ToFloat64(TableRecords.WithLabelValues("Table-test")))

	before := testutil.ToFloat64(TableLoadsTotal.WithLabelValues("Table-test", "csv", "error"))
	RecordTableLoad("Table-test", "csv", 0, time.Second, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(TableLoadsTotal.WithLabelValues("Table-test", "csv", "error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(TableRecords.WithLabelValues("Table-test")))
}

func TestHandler(t *testing.T) {
	SessionsActive.Inc()
	defer SessionsActive.Dec()

	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), "stressdb_sessions_active"))
}
