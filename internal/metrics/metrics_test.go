package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCatalogCall(t *testing.T) {
	okBefore := testutil.ToFloat64(CatalogCallsTotal.WithLabelValues("search_products", "success"))
	errBefore := testutil.ToFloat64(CatalogCallsTotal.WithLabelValues("search_products", "error"))

	RecordCatalogCall("search_products", 10*time.Millisecond, nil)
	RecordCatalogCall("search_products", 10*time.Millisecond, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(CatalogCallsTotal.WithLabelValues("search_products", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(CatalogCallsTotal.WithLabelValues("search_products", "error")))
}

func TestRecordSync(t *testing.T) {
	ordersBefore := testutil.ToFloat64(OrdersSynced)
	itemsBefore := testutil.ToFloat64(OrderItemsSynced)

	RecordSync(2, 7)

	assert.Equal(t, ordersBefore+2, testutil.ToFloat64(OrdersSynced))
	assert.Equal(t, itemsBefore+7, testutil.ToFloat64(OrderItemsSynced))
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/health", "200"))
	RecordAPIRequest("GET", "/health", 200, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/health", "200")))
}
