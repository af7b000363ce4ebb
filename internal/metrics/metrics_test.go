package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_RecordsRoutePatternAndStatus(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/files/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound, "Not found")
		}
		return c.NoContent(http.StatusOK)
	})

	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/files/:id", "200"))
	nfBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/files/:id", "404"))

	for _, id := range []string{"1", "2", "missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/"+id, nil))
	}

	assert.Equal(t, okBefore+2, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/files/:id", "200")))
	assert.Equal(t, nfBefore+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/files/:id", "404")))
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight))
}

func TestMiddleware_ErrorIsRenderedOnce(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"bad"}`, rec.Body.String())
}

func TestJobAndThumbnailCounters(t *testing.T) {
	before := testutil.ToFloat64(jobsTotal.WithLabelValues("fileQueue", OutcomeDone))
	RecordJob("fileQueue", OutcomeDone, 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(jobsTotal.WithLabelValues("fileQueue", OutcomeDone)))

	thumbsBefore := testutil.ToFloat64(thumbnailsTotal.WithLabelValues("250"))
	RecordThumbnail(250)
	assert.Equal(t, thumbsBefore+1, testutil.ToFloat64(thumbnailsTotal.WithLabelValues("250")))

	uploadsBefore := testutil.ToFloat64(uploadsTotal.WithLabelValues("image"))
	RecordUpload("image")
	assert.Equal(t, uploadsBefore+1, testutil.ToFloat64(uploadsTotal.WithLabelValues("image")))

	SetQueueDepth("fileQueue", 3, 1, 0)
	assert.Equal(t, float64(3), testutil.ToFloat64(queueDepth.WithLabelValues("fileQueue", "pending")))
	assert.Equal(t, float64(1), testutil.ToFloat64(queueDepth.WithLabelValues("fileQueue", "processing")))
}
