package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCommand_LabelsOutcome(t *testing.T) {
	before := testutil.CollectAndCount(ExternalCommandDuration)
	ObserveCommand("ffprobe-test", 0.2, nil)
	ObserveCommand("ffprobe-test", 0.4, errors.New("exit status 1"))
	assert.Equal(t, before+2, testutil.CollectAndCount(ExternalCommandDuration))
}

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware())
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// The concrete id must not leak into labels.
	assert.False(t, httpRequestDuration.Delete(prometheus.Labels{"method": "GET", "path": "/items/42", "status": "202"}))
	assert.True(t, httpRequestDuration.Delete(prometheus.Labels{"method": "GET", "path": "/items/{id}", "status": "202"}))
}
