package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	inner := NewRecordingAPI()
	scoped := NewScopedAPI("mypage", inner)

	scoped.ReportBroken("client.login", errors.New("boom"))
	scoped.ReportWarning("client.reauth")
	scoped.ReportCount("client.scores", 3)

	require.Equal(t, []string{"mypage: client.login"}, inner.Broken())
	require.Len(t, *inner.Reports, 3)
	require.Equal(t, "count mypage: client.scores [3]", (*inner.Reports)[2].String())
}

func TestRedactForm(t *testing.T) {
	form := url.Values{
		"loginId":  {"N1234567"},
		"password": {"hunter2"},
		"_token":   {"abc"},
	}
	redacted := redactForm(form)

	require.NotContains(t, redacted, "hunter2")
	require.NotContains(t, redacted, "abc")
	require.Contains(t, redacted, "loginId=N1234567")
	require.Equal(t, "hunter2", form.Get("password"))
	require.Empty(t, redactForm(nil))
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tel := NewRecordingAPI()
	client := resty.New()
	InstrumentResty(client, tel, "test")

	res, err := client.R().
		SetFormData(map[string]string{"password": "hunter2"}).
		Post(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, http.StatusTeapot, res.StatusCode())
	require.Empty(t, tel.Broken())

	var debugIds []string
	for _, r := range *tel.Reports {
		if r.Kind == "debug" {
			debugIds = append(debugIds, r.Id)
		}
		require.NotContains(t, r.String(), "hunter2")
	}
	require.Equal(t, []string{report_resty_request, report_resty_response}, debugIds)

	server.Close()
	_, err = client.R().Get(server.URL)
	require.Error(t, err)
	broken := tel.Broken()
	require.Len(t, broken, 1)
	require.True(t, strings.HasPrefix(broken[0], "resty."))
}

type fakeCollector struct {
	mu    sync.Mutex
	paths map[string]int
}

func (c *fakeCollector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.paths[r.URL.Path]++
	c.mu.Unlock()
	w.Header().Set("content-type", "application/x-protobuf")
	w.WriteHeader(http.StatusOK)
}

func (c *fakeCollector) hits() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]int{}
	for k, v := range c.paths {
		out[k] = v
	}
	return out
}

func TestSetupTracesOnly(t *testing.T) {
	collector := &fakeCollector{paths: map[string]int{}}
	server := httptest.NewServer(collector)
	defer server.Close()

	ctx := context.Background()
	tel, err := Setup(ctx, "test:telemetry", Config{
		Otlp: OtlpConfig{
			Traces: OtlpConnConfig{HttpEndpoint: server.URL + "/v1/traces"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	require.NotNil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)

	_, span := tel.TracerProvider.Tracer("test").Start(ctx, "span")
	span.End()

	require.NoError(t, tel.Shutdown(ctx))
	require.Equal(t, map[string]int{"/v1/traces": 1}, collector.hits())
}

func TestSetupNothingConfigured(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry-empty", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}
