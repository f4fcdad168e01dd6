package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

var redactedFormKeys = []string{"password", "_token"}

type instrumentResty struct {
	tel       API
	tracer    trace.Tracer
	idcounter *uint64
}

// InstrumentResty attaches debug reports and a span to every request made by the client.
func InstrumentResty(client *resty.Client, tel API, tracerName string) {
	var idcounter uint64
	i := instrumentResty{
		tel:       tel,
		tracer:    Tracer(tracerName),
		idcounter: &idcounter,
	}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id        uint64
	startTime time.Time
}

func redactForm(form url.Values) string {
	if len(form) == 0 {
		return ""
	}
	redacted := url.Values{}
	for k, v := range form {
		redacted[k] = v
	}
	for _, k := range redactedFormKeys {
		if redacted.Has(k) {
			redacted.Set(k, "<redacted>")
		}
	}
	return redacted.Encode()
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, span := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL),
	)

	id := atomic.AddUint64(i.idcounter, 1)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{
		id:        id,
		startTime: time.Now(),
	})
	i.tel.ReportDebug(report_resty_request, id, req.Method, req.URL, redactForm(req.FormData))

	req.SetContext(ctx)
	return nil
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode()))
	if res.StatusCode() >= 500 {
		span.SetStatus(codes.Error, res.Status())
	}

	reqCtx, ok := ctx.Value(reqCtxKey).(reqCtx)
	if !ok {
		i.tel.ReportWarning(report_resty_response, "request context missing", res.Request.URL)
		return nil
	}
	i.tel.ReportDebug(
		report_resty_response,
		reqCtx.id,
		time.Since(reqCtx.startTime).String(),
		res.Status(),
	)
	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	var duration time.Duration
	reqCtx, ok := ctx.Value(reqCtxKey).(reqCtx)
	if ok {
		duration = time.Since(reqCtx.startTime)
	}
	i.tel.ReportBroken(
		report_resty_response,
		err,
		req.Method,
		req.URL,
		duration.String(),
	)
}
