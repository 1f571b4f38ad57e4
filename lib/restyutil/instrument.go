package restyutil

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentOutput receives rendered request/response dumps for
// debugging failed scrapes.
type InstrumentOutput interface {
	Write(id string, contents string)
}

type exchangeIdKey struct{}

type instrumenter struct {
	tracer  trace.Tracer
	output  InstrumentOutput
	counter atomic.Uint64
}

// InstrumentClient attaches span and slog reporting to every request
// the client makes. tracer may be nil, defaulting to a library tracer
// named "resty"; output may be nil, in which case no dumps are
// written.
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output InstrumentOutput) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}
	i := &instrumenter{tracer: tracer, output: output}

	client.OnBeforeRequest(i.started)
	client.OnAfterResponse(i.succeeded)
	client.OnError(i.failed)
}

func (i *instrumenter) started(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), req.Method)

	exchangeId := strconv.FormatUint(i.counter.Add(1), 10)
	ctx = context.WithValue(ctx, exchangeIdKey{}, exchangeId)
	req.SetContext(ctx)

	slog.DebugContext(
		ctx, "request started",
		"method", req.Method,
		"url", req.URL,
		"exchange_id", exchangeId,
	)
	return nil
}

func (i *instrumenter) succeeded(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// request attributes are attached here because RawRequest is not
	// populated yet when the before-request hook runs
	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)

	exchangeId, _ := ctx.Value(exchangeIdKey{}).(string)
	if i.output != nil && exchangeId != "" {
		i.output.Write(exchangeId, formatHttpMessage(res))
	}

	slog.DebugContext(
		ctx, "request succeeded",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.StatusCode(),
		"exchange_id", exchangeId,
	)
	return nil
}

func (i *instrumenter) failed(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	exchangeId, _ := ctx.Value(exchangeIdKey{}).(string)
	slog.ErrorContext(
		ctx, "request failed",
		"method", req.Method,
		"url", req.URL,
		"err", err,
		"exchange_id", exchangeId,
	)
}
