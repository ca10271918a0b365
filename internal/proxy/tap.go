// Package proxy runs an intercepting HTTP(S) proxy that feeds every
// completed exchange to the classifier. It stands in for the host proxy
// collaborator; the classification core itself has no dependency on it and
// stays callable from any flow source.
package proxy

import (
	"bytes"
	"io"
	"net/http"

	"github.com/elazarl/goproxy"
	"go.uber.org/zap"

	"github.com/mckeimic/mitmscripts/internal/classify"
	"github.com/mckeimic/mitmscripts/internal/observation"
	"github.com/mckeimic/mitmscripts/internal/store"
)

// DefaultMaxBodyBytes caps how much of each response body is buffered for
// classification. The client still receives the full body.
const DefaultMaxBodyBytes = 1 << 20

// Config wires a tap.
type Config struct {
	Classifier *classify.Classifier
	Store      *store.Store
	Logger     *zap.SugaredLogger

	// MaxBodyBytes bounds per-response buffering. Zero means
	// DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Tap is a MITM proxy that classifies traffic as it relays it. Observation
// handling must never break the relayed flow: classification errors are
// logged and the response passes through untouched.
type Tap struct {
	proxy      *goproxy.ProxyHttpServer
	classifier *classify.Classifier
	store      *store.Store
	logger     *zap.SugaredLogger
	maxBody    int64
}

// New builds a tap around the given classifier and store.
func New(cfg Config) *Tap {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	t := &Tap{
		proxy:      goproxy.NewProxyHttpServer(),
		classifier: cfg.Classifier,
		store:      cfg.Store,
		logger:     logger,
		maxBody:    maxBody,
	}

	t.proxy.OnRequest().HandleConnect(goproxy.AlwaysMitm)
	t.proxy.OnResponse().DoFunc(func(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
		if resp == nil || ctx.Req == nil {
			return resp
		}
		t.observe(ctx.Req, resp)
		return resp
	})

	return t
}

// Handler exposes the proxy as an http.Handler.
func (t *Tap) Handler() http.Handler {
	return t.proxy
}

// ListenAndServe runs the proxy on addr until the listener fails.
func (t *Tap) ListenAndServe(addr string) error {
	t.logger.Infow("proxy listening", "addr", addr)
	return http.ListenAndServe(addr, t.proxy)
}

// observe buffers a bounded window of the response body, rebuilds the body
// for the client, and routes the resulting findings into the store.
func (t *Tap) observe(req *http.Request, resp *http.Response) {
	body, truncated := t.bufferBody(resp)

	obs := observation.FromExchange(req, resp, body, truncated)
	for _, f := range t.classifier.Classify(obs) {
		outcome, err := t.store.Upsert(f)
		if err != nil {
			t.logger.Warnw("finding rejected", "host", f.Host, "kind", f.Kind, "error", err)
			continue
		}
		if outcome == store.OutcomeInserted {
			t.logger.Infow("new finding",
				"host", f.Host,
				"kind", f.Kind,
				"detail", f.Detail.ID,
			)
		}
	}
}

// bufferBody reads at most maxBody bytes of the response body and splices
// what it read back in front of the remainder, so the client sees the
// stream unchanged.
func (t *Tap) bufferBody(resp *http.Response) ([]byte, bool) {
	if resp.Body == nil {
		return nil, false
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		t.logger.Warnw("response body read failed", "error", err)
		resp.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf), resp.Body))
		return nil, false
	}

	truncated := int64(len(buf)) > t.maxBody
	resp.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf), resp.Body))

	if truncated {
		return buf[:t.maxBody], true
	}
	return buf, false
}
