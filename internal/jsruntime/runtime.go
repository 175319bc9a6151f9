// Package jsruntime hosts the per-request QuickJS context that executes a
// stored function's JavaScript/TypeScript/JSX source against the inbound
// request, preloading the polyfill and bridge modules the synthetic module
// declares (§4.5).
package jsruntime

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"modernc.org/quickjs"

	"github.com/queryrun/query/internal/config"
)

//go:embed polyfill/*.js js/*.js
var embeddedModules embed.FS

// preloadOrder mirrors the module names §4.5 lists: polyfills first, then
// the bridge modules that depend on them.
var preloadOrder = []string{
	"polyfill/console.js",
	"polyfill/blob.js",
	"polyfill/file.js",
	"polyfill/web-streams.js",
	"polyfill/request.js",
	"polyfill/response.js",
	"polyfill/form-data.js",
	"polyfill/fetch.js",
	"js/database.js",
	"js/jsx-helpers.js",
	"js/handle-response.js",
}

var (
	preloadOnce sync.Once
	preloadSrcs []string
	preloadErr  error
)

func loadPreloads() ([]string, error) {
	preloadOnce.Do(func() {
		srcs := make([]string, 0, len(preloadOrder))
		for _, name := range preloadOrder {
			b, err := embeddedModules.ReadFile(name)
			if err != nil {
				preloadErr = fmt.Errorf("reading embedded module %s: %w", name, err)
				return
			}
			srcs = append(srcs, string(b))
		}
		preloadSrcs = srcs
	})
	return preloadSrcs, preloadErr
}

// hostBootstrapJS installs the globals §4.5 says the host itself registers,
// ahead of any named preload module: a deterministic timer/microtask queue
// (there are no real OS timers inside the VM), structuredClone, and the
// clamped Number.prototype.toString / JSON.stringify overrides.
const hostBootstrapJS = `
(function () {
  var nativeToString = Number.prototype.toString;
  Number.prototype.toString = function (radix) {
    if (radix === undefined) return nativeToString.call(this);
    radix = Math.min(36, Math.max(2, radix | 0));
    return nativeToString.call(this, radix);
  };

  var nativeStringify = JSON.stringify;
  JSON.stringify = function (value, replacer, space) {
    if (typeof space === "number") {
      space = Math.min(10, Math.max(0, space | 0));
    } else if (typeof space === "string") {
      space = space.slice(0, 20);
    }
    return nativeStringify(value, replacer, space);
  };

  globalThis.structuredClone = function (value) {
    if (value === undefined) return undefined;
    return JSON.parse(JSON.stringify(value));
  };

  var timers = [];
  var nextTimerId = 1;
  var microtasks = [];

  globalThis.setTimeout = function (fn, delay) {
    var args = Array.prototype.slice.call(arguments, 2);
    var id = nextTimerId++;
    timers.push({ id: id, due: __hostNowMillis() + Math.max(0, delay || 0), fn: fn, args: args, repeat: false });
    return id;
  };
  globalThis.setInterval = function (fn, delay) {
    var args = Array.prototype.slice.call(arguments, 2);
    var id = nextTimerId++;
    timers.push({ id: id, due: __hostNowMillis() + Math.max(0, delay || 0), interval: Math.max(0, delay || 0), fn: fn, args: args, repeat: true });
    return id;
  };
  globalThis.clearTimeout = function (id) {
    timers = timers.filter(function (t) { return t.id !== id; });
  };
  globalThis.clearInterval = globalThis.clearTimeout;

  globalThis.queueMicrotask = function (fn) {
    microtasks.push(fn);
  };

  globalThis.__pumpEventLoop = function () {
    while (microtasks.length > 0) {
      var task = microtasks.shift();
      try {
        task();
      } catch (e) {
        console.error(e);
      }
    }

    var now = __hostNowMillis();
    var due = timers.filter(function (t) { return t.due <= now; });
    if (due.length === 0) {
      return timers.length > 0;
    }
    due.sort(function (a, b) { return a.due - b.due; });
    due.forEach(function (t) {
      if (t.repeat) {
        t.due = now + t.interval;
      } else {
        timers = timers.filter(function (o) { return o.id !== t.id; });
      }
      try {
        t.fn.apply(null, t.args);
      } catch (e) {
        console.error(e);
      }
    });
    return true;
  };
})();
`

// maxEventLoopTicks bounds the timer/microtask drain loop so a handler
// whose interval keeps rescheduling can't hang the request forever.
const maxEventLoopTicks = 10000

// QueryFunc executes a request against the SQL query API (§4.8) on behalf
// of the js/database.js bridge. Host calls without a configured QueryFunc
// fail with a descriptive error visible to the handler, not a panic.
type QueryFunc func(ctx context.Context, dbName, sql string, paramsJSON string) (string, error)

// Host owns what is shared across every per-request VM: the fetch client
// pool (§4.5's "shared connection pool with a configurable idle timeout")
// and the configured size limits. A fresh VM is constructed per request.
type Host struct {
	cfg       config.RuntimeConfig
	client    *http.Client
	queryFunc QueryFunc
}

func NewHost(cfg config.RuntimeConfig, queryFunc QueryFunc) *Host {
	return &Host{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout:     cfg.NetPoolIdleTimeout,
				MaxIdleConnsPerHost: 16,
			},
		},
		queryFunc: queryFunc,
	}
}

// Request is the bridge input the dispatcher assembles in §4.3 step 6.
type Request struct {
	Headers map[string]string
	Method  string
	URL     string
	Body    []byte
}

// Response is the {body, headers, status} object read back off the
// handler's return value.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// Run evaluates functionSource as the request handler module and invokes
// it with req, driving the event loop to quiescence before reading the
// response. Any failure in module declaration, evaluation, handler lookup,
// invocation, event-loop polling, or field extraction is returned as a
// plain error; callers map that to a 500 with an empty body.
func (h *Host) Run(ctx context.Context, functionSource string, req Request) (*Response, error) {
	preloads, err := loadPreloads()
	if err != nil {
		return nil, err
	}

	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating js vm: %w", err)
	}
	defer vm.Close()

	if err := h.injectHostAPI(ctx, vm); err != nil {
		return nil, fmt.Errorf("injecting host bridge: %w", err)
	}

	if _, err := vm.Eval(hostBootstrapJS, quickjs.EvalGlobal); err != nil {
		return nil, fmt.Errorf("installing host bootstrap: %w", err)
	}

	for i, src := range preloads {
		if _, err := vm.Eval(src, quickjs.EvalGlobal); err != nil {
			return nil, fmt.Errorf("loading preload module %s: %w", preloadOrder[i], err)
		}
	}

	if _, err := vm.Eval(functionSource, quickjs.EvalGlobal); err != nil {
		return nil, fmt.Errorf("evaluating function module: %w", err)
	}

	headerJSON, err := json.Marshal(sanitizeHeaders(req.Headers))
	if err != nil {
		return nil, fmt.Errorf("marshalling headers: %w", err)
	}

	if _, err := vm.Call("___handleResponse", string(headerJSON), req.Method, req.URL, string(req.Body)); err != nil {
		return nil, fmt.Errorf("invoking handler: %w", err)
	}

	if err := h.drainEventLoop(vm); err != nil {
		return nil, fmt.Errorf("draining event loop: %w", err)
	}

	raw, err := vm.Call("__readResult")
	if err != nil {
		return nil, fmt.Errorf("reading handler result: %w", err)
	}
	resultStr, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("handler result was not a string")
	}

	var out struct {
		Status  int               `json:"status"`
		Headers map[string]string `json:"headers"`
		Body    string            `json:"body"`
	}
	if err := json.Unmarshal([]byte(resultStr), &out); err != nil {
		return nil, fmt.Errorf("parsing handler result: %w", err)
	}
	if out.Status == 0 {
		out.Status = http.StatusOK
	}

	return &Response{Status: out.Status, Headers: out.Headers, Body: []byte(out.Body)}, nil
}

func (h *Host) drainEventLoop(vm *quickjs.VM) error {
	for i := 0; i < maxEventLoopTicks; i++ {
		res, err := vm.Call("__pumpEventLoop")
		if err != nil {
			return err
		}
		if pending, _ := res.(bool); !pending {
			return nil
		}
	}
	return fmt.Errorf("event loop did not quiesce within %d ticks", maxEventLoopTicks)
}

// injectHostAPI registers the Go-backed globals that need OS access:
// print, the shared fetch client, the optional SMTP bridge, and a
// wall-clock millisecond source for the timer polyfill.
func (h *Host) injectHostAPI(ctx context.Context, vm *quickjs.VM) error {
	if err := vm.RegisterFunc("print", func(value string, toStdout bool) {
		fmt.Fprintln(stdoutOrNil(toStdout), value)
	}, false); err != nil {
		return err
	}

	if err := vm.RegisterFunc("__hostNowMillis", func() float64 {
		return float64(time.Now().UnixMilli())
	}, false); err != nil {
		return err
	}

	if err := vm.RegisterFunc("___fetcher", func(resource, optionsJSON string) string {
		return h.fetch(ctx, resource, optionsJSON)
	}, true); err != nil {
		return err
	}

	if err := vm.RegisterFunc("___send_email", func(optionsJSON string) string {
		return sendEmail(optionsJSON)
	}, true); err != nil {
		return err
	}

	if h.queryFunc != nil {
		if err := vm.RegisterFunc("___query", func(dbName, sql, paramsJSON string) string {
			data, err := h.queryFunc(ctx, dbName, sql, paramsJSON)
			if err != nil {
				return errorResultJSON(err)
			}
			return data
		}, true); err != nil {
			return err
		}
	}

	return nil
}

func stdoutOrNil(toStdout bool) io.Writer {
	if toStdout {
		return stdoutWriter{}
	}
	return logWriter{}
}

func (h *Host) fetch(ctx context.Context, resource, optionsJSON string) string {
	var opts struct {
		Method  string            `json:"method"`
		Headers map[string]string `json:"headers"`
		Body    string            `json:"body"`
	}
	if optionsJSON != "" {
		_ = json.Unmarshal([]byte(optionsJSON), &opts)
	}
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}

	var bodyReader io.Reader
	if opts.Body != "" {
		bodyReader = strings.NewReader(opts.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, opts.Method, resource, bodyReader)
	if err != nil {
		return errorResultJSON(err)
	}
	for k, v := range opts.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return errorResultJSON(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorResultJSON(err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}

	out, _ := json.Marshal(map[string]any{
		"status":  resp.StatusCode,
		"headers": headers,
		"body":    string(respBody),
	})
	return string(out)
}

// sendEmail is the optional outbound SMTP bridge (§4.5); net/smtp is
// stdlib because no example in the pack uses a third-party SMTP client.
func sendEmail(optionsJSON string) string {
	var opts struct {
		From     string   `json:"from"`
		To       []string `json:"to"`
		Subject  string   `json:"subject"`
		Body     string   `json:"body"`
		SMTPAddr string   `json:"smtp_addr"`
	}
	if err := json.Unmarshal([]byte(optionsJSON), &opts); err != nil {
		return errorResultJSON(err)
	}
	if opts.SMTPAddr == "" || len(opts.To) == 0 {
		return errorResultJSON(fmt.Errorf("___send_email: smtp_addr and to are required"))
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		opts.From, strings.Join(opts.To, ", "), opts.Subject, opts.Body)

	if err := smtp.SendMail(opts.SMTPAddr, nil, opts.From, opts.To, []byte(msg)); err != nil {
		return errorResultJSON(err)
	}
	return `{"ok":true}`
}

func errorResultJSON(err error) string {
	out, _ := json.Marshal(map[string]any{"error": err.Error()})
	return string(out)
}

func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[strings.ToLower(k)] = strings.ReplaceAll(v, `"`, "'")
	}
	return out
}
