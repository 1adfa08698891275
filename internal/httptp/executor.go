// Package httptp sends GraphQL operations to backend services over HTTP and
// validates what comes back.
package httptp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"google.golang.org/grpc/metadata"

	"github.com/hanpama/stitchgate/internal/errs"
	eventbus "github.com/hanpama/stitchgate/internal/eventbus"
	events "github.com/hanpama/stitchgate/internal/events"
	reqid "github.com/hanpama/stitchgate/internal/reqid"
)

// Request is one operation delegated to a backend. Credential is the inbound
// Authorization value; empty means the client sent none.
type Request struct {
	Query         string
	Variables     map[string]any
	OperationName string
	Credential    string
}

// Response is a decoded backend answer. Data is left raw so callers decide
// how numbers are decoded.
type Response struct {
	Data       json.RawMessage
	Errors     []*RemoteError
	Extensions map[string]any
}

// Executor delegates operations to a single backend service.
type Executor struct {
	service  string
	address  string
	endpoint string
	client   *http.Client
	opts     *Options
}

// New returns an Executor for the service listening on address (host:port).
func New(service, address string, opts ...Option) *Executor {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	client := o.Client
	if client == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.MaxIdleConnsPerHost = o.MaxConnsPerHost
		client = &http.Client{Transport: tr}
	}
	return &Executor{
		service:  service,
		address:  address,
		endpoint: "http://" + address + o.Path,
		client:   client,
		opts:     o,
	}
}

// Service returns the name of the backend this executor talks to.
func (e *Executor) Service() string { return e.service }

// Endpoint returns the URL operations are posted to.
func (e *Executor) Endpoint() string { return e.endpoint }

var degenerateMutation = regexp.MustCompile(`^mutation(\s+[_A-Za-z][_0-9A-Za-z]*)?\s*(\{\s*\})?$`)

// IsDegenerate reports whether query is a mutation that selects nothing.
func IsDegenerate(query string) bool {
	return degenerateMutation.MatchString(strings.TrimSpace(query))
}

type wireRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName,omitempty"`
}

type wireResponse struct {
	Data       json.RawMessage `json:"data"`
	Errors     []*RemoteError  `json:"errors"`
	Extensions map[string]any  `json:"extensions"`
}

// Execute posts req to the backend. Transport failures and invalid
// responses are returned as errors; errors reported by the backend are part
// of the Response.
func (e *Executor) Execute(ctx context.Context, req *Request) (resp *Response, err error) {
	if IsDegenerate(req.Query) {
		return nil, fmt.Errorf("httptp: %s: %w", e.service, errs.ErrDegenerateOperation)
	}
	if e.opts.CallTimeout > 0 {
		// An earlier deadline already on ctx still wins.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.CallTimeout)
		defer cancel()
	}

	vars := req.Variables
	if vars == nil {
		vars = map[string]any{}
	}
	body, err := json.Marshal(wireRequest{Query: req.Query, Variables: vars, OperationName: req.OperationName})
	if err != nil {
		return nil, fmt.Errorf("httptp: encode request: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	e.setHeaders(ctx, hreq, req.Credential)

	op := operationKind(req.Query)
	start := time.Now()
	status := 0
	eventbus.Publish(ctx, events.BackendCallStart{Service: e.service, Address: e.address, Operation: op})
	defer func() {
		eventbus.Publish(ctx, events.BackendCallFinish{
			Service:   e.service,
			Address:   e.address,
			Operation: op,
			Status:    status,
			Err:       err,
			Duration:  time.Since(start),
		})
	}()

	hresp, err := e.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("httptp: %s: %w", e.service, err)
	}
	defer hresp.Body.Close()
	status = hresp.StatusCode

	if err := checkContentType(hresp.Header.Get("Content-Type")); err != nil {
		return nil, fmt.Errorf("httptp: %s: %w", e.service, err)
	}
	raw, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, fmt.Errorf("httptp: %s: read body: %w", e.service, err)
	}
	var wire wireResponse
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("httptp: %s: %w: %v", e.service, errs.ErrMalformedResponseBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("httptp: %s: %w: trailing data after response", e.service, errs.ErrMalformedResponseBody)
	}
	for _, re := range wire.Errors {
		re.Path = normalizePath(re.Path)
	}
	if status/100 != 2 && len(wire.Errors) == 0 {
		return nil, &StatusError{Service: e.service, Code: status}
	}
	if string(wire.Data) == "null" {
		wire.Data = nil
	}
	return &Response{Data: wire.Data, Errors: wire.Errors, Extensions: wire.Extensions}, nil
}

// setHeaders writes the JSON content headers, the credential, the request id
// and any headers the server put into the outgoing metadata.
func (e *Executor) setHeaders(ctx context.Context, r *http.Request, credential string) {
	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		for k, vs := range md {
			if strings.EqualFold(k, "authorization") {
				continue
			}
			for _, v := range vs {
				r.Header.Add(k, v)
			}
		}
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	if id, ok := reqid.FromContext(ctx); ok {
		r.Header.Set(reqid.Header, id)
	}
	if credential != "" {
		r.Header.Set("Authorization", credential)
	}
}

func checkContentType(ct string) error {
	if ct == "" {
		return errs.ErrMissingContentType
	}
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil || !isJSONMediaType(mediaType) {
		return &UnexpectedContentTypeError{ContentType: ct}
	}
	if cs, ok := params["charset"]; ok {
		switch strings.ToLower(cs) {
		case "utf-8", "utf8":
		default:
			return fmt.Errorf("%w: unsupported charset %q", errs.ErrMalformedResponseBody, cs)
		}
	}
	return nil
}

func isJSONMediaType(mt string) bool {
	if mt == "application/json" {
		return true
	}
	return strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json")
}

func operationKind(query string) string {
	q := strings.TrimSpace(query)
	for _, kind := range []string{"mutation", "subscription", "query"} {
		if strings.HasPrefix(q, kind) {
			return kind
		}
	}
	return "query"
}

// normalizePath turns numeric path segments into ints.
func normalizePath(path []any) []any {
	for i, p := range path {
		if n, ok := p.(json.Number); ok {
			if v, err := n.Int64(); err == nil {
				path[i] = int(v)
			} else {
				path[i] = n.String()
			}
		}
	}
	return path
}
