package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/dimlens/pkg/breakdown"
	"github.com/Sumatoshi-tech/dimlens/pkg/filterset"
	"github.com/Sumatoshi-tech/dimlens/pkg/heatmap"
	"github.com/Sumatoshi-tech/dimlens/pkg/plotpage"
	"github.com/Sumatoshi-tech/dimlens/pkg/report"
	"github.com/Sumatoshi-tech/dimlens/pkg/resultcache"
)

const (
	queryOrder  = "order"
	queryTop    = "top"
	queryAlign  = "align"
	queryFormat = "format"
	queryFilter = "q"

	headerContentEncoding = "Content-Encoding"
	headerCache           = "X-Dimlens-Cache"
	encodingLZ4           = "lz4"

	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html; charset=utf-8"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OptionsResponse is the body of the options endpoint.
type OptionsResponse struct {
	FilterOptions []heatmap.FilterOption `json:"filterOptions"`
}

// FiltersApplyRequest is the body of the filters/apply endpoint.
type FiltersApplyRequest struct {
	Filters []filterset.Option `json:"filters"`
	Delta   filterset.Delta    `json:"delta"`
}

// FiltersResponse carries a filter set in both structured and query-string form.
type FiltersResponse struct {
	Filters    []filterset.Option `json:"filters"`
	Serialized string             `json:"serialized"`
}

type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	encodeErr := json.NewEncoder(w).Encode(v)
	if encodeErr != nil {
		s.deps.Logger.ErrorContext(r.Context(), "failed to encode JSON response", "error", encodeErr)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		status = reqErr.status
	}

	s.deps.Logger.WarnContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	s.writeJSON(w, r, status, ErrorResponse{Error: err.Error()})
}

// readBody reads the request body, decompressing it when sent with
// Content-Encoding: lz4.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	var body io.Reader = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)

	switch encoding := r.Header.Get(headerContentEncoding); encoding {
	case "", "identity":
	case encodingLZ4:
		body = io.LimitReader(lz4.NewReader(body), s.deps.MaxBodyBytes+1)
	default:
		return nil, &requestError{
			status: http.StatusUnsupportedMediaType,
			err:    fmt.Errorf("%w: %s", errUnsupportedEncoding, encoding),
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, err: err}
		}

		return nil, &requestError{status: http.StatusBadRequest, err: err}
	}

	if int64(len(data)) > s.deps.MaxBodyBytes {
		return nil, &requestError{status: http.StatusRequestEntityTooLarge, err: errBodyTooLarge}
	}

	return data, nil
}

// readPayload reads the request body, validates it against the payload
// schema in strict mode, and decodes it. The raw JSON is returned alongside.
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) (breakdown.Payload, []byte, error) {
	data, err := s.readBody(w, r)
	if err != nil {
		return breakdown.Payload{}, nil, err
	}

	if !json.Valid(data) {
		return breakdown.Payload{}, nil, &requestError{status: http.StatusBadRequest, err: errInvalidJSON}
	}

	if s.deps.Strict {
		validateErr := breakdown.ValidateJSON(data)
		if validateErr != nil {
			return breakdown.Payload{}, nil, &requestError{status: http.StatusUnprocessableEntity, err: validateErr}
		}
	}

	payload, err := breakdown.Decode(bytes.NewReader(data))
	if err != nil {
		return breakdown.Payload{}, nil, &requestError{status: http.StatusBadRequest, err: err}
	}

	return payload, data, nil
}

var (
	errInvalidJSON         = errors.New("request body is not valid JSON")
	errInvalidQuery        = errors.New("invalid query parameter")
	errBodyTooLarge        = errors.New("request body too large")
	errUnsupportedEncoding = errors.New("unsupported content encoding")
)

// reportOptions applies the order, top and align query parameters to the defaults.
func (s *Server) reportOptions(r *http.Request) (report.Options, error) {
	opts := s.deps.Report
	query := r.URL.Query()

	if order := query.Get(queryOrder); order != "" {
		opts.ColumnOrder = strings.Split(order, ",")
	}

	if top := query.Get(queryTop); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil || n < 0 {
			return opts, &requestError{status: http.StatusBadRequest, err: errors.Join(errInvalidQuery, err)}
		}

		opts.TopContributors = n
	}

	if align := query.Get(queryAlign); align != "" {
		v, err := strconv.ParseBool(align)
		if err != nil {
			return opts, &requestError{status: http.StatusBadRequest, err: errors.Join(errInvalidQuery, err)}
		}

		opts.Align = v
	}

	return opts, nil
}

func (s *Server) buildResult(w http.ResponseWriter, r *http.Request, op string) (report.Result, report.Options, bool) {
	opts, err := s.reportOptions(r)
	if err != nil {
		s.writeError(w, r, err)

		return report.Result{}, opts, false
	}

	payload, data, err := s.readPayload(w, r)
	if err != nil {
		s.writeError(w, r, err)

		return report.Result{}, opts, false
	}

	key := resultcache.Key(data, opts)

	res, hit := s.deps.Cache.Get(key)
	if !hit {
		res = report.Build(payload, opts)
		s.deps.Cache.Put(key, res, int64(len(data)))
	}

	if s.deps.Cache != nil {
		w.Header().Set(headerCache, cacheStatus(hit))
	}

	if s.deps.RED != nil {
		s.deps.RED.RecordComparison(r.Context(), op, len(res.Columns), res.ValueCount())
	}

	return res, opts, true
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}

	return "miss"
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	res, _, ok := s.buildResult(w, r, OpCompare)
	if !ok {
		return
	}

	s.writeJSON(w, r, http.StatusOK, res)
}

// handleTreemap renders the HTML treemap page, or the raw tree nodes with ?format=json.
func (s *Server) handleTreemap(w http.ResponseWriter, r *http.Request) {
	res, opts, ok := s.buildResult(w, r, OpTreemap)
	if !ok {
		return
	}

	if r.URL.Query().Get(queryFormat) == report.FormatJSON {
		s.writeJSON(w, r, http.StatusOK, res.Trees)

		return
	}

	title := "dimlens"
	if res.Metric != nil && res.Metric.Name != "" {
		title = res.Metric.Name
	}

	page := plotpage.ComparisonPage{
		Title:        title,
		Theme:        s.deps.Theme,
		Height:       s.deps.Height,
		Formatter:    opts.Formatter,
		Comparison:   res.Columns,
		Contributors: res.Contributors,
	}

	var buf bytes.Buffer

	err := page.Render(&buf)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusOK)

	_, writeErr := w.Write(buf.Bytes())
	if writeErr != nil {
		s.deps.Logger.ErrorContext(r.Context(), "failed to write treemap page", "error", writeErr)
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	payload, _, err := s.readPayload(w, r)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, OptionsResponse{
		FilterOptions: heatmap.ExtractFilterOptions(payload.Current.Breakdown),
	})
}

func (s *Server) handleFiltersApply(w http.ResponseWriter, r *http.Request) {
	var req FiltersApplyRequest

	decodeErr := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)).Decode(&req)
	if decodeErr != nil {
		s.writeError(w, r, &requestError{status: http.StatusBadRequest, err: decodeErr})

		return
	}

	next := filterset.Apply(req.Filters, req.Delta)

	s.writeJSON(w, r, http.StatusOK, FiltersResponse{Filters: next, Serialized: filterset.Serialize(next)})
}

func (s *Server) handleFiltersParse(w http.ResponseWriter, r *http.Request) {
	filters := filterset.Deserialize(r.URL.Query().Get(queryFilter))

	s.writeJSON(w, r, http.StatusOK, FiltersResponse{Filters: filters, Serialized: filterset.Serialize(filters)})
}
