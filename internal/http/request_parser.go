package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"flujo/internal/core"
	"flujo/internal/dashboard"
	"flujo/internal/dataset"
)

var (
	errBadRequest = errors.New("bad request")
	errTooLarge   = errors.New("request body too large")
	errNoSheets   = errors.New("sheets import is not configured")
	errUpstream   = errors.New("upstream failure")
)

// fieldErrors maps a JSON field to the failed validation tag.
type fieldErrors map[string]string

func (fe fieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fe[k]
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// movementRequest is a movement as sent by clients; the period is a raw
// token parsed with the configured mapping.
type movementRequest struct {
	Type        string          `json:"type" validate:"required"`
	Entity      string          `json:"entity"`
	Group       string          `json:"group"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Detail      string          `json:"detail"`
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Period      string          `json:"period" validate:"required"`
}

type appendRequest struct {
	Movements []movementRequest `json:"movements" validate:"required,min=1,dive"`
}

type bulkRequest struct {
	IDs   []string      `json:"ids" validate:"required,min=1,dive,required"`
	Patch dataset.Patch `json:"patch"`
}

type exportRequest struct {
	Filter   dashboard.DBView `json:"filter"`
	Selected []string         `json:"selected" validate:"omitempty,dive,required"`
}

type sheetsImportRequest struct {
	Range string `json:"range"`
	Mode  string `json:"mode" validate:"omitempty,oneof=replace append"`
}

// listQuery is the movement listing pagination.
type listQuery struct {
	Page int `json:"page" validate:"gte=0"`
	Size int `json:"size" validate:"gte=0,lte=5000"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func (s *Server) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	fe := fieldErrors{}
	for _, ve := range ves {
		fe[ve.Namespace()[strings.Index(ve.Namespace(), ".")+1:]] = ve.Tag()
	}
	return fe
}

// decodeJSON reads a bounded JSON body into dst and validates it. An
// empty body leaves dst untouched.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	data, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
		}
	}
	return s.check(dst)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errTooLarge, mbe.Limit)
		}
		return nil, fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	return data, nil
}

// readUpload returns the uploaded file: the "file" part of a multipart
// form, or the raw body otherwise.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return s.readBody(w, r)
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errTooLarge, mbe.Limit)
		}
		return nil, fmt.Errorf("%w: parse form: %v", errBadRequest, err)
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing file part", errBadRequest)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func wrapBadRequest(err error) error {
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

// parseState reads the dashboard state from the "state" query parameter.
func (s *Server) parseState(query url.Values) (dashboard.State, error) {
	st, err := s.svc.ParseState([]byte(query.Get("state")))
	if err != nil {
		return st, wrapBadRequest(err)
	}
	return st, nil
}

// parseDBView reads the movement listing filters from query parameters.
func (s *Server) parseDBView(query url.Values) (dashboard.DBView, error) {
	get := func(k string) string { return sanitizeInput(query.Get(k)) }
	v := dashboard.DBView{
		Search:   get("search"),
		Entity:   get("entity"),
		Type:     get("type"),
		Group:    get("group"),
		Category: get("category"),
		Period:   get("period"),
		Detail:   get("detail"),
		Sub:      get("subcategory"),
		Code:     get("code"),
		Page:     1,
		Size:     dataset.DefaultPageSize,
	}

	var q listQuery
	q.Page, q.Size = v.Page, v.Size
	for key, dst := range map[string]*int{"page": &q.Page, "size": &q.Size} {
		raw := get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return v, fieldErrors{key: "number"}
		}
		*dst = n
	}
	if err := s.check(q); err != nil {
		return v, err
	}
	v.Page, v.Size = q.Page, q.Size

	for key, dst := range map[string]**decimal.Decimal{"min": &v.AmountMin, "max": &v.AmountMax} {
		raw := get(key)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return v, fieldErrors{key: "decimal"}
		}
		*dst = &d
	}
	return v, nil
}

// movements converts request rows, parsing their period tokens.
func (s *Server) movements(reqs []movementRequest) ([]core.Movement, error) {
	parser := s.svc.Mapping().Parser
	out := make([]core.Movement, len(reqs))
	for i, m := range reqs {
		token := sanitizeInput(m.Period)
		period, err := parser.Parse(token)
		if err != nil {
			return nil, fieldErrors{fmt.Sprintf("movements[%d].period", i): "period"}
		}
		out[i] = core.Movement{
			Type:        sanitizeInput(m.Type),
			Entity:      sanitizeInput(m.Entity),
			Group:       sanitizeInput(m.Group),
			Category:    sanitizeInput(m.Category),
			Subcategory: sanitizeInput(m.Subcategory),
			Detail:      sanitizeInput(m.Detail),
			Code:        sanitizeInput(m.Code),
			Amount:      m.Amount,
			Period:      period,
			RawPeriod:   token,
		}
	}
	return out, nil
}
