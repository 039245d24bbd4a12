package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/pagination"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names so errors match request bodies.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind decodes the JSON body into dst and runs its validate tags.
// Decode failures are reported against param "body".
func bind(w http.ResponseWriter, r *http.Request, dst any) errs.ValidationErrors {
	var v errs.ValidationErrors
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		v.Add("body", "must be a valid JSON object: "+err.Error(), nil)
		return v
	}
	err := validate.Struct(dst)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			v.Add(paramOf(fe), messageOf(fe), fe.Value())
		}
	}
	return v
}

// paramOf strips the root struct name: "entryRequest.items[0].amount" -> "items[0].amount".
func paramOf(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func messageOf(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "uuid":
		return "must be a UUID"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// amountInput is an amount as sent by clients: a JSON number or a string.
// Null and "" read as absent.
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*a = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount must be a number or a string: %w", err)
		}
		*a = amountInput(n)
	}
	return nil
}

func (a amountInput) blank() bool { return strings.TrimSpace(string(a)) == "" }

// amountField parses an optional amount. A blank value yields (zero, false).
func amountField(v *errs.ValidationErrors, param string, raw amountInput, curr string) (money.Amount, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return ledger.MustZero(curr), false
	}
	a, err := ledger.ParseAmount(curr, s)
	if err != nil {
		v.Add(param, err.Error(), s)
		return ledger.MustZero(curr), false
	}
	return a, true
}

// idField parses an optional UUID reference.
func idField(v *errs.ValidationErrors, param, raw string) uuid.UUID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		v.Add(param, "must be a UUID", raw)
		return uuid.Nil
	}
	return id
}

// dateField accepts YYYY-MM-DD or RFC3339.
func dateField(v *errs.ValidationErrors, param, raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		v.Add(param, "must be a date formatted YYYY-MM-DD", raw)
		return time.Time{}
	}
	return t.UTC()
}

func boolQuery(v *errs.ValidationErrors, q url.Values, param string) *bool {
	raw := strings.TrimSpace(q.Get(param))
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		v.Add(param, "must be true or false", raw)
		return nil
	}
	return &b
}

func intQuery(v *errs.ValidationErrors, q url.Values, param string) int {
	raw := strings.TrimSpace(q.Get(param))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		v.Add(param, "must be a positive integer", raw)
		return 0
	}
	return n
}

func sortOrderQuery(v *errs.ValidationErrors, q url.Values) string {
	order := strings.ToLower(strings.TrimSpace(q.Get("sortOrder")))
	if order != "" && order != "asc" && order != "desc" {
		v.Add("sortOrder", "must be asc or desc", order)
		return ""
	}
	return order
}

// pageQuery reads page and limit, applying the configured default and cap.
func (s *Server) pageQuery(v *errs.ValidationErrors, q url.Values) pagination.Params {
	return pagination.Normalize(intQuery(v, q, "page"), intQuery(v, q, "limit"), s.cfg.PageLimitDefault, s.cfg.PageLimitMax)
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}
