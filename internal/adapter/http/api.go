package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/bikeshare-trends/internal/dashboard"
	"github.com/couchcryptid/bikeshare-trends/internal/domain"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// trendsQuery is the validated form of the trend filter query string.
// Format is only set for exports.
type trendsQuery struct {
	Bike        string   `validate:"oneof=electric classic both"`
	Memberships []string `validate:"min=1,dive,required"`
	From        int      `validate:"min=1,max=12"`
	To          int      `validate:"min=1,max=12"`
	Format      string   `validate:"omitempty,oneof=csv xlsx"`
}

func (q trendsQuery) filter() domain.Filter {
	return domain.Filter{
		Bike:        domain.BikeType(q.Bike),
		Memberships: q.Memberships,
		MonthFrom:   q.From,
		MonthTo:     q.To,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

func (s *Server) handleMemberships(w http.ResponseWriter, r *http.Request) {
	memberships, err := s.service.Memberships()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string][]string{"memberships": memberships})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseTrendsQuery(r.URL.Query(), false)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.service.Trends(q.filter())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseTrendsQuery(r.URL.Query(), true)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.service.Trends(q.filter())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if q.Format == "xlsx" {
		contentType = contentTypeXLSX
		err = dashboard.WriteXLSX(&buf, res)
	} else {
		err = dashboard.WriteCSV(&buf, res)
	}
	if err != nil {
		s.logger.Error("trend export failed", "format", q.Format, "error", err)
		writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="trends.%s"`, q.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleStationLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.service.LocateStation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, loc)
}

// parseTrendsQuery applies defaults (bike=both, membership=all, from=1,
// to=12) and validates the result. The format parameter, defaulting to csv,
// is read only when export is set and ignored otherwise.
func (s *Server) parseTrendsQuery(v url.Values, export bool) (trendsQuery, error) {
	q := trendsQuery{
		Bike:        "both",
		Memberships: []string{domain.AllMemberships},
		From:        1,
		To:          12,
	}
	if b := v.Get("bike"); b != "" {
		q.Bike = strings.ToLower(b)
	}
	if m, ok := v["membership"]; ok {
		q.Memberships = m
	}
	if export {
		q.Format = "csv"
		if f := v.Get("format"); f != "" {
			q.Format = strings.ToLower(f)
		}
	}
	var err error
	if q.From, err = monthParam(v, "from", q.From); err != nil {
		return q, err
	}
	if q.To, err = monthParam(v, "to", q.To); err != nil {
		return q, err
	}

	if err := s.validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return q, formatValidationError(verrs[0])
		}
		return q, err
	}
	return q, nil
}

func monthParam(v url.Values, name string, def int) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a month number, got %q", name, raw)
	}
	return n, nil
}

func formatValidationError(fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	if field == "memberships" {
		field = "membership"
	}
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "min", "max":
		if field == "from" || field == "to" {
			return fmt.Errorf("%s must be between 1 and 12, got %v", field, fe.Value())
		}
		return fmt.Errorf("%s must not be empty", field)
	case "required":
		return fmt.Errorf("%s values must not be empty", field)
	default:
		return fmt.Errorf("%s failed %s validation", field, fe.Tag())
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, dashboard.ErrStationNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrNotReady), errors.Is(err, dashboard.ErrGeocodingDisabled):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrAggregation):
		writeError(w, r, http.StatusInternalServerError, "trend aggregation failed")
	default:
		s.logger.Warn("upstream request failed", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusBadGateway, err.Error())
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}
