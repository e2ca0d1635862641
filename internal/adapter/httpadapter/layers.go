package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/wildfire-risk-service/internal/adapter/regionfile"
	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
)

// defaultRegion is used when a layer request names no region.
const defaultRegion = "western"

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (s *Server) handleLayer(op domain.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseLayerQuery(op, r)
		if err != nil {
			sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Status: "invalid", Error: err.Error()})
			return
		}

		res, err := s.evaluator.Evaluate(r.Context(), q)
		if err != nil {
			s.logger.Error("layer request failed", "operation", op, "region", q.Region.Name, "error", err)
			status := http.StatusBadGateway
			if errors.Is(err, domain.ErrPixelBudgetExceeded) {
				status = http.StatusUnprocessableEntity
			}
			sharedobs.WriteJSON(w, status, errorResponse{Status: "error", Error: err.Error()})
			return
		}

		if res.Status == domain.StatusNoData {
			sharedobs.WriteJSON(w, http.StatusNotFound, res)
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, res)
	}
}

// parseLayerQuery reads date, region and area from the query string. The
// region is a preset name or an inline GeoJSON document.
func parseLayerQuery(op domain.Operation, r *http.Request) (domain.Query, error) {
	params := r.URL.Query()

	date, err := domain.ParseDate(params.Get("date"))
	if err != nil {
		return domain.Query{}, err
	}

	region, err := parseRegionParam(params.Get("region"))
	if err != nil {
		return domain.Query{}, err
	}

	var area bool
	if v := params.Get("area"); v != "" {
		area, err = strconv.ParseBool(v)
		if err != nil {
			return domain.Query{}, fmt.Errorf("invalid area %q", v)
		}
	}

	return domain.Query{
		ID:        r.Header.Get("X-Request-ID"),
		Operation: op,
		Date:      date,
		Region:    region,
		Area:      area,
	}, nil
}

func parseRegionParam(v string) (domain.Region, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return domain.PresetRegion(defaultRegion)
	case strings.HasPrefix(v, "{"):
		return regionfile.ParseGeoJSON("custom", []byte(v))
	default:
		return domain.PresetRegion(v)
	}
}

func handleRegions(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]string{"regions": domain.PresetNames()})
}
