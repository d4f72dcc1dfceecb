package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"reclaim/internal/engine"
	"reclaim/internal/spatial"
	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
)

type createItemRequest struct {
	Category    string  `json:"category"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Fingerprint string  `json:"fingerprint"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type createSubscriptionRequest struct {
	Query        string  `json:"query"`
	Category     string  `json:"category"`
	CreatedFrom  string  `json:"created_from"`
	CreatedTo    string  `json:"created_to"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

// nearbyQuery parses the GET /items/nearby query string. lat, lng, and radius
// are required; everything else defaults to "any".
func nearbyQuery(r *http.Request) (domain.GeoPoint, float64, spatial.Filters, engine.Page, error) {
	q := r.URL.Query()

	lat, err := parseFloat(q.Get("lat"), "lat")
	if err != nil {
		return domain.GeoPoint{}, 0, spatial.Filters{}, engine.Page{}, err
	}
	lng, err := parseFloat(q.Get("lng"), "lng")
	if err != nil {
		return domain.GeoPoint{}, 0, spatial.Filters{}, engine.Page{}, err
	}
	radius, err := parseFloat(q.Get("radius"), "radius")
	if err != nil {
		return domain.GeoPoint{}, 0, spatial.Filters{}, engine.Page{}, err
	}

	filters := spatial.Filters{Category: q.Get("category")}
	if raw := q.Get("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return domain.GeoPoint{}, 0, spatial.Filters{}, engine.Page{}, err
		}
		filters.Status = status
	}
	if filters.CreatedFrom, err = parseTime(q.Get("from"), "from"); err != nil {
		return domain.GeoPoint{}, 0, spatial.Filters{}, engine.Page{}, err
	}
	if filters.CreatedTo, err = parseTime(q.Get("to"), "to"); err != nil {
		return domain.GeoPoint{}, 0, spatial.Filters{}, engine.Page{}, err
	}

	page := engine.Page{}
	if page.Limit, err = parseInt(q.Get("limit"), "limit"); err != nil {
		return domain.GeoPoint{}, 0, spatial.Filters{}, engine.Page{}, err
	}
	if page.Offset, err = parseInt(q.Get("offset"), "offset"); err != nil {
		return domain.GeoPoint{}, 0, spatial.Filters{}, engine.Page{}, err
	}

	return domain.GeoPoint{Lat: lat, Lng: lng}, radius, filters, page, nil
}

func parseFloat(raw, name string) (float64, error) {
	if raw == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" must be a number")
	}
	return v, nil
}

func parseInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" must be a non-negative integer")
	}
	return v, nil
}

func parseTime(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, name+" must be RFC 3339")
	}
	return t, nil
}
