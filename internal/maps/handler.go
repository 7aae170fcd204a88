package maps

import (
	"net/http"

	"permitleads_backend/platform/httpkit"
	"permitleads_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler exposes the operator geocode lookup.
type Handler struct {
	geocoder *Geocoder
	val      *validator.Validator
}

func NewHandler(geocoder *Geocoder, val *validator.Validator) *Handler {
	return &Handler{geocoder: geocoder, val: val}
}

// Lookup handles GET /api/v1/maps/geocode?q=...
func (h *Handler) Lookup(c *gin.Context) {
	var req GeocodeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "query 'q' is required (min 3 chars)", validator.Describe(err))
		return
	}

	coords, err := h.geocoder.Geocode(c.Request.Context(), req.Query)
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, "geocoding service unavailable", nil)
		return
	}

	resp := GeocodeResponse{Query: req.Query, Found: coords != nil}
	if coords != nil {
		resp.Lat = &coords.Lat
		resp.Lon = &coords.Lon
	}
	httpkit.OK(c, resp)
}
