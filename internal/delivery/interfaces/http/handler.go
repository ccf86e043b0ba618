package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	courier "delivery-settlement/internal/courier/domain"
	fees "delivery-settlement/internal/fees/domain"
	partnerapp "delivery-settlement/internal/partner/application"
	partner "delivery-settlement/internal/partner/domain"
)

// FeeService prices deliveries and records completed orders.
type FeeService interface {
	Calculate(ctx context.Context, distanceKm float64, courierID int64) (*fees.FeeCalculation, error)
	MarkOrderDelivered(ctx context.Context, calculationID, externalOrderID int64, orderTotal float64) error
}

// Directory registers and looks up couriers and restaurants.
type Directory interface {
	FindCourierByExternalID(ctx context.Context, externalID int64) (*courier.Courier, error)
	CreateCourier(ctx context.Context, profile partnerapp.CourierProfile) (*courier.Courier, *partner.Partner, error)
	CreateRestaurant(ctx context.Context, profile partnerapp.RestaurantProfile) (*partner.Partner, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler provides the delivery platform endpoints.
type Handler struct {
	fees      FeeService
	directory Directory
	db        Pinger
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewHandler constructs a handler. db may be nil, in which case health
// reports without a database check.
func NewHandler(feeService FeeService, directory Directory, db Pinger, logger logrus.FieldLogger) (*Handler, error) {
	if feeService == nil {
		return nil, errors.New("delivery handler: nil fee service")
	}
	if directory == nil {
		return nil, errors.New("delivery handler: nil directory")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		fees:      feeService,
		directory: directory,
		db:        db,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Routes mounts the delivery endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/calculate_fee", h.handleCalculateFee)
	r.Post("/order_completed", h.handleOrderCompleted)
	r.Post("/courier/create", h.handleCreateCourier)
	r.Post("/restaurant/create", h.handleCreateRestaurant)
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleCalculateFee(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}
	if !p.present("distance_km") || !p.present("courier_id") {
		writeError(w, http.StatusBadRequest, "Missing required parameters: distance_km, courier_id")
		return
	}
	distance, err := p.floatValue("distance_km")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
		return
	}
	externalID, err := p.intValue("courier_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
		return
	}
	if err := fees.ValidateDistance(distance); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid distance value")
		return
	}
	if externalID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid courier ID")
		return
	}

	c, err := h.directory.FindCourierByExternalID(r.Context(), externalID)
	if errors.Is(err, courier.ErrCourierNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Courier %d not found", externalID))
		return
	}
	if err != nil {
		h.internalError(w, "calculate_fee", err)
		return
	}

	calc, err := h.fees.Calculate(r.Context(), distance, c.ID)
	if err != nil {
		switch {
		case errors.Is(err, fees.ErrInvalidDistance):
			writeError(w, http.StatusBadRequest, "Invalid distance value")
		case errors.Is(err, courier.ErrCourierNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("Courier %d not found", externalID))
		default:
			h.internalError(w, "calculate_fee", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"delivery_fee":      calc.BaseFee,
		"company_share":     calc.CompanyShare,
		"courier_share":     calc.CourierShare,
		"calculation_id":    calc.ID,
		"high_volume_bonus": calc.HighVolumeBonus,
	})
}

func (h *Handler) handleOrderCompleted(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}
	if !p.present("external_order_id") || !p.present("calculation_id") {
		writeError(w, http.StatusBadRequest, "Missing required parameters: external_order_id, calculation_id")
		return
	}
	orderID, err := p.intValue("external_order_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
		return
	}
	calculationID, err := p.intValue("calculation_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
		return
	}
	var orderTotal float64
	if _, ok := p["order_total"]; ok {
		if orderTotal, err = p.floatValue("order_total"); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid input parameters")
			return
		}
	}

	err = h.fees.MarkOrderDelivered(r.Context(), calculationID, orderID, orderTotal)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Order marked as delivered"})
	case errors.Is(err, fees.ErrCalculationNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Calculation %d not found", calculationID))
	case errors.Is(err, fees.ErrInvalidID), errors.Is(err, fees.ErrInvalidOrderTotal):
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
	default:
		h.internalError(w, "order_completed", err)
	}
}

func (h *Handler) handleCreateCourier(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}
	if !p.present("external_courier_id") || !p.present("name") {
		writeError(w, http.StatusBadRequest, "Missing required parameters: external_courier_id, name")
		return
	}
	externalID, err := p.intValue("external_courier_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
		return
	}

	profile := partnerapp.CourierProfile{
		ExternalID: externalID,
		Name:       p.stringValue("name"),
		Phone:      p.stringValue("phone"),
		Email:      p.stringValue("email"),
	}
	c, contact, err := h.directory.CreateCourier(r.Context(), profile)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"courier_id": c.ID,
			"partner_id": contact.ID,
			"message":    fmt.Sprintf("Courier %s created successfully", contact.Name),
		})
	case errors.Is(err, courier.ErrCourierExists):
		writeError(w, http.StatusConflict, fmt.Sprintf("Courier %d already exists", externalID))
	case isValidation(err):
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
	default:
		h.internalError(w, "courier/create", err)
	}
}

func (h *Handler) handleCreateRestaurant(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}
	if !p.present("external_restaurant_id") || !p.present("name") {
		writeError(w, http.StatusBadRequest, "Missing required parameters: external_restaurant_id, name")
		return
	}
	externalID, err := p.intValue("external_restaurant_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
		return
	}
	lat, err := p.optionalFloat("location_lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
		return
	}
	lng, err := p.optionalFloat("location_lng")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
		return
	}

	restaurant, err := h.directory.CreateRestaurant(r.Context(), partnerapp.RestaurantProfile{
		ExternalID: externalID,
		Name:       p.stringValue("name"),
		Address:    p.stringValue("address"),
		Lat:        lat,
		Lng:        lng,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"partner_id": restaurant.ID,
			"message":    fmt.Sprintf("Restaurant %s created successfully", restaurant.Name),
		})
	case errors.Is(err, partner.ErrRestaurantExists):
		writeError(w, http.StatusConflict, fmt.Sprintf("Restaurant %d already exists", externalID))
	case isValidation(err):
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
	default:
		h.internalError(w, "restaurant/create", err)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.WithError(err).Error("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "unhealthy",
				"message": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"message":   "Food delivery API is operational",
		"timestamp": h.now().Format(time.RFC3339),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (params, bool) {
	p, err := decodeParams(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input parameters")
		return nil, false
	}
	return p, true
}

func (h *Handler) internalError(w http.ResponseWriter, endpoint string, err error) {
	h.logger.WithError(err).WithField("endpoint", endpoint).Error("delivery request failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func isValidation(err error) bool {
	return errors.Is(err, partner.ErrEmptyName) ||
		errors.Is(err, partner.ErrInvalidExternalID) ||
		errors.Is(err, courier.ErrInvalidExternalID)
}
