package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"kostaxi/internal/middleware"
	"kostaxi/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
	rideService   *service.RideService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService, rideService *service.RideService) *DriverHandler {
	return &DriverHandler{
		driverService: driverService,
		rideService:   rideService,
	}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
type RegisterDriverRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	VehicleModel string `json:"vehicle_model"`
	VehiclePlate string `json:"vehicle_plate"`
}

func (r RegisterDriverRequest) input() service.RegisterDriverInput {
	return service.RegisterDriverInput{
		Name:         r.Name,
		Email:        r.Email,
		Password:     r.Password,
		Phone:        r.Phone,
		VehicleModel: r.VehicleModel,
		VehiclePlate: r.VehiclePlate,
	}
}

// UpdateDriverRequest is the HTTP request body for a profile update.
type UpdateDriverRequest struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	VehicleModel *string `json:"vehicle_model"`
	VehiclePlate *string `json:"vehicle_plate"`
	Password     *string `json:"password"`
}

// UpdateLocationRequest is the HTTP request body for updating driver location.
type UpdateLocationRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// UpdateRideStatusRequest is the HTTP request body for a driver status update.
type UpdateRideStatusRequest struct {
	Status string `json:"status"`
}

// RegisterDriverResponse is the HTTP response for a new driver.
type RegisterDriverResponse struct {
	Message  string     `json:"message"`
	DriverID int64      `json:"driver_id"`
	Driver   DriverView `json:"driver"`
}

// DriverMessageResponse is a message with the affected driver.
type DriverMessageResponse struct {
	Message string     `json:"message"`
	Driver  DriverView `json:"driver"`
}

// AvailabilityResponse is the HTTP response for an availability toggle.
type AvailabilityResponse struct {
	Message     string     `json:"message"`
	IsAvailable bool       `json:"is_available"`
	Driver      DriverView `json:"driver"`
}

// DriverRidesResponse lists a driver's rides.
type DriverRidesResponse struct {
	DriverID int64      `json:"driver_id"`
	Rides    []RideView `json:"rides"`
}

// NearbyDriverView is a driver with its distance from the search point.
type NearbyDriverView struct {
	DriverView
	DistanceKm float64 `json:"distance_km"`
}

// Register handles POST /api/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	_ = c.ShouldBindJSON(&req)

	driver, err := h.driverService.Register(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, RegisterDriverResponse{
		Message:  "Driver registered successfully",
		DriverID: driver.ID,
		Driver:   newDriverView(driver),
	})
}

// List handles GET /api/drivers
func (h *DriverHandler) List(c *gin.Context) {
	drivers, err := h.driverService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"drivers": newDriverViews(drivers)})
}

// Get handles GET /api/drivers/:id
func (h *DriverHandler) Get(c *gin.Context) {
	driverID, ok := pathID(c, "id", service.ErrDriverNotFound)
	if !ok {
		return
	}

	driver, err := h.driverService.Get(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newDriverView(driver))
}

// Update handles PUT /api/drivers/:id
func (h *DriverHandler) Update(c *gin.Context) {
	driverID, ok := pathID(c, "id", service.ErrDriverNotFound)
	if !ok {
		return
	}

	var req UpdateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.Update(c.Request.Context(), driverID, service.DriverUpdate{
		Name:         req.Name,
		Phone:        req.Phone,
		VehicleModel: req.VehicleModel,
		VehiclePlate: req.VehiclePlate,
		Password:     req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, DriverMessageResponse{Message: "Driver updated successfully", Driver: newDriverView(driver)})
}

// UpdateLocation handles PUT /api/drivers/:id/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	driverID, ok := pathID(c, "id", service.ErrDriverNotFound)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lon == nil {
		// An unknown driver is reported before malformed coordinates.
		if _, gerr := h.driverService.Get(ctx, driverID); gerr != nil {
			respondError(c, gerr)
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid location data"})
		return
	}

	driver, err := h.driverService.UpdateLocation(ctx, driverID, *req.Lat, *req.Lon)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, DriverMessageResponse{Message: "Location updated successfully", Driver: newDriverView(driver)})
}

// ToggleAvailability handles POST /api/drivers/:id/toggle-availability
func (h *DriverHandler) ToggleAvailability(c *gin.Context) {
	driverID, ok := pathID(c, "id", service.ErrDriverNotFound)
	if !ok {
		return
	}

	driver, err := h.driverService.ToggleAvailability(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, AvailabilityResponse{
		Message:     "Availability updated successfully",
		IsAvailable: driver.IsAvailable,
		Driver:      newDriverView(driver),
	})
}

// Rides handles GET /api/drivers/:id/rides
func (h *DriverHandler) Rides(c *gin.Context) {
	driverID, ok := pathID(c, "id", service.ErrDriverNotFound)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.driverService.Get(ctx, driverID); err != nil {
		respondError(c, err)
		return
	}
	rides, err := h.rideService.ListDriverRides(ctx, driverID, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, DriverRidesResponse{DriverID: driverID, Rides: newRideViews(rides)})
}

// Nearby handles GET /api/drivers/nearby?lat=&lon=&radius_km=
func (h *DriverHandler) Nearby(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid location data"})
		return
	}
	radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)

	nearby, err := h.driverService.Nearby(c.Request.Context(), lat, lon, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]NearbyDriverView, 0, len(nearby))
	for _, n := range nearby {
		out = append(out, NearbyDriverView{DriverView: newDriverView(n.Driver), DistanceKm: n.DistanceKm})
	}
	respondJSON(c, http.StatusOK, gin.H{"drivers": out})
}

// Me handles GET /api/drivers/me
func (h *DriverHandler) Me(c *gin.Context) {
	driverID, _ := middleware.DriverID(c)

	driver, err := h.driverService.Get(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"driver": newDriverView(driver)})
}

// AssignedRides handles GET /api/drivers/me/assigned-rides?status=a,b
func (h *DriverHandler) AssignedRides(c *gin.Context) {
	driverID, _ := middleware.DriverID(c)

	var statuses []string
	if raw := c.Query("status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}

	rides, err := h.rideService.ListDriverRides(c.Request.Context(), driverID, statuses)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, RideListResponse{Rides: newRideViews(rides)})
}

// AcceptRide handles POST /api/drivers/me/rides/:id/accept
func (h *DriverHandler) AcceptRide(c *gin.Context) {
	driverID, _ := middleware.DriverID(c)
	rideID, ok := pathID(c, "id", service.ErrRideNotFound)
	if !ok {
		return
	}

	details, err := h.rideService.Accept(c.Request.Context(), rideID, driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, RideActionResponse{
		Message: "Ride accepted successfully",
		Ride:    newRideView(details.Ride, details.Payment),
	})
}

// UpdateRideStatus handles PATCH /api/drivers/me/rides/:id/status
func (h *DriverHandler) UpdateRideStatus(c *gin.Context) {
	driverID, _ := middleware.DriverID(c)
	rideID, ok := pathID(c, "id", service.ErrRideNotFound)
	if !ok {
		return
	}

	var req UpdateRideStatusRequest
	_ = c.ShouldBindJSON(&req)

	details, err := h.rideService.UpdateStatus(c.Request.Context(), rideID, driverID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, RideActionResponse{
		Message: "Ride status updated",
		Ride:    newRideView(details.Ride, details.Payment),
	})
}
