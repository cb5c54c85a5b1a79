package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kostaxi/internal/service"
)

// AdminHandler serves internal dashboard data.
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// OverviewFilters echoes the applied filters.
type OverviewFilters struct {
	RideStatus    string `json:"ride_status"`
	PaymentStatus string `json:"payment_status"`
	DriverID      int64  `json:"driver_id"`
}

// OverviewTotals are the dashboard counters.
type OverviewTotals struct {
	RidesTotal        int     `json:"rides_total"`
	RidesPending      int     `json:"rides_pending"`
	RidesCompleted    int     `json:"rides_completed"`
	PaymentsSucceeded int     `json:"payments_succeeded"`
	PaymentsFailed    int     `json:"payments_failed"`
	DriversTotal      int     `json:"drivers_total"`
	RevenueEUR        float64 `json:"revenue_eur"`
}

// OverviewResponse is the HTTP response for the admin overview.
type OverviewResponse struct {
	Filters  OverviewFilters `json:"filters"`
	Rides    []RideView      `json:"rides"`
	Drivers  []DriverView    `json:"drivers"`
	Payments []PaymentView   `json:"payments"`
	Totals   OverviewTotals  `json:"totals"`
}

// Overview handles GET /api/admin/overview?ride_status=&payment_status=&driver_id=
func (h *AdminHandler) Overview(c *gin.Context) {
	driverID, _ := strconv.ParseInt(c.Query("driver_id"), 10, 64)

	o, err := h.adminService.Overview(c.Request.Context(), service.OverviewFilter{
		RideStatus:    c.Query("ride_status"),
		PaymentStatus: c.Query("payment_status"),
		DriverID:      driverID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, OverviewResponse{
		Filters: OverviewFilters{
			RideStatus:    o.Filters.RideStatus,
			PaymentStatus: o.Filters.PaymentStatus,
			DriverID:      o.Filters.DriverID,
		},
		Rides:    newRideViews(o.Rides),
		Drivers:  newDriverViews(o.Drivers),
		Payments: newPaymentViews(o.Payments),
		Totals: OverviewTotals{
			RidesTotal:        o.Totals.RidesTotal,
			RidesPending:      o.Totals.RidesPending,
			RidesCompleted:    o.Totals.RidesCompleted,
			PaymentsSucceeded: o.Totals.PaymentsSucceeded,
			PaymentsFailed:    o.Totals.PaymentsFailed,
			DriversTotal:      o.Totals.DriversTotal,
			RevenueEUR:        o.Totals.RevenueEUR,
		},
	})
}
