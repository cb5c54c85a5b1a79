package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicAttributes annotates the transaction started by nrgin with the
// request ID and authenticated driver, and reports handler errors and 5xx
// responses. Without a transaction it does nothing.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		if id := c.GetString(RequestIDKey); id != "" {
			txn.AddAttribute("request_id", id)
		}
		if driverID, ok := DriverID(c); ok {
			txn.AddAttribute("driver_id", driverID)
		}

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError && len(c.Errors) == 0 {
			txn.NoticeError(newrelic.Error{
				Message: http.StatusText(status),
				Class:   "HTTP " + strconv.Itoa(status),
			})
		}
	}
}
