package payments

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"admissions-backend/internal/applications"
	"admissions-backend/internal/shared/server/middleware"
	"admissions-backend/internal/shared/server/respond"
	"admissions-backend/internal/universities"
)

// Handler wires HTTP handlers to the payments service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches payment routes. The notification route is exempt
// from auth; the gateway calls it directly.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications/:id/payment", h.createTransaction)
	rg.GET("/applications/:id/payment", h.getStatus)
	rg.POST("/payments/notification", h.notification)
}

// PaymentResponse is the API view of a payment.
type PaymentResponse struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"orderId"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	SnapToken   string     `json:"snapToken,omitempty"`
	RedirectURL string     `json:"redirectUrl,omitempty"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
}

func toPaymentResponse(p Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Amount:      p.Amount,
		Status:      p.Status,
		SnapToken:   p.SnapToken,
		RedirectURL: p.RedirectURL,
		PaidAt:      p.PaidAt,
	}
}

func (h *Handler) createTransaction(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	payment, err := h.Svc.CreateTransaction(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		h.writeError(c, err, "failed to create payment")
		return
	}
	respond.Created(c, toPaymentResponse(payment))
}

func (h *Handler) getStatus(c *gin.Context) {
	studentID := middleware.UserIDFromContext(c)

	payment, err := h.Svc.Status(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.JSON(c, http.StatusOK, gin.H{"status": "none"})
			return
		}
		h.writeError(c, err, "failed to fetch payment")
		return
	}
	respond.JSON(c, http.StatusOK, toPaymentResponse(payment))
}

func (h *Handler) notification(c *gin.Context) {
	var payload struct {
		OrderID string `json:"order_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "order_id is required", nil)
		return
	}

	if err := h.Svc.HandleNotification(c.Request.Context(), payload.OrderID); err != nil {
		// Unknown orders get a 200 so the gateway stops retrying; real
		// failures get a 5xx so it retries later.
		if errors.Is(err, ErrNotFound) {
			respond.JSON(c, http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		h.writeError(c, err, "failed to process notification")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, applications.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "payment not found", nil)
	case errors.Is(err, universities.ErrConfigNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "university configuration not found", nil)
	case errors.Is(err, applications.ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "application belongs to another student", nil)
	case errors.Is(err, ErrAlreadyPaid), errors.Is(err, applications.ErrAlreadySubmitted):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrNotConfigured):
		respond.Error(c, http.StatusConflict, "invalid_state", "no application fee is configured", nil)
	case errors.Is(err, ErrGateway):
		respond.Error(c, http.StatusBadGateway, "remote_error", "payment gateway is unavailable", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
