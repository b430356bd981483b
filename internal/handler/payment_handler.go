package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopflow/internal/repository"
	"shopflow/pkg/utils"
)

// PaymentHandler payment record handler
type PaymentHandler struct {
	payments repository.PaymentRepository
}

// NewPaymentHandler creates a payment handler
func NewPaymentHandler(payments repository.PaymentRepository) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// List lists payment records, newest first
func (h *PaymentHandler) List(c *gin.Context) {
	records, err := h.payments.List(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, records)
}

// Get gets a payment record by ID
func (h *PaymentHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid payment ID")
		return
	}

	record, err := h.payments.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, record)
}
