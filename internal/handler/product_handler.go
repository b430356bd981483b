package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopflow/internal/model"
	"shopflow/internal/repository"
	"shopflow/internal/service/checkout"
	"shopflow/pkg/utils"
)

// ProductHandler product handler
type ProductHandler struct {
	products        repository.ProductRepository
	checkoutService checkout.Service
}

// NewProductHandler creates a product handler
func NewProductHandler(products repository.ProductRepository, checkoutService checkout.Service) *ProductHandler {
	return &ProductHandler{
		products:        products,
		checkoutService: checkoutService,
	}
}

// CreateProductRequest create product request payload
type CreateProductRequest struct {
	Name  string `json:"name" binding:"required"`
	Qty   int    `json:"qty" binding:"required,gte=0"`
	Price int64  `json:"price" binding:"required,gt=0"`
}

// List lists all products
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, products)
}

// Get gets a product by ID
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, product)
}

// Create creates a product
func (h *ProductHandler) Create(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.ErrInvalidParam)
		return
	}

	product := &model.Product{
		Name:  req.Name,
		Qty:   req.Qty,
		Price: req.Price,
	}
	if err := h.products.Create(c.Request.Context(), product); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, product)
}

// Update updates a product
func (h *ProductHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.ErrInvalidParam)
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	product.Name = req.Name
	product.Qty = req.Qty
	product.Price = req.Price
	if err := h.products.Update(c.Request.Context(), product); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, product)
}

// Delete deletes a product
func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Product deleted successfully"})
}

// Checkout starts the async checkout pipeline for a product
func (h *ProductHandler) Checkout(c *gin.Context) {
	var req checkout.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.ErrInvalidParam)
		return
	}

	if err := h.checkoutService.Checkout(c.Request.Context(), &req); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Product checkout successful"})
}
