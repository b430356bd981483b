package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopflow/internal/model"
	"shopflow/internal/repository"
	"shopflow/pkg/utils"
)

// UserHandler user handler
type UserHandler struct {
	users repository.UserRepository
}

// NewUserHandler creates a user handler
func NewUserHandler(users repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// CreateUserRequest create user request payload
type CreateUserRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// List lists all users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, users)
}

// Get gets a user by ID
func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, user)
}

// Create creates a user
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.ErrInvalidParam)
		return
	}

	user := &model.User{
		Name:    req.Name,
		Address: req.Address,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, user)
}

// Update updates a user
func (h *UserHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AppErrorResponse(c, utils.ErrInvalidParam)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	user.Name = req.Name
	user.Address = req.Address
	if err := h.users.Update(c.Request.Context(), user); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, user)
}

// Delete deletes a user
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "User deleted successfully"})
}
