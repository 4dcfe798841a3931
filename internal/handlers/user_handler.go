package handlers

import (
	"notely/internal/services"
	"notely/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Invite 邀请用户加入租户
func (h *UserHandler) Invite(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req services.InviteInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.Invite(c.Request.Context(), principal, c.Param("slug"), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, "User invited", user)
}

// Update 修改用户邮箱和角色
func (h *UserHandler) Update(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req services.UpdateUserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.Update(c.Request.Context(), principal, c.Param("slug"), c.Param("userId"), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "User updated", user)
}

// Delete 删除用户
func (h *UserHandler) Delete(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal, c.Param("slug"), c.Param("userId")); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "User deleted", nil)
}
