package handlers

import (
	"strconv"

	"notely/internal/services"
	"notely/pkg/response"

	"github.com/gin-gonic/gin"
)

type TenantHandler struct {
	service *services.TenantService
}

func NewTenantHandler(service *services.TenantService) *TenantHandler {
	return &TenantHandler{service: service}
}

// Get 租户信息
func (h *TenantHandler) Get(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	tenant, err := h.service.Get(c.Request.Context(), principal, c.Param("slug"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, tenant)
}

// TogglePlan 切换套餐
func (h *TenantHandler) TogglePlan(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	tenant, err := h.service.TogglePlan(c.Request.Context(), principal, c.Param("slug"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Plan updated", tenant)
}

// Upgrade 升级到 PRO
func (h *TenantHandler) Upgrade(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	tenant, err := h.service.Upgrade(c.Request.Context(), principal, c.Param("slug"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Upgraded to Pro", tenant)
}

// ListUsers 本租户成员
func (h *TenantHandler) ListUsers(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	page, params := pageFromQuery(c)

	users, total, err := h.service.ListUsers(c.Request.Context(), principal, c.Param("slug"), page)
	if err != nil {
		response.FromError(c, err)
		return
	}

	respondList(c, users, total, params)
}

// ListAllUsers 全部租户的用户
func (h *TenantHandler) ListAllUsers(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	page, params := pageFromQuery(c)

	users, total, err := h.service.ListAllUsers(c.Request.Context(), principal, page)
	if err != nil {
		response.FromError(c, err)
		return
	}

	respondList(c, users, total, params)
}

// AuditLog 审计记录
func (h *TenantHandler) AuditLog(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	page, params := pageFromQuery(c)

	entries, total, err := h.service.AuditLog(c.Request.Context(), principal, c.Param("slug"), page)
	if err != nil {
		response.FromError(c, err)
		return
	}

	respondList(c, entries, total, params)
}

// RecentEvents 最近的领域事件
func (h *TenantHandler) RecentEvents(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	events, err := h.service.RecentEvents(c.Request.Context(), principal, c.Param("slug"), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, events)
}
