package handlers

import (
	"notely/internal/services"
	"notely/pkg/response"

	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	service *services.NoteService
}

func NewNoteHandler(service *services.NoteService) *NoteHandler {
	return &NoteHandler{service: service}
}

// Create 创建笔记
func (h *NoteHandler) Create(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req services.NoteInput
	if !bindJSON(c, &req) {
		return
	}

	note, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, "Note created", note)
}

// List 笔记列表
func (h *NoteHandler) List(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	page, params := pageFromQuery(c)

	notes, total, err := h.service.List(c.Request.Context(), principal, page)
	if err != nil {
		response.FromError(c, err)
		return
	}

	respondList(c, notes, total, params)
}

// Get 笔记详情
func (h *NoteHandler) Get(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	note, err := h.service.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, note)
}

// Update 修改笔记
func (h *NoteHandler) Update(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	if _, err := services.ParseID(c.Param("id"), "note"); err != nil {
		response.FromError(c, err)
		return
	}
	var req services.NoteInput
	if !bindJSON(c, &req) {
		return
	}

	note, err := h.service.Update(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, note)
}

// Delete 删除笔记
func (h *NoteHandler) Delete(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Note deleted", nil)
}
