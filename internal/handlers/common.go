package handlers

import (
	"notely/internal/middleware"
	"notely/internal/policy"
	"notely/internal/store"
	apperrors "notely/pkg/errors"
	"notely/pkg/pagination"
	"notely/pkg/response"

	"github.com/gin-gonic/gin"
)

// currentPrincipal 读取已认证的调用者；路由未挂登录中间件时按未登录处理
func currentPrincipal(c *gin.Context) (policy.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.FromError(c, apperrors.ErrUnauthenticated)
		return policy.Principal{}, false
	}
	return principal, true
}

// pageFromQuery 请求未带分页参数时返回全部数据
func pageFromQuery(c *gin.Context) (store.Page, *pagination.PageParams) {
	params := pagination.ParsePageParams(c)
	return store.Page{Offset: params.GetOffset(), Limit: params.GetLimit()}, params
}

// respondList 带分页参数时返回分页信息，否则直接返回列表
func respondList(c *gin.Context, data interface{}, total int64, params *pagination.PageParams) {
	if params == nil {
		response.Success(c, data)
		return
	}
	response.SuccessWithPage(c, data, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.FromError(c, apperrors.BadRequest("Invalid request body"))
		return false
	}
	return true
}
