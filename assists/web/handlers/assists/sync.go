package assists

import (
	"net/http"

	assists "axiapac.com/biometrics/assists/core"
	common "axiapac.com/biometrics/assists/web/common"
	web "axiapac.com/biometrics/web/common"
	"github.com/gin-gonic/gin"
)

type SyncQuery struct {
	StartDate string `form:"startDate" json:"startDate" binding:"required"`
	Page      int    `form:"page" json:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" json:"limit" binding:"omitempty,min=1,max=500"`
}

// Synchronize pulls pending pages from the biometrics API, then answers with the
// stored punches after startDate.
func (ep *Endpoint) Synchronize(c *gin.Context) {
	var query SyncQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	startDate, err := common.ParseDate(query.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid startDate: "+err.Error()))
		return
	}

	result, err := ep.base.Service.Synchronize(c.Request.Context(), assists.SyncParams{
		StartDate: startDate,
		Page:      query.Page,
		Limit:     query.Limit,
	})
	if err != nil {
		ep.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewPaginatedResponse(result.Records, result.Meta))
}

type CatchUpParamsDTO struct {
	StartDate string `json:"startDate" binding:"required"`
	Limit     int    `json:"limit" binding:"omitempty,min=1,max=500"`
}

// CatchUp synchronizes until no page of the epoch is pending.
func (ep *Endpoint) CatchUp(c *gin.Context) {
	var params CatchUpParamsDTO
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	startDate, err := common.ParseDate(params.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid startDate: "+err.Error()))
		return
	}

	stats, err := ep.base.Service.CatchUp(c.Request.Context(), startDate, params.Limit)
	if err != nil {
		ep.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(stats))
}
