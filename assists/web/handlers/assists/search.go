package assists

import (
	"net/http"
	"strconv"

	common "axiapac.com/biometrics/assists/web/common"
	web "axiapac.com/biometrics/web/common"
	"github.com/gin-gonic/gin"
)

// Search pages through stored punches after startDate without calling the remote API.
func (ep *Endpoint) Search(c *gin.Context) {
	startDate, err := common.ParseDate(c.Query("startDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid startDate: "+err.Error()))
		return
	}

	// get page, limit from query params
	page := 1
	limit := 50
	if val, err := strconv.Atoi(c.Query("page")); err == nil && val > 0 {
		page = val
	}
	if val, err := strconv.Atoi(c.Query("limit")); err == nil && val > 0 {
		limit = min(val, 500)
	}

	records, total, err := ep.base.Service.Store().SearchAssists(c.Request.Context(), startDate, page, limit)
	if err != nil {
		ep.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, web.NewSearchResponse(records, total, page, limit))
}
