package assists

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	assists "axiapac.com/biometrics/assists/core"
	common "axiapac.com/biometrics/assists/web/common"
	web "axiapac.com/biometrics/web/common"
	"github.com/gin-gonic/gin"
)

// Export downloads stored punches with startDate < punch time <= endDate as xlsx.
// endDate defaults to now.
func (ep *Endpoint) Export(c *gin.Context) {
	startDate, err := common.ParseDate(c.Query("startDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid startDate: "+err.Error()))
		return
	}
	endDate := time.Now().UTC()
	if value := c.Query("endDate"); value != "" {
		if endDate, err = common.ParseDate(value); err != nil {
			c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid endDate: "+err.Error()))
			return
		}
	}
	if !endDate.After(startDate) {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("endDate must be after startDate"))
		return
	}

	var buf bytes.Buffer
	if _, err := ep.base.Service.Export(c.Request.Context(), startDate, endDate, &buf); err != nil {
		ep.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("assists_%s_%s.xlsx", startDate.Format("20060102"), endDate.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, assists.ExportContentType, buf.Bytes())
}
