package assists

import (
	"net/http"

	web "axiapac.com/biometrics/web/common"
	"github.com/gin-gonic/gin"
)

func (ep *Endpoint) Status(c *gin.Context) {
	status, err := ep.base.Service.Status(c.Request.Context())
	if err != nil {
		ep.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(status))
}
