package assists

import (
	"errors"
	"net/http"

	assists "axiapac.com/biometrics/assists/core"
	common "axiapac.com/biometrics/assists/web/common"
	web "axiapac.com/biometrics/web/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Endpoint struct {
	base common.Handler
}

func Register(r *gin.RouterGroup, base common.Handler) {
	if base.Logger == nil {
		base.Logger = zap.NewNop()
	}
	endpoint := &Endpoint{base: base}
	r.GET("/assists", endpoint.Search)
	r.GET("/assists/sync", endpoint.Synchronize)
	r.POST("/assists/sync/catchup", endpoint.CatchUp)
	r.GET("/assists/sync/status", endpoint.Status)
	r.GET("/assists/export", endpoint.Export)
}

// respondError maps sync errors to status codes: remote API failures and invalid
// parameters are the caller's 400, a running sync is 409, anything else is 500.
func (ep *Endpoint) respondError(c *gin.Context, err error) {
	var fetchErr *assists.FetchError
	switch {
	case errors.As(err, &fetchErr), errors.Is(err, assists.ErrInvalidSyncParams):
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
	case errors.Is(err, assists.ErrLockUnavailable):
		c.JSON(http.StatusConflict, web.NewErrorResponse(err.Error()))
	case errors.Is(err, assists.ErrNoEpoch):
		c.JSON(http.StatusNotFound, web.NewErrorResponse(err.Error()))
	default:
		ep.base.Logger.Error("Assists request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
	}
}
