package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mintleaf/billing/internal/app/service/billing"
	"github.com/mintleaf/billing/pkg/response"
	"github.com/mintleaf/billing/pkg/types"
)

// @Summary      Get User Subscription
// @Description  Returns the subscription state for a user, for the app shell to gate paid features.
// @Tags         User
// @Produce      json
// @Param        user_id query string true "User ID"
// @Success      200  {object}  handlers.RespUserSubscription
// @Router       /api/v1/user/subscription [get]
func ApiGetUserSubscription(svc *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}

		sub, err := svc.GetByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if sub == nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "no subscription"))
			return
		}

		info := &types.UserSubscriptionInfo{
			Plan:              sub.Plan,
			Status:            sub.Status,
			CurrentPeriodEnd:  sub.CurrentPeriodEnd,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}
		c.JSON(http.StatusOK, response.OKT(info))
	}
}

func RegisterUserRoutes(r gin.IRouter, svc *billing.Service) {
	r.GET("/subscription", ApiGetUserSubscription(svc))
}
