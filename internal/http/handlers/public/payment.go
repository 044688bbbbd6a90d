package public

import (
	"context"
	"time"

	"github.com/campusbooks/storefront/internal/http/handlers/shared"
	"github.com/campusbooks/storefront/internal/http/response"
	"github.com/campusbooks/storefront/internal/payment"

	"github.com/gin-gonic/gin"
)

// ReportPopup 视图回传 Paystack 弹窗回调，等待校验结果
func (h *Handler) ReportPopup(c *gin.Context) {
	reference := c.Param("reference")
	raw := map[string]interface{}{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.BadRequest(c, "invalid popup callback")
		return
	}
	result, err := h.Popups.Report(reference, raw)
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}

	flight := h.flow.lastFlight()
	if flight == nil {
		response.Success(c, result)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Config.Backend.Timeout()+5*time.Second)
	defer cancel()
	select {
	case <-flight.done:
	case <-ctx.Done():
		shared.RespondError(c, response.CodeGatewayTimeout, "payment verification still running", ctx.Err())
		return
	}
	if flight.err != nil {
		shared.RespondDomainError(c, flight.err)
		return
	}
	response.Success(c, payResponseOf(flight.outcome))
}

// PaymentCallback 跳转支付返回，校验参考号
func (h *Handler) PaymentCallback(c *gin.Context) {
	provider, err := payment.ParseProvider(c.Param("provider"))
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	orch := h.NewCheckout(nil)
	result, err := orch.ResumeRedirect(c.Request.Context(), provider, c.Request.URL.Query())
	if err != nil {
		shared.RespondDomainError(c, err)
		return
	}
	h.flow.finishRedirect(result.OrderID)
	response.Success(c, result)
}
