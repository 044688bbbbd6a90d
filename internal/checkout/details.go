package checkout

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/campusbooks/storefront/internal/constants"
	"github.com/campusbooks/storefront/internal/models"
	"github.com/campusbooks/storefront/internal/payment"
)

// Details 结算表单
type Details struct {
	DeliveryOption  string `json:"delivery_option"`
	DeliveryAddress string `json:"delivery_address"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
	ContactName     string `json:"contact_name"`
	ContactPhone    string `json:"contact_phone"`
	ContactEmail    string `json:"contact_email"`
}

// Normalize 规整输入
func (d *Details) Normalize() {
	d.DeliveryOption = strings.ToLower(strings.TrimSpace(d.DeliveryOption))
	d.DeliveryAddress = strings.TrimSpace(d.DeliveryAddress)
	d.PaymentMethod = strings.ToLower(strings.TrimSpace(d.PaymentMethod))
	d.Notes = strings.TrimSpace(d.Notes)
	d.ContactName = strings.TrimSpace(d.ContactName)
	d.ContactPhone = strings.TrimSpace(d.ContactPhone)
	d.ContactEmail = strings.TrimSpace(d.ContactEmail)
}

// Validate 校验表单
func (d Details) Validate() error {
	switch d.DeliveryOption {
	case constants.DeliveryOptionPickup:
	case constants.DeliveryOptionDelivery:
		if d.DeliveryAddress == "" {
			return fmt.Errorf("%w: delivery address is required", ErrDetailsInvalid)
		}
	default:
		return fmt.Errorf("%w: unsupported delivery option %q", ErrDetailsInvalid, d.DeliveryOption)
	}
	if _, err := payment.ParseProvider(d.PaymentMethod); err != nil {
		return fmt.Errorf("%w: %v", ErrDetailsInvalid, err)
	}
	if d.ContactName == "" {
		return fmt.Errorf("%w: contact name is required", ErrDetailsInvalid)
	}
	if _, err := mail.ParseAddress(d.ContactEmail); err != nil {
		return fmt.Errorf("%w: contact email is invalid", ErrDetailsInvalid)
	}
	return nil
}

// Provider 支付渠道
func (d Details) Provider() payment.Provider {
	p, _ := payment.ParseProvider(d.PaymentMethod)
	return p
}

// GrandTotal 合计 = 购物车小计 + 配送运费（自提不收）
func GrandTotal(cartTotal models.Money, deliveryOption string, shippingFee models.Money) models.Money {
	if strings.EqualFold(strings.TrimSpace(deliveryOption), constants.DeliveryOptionDelivery) {
		return cartTotal.Add(shippingFee)
	}
	return cartTotal
}
