package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"stepstunner/api/internal/config"
)

// CheckoutForm is the signed payload the client POSTs to the gateway. The
// order is already persisted when this is produced; a gateway failure leaves
// the order pending (no reconciliation step, tracked as a known gap).
type CheckoutForm struct {
	GatewayURL string            `json:"gatewayUrl"`
	Fields     map[string]string `json:"fields"`
}

type EsewaGateway struct {
	cfg config.PaymentConfig
}

func NewEsewaGateway(cfg config.PaymentConfig) *EsewaGateway {
	return &EsewaGateway{cfg: cfg}
}

const signedFieldNames = "total_amount,transaction_uuid,product_code"

func (g *EsewaGateway) CheckoutForm(orderID string, total int64) CheckoutForm {
	amount := FormatAmount(total)
	signature := Sign(g.cfg.SecretKey, amount, orderID, g.cfg.MerchantCode)

	return CheckoutForm{
		GatewayURL: g.cfg.GatewayURL,
		Fields: map[string]string{
			"amount":                  amount,
			"tax_amount":              "0",
			"product_service_charge":  "0",
			"product_delivery_charge": "0",
			"total_amount":            amount,
			"transaction_uuid":        orderID,
			"product_code":            g.cfg.MerchantCode,
			"success_url":             g.cfg.SuccessURL,
			"failure_url":             g.cfg.FailureURL,
			"signed_field_names":      signedFieldNames,
			"signature":               signature,
		},
	}
}

// Sign computes the gateway signature: base64 HMAC-SHA256 over the signed
// fields in their declared order.
func Sign(secret string, totalAmount string, transactionUUID string, productCode string) string {
	payload := strings.Join([]string{
		"total_amount=" + totalAmount,
		"transaction_uuid=" + transactionUUID,
		"product_code=" + productCode,
	}, ",")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// FormatAmount renders a paisa amount as rupees with two decimals.
func FormatAmount(paisa int64) string {
	return fmt.Sprintf("%d.%02d", paisa/100, paisa%100)
}
