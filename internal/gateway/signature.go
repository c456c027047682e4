package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
)

// Notification is the body of an HTTP notification sent by the gateway.
// Only the fields the service acts on are decoded.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status,omitempty"`
	TransactionID     string `json:"transaction_id,omitempty"`
	PaymentType       string `json:"payment_type,omitempty"`
	TransactionTime   string `json:"transaction_time,omitempty"`
}

// Signature computes the hex SHA-512 the gateway attaches to notifications.
// grossAmount must be the exact string the gateway sent.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// Verifier checks that notifications were signed with the server key.
type Verifier struct {
	serverKey string
	logger    *zap.Logger
}

func NewVerifier(serverKey string, logger *zap.Logger) *Verifier {
	return &Verifier{serverKey: serverKey, logger: logger}
}

// Verify reports whether n carries a valid signature. Without a configured
// server key every notification is rejected.
func (v *Verifier) Verify(n Notification) bool {
	if v.serverKey == "" {
		v.logger.Error("gateway server key not configured, rejecting notification",
			zap.String("order_id", n.OrderID))
		return false
	}
	if n.SignatureKey == "" {
		return false
	}

	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, v.serverKey)
	got := strings.ToLower(n.SignatureKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
