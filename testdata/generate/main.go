// Command generate prints a correctly signed payment notification, for
// exercising the webhook by hand:
//
//	go run ./testdata/generate -invoice DON-1700000000000-ABC123 -status settlement | \
//	  curl -X POST -H 'Content-Type: application/json' -d @- localhost:8080/api/v1/payments/notification
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/esaputra95/webalhijrah-sub000/internal/currency"
	"github.com/esaputra95/webalhijrah-sub000/internal/gateway"
)

// statusCodes mirrors the status_code the gateway sends with each
// transaction_status.
var statusCodes = map[string]string{
	"capture":    "200",
	"settlement": "200",
	"pending":    "201",
	"deny":       "202",
	"cancel":     "202",
	"expire":     "407",
}

func main() {
	invoice := flag.String("invoice", "", "invoice number (order_id)")
	status := flag.String("status", "settlement", "transaction_status")
	fraud := flag.String("fraud", "", "fraud_status, e.g. accept or challenge")
	amount := flag.String("amount", "50000", "donation amount")
	key := flag.String("key", os.Getenv("MIDTRANS_SERVER_KEY"), "server key used to sign")
	tamper := flag.Bool("tamper", false, "corrupt the signature")
	flag.Parse()

	if *invoice == "" || *key == "" {
		flag.Usage()
		os.Exit(2)
	}

	amt, err := currency.ParseAmount(*amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	code, ok := statusCodes[*status]
	if !ok {
		code = "200"
	}

	n := gateway.Notification{
		OrderID:           *invoice,
		StatusCode:        code,
		GrossAmount:       currency.FormatGross(amt),
		TransactionStatus: *status,
		FraudStatus:       *fraud,
		TransactionID:     fmt.Sprintf("test-%d", time.Now().UnixNano()),
		PaymentType:       "bank_transfer",
		TransactionTime:   time.Now().Format("2006-01-02 15:04:05"),
	}
	n.SignatureKey = gateway.Signature(n.OrderID, n.StatusCode, n.GrossAmount, *key)
	if *tamper {
		n.SignatureKey = gateway.Signature(n.OrderID, n.StatusCode, n.GrossAmount, *key+"x")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(n); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
