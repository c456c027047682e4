package gateway

import "github.com/esaputra95/webalhijrah-sub000/internal/domain"

// MapStatus translates the gateway's transaction and fraud statuses into a
// donation status. Unknown values map to pending so a strange notification
// never fails the endpoint.
func MapStatus(transactionStatus, fraudStatus string) domain.Status {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "accept" {
			return domain.StatusSettled
		}
		return domain.StatusPending
	case "settlement":
		return domain.StatusSettled
	case "cancel", "deny":
		return domain.StatusFailed
	case "expire":
		return domain.StatusExpired
	case "pending":
		return domain.StatusPending
	default:
		return domain.StatusPending
	}
}
