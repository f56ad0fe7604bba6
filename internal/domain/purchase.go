package domain

// PurchaseRecord is the result of a successful purchase. It is returned to
// the caller and never stored.
type PurchaseRecord struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	GameID    string `json:"gameId"`
	UserID    string `json:"userId"`
	Amount    Price  `json:"amount"`
}

// PaymentRequest is sent to the payment service to charge a user.
type PaymentRequest struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Amount  Price  `json:"amount"`
}
