package dto

// PartyRequest is a sender or receiver contact block.
type PartyRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Phone   string `json:"phone" binding:"required,max=20"`
	Address string `json:"address" binding:"required,max=255"`
}

// CreateSessionRequest is the request body for payment-session creation.
// Amount is the item amount; the delivery charge is computed and added.
type CreateSessionRequest struct {
	OrderID     string       `json:"orderId" binding:"omitempty,max=100,safe_id"`
	Amount      float64      `json:"amount" binding:"required,gt=0"`
	Currency    string       `json:"currency" binding:"omitempty,len=3"`
	Description string       `json:"description" binding:"required,max=255"`
	Sender      PartyRequest `json:"sender" binding:"required"`
	Receiver    PartyRequest `json:"receiver" binding:"required"`

	Location           string  `json:"location" binding:"required,max=100"`
	Weight             float64 `json:"weight" binding:"required,gte=0.1,lte=100"`
	IsCod              bool    `json:"isCod"`
	SameDayDelivery    bool    `json:"sameDayDelivery"`
	IsSensitive        bool    `json:"isSensitive"`
	SpecialNotes       *string `json:"specialNotes,omitempty" binding:"omitempty,max=500"`
	ProntoCustomerCode *string `json:"prontoCustomerCode,omitempty" binding:"omitempty,max=50"`
}

// PartyResponse mirrors PartyRequest on the way out.
type PartyResponse struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// SessionResponse is the response body for session reads and creation.
type SessionResponse struct {
	SessionID   string `json:"sessionId"`
	OrderID     string `json:"orderId"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`

	Sender   PartyResponse `json:"sender"`
	Receiver PartyResponse `json:"receiver"`

	Location        string  `json:"location"`
	Weight          string  `json:"weight"`
	IsCod           bool    `json:"isCod"`
	SameDayDelivery bool    `json:"sameDayDelivery"`
	IsSensitive     bool    `json:"isSensitive"`
	SpecialNotes    *string `json:"specialNotes,omitempty"`

	Status string `json:"status"`

	ProntoTrackingNumber *string `json:"prontoTrackingNumber,omitempty"`
	ProntoStatus         *string `json:"prontoStatus,omitempty"`
	ProntoAreaCode       *int    `json:"prontoAreaCode,omitempty"`
	ProntoCost           *string `json:"prontoCost,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// ShipmentResponse is the shipment block inside a webhook response.
type ShipmentResponse struct {
	TrackingNumber string `json:"trackingNumber"`
	Cost           string `json:"cost"`
	AreaCode       int    `json:"areaCode"`
}

// NotificationResponse is the webhook response data block.
type NotificationResponse struct {
	SessionID     string            `json:"sessionId"`
	OrderID       string            `json:"orderId"`
	PaymentStatus string            `json:"paymentStatus"`
	Shipment      *ShipmentResponse `json:"shipment,omitempty"`
}

// TrackingEventResponse is one tracking-history entry.
type TrackingEventResponse struct {
	Status   string `json:"status"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Remarks  string `json:"remarks"`
}

// TrackingResponse wraps a shipment's tracking history. CurrentStatus is
// the last (most recent) event's status.
type TrackingResponse struct {
	TrackingNumber string                  `json:"trackingNumber"`
	CurrentStatus  string                  `json:"currentStatus"`
	Events         []TrackingEventResponse `json:"events"`
}
