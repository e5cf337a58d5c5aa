package messaging

import "time"

// Message is the immutable envelope created by the upstream producer.
// IsPending is flipped exactly once, true -> false, when the content has
// been durably stored.
type Message struct {
	ID                string    `json:"id" firestore:"id"`
	FiscalCode        string    `json:"fiscalCode" firestore:"fiscalCode"`
	SenderServiceID   string    `json:"senderServiceId" firestore:"senderServiceId"`
	CreatedAt         time.Time `json:"createdAt" firestore:"createdAt"`
	TimeToLiveSeconds int64     `json:"timeToLive" firestore:"timeToLive"`
	IsPending         bool      `json:"isPending" firestore:"isPending"`
}

// PaymentData is the optional structured payment section of a message.
type PaymentData struct {
	Amount          int64  `json:"amount" firestore:"amount"`
	NoticeNumber    string `json:"noticeNumber" firestore:"noticeNumber"`
	PayeeFiscalCode string `json:"payeeFiscalCode,omitempty" firestore:"payeeFiscalCode,omitempty"`
}

// MessageContent is the subject and body stored at materialization time.
type MessageContent struct {
	Subject  string       `json:"subject" firestore:"subject"`
	Markdown string       `json:"markdown" firestore:"markdown"`
	Payment  *PaymentData `json:"paymentData,omitempty" firestore:"paymentData,omitempty"`
}

// WithNormalizedPayment returns content where payment data missing an
// explicit payee is completed with the sender organization's fiscal code.
// Applying it to already-normalized content returns the input unchanged.
func (c MessageContent) WithNormalizedPayment(organizationFiscalCode string) MessageContent {
	if c.Payment == nil || c.Payment.PayeeFiscalCode != "" {
		return c
	}
	normalized := *c.Payment
	normalized.PayeeFiscalCode = organizationFiscalCode
	c.Payment = &normalized
	return c
}

// SenderMetadata describes the service that sent a message, as captured by
// the upstream producer at creation time.
type SenderMetadata struct {
	ServiceID              string `json:"serviceId" firestore:"serviceId"`
	ServiceName            string `json:"serviceName" firestore:"serviceName"`
	OrganizationName       string `json:"organizationName" firestore:"organizationName"`
	OrganizationFiscalCode string `json:"organizationFiscalCode" firestore:"organizationFiscalCode"`
	DepartmentName         string `json:"departmentName" firestore:"departmentName"`
	RequireSecureChannels  bool   `json:"requireSecureChannels" firestore:"requireSecureChannels"`
	// ServiceUserEmail is the registered owner address of the sender service.
	// Sandbox traffic is routed here instead of the real profile address.
	ServiceUserEmail string `json:"serviceUserEmail,omitempty" firestore:"serviceUserEmail,omitempty"`
}

// ProcessingMessageData is the interim record written by the producer stage
// and read back by ProcessMessage and CreateNotification.
type ProcessingMessageData struct {
	Message Message        `json:"message" firestore:"message"`
	Content MessageContent `json:"content" firestore:"content"`
	Sender  SenderMetadata `json:"senderMetadata" firestore:"senderMetadata"`
}
