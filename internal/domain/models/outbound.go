package models

// OutboundMessageRequest is a manual WhatsApp notification pushed by an admin.
type OutboundMessageRequest struct {
	To      string `json:"to" validate:"required"`
	Message string `json:"message" validate:"required"`
}
