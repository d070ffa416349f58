package models

// ContactMessage is a storefront contact-form submission. It is mailed to the
// operator and never stored.
type ContactMessage struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=5000"`
}
