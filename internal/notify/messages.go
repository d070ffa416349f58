package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"veloce/internal/models"

	"github.com/shopspring/decimal"
)

var orderHTML = template.Must(template.New("order").Funcs(template.FuncMap{"money": money}).Parse(
	`<h2>Order #{{.ID}}</h2>
<p><strong>Customer:</strong> {{.CustomerName}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
<p><strong>Address:</strong> {{.Address}}</p>
<h3>Items</h3>
<ul>{{range .Items}}<li>{{.Quantity}}x {{.Name}} - {{money .Subtotal}}</li>{{end}}</ul>
<p><strong>Total:</strong> {{money .TotalAmount}}</p>`))

var contactHTML = template.Must(template.New("contact").Parse(
	`<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Message:</strong></p>
<p>{{.Message}}</p>`))

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// OrderMessage renders the operator notification for a placed order.
func OrderMessage(from, to string, order models.Order) (Message, error) {
	var lines strings.Builder
	for _, it := range order.Items {
		fmt.Fprintf(&lines, "%dx %s - %s\n", it.Quantity, it.Name, money(it.Subtotal()))
	}

	var html bytes.Buffer
	if err := orderHTML.Execute(&html, order); err != nil {
		return Message{}, fmt.Errorf("failed to render order email: %w", err)
	}

	return Message{
		From:    from,
		To:      to,
		Subject: fmt.Sprintf("New Order #%d - %s", order.ID, order.CustomerName),
		Text: fmt.Sprintf("Order #%d\n\nCustomer: %s\nEmail: %s\nPhone: %s\nAddress: %s\n\nItems:\n%s\nTotal: %s",
			order.ID, order.CustomerName, order.Email, order.Phone, order.Address, lines.String(), money(order.TotalAmount)),
		HTML: html.String(),
	}, nil
}

// ContactMessage renders the operator notification for a contact-form
// submission. Replies go to the submitter.
func ContactMessage(from, to string, c models.ContactMessage) (Message, error) {
	var html bytes.Buffer
	if err := contactHTML.Execute(&html, c); err != nil {
		return Message{}, fmt.Errorf("failed to render contact email: %w", err)
	}
	return Message{
		From:    from,
		To:      to,
		ReplyTo: c.Email,
		Subject: "Contact Form: " + c.Name,
		Text:    fmt.Sprintf("Name: %s\nEmail: %s\n\nMessage:\n%s", c.Name, c.Email, c.Message),
		HTML:    html.String(),
	}, nil
}
