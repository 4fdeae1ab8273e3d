package entity

// EmailMessage is an outgoing plain-text email
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
}
