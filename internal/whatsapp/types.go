package whatsapp

// Webhook delivery payload shapes for the Meta Cloud API. Only the fields
// the pipeline reads are declared; everything else is ignored on decode.

// Payload is the top-level POST body of a webhook delivery.
type Payload struct {
	Entry []Entry `json:"entry"`
}

// Entry groups the changes of one WhatsApp business account.
type Entry struct {
	Changes []Change `json:"changes"`
}

// Change carries one value object.
type Change struct {
	Value Value `json:"value"`
}

// Value holds the messages and contact metadata of a delivery. Status
// callbacks arrive with an empty Messages slice.
type Value struct {
	Messages []Message `json:"messages"`
	Contacts []Contact `json:"contacts"`
}

// Contact carries the sender's profile data.
type Contact struct {
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is one inbound message entry.
type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *Text  `json:"text,omitempty"`
	Audio     *Media `json:"audio,omitempty"`
	Image     *Media `json:"image,omitempty"`
}

// Text is the body of a text message.
type Text struct {
	Body string `json:"body"`
}

// Media references an uploaded audio or image payload.
type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}

// FirstMessage returns the first message of the payload, or nil for
// status callbacks and other message-less deliveries.
func (p *Payload) FirstMessage() *Message {
	for _, e := range p.Entry {
		for _, c := range e.Changes {
			if len(c.Value.Messages) > 0 {
				return &c.Value.Messages[0]
			}
		}
	}
	return nil
}

// SenderName returns the contact profile name, or a generic fallback.
func (p *Payload) SenderName() string {
	for _, e := range p.Entry {
		for _, c := range e.Changes {
			if len(c.Value.Contacts) > 0 && c.Value.Contacts[0].Profile.Name != "" {
				return c.Value.Contacts[0].Profile.Name
			}
		}
	}
	return "Usuário"
}
