package models

// InboundKind tells what the user actually sent
type InboundKind int

const (
	InboundText InboundKind = iota
	InboundButton
	InboundListRow
	InboundLocation
)

func (k InboundKind) String() string {
	switch k {
	case InboundButton:
		return "button"
	case InboundListRow:
		return "list_row"
	case InboundLocation:
		return "location"
	default:
		return "text"
	}
}

// Inbound is one message received from the channel
type Inbound struct {
	From      string      `json:"from"`
	Name      string      `json:"name"`
	Kind      InboundKind `json:"kind"`
	Text      string      `json:"text"`
	ID        string      `json:"id"` // button or list row id
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
}

// IsSelection reports whether the message carries a UI option id
func (m Inbound) IsSelection() bool {
	return (m.Kind == InboundButton || m.Kind == InboundListRow) && m.ID != ""
}

// OutboundKind is the shape of a message we send
type OutboundKind int

const (
	OutboundText OutboundKind = iota
	OutboundImage
	OutboundChoice
)

func (k OutboundKind) String() string {
	switch k {
	case OutboundImage:
		return "image"
	case OutboundChoice:
		return "choice"
	default:
		return "text"
	}
}

// ChoiceOption is one button or list row
type ChoiceOption struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Choice is a structured selection: up to three inline buttons, or a list
type Choice struct {
	Body        string         `json:"body"`
	ButtonLabel string         `json:"button_label,omitempty"` // list opener
	Options     []ChoiceOption `json:"options"`
	AsList      bool           `json:"as_list"`
}

// Outbound is one message to send
type Outbound struct {
	Kind     OutboundKind `json:"kind"`
	Text     string       `json:"text,omitempty"`
	MediaURL string       `json:"media_url,omitempty"`
	Choice   *Choice      `json:"choice,omitempty"`
}

func TextMessage(text string) Outbound {
	return Outbound{Kind: OutboundText, Text: text}
}

func ImageMessage(mediaURL, caption string) Outbound {
	return Outbound{Kind: OutboundImage, MediaURL: mediaURL, Text: caption}
}

func ChoiceMessage(c Choice) Outbound {
	return Outbound{Kind: OutboundChoice, Choice: &c, Text: c.Body}
}

// SendResult is the transport's answer for one send
type SendResult struct {
	OK  bool
	ID  string
	Err error
}

// Acked reports an explicit acknowledgment: ok flag and a message id, no error
func (r SendResult) Acked() bool {
	return r.OK && r.ID != "" && r.Err == nil
}
