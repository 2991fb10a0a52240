package slack

// Channel is the subset of a conversations.info channel object we read.
type Channel struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NameNormalized string `json:"name_normalized"`
	IsArchived     bool   `json:"is_archived"`
	IsPrivate      bool   `json:"is_private"`
}

// ConversationInfoResponse is the envelope returned by conversations.info.
type ConversationInfoResponse struct {
	OK      bool     `json:"ok"`
	Error   string   `json:"error,omitempty"`
	Channel *Channel `json:"channel,omitempty"`
}

// Message is an interactive message returned in a slash command response.
type Message struct {
	Text            string       `json:"text"`
	ResponseType    string       `json:"response_type"`
	ReplaceOriginal bool         `json:"replace_original"`
	Attachments     []Attachment `json:"attachments"`
}

// Attachment carries the interactive controls of a Message.
type Attachment struct {
	Fallback       string   `json:"fallback"`
	Color          string   `json:"color"`
	AttachmentType string   `json:"attachment_type"`
	CallbackID     string   `json:"callback_id"`
	Actions        []Action `json:"actions"`
}

// Action is a single interactive control.
type Action struct {
	Name    string   `json:"name"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Confirm *Confirm `json:"confirm,omitempty"`
	Options []Option `json:"options,omitempty"`
}

// Confirm asks the user before the action is submitted.
type Confirm struct {
	Title string `json:"title"`
}

// Option is a select menu entry.
type Option struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// ResponseEphemeral shows a reply only to the user who invoked the command.
const ResponseEphemeral = "ephemeral"

// InteractionPayload is the JSON sent in the "payload" form field when a user
// submits an interactive message.
type InteractionPayload struct {
	Type       string              `json:"type"`
	CallbackID string              `json:"callback_id"`
	ActionTS   string              `json:"action_ts"`
	MessageTS  string              `json:"message_ts"`
	TriggerID  string              `json:"trigger_id"`
	Actions    []InteractionAction `json:"actions"`
	Channel    IDName              `json:"channel"`
	User       IDName              `json:"user"`
	Team       struct {
		ID     string `json:"id"`
		Domain string `json:"domain"`
	} `json:"team"`
}

// InteractionAction is one action the user took.
type InteractionAction struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	SelectedOptions []Option `json:"selected_options"`
}

// IDName is the {id, name} pair Slack uses for users and channels.
type IDName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SelectedValue returns the value of the first selected option of the first
// action, and false when the payload has none.
func (p *InteractionPayload) SelectedValue() (string, bool) {
	if len(p.Actions) == 0 || len(p.Actions[0].SelectedOptions) == 0 {
		return "", false
	}
	return p.Actions[0].SelectedOptions[0].Value, true
}
