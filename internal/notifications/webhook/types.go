package webhook

// Discord embed colors (decimal RGB).
const (
	ColorGreen  = 3066993
	ColorRed    = 15158332
	ColorBlue   = 3447003
	ColorYellow = 16776960
)

// DiscordPayload is the body POSTed to a Discord incoming webhook.
type DiscordPayload struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed is a single rich message block.
type DiscordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []DiscordField `json:"fields"`
	Timestamp   string         `json:"timestamp,omitempty"` // ISO-8601, UTC
	Footer      *DiscordFooter `json:"footer,omitempty"`
}

// DiscordField is a name/value pair within an embed.
type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordFooter is the footer of a Discord embed.
type DiscordFooter struct {
	Text string `json:"text"`
}
