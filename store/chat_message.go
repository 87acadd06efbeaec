package store

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a student conversation.
type ChatMessage struct {
	StudentID string
	Role      ChatRole
	Content   string
	Route     string // answer route for assistant turns, empty for user turns
	CreatedTs int64
	ID        int64
}

// FindChatMessage filters chat history queries.
type FindChatMessage struct {
	StudentID *string
	SinceTs   *int64
	Limit     int
}
