package core

// ConversationState is the unit of persisted memory per conversation. It is
// loaded at the start of a turn, mutated by the orchestration loop, and saved
// at the end. Messages is append-only across turns; insertion order is the
// conversation order and is replayed into every decision step call.
type ConversationState struct {
	ConversationID string    `json:"conversation_id"`
	UserQuery      string    `json:"user_query"`
	Messages       []Message `json:"messages"`
	CurrentRole    Role      `json:"current_role"`
}

// NewConversationState creates the initial state for a conversation: empty
// message history and CurrentRole NONE.
func NewConversationState(conversationID string) *ConversationState {
	return &ConversationState{
		ConversationID: conversationID,
		Messages:       []Message{},
		CurrentRole:    RoleNone,
	}
}

// Append adds messages to the history. Messages never shrink; there is no
// removal counterpart.
func (s *ConversationState) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Clone returns a deep copy safe for independent mutation. Stores hand out
// clones so callers cannot alias persisted state.
func (s *ConversationState) Clone() *ConversationState {
	clone := &ConversationState{
		ConversationID: s.ConversationID,
		UserQuery:      s.UserQuery,
		Messages:       make([]Message, len(s.Messages)),
		CurrentRole:    s.CurrentRole,
	}
	for i, m := range s.Messages {
		cm := m
		if len(m.ToolCalls) > 0 {
			cm.ToolCalls = make([]ToolCall, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				ctc := tc
				if len(tc.Args) > 0 {
					ctc.Args = make(map[string]any, len(tc.Args))
					for k, v := range tc.Args {
						ctc.Args[k] = v
					}
				}
				cm.ToolCalls[j] = ctc
			}
		}
		clone.Messages[i] = cm
	}
	return clone
}

// Transcript renders the full message history in conversation order.
func (s *ConversationState) Transcript() string {
	return RenderTranscript(s.Messages)
}

// LastAssistantText walks the history backwards and returns the content of
// the most recent assistant message that carries free text (tool-call
// messages are skipped). The boolean reports whether one was found.
func (s *ConversationState) LastAssistantText() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role == MessageRoleAssistant && !m.HasToolCalls() && m.Content != "" {
			return m.Content, true
		}
	}
	return "", false
}

// StateStore persists conversation state keyed by conversation ID. It is the
// sole source of truth for resuming a conversation across process restarts.
//
// Load returns a freshly initialized empty state if none exists yet; it never
// fails on absence. Save replaces the stored state for the conversation.
type StateStore interface {
	Load(conversationID string) (*ConversationState, error)
	Save(state *ConversationState) error
}
