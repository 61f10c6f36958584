package ai

import (
	"context"
	"sync"
)

// Canned replies of the mock. Players ask every question in turn and then explain. The judge reply carries both a
// coverage verdict and a complete rubric so that one reply serves both evaluation prompts.
var (
	mockHostReplies   = []string{"YES.", "NO.", "IRRELEVANT."}
	mockPlayerReplies = []string{
		"QUESTION: Did the man really die?",
		"QUESTION: Did he fake his own death on purpose?",
		"QUESTION: Did he go somewhere remote?",
		"QUESTION: Did he have a goal in mind?",
		"EXPLANATION: The man faked his death, fled to a remote island and later sent his family a letter.",
	}
	mockJudgeReply = `NO
Plot accuracy: 7/10 - mock grade
Detail accuracy: 6/10 - mock grade
Reasoning quality: 8/10 - mock grade
Completeness: 7/10 - mock grade`
)

// MockInvoker answers from canned replies without calling any model, for trying the pipeline offline. Replies cycle
// per role, and per player for the player role.
type MockInvoker struct {
	mu    sync.Mutex
	calls map[string]int
}

func NewMockInvoker() *MockInvoker {
	return &MockInvoker{calls: map[string]int{}}
}

func (m *MockInvoker) Invoke(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	replies := []string{mockJudgeReply}
	switch req.Role {
	case RoleHost:
		replies = mockHostReplies
	case RolePlayer:
		replies = mockPlayerReplies
	case RoleJudge:
	}
	key := string(req.Role) + "/" + req.Actor

	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.calls[key]
	m.calls[key] = n + 1
	return replies[n%len(replies)], nil
}
