package setup

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PromptStep collects the summarization instruction sent with every page
type PromptStep struct {
	input   textinput.Model
	focused bool
}

func NewPromptStep() Step {
	return &PromptStep{}
}

func (s *PromptStep) Init() tea.Cmd {
	return nil
}

func (s *PromptStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	if !s.focused {
		s.input = textinput.New()
		s.input.Focus()
		s.input.CharLimit = 1000
		s.input.Width = 60
		s.input.Placeholder = "Summarize the key points of this page in a few short paragraphs"
		s.focused = true
		return s, textinput.Blink
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" && s.input.Value() != "" {
			state.Config.CustomPrompt = s.input.Value()
			return nil, nil
		}
	}
	return s, cmd
}

func (s *PromptStep) View(state *SetupState) string {
	return fmt.Sprintf("Enter your summary prompt:\n\n%s\n\n(press enter to confirm)\n", s.input.View())
}
