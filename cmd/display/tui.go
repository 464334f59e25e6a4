package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/displaysync"
)

type actFunc func(ctx context.Context, action *d.CustomerAction) error

type sessionMsg d.CheckoutSession

type actionResult struct {
	action d.ActionType
	err    error
}

// model is the customer-facing terminal: the rendered session plus one input line.
type model struct {
	session *d.CheckoutSession
	input   []rune
	status  string
	act     actFunc
	timeout time.Duration
}

func newModel(act actFunc, timeout time.Duration) model {
	return model{
		status:  "Waiting for register...",
		act:     act,
		timeout: timeout,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionMsg:
		s := d.CheckoutSession(msg)
		m.session = &s
		m.status = s.LastError
	case actionResult:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s rejected: %v", msg.action, msg.err)
		} else {
			m.status = fmt.Sprintf("%s sent", msg.action)
		}
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := string(m.input)
			m.input = nil
			action, err := parseAction(line)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			if action == nil {
				return m, nil
			}
			return m, m.sendAction(action)
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		case tea.KeySpace:
			m.input = append(m.input, ' ')
		case tea.KeyRunes:
			m.input = append(m.input, msg.Runes...)
		}
	}
	return m, nil
}

func (m model) sendAction(action *d.CustomerAction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		return actionResult{action: action.Type, err: m.act(ctx, action)}
	}
}

func (m model) View() string {
	b := &strings.Builder{}
	if m.session != nil {
		b.WriteString(displaysync.Render(*m.session))
	}
	fmt.Fprintf(b, "\n%s\n", m.status)
	fmt.Fprintf(b, "> %s\n", string(m.input))
	b.WriteString("tip <pct>|$<amt>|none  proceed  sign x,y x,y ...  clear  receipt printed|none|email <addr>|text <phone>  esc quits\n")
	return b.String()
}
