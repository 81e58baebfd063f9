// ABOUTME: Interactive TUI wizard for configuring the embedding provider.
// ABOUTME: Bubbletea model collecting provider, URL, model, and API key, then validating.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/bookrec/internal/embeddings"
)

// DefaultProvider is used when the provider step is left empty.
const DefaultProvider = embeddings.ProviderOllama

// Step represents the current wizard step.
type Step int

const (
	StepProvider Step = iota
	StepURL
	StepModel
	StepAPIKey
	StepValidating
	StepDone
	StepFailed
)

// Settings are the provider values collected by the wizard.
type Settings struct {
	Provider string
	URL      string
	Model    string
	APIKey   string
}

// validationResultMsg carries the result of an async validation attempt.
type validationResultMsg struct {
	err error
}

// ValidateFn is the function signature for provider validation.
type ValidateFn func(ctx context.Context, s Settings) error

// cancelHolder shares a cancel function across bubbletea model copies.
// This MUST be stored as a pointer field on SetupModel so that value-receiver
// methods (required by tea.Model) can store the cancel func and have it
// visible to all copies of the model.
type cancelHolder struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step          Step
	inputs        [4]textinput.Model
	spinner       spinner.Model
	validateFn    ValidateFn
	cancelCtx     *cancelHolder
	inputErr      string
	validationErr error
	quitting      bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewSetupModel creates a new setup wizard model, pre-filling with existing config values.
func NewSetupModel(existing Settings) SetupModel {
	providerInput := textinput.New()
	providerInput.Placeholder = DefaultProvider
	providerInput.Focus()
	providerInput.Width = 50
	providerInput.SetValue(existing.Provider)

	urlInput := textinput.New()
	urlInput.Width = 50
	urlInput.SetValue(existing.URL)

	modelInput := textinput.New()
	modelInput.Width = 50
	modelInput.SetValue(existing.Model)

	keyInput := textinput.New()
	keyInput.Placeholder = "your-api-key"
	keyInput.EchoMode = textinput.EchoPassword
	keyInput.Width = 50
	keyInput.SetValue(existing.APIKey)

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		step:       StepProvider,
		inputs:     [4]textinput.Model{providerInput, urlInput, modelInput, keyInput},
		spinner:    s,
		validateFn: ValidateProvider,
		cancelCtx:  &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case StepProvider, StepURL, StepModel, StepAPIKey:
			return m.updateInput(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case validationResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.step = StepDone
			return m, tea.Quit
		}
		m.validationErr = msg.err
		m.step = StepFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == StepValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) provider() string {
	return m.inputs[StepProvider].Value()
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		idx := int(m.step)
		var cmd tea.Cmd
		m.inputs[idx], cmd = m.inputs[idx].Update(msg)
		return m, cmd
	}

	m.inputErr = ""
	switch m.step {
	case StepProvider:
		p := strings.ToLower(strings.TrimSpace(m.provider()))
		if p == "" {
			p = DefaultProvider
		}
		switch p {
		case embeddings.ProviderHash, embeddings.ProviderOllama, embeddings.ProviderOpenAI:
		default:
			m.inputErr = fmt.Sprintf("unknown provider %q: choose hash, ollama, or openai", p)
			return m, nil
		}
		m.inputs[StepProvider].SetValue(p)
		if p == embeddings.ProviderHash {
			// The local provider needs nothing else.
			m.inputs[StepURL].SetValue("")
			m.inputs[StepModel].SetValue("")
			m.inputs[StepAPIKey].SetValue("")
			m.inputs[StepProvider].Blur()
			m.step = StepValidating
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		}
		m.inputs[StepURL].Placeholder = defaultURL(p)
		m.inputs[StepModel].Placeholder = defaultModel(p)

	case StepURL:
		m.inputs[StepURL].SetValue(normalizeURL(m.provider(), m.inputs[StepURL].Value()))

	case StepModel:
		if strings.TrimSpace(m.inputs[StepModel].Value()) == "" {
			m.inputs[StepModel].SetValue(defaultModel(m.provider()))
		}

	case StepAPIKey:
		// Hosted providers need a key; a local Ollama does not.
		if m.provider() == embeddings.ProviderOpenAI && m.inputs[StepAPIKey].Value() == "" {
			return m, nil
		}
		m.inputs[StepAPIKey].Blur()
		m.step = StepValidating
		return m, tea.Batch(m.startValidation(), m.spinner.Tick)
	}

	m.inputs[m.step].Blur()
	m.step++
	m.inputs[m.step].Focus()
	return m, textinput.Blink
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'r':
			m.step = StepValidating
			m.validationErr = nil
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		case 's':
			m.step = StepDone
			return m, tea.Quit
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SetupModel) startValidation() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	settings := m.Result()
	fn := m.validateFn
	return func() tea.Msg {
		return validationResultMsg{err: fn(ctx, settings)}
	}
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   BOOKREC"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Configure the embedding provider used to match books.\n\n")

	switch m.step {
	case StepProvider:
		b.WriteString(stepStyle.Render("Step 1 of 4: Provider (hash, ollama, openai)"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(press Enter for default)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[StepProvider].View())
		b.WriteString("\n")

	case StepURL:
		m.writeSummary(&b, StepURL)
		b.WriteString(stepStyle.Render("Step 2 of 4: Provider URL"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(press Enter for default)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[StepURL].View())
		b.WriteString("\n")

	case StepModel:
		m.writeSummary(&b, StepModel)
		b.WriteString(stepStyle.Render("Step 3 of 4: Model"))
		b.WriteString("\n")
		b.WriteString(m.inputs[StepModel].View())
		b.WriteString("\n")

	case StepAPIKey:
		m.writeSummary(&b, StepAPIKey)
		b.WriteString(stepStyle.Render("Step 4 of 4: API Key"))
		b.WriteString("\n")
		if m.provider() != embeddings.ProviderOpenAI {
			b.WriteString(promptStyle.Render("(optional, press Enter to skip)"))
			b.WriteString("\n")
		}
		b.WriteString(m.inputs[StepAPIKey].View())
		b.WriteString("\n")

	case StepValidating:
		m.writeSummary(&b, StepValidating)
		b.WriteString(m.spinner.View())
		b.WriteString(" Validating provider...")
		b.WriteString("\n")

	case StepDone:
		b.WriteString(successStyle.Render("✓ Provider ready!"))
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.validationErr != nil {
			errMsg = m.validationErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Validation failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}

	if m.inputErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.inputErr))
		b.WriteString("\n")
	}

	return b.String()
}

// writeSummary prints the values entered before step.
func (m SetupModel) writeSummary(b *strings.Builder, step Step) {
	fmt.Fprintf(b, "  Provider: %s\n", m.provider())
	if step > StepURL && m.provider() != embeddings.ProviderHash {
		url := m.inputs[StepURL].Value()
		if url == "" {
			url = "(default)"
		}
		fmt.Fprintf(b, "  URL:      %s\n", url)
	}
	if step > StepModel && m.provider() != embeddings.ProviderHash {
		fmt.Fprintf(b, "  Model:    %s\n", m.inputs[StepModel].Value())
	}
	if step > StepAPIKey && m.inputs[StepAPIKey].Value() != "" {
		fmt.Fprintf(b, "  API Key:  %s\n", strings.Repeat("*", len(m.inputs[StepAPIKey].Value())))
	}
	b.WriteString("\n")
}

// Result returns the entered values.
func (m SetupModel) Result() Settings {
	return Settings{
		Provider: m.inputs[StepProvider].Value(),
		URL:      m.inputs[StepURL].Value(),
		Model:    m.inputs[StepModel].Value(),
		APIKey:   m.inputs[StepAPIKey].Value(),
	}
}

// ShouldSave returns true if the wizard completed (via validation success or
// "save anyway") and the user did not cancel with Ctrl+C, Escape, or 'q'.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}

func defaultURL(provider string) string {
	if provider == embeddings.ProviderOllama {
		return embeddings.DefaultOllamaURL
	}
	return ""
}

func defaultModel(provider string) string {
	switch provider {
	case embeddings.ProviderOllama:
		return embeddings.DefaultOllamaModel
	case embeddings.ProviderOpenAI:
		return embeddings.DefaultOpenAIModel
	}
	return ""
}

// normalizeURL applies the provider default and strips trailing slashes. An
// Ollama URL pasted with its /api prefix is reduced to the server root.
func normalizeURL(provider, raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u == "" {
		return defaultURL(provider)
	}
	if provider == embeddings.ProviderOllama {
		u = strings.TrimSuffix(u, "/api")
	}
	return u
}
