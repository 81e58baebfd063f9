// ABOUTME: Cobra command for interactive embedding provider setup.
// ABOUTME: Launches a bubbletea TUI wizard to collect and validate provider settings.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/bookrec/internal/config"
	"github.com/2389-research/bookrec/internal/embeddings"
	"github.com/2389-research/bookrec/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the embedding provider",
	Long:  "Interactive wizard to choose and validate the embedding provider (hash, Ollama, or OpenAI).",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	// Read the file alone so env-provided keys are not written back to disk.
	cfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(tui.Settings{
		Provider: cfg.Embedding.Provider,
		URL:      cfg.Embedding.URL,
		Model:    cfg.Embedding.Model,
		APIKey:   cfg.Embedding.APIKey,
	})

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	applySettings(cfg, final.Result())

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Printf("Config saved to %s\n", path)
	return nil
}

// applySettings copies wizard results into cfg. Switching provider or model
// resets the dimension, since each model has its own vector length.
func applySettings(cfg *config.Config, s tui.Settings) {
	if s.Provider != cfg.Embedding.Provider || s.Model != cfg.Embedding.Model {
		switch s.Provider {
		case embeddings.ProviderOllama, embeddings.ProviderOpenAI:
			// Learned from the first response. OpenAI-compatible servers
			// may reject a requested dimension.
			cfg.Embedding.Dimension = 0
		case embeddings.ProviderHash:
			cfg.Embedding.Dimension = embeddings.DefaultHashDimension
		}
	}
	cfg.Embedding.Provider = s.Provider
	cfg.Embedding.URL = s.URL
	cfg.Embedding.Model = s.Model
	cfg.Embedding.APIKey = s.APIKey
}
