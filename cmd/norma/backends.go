package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/qazlegal/norma/internal/config"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Show the backend registry and credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}

		fmt.Printf("%-20s %-12s %-8s %-26s %s\n", "ID", "CONTEXT", "COST", "STRENGTHS", "STATUS")
		for _, b := range eng.router.Backends() {
			status := color.GreenString("available")
			if !b.Available {
				status = color.RedString("unavailable")
			}
			if _, registered := eng.backends.Get(b.ID); !registered {
				status = color.YellowString("no credentials")
			}
			fmt.Printf("%-20s %-12d %-8s %-26s %s\n",
				b.ID, b.MaxContext, b.Cost, strings.Join(b.Strengths, ","), status)
		}

		fmt.Printf("\ndefault backend: %s\n\n", eng.cfg.DefaultBackend)

		for _, p := range []struct {
			name     string
			provider config.Provider
		}{
			{"anthropic", config.ProviderAnthropic},
			{"gemini", config.ProviderGemini},
			{"openai", config.ProviderOpenAI},
		} {
			key, err := config.GetAPIKey(eng.cfg, p.provider)
			if err != nil {
				fmt.Printf("%-10s %s\n", p.name, color.RedString("(not set)"))
				continue
			}
			fmt.Printf("%-10s %s (%s)\n", p.name, config.MaskAPIKey(key), config.GetAPIKeySource(eng.cfg, p.provider))
		}
		return nil
	},
}
