package main

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/noah-isme/room-allocation-api/internal/service"
	"github.com/noah-isme/room-allocation-api/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect scoring configuration",
	}
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var defaultsPath, userPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the scoring documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if defaultsPath == "" || userPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if defaultsPath == "" {
					defaultsPath = cfg.Scoring.DefaultsPath
				}
				if userPath == "" {
					userPath = cfg.Scoring.UserPath
				}
			}
			scoring, err := service.LoadScoringConfig(defaultsPath, userPath, nil, validator.New())
			if err != nil {
				return err
			}
			payload, err := json.MarshalIndent(struct {
				Weights interface{} `json:"weights"`
				Rules   interface{} `json:"rules"`
				Sources []string    `json:"sources,omitempty"`
			}{scoring.Weights, scoring.Rules, scoring.Sources}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}
	cmd.Flags().StringVar(&defaultsPath, "defaults", "", "defaults document (SCORING_DEFAULTS_PATH when empty)")
	cmd.Flags().StringVar(&userPath, "user", "", "user overrides document (SCORING_USER_PATH when empty)")
	return cmd
}
