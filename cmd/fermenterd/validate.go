package main

import (
	"fmt"
	"os"
	"time"

	"controlling_fermenter/internal/config"
	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/profile"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <run.yml>",
		Short: "Check a run definition file against the configured limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limits := profile.DefaultLimits()
			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				limits = limitsFromConfig(cfg)
			}
			p, err := loadDefinition(args[0], limits)
			if err != nil {
				return err
			}
			cmd.Println(describeProfile(p))
			return nil
		},
	}
}

// loadDefinition decodes a YAML run definition and validates it.
func loadDefinition(path string, limits profile.Limits) (*profile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run definition: %w", err)
	}
	var def models.RunDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse run definition %s: %w", path, err)
	}
	return profile.New(def, limits)
}

func describeProfile(p *profile.Profile) string {
	if p.Mode() == models.ModeIdle {
		return "ok: IDLE run (measure only)"
	}
	total := 0
	unbounded := false
	for _, l := range p.Levels() {
		if l.DurationSec == 0 {
			unbounded = true
		}
		total += l.DurationSec
	}
	hold := (time.Duration(total) * time.Second).String()
	if unbounded {
		hold += " + hold until stopped"
	}
	return fmt.Sprintf("ok: %s run %q, %d level(s), %s of holding", p.Mode(), p.Name(), p.Len(), hold)
}

func limitsFromConfig(cfg *config.Config) profile.Limits {
	return profile.Limits{
		MinTargetC:         cfg.Control.MinTargetC,
		MaxTargetC:         cfg.Control.MaxTargetC,
		AllowUnboundedLast: cfg.Control.AllowUnboundedLastLevel,
	}
}
