package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/myorg/tempo/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile management commands",
	Long:  "Manage timeline profiles: list built-in presets, show details, validate custom profiles.",
}

var profileCfg struct {
	Format string // output format: text, json, yaml
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	Long: `List the built-in timeline presets and custom profiles found in
./profiles and ~/.tempo/profiles.

Examples:
  tempo profile list
  tempo profile list --format yaml
`,
	RunE: runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show profile details",
	Long: `Show the controller settings of a preset, alias or profile file.

Examples:
  tempo profile show pingpong
  tempo profile show yoyo --format yaml
  tempo profile show ./profiles/intro.yaml
`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileShow,
}

var profileValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a profile YAML file",
	Long: `Validate a custom profile YAML file.

Checks for:
  - Valid YAML syntax
  - A name
  - A finite, non-negative duration
  - At least one iteration
  - A finite speed

Examples:
  tempo profile validate intro.yaml
`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileValidate,
}

func init() {
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileValidateCmd)

	profileCmd.PersistentFlags().StringVar(&profileCfg.Format, "format", "text", "output format: text, json, yaml")
}

// profileInfo is the listing form of a profile. Iterations is a string so
// that infinite loops survive JSON.
type profileInfo struct {
	Name        string   `yaml:"name" json:"name"`
	Type        string   `yaml:"type" json:"type"`
	Description string   `yaml:"description" json:"description"`
	Duration    float64  `yaml:"duration" json:"duration"`
	Iterations  string   `yaml:"iterations" json:"iterations"`
	Speed       float64  `yaml:"speed" json:"speed"`
	Flags       []string `yaml:"flags,omitempty" json:"flags,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

func newProfileInfo(p *profile.Profile, kind string) profileInfo {
	info := profileInfo{
		Name:        p.Name,
		Type:        kind,
		Description: p.Description,
		Duration:    p.Duration,
		Iterations:  strconv.FormatFloat(p.Iterations, 'g', -1, 64),
		Speed:       p.Speed,
	}
	if p.Persist {
		info.Flags = append(info.Flags, "persist")
	}
	if p.Pingpong {
		info.Flags = append(info.Flags, "pingpong")
	}
	if p.Pongping {
		info.Flags = append(info.Flags, "pongping")
	}
	if kind == "builtin" {
		info.Aliases = profile.Aliases(p.Name)
	}
	return info
}

func getAvailableProfiles() []profileInfo {
	var profiles []profileInfo
	for _, p := range profile.All() {
		profiles = append(profiles, newProfileInfo(p, "builtin"))
	}

	searchPaths := []string{"./profiles"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".tempo", "profiles"))
	}

	for _, dir := range searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
				continue
			}
			p, err := profile.LoadFromFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			profiles = append(profiles, newProfileInfo(p, "custom"))
		}
	}
	return profiles
}

func runProfileList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	profiles := getAvailableProfiles()

	switch profileCfg.Format {
	case "yaml":
		data, err := yaml.Marshal(profiles)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
	case "json":
		return printJSON(out, profiles)
	default:
		fmt.Fprintln(out, "Available Profiles")
		fmt.Fprintln(out, "==================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%-12s %-8s %-10s %s\n", "NAME", "TYPE", "ALIASES", "DESCRIPTION")
		fmt.Fprintln(out, strings.Repeat("-", 70))
		for _, p := range profiles {
			fmt.Fprintf(out, "%-12s %-8s %-10s %s\n", p.Name, p.Type, strings.Join(p.Aliases, ","), p.Description)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	p, err := profile.Load(args[0])
	if err != nil {
		return err
	}
	return showProfile(cmd, p)
}

func showProfile(cmd *cobra.Command, p *profile.Profile) error {
	out := cmd.OutOrStdout()
	switch profileCfg.Format {
	case "yaml":
		data, err := p.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
	case "json":
		return printJSON(out, newProfileInfo(p, "profile"))
	default:
		fmt.Fprintf(out, "Profile: %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(out, "  %s\n", p.Description)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Duration:   %gs per iteration\n", p.Duration)
		fmt.Fprintf(out, "  Iterations: %g\n", p.Iterations)
		fmt.Fprintf(out, "  Total:      %gs\n", p.TotalDuration())
		fmt.Fprintf(out, "  Speed:      %gx\n", p.Speed)
		fmt.Fprintf(out, "  Persist:    %t\n", p.Persist)
		fmt.Fprintf(out, "  Pingpong:   %t\n", p.Pingpong)
		fmt.Fprintf(out, "  Pongping:   %t\n", p.Pongping)
		if p.StartAt != 0 {
			fmt.Fprintf(out, "  Start at:   %gs\n", p.StartAt)
		}
	}
	return nil
}

func runProfileValidate(cmd *cobra.Command, args []string) error {
	p, err := profile.LoadFromFile(args[0])
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid: %s\n", args[0], p)
	return nil
}
