// Package cli provides shared CLI utilities for mpedge and mpedged.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	flagEnvAnnotation    = "mpedge_env"
	flagEnumAnnotation   = "mpedge_enum"
	commandEnvAnnotation = "mpedge_env"
)

// FlagSchema describes one flag in --help-json output.
type FlagSchema struct {
	Name        string   `json:"name"`
	Shorthand   string   `json:"shorthand,omitempty"`
	Type        string   `json:"type"`
	Default     string   `json:"default,omitempty"`
	Description string   `json:"description,omitempty"`
	Env         string   `json:"env,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Persistent  bool     `json:"persistent,omitempty"`
	Required    bool     `json:"required"`
}

// EnvSchema is an environment variable a command reads.
type EnvSchema struct {
	Name    string `json:"name"`
	Default string `json:"default,omitempty"`
}

// CommandSchema describes a command and its subcommands.
type CommandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Example     string          `json:"example,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Env         []EnvSchema     `json:"env,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

// BindFlagEnv records that env also sets the named flag.
func BindFlagEnv(flags *pflag.FlagSet, name, env string) {
	_ = flags.SetAnnotation(name, flagEnvAnnotation, []string{env})
}

// FlagEnum records the accepted values of the named flag.
func FlagEnum(flags *pflag.FlagSet, name string, values ...string) {
	_ = flags.SetAnnotation(name, flagEnumAnnotation, values)
}

// SetCommandEnv records the environment variables cmd reads. Each entry is
// NAME or NAME=default.
func SetCommandEnv(cmd *cobra.Command, vars ...string) {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[commandEnvAnnotation] = strings.Join(vars, "\n")
}

// GenerateSchema builds the schema of cmd and its visible subcommands.
func GenerateSchema(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
		Long:        cmd.Long,
		Example:     cmd.Example,
		Flags:       extractFlags(cmd),
		Env:         extractEnv(cmd),
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Name() == "completion" || sub.Hidden {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, GenerateSchema(sub))
	}

	return schema
}

func extractFlags(cmd *cobra.Command) []FlagSchema {
	var flags []FlagSchema
	persistent := cmd.PersistentFlags()

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if skipFlag(f) {
			return
		}
		flags = append(flags, flagToSchema(f, persistent.Lookup(f.Name) != nil))
	})
	cmd.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		if skipFlag(f) {
			return
		}
		flags = append(flags, flagToSchema(f, true))
	})

	sort.SliceStable(flags, func(i, j int) bool {
		return !flags[i].Persistent && flags[j].Persistent
	})
	return flags
}

func skipFlag(f *pflag.Flag) bool {
	return f.Hidden || f.Name == "help-json" || f.Name == "help" || f.Name == "version"
}

func flagToSchema(f *pflag.Flag, persistent bool) FlagSchema {
	schema := FlagSchema{
		Name:        f.Name,
		Shorthand:   f.Shorthand,
		Type:        f.Value.Type(),
		Default:     f.DefValue,
		Description: f.Usage,
		Enum:        f.Annotations[flagEnumAnnotation],
		Persistent:  persistent,
	}
	if env := f.Annotations[flagEnvAnnotation]; len(env) > 0 {
		schema.Env = env[0]
	}
	if req := f.Annotations[cobra.BashCompOneRequiredFlag]; len(req) > 0 && req[0] == "true" {
		schema.Required = true
	}
	if schema.Type == "stringSlice" && schema.Default == "[]" {
		schema.Default = ""
	}
	return schema
}

func extractEnv(cmd *cobra.Command) []EnvSchema {
	raw := cmd.Annotations[commandEnvAnnotation]
	if raw == "" {
		return nil
	}
	var vars []EnvSchema
	for _, line := range strings.Split(raw, "\n") {
		name, def, _ := strings.Cut(line, "=")
		vars = append(vars, EnvSchema{Name: name, Default: def})
	}
	return vars
}

// PrintSchema writes the schema of cmd as indented JSON.
func PrintSchema(w io.Writer, cmd *cobra.Command) error {
	output, err := json.MarshalIndent(GenerateSchema(cmd), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// AddHelpJSONFlag adds the --help-json flag to a command.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("help-json", false, "Output command schema as JSON")
}

// HandleHelpJSON prints the schema of the command named by args when args
// contain --help-json, and reports whether it did. It runs before Execute so
// required flags and argument counts are not validated.
func HandleHelpJSON(root *cobra.Command, w io.Writer, args []string) (bool, error) {
	for i, arg := range args {
		if arg == "--help-json" {
			return true, PrintSchema(w, findTargetCommand(root, args[:i]))
		}
	}
	return false, nil
}

func findTargetCommand(cmd *cobra.Command, args []string) *cobra.Command {
	if len(args) == 0 {
		return cmd
	}

	for _, sub := range cmd.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return findTargetCommand(sub, args[1:])
		}
	}

	return findTargetCommand(cmd, args[1:])
}
