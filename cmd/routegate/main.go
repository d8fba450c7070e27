package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zen-systems/routegate/pkg/adapter"
	"github.com/zen-systems/routegate/pkg/audit"
	"github.com/zen-systems/routegate/pkg/capability"
	"github.com/zen-systems/routegate/pkg/classifier"
	"github.com/zen-systems/routegate/pkg/config"
	"github.com/zen-systems/routegate/pkg/kpi"
	"github.com/zen-systems/routegate/pkg/policy"
)

var profilesFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "routegate",
		Short: "Deterministic routing policy for the browser-debug workflow",
		Long: `Routegate decides whether an automated browser-debug workflow should be
	invoked for a requesting skill, in which mode, and why, producing an
	auditable decision trace shared by all caller skills.`,
	}

	rootCmd.PersistentFlags().StringVar(&profilesFile, "profiles", "", "path to profiles config file")

	rootCmd.AddCommand(decideCmd())
	rootCmd.AddCommand(kpiCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(profilesCmd())
	rootCmd.AddCommand(probeCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if profilesFile != "" {
		return config.LoadWithProfilesFile(profilesFile)
	}
	return config.Load()
}

func decideCmd() *cobra.Command {
	var (
		skillFlag    string
		triggerFlag  string
		explicitFlag bool
		strictFlag   bool
		hintFlags    []string
		capFlag      string
		signFlag     bool
	)

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Evaluate one routing request and print the decision trace",
		Long: `Evaluates the precedence rules for a skill/trigger pair and prints the
	decision as JSON. The global kill-switch is read from the environment.

	Capability is passed with --capability: "none" (unknown), "ok",
	"fallback", or "no-browser". Leaving it at "none" yields the blocked
	outcome, which asks the caller to probe capability and retry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			profiles, err := cfg.Profiles.BuildProfiles()
			if err != nil {
				return fmt.Errorf("invalid profiles config: %w", err)
			}

			skill, err := policy.ParseSkill(skillFlag)
			if err != nil {
				return err
			}
			trigger, err := policy.ParseTriggerClass(triggerFlag)
			if err != nil {
				return err
			}
			snapshot, err := parseCapabilityFlag(capFlag)
			if err != nil {
				return err
			}

			engine := policy.NewEngine(profiles)
			decision, err := engine.Evaluate(policy.Request{
				Skill:           skill,
				TriggerClass:    trigger,
				ExplicitRequest: explicitFlag,
				SessionHints:    hintFlags,
				StrictEvidence:  strictFlag,
				KillSwitchEnv:   cfg.KillSwitchEnv,
				Capability:      snapshot,
			})
			if err != nil {
				return err
			}

			record, err := audit.NewRecord(skill, decision, time.Now())
			if err != nil {
				return err
			}
			if signFlag {
				signer, err := audit.NewSigner(cfg.KeyDir(), "routegate")
				if err != nil {
					return err
				}
				if err := signer.Sign(record); err != nil {
					return err
				}
			}

			return printJSON(record)
		},
	}

	cmd.Flags().StringVar(&skillFlag, "skill", "", "requesting skill identifier")
	cmd.Flags().StringVar(&triggerFlag, "trigger", "", "classified trigger class")
	cmd.Flags().BoolVar(&explicitFlag, "explicit", false, "user explicitly requested routing")
	cmd.Flags().BoolVar(&strictFlag, "strict-evidence", false, "strict evidence capture required")
	cmd.Flags().StringArrayVar(&hintFlags, "hint", nil, "session hint token (repeatable)")
	cmd.Flags().StringVar(&capFlag, "capability", "none", "capability snapshot: none|ok|fallback|no-browser")
	cmd.Flags().BoolVar(&signFlag, "sign", false, "sign the audit record")
	cmd.MarkFlagRequired("skill")
	cmd.MarkFlagRequired("trigger")

	return cmd
}

// parseCapabilityFlag maps the CLI shorthand onto a capability snapshot.
func parseCapabilityFlag(value string) (*policy.Snapshot, error) {
	switch value {
	case "", "none":
		return nil, nil
	case "ok":
		return &policy.Snapshot{CanInstrumentFromBrowser: true, Bootstrap: policy.BootstrapOK}, nil
	case "fallback":
		return &policy.Snapshot{CanInstrumentFromBrowser: true, Bootstrap: policy.BootstrapFallback}, nil
	case "no-browser":
		return &policy.Snapshot{CanInstrumentFromBrowser: false}, nil
	default:
		return nil, fmt.Errorf("unknown capability value %q", value)
	}
}

func kpiCmd() *cobra.Command {
	var window kpi.Window

	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Check whether an aggregated outcome window can gate a rollout",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := kpi.Evaluate(window)
			if err := printJSON(result); err != nil {
				return err
			}
			if !result.Passed {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&window.TotalRuns, "total", 0, "total runs in the window")
	cmd.Flags().IntVar(&window.ExpectedRouteRuns, "route", 0, "runs where routing was expected")
	cmd.Flags().IntVar(&window.ExpectedNoRouteRuns, "no-route", 0, "runs where no routing was expected")
	cmd.Flags().IntVar(&window.DaySpan, "days", 0, "days the window spans")

	return cmd
}

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify task text into a trigger class",
		Long: `Runs the heuristic trigger classifier over the task text. When the
	profiles config enables the tie-breaker and the matching adapter has an
	API key, low-confidence results are settled by an LLM call.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			opts := []classifier.Option{
				classifier.WithThreshold(cfg.Profiles.Classifier.ConfidenceThreshold),
			}
			if tb := cfg.Profiles.Classifier; tb.EnableTieBreaker != nil && *tb.EnableTieBreaker {
				a, err := createAdapter(cfg, tb.Adapter)
				if err != nil {
					return err
				}
				opts = append(opts, classifier.WithTieBreaker(a, tb.Model))
			}

			result, err := classifier.New(opts...).Classify(cmd.Context(), args[0])
			if result == nil {
				return err
			}
			// A tie-breaker failure still leaves a usable heuristic result.
			return printJSON(result)
		},
	}
	return cmd
}

func createAdapter(cfg *config.Config, name string) (adapter.Adapter, error) {
	switch name {
	case "anthropic":
		return adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
	case "openai":
		return adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
	case "google":
		return adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
	default:
		return nil, fmt.Errorf("unknown classifier adapter %q", name)
	}
}

func profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the trigger-profile table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			profiles, err := cfg.Profiles.BuildProfiles()
			if err != nil {
				return fmt.Errorf("invalid profiles config: %w", err)
			}

			skills := make([]policy.Skill, len(policy.Skills))
			copy(skills, policy.Skills)
			sort.Slice(skills, func(i, j int) bool { return skills[i] < skills[j] })

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SKILL\tTRIGGER CLASSES")
			for _, skill := range skills {
				classes := profiles.Classes(skill)
				names := make([]string, len(classes))
				for i, class := range classes {
					names[i] = class.String()
				}
				fmt.Fprintf(w, "%s\t%s\n", skill, joinComma(names))
			}
			return w.Flush()
		},
	}
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}

func probeCmd() *cobra.Command {
	var (
		cdpPort       int
		debugEndpoint string
		origin        string
		bootstrapCmd  []string
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe browser capability and print the snapshot",
		Long: `Checks the CDP endpoint and the debug endpoint's CORS preflight, then
	prints the capability snapshot the decide command consumes. With
	--bootstrap, runs the guarded bootstrap command first and folds its
	status into the snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			probe := capability.NewProbe(cdpPort, debugEndpoint, origin)
			snapshot, cdp, preflight := probe.Run(ctx)

			out := struct {
				Snapshot  *policy.Snapshot            `json:"snapshot"`
				CDP       *capability.CDPCheck        `json:"cdp"`
				Preflight *capability.PreflightCheck  `json:"preflight"`
				Bootstrap *capability.BootstrapReport `json:"bootstrap,omitempty"`
			}{Snapshot: snapshot, CDP: cdp, Preflight: preflight}

			if len(bootstrapCmd) > 0 {
				g, err := capability.NewGuardedBootstrap(bootstrapCmd, "")
				if err != nil {
					return err
				}
				report := g.Run(ctx)
				out.Bootstrap = report
				out.Snapshot.Bootstrap = report.Status
				if report.Status == policy.BootstrapFallback {
					out.Snapshot.CanInstrumentFromBrowser = false
				}
			}

			return printJSON(out)
		},
	}

	cmd.Flags().IntVar(&cdpPort, "cdp-port", 9222, "browser DevTools port")
	cmd.Flags().StringVar(&debugEndpoint, "debug-endpoint", "http://127.0.0.1:8765/debug", "debug ingestion endpoint")
	cmd.Flags().StringVar(&origin, "origin", "http://localhost:3000", "page origin for the preflight")
	cmd.Flags().StringArrayVar(&bootstrapCmd, "bootstrap", nil, "guarded bootstrap command argv (repeatable)")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the profiles configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if _, err := cfg.Profiles.BuildProfiles(); err != nil {
				return err
			}
			fmt.Println("profiles config valid")
			return nil
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [record.json]",
		Short: "Verify the hash and signature of an audit record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var record audit.Record
			if err := json.Unmarshal(data, &record); err != nil {
				return fmt.Errorf("invalid record: %w", err)
			}

			if err := record.Verify(); err != nil {
				return err
			}
			if record.Signature != nil {
				if err := audit.VerifySignature(cfg.KeyDir(), &record); err != nil {
					return err
				}
			}
			fmt.Println("record verified")
			return nil
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
