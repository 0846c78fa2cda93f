// Package main is the entry point for the stablearp CLI
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/james-see/stablearp/pkg/api"
	"github.com/james-see/stablearp/pkg/arp"
	"github.com/james-see/stablearp/pkg/config"
	"github.com/james-see/stablearp/pkg/converter"
	"github.com/james-see/stablearp/pkg/debug"
	"github.com/james-see/stablearp/pkg/params"
	"github.com/james-see/stablearp/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgPath   string
	debugMode bool
	algorithm string
	seed      int64
	direction string
	zigzag    bool
	speed     string
	tempo     float64

	renderOutput  string
	convertOutput string
	steps         int
	start         float64
	gate          float64
	numbers       bool
	jobs          int
	serverPort    int
	saveConfig    bool

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stablearp",
	Short: "Deterministic arpeggiator",
	Long: `stablearp arpeggiates held chords. The random algorithm is keyed on the
timeline position, so the same seed and slot always give the same note.

Examples:
  stablearp arp C4 E4 G4 --steps 8
  stablearp arp 60,64,67 --algorithm linear --zigzag
  stablearp render C3 Eb3 G3 Bb3 -o arp.mid --seed 42
  stablearp convert chords.mid pads.mid --speed 1/8
  stablearp tui
  stablearp serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { debug.Disable() },
	SilenceUsage:      true,
}

var arpCmd = &cobra.Command{
	Use:   "arp <notes...>",
	Short: "Print the note sequence for a held chord",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runArp,
}

var renderCmd = &cobra.Command{
	Use:   "render <notes...>",
	Short: "Render a held chord to a MIDI file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRender,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input.mid...>",
	Short: "Arpeggiate the chords held in MIDI files",
	Long:  `Arpeggiates every input file concurrently. Each result is written next to its input as <name>.arp.mid unless -o is given for a single input.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConvert,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the live arpeggiator terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE:  runConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "Config file (default ~/.config/stablearp/config.yaml)")
	pf.BoolVar(&debugMode, "debug", false, "Write a debug log")
	pf.StringVarP(&algorithm, "algorithm", "a", "random", "Algorithm (linear, random)")
	pf.Int64Var(&seed, "seed", 0, "Random seed")
	pf.StringVar(&direction, "direction", "up", "Linear direction (up, down)")
	pf.BoolVar(&zigzag, "zigzag", false, "Linear: bounce at the ends")
	pf.StringVar(&speed, "speed", "1/16", "Step length (1/16, 1/8, 1/4, 1/2)")
	pf.Float64Var(&tempo, "tempo", 120, "Tempo in BPM")

	arpCmd.Flags().IntVarP(&steps, "steps", "n", 16, "Number of slots")
	arpCmd.Flags().Float64Var(&start, "start", 0, "First slot")
	arpCmd.Flags().BoolVar(&numbers, "numbers", false, "Print MIDI numbers instead of names")

	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "arp.mid", "Output .mid file path")
	renderCmd.Flags().IntVarP(&steps, "steps", "n", 16, "Number of slots")
	renderCmd.Flags().Float64Var(&start, "start", 0, "First slot")
	renderCmd.Flags().Float64Var(&gate, "gate", 0.75, "Fraction of a step each note sounds")

	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output file path (single input only)")
	convertCmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "Files converted at once")
	convertCmd.Flags().Float64Var(&gate, "gate", 0.75, "Fraction of a step each note sounds")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from config, 8080)")

	configCmd.Flags().BoolVar(&saveConfig, "save", false, "Write the effective configuration to the config file")

	rootCmd.AddCommand(arpCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads the config file and lays explicitly set flags over it
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("algorithm") {
		c.Algorithm = algorithm
	}
	if flags.Changed("seed") {
		c.Seed = seed
	}
	if flags.Changed("direction") {
		c.Direction = direction
	}
	if flags.Changed("zigzag") {
		c.Zigzag = zigzag
	}
	if flags.Changed("speed") {
		c.Speed = speed
	}
	if flags.Changed("tempo") {
		c.Tempo = tempo
	}
	if flags.Changed("debug") {
		c.Debug = debugMode
	}
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Debug {
		path := c.DebugLog
		if path == "" {
			path = debug.DefaultPath()
		}
		if err := debug.Enable(path); err != nil {
			return fmt.Errorf("failed to open debug log: %w", err)
		}
	}

	cfg = c
	return nil
}

func newParameters() (*params.Parameters, error) {
	p := params.New()
	if err := cfg.Apply(p); err != nil {
		return nil, err
	}
	return p, nil
}

func runArp(cmd *cobra.Command, args []string) error {
	notes, err := arp.ParseNotes(args)
	if err != nil {
		return err
	}
	p, err := newParameters()
	if err != nil {
		return err
	}

	pattern, err := converter.New(p).RenderChord(notes, start, steps)
	if err != nil {
		return err
	}

	out := make([]string, len(pattern.Steps))
	for i, n := range pattern.Notes() {
		if numbers {
			out[i] = fmt.Sprintf("%d", n)
		} else {
			out[i] = arp.NoteName(n)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out, " "))
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	notes, err := arp.ParseNotes(args)
	if err != nil {
		return err
	}
	p, err := newParameters()
	if err != nil {
		return err
	}

	conv := converter.New(p)
	conv.SetTempo(cfg.Tempo)
	conv.MIDI().SetGate(gate)

	pattern, err := conv.RenderChord(notes, start, steps)
	if err != nil {
		return err
	}
	if err := conv.MIDI().WriteMIDIFile(pattern, renderOutput); err != nil {
		return err
	}

	fmt.Printf("Rendered %d steps of %v -> %s\n", steps, notes, renderOutput)
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	if convertOutput != "" && len(args) > 1 {
		return fmt.Errorf("-o can only be used with a single input")
	}
	p, err := newParameters()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(jobs, 1))

	for _, input := range args {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			output := convertOutput
			if output == "" {
				output = converter.OutputPath(input)
			}

			conv := converter.New(p)
			conv.MIDI().SetGate(gate)
			if err := conv.ConvertFile(input, output); err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			fmt.Printf("Converted %s -> %s\n", input, output)
			return nil
		})
	}
	return g.Wait()
}

func runTUI(cmd *cobra.Command, args []string) error {
	p, err := newParameters()
	if err != nil {
		return err
	}
	return tui.Run(p, cfg.Tempo)
}

func runServe(cmd *cobra.Command, args []string) error {
	port := cfg.Port
	if serverPort != 0 {
		port = serverPort
	}
	fmt.Printf("Starting API server on port %d...\n", port)
	return api.StartServer(port)
}

func runConfig(cmd *cobra.Command, args []string) error {
	if saveConfig {
		path := cfgPath
		if path == "" {
			p, err := config.Path()
			if err != nil {
				return err
			}
			path = p
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
