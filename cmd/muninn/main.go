// Package main provides the Muninn CLI entry point.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/orneryd/muninn/pkg/config"
	"github.com/orneryd/muninn/pkg/location"
	"github.com/orneryd/muninn/pkg/retrieval"
	"github.com/orneryd/muninn/pkg/store"
	"github.com/orneryd/muninn/pkg/temporal"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "muninn",
		Short: "Muninn - Cognitive Memory Retrieval Engine",
		Long: `Muninn is a local cognitive memory retrieval engine written in Go.

It ranks stored memories against a probe embedding using an activation model
derived from ACT-R and MINERVA 2:
  • Base-level activation (power-law decay over access history)
  • Cubed-similarity probe activation
  • Spreading activation over weighted associations
  • Emotional, project, session, and working-memory modulation
  • Episodic (temporal) spreading for narrative queries
  • Location intuitions (path familiarity and activity inference)`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Muninn v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(retrieveCmd())
	rootCmd.AddCommand(neighborsCmd())
	rootCmd.AddCommand(locationCmd())
	rootCmd.AddCommand(decayCmd())
	rootCmd.AddCommand(storeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// snapshotFile is the JSON shape accepted by `muninn retrieve --snapshot`.
// It mirrors retrieval.Input with a probe attached, so a host can dump its
// arrays and replay a query from the command line.
type snapshotFile struct {
	Probe        []float32          `json:"probe"`
	ProbeModel   string             `json:"probe_model,omitempty"`
	QueryProject string             `json:"query_project,omitempty"`
	NowMS        int64              `json:"now_ms,omitempty"`
	Input        retrieval.Input    `json:"input"`
	Episodes     []temporal.Episode `json:"episodes,omitempty"`
	SessionSet   []int              `json:"session_set,omitempty"`
}

func retrieveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Rank a snapshot's memories against a probe embedding",
		Long: `Load a JSON snapshot of memories (embeddings, histories, weights,
associations) and print the ranked candidates with their activation
components. The snapshot carries the probe; see the README for the format.`,
		RunE: runRetrieve,
	}
	cmd.Flags().String("snapshot", "", "Path to snapshot JSON (required)")
	cmd.Flags().String("config", "", "Path to muninn.yaml")
	cmd.Flags().Uint64("seed", 0, "Noise seed (0 = wall clock)")
	cmd.MarkFlagRequired("snapshot")
	return cmd
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	snapPath, _ := cmd.Flags().GetString("snapshot")
	cfgPath, _ := cmd.Flags().GetString("config")
	seed, _ := cmd.Flags().GetUint64("seed")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	snap, err := readSnapshot(snapPath)
	if err != nil {
		return err
	}

	in := snap.Input
	in.Probe = snap.Probe
	in.ProbeModel = snap.ProbeModel
	in.QueryProject = snap.QueryProject
	in.NowMS = snap.NowMS
	if in.NowMS == 0 {
		in.NowMS = time.Now().UnixMilli()
	}
	if len(snap.Episodes) > 0 || len(snap.SessionSet) > 0 {
		ctx := &temporal.Context{Episodes: snap.Episodes}
		if len(snap.SessionSet) > 0 {
			ctx.SessionSet = make(map[int]bool, len(snap.SessionSet))
			for _, i := range snap.SessionSet {
				ctx.SessionSet[i] = true
			}
		}
		in.Temporal = ctx
	}

	var engine *retrieval.Engine
	if seed != 0 {
		engine = retrieval.NewWithSeed(cfg.Retrieval(), seed)
	} else {
		engine = retrieval.New(cfg.Retrieval())
	}

	candidates, err := engine.Retrieve(cmd.Context(), &in)
	if err != nil {
		return err
	}

	return printJSON(candidates)
}

func neighborsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "neighbors",
		Short: "List temporal neighbors of an anchor memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapPath, _ := cmd.Flags().GetString("snapshot")
			anchor, _ := cmd.Flags().GetInt("anchor")
			dir, _ := cmd.Flags().GetString("direction")
			k, _ := cmd.Flags().GetInt("k")

			snap, err := readSnapshot(snapPath)
			if err != nil {
				return err
			}

			qd := temporal.After
			if dir == "before" {
				qd = temporal.Before
			}
			neighbors := temporal.Neighbors(snap.Episodes, anchor, qd, k, nil)
			return printJSON(neighbors)
		},
	}
	cmd.Flags().String("snapshot", "", "Path to snapshot JSON (required)")
	cmd.Flags().Int("anchor", 0, "Anchor memory index")
	cmd.Flags().String("direction", "after", "before or after")
	cmd.Flags().Int("k", 5, "Maximum neighbors")
	cmd.MarkFlagRequired("snapshot")
	return cmd
}

func locationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Location intuition utilities",
	}

	familiarity := &cobra.Command{
		Use:   "familiarity [access-count]",
		Short: "Compute familiarity for an access count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int64
			if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil {
				return fmt.Errorf("parsing access count %q: %w", args[0], err)
			}
			f := location.Familiarity(n, nil)
			fmt.Printf("familiarity=%.4f well_known=%v\n", f, location.IsWellKnown(f, nil))
			return nil
		},
	}

	infer := &cobra.Command{
		Use:   "infer [context-text]",
		Short: "Infer the current activity from context text and tool name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, _ := cmd.Flags().GetString("tool")
			explicit, _ := cmd.Flags().GetString("activity")
			text := ""
			if len(args) > 0 {
				text = args[0]
			}
			inf := location.InferActivity(text, tool, location.Activity(explicit))
			return printJSON(inf)
		},
	}
	infer.Flags().String("tool", "", "Tool name hint (Read, Grep, Glob, Edit, Write)")
	infer.Flags().String("activity", "", "Explicit activity override")

	cmd.AddCommand(familiarity, infer)
	return cmd
}

func decayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Apply familiarity decay to stale locations in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			project, _ := cmd.Flags().GetString("project")

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			passphrase := ""
			if cfg.Store.EncryptionEnabled {
				passphrase = cfg.Store.EncryptionPassphrase
			}
			st, err := store.Open(store.Options{
				DataDir:              cfg.Store.DataDir,
				EmbeddingModel:       cfg.Store.EmbeddingModel,
				EncryptionPassphrase: passphrase,
			})
			if err != nil {
				return err
			}
			defer st.Close()

			locs, err := st.AllLocations(project)
			if err != nil {
				return err
			}

			now := time.Now().UnixMilli()
			changed := location.DecayAll(locs, now, cfg.LocationDecay())
			for i := range locs {
				if err := st.PutLocation(&locs[i]); err != nil {
					return err
				}
			}
			fmt.Printf("decayed %d of %d locations\n", changed, len(locs))
			return nil
		},
	}
	cmd.Flags().String("config", "", "Path to muninn.yaml")
	cmd.Flags().String("project", "", "Limit to one project scope")
	return cmd
}

func storeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Import and export the backing store",
	}

	openFromConfig := func(cfgPath string) (*store.Store, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		passphrase := ""
		if cfg.Store.EncryptionEnabled {
			passphrase = cfg.Store.EncryptionPassphrase
		}
		return store.Open(store.Options{
			DataDir:              cfg.Store.DataDir,
			EmbeddingModel:       cfg.Store.EmbeddingModel,
			EncryptionPassphrase: passphrase,
		})
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Dump the entire store to a JSON interchange file",
		Long: `Walk every record class (memories, embeddings, histories, associations,
episodes, sessions, locations, visual memories) into one JSON document.
Sealed values are decrypted on the way out; handle the output accordingly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			outPath, _ := cmd.Flags().GetString("out")

			st, err := openFromConfig(cfgPath)
			if err != nil {
				return err
			}
			defer st.Close()

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer f.Close()

			if err := st.ExportJSON(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Printf("exported store to %s\n", outPath)
			return nil
		},
	}
	export.Flags().String("config", "", "Path to muninn.yaml")
	export.Flags().String("out", "muninn-export.json", "Output file")

	imp := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON interchange file into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			inPath, _ := cmd.Flags().GetString("in")

			st, err := openFromConfig(cfgPath)
			if err != nil {
				return err
			}
			defer st.Close()

			f, err := os.Open(inPath)
			if err != nil {
				return fmt.Errorf("opening import file: %w", err)
			}
			defer f.Close()

			if err := st.ImportJSON(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Printf("imported %s\n", inPath)
			return nil
		},
	}
	imp.Flags().String("config", "", "Path to muninn.yaml")
	imp.Flags().String("in", "muninn-export.json", "Input file")
	imp.MarkFlagRequired("in")

	cmd.AddCommand(export, imp)
	return cmd
}

func readSnapshot(path string) (*snapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &snap, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
