package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/conceptchart/internal/config"
	"github.com/ehr/conceptchart/internal/domain/hierarchy"
	"github.com/ehr/conceptchart/internal/platform/fhir"
)

type flattenOptions struct {
	HierarchyPath string
	EventsPath    string
	RootConcept   string
	Format        string
	OutPath       string
	Lookup        bool
}

func flattenCmd() *cobra.Command {
	var opts flattenOptions
	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Build a count-annotated tree from local files",
		Long: `Flatten reads a partial concept hierarchy (a JSON array of
{code, term, parents} records) and clinical resources (a FHIR Bundle, an
NDJSON file, or a directory of either) and writes the flat node list.

Without a readable hierarchy file the single-level fallback is written,
unless --lookup asks the configured terminology server for it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("root") {
				opts.RootConcept = cfg.RootConcept
			}
			logger := newLogger(cfg).Output(zerolog.ConsoleWriter{Out: os.Stderr})

			var source hierarchy.HierarchySource
			if opts.Lookup {
				if source = newHierarchySource(cfg); source == nil {
					return fmt.Errorf("--lookup requires HIERARCHY_SERVER_URL")
				}
			}

			out := cmd.OutOrStdout()
			if opts.OutPath != "" {
				f, err := os.Create(opts.OutPath)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			return runFlatten(cmd.Context(), opts, source, out, logger)
		},
	}

	cmd.Flags().StringVar(&opts.HierarchyPath, "hierarchy", "", "Partial hierarchy JSON file")
	cmd.Flags().StringVar(&opts.EventsPath, "events", "", "FHIR Bundle, NDJSON file, or directory of them")
	cmd.Flags().StringVar(&opts.RootConcept, "root", hierarchy.DefaultRootConcept, "Top-level concept code")
	cmd.Flags().StringVar(&opts.Format, "format", hierarchy.FormatJSON, "Output format: json, ndjson or parquet")
	cmd.Flags().StringVar(&opts.OutPath, "out", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&opts.Lookup, "lookup", false, "Fetch the hierarchy from HIERARCHY_SERVER_URL when no file is given")
	_ = cmd.MarkFlagRequired("events")

	return cmd
}

// runFlatten builds the tree for opts and writes it to out. source is only
// consulted when no hierarchy file could be read and may be nil.
func runFlatten(ctx context.Context, opts flattenOptions, source hierarchy.HierarchySource, out io.Writer, logger zerolog.Logger) error {
	switch opts.Format {
	case hierarchy.FormatJSON, hierarchy.FormatNDJSON, hierarchy.FormatParquet:
	default:
		return fmt.Errorf("unsupported format %q", opts.Format)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	resources, err := loadResources(opts.EventsPath)
	if err != nil {
		return err
	}
	events := resources.Events()
	engine := hierarchy.NewEngine(opts.RootConcept, logger)

	var result *hierarchy.Result
	records, err := loadRecords(opts.HierarchyPath)
	switch {
	case err == nil:
		result = engine.Build(records, events)
	case source != nil:
		result = hierarchy.NewService(nil, source, nil, engine, logger).ForEvents(ctx, events)
	default:
		logger.Warn().Err(err).Msg("hierarchy unavailable, writing single-level fallback")
		result = engine.Fallback(events)
	}

	logger.Info().
		Int("resources", resources.Len()).
		Int("events", len(events)).
		Int("nodes", len(result.Nodes)).
		Int("cycles", len(result.Cycles)).
		Bool("fallback", result.Fallback).
		Msg("flattened")

	return hierarchy.WriteNodes(out, opts.Format, result.Nodes)
}

// loadRecords reads a JSON array of concept records.
func loadRecords(path string) ([]hierarchy.ConceptRecord, error) {
	if path == "" {
		return nil, fmt.Errorf("no hierarchy file given")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hierarchy: %w", err)
	}
	var records []hierarchy.ConceptRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode hierarchy %s: %w", path, err)
	}
	if records == nil {
		records = []hierarchy.ConceptRecord{}
	}
	return records, nil
}

// loadResources reads clinical resources from a file or from every .json and
// .ndjson file of a directory, in name order.
func loadResources(path string) (hierarchy.ClinicalResources, error) {
	var out hierarchy.ClinicalResources
	info, err := os.Stat(path)
	if err != nil {
		return out, fmt.Errorf("stat events: %w", err)
	}
	if !info.IsDir() {
		return loadResourceFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return out, fmt.Errorf("read events directory: %w", err)
	}
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".json" && ext != ".ndjson") {
			continue
		}
		rs, err := loadResourceFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return out, err
		}
		out.Merge(rs)
	}
	return out, nil
}

func loadResourceFile(path string) (hierarchy.ClinicalResources, error) {
	var out hierarchy.ClinicalResources
	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".ndjson") {
		out, err = hierarchy.ReadNDJSON(bytes.NewReader(data))
		if err != nil {
			return out, fmt.Errorf("%s: %w", path, err)
		}
		return out, nil
	}

	var header fhir.ResourceHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return out, fmt.Errorf("%s: %w", path, err)
	}
	if header.ResourceType != "Bundle" {
		if err := out.Add(data); err != nil {
			return out, fmt.Errorf("%s: %w", path, err)
		}
		return out, nil
	}

	bundle, err := fhir.DecodeBundle(bytes.NewReader(data))
	if err != nil {
		return out, fmt.Errorf("%s: %w", path, err)
	}
	out, err = hierarchy.SplitBundle(bundle)
	if err != nil {
		return out, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
