package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/models"
)

var (
	snapshotsLimit  int
	snapshotsFormat string
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List saved analysis snapshots",
	Long: `List snapshots saved with "cimpact analyze --save", newest first.

Examples:
  cimpact snapshots
  cimpact snapshots --limit 5 --format json`,
	Args: cobra.NoArgs,
	RunE: runSnapshots,
}

func init() {
	snapshotsCmd.Flags().IntVarP(&snapshotsLimit, "limit", "n", 20, "Maximum snapshots to list (0 = all)")
	snapshotsCmd.Flags().StringVarP(&snapshotsFormat, "format", "f", "text", "Output format: text, json or yaml")
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	snapshots, err := store.ListSnapshots(cmd.Context(), snapshotsLimit)
	if err != nil {
		return err
	}
	return writeSnapshots(cmd.OutOrStdout(), snapshots, snapshotsFormat)
}

func writeSnapshots(w io.Writer, snapshots []models.SnapshotMetadata, format string) error {
	if snapshots == nil {
		snapshots = []models.SnapshotMetadata{}
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshots)
	case "yaml":
		return yaml.NewEncoder(w).Encode(snapshots)
	case "", "text":
	default:
		return errors.ValidationErrorf("unknown output format %q", format)
	}

	if len(snapshots) == 0 {
		fmt.Fprintf(w, "No snapshots saved yet. Run: cimpact analyze <root> --save\n")
		return nil
	}
	fmt.Fprintf(w, "📦 %d snapshot(s)\n\n", len(snapshots))
	for _, s := range snapshots {
		fmt.Fprintf(w, "%s  %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "  Root: %s\n", s.Root)
		fmt.Fprintf(w, "  Entities: %d, relationships: %d (%d unresolved)\n",
			s.EntityCount, s.RelationshipCount, s.UnresolvedCount)
	}
	return nil
}
