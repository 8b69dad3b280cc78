package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/lineage/pkg/audit"
	"github.com/platinummonkey/lineage/pkg/config"
	"github.com/platinummonkey/lineage/pkg/observability"
)

// AuditOptions holds flags for the audit command
type AuditOptions struct {
	Dir         string
	MigrationID string
	EntityType  string
	Status      string
	Limit       int
}

// NewAuditCommand creates the audit command
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show migration audit events",
		Long: `Read migration audit events from the audit directory, oldest first,
including rotated files. The directory defaults to audit.dir from the
config file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "audit directory (overrides the config file)")
	cmd.Flags().StringVar(&opts.MigrationID, "migration-id", "", "only events of this migration")
	cmd.Flags().StringVar(&opts.EntityType, "entity-type", "", "only events of this entity type")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only events with this status (started|success|failure)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 for all)")

	return cmd
}

func runAudit(rootOpts *RootOptions, opts *AuditOptions, cmd *cobra.Command) error {
	out := newFormatter(rootOpts, cmd)

	dir := opts.Dir
	if dir == "" {
		cfg, err := config.NewLoader(rootOpts.ConfigFile, observability.DiscardLogger()).Load()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load configuration", err)
		}
		dir = cfg.Audit.Dir
	}
	if dir == "" {
		return NewExitError(ExitCommandError, "no audit directory: use --dir or set audit.dir in the config file")
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	events, err := audit.ReadDir(dir, audit.Filter{
		MigrationID: opts.MigrationID,
		EntityType:  opts.EntityType,
		Status:      audit.EventStatus(opts.Status),
	}, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit log", err)
	}

	return out.Result(auditView(events), true)
}

type auditView []*audit.Event

func (v auditView) WriteText(w io.Writer, verbose bool) {
	if len(v) == 0 {
		fmt.Fprintln(w, "no audit events")
		return
	}
	for _, e := range v {
		fmt.Fprintf(w, "%s %-18s %-8s %s %s %s -> %s",
			e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.EventType, e.Status,
			e.MigrationID, e.EntityType, e.FromVersion, e.ToVersion)
		if e.EntityID != "" {
			fmt.Fprintf(w, " [%s]", e.EntityID)
		}
		if e.ErrorMessage != "" {
			fmt.Fprintf(w, ": %s", e.ErrorMessage)
		}
		fmt.Fprintln(w)
		if verbose && e.Message != "" {
			fmt.Fprintf(w, "    %s\n", e.Message)
		}
	}
}
