package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/platinummonkey/lineage/pkg/audit"
	"github.com/platinummonkey/lineage/pkg/checker"
	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/hooks"
	"github.com/platinummonkey/lineage/pkg/migration"
	"github.com/platinummonkey/lineage/pkg/version"
)

// The view types below flatten domain results into JSON friendly shapes and
// render them as text.

type changeView struct {
	Rule        string `json:"rule"`
	Type        string `json:"type"`
	Impact      string `json:"impact"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description"`
	Mitigation  string `json:"mitigation,omitempty"`
}

func newChangeViews(changes []compatibility.BreakingChange) []changeView {
	out := make([]changeView, 0, len(changes))
	for _, c := range changes {
		out = append(out, changeView{
			Rule:        c.Rule,
			Type:        string(c.ChangeType),
			Impact:      c.Impact.String(),
			Location:    c.Location,
			Description: c.Description,
			Mitigation:  c.Mitigation,
		})
	}
	return out
}

type workItemView struct {
	Order       int    `json:"order"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Effort      string `json:"effort"`
	Automated   bool   `json:"automated"`
}

type hopView struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	Type            string   `json:"type"`
	Effort          string   `json:"effort"`
	Risk            string   `json:"risk"`
	Cost            int      `json:"cost"`
	RequiredActions []string `json:"required_actions,omitempty"`
}

type pathView struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Valid     bool      `json:"valid"`
	Reason    string    `json:"reason,omitempty"`
	Direct    bool      `json:"direct"`
	TotalCost int       `json:"total_cost"`
	TotalRisk string    `json:"total_risk"`
	Duration  string    `json:"estimated_duration,omitempty"`
	Hops      []hopView `json:"steps,omitempty"`
}

func newPathView(p *migration.Path) *pathView {
	if p == nil {
		return nil
	}
	view := &pathView{
		From:      p.From.String(),
		To:        p.To.String(),
		Valid:     p.Valid,
		Reason:    p.Reason,
		Direct:    p.IsDirect,
		TotalCost: p.TotalCost,
		TotalRisk: p.TotalRisk.String(),
	}
	if p.EstimatedDuration > 0 {
		view.Duration = p.EstimatedDuration.String()
	}
	for _, s := range p.Steps {
		view.Hops = append(view.Hops, hopView{
			From:            s.From.String(),
			To:              s.To.String(),
			Type:            string(s.Type),
			Effort:          s.Effort.String(),
			Risk:            s.Risk.String(),
			Cost:            s.Cost,
			RequiredActions: s.RequiredActions,
		})
	}
	return view
}

func (p *pathView) route() string {
	if !p.Valid {
		return "no path: " + p.Reason
	}
	parts := []string{p.From}
	for _, h := range p.Hops {
		parts = append(parts, h.To)
	}
	return strings.Join(parts, " -> ")
}

func (p *pathView) writeText(w io.Writer, indent string, verbose bool) {
	fmt.Fprintf(w, "%s%s (cost %d, risk %s", indent, p.route(), p.TotalCost, p.TotalRisk)
	if p.Duration != "" {
		fmt.Fprintf(w, ", ~%s", p.Duration)
	}
	fmt.Fprintln(w, ")")
	if !verbose {
		return
	}
	for _, h := range p.Hops {
		fmt.Fprintf(w, "%s  %s -> %s %s effort=%s risk=%s\n", indent, h.From, h.To, h.Type, h.Effort, h.Risk)
		for _, action := range h.RequiredActions {
			fmt.Fprintf(w, "%s    - %s\n", indent, action)
		}
	}
}

type checkView struct {
	EntityType      string         `json:"entity_type"`
	From            string         `json:"from"`
	To              string         `json:"to"`
	Success         bool           `json:"success"`
	Compatible      bool           `json:"compatible"`
	Level           string         `json:"level"`
	Reason          string         `json:"reason,omitempty"`
	BreakingChanges []changeView   `json:"breaking_changes,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	MigrationSteps  []workItemView `json:"migration_steps,omitempty"`
	MigrationPath   *pathView      `json:"migration_path,omitempty"`
	Cached          bool           `json:"cached,omitempty"`
	DurationMS      int64          `json:"duration_ms"`
}

func newCheckView(r *checker.CheckResult) *checkView {
	view := &checkView{
		EntityType:      r.EntityType,
		From:            r.From.String(),
		To:              r.To.String(),
		Success:         r.Success,
		Compatible:      r.IsCompatible,
		Level:           r.Level.String(),
		Reason:          r.Reason,
		BreakingChanges: newChangeViews(r.BreakingChanges),
		MigrationPath:   newPathView(r.MigrationPath),
		Cached:          r.Cached,
		DurationMS:      r.Duration.Milliseconds(),
	}
	for _, w := range r.Warnings {
		view.Warnings = append(view.Warnings, w.Message)
	}
	for _, s := range r.MigrationSteps {
		view.MigrationSteps = append(view.MigrationSteps, workItemView{
			Order:       s.Order,
			Type:        string(s.ChangeType),
			Description: s.Description,
			Impact:      s.MaxImpact.String(),
			Effort:      s.Effort.String(),
			Automated:   s.Automated,
		})
	}
	return view
}

func (v *checkView) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "%s %s -> %s: %s\n", v.EntityType, v.From, v.To, v.Level)
	if !v.Success {
		fmt.Fprintf(w, "  check failed: %s\n", v.Reason)
		return
	}
	if v.Reason != "" {
		fmt.Fprintf(w, "  %s\n", v.Reason)
	}

	if len(v.BreakingChanges) > 0 {
		fmt.Fprintf(w, "\nBreaking changes (%d):\n", len(v.BreakingChanges))
		for _, c := range v.BreakingChanges {
			fmt.Fprintf(w, "  [%s] %s: %s\n", c.Impact, c.Type, c.Description)
			if verbose && c.Mitigation != "" {
				fmt.Fprintf(w, "      mitigation: %s\n", c.Mitigation)
			}
		}
	}

	if len(v.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(v.Warnings))
		for _, msg := range v.Warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}

	if len(v.MigrationSteps) > 0 {
		fmt.Fprintln(w, "\nMigration steps:")
		for _, s := range v.MigrationSteps {
			auto := ""
			if s.Automated {
				auto = ", automated"
			}
			fmt.Fprintf(w, "  %d. %s (effort %s%s)\n", s.Order, s.Description, s.Effort, auto)
		}
	}

	if v.MigrationPath != nil {
		fmt.Fprintln(w, "\nMigration path:")
		v.MigrationPath.writeText(w, "  ", verbose)
	}
}

type matrixEntryView struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Success    bool   `json:"success"`
	Compatible bool   `json:"compatible"`
	Level      string `json:"level"`
}

type matrixView struct {
	EntityType           string            `json:"entity_type"`
	Versions             []string          `json:"versions"`
	TotalPairs           int               `json:"total_pairs"`
	CompatiblePairs      int               `json:"compatible_pairs"`
	CompatiblePercentage float64           `json:"compatible_percentage"`
	Entries              []matrixEntryView `json:"entries"`
	DurationMS           int64             `json:"duration_ms"`
}

func newMatrixView(m *checker.Matrix) *matrixView {
	view := &matrixView{
		EntityType:           m.EntityType,
		Versions:             versionStrings(m.Versions),
		TotalPairs:           m.TotalPairs(),
		CompatiblePairs:      m.CompatiblePairs(),
		CompatiblePercentage: m.CompatiblePercentage(),
		Entries:              make([]matrixEntryView, 0, len(m.Entries)),
		DurationMS:           m.Duration.Milliseconds(),
	}
	for _, e := range m.Entries {
		view.Entries = append(view.Entries, matrixEntryView{
			From:       e.From.String(),
			To:         e.To.String(),
			Success:    e.Result.Success,
			Compatible: e.Result.Success && e.Result.IsCompatible,
			Level:      e.Result.Level.String(),
		})
	}
	return view
}

func (v *matrixView) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "%s: %d versions, %d/%d pairs compatible (%.1f%%)\n",
		v.EntityType, len(v.Versions), v.CompatiblePairs, v.TotalPairs, v.CompatiblePercentage)
	for _, e := range v.Entries {
		mark := "✓"
		if !e.Compatible {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %s -> %s %s\n", mark, e.From, e.To, e.Level)
	}
}

type recommendationView struct {
	Target         string     `json:"target"`
	Recommendation string     `json:"recommendation"`
	Risk           string     `json:"risk"`
	Effort         string     `json:"effort"`
	Reason         string     `json:"reason"`
	Level          string     `json:"level"`
	Paths          []pathView `json:"paths,omitempty"`
}

type recommendationsView struct {
	EntityType      string               `json:"entity_type"`
	Current         string               `json:"current"`
	Recommendations []recommendationView `json:"recommendations"`
}

func newRecommendationsView(entityType string, current version.Version, recs []*checker.UpgradeRecommendation) *recommendationsView {
	view := &recommendationsView{
		EntityType:      entityType,
		Current:         current.String(),
		Recommendations: make([]recommendationView, 0, len(recs)),
	}
	for _, r := range recs {
		rv := recommendationView{
			Target:         r.Target.String(),
			Recommendation: r.Recommendation.String(),
			Risk:           r.Risk.String(),
			Effort:         r.Effort.String(),
			Reason:         r.Reason,
		}
		if r.Check != nil {
			rv.Level = r.Check.Level.String()
		}
		for _, p := range r.Paths {
			rv.Paths = append(rv.Paths, *newPathView(p))
		}
		view.Recommendations = append(view.Recommendations, rv)
	}
	return view
}

func (v *recommendationsView) WriteText(w io.Writer, verbose bool) {
	if len(v.Recommendations) == 0 {
		fmt.Fprintf(w, "%s %s is the latest version\n", v.EntityType, v.Current)
		return
	}
	fmt.Fprintf(w, "Upgrades for %s from %s:\n", v.EntityType, v.Current)
	for _, r := range v.Recommendations {
		fmt.Fprintf(w, "  %s  %s (risk %s, effort %s)\n", r.Target, r.Recommendation, r.Risk, r.Effort)
		if r.Reason != "" {
			fmt.Fprintf(w, "    %s\n", r.Reason)
		}
		if verbose {
			for i := range r.Paths {
				r.Paths[i].writeText(w, "    ", false)
			}
		}
	}
}

type issueView struct {
	Severity  string `json:"severity"`
	Blocking  bool   `json:"blocking"`
	Direction string `json:"direction"`
	Version   string `json:"version"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

type deployView struct {
	EntityType string      `json:"entity_type"`
	NewVersion string      `json:"new_version"`
	CanDeploy  bool        `json:"can_deploy"`
	Strategy   string      `json:"strategy"`
	Issues     []issueView `json:"issues,omitempty"`
}

func newDeployView(r *checker.DeploymentResult) *deployView {
	view := &deployView{
		EntityType: r.EntityType,
		NewVersion: r.NewVersion.String(),
		CanDeploy:  r.CanDeploy,
		Strategy:   string(r.Strategy),
	}
	for _, issue := range r.Issues {
		view.Issues = append(view.Issues, issueView{
			Severity:  string(issue.Severity),
			Blocking:  issue.Blocking,
			Direction: string(issue.Direction),
			Version:   issue.Version.String(),
			Level:     issue.Level.String(),
			Message:   issue.Message,
		})
	}
	return view
}

func (v *deployView) WriteText(w io.Writer, verbose bool) {
	verdict := "can be deployed"
	if !v.CanDeploy {
		verdict = "cannot be deployed"
	}
	fmt.Fprintf(w, "%s %s %s (strategy: %s)\n", v.EntityType, v.NewVersion, verdict, v.Strategy)
	for _, issue := range v.Issues {
		blocking := ""
		if issue.Blocking {
			blocking = " blocking"
		}
		fmt.Fprintf(w, "  [%s%s] %s\n", issue.Severity, blocking, issue.Message)
	}
}

type pathsView struct {
	EntityType string     `json:"entity_type"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Paths      []pathView `json:"paths"`
}

func newPathsView(entityType string, from, to version.Version, paths []*migration.Path) *pathsView {
	view := &pathsView{
		EntityType: entityType,
		From:       from.String(),
		To:         to.String(),
		Paths:      make([]pathView, 0, len(paths)),
	}
	for _, p := range paths {
		view.Paths = append(view.Paths, *newPathView(p))
	}
	return view
}

func (v *pathsView) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "Migration paths for %s %s -> %s:\n", v.EntityType, v.From, v.To)
	for i := range v.Paths {
		fmt.Fprintf(w, "  %d. ", i+1)
		v.Paths[i].writeText(w, "", verbose)
	}
}

type outcomeView struct {
	CanFire     bool   `json:"can_fire"`
	TargetState string `json:"target_state,omitempty"`
	Guard       string `json:"guard,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type shadowView struct {
	EntityType string      `json:"entity_type"`
	Current    string      `json:"current"`
	Target     string      `json:"target"`
	State      string      `json:"state"`
	Trigger    string      `json:"trigger"`
	Success    bool        `json:"success"`
	Reason     string      `json:"reason,omitempty"`
	Diverges   bool        `json:"diverges"`
	CurrentRun outcomeView `json:"current_outcome"`
	TargetRun  outcomeView `json:"target_outcome"`
}

func newShadowView(r *checker.ShadowResult) *shadowView {
	return &shadowView{
		EntityType: r.EntityType,
		Current:    r.Current.String(),
		Target:     r.Target.String(),
		State:      r.State,
		Trigger:    r.Trigger,
		Success:    r.Success,
		Reason:     r.Reason,
		Diverges:   r.Diverges,
		CurrentRun: outcomeView(r.CurrentOutcome),
		TargetRun:  outcomeView(r.TargetOutcome),
	}
}

func (o outcomeView) describe() string {
	if o.CanFire {
		return "fires -> " + o.TargetState
	}
	return "does not fire (" + o.Reason + ")"
}

func (v *shadowView) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "%s: %s in state %s\n", v.EntityType, v.Trigger, v.State)
	if !v.Success {
		fmt.Fprintf(w, "  evaluation failed: %s\n", v.Reason)
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", v.Current, v.CurrentRun.describe())
	fmt.Fprintf(w, "  %s: %s\n", v.Target, v.TargetRun.describe())
	if v.Diverges {
		fmt.Fprintf(w, "  diverges: %s\n", v.Reason)
	} else {
		fmt.Fprintln(w, "  no divergence")
	}
}

type migrationView struct {
	MigrationID      string                 `json:"migration_id"`
	EntityType       string                 `json:"entity_type"`
	EntityID         string                 `json:"entity_id,omitempty"`
	From             string                 `json:"from"`
	To               string                 `json:"to"`
	Status           string                 `json:"status"`
	Success          bool                   `json:"success"`
	Reason           string                 `json:"reason,omitempty"`
	VetoedBy         string                 `json:"vetoed_by,omitempty"`
	Transitions      []string               `json:"transitions"`
	ExecutedHooks    []string               `json:"executed_hooks"`
	Warnings         []string               `json:"warnings,omitempty"`
	AfterFailures    []string               `json:"after_failures,omitempty"`
	RollbackFailures []string               `json:"rollback_failures,omitempty"`
	State            map[string]interface{} `json:"state"`
	Audit            []*audit.Event         `json:"audit,omitempty"`
}

func newMigrationView(mc *hooks.MigrationContext, r *hooks.MigrationResult, events []*audit.Event) *migrationView {
	view := &migrationView{
		MigrationID:   r.MigrationID,
		EntityType:    mc.EntityType,
		EntityID:      mc.EntityID,
		From:          mc.From.String(),
		To:            mc.To.String(),
		Status:        string(r.Status),
		Success:       r.Success,
		Reason:        r.Reason,
		VetoedBy:      r.VetoedBy,
		ExecutedHooks: mc.ExecutedHooks,
		Warnings:      mc.Warnings,
		State:         mc.State,
		Audit:         events,
	}
	for _, s := range r.Transitions {
		view.Transitions = append(view.Transitions, string(s))
	}
	for _, f := range r.AfterFailures {
		view.AfterFailures = append(view.AfterFailures, fmt.Sprintf("%s (%s): %v", f.Hook, f.Phase, f.Err))
	}
	for _, f := range r.RollbackFailures {
		view.RollbackFailures = append(view.RollbackFailures, fmt.Sprintf("%s (%s): %v", f.Hook, f.Phase, f.Err))
	}
	return view
}

func (v *migrationView) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "Migration %s of %s %s -> %s: %s\n", v.MigrationID, v.EntityType, v.From, v.To, v.Status)
	if v.Reason != "" {
		fmt.Fprintf(w, "  %s\n", v.Reason)
	}
	if v.VetoedBy != "" {
		fmt.Fprintf(w, "  vetoed by %s\n", v.VetoedBy)
	}
	for _, msg := range v.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}
	for _, msg := range v.AfterFailures {
		fmt.Fprintf(w, "  after hook failed: %s\n", msg)
	}
	for _, msg := range v.RollbackFailures {
		fmt.Fprintf(w, "  rollback hook failed: %s\n", msg)
	}
	if verbose {
		fmt.Fprintf(w, "  transitions: %s\n", strings.Join(v.Transitions, " -> "))
		fmt.Fprintf(w, "  hooks: %s\n", strings.Join(v.ExecutedHooks, ", "))
		for _, e := range v.Audit {
			fmt.Fprintf(w, "  audit: %s %s\n", e.EventType, e.Status)
		}
	}
}

func versionStrings(vs []version.Version) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.String())
	}
	return out
}
