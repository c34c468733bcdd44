package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sessionarc/sessionarc/pkg/roster"
)

// NewRosterCommand creates the 'roster' command group.
func NewRosterCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Inspect the coach and student roster",
	}

	cmd.AddCommand(newRosterShowCommand(deps))
	cmd.AddCommand(newRosterCheckCommand(deps))

	return cmd
}

func newRosterShowCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved roster",
		Long: `Show the coaches, student alias table, and staff settings the resolver
is running with, after the student table and config overrides are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRosterShow(deps)
		},
	}
}

func runRosterShow(deps *Deps) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()

	ros := buildRoster(cfg, logger)

	fmt.Println("Coaches:")
	for _, c := range roster.DefaultCoaches() {
		aliases := ""
		if len(c.Aliases) > 0 {
			aliases = fmt.Sprintf(" (aka %s)", strings.Join(c.Aliases, ", "))
		}
		fmt.Printf("  • %s%s\n", c.FullName, aliases)
	}

	fmt.Printf("\nStudent aliases: %d\n", ros.StudentCount())
	if cfg.Roster.StudentTablePath != "" {
		fmt.Printf("Student table:   %s\n", cfg.Roster.StudentTablePath)
	} else {
		fmt.Println("Student table:   (embedded)")
	}

	fmt.Printf("Program lead:    %s\n", valueOrDefault(ros.ProgramLead(), "(default)"))

	if len(cfg.Roster.StaffDomains) > 0 {
		fmt.Printf("Staff domains:   %s\n", strings.Join(cfg.Roster.StaffDomains, ", "))
	} else {
		fmt.Println("Staff domains:   (default)")
	}
	if len(cfg.Roster.AdminAccounts) > 0 {
		fmt.Printf("Admin accounts:  %s\n", strings.Join(cfg.Roster.AdminAccounts, ", "))
	}

	return nil
}

func newRosterCheckCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "check <name-or-email>",
		Short: "Check how a name or email resolves against the roster",
		Long: `Check whether a name or email resolves to a coach or a student.

Examples:
  sessionarc roster check "Jenny D"
  sessionarc roster check huda
  sessionarc roster check jenny@ascendprep.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRosterCheck(deps, args[0])
		},
	}
}

func runRosterCheck(deps *Deps, query string) error {
	cfg, err := deps.ensureConfig()
	if err != nil {
		return err
	}
	logger := deps.logger()

	ros := buildRoster(cfg, logger)

	matched := false

	if strings.Contains(query, "@") {
		if coach, ok := ros.CoachByEmail(query); ok {
			fmt.Printf("\033[32m✓\033[0m Coach email: %s\n", coach)
			matched = true
		}
		if ros.IsStaffEmail(query) {
			fmt.Printf("\033[32m✓\033[0m Staff domain email\n")
			matched = true
		}
	} else {
		if coach, ok := ros.CoachByAlias(query); ok {
			fmt.Printf("\033[32m✓\033[0m Coach: %s\n", coach)
			matched = true
		}
		if student, ok := ros.StudentByAlias(query); ok {
			fmt.Printf("\033[32m✓\033[0m Student: %s\n", student)
			matched = true
		}
		if ros.IsAdminAccount(query) {
			fmt.Printf("\033[33m!\033[0m Admin account\n")
			matched = true
		}
	}

	if !matched {
		fmt.Printf("\033[33m✗\033[0m No roster match for %q\n", query)
	}

	return nil
}
