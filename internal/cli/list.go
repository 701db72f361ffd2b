package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/filter"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/theme"
	"github.com/nhle/pmsterm/internal/ui/forms"
	"github.com/nhle/pmsterm/internal/ui/reports"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List boards you can see",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(ctx context.Context, e *env) error {
			_, client, err := e.authed(ctx)
			if err != nil {
				return err
			}
			boards, err := client.ListBoards(ctx)
			if err != nil {
				return err
			}
			return printBoards(cmd.OutOrStdout(), boards)
		})
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks grouped by board",
	Long: `List tasks grouped by board.

Without --user or --status the command lists your own tasks. Filters are
applied locally, in the same way as the reports view.`,
	RunE: runTasks,
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "List goals for a month",
	RunE:  runGoals,
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	RunE:  runUsers,
}

// presetAliases maps the short flag values to date presets.
var presetAliases = map[string]string{
	"today":     filter.PresetToday,
	"yesterday": filter.PresetYesterday,
	"7d":        filter.PresetLast7Days,
	"30d":       filter.PresetLast30Days,
}

func init() {
	addTaskFlags(tasksCmd)

	goalsCmd.Flags().String("month", "", "month as YYYY-MM (default current month)")
	goalsCmd.Flags().String("department", "", "department code")

	usersCmd.Flags().String("search", "", "substring of username or email")
	usersCmd.Flags().String("department", "", "department code")
}

func addTaskFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("user", "", "list tasks of this username, email or id")
	f.String("status", "", "list tasks in this status (pending, in-progress, completed)")
	f.String("board", "", "only tasks on this board title")
	f.String("search", "", "substring of title, description or board")
	f.String("due", "", "due-date preset: today, yesterday, 7d, 30d")
	f.String("from", "", "due on or after this date (YYYY-MM-DD)")
	f.String("to", "", "due on or before this date (YYYY-MM-DD)")
	f.Bool("done", false, "only completed tasks")
	f.Bool("open", false, "only tasks not yet completed")
	cmd.MarkFlagsMutuallyExclusive("done", "open")
	cmd.MarkFlagsMutuallyExclusive("user", "status")
}

// taskFilters turns the tasks flags into report bindings.
func taskFilters(cmd *cobra.Command) (*forms.ReportBindings, error) {
	f := cmd.Flags()
	b := &forms.ReportBindings{}
	b.Query, _ = f.GetString("search")
	b.Board, _ = f.GetString("board")
	b.From, _ = f.GetString("from")
	b.To, _ = f.GetString("to")

	if due, _ := f.GetString("due"); due != "" {
		preset, ok := presetAliases[strings.ToLower(due)]
		if !ok {
			return nil, fmt.Errorf("unknown --due value %q", due)
		}
		b.Preset = preset
	}
	if done, _ := f.GetBool("done"); done {
		b.Completion = filter.CompletionDone
	}
	if open, _ := f.GetBool("open"); open {
		b.Completion = filter.CompletionOpen
	}
	return b, nil
}

func runTasks(cmd *cobra.Command, args []string) error {
	b, err := taskFilters(cmd)
	if err != nil {
		return err
	}
	user, _ := cmd.Flags().GetString("user")
	status, _ := cmd.Flags().GetString("status")
	if status != "" && !model.ValidStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}

	now := time.Now()
	chain, err := b.Chain(now)
	if err != nil {
		return err
	}

	return withEnv(func(ctx context.Context, e *env) error {
		_, client, err := e.authed(ctx)
		if err != nil {
			return err
		}

		var tasks []model.Task
		switch {
		case status != "":
			tasks, err = client.ListTasksByStatus(ctx, status)
		case user != "":
			var id string
			if id, err = resolveUser(ctx, client, user); err == nil {
				tasks, err = client.ListUserTasks(ctx, id)
			}
		default:
			tasks, err = client.ListMyTasks(ctx)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		groups := filter.GroupByBoard(chain.Apply(tasks))
		if len(groups) == 0 {
			fmt.Fprintf(out, "No tasks match (%s)\n", b.Summary())
			return nil
		}
		for _, g := range groups {
			fmt.Fprintln(out, theme.TitleStyle.Render(fmt.Sprintf("%s (%d)", g.Label(), len(g.Tasks))))
			fmt.Fprintln(out, reports.RenderGroup(g, now, 0))
		}
		return nil
	})
}

// resolveUser finds the id of the user whose id, username or email equals
// ref.
func resolveUser(ctx context.Context, client *api.Client, ref string) (string, error) {
	users, err := client.ListUsers(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.ID == ref || strings.EqualFold(u.Username, ref) || strings.EqualFold(u.Email, ref) {
			return u.ID, nil
		}
	}
	return "", fmt.Errorf("no user %q", ref)
}

func runGoals(cmd *cobra.Command, args []string) error {
	monthFlag, _ := cmd.Flags().GetString("month")
	dept, _ := cmd.Flags().GetString("department")

	month := time.Now()
	if monthFlag != "" {
		t, err := time.ParseInLocation("2006-01", monthFlag, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --month %q, want YYYY-MM", monthFlag)
		}
		month = t
	}

	return withEnv(func(ctx context.Context, e *env) error {
		_, client, err := e.authed(ctx)
		if err != nil {
			return err
		}
		goals, err := client.ListGoals(ctx, month)
		if err != nil {
			return err
		}
		goals = filter.New(filter.GoalInMonth(month), filter.GoalDepartment(dept)).Apply(goals)
		return printGoals(cmd.OutOrStdout(), month, goals)
	})
}

func runUsers(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("search")
	dept, _ := cmd.Flags().GetString("department")

	return withEnv(func(ctx context.Context, e *env) error {
		_, client, err := e.authed(ctx)
		if err != nil {
			return err
		}
		users, err := client.ListUsers(ctx)
		if err != nil {
			return err
		}
		users = filter.New(filter.UserQuery(query), filter.UserDepartment(dept)).Apply(users)
		sort.Slice(users, func(i, j int) bool {
			return strings.ToLower(users[i].Username) < strings.ToLower(users[j].Username)
		})
		return printUsers(cmd.OutOrStdout(), users)
	})
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeaderStyle
			}
			return theme.TableCellStyle
		})
}

func printBoards(w io.Writer, boards []model.Board) error {
	if len(boards) == 0 {
		_, err := fmt.Fprintln(w, "No boards")
		return err
	}
	t := newTable("Board", "Slug", "Members")
	for _, b := range boards {
		names := make([]string, 0, len(b.Members))
		for _, m := range b.Members {
			names = append(names, m.DisplayName())
		}
		t.Row(b.Title, b.Slug, strings.Join(names, ", "))
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func printGoals(w io.Writer, month time.Time, goals []model.Goal) error {
	if len(goals) == 0 {
		_, err := fmt.Fprintf(w, "No goals for %s\n", month.Format("January 2006"))
		return err
	}
	t := newTable("Employee", "Target", "Start", "Due", "Goal", "Achieved", "Status")
	for _, g := range goals {
		t.Row(
			g.User.DisplayName(),
			g.Title,
			model.FormatDate(g.StartDate),
			model.FormatDate(g.DueDate),
			strconv.FormatFloat(g.TargetValue, 'f', -1, 64),
			strconv.FormatFloat(g.TargetValue-g.RemainingValue, 'f', -1, 64),
			g.Status,
		)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func printUsers(w io.Writer, users []model.User) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(w, "No users")
		return err
	}
	t := newTable("Username", "Email", "Role", "Department")
	for _, u := range users {
		t.Row(u.Username, u.Email, u.Role.String(), model.DepartmentName(u.Department))
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}
