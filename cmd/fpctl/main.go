// Command fpctl drives the FamilyPoints API from a terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/familypoints/internal/client"
	"github.com/dukerupert/familypoints/internal/level"
	"github.com/dukerupert/familypoints/internal/logging"
	"github.com/dukerupert/familypoints/internal/model"
)

const usage = `usage: fpctl [flags] <command> [args]

commands:
  login <username>             sign in (password read from FP_PASSWORD or stdin)
  logout                       forget the stored token
  whoami                       show the signed-in user
  tasks                        list tasks (children see active tasks only)
  submit [-note s] [-bible s] [-reflection s] <task-id> [files...]
                               submit a task with optional evidence files
  rewards                      list rewards
  redeem <reward-id>           redeem a reward
  summary [child-id]           show points, level, badges and streaks
  ledger [child-id]            show point history
  history                      list your submissions and redemptions
  pending                      list submissions and redemptions awaiting review
  approve submission|redemption <id>
  reject submission|redemption <id>
  delete task|reward <id>      delete a task or retire a reward
  activate task <id> on|off    show or hide a task from children
  settings [key=value...]      show or change points_per_dollar, cap, show_money
  announce <message>           post an announcement
  announcements                list announcements with read status
  read <announcement-id>       mark an announcement read
  level <points>               show the level for a point total

flags:
`

type app struct {
	client *client.Client
	out    io.Writer
	in     io.Reader
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "fpctl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("fpctl", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	api := fs.String("api", envOr("FP_API_URL", "http://localhost:8080"), "API base URL")
	tokenFile := fs.String("token-file", "", "token file (default: user config dir)")
	verbose := fs.Bool("v", false, "log requests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	logLevel := "warn"
	if *verbose {
		logLevel = "debug"
	}
	logger := logging.New(os.Stderr, logLevel, "text")

	if *tokenFile == "" {
		path, err := client.DefaultTokenPath()
		if err != nil {
			return err
		}
		*tokenFile = path
	}

	a := &app{out: stdout, in: stdin}
	session := client.NewSession(&client.FileTokenStore{Path: *tokenFile}, logger)
	c, err := client.New(client.Config{BaseURL: *api, Logger: logger}, session)
	if err != nil {
		return err
	}
	a.client = c

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "level" {
		return a.level(rest)
	}
	if cmd == "login" {
		return a.login(ctx, rest)
	}

	if c.Start(ctx) != client.StateAuthenticated {
		return errors.New("not signed in; run fpctl login <username>")
	}

	err = a.dispatch(ctx, cmd, rest)
	if session.HandleError(err) {
		return errors.New("session expired; run fpctl login <username>")
	}
	return describe(err)
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "logout":
		a.client.Logout()
		fmt.Fprintln(a.out, "signed out")
		return nil
	case "whoami":
		return a.whoami()
	case "tasks":
		return a.tasks(ctx)
	case "submit":
		return a.submit(ctx, args)
	case "rewards":
		return a.rewards(ctx)
	case "redeem":
		return a.redeem(ctx, args)
	case "summary":
		return a.summary(ctx, args)
	case "ledger":
		return a.ledger(ctx, args)
	case "history":
		return a.history(ctx)
	case "pending":
		return a.pending(ctx)
	case "delete":
		return a.remove(ctx, args)
	case "activate":
		return a.activate(ctx, args)
	case "settings":
		return a.settings(ctx, args)
	case "approve", "reject":
		return a.review(ctx, cmd, args)
	case "announce":
		return a.announce(ctx, args)
	case "announcements":
		return a.announcements(ctx)
	case "read":
		id, err := idArg(args, 0)
		if err != nil {
			return err
		}
		return a.client.MarkAnnouncementRead(ctx, id)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// describe turns client errors into messages fit for a terminal.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var ve *client.ValidationError
	if errors.As(err, &ve) {
		return fmt.Errorf("invalid input:\n  %s", strings.Join(ve.Messages, "\n  "))
	}
	var ae *client.APIError
	if errors.As(err, &ae) && ae.Kind() == client.KindBusiness {
		return errors.New(ae.Message)
	}
	if client.Classify(err) == client.KindTransient {
		return fmt.Errorf("%w (nothing was saved; try again)", err)
	}
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func idArg(args []string, i int) (int64, error) {
	if len(args) <= i {
		return 0, errors.New("missing id")
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[i])
	}
	return id, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: fpctl login <username>")
	}
	password := os.Getenv("FP_PASSWORD")
	if password == "" {
		fmt.Fprint(a.out, "password: ")
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	u, err := a.client.Login(ctx, args[0], password)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", u.Name, strings.ToLower(u.Role))
	return nil
}

func (a *app) whoami() error {
	u := a.client.Session().Principal()
	login := ""
	if u.Email != nil {
		login = *u.Email
	} else if u.Username != nil {
		login = *u.Username
	}
	fmt.Fprintf(a.out, "%s <%s> %s #%d\n", u.Name, login, u.Role, u.ID)
	return nil
}

func (a *app) isChild() bool {
	u := a.client.Session().Principal()
	return u != nil && u.Role == model.RoleChild
}

func (a *app) tasks(ctx context.Context) error {
	tasks, err := a.client.ListTasks(ctx, "")
	if err != nil {
		return err
	}
	if a.isChild() {
		tasks = client.ActiveTasks(tasks)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPOINTS\tACTIVE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\n", t.ID, t.Name, t.Category, t.Points, t.IsActive)
	}
	return tw.Flush()
}

func (a *app) submit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	note := fs.String("note", "", "note for the parent")
	bible := fs.String("bible", "", "bible reference")
	reflection := fs.String("reflection", "", "reflection")
	if err := fs.Parse(args); err != nil {
		return err
	}
	args = fs.Args()

	taskID, err := idArg(args, 0)
	if err != nil {
		return err
	}

	req := client.SubmitRequest{TaskID: taskID, Note: *note, BibleReference: *bible, Reflection: *reflection}
	for _, path := range args[1:] {
		req.Evidence = append(req.Evidence, client.Evidence{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Open:        func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}

	sub, err := a.client.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "submission #%d is %s with %d evidence file(s)\n", sub.ID, sub.Status, len(sub.Evidence))
	return nil
}

func (a *app) rewards(ctx context.Context) error {
	rewards, err := a.client.ListRewards(ctx)
	if err != nil {
		return err
	}
	if a.isChild() {
		rewards = client.ActiveRewards(rewards)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCOST\tACTIVE")
	for _, r := range rewards {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\n", r.ID, r.Name, r.Type, r.CostPoints, r.IsActive)
	}
	return tw.Flush()
}

func (a *app) redeem(ctx context.Context, args []string) error {
	id, err := idArg(args, 0)
	if err != nil {
		return err
	}
	rewards, err := a.client.ListRewards(ctx)
	if err != nil {
		return err
	}
	var reward *model.Reward
	for i := range rewards {
		if rewards[i].ID == id && rewards[i].IsActive {
			reward = &rewards[i]
		}
	}
	if reward == nil {
		return fmt.Errorf("reward %d is not available", id)
	}

	summary, err := a.client.ChildSummary(ctx, a.client.Session().Principal().ID)
	if err != nil {
		return err
	}
	r, err := a.client.Redeem(ctx, *reward, summary.Points)
	if errors.Is(err, client.ErrInsufficientPoints) {
		return fmt.Errorf("%s costs %d points; you have %d", reward.Name, reward.CostPoints, summary.Points.TotalPoints)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "redemption #%d for %s is %s (%d points)\n", r.ID, reward.Name, r.Status, r.CostPointsAtTime)
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	id, err := a.childArg(args)
	if err != nil {
		return err
	}
	s, err := a.client.ChildSummary(ctx, id)
	if err != nil {
		return err
	}

	lv := level.Of(s.Points.TotalPoints)
	fmt.Fprintf(a.out, "%s: %d points, level %d (%.0f%%)\n", s.User.Name, s.Points.TotalPoints, lv.Number, lv.Progress)
	if next := level.PointsToNext(s.Points.TotalPoints); next > 0 {
		fmt.Fprintf(a.out, "%d points to level %d\n", next, lv.Number+1)
	}
	if s.Points.TotalMoneyEquivalent > 0 {
		fmt.Fprintf(a.out, "worth $%.2f, $%.2f this month\n", s.Points.TotalMoneyEquivalent, s.Points.ThisMonthMoneyEquivalent)
	}
	fmt.Fprintf(a.out, "streaks: bible %d, homework %d\n", s.Streaks.BibleReadingStreak, s.Streaks.HomeworkStreak)
	for _, b := range s.Badges {
		fmt.Fprintf(a.out, "badge: %s (%s)\n", b.Badge.Name, b.AwardedAt.Local().Format(time.DateOnly))
	}
	return nil
}

// childArg returns the child id in args, defaulting to the signed-in user.
func (a *app) childArg(args []string) (int64, error) {
	if len(args) > 0 {
		return idArg(args, 0)
	}
	return a.client.Session().Principal().ID, nil
}

func (a *app) ledger(ctx context.Context, args []string) error {
	id, err := a.childArg(args)
	if err != nil {
		return err
	}
	entries, err := a.client.Ledger(ctx, id)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tPOINTS\tREASON")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%+d\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.DeltaPoints, e.Reason)
	}
	return tw.Flush()
}

func (a *app) history(ctx context.Context) error {
	subs, err := a.client.MySubmissions(ctx)
	if err != nil {
		return err
	}
	redemptions, err := a.client.MyRedemptions(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tITEM\tSTATUS\tWHEN")
	for _, s := range subs {
		name := ""
		if s.Task != nil {
			name = s.Task.Name
		}
		fmt.Fprintf(tw, "submission\t%d\t%s\t%s\t%s\n", s.ID, name, s.Status, s.CreatedAt.Local().Format(time.DateTime))
	}
	for _, r := range redemptions {
		name := ""
		if r.Reward != nil {
			name = r.Reward.Name
		}
		fmt.Fprintf(tw, "redemption\t%d\t%s\t%s\t%s\n", r.ID, name, r.Status, r.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: fpctl delete task|reward <id>")
	}
	id, err := idArg(args, 1)
	if err != nil {
		return err
	}
	switch args[0] {
	case "task":
		err = a.client.DeleteTask(ctx, id)
	case "reward":
		err = a.client.DeleteReward(ctx, id)
	default:
		return fmt.Errorf("unknown kind %q", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s #%d deleted\n", args[0], id)
	return nil
}

func (a *app) activate(ctx context.Context, args []string) error {
	if len(args) != 3 || args[0] != "task" || (args[2] != "on" && args[2] != "off") {
		return errors.New("usage: fpctl activate task <id> on|off")
	}
	id, err := idArg(args, 1)
	if err != nil {
		return err
	}

	tasks, err := a.client.ListTasks(ctx, "")
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID != id {
			continue
		}
		active := args[2] == "on"
		updated, err := a.client.UpdateTask(ctx, id, client.TaskRequest{
			Name:        t.Name,
			Category:    t.Category,
			Points:      t.Points,
			Description: t.Description,
			IsActive:    &active,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "task #%d active=%t\n", updated.ID, updated.IsActive)
		return nil
	}
	return fmt.Errorf("task %d not found", id)
}

func (a *app) settings(ctx context.Context, args []string) error {
	var req client.SettingsRequest
	for _, kv := range args {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", kv)
		}
		switch key {
		case "points_per_dollar":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("points_per_dollar: %w", err)
			}
			req.PointsPerDollar = &n
		case "cap":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("cap: %w", err)
			}
			req.MonthlyDollarCapPerChild = &f
		case "show_money":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("show_money: %w", err)
			}
			req.ShowMoneyToChildren = &b
		default:
			return fmt.Errorf("unknown setting %q", key)
		}
	}

	var s *model.ParentSettings
	var err error
	if len(args) == 0 {
		s, err = a.client.Settings(ctx)
	} else {
		s, err = a.client.UpdateSettings(ctx, req)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "points_per_dollar=%d cap=%.2f show_money=%t\n", s.PointsPerDollar, s.MonthlyDollarCapPerChild, s.ShowMoneyToChildren)
	return nil
}

func (a *app) pending(ctx context.Context) error {
	subs, err := a.client.PendingSubmissions(ctx)
	if err != nil {
		return err
	}
	redemptions, err := a.client.PendingRedemptions(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tCHILD\tITEM\tPOINTS\tEVIDENCE")
	for _, s := range subs {
		name, pts := "", 0
		if s.Task != nil {
			name, pts = s.Task.Name, s.Task.Points
		}
		var files []string
		for _, e := range s.Evidence {
			files = append(files, a.client.ResolveURL(e.FilePath))
		}
		fmt.Fprintf(tw, "submission\t%d\t%s\t%s\t%d\t%s\n", s.ID, s.ChildName, name, pts, strings.Join(files, " "))
	}
	for _, r := range redemptions {
		name := ""
		if r.Reward != nil {
			name = r.Reward.Name
		}
		fmt.Fprintf(tw, "redemption\t%d\t%s\t%s\t%d\t\n", r.ID, r.ChildName, name, r.CostPointsAtTime)
	}
	return tw.Flush()
}

func (a *app) review(ctx context.Context, action string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: fpctl %s submission|redemption <id>", action)
	}
	id, err := idArg(args, 1)
	if err != nil {
		return err
	}

	var status string
	switch {
	case args[0] == "submission" && action == "approve":
		s, err := a.client.ApproveSubmission(ctx, id)
		if err != nil {
			return err
		}
		status = s.Status
	case args[0] == "submission":
		s, err := a.client.RejectSubmission(ctx, id)
		if err != nil {
			return err
		}
		status = s.Status
	case args[0] == "redemption" && action == "approve":
		r, err := a.client.ApproveRedemption(ctx, id)
		if err != nil {
			return err
		}
		status = r.Status
	case args[0] == "redemption":
		r, err := a.client.RejectRedemption(ctx, id)
		if err != nil {
			return err
		}
		status = r.Status
	default:
		return fmt.Errorf("unknown kind %q", args[0])
	}
	fmt.Fprintf(a.out, "%s #%d is %s\n", args[0], id, status)
	return nil
}

func (a *app) announce(ctx context.Context, args []string) error {
	an, err := a.client.CreateAnnouncement(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "announcement #%d posted\n", an.ID)
	return nil
}

func (a *app) announcements(ctx context.Context) error {
	list, err := a.client.ListAnnouncements(ctx)
	if err != nil {
		return err
	}
	for _, an := range list {
		fmt.Fprintf(a.out, "#%d %s  %s\n", an.ID, an.CreatedAt.Local().Format(time.DateTime), an.Message)
		if a.isChild() {
			continue
		}
		for _, line := range client.ReadStatus(an, time.Local) {
			fmt.Fprintf(a.out, "    %s\n", line)
		}
	}
	return nil
}

func (a *app) level(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: fpctl level <points>")
	}
	pts, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid points %q", args[0])
	}
	lv := level.Of(pts)
	fmt.Fprintf(a.out, "level %d: %d..%d, %.1f%%\n", lv.Number, lv.Floor, lv.Ceiling, lv.Progress)
	return nil
}
