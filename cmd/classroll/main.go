package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"classroll/internal/apperr"
	"classroll/internal/attendance"
	"classroll/internal/auth"
	"classroll/internal/cloudinary"
	"classroll/internal/config"
	"classroll/internal/export"
	"classroll/internal/gateway"
	"classroll/internal/metrics"
	"classroll/internal/model"
	"classroll/internal/store"
)

const usage = `usage: classroll <command> [flags]

commands:
  login        sign in and store the session
  logout       clear the stored session
  whoami       show the signed-in teacher
  register     register a student from an identification video
  students     list students (-source auto|server|cache, -class 5A)
  attend       process classroom photos into an attendance sheet
  history      list cached attendance records
  clear-cache  drop cached students and history
`

func main() {
	// .env is optional.
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, config.Load(), os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

type app struct {
	cfg config.App
	out io.Writer

	store    store.Repository
	session  *auth.Manager
	svc      *attendance.Service
	exporter *export.Exporter
}

func run(ctx context.Context, cfg config.App, args []string, out io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(out, usage)
		return 2
	}

	a, err := newApp(ctx, cfg, out)
	if err != nil {
		log.Printf("startup failed: %v", err)
		return 1
	}
	defer func() {
		if err := a.store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	cmds := map[string]func(context.Context, []string) error{
		"login":       a.login,
		"logout":      a.logout,
		"whoami":      a.whoami,
		"register":    a.register,
		"students":    a.students,
		"attend":      a.attend,
		"history":     a.history,
		"clear-cache": a.clearCache,
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(out, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	err = cmd(ctx, args[1:])
	if cfg.MetricsFile != "" {
		if werr := metrics.WriteFile(cfg.MetricsFile); werr != nil {
			log.Printf("write metrics: %v", werr)
		}
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(out, "error: %s\n", apperr.Message(err))
		if apperr.KindOf(err) == apperr.KindUnexpectedResponse || apperr.KindOf(err) == apperr.KindStorage {
			log.Printf("%s: %v", args[0], err)
		}
		return 1
	}
	return 0
}

func newApp(ctx context.Context, cfg config.App, out io.Writer) (*app, error) {
	repo, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		Dir:         cfg.StoreDir,
		RedisAddr:   cfg.RedisAddr,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, err
	}

	gw := gateway.New(cfg.APIURL, cfg.RequestTimeout)
	gw.StandardSuffix = cfg.StandardSuffix
	if cfg.RegisterParamsInQuery {
		gw.RegisterParams = gateway.ParamsInQuery
	}
	session := auth.NewManager(repo, gw)
	gw.Auth = session

	var sharer export.Sharer = export.LocalSharer{}
	if cfg.CloudinaryEnabled() {
		sharer = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	}

	return &app{
		cfg:      cfg,
		out:      out,
		store:    repo,
		session:  session,
		svc:      attendance.NewService(attendance.NewRepository(repo), gw, cfg.HistoryCap),
		exporter: export.New(cfg.ExportDir, sharer),
	}, nil
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) requireSession(ctx context.Context) error {
	if !a.session.IsAuthenticated(ctx) {
		return apperr.Validation("Not logged in. Run 'classroll login' first.")
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (default $CLASSROLL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("CLASSROLL_PASSWORD")
	}
	sess, err := a.session.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", sess.DisplayName)
	return nil
}

func (a *app) logout(ctx context.Context, args []string) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context, args []string) error {
	sess, ok := a.session.CurrentSession(ctx)
	if !ok {
		return apperr.Validation("Not logged in")
	}
	fmt.Fprintf(a.out, "%s (%s) at %s\n", sess.DisplayName, sess.UserID, a.cfg.APIURL)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	var in gateway.RegisterRequest
	fs.StringVar(&in.Name, "name", "", "student name")
	fs.StringVar(&in.RollNumber, "roll", "", "roll number")
	fs.StringVar(&in.ClassroomLabel, "class", "", "classroom label, e.g. 5A")
	fs.StringVar(&in.Standard, "standard", "", "standard, used with -division instead of -class")
	fs.StringVar(&in.Division, "division", "", "division letter")
	video := fs.String("video", "", "path to the identification video")
	fs.IntVar(&in.Options.MinRequiredImages, "min-images", 0, "minimum face images required (backend default 5)")
	fs.IntVar(&in.Options.FrameInterval, "frame-interval", 0, "frames between samples (backend default 30)")
	fs.IntVar(&in.Options.MaxFrames, "max-frames", 0, "maximum frames sampled (backend default 100)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *video == "" {
		return apperr.Validation(gateway.VideoRequiredMessage)
	}
	ref := model.NewFileReference(*video)
	in.Video = &ref
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	res, err := a.svc.RegisterStudent(ctx, in)
	if err != nil {
		return err
	}
	msg := res.Info.Message
	if msg == "" {
		msg = "Student registered"
	}
	fmt.Fprintf(a.out, "%s: %s (roll %s, class %s)\n", msg, res.Student.Name, res.Student.RollNumber, res.Student.ClassroomLabel)
	return nil
}

func (a *app) students(ctx context.Context, args []string) error {
	fs := a.flags("students")
	source := fs.String("source", "auto", "auto, server or cache")
	class := fs.String("class", "", "only students of this classroom")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		list []model.StudentRecord
		from attendance.Source
		err  error
	)
	switch *source {
	case "cache":
		list, from = a.svc.GetStudentsCached(ctx, *class), attendance.SourceCache
	case "server":
		list, err = a.svc.GetStudentsFromServer(ctx)
		from = attendance.SourceServer
	case "auto":
		list, from, err = a.svc.GetStudents(ctx, *class)
	default:
		return apperr.Validation("source must be auto, server or cache")
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLL\tNAME\tCLASS")
	for _, st := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", st.RollNumber, st.Name, st.ClassroomLabel)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d students (%s)\n", len(list), from)
	return nil
}

func (a *app) attend(ctx context.Context, args []string) error {
	fs := a.flags("attend")
	var in gateway.AttendanceRequest
	fs.StringVar(&in.ClassroomLabel, "class", "", "classroom label, e.g. 5A")
	fs.StringVar(&in.Standard, "standard", "", "standard, used with -division instead of -class")
	fs.StringVar(&in.Division, "division", "", "division letter")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, p := range fs.Args() {
		in.Photos = append(in.Photos, model.NewFileReference(p))
	}
	if len(in.Photos) == 0 {
		return apperr.Validation(gateway.PhotosRequiredMessage)
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	out, err := a.svc.ProcessAttendance(ctx, in)
	if err != nil {
		return err
	}
	rec := out.Record
	fmt.Fprintf(a.out, "Processed %d photos for %s\n", len(rec.PhotoReferences), rec.ClassroomLabel)
	if rec.Estimated {
		fmt.Fprintf(a.out, "Class size: %d (estimated from cached students)\n", rec.TotalCount)
	} else {
		fmt.Fprintf(a.out, "Present: %d  Absent: %d  Total: %d\n", rec.PresentCount, rec.AbsentCount, rec.TotalCount)
	}

	res, err := a.exporter.Save(ctx, out.Payload, rec.ClassroomLabel)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Report: %s\n", res.Location)
	return nil
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := a.flags("history")
	class := fs.String("class", "", "only records of this classroom")
	if err := fs.Parse(args); err != nil {
		return err
	}
	records := a.svc.History(ctx, *class)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCLASS\tPRESENT\tABSENT\tTOTAL")
	for _, rec := range records {
		total := fmt.Sprint(rec.TotalCount)
		if rec.Estimated {
			total += "~"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04"), rec.ClassroomLabel, rec.PresentCount, rec.AbsentCount, total)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "no attendance records")
	}
	return nil
}

func (a *app) clearCache(ctx context.Context, args []string) error {
	if err := a.svc.ClearCache(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Local cache cleared")
	return nil
}
