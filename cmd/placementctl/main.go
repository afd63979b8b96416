package main

import (
    "context"
    "flag"
    "fmt"
    "os"
    "strings"

    "github.com/fatih/color"
    "github.com/olekukonko/tablewriter"
    log "github.com/sirupsen/logrus"
    "gorm.io/gorm"

    "github.com/zaqqye/placement_backend/internal/accounts"
    "github.com/zaqqye/placement_backend/internal/config"
    "github.com/zaqqye/placement_backend/internal/database"
    "github.com/zaqqye/placement_backend/internal/jobs"
    "github.com/zaqqye/placement_backend/internal/logging"
    "github.com/zaqqye/placement_backend/internal/models"
    "github.com/zaqqye/placement_backend/internal/placement"
    "github.com/zaqqye/placement_backend/internal/profile"
    "github.com/zaqqye/placement_backend/internal/scope"
    "github.com/zaqqye/placement_backend/internal/seed"
    "github.com/zaqqye/placement_backend/internal/stats"
    "github.com/zaqqye/placement_backend/internal/store"
    "github.com/zaqqye/placement_backend/internal/verification"
)

const operatorID = "placementctl"

func usage() {
    fmt.Fprintf(os.Stderr, "usage: placementctl [-demo] [-college CODE] [-department DEPT] [colleges|queue|stats]\n")
    flag.PrintDefaults()
}

func main() {
    demo := flag.Bool("demo", false, "run against an in-memory database loaded with the demo fixture")
    collegeCode := flag.String("college", "", "college code (defaults to GEC with -demo)")
    department := flag.String("department", "", "department for job statistics")
    flag.Usage = usage
    flag.Parse()

    logger := logging.Discard()
    var (
        db  *gorm.DB
        err error
    )
    if *demo {
        db, err = demoDatabase()
        if *collegeCode == "" {
            *collegeCode = "GEC"
        }
        if *department == "" {
            *department = "CSE"
        }
    } else {
        var cfg *config.Config
        if cfg, err = config.Load(); err != nil {
            log.Fatalf("config: %v", err)
        }
        logger = logging.New(cfg.LogLevel, cfg.GinMode)
        db, err = database.Connect(cfg)
    }
    if err != nil {
        color.Red("database: %v", err)
        os.Exit(1)
    }

    ctx := context.Background()
    st := store.New(db)
    cmd := "all"
    if flag.NArg() > 0 {
        cmd = strings.ToLower(flag.Arg(0))
    }

    if cmd == "colleges" || cmd == "all" {
        if err := printColleges(ctx, st); err != nil {
            color.Red("colleges: %v", err)
            os.Exit(1)
        }
        if cmd == "colleges" {
            return
        }
    }
    if cmd != "all" && cmd != "queue" && cmd != "stats" {
        usage()
        os.Exit(2)
    }
    if *collegeCode == "" {
        color.Red("-college is required")
        os.Exit(2)
    }
    college, err := findCollege(ctx, st, *collegeCode)
    if err != nil {
        color.Red("%v", err)
        os.Exit(1)
    }
    admin := scope.TenantAdmin{UserID: operatorID, CollegeID: college.ID}

    if cmd == "queue" || cmd == "all" {
        svc := &verification.Service{Store: st, Log: logger}
        if err := printQueue(ctx, svc, admin, college); err != nil {
            color.Red("queue: %v", err)
            os.Exit(1)
        }
    }
    if cmd == "stats" || cmd == "all" {
        svc := &stats.Service{Store: st, Log: logger}
        if err := printStats(ctx, st, svc, admin, college, *department); err != nil {
            color.Red("stats: %v", err)
            os.Exit(1)
        }
    }
}

func findCollege(ctx context.Context, st *store.Store, code string) (*models.College, error) {
    colleges, err := st.ListColleges(ctx)
    if err != nil {
        return nil, err
    }
    for i := range colleges {
        if strings.EqualFold(colleges[i].Code, code) {
            return &colleges[i], nil
        }
    }
    return nil, fmt.Errorf("college %q not found", code)
}

func printColleges(ctx context.Context, st *store.Store) error {
    colleges, err := st.ListColleges(ctx)
    if err != nil {
        return err
    }
    color.Cyan("\n=== Colleges ===")
    table := tablewriter.NewWriter(os.Stdout)
    table.SetHeader([]string{"Code", "Name", "Status", "Students"})
    for _, c := range colleges {
        n, err := st.CountStudents(ctx, c.ID, "")
        if err != nil {
            return err
        }
        table.Append([]string{c.Code, c.Name, c.Status, fmt.Sprintf("%d", n)})
    }
    table.Render()
    return nil
}

func printQueue(ctx context.Context, svc *verification.Service, actor scope.Actor, college *models.College) error {
    queue, err := svc.Queue(ctx, actor)
    if err != nil {
        return err
    }
    color.Yellow("\nVerification queue: %s (%d pending)", college.Name, len(queue))
    table := tablewriter.NewWriter(os.Stdout)
    table.SetHeader([]string{"Student", "Department", "CGPA", "Complete", "Triggers", "Updated"})
    table.SetAlignment(tablewriter.ALIGN_LEFT)
    for _, s := range queue {
        complete := "no"
        if s.Complete {
            complete = "yes"
        }
        table.Append([]string{
            s.FullName,
            s.Department,
            fmt.Sprintf("%.2f", s.CGPA),
            complete,
            fmt.Sprintf("%d", len(s.TriggerEvents)),
            s.UpdatedAt.Format("2006-01-02 15:04"),
        })
    }
    table.Render()
    return nil
}

func printStats(ctx context.Context, st *store.Store, svc *stats.Service, actor scope.Actor, college *models.College, department string) error {
    rows, err := svc.JobsWithStats(ctx, actor, department)
    if err != nil {
        return err
    }
    roster, err := st.CountStudents(ctx, college.ID, department)
    if err != nil {
        return err
    }
    color.Yellow("\nJob statistics: %s / %s (%d students)", college.Name, department, roster)
    table := tablewriter.NewWriter(os.Stdout)
    table.SetHeader([]string{"Job", "Company", "Status", "Eligible", "Not eligible", "Applied", "Not applied"})
    for _, r := range rows {
        table.Append([]string{
            r.Job.Title,
            r.Job.Company,
            r.Job.Status,
            fmt.Sprintf("%d", r.Stats.Eligible),
            fmt.Sprintf("%d", r.Stats.NotEligible),
            fmt.Sprintf("%d", r.Stats.Applied),
            fmt.Sprintf("%d", r.Stats.NotApplied),
        })
    }
    table.Render()
    return nil
}

// demoDatabase seeds the bundled fixture, verifies one student and files
// one application so every table has something to show.
func demoDatabase() (*gorm.DB, error) {
    db, err := database.OpenMemory()
    if err != nil {
        return nil, err
    }
    ctx := context.Background()
    st := store.New(db)
    super := scope.SuperOperator{UserID: operatorID}
    jobSvc := &jobs.Service{Store: st}
    seeder := &seed.Seeder{
        Accounts: &accounts.Service{Store: st},
        Jobs:     jobSvc,
        Profiles: &profile.Service{Store: st},
    }
    if _, err := seeder.Apply(ctx, super, seed.Demo()); err != nil {
        return nil, err
    }

    asha, err := st.FindUserByEmail(ctx, "asha@gec.edu")
    if err != nil {
        return nil, err
    }
    student := scope.Student{UserID: asha.ID, CollegeID: asha.College(), Department: asha.Department}
    p, err := st.GetStudentByUser(ctx, asha.ID)
    if err != nil {
        return nil, err
    }
    verify := &verification.Service{Store: st}
    if _, err := verify.Approve(ctx, super, p.ID, "demo", nil); err != nil {
        return nil, err
    }
    board, err := jobSvc.Board(ctx, student)
    if err != nil {
        return nil, err
    }
    apply := &placement.Service{Store: st, Jobs: jobSvc}
    for _, entry := range board {
        if entry.Job.Title == "Backend Engineer" {
            if _, err := apply.Apply(ctx, student, entry.Job.ID); err != nil {
                return nil, err
            }
        }
    }
    return db, nil
}
