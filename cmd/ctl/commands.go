package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"timetodo_backend/internal/auth"
	"timetodo_backend/internal/models"
)

// ============================================
// seed
// ============================================

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed reference data",
}

var seedAddOnsCmd = &cobra.Command{
	Use:   "addons",
	Short: "Insert the default add-on package catalog (idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, container, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		created, err := container.AddOnService.SeedDefaultPackages(cmd.Context(), db)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d add-on packages\n", created)
		return nil
	},
}

// ============================================
// metrics
// ============================================

var (
	metricsID     string
	metricsDate   string
	metricsPeriod string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute and store a metrics snapshot",
	Long: `Compute a metrics snapshot and append it to the history.

Example:
  timetodo-ctl metrics project --id <uuid> --date 2025-03-12 --period weekly
  timetodo-ctl metrics sprint --id <uuid>`,
}

var metricsProjectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project metrics for the period containing --date",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, period, err := metricsWindowFlags()
		if err != nil {
			return err
		}
		db, container, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		m, err := container.MetricsService.CalculateProjectMetrics(cmd.Context(), db, metricsID, date, period)
		if err != nil {
			return err
		}
		return printJSON(m)
	},
}

var metricsUserCmd = &cobra.Command{
	Use:   "user",
	Short: "User metrics for the period containing --date",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, period, err := metricsWindowFlags()
		if err != nil {
			return err
		}
		db, container, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		m, err := container.MetricsService.CalculateUserMetrics(cmd.Context(), db, metricsID, date, period)
		if err != nil {
			return err
		}
		return printJSON(m)
	},
}

var metricsSprintCmd = &cobra.Command{
	Use:   "sprint",
	Short: "Sprint metrics over the sprint lifetime",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, container, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		m, err := container.MetricsService.CalculateSprintMetrics(cmd.Context(), db, metricsID)
		if err != nil {
			return err
		}
		return printJSON(m)
	},
}

func metricsWindowFlags() (time.Time, models.PeriodType, error) {
	date := time.Now().UTC()
	if metricsDate != "" {
		parsed, err := time.Parse("2006-01-02", metricsDate)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("invalid --date %q, use YYYY-MM-DD", metricsDate)
		}
		date = parsed
	}
	period := models.PeriodType(metricsPeriod)
	if !period.IsValid() {
		return time.Time{}, "", fmt.Errorf("invalid --period %q, use daily, weekly or monthly", metricsPeriod)
	}
	return date, period, nil
}

// ============================================
// usage / limits
// ============================================

var (
	usageUser string
	usageDays int
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect per-user usage",
}

var usageReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Daily usage ledger report for the last --days days",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, container, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		report, err := container.UsageService.UsageReport(cmd.Context(), db, usageUser, usageDays)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Resolve the effective limits of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, container, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		limits, err := container.EntitlementService.ResolveFresh(cmd.Context(), db, usageUser)
		if err != nil {
			return err
		}
		return printJSON(limits)
	},
}

// ============================================
// token
// ============================================

var (
	tokenUser      string
	tokenRole      string
	tokenSuperuser bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a service bearer token signed with jwt.secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is not configured")
		}
		tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.TTL)*time.Minute)
		token, err := tokens.Issue(tokenUser, tokenRole, tokenSuperuser)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	seedCmd.AddCommand(seedAddOnsCmd)

	for _, c := range []*cobra.Command{metricsProjectCmd, metricsUserCmd, metricsSprintCmd} {
		c.Flags().StringVar(&metricsID, "id", "", "project, user or sprint id")
		_ = c.MarkFlagRequired("id")
		metricsCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{metricsProjectCmd, metricsUserCmd} {
		c.Flags().StringVar(&metricsDate, "date", "", "date inside the period, YYYY-MM-DD (default today, UTC)")
		c.Flags().StringVar(&metricsPeriod, "period", string(models.PeriodDaily), "daily, weekly or monthly")
	}

	usageReportCmd.Flags().StringVar(&usageUser, "user", "", "user id")
	usageReportCmd.Flags().IntVar(&usageDays, "days", 30, "report length in days")
	_ = usageReportCmd.MarkFlagRequired("user")
	usageCmd.AddCommand(usageReportCmd)

	limitsCmd.Flags().StringVar(&usageUser, "user", "", "user id")
	_ = limitsCmd.MarkFlagRequired("user")

	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "subject user id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", auth.RoleMember, "owner, admin or member")
	tokenCmd.Flags().BoolVar(&tokenSuperuser, "superuser", false, "grant is_superuser")
	_ = tokenCmd.MarkFlagRequired("user")
}
