// payrollctl runs payroll computations from the command line, against
// the same employee roster and deduction schedule the service uses.
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	masterdatarepo "opsledger/internal/masterdata/infrastructure/postgres"
	payrollapp "opsledger/internal/payroll/application"
	payroll "opsledger/internal/payroll/domain"
	payrollinterfaces "opsledger/internal/payroll/interfaces"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var logger zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "payrollctl",
	Short: "Payroll operations for the ops ledger",
	Long: `payrollctl computes payroll batches outside the HTTP service.
It reads the employee roster from the database and applies the same
deduction schedule and allowance policy as the service, so a batch
produced here matches what the payroll endpoints would return.`,
}

var runCmd = &cobra.Command{
	Use:   "run YYYY-MM",
	Short: "Compute the payroll batch for one period",
	Args:  cobra.ExactArgs(1),
	RunE:  runPayroll,
}

func init() {
	runCmd.Flags().StringP("out", "o", "", "write the batch as an xlsx workbook to this path")
	runCmd.Flags().Bool("entries", false, "print per-employee lines, not just control totals")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv load: %v", err)
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runPayroll(cmd *cobra.Command, args []string) error {
	period, err := parsePeriod(args[0])
	if err != nil {
		return err
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("PG_DSN")
	}
	if dsn == "" {
		return errors.New("DATABASE_URL or PG_DSN is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer db.Close()

	cfg, schedule, policy, err := payrollapp.LoadConfig()
	if err != nil {
		return fmt.Errorf("payroll config: %w", err)
	}
	service, err := payrollapp.NewPayrollService(
		masterdatarepo.NewEmployeeRepository(db),
		schedule,
		policy,
		cfg.Currency,
		payrollapp.SystemClock{},
		log.New(os.Stderr, "", log.LstdFlags),
	)
	if err != nil {
		return err
	}

	batch, err := service.Run(cmd.Context(), period)
	if err != nil {
		return err
	}
	logger.Info().
		Str("period", period.String()).
		Int("employees", len(batch.Entries)).
		Msg("payroll batch computed")

	printTotals(batch)
	if withEntries, _ := cmd.Flags().GetBool("entries"); withEntries {
		printEntries(batch)
	}

	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		return nil
	}
	workbook, err := payrollinterfaces.BuildPayrollXLSX(batch)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	if err := os.WriteFile(outPath, workbook, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	logger.Info().Str("path", outPath).Msg("workbook written")
	return nil
}

func parsePeriod(raw string) (payroll.Period, error) {
	var year, month int
	if _, err := fmt.Sscanf(raw, "%4d-%2d", &year, &month); err != nil {
		return payroll.Period{}, fmt.Errorf("period must be YYYY-MM, got %q", raw)
	}
	return payroll.NewPeriod(year, time.Month(month))
}

func printTotals(batch payroll.Batch) {
	fmt.Printf("period        %s\n", batch.Period)
	fmt.Printf("employees     %d\n", batch.Totals.Count)
	fmt.Printf("basic         %s\n", batch.Totals.Basic.StringFixed())
	fmt.Printf("allowances    %s\n", batch.Totals.Allowances.StringFixed())
	fmt.Printf("deductions    %s\n", batch.Totals.Deductions.StringFixed())
	fmt.Printf("net           %s\n", batch.Totals.Net.StringFixed())
	fmt.Printf("average net   %s\n", batch.Summary.AverageNet.StringFixed())
	fmt.Printf("highest net   %s\n", batch.Summary.HighestNet.StringFixed())
	fmt.Printf("lowest net    %s\n", batch.Summary.LowestNet.StringFixed())
}

func printEntries(batch payroll.Batch) {
	fmt.Println()
	for _, entry := range batch.Entries {
		flag := ""
		if entry.NegativeNet {
			flag = "  NEGATIVE NET"
		}
		fmt.Printf("%-12s %-24s basic=%s gross=%s deductions=%s net=%s%s\n",
			entry.EmployeeCode,
			entry.EmployeeName,
			entry.BasicSalary.StringFixed(),
			entry.GrossSalary.StringFixed(),
			entry.Deductions.Total.StringFixed(),
			entry.NetSalary.StringFixed(),
			flag,
		)
	}
}
