package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fapiaowuyou/fapiao-recon/internal/cli"
	"github.com/fapiaowuyou/fapiao-recon/internal/common"
	"github.com/fapiaowuyou/fapiao-recon/internal/storage"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List past reconciliation runs",
		RunE:  runRuns,
	}

	cmd.Flags().IntP("limit", "n", 20, "maximum number of runs to show")
	cmd.Flags().String("rows", "", "print the result rows of the given run ID instead")

	return cmd
}

func runRuns(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	rowsID, _ := cmd.Flags().GetString("rows")

	dbPath, err := defaultDBPath()
	if err != nil {
		return err
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}

	if rowsID != "" {
		return printRunRows(cmd, store, rowsID)
	}

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println(cli.SubtleStyle.Render("暂无处理记录"))
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %s  %3d 张  %10.2f 元  %s\n",
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.RowCount,
			r.TotalAmount,
			cli.SubtleStyle.Render(strings.Join(r.Inputs, ", ")))
	}
	return nil
}

func printRunRows(cmd *cobra.Command, store *storage.SQLiteStorage, runID string) error {
	rows, err := store.GetRows(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s", common.ErrRunNotFound, runID)
	}
	for _, r := range rows {
		fmt.Printf("%3d  %-22s  %-10s  %10.2f  %s\n",
			r.Seq, r.Number, r.Date, r.Amount, r.Note)
	}

	missing, err := store.GetMissing(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("未核验文件 %d 份: %s", len(missing), strings.Join(missing, ", "))))
	}
	return nil
}
