package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jesusartemio-dev/gyscontrol-app-sub002/internal/bootstrap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "auditor",
		Short:        "工时台账一致性巡检",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")

	root.AddCommand(newRunCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	var (
		jsonOut  bool
		failOnly bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "执行一次巡检并输出报告（只读，不修改数据）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			app, err := bootstrap.New(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := app.Svc.Audit.RunAudit(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "巡检时间: %s  节点: %d  计划任务: %d  异常: %d\n",
					report.RunAt, report.NodesChecked, report.TasksChecked, len(report.Anomalies))
				for _, a := range report.Anomalies {
					fmt.Fprintf(out, "  [%s] %s %s: %s\n", a.Kind, a.EntityType, a.EntityID, a.Detail)
				}
			}

			if failOnly && len(report.Anomalies) > 0 {
				return fmt.Errorf("发现 %d 条异常", len(report.Anomalies))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "以 JSON 输出报告")
	cmd.Flags().BoolVar(&failOnly, "fail-on-anomaly", false, "存在异常时以非零状态退出")
	return cmd
}
