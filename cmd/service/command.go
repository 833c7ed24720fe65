package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/loreweave/loreweave/app/core"
	"github.com/loreweave/loreweave/app/logic/v1/process"
	"github.com/loreweave/loreweave/pkg/metrics"
	"github.com/loreweave/loreweave/pkg/safe"
)

type Options struct {
	ConfigPath string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "init by given config")
}

func NewProcessCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "process",
		Short: "run background graph maintenance jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunProcess(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func RunProcess(opts *Options) error {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))

	p := process.NewProcess(app)
	p.Start()
	defer p.Stop()

	// addr配置后暴露 /metrics 与健康检查
	if addr := app.Cfg().Addr; addr != "" {
		go safe.RunWithLog(func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.DefaultExportHandler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			if err := http.ListenAndServe(addr, mux); err != nil {
				slog.Error("Metrics server exited", slog.String("error", err.Error()))
			}
		}, "metrics-server")
	}

	fmt.Println("Process starting...")
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
	return nil
}
