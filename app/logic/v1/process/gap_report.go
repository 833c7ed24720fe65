package process

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"github.com/loreweave/loreweave/app/core"
	v1 "github.com/loreweave/loreweave/app/logic/v1"
	"github.com/loreweave/loreweave/pkg/register"
	"github.com/loreweave/loreweave/pkg/safe"
	"github.com/loreweave/loreweave/pkg/types"
)

const defaultGapReportCron = "0 4 * * *"

func init() {
	register.RegisterFunc[*Process](ProcessKey{}, func(p *Process) {
		spec := p.core.Cfg().Process.GapReportCron
		if spec == "" {
			spec = defaultGapReportCron
		}
		if _, err := p.cron.AddFunc(spec, func() {
			safe.Run(func() {
				ReportDocumentationGaps(p.core)
			})
		}); err != nil {
			panic(err)
		}
	})
}

// ReportDocumentationGaps 巡检所有组织的文档缺口并输出结构化日志
// 只读不落库，报告消费方是日志管道
func ReportDocumentationGaps(core *core.Core) {
	ctx := context.Background()

	decisions, err := core.Store().DecisionStore().List(ctx, types.ListDecisionOptions{
		Status: []types.DecisionStatus{types.DECISION_STATUS_DECIDED, types.DECISION_STATUS_IMPLEMENTED},
	}, types.NO_PAGINATION, types.NO_PAGINATION)
	if err != nil {
		slog.Error("Failed to list decisions for gap report", slog.String("error", err.Error()))
		core.Metrics().AnalyzeErrorInc("gap_report")
		return
	}

	organizations := lo.Uniq(lo.Map(decisions, func(d types.Decision, _ int) string {
		return d.OrganizationID
	}))

	logic := v1.NewInsightLogic(ctx, core)
	for _, organizationID := range organizations {
		gaps, err := logic.FindUndocumentedDecisions(organizationID)
		if err != nil {
			slog.Error("Failed to build gap report",
				slog.String("organization_id", organizationID),
				slog.String("error", err.Error()))
			core.Metrics().AnalyzeErrorInc("gap_report")
			continue
		}
		if len(gaps) == 0 {
			continue
		}

		byType := lo.CountValuesBy(gaps, func(g v1.DocumentationGap) string {
			return string(g.GapType)
		})
		slog.Info("Documentation gap report",
			slog.String("organization_id", organizationID),
			slog.Int("total", len(gaps)),
			slog.Any("by_type", byType))
	}
}
