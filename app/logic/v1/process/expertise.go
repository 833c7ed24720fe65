package process

import (
	"context"
	"log/slog"

	"github.com/loreweave/loreweave/app/core"
	v1 "github.com/loreweave/loreweave/app/logic/v1"
	"github.com/loreweave/loreweave/pkg/register"
	"github.com/loreweave/loreweave/pkg/safe"
	"github.com/loreweave/loreweave/pkg/types"
)

const defaultExpertiseCron = "0 3 * * *"

func init() {
	register.RegisterFunc[*Process](ProcessKey{}, func(p *Process) {
		spec := p.core.Cfg().Process.ExpertiseCron
		if spec == "" {
			spec = defaultExpertiseCron
		}
		if _, err := p.cron.AddFunc(spec, func() {
			safe.Run(func() {
				RecomputeAllExpertise(p.core)
			})
		}); err != nil {
			panic(err)
		}
	})
}

// RecomputeAllExpertise 全量重算所有聚类的作者专长评分
// 单个聚类失败只记录并计数，不影响其他聚类
func RecomputeAllExpertise(core *core.Core) {
	ctx := context.Background()
	logic := v1.NewClusterLogic(ctx, core)

	clusters, err := core.Store().TopicClusterStore().List(ctx, types.ListTopicClusterOptions{}, types.NO_PAGINATION, types.NO_PAGINATION)
	if err != nil {
		slog.Error("Failed to list clusters for expertise recompute", slog.String("error", err.Error()))
		core.Metrics().AnalyzeErrorInc("expertise_recompute")
		return
	}

	for _, cluster := range clusters {
		if err := logic.UpdateExpertiseScores(cluster.ID); err != nil {
			slog.Error("Failed to recompute expertise",
				slog.String("cluster_id", cluster.ID),
				slog.String("error", err.Error()))
			core.Metrics().AnalyzeErrorInc("expertise_recompute")
		}
	}

	slog.Info("Expertise recompute finished", slog.Int("clusters", len(clusters)))
}
