package algo

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/utils"
)

// SourceResult 是单个算法在 fan-out 中的执行结果，供统计回调消费。
type SourceResult struct {
	Algorithm string
	Items     []*core.Item
	Err       error
	TimedOut  bool
	Elapsed   time.Duration
}

// Fanout 是一个 Recall Node：并发执行多个打分算法，union 合并结果。
//
// 降级语义：
//   - 单算法超时：放弃其结果继续等待其他算法，不中断请求
//   - 单算法出错：该算法贡献空结果，不中断请求
//   - 不去重：同一商品被多个算法命中时保留多份候选，
//     融合层按 algo label 分组做逐算法归一化后加权求和
type Fanout struct {
	Sources []Algorithm
	Limit   int

	// Timeout 单算法超时时间；零值使用 core.DefaultAlgoTimeout
	Timeout time.Duration

	// OnResult 每个算法结束（或超时放弃）后的回调，用于统计上报
	OnResult func(SourceResult)
}

func (n *Fanout) Name() string        { return "algo.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) timeout() time.Duration {
	if n.Timeout > 0 {
		return n.Timeout
	}
	return core.DefaultAlgoTimeout
}

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		all   []*core.Item
		eg, _ = errgroup.WithContext(ctx)
	)

	for _, src := range n.Sources {
		s := src
		eg.Go(func() error {
			res := n.runOne(ctx, s, rctx)
			if n.OnResult != nil {
				n.OnResult(res)
			}
			if res.Err != nil || res.TimedOut {
				// 超时或错误降级为空结果，不中断其他算法
				return nil
			}
			for _, it := range res.Items {
				it.PutLabel("algo", utils.Label{Value: s.Name(), Source: "fanout"})
			}
			mu.Lock()
			all = append(all, res.Items...)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

// runOne 在独立 goroutine 中执行单个算法，超时后放弃等待其返回。
// 被放弃的 goroutine 通过 ctx 取消信号自行退出。
func (n *Fanout) runOne(ctx context.Context, s Algorithm, rctx *core.RecommendContext) SourceResult {
	start := time.Now()
	scoreCtx, cancel := context.WithTimeout(ctx, n.timeout())
	defer cancel()

	type scored struct {
		items []*core.Item
		err   error
	}
	done := make(chan scored, 1)
	go func() {
		items, err := s.Score(scoreCtx, rctx, n.Limit)
		done <- scored{items: items, err: err}
	}()

	select {
	case r := <-done:
		return SourceResult{
			Algorithm: s.Name(),
			Items:     r.items,
			Err:       r.err,
			Elapsed:   time.Since(start),
		}
	case <-scoreCtx.Done():
		return SourceResult{
			Algorithm: s.Name(),
			Err:       core.NewDomainError(core.ModuleAlgo, core.ErrorCodeTimeout, s.Name()+": scoring timed out"),
			TimedOut:  true,
			Elapsed:   time.Since(start),
		}
	}
}
