// Package bulk runs many remote operations through one invoker and
// returns a complete accounting of what succeeded and what failed.
//
//	res := bulk.Run(ctx, inv, subscribers, func(s Subscriber) invoker.Operation[int] {
//	    return func(ctx context.Context) (int, error) {
//	        return api.AddSubscriber(ctx, listID, s)
//	    }
//	}, bulk.WithProgress(func(p bulk.Progress) {
//	    log.Printf("%d/%d", p.Completed, p.Total)
//	}))
//
//	fmt.Printf("ok=%d failed=%d rate=%.0f%%\n",
//	    len(res.Succeeded), len(res.Failed), res.SuccessRate()*100)
//
// Items share the invoker's circuit breaker. When the remote rate-limits
// an item past its retries, later items wait out the requested delay.
package bulk
