// Package resilience groups the failure-handling helpers shared by the worker.
//
//   - circuitbreaker: gobreaker wrappers for the store and the notification channels
//   - retry: the exponential backoff schedule used for outbound fetches
//
// A webhook delivery runs inside its channel's breaker:
//
//	cb := circuitbreaker.New(circuitbreaker.NotifyConfig("slack"))
//	_, err := cb.Execute(func() (interface{}, error) {
//	    return nil, channel.Send(ctx, article)
//	})
package resilience
