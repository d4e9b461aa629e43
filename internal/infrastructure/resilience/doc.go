/*
Package resilience provides a circuit breaker for transcoder launches.

# Overview

Every grid spawns its own decoder and encoder. When the transcoder binary
is missing, not executable or crashes at startup, each grid would pay for
the same failure again. The breaker opens after a run of consecutive launch
failures and rejects further launches with ErrCircuitOpen until its
cooldown elapses.

# Usage

	breaker := resilience.New("decoder", resilience.Settings{
		MaxFailures: 3,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("transcoder breaker", zap.String("stage", name),
				zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})

	proc, err := resilience.Call(breaker, func() (*childproc.Process, error) {
		return childproc.Start(path, argv, opts)
	})

# States

	Closed --[MaxFailures]-> Open --[Cooldown]-> Half-Open --[success]-> Closed
	                                                 |
	                                             [failure]
	                                                 v
	                                                Open

Only launch errors count. A transcoder that starts and later exits non-zero
is a per-grid failure, not a reason to stop launching.
*/
package resilience
