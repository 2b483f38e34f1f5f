// Package runtime hosts goja script runtimes for bridged objects.
//
// # Quick Start
//
//	ctx := context.Background()
//	host, err := runtime.NewHost(ctx, runtime.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close(ctx)
//
//	// Expose a native object to every runtime, present and future
//	if err := host.Expose(ctx, "user", demo.NewUser("Alice", 23)); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start a background runtime
//	worker, err := host.Spawn(ctx, "worker")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := worker.RunString(ctx, "user.getAge()")
//	fmt.Println(result) // 23
//
// # Runtimes
//
// Each Runtime owns one goja VM and a goroutine that runs every job for it.
// Do waits for a job, Post queues one and returns. The main runtime lives as
// long as the host; background runtimes are registered with the host's
// liveness guard on Spawn and unregistered on Close.
//
// # Callbacks
//
// A script function passed to a native handler taking *Callback is captured
// with its runtime. Invoke may be called from any goroutine. When the origin
// runtime has been closed the call is dropped and a StaleRuntime error is
// sent to the host's Reporter instead of being raised.
//
// Every runtime also has requestAnimationFrame, which queues a callback on
// the host's FrameScheduler, and a console that logs through zap.
package runtime
