// Package agent is the public SDK surface of watchlog-rum-go.
//
// A host application starts one agent per process:
//
//	a := agent.Start(agent.Options{
//	    Endpoint:   "https://collect.watchlog.io/v1/rum",
//	    APIKey:     os.Getenv("WATCHLOG_API_KEY"),
//	    App:        "storefront",
//	    SampleRate: agent.Rate(0.2),
//	})
//	defer agent.Shutdown()
//
//	a.TrackPageView("/checkout", "push")
//	a.TrackEvent("order_placed", map[string]interface{}{"total": 42})
//
// Start is idempotent: a second call returns the running agent without a
// second flush timer or a second sampling draw. Shutdown tears everything
// down and clears the process-wide handle so a later Start can re-initialize
// cleanly.
//
// No call on this surface ever returns an error or panics into host code;
// the worst outcome of any internal fault is absent telemetry.
package agent
