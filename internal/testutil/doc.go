// Package testutil provides testing utilities for mailshield.
//
// This package is intended for internal testing only and should not be imported
// by external packages.
//
// # Scripted Operations
//
// Spy plays a scripted list of outcomes and counts invocations:
//
//	spy := testutil.NewSpy(
//	    testutil.Fail[int](testutil.TimeoutError()),
//	    testutil.Ok(42),
//	)
//	v, err := invoker.Do(ctx, inv, spy.Call)
//	assert.Equal(t, 2, spy.Calls())
//
// # Mock API Server
//
// MockAPIServer provides a mock email API server for testing:
//
//	server := testutil.NewMockServer(t)
//	server.On("/api/1/addSubscriber/", func(w http.ResponseWriter, r *http.Request) {
//	    testutil.ReplyRateLimit(w, 5)
//	})
//	// Use server.BaseURL() as the API base URL
//
// All requests are captured and can be inspected:
//
//	cap := server.LastCapture()
//	cap.AssertMethod(t, "POST")
//	cap.AssertToken(t, testutil.TestToken)
//	cap.AssertMergeField(t, "email", "user000@example.com")
//
// Script answers successive calls from a list, which keeps retry tests
// free of hand-written counters.
//
// # Fake Sleeper
//
// FakeSleeper records sleep calls without actually sleeping:
//
//	sleeper := &testutil.FakeSleeper{}
//	inv := testutil.NewRetryTestInvoker(t, sleeper)
//	assert.Equal(t, 2*time.Second, sleeper.LastCall())
package testutil
