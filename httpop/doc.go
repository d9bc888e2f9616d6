// Package httpop builds invoker operations out of plain HTTP requests to a
// JSON email API.
//
//	api, err := httpop.New("https://acumbamail.com/api/1",
//	    httpop.WithAuthToken(os.Getenv("ACUMBAMAIL_AUTH_TOKEN")))
//	if err != nil {
//	    return err
//	}
//	lists, err := invoker.Do(ctx, inv, httpop.Call[map[string]any](api, httpop.Request{
//	    Name: "getLists",
//	    Path: "/getLists/",
//	}))
//
// Non-2xx replies become *fault.RemoteError so that the default classifier
// sees the status code and any Retry-After the remote sent. The auth token
// never appears in returned errors.
package httpop
