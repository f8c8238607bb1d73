// Package disqus is a client for the Disqus 3.0 REST API and its OAuth 2.0
// authorization-code flow.
//
// A Client holds the application credentials and, once the user has
// authorized it, the user's Identity. The identity is persisted to a Store
// under IdentityKey and restored by NewClient.
//
// # Authorization
//
// Authenticate drives the flow through an AuthorizationUI, which shows the
// authorization page and reports the redirect it ended on:
//
//	client, err := disqus.NewClient(ctx,
//		disqus.WithCredentials(publicKey, secretKey, "http://127.0.0.1:8085/callback"),
//		disqus.WithStore(store),
//	)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	if err := client.Authenticate(ctx, ui); err != nil {
//		return err
//	}
//
// # API calls
//
// Get, Post and Call add api_key and api_secret to every request, and
// access_token when authRequired is set and an identity is held:
//
//	resp, err := client.Get(ctx, "users/details", true, nil)
//	if errors.Is(err, disqus.ErrCallFailed) {
//		// transport, parse or API failure
//	}
//
// A call succeeds iff the request completed and the response's code field
// is 0. HTTP status codes are not consulted.
//
// # Parameter encoding
//
// By default parameters are sent raw: key=value pairs joined by & with no
// escaping, which is what Disqus clients have historically sent. Values
// containing & or = must be escaped by the caller, or the client can be
// created WithParamEncoding(ParamEncodingEscaped).
package disqus
