// Package authui implements disqus.AuthorizationUI for a terminal.
//
// LoopbackUI serves the redirect on a local callback server and opens the
// system browser. PasteUI is used for redirect URIs the CLI cannot serve,
// such as custom schemes registered by a desktop app: it prints the
// authorization URL and asks the user to paste the address the browser
// ended on. ForRedirect picks between them.
package authui
