// Package config loads disqusctl's configuration.
//
// Configuration is read from a YAML file, by default
// $XDG_CONFIG_HOME/disqusctl/config.yaml:
//
//	disqus:
//	  publicKey: "..."
//	  secretKey: "..."
//	  redirectURI: "http://127.0.0.1:8085/callback"
//	  paramEncoding: raw
//	store:
//	  kind: file
//	log:
//	  level: info
//	  format: text
//
// A missing file yields the defaults. Values are then overridden from .env
// files (the working directory and the config directory) and finally from
// the process environment, see the Env* constants.
//
// Watcher reports changes to the config file so long-running commands can
// pick up new credentials.
package config
