package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"disqusctl/internal/cli"
	"disqusctl/pkg/disqus"
)

// apiFlags are shared by get, post and call.
type apiFlags struct {
	params []string
	auth   bool
	raw    bool
	method string
}

func newAPICmds() []*cobra.Command {
	return []*cobra.Command{
		newAPICmd(disqus.MethodGet, "get", "Call an API endpoint with GET"),
		newAPICmd(disqus.MethodPost, "post", "Call an API endpoint with POST"),
		newAPICmd("", "call", "Call an API endpoint with any HTTP method"),
	}
}

// newAPICmd builds one of the API commands. An empty method adds the
// --method flag.
func newAPICmd(method disqus.Method, use, short string) *cobra.Command {
	flags := &apiFlags{}
	cmd := &cobra.Command{
		Use:   use + " <endpoint>",
		Short: short,
		Long: short + `.

The endpoint is relative to the API base URL, without the .json suffix.
Parameters are given as key=value pairs. The API key and secret are always
sent; --auth adds the stored access token.

Examples:
  disqusctl get threads/list -p forum=myforum -p limit=5
  disqusctl post posts/create --auth -p thread=123 -p message=hello
  disqusctl call --method DELETE posts/remove --auth -p post=42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := method
			if m == "" {
				parsed, err := disqus.ParseMethod(flags.method)
				if err != nil {
					return err
				}
				m = parsed
			}
			return runAPICall(cmd, m, args[0], flags)
		},
	}

	cmd.Flags().StringArrayVarP(&flags.params, "param", "p", nil, "request parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&flags.auth, "auth", false, "send the stored access token")
	cmd.Flags().BoolVar(&flags.raw, "raw", false, "print the response body as received")
	if method == "" {
		cmd.Flags().StringVarP(&flags.method, "method", "X", "GET", "HTTP method: GET, POST, PUT, PATCH or DELETE")
	}
	return cmd
}

func runAPICall(cmd *cobra.Command, method disqus.Method, endpoint string, flags *apiFlags) error {
	params, err := parseParams(flags.params)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if flags.auth && !s.client.IsAuthenticated() {
		return &cli.AuthRequiredError{}
	}

	if flags.raw {
		body, err := s.client.CallRaw(cmd.Context(), method, endpoint, flags.auth, params)
		if err != nil {
			return fmt.Errorf("%s: %s", disqus.Outcome(err), cli.Describe(err))
		}
		_, err = cmd.OutOrStdout().Write(body)
		return err
	}

	resp, err := s.client.Call(cmd.Context(), method, endpoint, flags.auth, params)
	if resp != nil {
		if printErr := cli.PrintJSON(cmd.OutOrStdout(), resp); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %s", disqus.Outcome(err), cli.Describe(err))
	}
	return nil
}

// parseParams turns key=value arguments into Params. Values may contain '='.
func parseParams(pairs []string) (disqus.Params, error) {
	params := make(disqus.Params, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		if _, dup := params[key]; dup {
			return nil, fmt.Errorf("parameter %q given more than once", key)
		}
		params[key] = value
	}
	return params, nil
}
