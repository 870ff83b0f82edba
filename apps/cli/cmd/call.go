package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/apiharness/packages/core/config"
	"github.com/abdul-hamid-achik/apiharness/packages/core/session"
	"github.com/abdul-hamid-achik/apiharness/packages/decode"
	apihttp "github.com/abdul-hamid-achik/apiharness/packages/http"
	"github.com/abdul-hamid-achik/apiharness/packages/output"
	"github.com/abdul-hamid-achik/apiharness/packages/result"
)

var errCallFailed = errors.New("call failed")

var (
	callBaseURLFlag     string
	callFormatFlag      string
	callHeaderFlags     []string
	callQueryFlags      []string
	callDataFlag        string
	callContentTypeFlag string
	callFormFlags       []string
	callAuthFlag        string
	callExpectFlags     []string
	callCaptureFlags    []string
	callStopFlag        bool
	callRawFlag         bool
	callInsecureFlag    bool
	callOutputFlag      string
)

var callCmd = &cobra.Command{
	Use:   "call <METHOD> <path>",
	Short: "Send one request and print the outcome",
	Long: `Send one request through an apiharness session and print its outcome:
status, decoding strategy, error info, body and expectation results.

Paths are resolved against the base URL. Query values are encoded exactly
once in the final URL.

Examples:
  apiharness call GET api/users/2 --base-url https://reqres.in
  apiharness call GET api/users --query page=2 --query "name=a b"
  apiharness call POST api/users --data '{"name":"Alice","job":"Engineer"}' --expect "status == 201"
  apiharness call POST login --form user=alice --form pass=secret --capture token=body.token
  apiharness call DELETE api/users/2 --auth Bearer:token --stop-at-failure`,
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE:         callCommand,
}

func init() {
	callCmd.Flags().StringVarP(&callBaseURLFlag, "base-url", "u", getEnvString("APIHARNESS_BASE_URL", ""), "Base URL for relative paths (env: APIHARNESS_BASE_URL)")
	callCmd.Flags().StringVar(&callFormatFlag, "format", "", "Request format: json or xml")
	callCmd.Flags().StringArrayVarP(&callHeaderFlags, "header", "H", nil, "Custom header as Name=value or \"Name: value\" (repeatable)")
	callCmd.Flags().StringArrayVarP(&callQueryFlags, "query", "q", nil, "Query parameter as name=value (repeatable)")
	callCmd.Flags().StringVarP(&callDataFlag, "data", "d", "", "Request body sent as-is")
	callCmd.Flags().StringVar(&callContentTypeFlag, "content-type", "", "Content type of --data (default application/json)")
	callCmd.Flags().StringArrayVar(&callFormFlags, "form", nil, "Form field as name=value (repeatable)")
	callCmd.Flags().StringVar(&callAuthFlag, "auth", getEnvString("APIHARNESS_AUTH", ""), "Authorization as scheme:token (env: APIHARNESS_AUTH)")
	callCmd.Flags().StringArrayVarP(&callExpectFlags, "expect", "e", nil, "Expectation such as \"status == 201\" (repeatable)")
	callCmd.Flags().StringArrayVar(&callCaptureFlags, "capture", nil, "Capture as name=expression, e.g. id=body.id (repeatable)")
	callCmd.Flags().BoolVar(&callStopFlag, "stop-at-failure", false, "Stop with a failure message when the call fails")
	callCmd.Flags().BoolVar(&callRawFlag, "raw", false, "Keep the success body as text instead of decoding it")
	callCmd.Flags().BoolVarP(&callInsecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
	callCmd.Flags().StringVarP(&callOutputFlag, "output", "o", getEnvString("APIHARNESS_OUTPUT", "console"), "Output format: console, json (env: APIHARNESS_OUTPUT)")
}

func callCommand(cmd *cobra.Command, args []string) error {
	method := strings.ToUpper(args[0])
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unsupported method %q (use GET, POST, PUT or DELETE)", args[0]))
	}

	s, err := newCallSession()
	if err != nil {
		return err
	}

	query, err := parsePairs(callQueryFlags, "=")
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	path := args[1]
	if len(query) > 0 {
		params := make(map[string]any, len(query))
		for k, v := range query {
			params[k] = v
		}
		path = session.ResolveQueryParameters(path, params)
	}

	form, err := parsePairs(callFormFlags, "=")
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	var opts []session.CallOption
	if callStopFlag {
		opts = append(opts, session.StopAtFailure(), session.FailureMessage(fmt.Sprintf("%s %s failed", method, args[1])))
	}

	start := time.Now()
	var outcome *output.Outcome
	if callRawFlag {
		outcome, err = dispatch[string](s, method, path, form, opts)
	} else {
		outcome, err = dispatch[any](s, method, path, form, opts)
	}

	formatter := output.NewFormatter(callOutputFlag, cmd.OutOrStdout(), settings.GetVerbose(), settings.GetNoColor())

	var stop *session.StopError
	switch {
	case errors.As(err, &stop):
	case errors.Is(err, apihttp.ErrTransport):
		formatter.FormatError(err)
		return withExitCode(ExitNetworkError, err)
	case errors.Is(err, session.ErrNoBaseURL):
		return withExitCode(ExitConfigError, err)
	case err != nil:
		var agg *decode.AggregateError
		if errors.As(err, &agg) {
			formatter.FormatError(err)
			return withExitCode(ExitDecodeError, err)
		}
		return withExitCode(ExitUsageError, err)
	}
	outcome.Duration = time.Since(start)

	if outcome.Captures, err = capture(s); err != nil {
		return withExitCode(ExitUsageError, err)
	}
	for _, expr := range callExpectFlags {
		res, err := s.Assert(expr)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		outcome.Assertions = append(outcome.Assertions, res)
	}

	formatter.FormatOutcome(outcome)

	if stop != nil {
		return withExitCode(ExitTestFailure, stop)
	}
	if !outcome.Passed() {
		return withExitCode(ExitTestFailure, errCallFailed)
	}
	return nil
}

func newCallSession() (*session.Session, error) {
	overrides, err := callFlagConfig()
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}

	s, err := session.FromConfig(settings.Merge(overrides), session.WithLogger(logger))
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return s, nil
}

// callFlagConfig turns the call flags into a config that takes precedence
// over the loaded settings.
func callFlagConfig() (*config.Config, error) {
	cfg := &config.Config{BaseURL: callBaseURLFlag}
	if callFormatFlag != "" {
		if _, err := apihttp.ParseRequestFormat(callFormatFlag); err != nil {
			return nil, err
		}
		cfg.RequestFormat = callFormatFlag
	}
	if callInsecureFlag {
		cfg.ValidateSSL = config.BoolPtr(false)
	}

	if len(callHeaderFlags) > 0 {
		cfg.Headers = make(map[string]string, len(callHeaderFlags))
		for _, h := range callHeaderFlags {
			name, value, ok := cutHeader(h)
			if !ok {
				return nil, fmt.Errorf("invalid header %q (expected Name=value)", h)
			}
			cfg.Headers[name] = value
		}
	}

	if callAuthFlag != "" {
		scheme, token, _ := strings.Cut(callAuthFlag, ":")
		auth := apihttp.Authorization{Scheme: apihttp.AuthScheme(strings.TrimSpace(scheme)), Token: strings.TrimSpace(token)}
		if err := auth.Validate(); err != nil {
			return nil, err
		}
		cfg.Authorization = &config.Authorization{Scheme: string(auth.Scheme), Token: auth.Token}
	}
	return cfg, nil
}

// dispatch runs the verb for method and returns the outcome of the call. A
// StopError is returned together with the outcome.
func dispatch[T any](s *session.Session, method, path string, form map[string]string, opts []session.CallOption) (*output.Outcome, error) {
	var (
		r   *result.Request[T, any]
		err error
	)
	switch method {
	case http.MethodGet:
		r, err = session.Get[T, any](s, path, opts...)
	case http.MethodPost:
		if len(form) > 0 {
			r, err = session.PostForm[T, any](s, path, form, opts...)
		} else {
			r, err = session.PostString[T, any](s, path, callDataFlag, callContentTypeFlag, opts...)
		}
	case http.MethodPut:
		r, err = session.PutString[T, any](s, path, callDataFlag, callContentTypeFlag, opts...)
	case http.MethodDelete:
		r, err = session.Delete[T, any](s, path, opts...)
	}
	if r == nil {
		return nil, err
	}
	return output.NewOutcome(method, displayURL(s.BaseURL(), path), r, 0), err
}

func displayURL(baseURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func capture(s *session.Session) (map[string]any, error) {
	if len(callCaptureFlags) == 0 {
		return nil, nil
	}
	pairs, err := parsePairs(callCaptureFlags, "=")
	if err != nil {
		return nil, err
	}
	captures := make(map[string]any, len(pairs))
	for name, expr := range pairs {
		value, err := s.Capture(name, expr)
		if err != nil {
			logger.Sugar().Warnf("capture %s skipped: %v", name, err)
			continue
		}
		captures[name] = value
	}
	return captures, nil
}

func parsePairs(values []string, sep string) (map[string]string, error) {
	pairs := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, sep)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid pair %q (expected name%svalue)", v, sep)
		}
		pairs[strings.TrimSpace(name)] = value
	}
	return pairs, nil
}

// cutHeader accepts "Name=value" and "Name: value".
func cutHeader(h string) (string, string, bool) {
	sep := "="
	if i := strings.IndexAny(h, ":="); i >= 0 && h[i] == ':' {
		sep = ":"
	}
	name, value, ok := strings.Cut(h, sep)
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}
