package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"homescreen/internal/browser"
)

func newPinCmd(opts *rootOptions) *cobra.Command {
	var headful bool

	pinCmd := &cobra.Command{
		Use:   "pin <url>",
		Short: "Open a live page in Chrome and pin the identity onto it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPin(cmd, opts, args[0], headful)
		},
	}
	pinCmd.Flags().BoolVar(&headful, "headful", false, "show the browser window")
	return pinCmd
}

func runPin(cmd *cobra.Command, opts *rootOptions, rawURL string, headful bool) error {
	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		return fmt.Errorf("invalid url %q: must be http or https", rawURL)
	}

	cfg, _, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, opts.debug)

	id, err := cfg.PageIdentity()
	if err != nil {
		return err
	}

	b := browser.New(browser.Options{
		Headless: cfg.Browser.Headless && !headful,
		Timeout:  cfg.Browser.Timeout.Duration(),
		ExecPath: cfg.Browser.ExecPath,
	}, logger)
	defer b.Close()

	result, err := b.Pin(cmd.Context(), target.String(), id, cfg.Injector.RetryDelay.Duration())
	if err != nil {
		return err
	}
	if result.Initial != nil {
		return fmt.Errorf("initial application: %w", result.Initial)
	}
	if result.Deferred != nil {
		return fmt.Errorf("deferred application: %w", result.Deferred)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", result.URL, result.Title)
	return nil
}
