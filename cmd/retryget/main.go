// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command retryget sends one HTTP request with retries and writes the
// response body to standard output.
//
// Usage:
//
//	retryget [options] <url>
//
// Retry behavior comes from an optional YAML or JSON settings file
// (see package config), and individual settings can be overridden by
// flags. With --verbose, each attempt is reported on standard error.
//
// Exit codes:
//
//	0: the final response has a 2xx status code
//	1: the request failed or the final status code is not 2xx
//	2: invalid arguments
//
// Examples:
//
//	retryget https://example.com/
//	retryget --attempts 5 --retry-on 500,503 --timeout 10s https://example.com/
//	retryget --config retry.yaml -X POST -d '{"a":1}' -H 'Content-Type: application/json' https://example.com/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gogama/retryx"
	"github.com/gogama/retryx/config"
	"github.com/gogama/retryx/request"
	"github.com/urfave/cli/v3"
)

// Version is set with -ldflags "-X main.Version=...".
var Version = "0.1.0-dev"

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

type statusError struct {
	statusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("final status code %d", e.statusCode)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := newApp(stdout, stderr).Run(ctx, args)
	if err == nil {
		return 0
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "retryget: %v\n", err)
		return 2
	}
	var se *statusError
	if !errors.As(err, &se) {
		fmt.Fprintf(stderr, "retryget: %v\n", err)
	}
	return 1
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "retryget",
		Usage:     "send an HTTP request with retries",
		ArgsUsage: "<url>",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML or JSON retry settings file",
			},
			&cli.StringFlag{
				Name:    "request",
				Aliases: []string{"X"},
				Usage:   "HTTP method",
				Value:   "GET",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "request body",
			},
			&cli.StringSliceFlag{
				Name:    "header",
				Aliases: []string{"H"},
				Usage:   "request header, as 'Name: value'",
			},
			&cli.IntFlag{
				Name:  "attempts",
				Usage: "maximum number of attempts, overrides the settings file",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "time limit for the whole request, overrides the settings file",
			},
			&cli.DurationFlag{
				Name:  "attempt-timeout",
				Usage: "time limit for each attempt, overrides the settings file",
			},
			&cli.StringFlag{
				Name:  "retry-on",
				Usage: "comma-separated status codes to retry, overrides the settings file",
			},
			&cli.BoolFlag{
				Name:  "retry-after",
				Usage: "honor Retry-After response headers",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "report each attempt on standard error",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return get(ctx, cmd, stdout, stderr)
		},
	}
}

func get(ctx context.Context, cmd *cli.Command, stdout, stderr io.Writer) error {
	if cmd.Args().Len() != 1 {
		return &usageError{"expected exactly one URL"}
	}
	s, err := settings(cmd)
	if err != nil {
		return err
	}
	cl, err := s.Client(nil)
	if err != nil {
		return &usageError{err.Error()}
	}

	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
		cl.Handlers = reporter(stderr)
	}
	cl.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	var body any
	if cmd.IsSet("data") {
		body = cmd.String("data")
	}
	p, err := request.NewPlanWithContext(ctx, cmd.String("request"), cmd.Args().First(), body)
	if err != nil {
		return &usageError{err.Error()}
	}
	for _, h := range cmd.StringSlice("header") {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return &usageError{fmt.Sprintf("invalid header %q", h)}
		}
		p.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	e, err := cl.Do(p)
	if err != nil {
		return err
	}
	if _, err = stdout.Write(e.Body); err != nil {
		return err
	}
	if sc := e.StatusCode(); sc < 200 || sc > 299 {
		fmt.Fprintf(stderr, "retryget: %d %s after %d attempt(s)\n", sc, e.Response.Status, e.Attempts)
		return &statusError{sc}
	}
	return nil
}

// settings loads the settings file, if any, and applies the flag
// overrides.
func settings(cmd *cli.Command) (*config.Settings, error) {
	s := &config.Settings{}
	if path := cmd.String("config"); path != "" {
		var err error
		if s, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if cmd.IsSet("attempts") {
		s.MaxTotalAttempts = cmd.Int("attempts")
	}
	if cmd.IsSet("timeout") {
		s.Timeout = cmd.Duration("timeout")
	}
	if cmd.IsSet("attempt-timeout") {
		s.AttemptTimeout = []time.Duration{cmd.Duration("attempt-timeout")}
	}
	if cmd.IsSet("retry-on") {
		s.RetryStatusCodes = nil
		for _, f := range strings.Split(cmd.String("retry-on"), ",") {
			code, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, &usageError{fmt.Sprintf("invalid status code %q", f)}
			}
			s.RetryStatusCodes = append(s.RetryStatusCodes, code)
		}
		s.RetryTransient = true
	}
	if cmd.IsSet("retry-after") {
		s.UseRetryAfter = cmd.Bool("retry-after")
	}
	return s, nil
}

func reporter(w io.Writer) *retryx.HandlerGroup {
	g := &retryx.HandlerGroup{}
	g.PushBack(retryx.AfterAttempt, retryx.HandlerFunc(func(_ retryx.Event, e *request.Execution) {
		a := e.Attempt
		if a.Err != nil {
			fmt.Fprintf(w, "attempt %d: %v\n", a.Number, a.Err)
		} else {
			fmt.Fprintf(w, "attempt %d: %s\n", a.Number, a.Response.Status)
		}
	}))
	g.PushBack(retryx.BeforeBackoff, retryx.HandlerFunc(func(_ retryx.Event, e *request.Execution) {
		fmt.Fprintf(w, "retrying after attempt %d\n", e.Attempts)
	}))
	return g
}
